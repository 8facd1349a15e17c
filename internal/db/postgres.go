package db

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/coursebridge/migration-backend/internal/domain/migration"
	"github.com/coursebridge/migration-backend/internal/domain/source"
	"github.com/coursebridge/migration-backend/internal/domain/target"
	"github.com/coursebridge/migration-backend/internal/logger"
	"github.com/coursebridge/migration-backend/internal/utils"
)

type PostgresService struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPostgresService(log *logger.Logger) (*PostgresService, error) {
	serviceLog := log.With("service", "PostgresService")

	log.Info("Loading environment variables...")
	postgresHost := utils.GetEnv("POSTGRES_HOST", "localhost", log)
	postgresPort := utils.GetEnv("POSTGRES_PORT", "5432", log)
	postgresUser := utils.GetEnv("POSTGRES_USER", "postgres", log)
	postgresPassword := utils.GetEnv("POSTGRES_PASSWORD", "", log)
	postgresName := utils.GetEnv("POSTGRES_NAME", "migration", log)
	log.Debug("Environment variables loaded")

	dsn := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable", postgresUser, postgresPassword, postgresHost, postgresPort, postgresName)

	log.Info("Connecting to Postgres...")
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		log.Error("Failed to connect to Postgres", "error", err)
		return nil, fmt.Errorf("failed to connect to Postgres: %w", err)
	}

	if err := db.Exec(`CREATE EXTENSION IF NOT EXISTS "uuid-ossp";`).Error; err != nil {
		log.Error("Failed to enable uuid-ossp extension", "error", err)
		return nil, fmt.Errorf("failed to enable uuid-ossp extension: %w", err)
	}
	log.Info("uuid-ossp extension enabled")

	return &PostgresService{db: db, log: serviceLog}, nil
}

func (s *PostgresService) DB() *gorm.DB { return s.db }

func (s *PostgresService) AutoMigrateAll() error {
	s.log.Info("Auto migrating postgres tables...")
	err := s.db.AutoMigrate(
		&source.Course{},
		&source.Lesson{},
		&source.Topic{},
		&source.Quiz{},
		&source.Question{},
		&source.AnswerRow{},
		&source.User{},
		&source.UserActivity{},
		&source.CourseProgressBlob{},
		&source.QuizAttemptRow{},
		&source.QuestionStat{},
		&target.Course{},
		&target.Section{},
		&target.CourseItem{},
		&target.Question{},
		&target.AnswerOption{},
		&target.Enrollment{},
		&target.ItemCompletion{},
		&target.QuizAttempt{},
		&migration.IDMapping{},
		&migration.Option{},
	)
	if err != nil {
		s.log.Error("Auto migration failed for postgres tables", "error", err)
		return err
	}
	return nil
}
