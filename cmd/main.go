package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/coursebridge/migration-backend/internal/cache"
	"github.com/coursebridge/migration-backend/internal/db"
	"github.com/coursebridge/migration-backend/internal/http/handlers"
	"github.com/coursebridge/migration-backend/internal/http/middleware"
	"github.com/coursebridge/migration-backend/internal/logger"
	migrationrepos "github.com/coursebridge/migration-backend/internal/repos/migration"
	sourcerepos "github.com/coursebridge/migration-backend/internal/repos/source"
	targetrepos "github.com/coursebridge/migration-backend/internal/repos/target"
	"github.com/coursebridge/migration-backend/internal/server"
	"github.com/coursebridge/migration-backend/internal/services"
	"github.com/coursebridge/migration-backend/internal/utils"
)

func main() {
	_ = godotenv.Load()

	// Logger
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// Postgres
	postgresService, err := db.NewPostgresService(log)
	if err != nil {
		log.Error("Postgres init failed", "error", err)
		os.Exit(1)
	}
	if err = postgresService.AutoMigrateAll(); err != nil {
		log.Warn("Postgres auto migration failed", "error", err)
	}
	thePG := postgresService.DB()

	// Repos
	log.Info("Setting up Repos from main...")
	sourceCourseRepo := sourcerepos.NewCourseRepo(thePG, log)
	sourceUserRepo := sourcerepos.NewUserRepo(thePG, log)
	targetCourseRepo := targetrepos.NewCourseRepo(thePG, log)
	sectionRepo := targetrepos.NewSectionRepo(thePG, log)
	courseItemRepo := targetrepos.NewCourseItemRepo(thePG, log)
	questionRepo := targetrepos.NewQuestionRepo(thePG, log)
	answerOptionRepo := targetrepos.NewAnswerOptionRepo(thePG, log)
	enrollmentRepo := targetrepos.NewEnrollmentRepo(thePG, log)
	itemCompletionRepo := targetrepos.NewItemCompletionRepo(thePG, log)
	quizAttemptRepo := targetrepos.NewQuizAttemptRepo(thePG, log)
	idMappingRepo := migrationrepos.NewIDMappingRepo(thePG, log)
	optionRepo := migrationrepos.NewOptionRepo(thePG, log)

	// Cache invalidation
	redisInvalidator, err := cache.NewRedisInvalidator(log)
	if err != nil {
		log.Warn("Running without cache invalidation", "error", err)
	}
	invalidator := cache.NewFanout(redisInvalidator)

	// Services
	log.Info("Setting up Services from main...")
	registry := services.NewRegistry(thePG, log, idMappingRepo, sourceCourseRepo, targetCourseRepo, courseItemRepo, questionRepo)
	contentService := services.NewContentService(
		thePG,
		log,
		sourceCourseRepo,
		targetCourseRepo,
		sectionRepo,
		courseItemRepo,
		questionRepo,
		answerOptionRepo,
		registry,
		nil,
		invalidator,
	)
	studentService := services.NewStudentService(
		thePG,
		log,
		sourceUserRepo,
		targetCourseRepo,
		courseItemRepo,
		questionRepo,
		answerOptionRepo,
		enrollmentRepo,
		itemCompletionRepo,
		quizAttemptRepo,
		registry,
		invalidator,
	)
	orchestrator := services.NewOrchestrator(
		thePG,
		log,
		sourceCourseRepo,
		sourceUserRepo,
		optionRepo,
		idMappingRepo,
		contentService,
		studentService,
	)

	// Handlers
	log.Info("Setting up handlers from main...")
	migrationHandler := handlers.NewMigrationHandler(log, orchestrator)

	// Middleware
	log.Info("Setting up middleware from main...")
	authMiddleware := middleware.NewAuthMiddleware(log)

	// Router
	log.Info("Setting up router from main...")
	router := server.NewRouter(server.RouterConfig{
		MigrationHandler: migrationHandler,
		AuthMiddleware:   authMiddleware,
	})

	port := utils.GetEnv("PORT", "8080", log)
	fmt.Printf("Server listening on :%s\n", port)
	if err := router.Run(":" + port); err != nil {
		log.Warn("Server failed", "error", err)
	}
}
