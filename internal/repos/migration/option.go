package migration

import (
	"context"
	"encoding/json"
	"errors"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/coursebridge/migration-backend/internal/domain/migration"
	"github.com/coursebridge/migration-backend/internal/logger"
)

// OptionRepo is a JSON key-value store for run state and other small
// migration bookkeeping values.
type OptionRepo interface {
	Get(ctx context.Context, tx *gorm.DB, key string, out any) (bool, error)
	Set(ctx context.Context, tx *gorm.DB, key string, value any) error
	Delete(ctx context.Context, tx *gorm.DB, key string) error
}

type optionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewOptionRepo(db *gorm.DB, baseLog *logger.Logger) OptionRepo {
	repoLog := baseLog.With("repo", "OptionRepo")
	return &optionRepo{db: db, log: repoLog}
}

func (r *optionRepo) Get(ctx context.Context, tx *gorm.DB, key string, out any) (bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var row types.Option
	if err := transaction.WithContext(ctx).
		Where("key = ?", key).
		First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, err
	}
	if out != nil && len(row.Value) > 0 {
		if err := json.Unmarshal(row.Value, out); err != nil {
			return false, err
		}
	}
	return true, nil
}

func (r *optionRepo) Set(ctx context.Context, tx *gorm.DB, key string, value any) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	encoded, err := json.Marshal(value)
	if err != nil {
		return err
	}
	row := &types.Option{Key: key, Value: datatypes.JSON(encoded)}
	return transaction.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
		}).
		Create(row).Error
}

func (r *optionRepo) Delete(ctx context.Context, tx *gorm.DB, key string) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).
		Where("key = ?", key).
		Delete(&types.Option{}).Error
}
