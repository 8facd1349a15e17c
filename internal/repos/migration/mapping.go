package migration

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/coursebridge/migration-backend/internal/domain/migration"
	"github.com/coursebridge/migration-backend/internal/logger"
)

// IDMappingRepo is the fast lookup table over (kind, legacy id) pairs.
type IDMappingRepo interface {
	Upsert(ctx context.Context, tx *gorm.DB, kind types.Kind, sourceID int64, targetID uuid.UUID) error
	Lookup(ctx context.Context, tx *gorm.DB, kind types.Kind, sourceID int64) (uuid.UUID, bool, error)
	DeleteByKinds(ctx context.Context, tx *gorm.DB, kinds []types.Kind) error
	DeleteAll(ctx context.Context, tx *gorm.DB) error
}

type idMappingRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewIDMappingRepo(db *gorm.DB, baseLog *logger.Logger) IDMappingRepo {
	repoLog := baseLog.With("repo", "IDMappingRepo")
	return &idMappingRepo{db: db, log: repoLog}
}

func (r *idMappingRepo) Upsert(ctx context.Context, tx *gorm.DB, kind types.Kind, sourceID int64, targetID uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	row := &types.IDMapping{
		Kind:     string(kind),
		SourceID: sourceID,
		TargetID: targetID,
	}
	return transaction.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "kind"}, {Name: "source_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"target_id"}),
		}).
		Create(row).Error
}

func (r *idMappingRepo) Lookup(ctx context.Context, tx *gorm.DB, kind types.Kind, sourceID int64) (uuid.UUID, bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var row types.IDMapping
	if err := transaction.WithContext(ctx).
		Where("kind = ? AND source_id = ?", string(kind), sourceID).
		First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return uuid.Nil, false, nil
		}
		return uuid.Nil, false, err
	}
	return row.TargetID, true, nil
}

func (r *idMappingRepo) DeleteByKinds(ctx context.Context, tx *gorm.DB, kinds []types.Kind) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if len(kinds) == 0 {
		return nil
	}

	return transaction.WithContext(ctx).
		Where("kind IN ?", kinds).
		Delete(&types.IDMapping{}).Error
}

func (r *idMappingRepo) DeleteAll(ctx context.Context, tx *gorm.DB) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).
		Where("1 = 1").
		Delete(&types.IDMapping{}).Error
}
