package target

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/coursebridge/migration-backend/internal/domain/target"
	"github.com/coursebridge/migration-backend/internal/logger"
)

type SectionRepo interface {
	Create(ctx context.Context, tx *gorm.DB, section *types.Section) (*types.Section, error)
	ListByCourse(ctx context.Context, tx *gorm.DB, courseID uuid.UUID) ([]*types.Section, error)
}

type sectionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSectionRepo(db *gorm.DB, baseLog *logger.Logger) SectionRepo {
	repoLog := baseLog.With("repo", "SectionRepo")
	return &sectionRepo{db: db, log: repoLog}
}

func (r *sectionRepo) Create(ctx context.Context, tx *gorm.DB, section *types.Section) (*types.Section, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if err := transaction.WithContext(ctx).Create(section).Error; err != nil {
		return nil, err
	}
	return section, nil
}

func (r *sectionRepo) ListByCourse(ctx context.Context, tx *gorm.DB, courseID uuid.UUID) ([]*types.Section, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.Section
	if err := transaction.WithContext(ctx).
		Where("course_id = ?", courseID).
		Order("position ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

type CourseItemRepo interface {
	Create(ctx context.Context, tx *gorm.DB, item *types.CourseItem) (*types.CourseItem, error)
	GetByID(ctx context.Context, tx *gorm.DB, itemID uuid.UUID) (*types.CourseItem, error)
	FindByMetaRef(ctx context.Context, tx *gorm.DB, key, value string) (*types.CourseItem, error)
	ListByCourse(ctx context.Context, tx *gorm.DB, courseID uuid.UUID) ([]*types.CourseItem, error)
	MergeMetadata(ctx context.Context, tx *gorm.DB, itemID uuid.UUID, patch map[string]any) error
}

type courseItemRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCourseItemRepo(db *gorm.DB, baseLog *logger.Logger) CourseItemRepo {
	repoLog := baseLog.With("repo", "CourseItemRepo")
	return &courseItemRepo{db: db, log: repoLog}
}

func (r *courseItemRepo) Create(ctx context.Context, tx *gorm.DB, item *types.CourseItem) (*types.CourseItem, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if err := transaction.WithContext(ctx).Create(item).Error; err != nil {
		return nil, err
	}
	return item, nil
}

func (r *courseItemRepo) GetByID(ctx context.Context, tx *gorm.DB, itemID uuid.UUID) (*types.CourseItem, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var result types.CourseItem
	if err := transaction.WithContext(ctx).
		Where("id = ?", itemID).
		First(&result).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &result, nil
}

func (r *courseItemRepo) FindByMetaRef(ctx context.Context, tx *gorm.DB, key, value string) (*types.CourseItem, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var result types.CourseItem
	if err := transaction.WithContext(ctx).
		Where("metadata ->> ? = ?", key, value).
		Order("created_at ASC").
		First(&result).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &result, nil
}

func (r *courseItemRepo) ListByCourse(ctx context.Context, tx *gorm.DB, courseID uuid.UUID) ([]*types.CourseItem, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.CourseItem
	if err := transaction.WithContext(ctx).
		Where("course_id = ?", courseID).
		Order("position ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *courseItemRepo) MergeMetadata(ctx context.Context, tx *gorm.DB, itemID uuid.UUID, patch map[string]any) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return mergeMetadata(ctx, transaction, &types.CourseItem{}, itemID, patch)
}
