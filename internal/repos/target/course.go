package target

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	types "github.com/coursebridge/migration-backend/internal/domain/target"
	"github.com/coursebridge/migration-backend/internal/logger"
)

// CourseRepo writes migrated courses and their curriculum rows, and
// resolves targets back to their legacy origin through metadata refs.
type CourseRepo interface {
	Create(ctx context.Context, tx *gorm.DB, course *types.Course) (*types.Course, error)
	GetByID(ctx context.Context, tx *gorm.DB, courseID uuid.UUID) (*types.Course, error)
	FindByMetaRef(ctx context.Context, tx *gorm.DB, key, value string) (*types.Course, error)
	MergeMetadata(ctx context.Context, tx *gorm.DB, courseID uuid.UUID, patch map[string]any) error
	DeleteTree(ctx context.Context, tx *gorm.DB, courseID uuid.UUID) error
}

type courseRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCourseRepo(db *gorm.DB, baseLog *logger.Logger) CourseRepo {
	repoLog := baseLog.With("repo", "TargetCourseRepo")
	return &courseRepo{db: db, log: repoLog}
}

func (r *courseRepo) Create(ctx context.Context, tx *gorm.DB, course *types.Course) (*types.Course, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if err := transaction.WithContext(ctx).Create(course).Error; err != nil {
		return nil, err
	}
	return course, nil
}

func (r *courseRepo) GetByID(ctx context.Context, tx *gorm.DB, courseID uuid.UUID) (*types.Course, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var result types.Course
	if err := transaction.WithContext(ctx).
		Where("id = ?", courseID).
		First(&result).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &result, nil
}

func (r *courseRepo) FindByMetaRef(ctx context.Context, tx *gorm.DB, key, value string) (*types.Course, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var result types.Course
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

func (r *courseRepo) MergeMetadata(ctx context.Context, tx *gorm.DB, courseID uuid.UUID, patch map[string]any) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return mergeMetadata(ctx, transaction, &types.Course{}, courseID, patch)
}

// DeleteTree removes a course and every curriculum row below it. Used
// when a re-run replaces an already migrated course.
func (r *courseRepo) DeleteTree(ctx context.Context, tx *gorm.DB, courseID uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	itemIDs := transaction.WithContext(ctx).
		Model(&types.CourseItem{}).
		Select("id").
		Where("course_id = ?", courseID)
	questionIDs := transaction.WithContext(ctx).
		Model(&types.Question{}).
		Select("id").
		Where("quiz_item_id IN (?)", itemIDs)

	if err := transaction.WithContext(ctx).
		Where("question_id IN (?)", questionIDs).
		Delete(&types.AnswerOption{}).Error; err != nil {
		return err
	}
	if err := transaction.WithContext(ctx).
		Where("quiz_item_id IN (?)", itemIDs).
		Delete(&types.Question{}).Error; err != nil {
		return err
	}
	if err := transaction.WithContext(ctx).
		Where("course_id = ?", courseID).
		Delete(&types.CourseItem{}).Error; err != nil {
		return err
	}
	if err := transaction.WithContext(ctx).
		Where("course_id = ?", courseID).
		Delete(&types.Section{}).Error; err != nil {
		return err
	}
	if err := transaction.WithContext(ctx).
		Where("id = ?", courseID).
		Delete(&types.Course{}).Error; err != nil {
		return err
	}
	return nil
}

// mergeMetadata reads the row's metadata column, applies the patch and
// writes it back. Shared by the course, item and question repos.
func mergeMetadata(ctx context.Context, tx *gorm.DB, model any, id uuid.UUID, patch map[string]any) error {
	var raw datatypes.JSON
	query := tx.WithContext(ctx).
		Model(model).
		Where("id = ?", id).
		Limit(1).
		Pluck("metadata", &raw)
	if query.Error != nil {
		return query.Error
	}

	meta := map[string]any{}
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &meta)
	}
	for key, value := range patch {
		meta[key] = value
	}

	encoded, err := json.Marshal(meta)
	if err != nil {
		return err
	}
	return tx.WithContext(ctx).
		Model(model).
		Where("id = ?", id).
		Update("metadata", datatypes.JSON(encoded)).Error
}
