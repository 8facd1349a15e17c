package target

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/coursebridge/migration-backend/internal/domain/target"
	"github.com/coursebridge/migration-backend/internal/logger"
)

type EnrollmentRepo interface {
	Create(ctx context.Context, tx *gorm.DB, enrollment *types.Enrollment) (*types.Enrollment, error)
	FindByUserCourse(ctx context.Context, tx *gorm.DB, userID int64, courseID uuid.UUID) (*types.Enrollment, error)
	CountByCourse(ctx context.Context, tx *gorm.DB, courseID uuid.UUID) (int64, error)
	DeleteAll(ctx context.Context, tx *gorm.DB) error
}

type enrollmentRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewEnrollmentRepo(db *gorm.DB, baseLog *logger.Logger) EnrollmentRepo {
	repoLog := baseLog.With("repo", "EnrollmentRepo")
	return &enrollmentRepo{db: db, log: repoLog}
}

func (r *enrollmentRepo) Create(ctx context.Context, tx *gorm.DB, enrollment *types.Enrollment) (*types.Enrollment, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if err := transaction.WithContext(ctx).Create(enrollment).Error; err != nil {
		return nil, err
	}
	return enrollment, nil
}

func (r *enrollmentRepo) FindByUserCourse(ctx context.Context, tx *gorm.DB, userID int64, courseID uuid.UUID) (*types.Enrollment, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var result types.Enrollment
	if err := transaction.WithContext(ctx).
		Where("user_id = ? AND course_id = ?", userID, courseID).
		First(&result).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &result, nil
}

func (r *enrollmentRepo) CountByCourse(ctx context.Context, tx *gorm.DB, courseID uuid.UUID) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var count int64
	if err := transaction.WithContext(ctx).
		Model(&types.Enrollment{}).
		Where("course_id = ?", courseID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *enrollmentRepo) DeleteAll(ctx context.Context, tx *gorm.DB) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).
		Where("1 = 1").
		Delete(&types.Enrollment{}).Error
}

type ItemCompletionRepo interface {
	Create(ctx context.Context, tx *gorm.DB, completion *types.ItemCompletion) (*types.ItemCompletion, error)
	FindByUserItem(ctx context.Context, tx *gorm.DB, userID int64, itemID uuid.UUID) (*types.ItemCompletion, error)
	DeleteAll(ctx context.Context, tx *gorm.DB) error
}

type itemCompletionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewItemCompletionRepo(db *gorm.DB, baseLog *logger.Logger) ItemCompletionRepo {
	repoLog := baseLog.With("repo", "ItemCompletionRepo")
	return &itemCompletionRepo{db: db, log: repoLog}
}

func (r *itemCompletionRepo) Create(ctx context.Context, tx *gorm.DB, completion *types.ItemCompletion) (*types.ItemCompletion, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if err := transaction.WithContext(ctx).Create(completion).Error; err != nil {
		return nil, err
	}
	return completion, nil
}

func (r *itemCompletionRepo) FindByUserItem(ctx context.Context, tx *gorm.DB, userID int64, itemID uuid.UUID) (*types.ItemCompletion, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var result types.ItemCompletion
	if err := transaction.WithContext(ctx).
		Where("user_id = ? AND item_id = ?", userID, itemID).
		First(&result).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &result, nil
}

func (r *itemCompletionRepo) DeleteAll(ctx context.Context, tx *gorm.DB) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).
		Where("1 = 1").
		Delete(&types.ItemCompletion{}).Error
}

type QuizAttemptRepo interface {
	Create(ctx context.Context, tx *gorm.DB, attempt *types.QuizAttempt) (*types.QuizAttempt, error)
	CountByUserQuiz(ctx context.Context, tx *gorm.DB, userID int64, quizItemID uuid.UUID) (int64, error)
	DeleteAll(ctx context.Context, tx *gorm.DB) error
}

type quizAttemptRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewQuizAttemptRepo(db *gorm.DB, baseLog *logger.Logger) QuizAttemptRepo {
	repoLog := baseLog.With("repo", "QuizAttemptRepo")
	return &quizAttemptRepo{db: db, log: repoLog}
}

func (r *quizAttemptRepo) Create(ctx context.Context, tx *gorm.DB, attempt *types.QuizAttempt) (*types.QuizAttempt, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if err := transaction.WithContext(ctx).Create(attempt).Error; err != nil {
		return nil, err
	}
	return attempt, nil
}

func (r *quizAttemptRepo) CountByUserQuiz(ctx context.Context, tx *gorm.DB, userID int64, quizItemID uuid.UUID) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var count int64
	if err := transaction.WithContext(ctx).
		Model(&types.QuizAttempt{}).
		Where("user_id = ? AND quiz_item_id = ?", userID, quizItemID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *quizAttemptRepo) DeleteAll(ctx context.Context, tx *gorm.DB) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).
		Where("1 = 1").
		Delete(&types.QuizAttempt{}).Error
}
