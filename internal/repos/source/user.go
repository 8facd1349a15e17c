package source

import (
	"context"
	"errors"

	"gorm.io/gorm"

	types "github.com/coursebridge/migration-backend/internal/domain/source"
	"github.com/coursebridge/migration-backend/internal/logger"
)

// UserRepo reads legacy users and the activity rows the progress
// rebuild pipeline consumes.
type UserRepo interface {
	List(ctx context.Context, tx *gorm.DB, offset, limit int) ([]*types.User, error)
	CountAll(ctx context.Context, tx *gorm.DB) (int64, error)
	HasActivity(ctx context.Context, tx *gorm.DB, userID int64) (bool, error)
	ProgressBlob(ctx context.Context, tx *gorm.DB, userID int64) (*types.CourseProgressBlob, error)
	ActivityCourseIDs(ctx context.Context, tx *gorm.DB, userID int64) ([]int64, error)
	CourseActivity(ctx context.Context, tx *gorm.DB, userID, courseID int64) ([]*types.UserActivity, error)
	QuizAttempts(ctx context.Context, tx *gorm.DB, userID, courseID int64) ([]*types.QuizAttemptRow, error)
	QuestionStats(ctx context.Context, tx *gorm.DB, statisticRefID int64) ([]*types.QuestionStat, error)
}

type userRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewUserRepo(db *gorm.DB, baseLog *logger.Logger) UserRepo {
	repoLog := baseLog.With("repo", "SourceUserRepo")
	return &userRepo{db: db, log: repoLog}
}

func (r *userRepo) List(ctx context.Context, tx *gorm.DB, offset, limit int) ([]*types.User, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.User
	if err := transaction.WithContext(ctx).
		Order("id ASC").
		Offset(offset).
		Limit(limit).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *userRepo) CountAll(ctx context.Context, tx *gorm.DB) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var count int64
	if err := transaction.WithContext(ctx).
		Model(&types.User{}).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *userRepo) HasActivity(ctx context.Context, tx *gorm.DB, userID int64) (bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var count int64
	if err := transaction.WithContext(ctx).
		Model(&types.UserActivity{}).
		Where("user_id = ?", userID).
		Count(&count).Error; err != nil {
		return false, err
	}
	if count > 0 {
		return true, nil
	}

	var blobCount int64
	if err := transaction.WithContext(ctx).
		Model(&types.CourseProgressBlob{}).
		Where("user_id = ?", userID).
		Count(&blobCount).Error; err != nil {
		return false, err
	}
	if blobCount > 0 {
		return true, nil
	}

	var attemptCount int64
	if err := transaction.WithContext(ctx).
		Model(&types.QuizAttemptRow{}).
		Where("user_id = ?", userID).
		Count(&attemptCount).Error; err != nil {
		return false, err
	}
	return attemptCount > 0, nil
}

func (r *userRepo) ProgressBlob(ctx context.Context, tx *gorm.DB, userID int64) (*types.CourseProgressBlob, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var result types.CourseProgressBlob
	if err := transaction.WithContext(ctx).
		Where("user_id = ?", userID).
		First(&result).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &result, nil
}

// ActivityCourseIDs returns the distinct courses a user has any activity
// or quiz attempts in.
func (r *userRepo) ActivityCourseIDs(ctx context.Context, tx *gorm.DB, userID int64) ([]int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var fromActivity []int64
	if err := transaction.WithContext(ctx).
		Model(&types.UserActivity{}).
		Distinct("course_id").
		Where("user_id = ?", userID).
		Pluck("course_id", &fromActivity).Error; err != nil {
		return nil, err
	}

	var fromAttempts []int64
	if err := transaction.WithContext(ctx).
		Model(&types.QuizAttemptRow{}).
		Distinct("course_id").
		Where("user_id = ? AND course_id > 0", userID).
		Pluck("course_id", &fromAttempts).Error; err != nil {
		return nil, err
	}

	seen := map[int64]bool{}
	var out []int64
	for _, id := range append(fromActivity, fromAttempts...) {
		if id == 0 || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out, nil
}

// CourseActivity returns course-level activity rows newest first, so
// the most recent enrollment window wins when a user re-enrolled.
func (r *userRepo) CourseActivity(ctx context.Context, tx *gorm.DB, userID, courseID int64) ([]*types.UserActivity, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.UserActivity
	if err := transaction.WithContext(ctx).
		Where("user_id = ? AND course_id = ? AND activity_type = ?", userID, courseID, types.ActivityTypeCourse).
		Order("id DESC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *userRepo) QuizAttempts(ctx context.Context, tx *gorm.DB, userID, courseID int64) ([]*types.QuizAttemptRow, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.QuizAttemptRow
	if err := transaction.WithContext(ctx).
		Where("user_id = ? AND course_id = ?", userID, courseID).
		Order("id ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *userRepo) QuestionStats(ctx context.Context, tx *gorm.DB, statisticRefID int64) ([]*types.QuestionStat, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.QuestionStat
	if err := transaction.WithContext(ctx).
		Where("statistic_ref_id = ?", statisticRefID).
		Order("id ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
