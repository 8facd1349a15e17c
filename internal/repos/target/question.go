package target

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/coursebridge/migration-backend/internal/domain/target"
	"github.com/coursebridge/migration-backend/internal/logger"
)

type QuestionRepo interface {
	Create(ctx context.Context, tx *gorm.DB, question *types.Question) (*types.Question, error)
	GetByID(ctx context.Context, tx *gorm.DB, questionID uuid.UUID) (*types.Question, error)
	FindByMetaRef(ctx context.Context, tx *gorm.DB, key, value string) (*types.Question, error)
	ListByQuizItem(ctx context.Context, tx *gorm.DB, quizItemID uuid.UUID) ([]*types.Question, error)
	MergeMetadata(ctx context.Context, tx *gorm.DB, questionID uuid.UUID, patch map[string]any) error
}

type questionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewQuestionRepo(db *gorm.DB, baseLog *logger.Logger) QuestionRepo {
	repoLog := baseLog.With("repo", "QuestionRepo")
	return &questionRepo{db: db, log: repoLog}
}

func (r *questionRepo) Create(ctx context.Context, tx *gorm.DB, question *types.Question) (*types.Question, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if err := transaction.WithContext(ctx).Create(question).Error; err != nil {
		return nil, err
	}
	return question, nil
}

func (r *questionRepo) GetByID(ctx context.Context, tx *gorm.DB, questionID uuid.UUID) (*types.Question, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var result types.Question
	if err := transaction.WithContext(ctx).
		Where("id = ?", questionID).
		First(&result).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &result, nil
}

func (r *questionRepo) FindByMetaRef(ctx context.Context, tx *gorm.DB, key, value string) (*types.Question, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var result types.Question
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

func (r *questionRepo) ListByQuizItem(ctx context.Context, tx *gorm.DB, quizItemID uuid.UUID) ([]*types.Question, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.Question
	if err := transaction.WithContext(ctx).
		Where("quiz_item_id = ?", quizItemID).
		Order("position ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *questionRepo) MergeMetadata(ctx context.Context, tx *gorm.DB, questionID uuid.UUID, patch map[string]any) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return mergeMetadata(ctx, transaction, &types.Question{}, questionID, patch)
}

type AnswerOptionRepo interface {
	Create(ctx context.Context, tx *gorm.DB, options []*types.AnswerOption) ([]*types.AnswerOption, error)
	ListByQuestion(ctx context.Context, tx *gorm.DB, questionID uuid.UUID) ([]*types.AnswerOption, error)
	DeleteByQuestionIDs(ctx context.Context, tx *gorm.DB, questionIDs []uuid.UUID) error
}

type answerOptionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewAnswerOptionRepo(db *gorm.DB, baseLog *logger.Logger) AnswerOptionRepo {
	repoLog := baseLog.With("repo", "AnswerOptionRepo")
	return &answerOptionRepo{db: db, log: repoLog}
}

func (r *answerOptionRepo) Create(ctx context.Context, tx *gorm.DB, options []*types.AnswerOption) ([]*types.AnswerOption, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if len(options) == 0 {
		return []*types.AnswerOption{}, nil
	}

	if err := transaction.WithContext(ctx).Create(&options).Error; err != nil {
		return nil, err
	}
	return options, nil
}

func (r *answerOptionRepo) ListByQuestion(ctx context.Context, tx *gorm.DB, questionID uuid.UUID) ([]*types.AnswerOption, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.AnswerOption
	if err := transaction.WithContext(ctx).
		Where("question_id = ?", questionID).
		Order("position ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *answerOptionRepo) DeleteByQuestionIDs(ctx context.Context, tx *gorm.DB, questionIDs []uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if len(questionIDs) == 0 {
		return nil
	}

	if err := transaction.WithContext(ctx).
		Where("question_id IN ?", questionIDs).
		Delete(&types.AnswerOption{}).Error; err != nil {
		return err
	}
	return nil
}
