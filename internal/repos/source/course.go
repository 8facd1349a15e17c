package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/coursebridge/migration-backend/internal/domain/migration"
	types "github.com/coursebridge/migration-backend/internal/domain/source"
	"github.com/coursebridge/migration-backend/internal/logger"
)

// CourseRepo reads legacy course content and maintains the per-row
// migration back references stored in each row's meta column.
type CourseRepo interface {
	List(ctx context.Context, tx *gorm.DB, offset, limit int) ([]*types.Course, error)
	CountAll(ctx context.Context, tx *gorm.DB) (int64, error)
	GetByID(ctx context.Context, tx *gorm.DB, courseID int64) (*types.Course, error)
	LoadTree(ctx context.Context, tx *gorm.DB, courseID int64) (*types.CourseTree, error)
	GetRef(ctx context.Context, tx *gorm.DB, kind migration.Kind, sourceID int64) (string, error)
	SetRef(ctx context.Context, tx *gorm.DB, kind migration.Kind, sourceID int64, targetID string) error
	FindQuestionByProID(ctx context.Context, tx *gorm.DB, proID int64) (*types.Question, error)
}

type courseRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCourseRepo(db *gorm.DB, baseLog *logger.Logger) CourseRepo {
	repoLog := baseLog.With("repo", "SourceCourseRepo")
	return &courseRepo{db: db, log: repoLog}
}

func (r *courseRepo) List(ctx context.Context, tx *gorm.DB, offset, limit int) ([]*types.Course, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.Course
	if err := transaction.WithContext(ctx).
		Order("title ASC, id ASC").
		Offset(offset).
		Limit(limit).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *courseRepo) CountAll(ctx context.Context, tx *gorm.DB) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var count int64
	if err := transaction.WithContext(ctx).
		Model(&types.Course{}).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *courseRepo) GetByID(ctx context.Context, tx *gorm.DB, courseID int64) (*types.Course, error) {
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

// LoadTree loads a course together with its lessons, topics, quizzes,
// questions and answer rows, ordered the way the legacy curriculum
// builder ordered them.
func (r *courseRepo) LoadTree(ctx context.Context, tx *gorm.DB, courseID int64) (*types.CourseTree, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	course, err := r.GetByID(ctx, transaction, courseID)
	if err != nil {
		return nil, err
	}
	if course == nil {
		return nil, nil
	}

	tree := &types.CourseTree{
		Course:  course,
		Markers: course.SectionMarkers(),
	}

	var lessons []*types.Lesson
	if err := transaction.WithContext(ctx).
		Where("course_id = ?", courseID).
		Order("menu_order ASC, id ASC").
		Find(&lessons).Error; err != nil {
		return nil, err
	}

	var topics []*types.Topic
	if err := transaction.WithContext(ctx).
		Where("course_id = ?", courseID).
		Order("menu_order ASC, id ASC").
		Find(&topics).Error; err != nil {
		return nil, err
	}
	topicsByLesson := map[int64][]*types.Topic{}
	for _, topic := range topics {
		topicsByLesson[topic.LessonID] = append(topicsByLesson[topic.LessonID], topic)
	}

	var quizzes []*types.Quiz
	if err := transaction.WithContext(ctx).
		Where("course_id = ?", courseID).
		Order("menu_order ASC, id ASC").
		Find(&quizzes).Error; err != nil {
		return nil, err
	}

	quizzesByLesson := map[int64][]*types.QuizTree{}
	for _, quiz := range quizzes {
		quizTree, err := r.loadQuizTree(ctx, transaction, quiz)
		if err != nil {
			return nil, err
		}
		if quiz.LessonID != nil {
			quizzesByLesson[*quiz.LessonID] = append(quizzesByLesson[*quiz.LessonID], quizTree)
		} else {
			tree.CourseQuizzes = append(tree.CourseQuizzes, quizTree)
		}
	}

	for _, lesson := range lessons {
		tree.Lessons = append(tree.Lessons, &types.LessonTree{
			Lesson:  lesson,
			Topics:  topicsByLesson[lesson.ID],
			Quizzes: quizzesByLesson[lesson.ID],
		})
	}
	return tree, nil
}

func (r *courseRepo) loadQuizTree(ctx context.Context, tx *gorm.DB, quiz *types.Quiz) (*types.QuizTree, error) {
	var questions []*types.Question
	if err := tx.WithContext(ctx).
		Where("quiz_id = ?", quiz.ID).
		Order("menu_order ASC, id ASC").
		Find(&questions).Error; err != nil {
		return nil, err
	}

	quizTree := &types.QuizTree{Quiz: quiz}
	for _, question := range questions {
		var answers []*types.AnswerRow
		if err := tx.WithContext(ctx).
			Where("question_id = ?", question.ID).
			Order("position ASC, id ASC").
			Find(&answers).Error; err != nil {
			return nil, err
		}
		quizTree.Questions = append(quizTree.Questions, &types.QuestionTree{
			Question: question,
			Answers:  answers,
		})
	}
	return quizTree, nil
}

func (r *courseRepo) GetRef(ctx context.Context, tx *gorm.DB, kind migration.Kind, sourceID int64) (string, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	model, column, err := refTable(kind)
	if err != nil {
		return "", err
	}

	var raw datatypes.JSON
	query := transaction.WithContext(ctx).
		Model(model).
		Where(column+" = ?", sourceID).
		Limit(1).
		Pluck("meta", &raw)
	if query.Error != nil {
		return "", query.Error
	}
	if len(raw) == 0 {
		return "", nil
	}

	meta := map[string]any{}
	if err := json.Unmarshal(raw, &meta); err != nil {
		return "", nil
	}
	value, _ := meta[migration.TargetRefKey(kind)].(string)
	return value, nil
}

func (r *courseRepo) SetRef(ctx context.Context, tx *gorm.DB, kind migration.Kind, sourceID int64, targetID string) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	model, column, err := refTable(kind)
	if err != nil {
		return err
	}

	var rows []map[string]any
	if err := transaction.WithContext(ctx).
		Model(model).
		Select("id", "meta").
		Where(column+" = ?", sourceID).
		Find(&rows).Error; err != nil {
		return err
	}

	for _, row := range rows {
		meta := map[string]any{}
		if raw, ok := row["meta"].(string); ok && raw != "" {
			_ = json.Unmarshal([]byte(raw), &meta)
		} else if raw, ok := row["meta"].([]byte); ok && len(raw) > 0 {
			_ = json.Unmarshal(raw, &meta)
		}
		meta[migration.TargetRefKey(kind)] = targetID

		encoded, err := json.Marshal(meta)
		if err != nil {
			return err
		}
		if err := transaction.WithContext(ctx).
			Model(model).
			Where("id = ?", row["id"]).
			Update("meta", datatypes.JSON(encoded)).Error; err != nil {
			return err
		}
	}
	return nil
}

func (r *courseRepo) FindQuestionByProID(ctx context.Context, tx *gorm.DB, proID int64) (*types.Question, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var result types.Question
	if err := transaction.WithContext(ctx).
		Where("question_pro_id = ?", proID).
		Order("id ASC").
		First(&result).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &result, nil
}

// refTable resolves the legacy table that carries the back reference
// for a mapping kind. Pro kinds live on the row that owns the pro id.
func refTable(kind migration.Kind) (any, string, error) {
	switch kind {
	case migration.KindCourse:
		return &types.Course{}, "id", nil
	case migration.KindLesson:
		return &types.Lesson{}, "id", nil
	case migration.KindTopic:
		return &types.Topic{}, "id", nil
	case migration.KindQuiz:
		return &types.Quiz{}, "id", nil
	case migration.KindQuizPro:
		return &types.Quiz{}, "quiz_pro_id", nil
	case migration.KindQuestion:
		return &types.Question{}, "id", nil
	case migration.KindQuestionPro:
		return &types.Question{}, "question_pro_id", nil
	default:
		return nil, "", fmt.Errorf("unknown mapping kind %q", kind)
	}
}
