package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/coursebridge/migration-backend/internal/cache"
	"github.com/coursebridge/migration-backend/internal/domain/migration"
	"github.com/coursebridge/migration-backend/internal/domain/source"
	"github.com/coursebridge/migration-backend/internal/domain/target"
	"github.com/coursebridge/migration-backend/internal/logger"
	sourcerepos "github.com/coursebridge/migration-backend/internal/repos/source"
	targetrepos "github.com/coursebridge/migration-backend/internal/repos/target"
)

const (
	builderMetaPrefix = "_builder_"
	blanksMetaKey     = "_blanks"
	blankOrderMetaKey = "_blank_order"
	shuffledMetaKey   = "shuffled_targets"

	defaultQuizPassingGrade = 60
)

// ContentService rebuilds one legacy course per call: the course record,
// its section layout, lesson and quiz items, questions and answer options.
// An already-migrated course is skipped unless force is set, which replaces
// the previously migrated tree.
type ContentService interface {
	MigrateCourse(ctx context.Context, tx *gorm.DB, course *source.Course, force bool) (migration.OutcomeSet, error)
}

type contentService struct {
	db          *gorm.DB
	log         *logger.Logger
	sourceRepo  sourcerepos.CourseRepo
	courses     targetrepos.CourseRepo
	sections    targetrepos.SectionRepo
	items       targetrepos.CourseItemRepo
	questions   targetrepos.QuestionRepo
	options     targetrepos.AnswerOptionRepo
	registry    Registry
	converter   *AnswerConverter
	invalidator cache.Invalidator
}

func NewContentService(
	db *gorm.DB,
	baseLog *logger.Logger,
	sourceRepo sourcerepos.CourseRepo,
	courses targetrepos.CourseRepo,
	sections targetrepos.SectionRepo,
	items targetrepos.CourseItemRepo,
	questions targetrepos.QuestionRepo,
	options targetrepos.AnswerOptionRepo,
	registry Registry,
	converter *AnswerConverter,
	invalidator cache.Invalidator,
) ContentService {
	serviceLog := baseLog.With("service", "ContentService")
	if converter == nil {
		converter = NewAnswerConverter(nil, nil)
	}
	return &contentService{
		db:          db,
		log:         serviceLog,
		sourceRepo:  sourceRepo,
		courses:     courses,
		sections:    sections,
		items:       items,
		questions:   questions,
		options:     options,
		registry:    registry,
		converter:   converter,
		invalidator: invalidator,
	}
}

func (s *contentService) MigrateCourse(ctx context.Context, tx *gorm.DB, course *source.Course, force bool) (migration.OutcomeSet, error) {
	var outcomes migration.OutcomeSet

	tree, err := s.sourceRepo.LoadTree(ctx, tx, course.ID)
	if err != nil {
		return outcomes, fmt.Errorf("load course %d: %w", course.ID, err)
	}
	if tree == nil {
		outcomes.Add(migration.Skipped(migration.KindCourse, course.ID, "course not found"))
		return outcomes, nil
	}

	// A previously migrated course keeps its target tree and uuid unless
	// the caller forces a re-migration, which replaces it wholesale.
	if existing, found, err := s.registry.Resolve(ctx, tx, migration.KindCourse, course.ID); err != nil {
		return outcomes, err
	} else if found {
		if !force {
			s.log.Info("Course already migrated, skipping", "course_id", course.ID, "target_id", existing)
			outcomes.Add(migration.Skipped(migration.KindCourse, course.ID, "already migrated"))
			return outcomes, nil
		}
		s.log.Info("Replacing previously migrated course", "course_id", course.ID, "target_id", existing)
		if err := s.courses.DeleteTree(ctx, tx, existing); err != nil {
			return outcomes, fmt.Errorf("delete migrated course %d: %w", course.ID, err)
		}
		if err := s.registry.ClearRefs(ctx, tx, migration.KindCourse, course.ID); err != nil {
			return outcomes, err
		}
	}

	created := &target.Course{
		Title:        course.Title,
		Slug:         course.Slug,
		Status:       course.Status,
		Content:      course.Content,
		Excerpt:      course.Excerpt,
		AuthorID:     course.AuthorID,
		FeatureImage: course.FeatureImage,
		RegularPrice: course.Price,
		Duration:     "10 week",
		Level:        "all",
		Metadata:     builderMetadata(course.Meta),
	}
	if _, err := s.courses.Create(ctx, tx, created); err != nil {
		return outcomes, fmt.Errorf("create course %d: %w", course.ID, err)
	}
	if err := s.registry.Record(ctx, tx, migration.KindCourse, course.ID, created.ID); err != nil {
		return outcomes, err
	}
	outcomes.Add(migration.OK(migration.KindCourse, course.ID))

	plans, err := PartitionSections(tree)
	if err != nil {
		outcomes.Add(migration.Failed(migration.KindCourse, course.ID, err))
		return outcomes, nil
	}

	for position, plan := range plans {
		section := &target.Section{
			CourseID: created.ID,
			Name:     plan.Name,
			Position: position + 1,
		}
		if _, err := s.sections.Create(ctx, tx, section); err != nil {
			outcomes.Add(migration.Failed(migration.KindCourse, course.ID, fmt.Errorf("create section %q: %w", plan.Name, err)))
			continue
		}

		itemPosition := 0
		for _, lessonTree := range plan.Lessons {
			s.migrateLesson(ctx, tx, created, section, lessonTree, &itemPosition, &outcomes)
		}
		for _, quizTree := range plan.Quizzes {
			s.migrateQuiz(ctx, tx, created, section, quizTree, &itemPosition, &outcomes)
		}
	}

	if s.invalidator != nil {
		s.invalidator.InvalidateCourse(ctx, created.ID)
	}
	return outcomes, nil
}

// migrateLesson creates the lesson item plus its flattened topics and any
// quizzes attached to the lesson, all as siblings in the same section.
func (s *contentService) migrateLesson(ctx context.Context, tx *gorm.DB, course *target.Course, section *target.Section, lessonTree *source.LessonTree, position *int, outcomes *migration.OutcomeSet) {
	lesson := lessonTree.Lesson
	*position++
	item := &target.CourseItem{
		SectionID: section.ID,
		CourseID:  course.ID,
		Type:      target.ItemTypeLesson,
		Title:     lesson.Title,
		Content:   lesson.Content,
		Position:  *position,
		Metadata:  builderMetadata(lesson.Meta),
	}
	if _, err := s.items.Create(ctx, tx, item); err != nil {
		outcomes.Add(migration.Failed(migration.KindLesson, lesson.ID, err))
		return
	}
	if err := s.registry.Record(ctx, tx, migration.KindLesson, lesson.ID, item.ID); err != nil {
		outcomes.Add(migration.Failed(migration.KindLesson, lesson.ID, err))
		return
	}
	outcomes.Add(migration.OK(migration.KindLesson, lesson.ID))

	for _, topic := range lessonTree.Topics {
		*position++
		topicItem := &target.CourseItem{
			SectionID: section.ID,
			CourseID:  course.ID,
			Type:      target.ItemTypeLesson,
			Title:     topic.Title,
			Content:   topic.Content,
			Position:  *position,
			Metadata:  builderMetadata(topic.Meta),
		}
		if _, err := s.items.Create(ctx, tx, topicItem); err != nil {
			outcomes.Add(migration.Failed(migration.KindTopic, topic.ID, err))
			continue
		}
		if err := s.registry.Record(ctx, tx, migration.KindTopic, topic.ID, topicItem.ID); err != nil {
			outcomes.Add(migration.Failed(migration.KindTopic, topic.ID, err))
			continue
		}
		outcomes.Add(migration.OK(migration.KindTopic, topic.ID))
	}

	for _, quizTree := range lessonTree.Quizzes {
		s.migrateQuiz(ctx, tx, course, section, quizTree, position, outcomes)
	}
}

func (s *contentService) migrateQuiz(ctx context.Context, tx *gorm.DB, course *target.Course, section *target.Section, quizTree *source.QuizTree, position *int, outcomes *migration.OutcomeSet) {
	quiz := quizTree.Quiz
	*position++
	item := &target.CourseItem{
		SectionID:    section.ID,
		CourseID:     course.ID,
		Type:         target.ItemTypeQuiz,
		Title:        quiz.Title,
		Content:      quiz.Content,
		Position:     *position,
		Duration:     quizDuration(quiz.TimeLimit),
		PassingGrade: defaultQuizPassingGrade,
		Metadata:     mergeJSON(builderMetadata(quiz.Meta), map[string]any{"review": "yes"}),
	}
	if _, err := s.items.Create(ctx, tx, item); err != nil {
		outcomes.Add(migration.Failed(migration.KindQuiz, quiz.ID, err))
		return
	}
	if err := s.registry.Record(ctx, tx, migration.KindQuiz, quiz.ID, item.ID); err != nil {
		outcomes.Add(migration.Failed(migration.KindQuiz, quiz.ID, err))
		return
	}
	if quiz.QuizProID != 0 {
		if err := s.registry.Record(ctx, tx, migration.KindQuizPro, quiz.QuizProID, item.ID); err != nil {
			outcomes.Add(migration.Failed(migration.KindQuizPro, quiz.QuizProID, err))
			return
		}
	}
	outcomes.Add(migration.OK(migration.KindQuiz, quiz.ID))

	for questionPosition, questionTree := range quizTree.Questions {
		s.migrateQuestion(ctx, tx, item, questionTree, questionPosition+1, outcomes)
	}
}

func (s *contentService) migrateQuestion(ctx context.Context, tx *gorm.DB, quizItem *target.CourseItem, questionTree *source.QuestionTree, position int, outcomes *migration.OutcomeSet) {
	question := questionTree.Question

	format, ok := s.converter.Convert(question, questionTree.Answers)
	if !ok {
		s.log.Warn("Skipping question with unmapped answer type",
			"question_id", question.ID, "answer_type", question.AnswerType)
		outcomes.Add(migration.Skipped(migration.KindQuestion, question.ID,
			"unmapped answer type "+question.AnswerType))
		return
	}

	created := &target.Question{
		QuizItemID:  quizItem.ID,
		Type:        format.TargetType(),
		Title:       question.Title,
		Content:     question.Content,
		Mark:        question.Points,
		Hint:        question.TipMsg,
		Explanation: question.CorrectMsg,
		Position:    position,
	}

	var specs []migration.OptionSpec
	var matching *migration.Matching
	switch f := format.(type) {
	case migration.SingleChoice:
		specs = f.Options
	case migration.MultiChoice:
		specs = f.Options
	case migration.Sorting:
		specs = f.Options
	case migration.FillInBlank:
		created.Content = f.Body
		// The id list keeps the blanks in appearance order; the JSON map
		// alone cannot, and attempt answers are entered positionally.
		blanks := map[string]string{}
		order := make([]string, 0, len(f.Blanks))
		for _, blank := range f.Blanks {
			blanks[blank.ID] = blank.Fill
			order = append(order, blank.ID)
		}
		created.Metadata = mustJSON(map[string]any{
			blanksMetaKey:     blanks,
			blankOrderMetaKey: order,
		})
	case migration.Matching:
		matching = &f
	}

	if _, err := s.questions.Create(ctx, tx, created); err != nil {
		outcomes.Add(migration.Failed(migration.KindQuestion, question.ID, err))
		return
	}
	if err := s.registry.Record(ctx, tx, migration.KindQuestion, question.ID, created.ID); err != nil {
		outcomes.Add(migration.Failed(migration.KindQuestion, question.ID, err))
		return
	}
	if question.QuestionProID != 0 {
		if err := s.registry.Record(ctx, tx, migration.KindQuestionPro, question.QuestionProID, created.ID); err != nil {
			outcomes.Add(migration.Failed(migration.KindQuestionPro, question.QuestionProID, err))
			return
		}
	}

	var rows []*target.AnswerOption
	for i, spec := range specs {
		rows = append(rows, &target.AnswerOption{
			QuestionID: created.ID,
			Title:      spec.Title,
			Value:      spec.Value,
			IsCorrect:  spec.IsCorrect,
			Position:   i + 1,
		})
	}
	if matching != nil {
		shuffledMeta := mustJSON(map[string]any{shuffledMetaKey: matching.Shuffled})
		for i, pair := range matching.Pairs {
			rows = append(rows, &target.AnswerOption{
				QuestionID:  created.ID,
				Title:       pair.Left,
				Value:       pair.Value,
				IsCorrect:   true,
				Position:    i + 1,
				MatchTarget: pair.Right,
				Metadata:    shuffledMeta,
			})
		}
	}
	if _, err := s.options.Create(ctx, tx, rows); err != nil {
		outcomes.Add(migration.Failed(migration.KindQuestion, question.ID, err))
		return
	}
	outcomes.Add(migration.OK(migration.KindQuestion, question.ID))
}

// quizDuration renders a legacy time limit (seconds) as the target's
// duration string; unset limits become "0 minute".
func quizDuration(timeLimit int) string {
	return fmt.Sprintf("%d minute", timeLimit/60)
}

// builderMetadata copies page-builder meta keys through verbatim so
// externally rendered content keeps working after migration.
func builderMetadata(meta datatypes.JSON) datatypes.JSON {
	if len(meta) == 0 {
		return nil
	}
	var decoded map[string]json.RawMessage
	if err := json.Unmarshal(meta, &decoded); err != nil {
		return nil
	}
	kept := map[string]json.RawMessage{}
	for key, value := range decoded {
		if strings.HasPrefix(key, builderMetaPrefix) {
			kept[key] = value
		}
	}
	if len(kept) == 0 {
		return nil
	}
	encoded, err := json.Marshal(kept)
	if err != nil {
		return nil
	}
	return datatypes.JSON(encoded)
}

func mergeJSON(base datatypes.JSON, patch map[string]any) datatypes.JSON {
	merged := map[string]any{}
	if len(base) > 0 {
		_ = json.Unmarshal(base, &merged)
	}
	for key, value := range patch {
		merged[key] = value
	}
	return mustJSON(merged)
}

func mustJSON(value any) datatypes.JSON {
	encoded, err := json.Marshal(value)
	if err != nil {
		return nil
	}
	return datatypes.JSON(encoded)
}
