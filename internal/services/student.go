package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/coursebridge/migration-backend/internal/cache"
	"github.com/coursebridge/migration-backend/internal/domain/migration"
	"github.com/coursebridge/migration-backend/internal/domain/source"
	"github.com/coursebridge/migration-backend/internal/domain/target"
	"github.com/coursebridge/migration-backend/internal/logger"
	sourcerepos "github.com/coursebridge/migration-backend/internal/repos/source"
	targetrepos "github.com/coursebridge/migration-backend/internal/repos/target"
)

// StudentService rebuilds one user's learning history against already
// migrated content: enrollments, per-item completions and quiz attempts.
type StudentService interface {
	MigrateUser(ctx context.Context, tx *gorm.DB, user *source.User) (migration.OutcomeSet, bool, error)
}

type studentService struct {
	db          *gorm.DB
	log         *logger.Logger
	users       sourcerepos.UserRepo
	courses     targetrepos.CourseRepo
	items       targetrepos.CourseItemRepo
	questions   targetrepos.QuestionRepo
	options     targetrepos.AnswerOptionRepo
	enrollments targetrepos.EnrollmentRepo
	completions targetrepos.ItemCompletionRepo
	attempts    targetrepos.QuizAttemptRepo
	registry    Registry
	invalidator cache.Invalidator
	now         func() time.Time
}

func NewStudentService(
	db *gorm.DB,
	baseLog *logger.Logger,
	users sourcerepos.UserRepo,
	courses targetrepos.CourseRepo,
	items targetrepos.CourseItemRepo,
	questions targetrepos.QuestionRepo,
	options targetrepos.AnswerOptionRepo,
	enrollments targetrepos.EnrollmentRepo,
	completions targetrepos.ItemCompletionRepo,
	attempts targetrepos.QuizAttemptRepo,
	registry Registry,
	invalidator cache.Invalidator,
) StudentService {
	serviceLog := baseLog.With("service", "StudentService")
	return &studentService{
		db:          db,
		log:         serviceLog,
		users:       users,
		courses:     courses,
		items:       items,
		questions:   questions,
		options:     options,
		enrollments: enrollments,
		completions: completions,
		attempts:    attempts,
		registry:    registry,
		invalidator: invalidator,
		now:         time.Now,
	}
}

// MigrateUser rebuilds one user's history. The second return reports
// whether the user had anything to migrate at all; users with no recorded
// activity are skipped without counting as processed.
func (s *studentService) MigrateUser(ctx context.Context, tx *gorm.DB, user *source.User) (migration.OutcomeSet, bool, error) {
	var outcomes migration.OutcomeSet

	active, err := s.users.HasActivity(ctx, tx, user.ID)
	if err != nil {
		return outcomes, false, fmt.Errorf("check activity for user %d: %w", user.ID, err)
	}
	if !active {
		return outcomes, false, nil
	}

	progress := map[int64]source.CourseProgress{}
	blob, err := s.users.ProgressBlob(ctx, tx, user.ID)
	if err != nil {
		return outcomes, true, err
	}
	if blob != nil {
		parsed, err := source.ParseProgressBlob(blob.Data)
		if err != nil {
			s.log.Warn("Discarding malformed progress blob", "user_id", user.ID, "error", err)
		} else {
			progress = parsed
		}
	}

	courseIDs, err := s.users.ActivityCourseIDs(ctx, tx, user.ID)
	if err != nil {
		return outcomes, true, err
	}
	seen := map[int64]bool{}
	for courseID := range progress {
		seen[courseID] = true
	}
	for _, courseID := range courseIDs {
		if !seen[courseID] {
			seen[courseID] = true
		}
	}

	for courseID := range seen {
		courseOutcomes := s.migrateUserCourse(ctx, tx, user, courseID, progress[courseID])
		outcomes.Merge(courseOutcomes)
	}
	return outcomes, true, nil
}

func (s *studentService) migrateUserCourse(ctx context.Context, tx *gorm.DB, user *source.User, courseID int64, progress source.CourseProgress) migration.OutcomeSet {
	var outcomes migration.OutcomeSet

	targetCourseID, found, err := s.registry.Resolve(ctx, tx, migration.KindCourse, courseID)
	if err != nil {
		outcomes.Add(migration.Failed(migration.KindCourse, courseID, err))
		return outcomes
	}
	if !found {
		outcomes.Add(migration.Skipped(migration.KindCourse, courseID, "course not migrated"))
		return outcomes
	}

	course, err := s.courses.GetByID(ctx, tx, targetCourseID)
	if err != nil || course == nil {
		outcomes.Add(migration.Failed(migration.KindCourse, courseID, fmt.Errorf("load migrated course: %w", err)))
		return outcomes
	}

	activity, err := s.users.CourseActivity(ctx, tx, user.ID, courseID)
	if err != nil {
		outcomes.Add(migration.Failed(migration.KindCourse, courseID, err))
		return outcomes
	}

	enrollment, err := s.ensureEnrollment(ctx, tx, user, course, progress, activity)
	if err != nil {
		outcomes.Add(migration.Failed(migration.KindCourse, courseID, err))
		return outcomes
	}

	s.migrateCompletions(ctx, tx, user, course, enrollment, progress, &outcomes)
	s.migrateAttempts(ctx, tx, user, courseID, course, enrollment, &outcomes)

	if s.invalidator != nil {
		s.invalidator.InvalidateEnrollmentCounts(ctx, course.ID)
	}
	return outcomes
}

// ensureEnrollment finds or creates the user's enrollment. The aggregate
// result percentage comes from the progress blob when present, otherwise
// from the newest activity row; a finished course forces a pass with at
// least the course's passing condition.
func (s *studentService) ensureEnrollment(ctx context.Context, tx *gorm.DB, user *source.User, course *target.Course, progress source.CourseProgress, activity []*source.UserActivity) (*target.Enrollment, error) {
	existing, err := s.enrollments.FindByUserCourse(ctx, tx, user.ID, course.ID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	finished := progress.IsDone
	start := s.now()
	var end *time.Time
	if len(activity) > 0 {
		latest := activity[0]
		if latest.StartedAt > 0 {
			start = time.Unix(latest.StartedAt, 0)
		}
		if latest.CompletedAt > 0 {
			completedAt := time.Unix(latest.CompletedAt, 0)
			end = &completedAt
		}
		if latest.Status == 1 {
			finished = true
		}
	}

	result := s.buildEnrollmentResult(ctx, tx, course, progress, finished)

	status := target.EnrollmentStatusEnrolled
	graduation := target.GraduationInProgress
	if finished {
		status = target.EnrollmentStatusFinished
		graduation = target.GraduationPassed
		if end == nil {
			endAt := s.now()
			end = &endAt
		}
	} else if result.Pass {
		graduation = target.GraduationPassed
	}

	enrollment := &target.Enrollment{
		UserID:     user.ID,
		CourseID:   course.ID,
		Status:     status,
		Graduation: graduation,
		StartTime:  start,
		EndTime:    end,
		Result:     mustJSON(result),
	}
	if _, err := s.enrollments.Create(ctx, tx, enrollment); err != nil {
		return nil, err
	}
	return enrollment, nil
}

func (s *studentService) buildEnrollmentResult(ctx context.Context, tx *gorm.DB, course *target.Course, progress source.CourseProgress, finished bool) migration.EnrollmentResult {
	completed := progress.Completed
	total := progress.Total

	items := map[string]migration.ItemTypeResult{}
	if courseItems, err := s.items.ListByCourse(ctx, tx, course.ID); err == nil {
		byType := map[string]int{}
		for _, item := range courseItems {
			byType[item.Type]++
		}
		if total == 0 {
			total = len(courseItems)
		}
		lessonsCompleted := completed
		if lessonsCompleted > byType[target.ItemTypeLesson] {
			lessonsCompleted = byType[target.ItemTypeLesson]
		}
		items[target.ItemTypeLesson] = migration.ItemTypeResult{
			Completed: lessonsCompleted,
			Passed:    lessonsCompleted,
			Total:     byType[target.ItemTypeLesson],
		}
		items[target.ItemTypeQuiz] = migration.ItemTypeResult{
			Total: byType[target.ItemTypeQuiz],
		}
	}

	percentage := 0.0
	if total > 0 {
		percentage = Round2(float64(completed) / float64(total) * 100)
	}
	pass := percentage >= course.PassingCondition
	if finished {
		pass = true
		if percentage < course.PassingCondition {
			percentage = course.PassingCondition
		}
	}

	return migration.EnrollmentResult{
		CountItems:     total,
		CompletedItems: completed,
		Items:          items,
		EvaluateType:   course.EvaluationType,
		Pass:           pass,
		Result:         percentage,
	}
}

// migrateCompletions records one completion per finished lesson and
// flattened topic. The parent is always the course; the legacy nesting of
// topics under lessons does not survive the flattening.
func (s *studentService) migrateCompletions(ctx context.Context, tx *gorm.DB, user *source.User, course *target.Course, enrollment *target.Enrollment, progress source.CourseProgress, outcomes *migration.OutcomeSet) {
	record := func(kind migration.Kind, sourceID int64, done bool) {
		if !done {
			return
		}
		itemID, found, err := s.registry.Resolve(ctx, tx, kind, sourceID)
		if err != nil {
			outcomes.Add(migration.Failed(kind, sourceID, err))
			return
		}
		if !found {
			outcomes.Add(migration.Skipped(kind, sourceID, "item not migrated"))
			return
		}
		existing, err := s.completions.FindByUserItem(ctx, tx, user.ID, itemID)
		if err != nil {
			outcomes.Add(migration.Failed(kind, sourceID, err))
			return
		}
		if existing != nil {
			return
		}
		completion := &target.ItemCompletion{
			UserID:       user.ID,
			ItemID:       itemID,
			EnrollmentID: enrollment.ID,
			ParentID:     course.ID,
			Status:       target.CompletionStatusCompleted,
			Graduation:   target.GraduationPassed,
			StartTime:    enrollment.StartTime,
			EndTime:      enrollment.EndTime,
		}
		if _, err := s.completions.Create(ctx, tx, completion); err != nil {
			outcomes.Add(migration.Failed(kind, sourceID, err))
			return
		}
		outcomes.Add(migration.OK(kind, sourceID))
	}

	for lessonID, done := range progress.Lessons {
		record(migration.KindLesson, lessonID, done)
	}
	for _, topics := range progress.Topics {
		for topicID, done := range topics {
			record(migration.KindTopic, topicID, done)
		}
	}
}

func (s *studentService) migrateAttempts(ctx context.Context, tx *gorm.DB, user *source.User, courseID int64, course *target.Course, enrollment *target.Enrollment, outcomes *migration.OutcomeSet) {
	rows, err := s.users.QuizAttempts(ctx, tx, user.ID, courseID)
	if err != nil {
		outcomes.Add(migration.Failed(migration.KindQuiz, courseID, err))
		return
	}

	migrated := map[uuid.UUID]bool{}
	for _, row := range rows {
		quizItemID, found, err := s.registry.Resolve(ctx, tx, migration.KindQuiz, row.QuizID)
		if err != nil {
			outcomes.Add(migration.Failed(migration.KindQuiz, row.QuizID, err))
			continue
		}
		if !found {
			quizItemID, found, err = s.registry.Resolve(ctx, tx, migration.KindQuizPro, row.QuizID)
			if err != nil {
				outcomes.Add(migration.Failed(migration.KindQuizPro, row.QuizID, err))
				continue
			}
		}
		if !found {
			outcomes.Add(migration.Skipped(migration.KindQuiz, row.QuizID, "quiz not migrated"))
			continue
		}

		// A re-run must not duplicate a user's attempt history.
		if !migrated[quizItemID] {
			count, err := s.attempts.CountByUserQuiz(ctx, tx, user.ID, quizItemID)
			if err != nil {
				outcomes.Add(migration.Failed(migration.KindQuiz, row.QuizID, err))
				continue
			}
			if count > 0 {
				outcomes.Add(migration.Skipped(migration.KindQuiz, row.QuizID, "attempts already migrated"))
				continue
			}
			migrated[quizItemID] = true
		}

		if err := s.migrateAttempt(ctx, tx, user, course, enrollment, quizItemID, row); err != nil {
			outcomes.Add(migration.Failed(migration.KindQuiz, row.QuizID, err))
			continue
		}
		outcomes.Add(migration.OK(migration.KindQuiz, row.QuizID))
	}
}

func (s *studentService) migrateAttempt(ctx context.Context, tx *gorm.DB, user *source.User, course *target.Course, enrollment *target.Enrollment, quizItemID uuid.UUID, row *source.QuizAttemptRow) error {
	quizItem, err := s.items.GetByID(ctx, tx, quizItemID)
	if err != nil {
		return err
	}

	result := migration.AttemptResult{
		Questions: map[string]migration.QuestionResult{},
		UserMark:  row.Points,
		Result:    Round2(row.Percentage),
		TimeSpend: FormatTimeSpent(row.TimeSpent),
		Pass:      row.Pass,
	}
	if quizItem != nil {
		result.PassingGrade = strconv.FormatFloat(quizItem.PassingGrade, 'f', -1, 64) + "%"
	}

	if row.StatisticRefID != 0 {
		stats, err := s.users.QuestionStats(ctx, tx, row.StatisticRefID)
		if err != nil {
			return err
		}
		for _, stat := range stats {
			questionID, questionResult, ok := s.rebuildQuestionResult(ctx, tx, stat)
			if !ok {
				result.QuestionEmpty++
				continue
			}
			result.Questions[questionID.String()] = questionResult
			result.Mark += questionResult.Mark
			result.QuestionCount++
			if questionResult.Answered == nil {
				result.QuestionEmpty++
				continue
			}
			result.QuestionAnswered++
			if questionResult.Correct {
				result.QuestionCorrect++
			} else {
				result.QuestionWrong++
			}
		}
	}
	if result.Mark == 0 {
		result.Mark = row.TotalPoints
	}

	start := s.now()
	if row.StartedAt > 0 {
		start = time.Unix(row.StartedAt, 0)
	}
	end := s.now()
	if row.CompletedAt > 0 {
		end = time.Unix(row.CompletedAt, 0)
	}

	graduation := target.GraduationFailed
	if row.Pass {
		graduation = target.GraduationPassed
	}

	courseRef := course.ID
	enrollmentRef := enrollment.ID
	attempt := &target.QuizAttempt{
		UserID:       user.ID,
		QuizItemID:   quizItemID,
		CourseID:     &courseRef,
		EnrollmentID: &enrollmentRef,
		Graduation:   graduation,
		StartTime:    start,
		EndTime:      end,
		Result:       mustJSON(result),
	}
	_, err = s.attempts.Create(ctx, tx, attempt)
	return err
}

// rebuildQuestionResult maps one legacy per-question statistic onto the
// migrated question: resolve the question (directly or through its engine
// id), decode the submitted payload and re-encode it against the target
// option tokens.
func (s *studentService) rebuildQuestionResult(ctx context.Context, tx *gorm.DB, stat *source.QuestionStat) (uuid.UUID, migration.QuestionResult, bool) {
	var questionID uuid.UUID
	var found bool
	var err error
	if stat.QuestionPostID != 0 {
		questionID, found, err = s.registry.Resolve(ctx, tx, migration.KindQuestion, stat.QuestionPostID)
	}
	if err == nil && !found && stat.QuestionProID != 0 {
		questionID, found, err = s.registry.Resolve(ctx, tx, migration.KindQuestionPro, stat.QuestionProID)
	}
	if err != nil || !found {
		return uuid.Nil, migration.QuestionResult{}, false
	}

	question, err := s.questions.GetByID(ctx, tx, questionID)
	if err != nil || question == nil {
		return uuid.Nil, migration.QuestionResult{}, false
	}
	options, err := s.options.ListByQuestion(ctx, tx, questionID)
	if err != nil {
		return uuid.Nil, migration.QuestionResult{}, false
	}

	payload, err := DecodeAnswerPayload(stat.AnswerData)
	if err != nil {
		s.log.Warn("Discarding undecodable answer payload",
			"question_id", questionID, "error", err)
		payload = nil
	}

	correct := stat.CorrectCount > 0 && stat.IncorrectCount == 0
	questionResult := migration.QuestionResult{
		Answered:    ReencodeAnswer(question.Type, options, questionBlanks(question), payload),
		Correct:     correct,
		Mark:        question.Mark,
		Explanation: question.Explanation,
	}
	if correct {
		questionResult.UserMark = stat.Points
	}
	if question.Type == target.QuestionTypeMatchingSorting {
		questionResult.Options = matchingOptions(options)
	}
	return questionID, questionResult, true
}

// questionBlanks reads the accepted-answer map off a fill-in-blanks
// question's metadata, walked in the stored blank order so the i-th
// entered answer lands on the i-th blank of the question body.
func questionBlanks(question *target.Question) []migration.BlankSpec {
	if question.Type != target.QuestionTypeFillInBlanks || len(question.Metadata) == 0 {
		return nil
	}
	var meta struct {
		Blanks map[string]string `json:"_blanks"`
		Order  []string          `json:"_blank_order"`
	}
	if err := json.Unmarshal(question.Metadata, &meta); err != nil {
		return nil
	}
	ids := meta.Order
	if len(ids) == 0 {
		ids = make([]string, 0, len(meta.Blanks))
		for id := range meta.Blanks {
			ids = append(ids, id)
		}
		sort.Strings(ids)
	}
	blanks := make([]migration.BlankSpec, 0, len(ids))
	for _, id := range ids {
		fill, ok := meta.Blanks[id]
		if !ok {
			continue
		}
		blanks = append(blanks, migration.BlankSpec{ID: id, Fill: fill})
	}
	return blanks
}

func matchingOptions(options []*target.AnswerOption) []migration.MatchingOption {
	out := make([]migration.MatchingOption, 0, len(options))
	for _, option := range options {
		entry := migration.MatchingOption{
			Title:       option.Title,
			Value:       option.Value,
			IsCorrect:   option.IsCorrect,
			MatchTarget: option.MatchTarget,
			Position:    option.Position,
		}
		if len(option.Metadata) > 0 {
			var meta struct {
				Shuffled []migration.ShuffledTarget `json:"shuffled_targets"`
			}
			if err := json.Unmarshal(option.Metadata, &meta); err == nil {
				entry.ShuffledTargets = meta.Shuffled
			}
		}
		out = append(out, entry)
	}
	return out
}
