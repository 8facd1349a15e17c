package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/coursebridge/migration-backend/internal/domain/migration"
	"github.com/coursebridge/migration-backend/internal/domain/source"
	"github.com/coursebridge/migration-backend/internal/domain/target"
)

// In-memory repo fakes so pipeline tests exercise the real services
// without a database.

func refKey(kind migration.Kind, id int64) string {
	return fmt.Sprintf("%s|%d", kind, id)
}

type fakeMappings struct {
	rows map[string]uuid.UUID
}

func newFakeMappings() *fakeMappings {
	return &fakeMappings{rows: map[string]uuid.UUID{}}
}

func (f *fakeMappings) Upsert(_ context.Context, _ *gorm.DB, kind migration.Kind, sourceID int64, targetID uuid.UUID) error {
	f.rows[refKey(kind, sourceID)] = targetID
	return nil
}

func (f *fakeMappings) Lookup(_ context.Context, _ *gorm.DB, kind migration.Kind, sourceID int64) (uuid.UUID, bool, error) {
	id, ok := f.rows[refKey(kind, sourceID)]
	return id, ok, nil
}

func (f *fakeMappings) DeleteByKinds(_ context.Context, _ *gorm.DB, kinds []migration.Kind) error {
	for _, kind := range kinds {
		for key := range f.rows {
			if len(key) > len(kind) && key[:len(kind)] == string(kind) && key[len(kind)] == '|' {
				delete(f.rows, key)
			}
		}
	}
	return nil
}

func (f *fakeMappings) DeleteAll(_ context.Context, _ *gorm.DB) error {
	f.rows = map[string]uuid.UUID{}
	return nil
}

type fakeSourceCourses struct {
	courses        []*source.Course
	trees          map[int64]*source.CourseTree
	refs           map[string]string
	questionsByPro map[int64]*source.Question
}

func newFakeSourceCourses() *fakeSourceCourses {
	return &fakeSourceCourses{
		trees:          map[int64]*source.CourseTree{},
		refs:           map[string]string{},
		questionsByPro: map[int64]*source.Question{},
	}
}

func (f *fakeSourceCourses) addTree(tree *source.CourseTree) {
	f.courses = append(f.courses, tree.Course)
	f.trees[tree.Course.ID] = tree
	for _, lessonTree := range tree.Lessons {
		for _, quizTree := range lessonTree.Quizzes {
			f.indexQuestions(quizTree)
		}
	}
	for _, quizTree := range tree.CourseQuizzes {
		f.indexQuestions(quizTree)
	}
}

func (f *fakeSourceCourses) indexQuestions(quizTree *source.QuizTree) {
	for _, questionTree := range quizTree.Questions {
		if questionTree.Question.QuestionProID != 0 {
			f.questionsByPro[questionTree.Question.QuestionProID] = questionTree.Question
		}
	}
}

func (f *fakeSourceCourses) List(_ context.Context, _ *gorm.DB, offset, limit int) ([]*source.Course, error) {
	if offset >= len(f.courses) {
		return nil, nil
	}
	end := offset + limit
	if end > len(f.courses) {
		end = len(f.courses)
	}
	return f.courses[offset:end], nil
}

func (f *fakeSourceCourses) CountAll(_ context.Context, _ *gorm.DB) (int64, error) {
	return int64(len(f.courses)), nil
}

func (f *fakeSourceCourses) GetByID(_ context.Context, _ *gorm.DB, courseID int64) (*source.Course, error) {
	if tree, ok := f.trees[courseID]; ok {
		return tree.Course, nil
	}
	return nil, nil
}

func (f *fakeSourceCourses) LoadTree(_ context.Context, _ *gorm.DB, courseID int64) (*source.CourseTree, error) {
	return f.trees[courseID], nil
}

func (f *fakeSourceCourses) GetRef(_ context.Context, _ *gorm.DB, kind migration.Kind, sourceID int64) (string, error) {
	return f.refs[refKey(kind, sourceID)], nil
}

func (f *fakeSourceCourses) SetRef(_ context.Context, _ *gorm.DB, kind migration.Kind, sourceID int64, targetID string) error {
	f.refs[refKey(kind, sourceID)] = targetID
	return nil
}

func (f *fakeSourceCourses) FindQuestionByProID(_ context.Context, _ *gorm.DB, proID int64) (*source.Question, error) {
	return f.questionsByPro[proID], nil
}

type fakeSourceUsers struct {
	users     []*source.User
	blobs     map[int64]*source.CourseProgressBlob
	activity  map[int64][]*source.UserActivity
	attempts  map[int64][]*source.QuizAttemptRow
	stats     map[int64][]*source.QuestionStat
	courseIDs map[int64][]int64
}

func newFakeSourceUsers() *fakeSourceUsers {
	return &fakeSourceUsers{
		blobs:     map[int64]*source.CourseProgressBlob{},
		activity:  map[int64][]*source.UserActivity{},
		attempts:  map[int64][]*source.QuizAttemptRow{},
		stats:     map[int64][]*source.QuestionStat{},
		courseIDs: map[int64][]int64{},
	}
}

func (f *fakeSourceUsers) List(_ context.Context, _ *gorm.DB, offset, limit int) ([]*source.User, error) {
	if offset >= len(f.users) {
		return nil, nil
	}
	end := offset + limit
	if end > len(f.users) {
		end = len(f.users)
	}
	return f.users[offset:end], nil
}

func (f *fakeSourceUsers) CountAll(_ context.Context, _ *gorm.DB) (int64, error) {
	return int64(len(f.users)), nil
}

func (f *fakeSourceUsers) HasActivity(_ context.Context, _ *gorm.DB, userID int64) (bool, error) {
	return f.blobs[userID] != nil || len(f.activity[userID]) > 0 || len(f.attempts[userID]) > 0, nil
}

func (f *fakeSourceUsers) ProgressBlob(_ context.Context, _ *gorm.DB, userID int64) (*source.CourseProgressBlob, error) {
	return f.blobs[userID], nil
}

func (f *fakeSourceUsers) ActivityCourseIDs(_ context.Context, _ *gorm.DB, userID int64) ([]int64, error) {
	return f.courseIDs[userID], nil
}

func (f *fakeSourceUsers) CourseActivity(_ context.Context, _ *gorm.DB, userID, courseID int64) ([]*source.UserActivity, error) {
	var out []*source.UserActivity
	for _, row := range f.activity[userID] {
		if row.CourseID == courseID {
			out = append(out, row)
		}
	}
	return out, nil
}

func (f *fakeSourceUsers) QuizAttempts(_ context.Context, _ *gorm.DB, userID, courseID int64) ([]*source.QuizAttemptRow, error) {
	var out []*source.QuizAttemptRow
	for _, row := range f.attempts[userID] {
		if row.CourseID == courseID {
			out = append(out, row)
		}
	}
	return out, nil
}

func (f *fakeSourceUsers) QuestionStats(_ context.Context, _ *gorm.DB, statisticRefID int64) ([]*source.QuestionStat, error) {
	return f.stats[statisticRefID], nil
}

func metaMatches(raw []byte, key, value string) bool {
	if len(raw) == 0 {
		return false
	}
	meta := map[string]any{}
	if err := json.Unmarshal(raw, &meta); err != nil {
		return false
	}
	got, _ := meta[key].(string)
	return got == value
}

func mergeRawMeta(raw []byte, patch map[string]any) []byte {
	meta := map[string]any{}
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &meta)
	}
	for key, value := range patch {
		meta[key] = value
	}
	encoded, _ := json.Marshal(meta)
	return encoded
}

type fakeTargetCourses struct {
	rows map[uuid.UUID]*target.Course

	items     *fakeCourseItems
	questions *fakeQuestions
	options   *fakeAnswerOptions
	sections  *fakeSections
}

func newFakeTargetCourses() *fakeTargetCourses {
	return &fakeTargetCourses{rows: map[uuid.UUID]*target.Course{}}
}

func (f *fakeTargetCourses) Create(_ context.Context, _ *gorm.DB, course *target.Course) (*target.Course, error) {
	if course.ID == uuid.Nil {
		course.ID = uuid.New()
	}
	f.rows[course.ID] = course
	return course, nil
}

func (f *fakeTargetCourses) GetByID(_ context.Context, _ *gorm.DB, courseID uuid.UUID) (*target.Course, error) {
	return f.rows[courseID], nil
}

func (f *fakeTargetCourses) FindByMetaRef(_ context.Context, _ *gorm.DB, key, value string) (*target.Course, error) {
	for _, course := range f.rows {
		if metaMatches(course.Metadata, key, value) {
			return course, nil
		}
	}
	return nil, nil
}

func (f *fakeTargetCourses) MergeMetadata(_ context.Context, _ *gorm.DB, courseID uuid.UUID, patch map[string]any) error {
	course, ok := f.rows[courseID]
	if !ok {
		return fmt.Errorf("course %s not found", courseID)
	}
	course.Metadata = mergeRawMeta(course.Metadata, patch)
	return nil
}

func (f *fakeTargetCourses) DeleteTree(ctx context.Context, tx *gorm.DB, courseID uuid.UUID) error {
	delete(f.rows, courseID)
	if f.items != nil {
		for id, item := range f.items.rows {
			if item.CourseID == courseID {
				if f.questions != nil {
					for qid, question := range f.questions.rows {
						if question.QuizItemID == id {
							if f.options != nil {
								f.options.deleteByQuestion(qid)
							}
							delete(f.questions.rows, qid)
						}
					}
				}
				delete(f.items.rows, id)
			}
		}
	}
	if f.sections != nil {
		kept := f.sections.rows[:0]
		for _, section := range f.sections.rows {
			if section.CourseID != courseID {
				kept = append(kept, section)
			}
		}
		f.sections.rows = kept
	}
	return nil
}

type fakeSections struct {
	rows []*target.Section
}

func (f *fakeSections) Create(_ context.Context, _ *gorm.DB, section *target.Section) (*target.Section, error) {
	if section.ID == uuid.Nil {
		section.ID = uuid.New()
	}
	f.rows = append(f.rows, section)
	return section, nil
}

func (f *fakeSections) ListByCourse(_ context.Context, _ *gorm.DB, courseID uuid.UUID) ([]*target.Section, error) {
	var out []*target.Section
	for _, section := range f.rows {
		if section.CourseID == courseID {
			out = append(out, section)
		}
	}
	return out, nil
}

type fakeCourseItems struct {
	rows map[uuid.UUID]*target.CourseItem
	seq  []uuid.UUID
}

func newFakeCourseItems() *fakeCourseItems {
	return &fakeCourseItems{rows: map[uuid.UUID]*target.CourseItem{}}
}

func (f *fakeCourseItems) Create(_ context.Context, _ *gorm.DB, item *target.CourseItem) (*target.CourseItem, error) {
	if item.ID == uuid.Nil {
		item.ID = uuid.New()
	}
	f.rows[item.ID] = item
	f.seq = append(f.seq, item.ID)
	return item, nil
}

func (f *fakeCourseItems) GetByID(_ context.Context, _ *gorm.DB, itemID uuid.UUID) (*target.CourseItem, error) {
	return f.rows[itemID], nil
}

func (f *fakeCourseItems) FindByMetaRef(_ context.Context, _ *gorm.DB, key, value string) (*target.CourseItem, error) {
	for _, id := range f.seq {
		if item, ok := f.rows[id]; ok && metaMatches(item.Metadata, key, value) {
			return item, nil
		}
	}
	return nil, nil
}

func (f *fakeCourseItems) ListByCourse(_ context.Context, _ *gorm.DB, courseID uuid.UUID) ([]*target.CourseItem, error) {
	var out []*target.CourseItem
	for _, id := range f.seq {
		if item, ok := f.rows[id]; ok && item.CourseID == courseID {
			out = append(out, item)
		}
	}
	return out, nil
}

func (f *fakeCourseItems) MergeMetadata(_ context.Context, _ *gorm.DB, itemID uuid.UUID, patch map[string]any) error {
	item, ok := f.rows[itemID]
	if !ok {
		return fmt.Errorf("item %s not found", itemID)
	}
	item.Metadata = mergeRawMeta(item.Metadata, patch)
	return nil
}

type fakeQuestions struct {
	rows map[uuid.UUID]*target.Question
	seq  []uuid.UUID
}

func newFakeQuestions() *fakeQuestions {
	return &fakeQuestions{rows: map[uuid.UUID]*target.Question{}}
}

func (f *fakeQuestions) Create(_ context.Context, _ *gorm.DB, question *target.Question) (*target.Question, error) {
	if question.ID == uuid.Nil {
		question.ID = uuid.New()
	}
	f.rows[question.ID] = question
	f.seq = append(f.seq, question.ID)
	return question, nil
}

func (f *fakeQuestions) GetByID(_ context.Context, _ *gorm.DB, questionID uuid.UUID) (*target.Question, error) {
	return f.rows[questionID], nil
}

func (f *fakeQuestions) FindByMetaRef(_ context.Context, _ *gorm.DB, key, value string) (*target.Question, error) {
	for _, id := range f.seq {
		if question, ok := f.rows[id]; ok && metaMatches(question.Metadata, key, value) {
			return question, nil
		}
	}
	return nil, nil
}

func (f *fakeQuestions) ListByQuizItem(_ context.Context, _ *gorm.DB, quizItemID uuid.UUID) ([]*target.Question, error) {
	var out []*target.Question
	for _, id := range f.seq {
		if question, ok := f.rows[id]; ok && question.QuizItemID == quizItemID {
			out = append(out, question)
		}
	}
	return out, nil
}

func (f *fakeQuestions) MergeMetadata(_ context.Context, _ *gorm.DB, questionID uuid.UUID, patch map[string]any) error {
	question, ok := f.rows[questionID]
	if !ok {
		return fmt.Errorf("question %s not found", questionID)
	}
	question.Metadata = mergeRawMeta(question.Metadata, patch)
	return nil
}

type fakeAnswerOptions struct {
	rows []*target.AnswerOption
}

func (f *fakeAnswerOptions) Create(_ context.Context, _ *gorm.DB, options []*target.AnswerOption) ([]*target.AnswerOption, error) {
	for _, option := range options {
		if option.ID == uuid.Nil {
			option.ID = uuid.New()
		}
		f.rows = append(f.rows, option)
	}
	return options, nil
}

func (f *fakeAnswerOptions) ListByQuestion(_ context.Context, _ *gorm.DB, questionID uuid.UUID) ([]*target.AnswerOption, error) {
	var out []*target.AnswerOption
	for _, option := range f.rows {
		if option.QuestionID == questionID {
			out = append(out, option)
		}
	}
	return out, nil
}

func (f *fakeAnswerOptions) DeleteByQuestionIDs(_ context.Context, _ *gorm.DB, questionIDs []uuid.UUID) error {
	for _, id := range questionIDs {
		f.deleteByQuestion(id)
	}
	return nil
}

func (f *fakeAnswerOptions) deleteByQuestion(questionID uuid.UUID) {
	kept := f.rows[:0]
	for _, option := range f.rows {
		if option.QuestionID != questionID {
			kept = append(kept, option)
		}
	}
	f.rows = kept
}

type fakeEnrollments struct {
	rows []*target.Enrollment
}

func (f *fakeEnrollments) Create(_ context.Context, _ *gorm.DB, enrollment *target.Enrollment) (*target.Enrollment, error) {
	if enrollment.ID == uuid.Nil {
		enrollment.ID = uuid.New()
	}
	f.rows = append(f.rows, enrollment)
	return enrollment, nil
}

func (f *fakeEnrollments) FindByUserCourse(_ context.Context, _ *gorm.DB, userID int64, courseID uuid.UUID) (*target.Enrollment, error) {
	for _, enrollment := range f.rows {
		if enrollment.UserID == userID && enrollment.CourseID == courseID {
			return enrollment, nil
		}
	}
	return nil, nil
}

func (f *fakeEnrollments) CountByCourse(_ context.Context, _ *gorm.DB, courseID uuid.UUID) (int64, error) {
	var count int64
	for _, enrollment := range f.rows {
		if enrollment.CourseID == courseID {
			count++
		}
	}
	return count, nil
}

func (f *fakeEnrollments) DeleteAll(_ context.Context, _ *gorm.DB) error {
	f.rows = nil
	return nil
}

type fakeCompletions struct {
	rows []*target.ItemCompletion
}

func (f *fakeCompletions) Create(_ context.Context, _ *gorm.DB, completion *target.ItemCompletion) (*target.ItemCompletion, error) {
	if completion.ID == uuid.Nil {
		completion.ID = uuid.New()
	}
	f.rows = append(f.rows, completion)
	return completion, nil
}

func (f *fakeCompletions) FindByUserItem(_ context.Context, _ *gorm.DB, userID int64, itemID uuid.UUID) (*target.ItemCompletion, error) {
	for _, completion := range f.rows {
		if completion.UserID == userID && completion.ItemID == itemID {
			return completion, nil
		}
	}
	return nil, nil
}

func (f *fakeCompletions) DeleteAll(_ context.Context, _ *gorm.DB) error {
	f.rows = nil
	return nil
}

type fakeAttempts struct {
	rows []*target.QuizAttempt
}

func (f *fakeAttempts) Create(_ context.Context, _ *gorm.DB, attempt *target.QuizAttempt) (*target.QuizAttempt, error) {
	if attempt.ID == uuid.Nil {
		attempt.ID = uuid.New()
	}
	f.rows = append(f.rows, attempt)
	return attempt, nil
}

func (f *fakeAttempts) CountByUserQuiz(_ context.Context, _ *gorm.DB, userID int64, quizItemID uuid.UUID) (int64, error) {
	var count int64
	for _, attempt := range f.rows {
		if attempt.UserID == userID && attempt.QuizItemID == quizItemID {
			count++
		}
	}
	return count, nil
}

func (f *fakeAttempts) DeleteAll(_ context.Context, _ *gorm.DB) error {
	f.rows = nil
	return nil
}

type fakeOptionStore struct {
	values map[string][]byte
}

func newFakeOptionStore() *fakeOptionStore {
	return &fakeOptionStore{values: map[string][]byte{}}
}

func (f *fakeOptionStore) Get(_ context.Context, _ *gorm.DB, key string, out any) (bool, error) {
	raw, ok := f.values[key]
	if !ok {
		return false, nil
	}
	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return false, err
		}
	}
	return true, nil
}

func (f *fakeOptionStore) Set(_ context.Context, _ *gorm.DB, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	f.values[key] = raw
	return nil
}

func (f *fakeOptionStore) Delete(_ context.Context, _ *gorm.DB, key string) error {
	delete(f.values, key)
	return nil
}
