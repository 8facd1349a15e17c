package source

import (
	"context"
	"encoding/json"
	"testing"

	"gorm.io/datatypes"

	"github.com/coursebridge/migration-backend/internal/domain/migration"
	types "github.com/coursebridge/migration-backend/internal/domain/source"
	"github.com/coursebridge/migration-backend/internal/repos/testutil"
)

func TestCourseRepoLoadTree(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	repo := NewCourseRepo(db, testutil.Logger(t))

	course := testutil.SeedSourceCourse(t, ctx, tx, "Legacy Course")
	if err := tx.WithContext(ctx).Model(course).
		Update("meta", datatypes.JSON(`{"course_sections":[{"order":0,"post_title":"Part One"}]}`)).Error; err != nil {
		t.Fatalf("set course meta: %v", err)
	}

	// seeded out of menu order on purpose
	second := testutil.SeedSourceLesson(t, ctx, tx, course.ID, "Second", 2)
	first := testutil.SeedSourceLesson(t, ctx, tx, course.ID, "First", 1)
	topic := testutil.SeedSourceTopic(t, ctx, tx, course.ID, first.ID, "Topic", 1)

	lessonQuiz := testutil.SeedSourceQuiz(t, ctx, tx, course.ID, &first.ID, "Lesson Quiz")
	finalQuiz := testutil.SeedSourceQuiz(t, ctx, tx, course.ID, nil, "Final Quiz")
	question := testutil.SeedSourceQuestion(t, ctx, tx, lessonQuiz.ID, types.AnswerTypeSingle)
	testutil.SeedSourceAnswer(t, ctx, tx, question.ID, "b", 2, false)
	testutil.SeedSourceAnswer(t, ctx, tx, question.ID, "a", 1, true)

	tree, err := repo.LoadTree(ctx, tx, course.ID)
	if err != nil {
		t.Fatalf("LoadTree: %v", err)
	}
	if tree == nil {
		t.Fatal("LoadTree returned nil for existing course")
	}

	if len(tree.Markers) != 1 || tree.Markers[0].Title != "Part One" {
		t.Fatalf("markers: %+v", tree.Markers)
	}
	if len(tree.Lessons) != 2 {
		t.Fatalf("lessons: %d, want 2", len(tree.Lessons))
	}
	if tree.Lessons[0].Lesson.ID != first.ID || tree.Lessons[1].Lesson.ID != second.ID {
		t.Fatalf("lesson order: %d, %d", tree.Lessons[0].Lesson.ID, tree.Lessons[1].Lesson.ID)
	}
	if len(tree.Lessons[0].Topics) != 1 || tree.Lessons[0].Topics[0].ID != topic.ID {
		t.Fatalf("topics: %+v", tree.Lessons[0].Topics)
	}
	if len(tree.Lessons[0].Quizzes) != 1 || tree.Lessons[0].Quizzes[0].Quiz.ID != lessonQuiz.ID {
		t.Fatalf("lesson quizzes: %+v", tree.Lessons[0].Quizzes)
	}
	if len(tree.CourseQuizzes) != 1 || tree.CourseQuizzes[0].Quiz.ID != finalQuiz.ID {
		t.Fatalf("course quizzes: %+v", tree.CourseQuizzes)
	}

	questions := tree.Lessons[0].Quizzes[0].Questions
	if len(questions) != 1 || len(questions[0].Answers) != 2 {
		t.Fatalf("question tree: %+v", questions)
	}
	if questions[0].Answers[0].Answer != "a" || questions[0].Answers[1].Answer != "b" {
		t.Fatalf("answer order: %q, %q", questions[0].Answers[0].Answer, questions[0].Answers[1].Answer)
	}
}

func TestCourseRepoLoadTreeMissingCourse(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	repo := NewCourseRepo(db, testutil.Logger(t))

	tree, err := repo.LoadTree(context.Background(), tx, 999999999)
	if err != nil {
		t.Fatalf("LoadTree: %v", err)
	}
	if tree != nil {
		t.Fatalf("tree = %+v, want nil", tree)
	}
}

func TestCourseRepoRefs(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	repo := NewCourseRepo(db, testutil.Logger(t))

	course := testutil.SeedSourceCourse(t, ctx, tx, "Ref Course")
	if err := tx.WithContext(ctx).Model(course).
		Update("meta", datatypes.JSON(`{"existing":"kept"}`)).Error; err != nil {
		t.Fatalf("set course meta: %v", err)
	}

	if err := repo.SetRef(ctx, tx, migration.KindCourse, course.ID, "uuid-here"); err != nil {
		t.Fatalf("SetRef: %v", err)
	}
	ref, err := repo.GetRef(ctx, tx, migration.KindCourse, course.ID)
	if err != nil {
		t.Fatalf("GetRef: %v", err)
	}
	if ref != "uuid-here" {
		t.Fatalf("ref = %q, want uuid-here", ref)
	}

	// the write must merge, not replace
	fresh, err := repo.GetByID(ctx, tx, course.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	var meta map[string]any
	if err := json.Unmarshal(fresh.Meta, &meta); err != nil {
		t.Fatalf("decode meta: %v", err)
	}
	if meta["existing"] != "kept" {
		t.Fatalf("pre-existing meta lost: %v", meta)
	}
}

func TestCourseRepoProRefs(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	repo := NewCourseRepo(db, testutil.Logger(t))

	course := testutil.SeedSourceCourse(t, ctx, tx, "Pro Course")
	quiz := testutil.SeedSourceQuiz(t, ctx, tx, course.ID, nil, "Quiz")
	if err := tx.WithContext(ctx).Model(quiz).Update("quiz_pro_id", 777).Error; err != nil {
		t.Fatalf("set quiz pro id: %v", err)
	}

	if err := repo.SetRef(ctx, tx, migration.KindQuizPro, 777, "target-quiz"); err != nil {
		t.Fatalf("SetRef: %v", err)
	}
	ref, err := repo.GetRef(ctx, tx, migration.KindQuizPro, 777)
	if err != nil {
		t.Fatalf("GetRef: %v", err)
	}
	if ref != "target-quiz" {
		t.Fatalf("ref = %q, want target-quiz", ref)
	}

	question := testutil.SeedSourceQuestion(t, ctx, tx, quiz.ID, types.AnswerTypeSingle)
	if err := tx.WithContext(ctx).Model(question).Update("question_pro_id", 888).Error; err != nil {
		t.Fatalf("set question pro id: %v", err)
	}
	found, err := repo.FindQuestionByProID(ctx, tx, 888)
	if err != nil {
		t.Fatalf("FindQuestionByProID: %v", err)
	}
	if found == nil || found.ID != question.ID {
		t.Fatalf("found = %+v, want question %d", found, question.ID)
	}
	missing, err := repo.FindQuestionByProID(ctx, tx, 999999999)
	if err != nil {
		t.Fatalf("FindQuestionByProID missing: %v", err)
	}
	if missing != nil {
		t.Fatalf("missing = %+v, want nil", missing)
	}
}

func TestCourseRepoListOrdersByTitle(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	repo := NewCourseRepo(db, testutil.Logger(t))

	testutil.SeedSourceCourse(t, ctx, tx, "Zebra")
	first := testutil.SeedSourceCourse(t, ctx, tx, "Alpha")
	second := testutil.SeedSourceCourse(t, ctx, tx, "Alpha")

	courses, err := repo.List(ctx, tx, 0, 10)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(courses) != 3 {
		t.Fatalf("listed %d courses, want 3", len(courses))
	}
	if courses[0].Title != "Alpha" || courses[1].Title != "Alpha" || courses[2].Title != "Zebra" {
		t.Fatalf("order: %q, %q, %q", courses[0].Title, courses[1].Title, courses[2].Title)
	}
	// Duplicate titles break ties on id so offset pagination stays stable.
	if courses[0].ID != first.ID || courses[1].ID != second.ID {
		t.Fatalf("tie-break order: %d, %d; want %d, %d", courses[0].ID, courses[1].ID, first.ID, second.ID)
	}

	count, err := repo.CountAll(ctx, tx)
	if err != nil {
		t.Fatalf("CountAll: %v", err)
	}
	if count != 3 {
		t.Fatalf("count = %d, want 3", count)
	}
}
