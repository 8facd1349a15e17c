package testutil

import (
	"context"
	"testing"

	"gorm.io/gorm"

	"github.com/coursebridge/migration-backend/internal/domain/source"
	"github.com/coursebridge/migration-backend/internal/domain/target"
)

func SeedSourceCourse(tb testing.TB, ctx context.Context, tx *gorm.DB, title string) *source.Course {
	tb.Helper()
	c := &source.Course{
		Title:  title,
		Slug:   title,
		Status: "publish",
	}
	if err := tx.WithContext(ctx).Create(c).Error; err != nil {
		tb.Fatalf("seed source course: %v", err)
	}
	return c
}

func SeedSourceLesson(tb testing.TB, ctx context.Context, tx *gorm.DB, courseID int64, title string, menuOrder int) *source.Lesson {
	tb.Helper()
	l := &source.Lesson{
		CourseID:  courseID,
		Title:     title,
		Status:    "publish",
		MenuOrder: menuOrder,
	}
	if err := tx.WithContext(ctx).Create(l).Error; err != nil {
		tb.Fatalf("seed source lesson: %v", err)
	}
	return l
}

func SeedSourceTopic(tb testing.TB, ctx context.Context, tx *gorm.DB, courseID, lessonID int64, title string, menuOrder int) *source.Topic {
	tb.Helper()
	topic := &source.Topic{
		CourseID:  courseID,
		LessonID:  lessonID,
		Title:     title,
		Status:    "publish",
		MenuOrder: menuOrder,
	}
	if err := tx.WithContext(ctx).Create(topic).Error; err != nil {
		tb.Fatalf("seed source topic: %v", err)
	}
	return topic
}

func SeedSourceQuiz(tb testing.TB, ctx context.Context, tx *gorm.DB, courseID int64, lessonID *int64, title string) *source.Quiz {
	tb.Helper()
	q := &source.Quiz{
		CourseID: courseID,
		LessonID: lessonID,
		Title:    title,
		Status:   "publish",
	}
	if err := tx.WithContext(ctx).Create(q).Error; err != nil {
		tb.Fatalf("seed source quiz: %v", err)
	}
	return q
}

func SeedSourceQuestion(tb testing.TB, ctx context.Context, tx *gorm.DB, quizID int64, answerType string) *source.Question {
	tb.Helper()
	q := &source.Question{
		QuizID:     quizID,
		AnswerType: answerType,
		Title:      "question",
		Status:     "publish",
		Points:     1,
	}
	if err := tx.WithContext(ctx).Create(q).Error; err != nil {
		tb.Fatalf("seed source question: %v", err)
	}
	return q
}

func SeedSourceAnswer(tb testing.TB, ctx context.Context, tx *gorm.DB, questionID int64, answer string, position int, correct bool) *source.AnswerRow {
	tb.Helper()
	row := &source.AnswerRow{
		QuestionID: questionID,
		Answer:     answer,
		Position:   position,
		IsCorrect:  correct,
	}
	if err := tx.WithContext(ctx).Create(row).Error; err != nil {
		tb.Fatalf("seed source answer: %v", err)
	}
	return row
}

func SeedTargetCourse(tb testing.TB, ctx context.Context, tx *gorm.DB, title string) *target.Course {
	tb.Helper()
	c := &target.Course{
		Title:  title,
		Slug:   title,
		Status: "publish",
	}
	if err := tx.WithContext(ctx).Create(c).Error; err != nil {
		tb.Fatalf("seed target course: %v", err)
	}
	return c
}
