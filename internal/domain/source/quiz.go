package source

import (
	"time"

	"gorm.io/datatypes"
)

// Quiz is a legacy quiz post. LessonID is nil for quizzes attached directly
// to the course. QuizProID references the engine-side quiz record that
// question statistics hang off.
type Quiz struct {
	ID        int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	CourseID  int64          `gorm:"column:course_id;not null;index" json:"course_id"`
	LessonID  *int64         `gorm:"column:lesson_id;index" json:"lesson_id,omitempty"`
	QuizProID int64          `gorm:"column:quiz_pro_id;index" json:"quiz_pro_id"`
	Title     string         `gorm:"column:title;not null" json:"title"`
	Slug      string         `gorm:"column:slug" json:"slug"`
	Status    string         `gorm:"column:status;not null;default:'publish'" json:"status"`
	Content   string         `gorm:"column:content;type:text" json:"content"`
	MenuOrder int            `gorm:"column:menu_order;not null;default:0" json:"menu_order"`
	TimeLimit int            `gorm:"column:time_limit;not null;default:0" json:"time_limit"`
	Settings  datatypes.JSON `gorm:"column:settings;type:jsonb" json:"settings"`
	Meta      datatypes.JSON `gorm:"column:meta;type:jsonb" json:"meta"`
	CreatedAt time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;default:now()" json:"updated_at"`
}

func (Quiz) TableName() string { return "ld_quiz" }

// Legacy answer-format identifiers as stored on question records.
const (
	AnswerTypeSingle     = "single"
	AnswerTypeMultiple   = "multiple"
	AnswerTypeFreeAnswer = "free_answer"
	AnswerTypeSortAnswer = "sort_answer"
	AnswerTypeCloze      = "cloze_answer"
	AnswerTypeMatrixSort = "matrix_sort_answer"
)

type Question struct {
	ID            int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	QuizID        int64          `gorm:"column:quiz_id;not null;index" json:"quiz_id"`
	QuestionProID int64          `gorm:"column:question_pro_id;index" json:"question_pro_id"`
	AnswerType    string         `gorm:"column:answer_type;not null" json:"answer_type"`
	Title         string         `gorm:"column:title;not null" json:"title"`
	Status        string         `gorm:"column:status;not null;default:'publish'" json:"status"`
	Content       string         `gorm:"column:content;type:text" json:"content"`
	Points        float64        `gorm:"column:points;not null;default:1" json:"points"`
	TipMsg        string         `gorm:"column:tip_msg;type:text" json:"tip_msg"`
	CorrectMsg    string         `gorm:"column:correct_msg;type:text" json:"correct_msg"`
	MenuOrder     int            `gorm:"column:menu_order;not null;default:0" json:"menu_order"`
	Meta          datatypes.JSON `gorm:"column:meta;type:jsonb" json:"meta"`
	CreatedAt     time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt     time.Time      `gorm:"not null;default:now()" json:"updated_at"`
}

func (Question) TableName() string { return "ld_question" }

// AnswerRow is one option of a legacy question. SortString carries the
// right-hand label for matrix (matching) questions.
type AnswerRow struct {
	ID         int64   `gorm:"primaryKey;autoIncrement" json:"id"`
	QuestionID int64   `gorm:"column:question_id;not null;index" json:"question_id"`
	Position   int     `gorm:"column:position;not null;default:0" json:"position"`
	Answer     string  `gorm:"column:answer;type:text" json:"answer"`
	SortString string  `gorm:"column:sort_string;type:text" json:"sort_string"`
	IsCorrect  bool    `gorm:"column:is_correct;not null;default:false" json:"is_correct"`
	Points     float64 `gorm:"column:points;not null;default:0" json:"points"`
}

func (AnswerRow) TableName() string { return "ld_question_answer" }
