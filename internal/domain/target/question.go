package target

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Target-platform question type identifiers.
const (
	QuestionTypeSingleChoice    = "single_choice"
	QuestionTypeMultiChoice     = "multi_choice"
	QuestionTypeSortingChoice   = "sorting_choice"
	QuestionTypeFillInBlanks    = "fill_in_blanks"
	QuestionTypeMatchingSorting = "matching_sorting"
)

type Question struct {
	ID          uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	QuizItemID  uuid.UUID      `gorm:"type:uuid;not null;index" json:"quiz_item_id"`
	QuizItem    *CourseItem    `gorm:"constraint:OnDelete:CASCADE;foreignKey:QuizItemID;references:ID" json:"quiz_item,omitempty"`
	Type        string         `gorm:"column:type;not null" json:"type"`
	Title       string         `gorm:"column:title;not null" json:"title"`
	Content     string         `gorm:"column:content;type:text" json:"content"`
	Mark        float64        `gorm:"column:mark;not null;default:1" json:"mark"`
	Hint        string         `gorm:"column:hint;type:text" json:"hint"`
	Explanation string         `gorm:"column:explanation;type:text" json:"explanation"`
	Position    int            `gorm:"column:position;not null" json:"position"`
	Metadata    datatypes.JSON `gorm:"column:metadata;type:jsonb" json:"metadata"`
	CreatedAt   time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"not null;default:now()" json:"updated_at"`
}

func (Question) TableName() string { return "lp_question" }

// AnswerOption is one answer of a question. Value is the opaque token
// student answers reference; MatchTarget is the right-hand label for
// matching questions. Metadata carries the per-question shuffled target
// list for matching questions so attempt rendering stays stable.
type AnswerOption struct {
	ID          uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	QuestionID  uuid.UUID      `gorm:"type:uuid;not null;index" json:"question_id"`
	Question    *Question      `gorm:"constraint:OnDelete:CASCADE;foreignKey:QuestionID;references:ID" json:"question,omitempty"`
	Title       string         `gorm:"column:title;type:text;not null" json:"title"`
	Value       string         `gorm:"column:value;not null" json:"value"`
	IsCorrect   bool           `gorm:"column:is_correct;not null;default:false" json:"is_correct"`
	Position    int            `gorm:"column:position;not null" json:"position"`
	MatchTarget string         `gorm:"column:match_target;type:text" json:"match_target"`
	Metadata    datatypes.JSON `gorm:"column:metadata;type:jsonb" json:"metadata"`
	CreatedAt   time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"not null;default:now()" json:"updated_at"`
}

func (AnswerOption) TableName() string { return "lp_question_answer" }
