package target

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type Course struct {
	ID               uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	Title            string         `gorm:"column:title;not null" json:"title"`
	Slug             string         `gorm:"column:slug;not null;index" json:"slug"`
	Status           string         `gorm:"column:status;not null;default:'publish'" json:"status"`
	Content          string         `gorm:"column:content;type:text" json:"content"`
	Excerpt          string         `gorm:"column:excerpt;type:text" json:"excerpt"`
	AuthorID         int64          `gorm:"column:author_id" json:"author_id"`
	FeatureImage     string         `gorm:"column:feature_image" json:"feature_image"`
	RegularPrice     string         `gorm:"column:regular_price" json:"regular_price"`
	Duration         string         `gorm:"column:duration;not null;default:'10 week'" json:"duration"`
	Level            string         `gorm:"column:level;not null;default:'all'" json:"level"`
	PassingCondition float64        `gorm:"column:passing_condition;not null;default:80" json:"passing_condition"`
	EvaluationType   string         `gorm:"column:evaluation_type;not null;default:'evaluate_lesson'" json:"evaluation_type"`
	Metadata         datatypes.JSON `gorm:"column:metadata;type:jsonb" json:"metadata"`
	CreatedAt        time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt        time.Time      `gorm:"not null;default:now()" json:"updated_at"`
}

func (Course) TableName() string { return "lp_course" }

type Section struct {
	ID          uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	CourseID    uuid.UUID `gorm:"type:uuid;not null;index" json:"course_id"`
	Course      *Course   `gorm:"constraint:OnDelete:CASCADE;foreignKey:CourseID;references:ID" json:"course,omitempty"`
	Name        string    `gorm:"column:name;not null" json:"name"`
	Description string    `gorm:"column:description;type:text" json:"description"`
	Position    int       `gorm:"column:position;not null" json:"position"`
	CreatedAt   time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt   time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (Section) TableName() string { return "lp_section" }

const (
	ItemTypeLesson = "lesson"
	ItemTypeQuiz   = "quiz"
)

// CourseItem is one entry of a section, either a lesson or a quiz. Topics
// from the legacy side become plain lesson items here.
type CourseItem struct {
	ID           uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	SectionID    uuid.UUID      `gorm:"type:uuid;not null;index" json:"section_id"`
	Section      *Section       `gorm:"constraint:OnDelete:CASCADE;foreignKey:SectionID;references:ID" json:"section,omitempty"`
	CourseID     uuid.UUID      `gorm:"type:uuid;not null;index" json:"course_id"`
	Type         string         `gorm:"column:type;not null" json:"type"`
	Title        string         `gorm:"column:title;not null" json:"title"`
	Content      string         `gorm:"column:content;type:text" json:"content"`
	Position     int            `gorm:"column:position;not null" json:"position"`
	Duration     string         `gorm:"column:duration" json:"duration"`
	PassingGrade float64        `gorm:"column:passing_grade;not null;default:0" json:"passing_grade"`
	Metadata     datatypes.JSON `gorm:"column:metadata;type:jsonb" json:"metadata"`
	CreatedAt    time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt    time.Time      `gorm:"not null;default:now()" json:"updated_at"`
}

func (CourseItem) TableName() string { return "lp_course_item" }
