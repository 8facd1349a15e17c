package source

import (
	"time"

	"gorm.io/datatypes"
)

type Lesson struct {
	ID        int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	CourseID  int64          `gorm:"column:course_id;not null;index" json:"course_id"`
	Title     string         `gorm:"column:title;not null" json:"title"`
	Slug      string         `gorm:"column:slug" json:"slug"`
	Status    string         `gorm:"column:status;not null;default:'publish'" json:"status"`
	Content   string         `gorm:"column:content;type:text" json:"content"`
	MenuOrder int            `gorm:"column:menu_order;not null;default:0" json:"menu_order"`
	Settings  datatypes.JSON `gorm:"column:settings;type:jsonb" json:"settings"`
	Meta      datatypes.JSON `gorm:"column:meta;type:jsonb" json:"meta"`
	CreatedAt time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;default:now()" json:"updated_at"`
}

func (Lesson) TableName() string { return "ld_lesson" }

// Topic is a sub-lesson unit. The target platform has no topic concept, so
// topics flatten into sibling lessons during migration.
type Topic struct {
	ID        int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	LessonID  int64          `gorm:"column:lesson_id;not null;index" json:"lesson_id"`
	CourseID  int64          `gorm:"column:course_id;not null;index" json:"course_id"`
	Title     string         `gorm:"column:title;not null" json:"title"`
	Slug      string         `gorm:"column:slug" json:"slug"`
	Status    string         `gorm:"column:status;not null;default:'publish'" json:"status"`
	Content   string         `gorm:"column:content;type:text" json:"content"`
	MenuOrder int            `gorm:"column:menu_order;not null;default:0" json:"menu_order"`
	Settings  datatypes.JSON `gorm:"column:settings;type:jsonb" json:"settings"`
	Meta      datatypes.JSON `gorm:"column:meta;type:jsonb" json:"meta"`
	CreatedAt time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;default:now()" json:"updated_at"`
}

func (Topic) TableName() string { return "ld_topic" }
