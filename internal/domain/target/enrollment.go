package target

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	EnrollmentStatusEnrolled = "enrolled"
	EnrollmentStatusFinished = "finished"

	GraduationInProgress = "in-progress"
	GraduationPassed     = "passed"
	GraduationFailed     = "failed"

	CompletionStatusStarted   = "started"
	CompletionStatusCompleted = "completed"
)

// Enrollment is one user's membership in a course. User ids are carried
// over from the legacy platform unchanged. Result holds the aggregate
// completion breakdown as JSON.
type Enrollment struct {
	ID         uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	UserID     int64          `gorm:"column:user_id;not null;uniqueIndex:idx_enrollment_user_course" json:"user_id"`
	CourseID   uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex:idx_enrollment_user_course;index" json:"course_id"`
	Course     *Course        `gorm:"constraint:OnDelete:CASCADE;foreignKey:CourseID;references:ID" json:"course,omitempty"`
	Status     string         `gorm:"column:status;not null" json:"status"`
	Graduation string         `gorm:"column:graduation;not null" json:"graduation"`
	StartTime  time.Time      `gorm:"column:start_time;not null" json:"start_time"`
	EndTime    *time.Time     `gorm:"column:end_time" json:"end_time,omitempty"`
	Result     datatypes.JSON `gorm:"column:result;type:jsonb" json:"result"`
	CreatedAt  time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt  time.Time      `gorm:"not null;default:now()" json:"updated_at"`
}

func (Enrollment) TableName() string { return "lp_enrollment" }

// ItemCompletion records one user's progress on one course item. For
// flattened topics the parent is the course, not the original lesson.
type ItemCompletion struct {
	ID           uuid.UUID   `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	UserID       int64       `gorm:"column:user_id;not null;uniqueIndex:idx_completion_user_item" json:"user_id"`
	ItemID       uuid.UUID   `gorm:"type:uuid;not null;uniqueIndex:idx_completion_user_item;index" json:"item_id"`
	Item         *CourseItem `gorm:"constraint:OnDelete:CASCADE;foreignKey:ItemID;references:ID" json:"item,omitempty"`
	EnrollmentID uuid.UUID   `gorm:"type:uuid;not null;index" json:"enrollment_id"`
	ParentID     uuid.UUID   `gorm:"type:uuid;not null" json:"parent_id"`
	Status       string      `gorm:"column:status;not null" json:"status"`
	Graduation   string      `gorm:"column:graduation;not null" json:"graduation"`
	StartTime    time.Time   `gorm:"column:start_time;not null" json:"start_time"`
	EndTime      *time.Time  `gorm:"column:end_time" json:"end_time,omitempty"`
	CreatedAt    time.Time   `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt    time.Time   `gorm:"not null;default:now()" json:"updated_at"`
}

func (ItemCompletion) TableName() string { return "lp_item_completion" }

// QuizAttempt is one migrated quiz occurrence. Result embeds the per
// question results keyed by target question id plus the derived counters.
type QuizAttempt struct {
	ID           uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	UserID       int64          `gorm:"column:user_id;not null;index" json:"user_id"`
	QuizItemID   uuid.UUID      `gorm:"type:uuid;not null;index" json:"quiz_item_id"`
	QuizItem     *CourseItem    `gorm:"constraint:OnDelete:CASCADE;foreignKey:QuizItemID;references:ID" json:"quiz_item,omitempty"`
	CourseID     *uuid.UUID     `gorm:"type:uuid;index" json:"course_id,omitempty"`
	EnrollmentID *uuid.UUID     `gorm:"type:uuid;index" json:"enrollment_id,omitempty"`
	Graduation   string         `gorm:"column:graduation;not null" json:"graduation"`
	StartTime    time.Time      `gorm:"column:start_time;not null" json:"start_time"`
	EndTime      time.Time      `gorm:"column:end_time;not null" json:"end_time"`
	Result       datatypes.JSON `gorm:"column:result;type:jsonb" json:"result"`
	CreatedAt    time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt    time.Time      `gorm:"not null;default:now()" json:"updated_at"`
}

func (QuizAttempt) TableName() string { return "lp_quiz_attempt" }
