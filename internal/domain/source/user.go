package source

import (
	"time"

	"gorm.io/datatypes"
)

type User struct {
	ID           int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Login        string    `gorm:"column:login;not null;uniqueIndex" json:"login"`
	Email        string    `gorm:"column:email;not null" json:"email"`
	RegisteredAt time.Time `gorm:"column:registered_at;not null;default:now()" json:"registered_at"`
}

func (User) TableName() string { return "ld_user" }

const ActivityTypeCourse = "course"

// UserActivity is one row of the normalized activity log. Timestamps are
// epoch seconds as the legacy platform stored them; zero means unset.
type UserActivity struct {
	ID          int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID      int64  `gorm:"column:user_id;not null;index" json:"user_id"`
	CourseID    int64  `gorm:"column:course_id;not null;index" json:"course_id"`
	Type        string `gorm:"column:activity_type;not null" json:"activity_type"`
	Status      int    `gorm:"column:activity_status;not null;default:0" json:"activity_status"`
	StartedAt   int64  `gorm:"column:activity_started;not null;default:0" json:"activity_started"`
	CompletedAt int64  `gorm:"column:activity_completed;not null;default:0" json:"activity_completed"`
}

func (UserActivity) TableName() string { return "ld_user_activity" }

// CourseProgressBlob holds one user's structured course progress, a JSON map
// keyed by course id. This is source representation (a); the activity log
// above is representation (b).
type CourseProgressBlob struct {
	UserID    int64          `gorm:"primaryKey" json:"user_id"`
	Data      datatypes.JSON `gorm:"column:data;type:jsonb" json:"data"`
	UpdatedAt time.Time      `gorm:"not null;default:now()" json:"updated_at"`
}

func (CourseProgressBlob) TableName() string { return "ld_course_progress" }

// QuizAttemptRow mirrors one entry of the legacy per-user quiz attempt list.
type QuizAttemptRow struct {
	ID             int64   `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID         int64   `gorm:"column:user_id;not null;index" json:"user_id"`
	QuizID         int64   `gorm:"column:quiz_id;not null;index" json:"quiz_id"`
	CourseID       int64   `gorm:"column:course_id;not null;default:0" json:"course_id"`
	Pass           bool    `gorm:"column:pass;not null;default:false" json:"pass"`
	Percentage     float64 `gorm:"column:percentage;not null;default:0" json:"percentage"`
	Points         float64 `gorm:"column:points;not null;default:0" json:"points"`
	TotalPoints    float64 `gorm:"column:total_points;not null;default:0" json:"total_points"`
	StartedAt      int64   `gorm:"column:started_at;not null;default:0" json:"started_at"`
	CompletedAt    int64   `gorm:"column:completed_at;not null;default:0" json:"completed_at"`
	TimeSpent      int64   `gorm:"column:time_spent;not null;default:0" json:"time_spent"`
	StatisticRefID int64   `gorm:"column:statistic_ref_id;not null;default:0;index" json:"statistic_ref_id"`
}

func (QuizAttemptRow) TableName() string { return "ld_quiz_attempt" }

// QuestionStat is one per-question statistic row referenced from an attempt
// through StatisticRefID. AnswerData is the raw submitted answer payload,
// JSON for newer rows and legacy-serialized for older ones.
type QuestionStat struct {
	ID             int64   `gorm:"primaryKey;autoIncrement" json:"id"`
	StatisticRefID int64   `gorm:"column:statistic_ref_id;not null;index" json:"statistic_ref_id"`
	QuestionProID  int64   `gorm:"column:question_pro_id;not null;default:0" json:"question_pro_id"`
	QuestionPostID int64   `gorm:"column:question_post_id;not null;default:0" json:"question_post_id"`
	CorrectCount   int     `gorm:"column:correct_count;not null;default:0" json:"correct_count"`
	IncorrectCount int     `gorm:"column:incorrect_count;not null;default:0" json:"incorrect_count"`
	Points         float64 `gorm:"column:points;not null;default:0" json:"points"`
	AnswerData     string  `gorm:"column:answer_data;type:text" json:"answer_data"`
}

func (QuestionStat) TableName() string { return "ld_question_statistic" }
