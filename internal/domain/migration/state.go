package migration

import (
	"fmt"
	"time"

	"gorm.io/datatypes"
)

// Phase is one stage of a migration run.
type Phase string

const (
	PhaseContent         Phase = "content"
	PhaseStudentProgress Phase = "student_migrate"
	PhaseDone            Phase = "done"
)

var ErrInvalidPhase = fmt.Errorf("invalid migration phase")

func ParsePhase(s string) (Phase, error) {
	switch Phase(s) {
	case PhaseContent, PhaseStudentProgress:
		return Phase(s), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidPhase, s)
	}
}

// Option is one entry of the opaque key-value store that run state and the
// mapping table live in.
type Option struct {
	Key       string         `gorm:"primaryKey" json:"key"`
	Value     datatypes.JSON `gorm:"column:value;type:jsonb" json:"value"`
	UpdatedAt time.Time      `gorm:"not null;default:now()" json:"updated_at"`
}

func (Option) TableName() string { return "migration_option" }

// RunState is the cumulative state of one migration run. It is loaded at
// the start of a step, mutated, persisted, and returned to the caller; no
// in-process state survives between steps.
type RunState struct {
	ContentMigrated int64      `json:"content_migrated"`
	StudentMigrated int64      `json:"student_migrated"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
	Operator        string     `json:"operator,omitempty"`
}
