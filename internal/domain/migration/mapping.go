package migration

import (
	"time"

	"github.com/google/uuid"
)

// Kind partitions the id-mapping key space by entity kind.
type Kind string

const (
	KindCourse      Kind = "course"
	KindLesson      Kind = "lesson"
	KindTopic       Kind = "topic"
	KindQuiz        Kind = "quiz"
	KindQuizPro     Kind = "quiz_pro"
	KindQuestion    Kind = "question"
	KindQuestionPro Kind = "question_pro"
)

// SourceRefKey is the metadata key written onto a target record pointing
// back at the legacy record it was migrated from.
func SourceRefKey(kind Kind) string { return "_ld_" + string(kind) + "_id" }

// TargetRefKey is the metadata key written onto a source record pointing
// forward at the target record created for it.
func TargetRefKey(kind Kind) string { return "_lp_" + string(kind) + "_id" }

// IDMapping is one row of the fast lookup table. The table is a cache over
// ground truth stored as metadata on the records themselves; losing it must
// never lose the mapping.
type IDMapping struct {
	ID        uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	Kind      string    `gorm:"column:kind;not null;uniqueIndex:idx_mapping_kind_source" json:"kind"`
	SourceID  int64     `gorm:"column:source_id;not null;uniqueIndex:idx_mapping_kind_source" json:"source_id"`
	TargetID  uuid.UUID `gorm:"type:uuid;not null" json:"target_id"`
	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
}

func (IDMapping) TableName() string { return "migration_id_mapping" }
