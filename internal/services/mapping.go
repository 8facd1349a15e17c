package services

import (
	"context"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/coursebridge/migration-backend/internal/domain/migration"
	"github.com/coursebridge/migration-backend/internal/logger"
	migrationrepos "github.com/coursebridge/migration-backend/internal/repos/migration"
	sourcerepos "github.com/coursebridge/migration-backend/internal/repos/source"
	targetrepos "github.com/coursebridge/migration-backend/internal/repos/target"
)

// Registry tracks which target record each legacy record became. The fast
// table is a cache; ground truth is the metadata written onto both sides,
// so a resolve that misses the table falls through to the records
// themselves and re-warms the table on a hit.
type Registry interface {
	Record(ctx context.Context, tx *gorm.DB, kind migration.Kind, sourceID int64, targetID uuid.UUID) error
	Resolve(ctx context.Context, tx *gorm.DB, kind migration.Kind, sourceID int64) (uuid.UUID, bool, error)
	ClearRefs(ctx context.Context, tx *gorm.DB, kind migration.Kind, sourceID int64) error
}

type resolveFunc func(ctx context.Context, tx *gorm.DB, kind migration.Kind, sourceID int64) (uuid.UUID, bool, error)

type resolveStrategy struct {
	name string
	fn   resolveFunc
}

type registry struct {
	db         *gorm.DB
	log        *logger.Logger
	mappings   migrationrepos.IDMappingRepo
	sourceRepo sourcerepos.CourseRepo
	courses    targetrepos.CourseRepo
	items      targetrepos.CourseItemRepo
	questions  targetrepos.QuestionRepo
	strategies []resolveStrategy
}

func NewRegistry(
	db *gorm.DB,
	baseLog *logger.Logger,
	mappings migrationrepos.IDMappingRepo,
	sourceRepo sourcerepos.CourseRepo,
	courses targetrepos.CourseRepo,
	items targetrepos.CourseItemRepo,
	questions targetrepos.QuestionRepo,
) Registry {
	serviceLog := baseLog.With("service", "Registry")
	r := &registry{
		db:         db,
		log:        serviceLog,
		mappings:   mappings,
		sourceRepo: sourceRepo,
		courses:    courses,
		items:      items,
		questions:  questions,
	}
	r.strategies = []resolveStrategy{
		{name: "table", fn: r.resolveTable},
		{name: "source_meta", fn: r.resolveSourceMeta},
		{name: "target_meta", fn: r.resolveTargetMeta},
		{name: "question_pro", fn: r.resolveQuestionPro},
	}
	return r
}

// Record persists one mapping three ways: the fast table row, the forward
// ref on the source record's meta and the back ref on the target record's
// metadata.
func (r *registry) Record(ctx context.Context, tx *gorm.DB, kind migration.Kind, sourceID int64, targetID uuid.UUID) error {
	if err := r.mappings.Upsert(ctx, tx, kind, sourceID, targetID); err != nil {
		return fmt.Errorf("record mapping %s/%d: %w", kind, sourceID, err)
	}
	if err := r.sourceRepo.SetRef(ctx, tx, kind, sourceID, targetID.String()); err != nil {
		return fmt.Errorf("record source ref %s/%d: %w", kind, sourceID, err)
	}
	patch := map[string]any{migration.SourceRefKey(kind): strconv.FormatInt(sourceID, 10)}
	if err := r.mergeTargetMetadata(ctx, tx, kind, targetID, patch); err != nil {
		return fmt.Errorf("record target ref %s/%d: %w", kind, sourceID, err)
	}
	return nil
}

// Resolve walks the strategy chain in order. A hit from a fallback tier is
// written back into the fast table before returning.
func (r *registry) Resolve(ctx context.Context, tx *gorm.DB, kind migration.Kind, sourceID int64) (uuid.UUID, bool, error) {
	for i, strategy := range r.strategies {
		targetID, found, err := strategy.fn(ctx, tx, kind, sourceID)
		if err != nil {
			return uuid.Nil, false, err
		}
		if !found {
			continue
		}
		if i > 0 {
			if err := r.mappings.Upsert(ctx, tx, kind, sourceID, targetID); err != nil {
				return uuid.Nil, false, err
			}
			r.log.Debug("Mapping recovered outside fast table",
				"kind", kind, "source_id", sourceID, "strategy", strategy.name)
		}
		return targetID, true, nil
	}
	return uuid.Nil, false, nil
}

// ClearRefs drops the forward ref from the source record so a forced
// re-migration resolves fresh.
func (r *registry) ClearRefs(ctx context.Context, tx *gorm.DB, kind migration.Kind, sourceID int64) error {
	return r.sourceRepo.SetRef(ctx, tx, kind, sourceID, "")
}

func (r *registry) resolveTable(ctx context.Context, tx *gorm.DB, kind migration.Kind, sourceID int64) (uuid.UUID, bool, error) {
	return r.mappings.Lookup(ctx, tx, kind, sourceID)
}

func (r *registry) resolveSourceMeta(ctx context.Context, tx *gorm.DB, kind migration.Kind, sourceID int64) (uuid.UUID, bool, error) {
	ref, err := r.sourceRepo.GetRef(ctx, tx, kind, sourceID)
	if err != nil || ref == "" {
		return uuid.Nil, false, err
	}
	targetID, err := uuid.Parse(ref)
	if err != nil {
		return uuid.Nil, false, nil
	}
	return targetID, true, nil
}

func (r *registry) resolveTargetMeta(ctx context.Context, tx *gorm.DB, kind migration.Kind, sourceID int64) (uuid.UUID, bool, error) {
	key := migration.SourceRefKey(kind)
	value := strconv.FormatInt(sourceID, 10)
	switch kind {
	case migration.KindCourse:
		course, err := r.courses.FindByMetaRef(ctx, tx, key, value)
		if err != nil || course == nil {
			return uuid.Nil, false, err
		}
		return course.ID, true, nil
	case migration.KindLesson, migration.KindTopic, migration.KindQuiz, migration.KindQuizPro:
		item, err := r.items.FindByMetaRef(ctx, tx, key, value)
		if err != nil || item == nil {
			return uuid.Nil, false, err
		}
		return item.ID, true, nil
	case migration.KindQuestion, migration.KindQuestionPro:
		question, err := r.questions.FindByMetaRef(ctx, tx, key, value)
		if err != nil || question == nil {
			return uuid.Nil, false, err
		}
		return question.ID, true, nil
	default:
		return uuid.Nil, false, nil
	}
}

// resolveQuestionPro covers engine-side question ids that were never
// recorded directly: find the legacy question post owning the pro id and
// resolve that post instead.
func (r *registry) resolveQuestionPro(ctx context.Context, tx *gorm.DB, kind migration.Kind, sourceID int64) (uuid.UUID, bool, error) {
	if kind != migration.KindQuestionPro {
		return uuid.Nil, false, nil
	}
	post, err := r.sourceRepo.FindQuestionByProID(ctx, tx, sourceID)
	if err != nil || post == nil {
		return uuid.Nil, false, err
	}
	return r.Resolve(ctx, tx, migration.KindQuestion, post.ID)
}

func (r *registry) mergeTargetMetadata(ctx context.Context, tx *gorm.DB, kind migration.Kind, targetID uuid.UUID, patch map[string]any) error {
	switch kind {
	case migration.KindCourse:
		return r.courses.MergeMetadata(ctx, tx, targetID, patch)
	case migration.KindLesson, migration.KindTopic, migration.KindQuiz, migration.KindQuizPro:
		return r.items.MergeMetadata(ctx, tx, targetID, patch)
	case migration.KindQuestion, migration.KindQuestionPro:
		return r.questions.MergeMetadata(ctx, tx, targetID, patch)
	default:
		return fmt.Errorf("unknown mapping kind %q", kind)
	}
}
