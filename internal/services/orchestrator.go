package services

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/coursebridge/migration-backend/internal/domain/migration"
	"github.com/coursebridge/migration-backend/internal/logger"
	migrationrepos "github.com/coursebridge/migration-backend/internal/repos/migration"
	sourcerepos "github.com/coursebridge/migration-backend/internal/repos/source"
)

const (
	optionKeyRunState = "run_state"

	// DefaultPageSize bounds one step when the caller sends none.
	DefaultPageSize = 10
)

// successHTML is the fragment the admin surface renders when the final
// phase completes.
const successHTML = `<div class="migration-complete"><p>Migration completed. All courses and student records have been transferred.</p></div>`

// StepRequest drives one bounded unit of migration work. Force replaces
// already-migrated courses instead of skipping them.
type StepRequest struct {
	Phase    string
	Page     int
	PageSize int
	Operator string
	Force    bool
}

// StepResult tells the caller what to request next. NextPhase is the done
// marker once everything has run; SuccessHTML is only set then.
type StepResult struct {
	Phase         migration.Phase
	MigratedTotal int64
	NextPage      int
	NextPhase     migration.Phase
	Done          bool
	SuccessHTML   string
	Outcomes      migration.OutcomeSet
}

// Report summarizes a run for the progress surface.
type Report struct {
	CoursesTotal    int64      `json:"courses_total"`
	UsersTotal      int64      `json:"users_total"`
	ContentMigrated int64      `json:"content_migrated"`
	StudentMigrated int64      `json:"student_migrated"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
	Operator        string     `json:"operator,omitempty"`
}

// Orchestrator sequences the content and student phases across repeated
// bounded steps. All run state lives in the option store; no in-process
// state survives between steps.
type Orchestrator interface {
	Step(ctx context.Context, req StepRequest) (*StepResult, error)
	Clear(ctx context.Context) error
	Report(ctx context.Context) (*Report, error)
}

type orchestrator struct {
	db       *gorm.DB
	log      *logger.Logger
	courses  sourcerepos.CourseRepo
	users    sourcerepos.UserRepo
	options  migrationrepos.OptionRepo
	mappings migrationrepos.IDMappingRepo
	content  ContentService
	students StudentService
	now      func() time.Time
}

func NewOrchestrator(
	db *gorm.DB,
	baseLog *logger.Logger,
	courses sourcerepos.CourseRepo,
	users sourcerepos.UserRepo,
	options migrationrepos.OptionRepo,
	mappings migrationrepos.IDMappingRepo,
	content ContentService,
	students StudentService,
) Orchestrator {
	serviceLog := baseLog.With("service", "Orchestrator")
	return &orchestrator{
		db:       db,
		log:      serviceLog,
		courses:  courses,
		users:    users,
		options:  options,
		mappings: mappings,
		content:  content,
		students: students,
		now:      time.Now,
	}
}

func (o *orchestrator) Step(ctx context.Context, req StepRequest) (*StepResult, error) {
	phase, err := migration.ParsePhase(req.Phase)
	if err != nil {
		return nil, err
	}
	if req.Page < 1 {
		req.Page = 1
	}
	if req.PageSize < 1 {
		req.PageSize = DefaultPageSize
	}

	var state migration.RunState
	if _, err := o.options.Get(ctx, nil, optionKeyRunState, &state); err != nil {
		return nil, fmt.Errorf("load run state: %w", err)
	}

	switch phase {
	case migration.PhaseContent:
		return o.stepContent(ctx, req, &state)
	case migration.PhaseStudentProgress:
		return o.stepStudents(ctx, req, &state)
	default:
		return nil, migration.ErrInvalidPhase
	}
}

// stepContent migrates one page of courses. Page one restarts the phase
// counter; the cumulative counter against the course total decides when
// the student phase begins.
func (o *orchestrator) stepContent(ctx context.Context, req StepRequest, state *migration.RunState) (*StepResult, error) {
	// Page one starts a fresh run, so both phase counters reset here.
	if req.Page == 1 {
		state.ContentMigrated = 0
		state.StudentMigrated = 0
	}

	offset := (req.Page - 1) * req.PageSize
	courses, err := o.courses.List(ctx, nil, offset, req.PageSize)
	if err != nil {
		return nil, fmt.Errorf("list courses: %w", err)
	}

	result := &StepResult{Phase: migration.PhaseContent}
	for _, course := range courses {
		outcomes, err := o.content.MigrateCourse(ctx, nil, course, req.Force)
		result.Outcomes.Merge(outcomes)
		if err != nil {
			return nil, fmt.Errorf("migrate course %d: %w", course.ID, err)
		}
	}
	state.ContentMigrated += int64(len(courses))

	total, err := o.courses.CountAll(ctx, nil)
	if err != nil {
		return nil, err
	}

	if err := o.options.Set(ctx, nil, optionKeyRunState, state); err != nil {
		return nil, fmt.Errorf("save run state: %w", err)
	}

	result.MigratedTotal = state.ContentMigrated
	if state.ContentMigrated >= total {
		result.NextPhase = migration.PhaseStudentProgress
		result.NextPage = 1
	} else {
		result.NextPhase = migration.PhaseContent
		result.NextPage = req.Page + 1
	}
	o.log.Info("Content step finished",
		"page", req.Page, "migrated", state.ContentMigrated, "total", total)
	return result, nil
}

// stepStudents migrates one page of users. A full fetched page means more
// pages may remain; a short page ends the run and stamps completion.
func (o *orchestrator) stepStudents(ctx context.Context, req StepRequest, state *migration.RunState) (*StepResult, error) {
	if req.Page == 1 {
		state.StudentMigrated = 0
	}

	offset := (req.Page - 1) * req.PageSize
	users, err := o.users.List(ctx, nil, offset, req.PageSize)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}

	result := &StepResult{Phase: migration.PhaseStudentProgress}
	for _, user := range users {
		outcomes, processed, err := o.students.MigrateUser(ctx, nil, user)
		result.Outcomes.Merge(outcomes)
		if err != nil {
			return nil, fmt.Errorf("migrate user %d: %w", user.ID, err)
		}
		if processed {
			state.StudentMigrated++
		}
	}

	result.MigratedTotal = state.StudentMigrated
	if len(users) == req.PageSize {
		result.NextPhase = migration.PhaseStudentProgress
		result.NextPage = req.Page + 1
	} else {
		completedAt := o.now()
		state.CompletedAt = &completedAt
		state.Operator = req.Operator
		result.NextPhase = migration.PhaseDone
		result.Done = true
		result.SuccessHTML = successHTML
	}

	if err := o.options.Set(ctx, nil, optionKeyRunState, state); err != nil {
		return nil, fmt.Errorf("save run state: %w", err)
	}
	o.log.Info("Student step finished",
		"page", req.Page, "migrated", state.StudentMigrated, "done", result.Done)
	return result, nil
}

// Clear forgets run bookkeeping and the fast mapping table. Migrated
// target records stay; the metadata refs on the records themselves can
// rebuild the table.
func (o *orchestrator) Clear(ctx context.Context) error {
	if err := o.options.Delete(ctx, nil, optionKeyRunState); err != nil {
		return fmt.Errorf("clear run state: %w", err)
	}
	if err := o.mappings.DeleteAll(ctx, nil); err != nil {
		return fmt.Errorf("clear mapping table: %w", err)
	}
	o.log.Info("Migration progress cleared")
	return nil
}

func (o *orchestrator) Report(ctx context.Context) (*Report, error) {
	coursesTotal, err := o.courses.CountAll(ctx, nil)
	if err != nil {
		return nil, err
	}
	usersTotal, err := o.users.CountAll(ctx, nil)
	if err != nil {
		return nil, err
	}

	var state migration.RunState
	if _, err := o.options.Get(ctx, nil, optionKeyRunState, &state); err != nil {
		return nil, err
	}

	return &Report{
		CoursesTotal:    coursesTotal,
		UsersTotal:      usersTotal,
		ContentMigrated: state.ContentMigrated,
		StudentMigrated: state.StudentMigrated,
		CompletedAt:     state.CompletedAt,
		Operator:        state.Operator,
	}, nil
}
