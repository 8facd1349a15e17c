package services

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/coursebridge/migration-backend/internal/domain/migration"
	"github.com/coursebridge/migration-backend/internal/domain/source"
)

type stubContentService struct {
	migrated []int64
	forced   []bool
}

func (s *stubContentService) MigrateCourse(_ context.Context, _ *gorm.DB, course *source.Course, force bool) (migration.OutcomeSet, error) {
	s.migrated = append(s.migrated, course.ID)
	s.forced = append(s.forced, force)
	var outcomes migration.OutcomeSet
	outcomes.Add(migration.OK(migration.KindCourse, course.ID))
	return outcomes, nil
}

type stubStudentService struct {
	migrated []int64
	inactive map[int64]bool
}

func (s *stubStudentService) MigrateUser(_ context.Context, _ *gorm.DB, user *source.User) (migration.OutcomeSet, bool, error) {
	if s.inactive[user.ID] {
		return migration.OutcomeSet{}, false, nil
	}
	s.migrated = append(s.migrated, user.ID)
	return migration.OutcomeSet{}, true, nil
}

type orchestratorFixture struct {
	sourceCourses *fakeSourceCourses
	sourceUsers   *fakeSourceUsers
	options       *fakeOptionStore
	mappings      *fakeMappings
	content       *stubContentService
	students      *stubStudentService
	orch          Orchestrator
}

func newOrchestratorFixture(t *testing.T, courseCount, userCount int) *orchestratorFixture {
	t.Helper()
	f := &orchestratorFixture{
		sourceCourses: newFakeSourceCourses(),
		sourceUsers:   newFakeSourceUsers(),
		options:       newFakeOptionStore(),
		mappings:      newFakeMappings(),
		content:       &stubContentService{},
		students:      &stubStudentService{inactive: map[int64]bool{}},
	}
	for i := 0; i < courseCount; i++ {
		f.sourceCourses.courses = append(f.sourceCourses.courses, &source.Course{
			ID:    int64(i + 1),
			Title: fmt.Sprintf("Course %d", i+1),
		})
	}
	for i := 0; i < userCount; i++ {
		f.sourceUsers.users = append(f.sourceUsers.users, &source.User{ID: int64(i + 1)})
	}
	f.orch = NewOrchestrator(
		nil, testLogger(t),
		f.sourceCourses, f.sourceUsers, f.options, f.mappings,
		f.content, f.students,
	)
	return f
}

func TestStepRejectsInvalidPhase(t *testing.T) {
	f := newOrchestratorFixture(t, 1, 1)

	for _, phase := range []string{"", "done", "bogus"} {
		_, err := f.orch.Step(context.Background(), StepRequest{Phase: phase})
		if !errors.Is(err, migration.ErrInvalidPhase) {
			t.Fatalf("phase %q: err = %v, want ErrInvalidPhase", phase, err)
		}
	}
	if len(f.options.values) != 0 {
		t.Fatal("invalid phase persisted run state")
	}
	if len(f.content.migrated) != 0 {
		t.Fatal("invalid phase migrated content")
	}
}

func TestStepContentPaginatesUntilAllCoursesDone(t *testing.T) {
	f := newOrchestratorFixture(t, 25, 0)
	ctx := context.Background()

	page := 1
	for {
		result, err := f.orch.Step(ctx, StepRequest{Phase: string(migration.PhaseContent), Page: page, PageSize: 10})
		if err != nil {
			t.Fatalf("page %d: %v", page, err)
		}
		if result.Phase != migration.PhaseContent {
			t.Fatalf("page %d: phase = %q", page, result.Phase)
		}
		if result.NextPhase == migration.PhaseStudentProgress {
			if result.MigratedTotal != 25 {
				t.Fatalf("migrated total = %d, want 25", result.MigratedTotal)
			}
			if result.NextPage != 1 {
				t.Fatalf("next page = %d, want 1", result.NextPage)
			}
			break
		}
		if result.NextPage != page+1 {
			t.Fatalf("page %d: next page = %d", page, result.NextPage)
		}
		if page > 10 {
			t.Fatal("content phase never handed off")
		}
		page = result.NextPage
	}

	if len(f.content.migrated) != 25 {
		t.Fatalf("migrated %d courses, want 25", len(f.content.migrated))
	}
	seen := map[int64]bool{}
	for _, id := range f.content.migrated {
		if seen[id] {
			t.Fatalf("course %d migrated twice", id)
		}
		seen[id] = true
	}
}

func TestStepContentPageOneResetsCounter(t *testing.T) {
	f := newOrchestratorFixture(t, 25, 0)
	ctx := context.Background()

	// Leftover counters from an earlier run must not survive a restart.
	if err := f.options.Set(ctx, nil, "run_state", &migration.RunState{StudentMigrated: 7}); err != nil {
		t.Fatalf("seed state: %v", err)
	}

	for _, page := range []int{1, 2} {
		if _, err := f.orch.Step(ctx, StepRequest{Phase: string(migration.PhaseContent), Page: page, PageSize: 10}); err != nil {
			t.Fatalf("page %d: %v", page, err)
		}
	}
	result, err := f.orch.Step(ctx, StepRequest{Phase: string(migration.PhaseContent), Page: 1, PageSize: 10})
	if err != nil {
		t.Fatalf("restart: %v", err)
	}
	if result.MigratedTotal != 10 {
		t.Fatalf("restart total = %d, want 10", result.MigratedTotal)
	}

	var state migration.RunState
	if _, err := f.options.Get(ctx, nil, "run_state", &state); err != nil {
		t.Fatalf("load state: %v", err)
	}
	if state.StudentMigrated != 0 {
		t.Fatalf("student counter = %d after content restart, want 0", state.StudentMigrated)
	}
}

func TestStepContentPassesForceThrough(t *testing.T) {
	f := newOrchestratorFixture(t, 2, 0)
	ctx := context.Background()

	if _, err := f.orch.Step(ctx, StepRequest{Phase: string(migration.PhaseContent), Page: 1, PageSize: 10}); err != nil {
		t.Fatalf("unforced step: %v", err)
	}
	if _, err := f.orch.Step(ctx, StepRequest{Phase: string(migration.PhaseContent), Page: 1, PageSize: 10, Force: true}); err != nil {
		t.Fatalf("forced step: %v", err)
	}

	want := []bool{false, false, true, true}
	if len(f.content.forced) != len(want) {
		t.Fatalf("forced flags = %v, want %v", f.content.forced, want)
	}
	for i, flag := range want {
		if f.content.forced[i] != flag {
			t.Fatalf("forced flags = %v, want %v", f.content.forced, want)
		}
	}
}

func TestStepStudentsCountsProcessedAndFinishes(t *testing.T) {
	f := newOrchestratorFixture(t, 0, 12)
	f.students.inactive[3] = true
	f.students.inactive[11] = true
	ctx := context.Background()

	first, err := f.orch.Step(ctx, StepRequest{Phase: string(migration.PhaseStudentProgress), Page: 1, PageSize: 10, Operator: "admin"})
	if err != nil {
		t.Fatalf("page 1: %v", err)
	}
	if first.Done {
		t.Fatal("full page reported done")
	}
	if first.NextPhase != migration.PhaseStudentProgress || first.NextPage != 2 {
		t.Fatalf("continuation: %+v", first)
	}
	if first.MigratedTotal != 9 {
		t.Fatalf("page 1 total = %d, want 9 (one inactive)", first.MigratedTotal)
	}

	second, err := f.orch.Step(ctx, StepRequest{Phase: string(migration.PhaseStudentProgress), Page: 2, PageSize: 10, Operator: "admin"})
	if err != nil {
		t.Fatalf("page 2: %v", err)
	}
	if !second.Done || second.NextPhase != migration.PhaseDone {
		t.Fatalf("short page did not finish: %+v", second)
	}
	if second.SuccessHTML == "" {
		t.Fatal("finished run carries no success fragment")
	}
	if second.MigratedTotal != 10 {
		t.Fatalf("final total = %d, want 10", second.MigratedTotal)
	}

	report, err := f.orch.Report(ctx)
	if err != nil {
		t.Fatalf("Report() error = %v", err)
	}
	if report.CompletedAt == nil {
		t.Fatal("completion timestamp not stamped")
	}
	if report.Operator != "admin" {
		t.Fatalf("operator = %q", report.Operator)
	}
	if report.StudentMigrated != 10 || report.UsersTotal != 12 {
		t.Fatalf("report: %+v", report)
	}
}

func TestStepDefaultsPageAndSize(t *testing.T) {
	f := newOrchestratorFixture(t, 3, 0)

	result, err := f.orch.Step(context.Background(), StepRequest{Phase: string(migration.PhaseContent)})
	if err != nil {
		t.Fatalf("Step() error = %v", err)
	}
	if result.MigratedTotal != 3 {
		t.Fatalf("total = %d, want 3", result.MigratedTotal)
	}
	if result.NextPhase != migration.PhaseStudentProgress {
		t.Fatalf("next phase = %q", result.NextPhase)
	}
}

func TestClearDropsRunStateAndMappingTable(t *testing.T) {
	f := newOrchestratorFixture(t, 5, 0)
	ctx := context.Background()

	if _, err := f.orch.Step(ctx, StepRequest{Phase: string(migration.PhaseContent), Page: 1, PageSize: 10}); err != nil {
		t.Fatalf("step: %v", err)
	}
	if err := f.mappings.Upsert(ctx, nil, migration.KindCourse, 1, uuid.New()); err != nil {
		t.Fatalf("seed mapping: %v", err)
	}

	if err := f.orch.Clear(ctx); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}

	if len(f.mappings.rows) != 0 {
		t.Fatal("mapping table survived Clear")
	}
	report, err := f.orch.Report(ctx)
	if err != nil {
		t.Fatalf("Report() error = %v", err)
	}
	if report.ContentMigrated != 0 || report.CompletedAt != nil {
		t.Fatalf("run state survived Clear: %+v", report)
	}
	if report.CoursesTotal != 5 {
		t.Fatalf("courses total = %d, want 5", report.CoursesTotal)
	}
}
