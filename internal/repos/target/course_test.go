package target

import (
	"context"
	"encoding/json"
	"testing"

	"gorm.io/datatypes"

	types "github.com/coursebridge/migration-backend/internal/domain/target"
	"github.com/coursebridge/migration-backend/internal/repos/testutil"
)

func TestCourseRepoFindByMetaRef(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	repo := NewCourseRepo(db, testutil.Logger(t))

	course := testutil.SeedTargetCourse(t, ctx, tx, "Mapped")
	if err := repo.MergeMetadata(ctx, tx, course.ID, map[string]any{"_ld_course_id": "42"}); err != nil {
		t.Fatalf("MergeMetadata: %v", err)
	}

	found, err := repo.FindByMetaRef(ctx, tx, "_ld_course_id", "42")
	if err != nil {
		t.Fatalf("FindByMetaRef: %v", err)
	}
	if found == nil || found.ID != course.ID {
		t.Fatalf("found = %+v, want course %s", found, course.ID)
	}

	missing, err := repo.FindByMetaRef(ctx, tx, "_ld_course_id", "43")
	if err != nil {
		t.Fatalf("FindByMetaRef missing: %v", err)
	}
	if missing != nil {
		t.Fatalf("missing = %+v, want nil", missing)
	}
}

func TestCourseRepoMergeMetadataKeepsExistingKeys(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	repo := NewCourseRepo(db, testutil.Logger(t))

	course := &types.Course{Title: "Meta", Metadata: datatypes.JSON(`{"a":"1"}`)}
	if _, err := repo.Create(ctx, tx, course); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := repo.MergeMetadata(ctx, tx, course.ID, map[string]any{"b": "2"}); err != nil {
		t.Fatalf("MergeMetadata: %v", err)
	}

	fresh, err := repo.GetByID(ctx, tx, course.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	var meta map[string]any
	if err := json.Unmarshal(fresh.Metadata, &meta); err != nil {
		t.Fatalf("decode metadata: %v", err)
	}
	if meta["a"] != "1" || meta["b"] != "2" {
		t.Fatalf("metadata: %v", meta)
	}
}

func TestCourseRepoDeleteTree(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()

	courses := NewCourseRepo(db, testutil.Logger(t))
	sections := NewSectionRepo(db, testutil.Logger(t))
	items := NewCourseItemRepo(db, testutil.Logger(t))
	questions := NewQuestionRepo(db, testutil.Logger(t))
	options := NewAnswerOptionRepo(db, testutil.Logger(t))

	course := testutil.SeedTargetCourse(t, ctx, tx, "Doomed")
	keeper := testutil.SeedTargetCourse(t, ctx, tx, "Keeper")

	section, err := sections.Create(ctx, tx, &types.Section{CourseID: course.ID, Name: "S", Position: 1})
	if err != nil {
		t.Fatalf("create section: %v", err)
	}
	item, err := items.Create(ctx, tx, &types.CourseItem{
		SectionID: section.ID, CourseID: course.ID,
		Type: types.ItemTypeQuiz, Title: "Q", Position: 1,
	})
	if err != nil {
		t.Fatalf("create item: %v", err)
	}
	question, err := questions.Create(ctx, tx, &types.Question{
		QuizItemID: item.ID, Type: types.QuestionTypeSingleChoice, Title: "q", Position: 1,
	})
	if err != nil {
		t.Fatalf("create question: %v", err)
	}
	if _, err := options.Create(ctx, tx, []*types.AnswerOption{
		{QuestionID: question.ID, Title: "a", Value: "v", Position: 1},
	}); err != nil {
		t.Fatalf("create options: %v", err)
	}

	keeperSection, err := sections.Create(ctx, tx, &types.Section{CourseID: keeper.ID, Name: "K", Position: 1})
	if err != nil {
		t.Fatalf("create keeper section: %v", err)
	}

	if err := courses.DeleteTree(ctx, tx, course.ID); err != nil {
		t.Fatalf("DeleteTree: %v", err)
	}

	if got, _ := courses.GetByID(ctx, tx, course.ID); got != nil {
		t.Fatal("course survived DeleteTree")
	}
	if rows, _ := items.ListByCourse(ctx, tx, course.ID); len(rows) != 0 {
		t.Fatalf("items survived: %d", len(rows))
	}
	if rows, _ := sections.ListByCourse(ctx, tx, course.ID); len(rows) != 0 {
		t.Fatalf("sections survived: %d", len(rows))
	}
	if rows, _ := questions.ListByQuizItem(ctx, tx, item.ID); len(rows) != 0 {
		t.Fatalf("questions survived: %d", len(rows))
	}
	if rows, _ := options.ListByQuestion(ctx, tx, question.ID); len(rows) != 0 {
		t.Fatalf("options survived: %d", len(rows))
	}

	// unrelated course untouched
	if got, _ := courses.GetByID(ctx, tx, keeper.ID); got == nil {
		t.Fatal("unrelated course deleted")
	}
	if rows, _ := sections.ListByCourse(ctx, tx, keeper.ID); len(rows) != 1 || rows[0].ID != keeperSection.ID {
		t.Fatalf("unrelated sections: %d", len(rows))
	}
}
