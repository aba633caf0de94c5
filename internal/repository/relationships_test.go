package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/deppfellow/blogtemplates/internal/errs"
	"github.com/deppfellow/blogtemplates/internal/model"

	"github.com/google/go-cmp/cmp"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
)

func TestGetTemplateCategories(t *testing.T) {
	store, mock, _ := newTestStore(t)

	mock.ExpectQuery(store.q.selectTemplateCategories).
		WithArgs(int64(5)).
		WillReturnRows(pgxmock.NewRows(categoryRowColumns).
			AddRow(int64(2), "Shops", "", false, int64(1)).
			AddRow(int64(3), "Blogs", "", false, int64(6)))

	got, err := store.GetTemplateCategories(context.Background(), 5)
	if err != nil {
		t.Fatalf("GetTemplateCategories: %v", err)
	}

	want := []model.Category{
		{ID: 2, Name: "Shops", TemplatesCount: 1},
		{ID: 3, Name: "Blogs", TemplatesCount: 6},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("GetTemplateCategories() mismatch (-want +got):\n%s", diff)
	}
	expectationsMet(t, mock)
}

func TestGetTemplateCategoriesFallsBackToDefault(t *testing.T) {
	store, mock, _ := newTestStore(t)

	mock.ExpectQuery(store.q.selectTemplateCategories).WithArgs(int64(5)).WillReturnRows(pgxmock.NewRows(categoryRowColumns))
	mock.ExpectQuery(store.q.selectDefaultID).WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(1)))
	mock.ExpectQuery(store.q.selectCategory).
		WithArgs(int64(1)).
		WillReturnRows(pgxmock.NewRows(categoryRowColumns).AddRow(int64(1), model.DefaultCategoryName, "", true, int64(0)))

	got, err := store.GetTemplateCategories(context.Background(), 5)
	if err != nil {
		t.Fatalf("GetTemplateCategories: %v", err)
	}

	want := []model.Category{{ID: 1, Name: model.DefaultCategoryName, IsDefault: true}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("GetTemplateCategories() mismatch (-want +got):\n%s", diff)
	}
	expectationsMet(t, mock)
}

func TestGetTemplateCategoriesWithoutDefault(t *testing.T) {
	store, mock, _ := newTestStore(t)

	mock.ExpectQuery(store.q.selectTemplateCategories).WithArgs(int64(5)).WillReturnRows(pgxmock.NewRows(categoryRowColumns))
	mock.ExpectQuery(store.q.selectDefaultID).WillReturnRows(pgxmock.NewRows([]string{"id"}))

	got, err := store.GetTemplateCategories(context.Background(), 5)
	if err != nil {
		t.Fatalf("GetTemplateCategories: %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Fatalf("GetTemplateCategories() = %#v, want an empty slice", got)
	}
	expectationsMet(t, mock)
}

func TestUpdateTemplateCategories(t *testing.T) {
	store, mock, _ := newTestStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(store.q.deleteTemplateRelations).WithArgs(int64(5)).WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectExec(store.q.insertRelationship).WithArgs(int64(2), int64(5)).WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(store.q.insertRelationship).WithArgs(int64(3), int64(5)).WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(store.q.recountCategories).WillReturnResult(pgxmock.NewResult("UPDATE", 2))
	mock.ExpectCommit()

	if err := store.UpdateTemplateCategories(context.Background(), 5, []int64{2, 3}); err != nil {
		t.Fatalf("UpdateTemplateCategories: %v", err)
	}
	expectationsMet(t, mock)
}

func TestUpdateTemplateCategoriesDuplicateRollsBack(t *testing.T) {
	store, mock, _ := newTestStore(t)

	duplicate := &pgconn.PgError{
		Code:           "23505",
		TableName:      "wp_nbt_categories_relationships_table",
		ConstraintName: "wp_nbt_categories_relationships_table_pkey",
	}

	mock.ExpectBegin()
	mock.ExpectExec(store.q.deleteTemplateRelations).WithArgs(int64(5)).WillReturnResult(pgxmock.NewResult("DELETE", 0))
	mock.ExpectExec(store.q.insertRelationship).WithArgs(int64(2), int64(5)).WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(store.q.insertRelationship).WithArgs(int64(2), int64(5)).WillReturnError(duplicate)
	mock.ExpectRollback()

	err := store.UpdateTemplateCategories(context.Background(), 5, []int64{2, 2})
	if !errors.Is(err, errs.ErrConstraintViolation) {
		t.Fatalf("UpdateTemplateCategories() = %v, want kind %v", err, errs.ErrConstraintViolation)
	}

	var pgerr *pgconn.PgError
	if !errors.As(err, &pgerr) || pgerr.Code != "23505" {
		t.Fatalf("driver error not reachable from %v", err)
	}
	expectationsMet(t, mock)
}

func TestExistsRelation(t *testing.T) {
	store, mock, _ := newTestStore(t)

	mock.ExpectQuery(store.q.existsRelation).
		WithArgs(int64(5), int64(2)).
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))

	ok, err := store.ExistsRelation(context.Background(), 5, 2)
	if err != nil {
		t.Fatalf("ExistsRelation: %v", err)
	}
	if !ok {
		t.Fatal("ExistsRelation() = false, want true")
	}
	expectationsMet(t, mock)
}

func TestRecountAndZeroEmptyCounts(t *testing.T) {
	store, mock, _ := newTestStore(t)
	ctx := context.Background()

	mock.ExpectExec(store.q.recountCategories).WillReturnResult(pgxmock.NewResult("UPDATE", 3))
	mock.ExpectExec(store.q.zeroEmptyCategoryCounts).WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	if err := store.RecountCategories(ctx); err != nil {
		t.Fatalf("RecountCategories: %v", err)
	}
	zeroed, err := store.ZeroEmptyCategoryCounts(ctx)
	if err != nil {
		t.Fatalf("ZeroEmptyCategoryCounts: %v", err)
	}
	if zeroed != 1 {
		t.Fatalf("ZeroEmptyCategoryCounts() = %d, want 1", zeroed)
	}
	expectationsMet(t, mock)
}

func expectAssignToDefault(mock pgxmock.PgxPoolIface, store *TemplateStore, templateID, defaultID int64) {
	mock.ExpectBegin()
	mock.ExpectExec(store.q.deleteTemplateRelations).WithArgs(templateID).WillReturnResult(pgxmock.NewResult("DELETE", 0))
	mock.ExpectExec(store.q.insertRelationship).WithArgs(defaultID, templateID).WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(store.q.recountCategories).WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()
}

func TestCheckForUncategorizedTemplates(t *testing.T) {
	store, mock, _ := newTestStore(t)

	mock.ExpectQuery(store.q.selectUncategorized).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(4)).AddRow(int64(6)))
	mock.ExpectQuery(store.q.selectDefaultID).WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(1)))
	expectAssignToDefault(mock, store, 4, 1)
	expectAssignToDefault(mock, store, 6, 1)

	moved, err := store.CheckForUncategorizedTemplates(context.Background())
	if err != nil {
		t.Fatalf("CheckForUncategorizedTemplates: %v", err)
	}
	if moved != 2 {
		t.Fatalf("CheckForUncategorizedTemplates() = %d, want 2", moved)
	}
	expectationsMet(t, mock)
}

func TestCheckForUncategorizedTemplatesWithoutDefault(t *testing.T) {
	store, mock, _ := newTestStore(t)

	mock.ExpectQuery(store.q.selectUncategorized).WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(4)))
	mock.ExpectQuery(store.q.selectDefaultID).WillReturnRows(pgxmock.NewRows([]string{"id"}))

	moved, err := store.CheckForUncategorizedTemplates(context.Background())
	if err != nil {
		t.Fatalf("CheckForUncategorizedTemplates: %v", err)
	}
	if moved != 0 {
		t.Fatalf("CheckForUncategorizedTemplates() = %d, want 0", moved)
	}
	expectationsMet(t, mock)
}

func TestCheckForUncategorizedTemplatesNothingToDo(t *testing.T) {
	store, mock, _ := newTestStore(t)

	mock.ExpectQuery(store.q.selectUncategorized).WillReturnRows(pgxmock.NewRows([]string{"id"}))

	moved, err := store.CheckForUncategorizedTemplates(context.Background())
	if err != nil || moved != 0 {
		t.Fatalf("CheckForUncategorizedTemplates() = %d, %v; want 0, nil", moved, err)
	}
	expectationsMet(t, mock)
}

func TestAssignTemplateCategoriesUnknownCategory(t *testing.T) {
	store, mock, _ := newTestStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(store.q.selectCategoryIDs).
		WithArgs([]int64{2, 40, 41}).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(2)))
	mock.ExpectRollback()

	err := store.AssignTemplateCategories(context.Background(), 5, []int64{2, 40, 41})
	if !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("AssignTemplateCategories() = %v, want kind %v", err, errs.ErrNotFound)
	}
	// Existing relationship rows were never touched.
	expectationsMet(t, mock)
}

func TestMissingCategories(t *testing.T) {
	store, mock, _ := newTestStore(t)

	mock.ExpectQuery(store.q.selectCategoryIDs).
		WithArgs([]int64{9, 2, 9, 4}).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(2)))

	got, err := store.missingCategories(context.Background(), mock, []int64{9, 2, 9, 4})
	if err != nil {
		t.Fatalf("missingCategories: %v", err)
	}
	if diff := cmp.Diff([]int64{9, 4}, got); diff != "" {
		t.Fatalf("missingCategories() mismatch (-want +got):\n%s", diff)
	}

	if got, err := store.missingCategories(context.Background(), mock, nil); err != nil || got != nil {
		t.Fatalf("missingCategories(nil) = %v, %v; want no query and nil", got, err)
	}
	expectationsMet(t, mock)
}
