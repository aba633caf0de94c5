//go:build integration

package repository

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"sync/atomic"
	"testing"
	"time"

	"github.com/deppfellow/blogtemplates/internal/database"
	"github.com/deppfellow/blogtemplates/internal/errs"
	"github.com/deppfellow/blogtemplates/internal/model"

	"github.com/google/go-cmp/cmp"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// The tests in this file run the store against a real Postgres:
//
//	go test -tags integration ./internal/repository/...
//
// BLOGTEMPLATES_TEST_DATABASE_URL points them at an existing database.
// Without it a throwaway container is started. Every test works under its
// own table prefix, so they share one database and run in parallel.
var (
	pgPool     *pgxpool.Pool
	pgPrefixes atomic.Int64
)

func TestMain(m *testing.M) {
	os.Exit(runWithPostgres(m))
}

func runWithPostgres(m *testing.M) int {
	ctx := context.Background()

	dsn := os.Getenv("BLOGTEMPLATES_TEST_DATABASE_URL")
	if dsn == "" {
		ctr, err := postgres.Run(ctx, "postgres:16-alpine",
			postgres.WithDatabase("blogtemplates"),
			postgres.WithUsername("blog"),
			postgres.WithPassword("blog"),
			testcontainers.WithWaitStrategy(
				wait.ForLog("database system is ready to accept connections").
					WithOccurrence(2).
					WithStartupTimeout(time.Minute)),
		)
		if err != nil {
			fmt.Fprintf(os.Stderr, "starting postgres container: %v\n", err)
			return 1
		}
		defer func() { _ = ctr.Terminate(ctx) }()

		dsn, err = ctr.ConnectionString(ctx, "sslmode=disable")
		if err != nil {
			fmt.Fprintf(os.Stderr, "postgres connection string: %v\n", err)
			return 1
		}
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		fmt.Fprintf(os.Stderr, "connecting to postgres: %v\n", err)
		return 1
	}
	defer pool.Close()

	pgPool = pool
	return m.Run()
}

func newPostgresStore(t *testing.T) *TemplateStore {
	t.Helper()
	return newPostgresStoreWithPrefix(t, fmt.Sprintf("it%d_", pgPrefixes.Add(1)))
}

func newPostgresStoreWithPrefix(t *testing.T, prefix string) *TemplateStore {
	t.Helper()
	ctx := context.Background()

	logger := zerolog.Nop()
	tables := database.MustNewTables(prefix)
	store := NewTemplateStore(pgPool, database.NewMigrator(pgPool, tables, &logger), tables, &logger)

	// Leftovers of an aborted run against a shared database.
	if err := store.DropTables(ctx); err != nil {
		t.Fatalf("DropTables: %v", err)
	}
	if err := store.CreateTables(ctx); err != nil {
		t.Fatalf("CreateTables: %v", err)
	}
	t.Cleanup(func() {
		if err := store.DropTables(context.Background()); err != nil {
			t.Errorf("DropTables: %v", err)
		}
	})
	return store
}

func countWhere(t *testing.T, table, where string, args ...any) int64 {
	t.Helper()
	var n int64
	sql := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE %s", table, where)
	if err := pgPool.QueryRow(context.Background(), sql, args...).Scan(&n); err != nil {
		t.Fatalf("%s: %v", sql, err)
	}
	return n
}

func mustAddTemplate(t *testing.T, store *TemplateStore, name string) int64 {
	t.Helper()
	id, err := store.AddTemplate(context.Background(), 1, name, "", model.TemplateOptions{})
	if err != nil {
		t.Fatalf("AddTemplate(%q): %v", name, err)
	}
	return id
}

func mustAddCategory(t *testing.T, store *TemplateStore, name string, isDefault bool) int64 {
	t.Helper()
	id, err := store.AddCategory(context.Background(), name, "", isDefault)
	if err != nil {
		t.Fatalf("AddCategory(%q): %v", name, err)
	}
	return id
}

func categoryCount(t *testing.T, store *TemplateStore, id int64) int64 {
	t.Helper()
	c, err := store.GetCategory(context.Background(), id)
	if err != nil || c == nil {
		t.Fatalf("GetCategory(%d) = %v, %v", id, c, err)
	}
	return c.TemplatesCount
}

func TestPostgresMigrationsAreRepeatable(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	// The longest prefix allowed still gets both relationship indexes.
	store := newPostgresStoreWithPrefix(t, "long_prefix_1234_")
	if err := store.CreateTables(ctx); err != nil {
		t.Fatalf("second CreateTables: %v", err)
	}

	rows, err := pgPool.Query(ctx, "SELECT indexname FROM pg_indexes WHERE tablename = $1", store.tables.Relationships)
	if err != nil {
		t.Fatalf("listing indexes: %v", err)
	}
	defer rows.Close()

	var got []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			t.Fatalf("scan: %v", err)
		}
		got = append(got, name)
	}

	want := []string{
		store.tables.Relationships + "_cat_id",
		store.tables.Relationships + "_pkey",
		store.tables.Relationships + "_template_id",
	}
	sort.Strings(got)
	sort.Strings(want)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("relationship indexes mismatch (-want +got):\n%s", diff)
	}
}

func TestPostgresTemplateRoundTrip(t *testing.T) {
	t.Parallel()
	store := newPostgresStore(t)
	ctx := context.Background()

	opts := model.TemplateOptions{
		ToCopy:           []string{"settings", "posts"},
		AdditionalTables: []string{"wp_2_forms"},
		CopyStatus:       true,
		PostCategory:     4,
		Screenshot:       "shots/starter.png",
		PagesIDs:         []int64{2, 9},
		UpdateDates:      true,
		Extra:            map[string]any{"theme": "twentytwenty", "widgets": map[string]any{"sidebar": true}},
	}

	id, err := store.AddTemplate(ctx, 1, "Starter", "desc", opts)
	if err != nil {
		t.Fatalf("AddTemplate: %v", err)
	}

	got, err := store.GetTemplateRecord(ctx, id)
	if err != nil {
		t.Fatalf("GetTemplateRecord: %v", err)
	}
	want := model.Template{ID: id, SiteID: 1, Name: "Starter", Description: "desc", Options: opts}
	if diff := cmp.Diff(want, *got); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}

	flat, err := store.GetTemplate(ctx, id)
	if err != nil {
		t.Fatalf("GetTemplate: %v", err)
	}
	if flat[model.OptionScreenshot] != model.Screenshot("shots/starter.png") || flat["theme"] != "twentytwenty" {
		t.Fatalf("options not at the top level: %v", flat)
	}
	if _, ok := flat[model.FieldOptions]; ok {
		t.Fatalf("flattened template has an options key: %v", flat)
	}

	list, err := store.ListTemplates(ctx)
	if err != nil {
		t.Fatalf("ListTemplates: %v", err)
	}
	if diff := cmp.Diff(opts, list[id].Options); diff != "" {
		t.Fatalf("listed options mismatch (-want +got):\n%s", diff)
	}

	// The column holds a JSON object, not an encoded string.
	var kind, shot string
	err = pgPool.QueryRow(ctx,
		fmt.Sprintf("SELECT jsonb_typeof(options), options->>'screenshot' FROM %s WHERE id = $1", store.tables.QuotedTemplates()),
		mustAddTemplate(t, store, "No screenshot"),
	).Scan(&kind, &shot)
	if err != nil {
		t.Fatalf("reading options column: %v", err)
	}
	if kind != "object" || shot != "false" {
		t.Fatalf("options column: type %q, screenshot %q; want object and false", kind, shot)
	}
}

func TestPostgresUncategorizedTemplateFallsBackToDefault(t *testing.T) {
	t.Parallel()
	store := newPostgresStore(t)
	ctx := context.Background()

	defaultID := mustAddCategory(t, store, "Default", true)
	templateID, err := store.AddTemplate(ctx, 1, "Starter", "desc", model.TemplateOptions{CopyStatus: true})
	if err != nil {
		t.Fatalf("AddTemplate: %v", err)
	}

	got, err := store.GetTemplateCategories(ctx, templateID)
	if err != nil {
		t.Fatalf("GetTemplateCategories: %v", err)
	}
	want := []model.Category{{ID: defaultID, Name: "Default", IsDefault: true}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("GetTemplateCategories() mismatch (-want +got):\n%s", diff)
	}
	if n := countWhere(t, store.tables.QuotedRelationships(), "template_id = $1", templateID); n != 0 {
		t.Fatalf("fallback inserted %d relationship rows", n)
	}
}

func TestPostgresSetDefaultTemplateLeavesOne(t *testing.T) {
	t.Parallel()
	store := newPostgresStore(t)
	ctx := context.Background()

	x := mustAddTemplate(t, store, "X")
	y := mustAddTemplate(t, store, "Y")

	for _, id := range []int64{x, y} {
		if err := store.SetDefaultTemplate(ctx, id); err != nil {
			t.Fatalf("SetDefaultTemplate(%d): %v", id, err)
		}
	}

	if err := store.SetDefaultTemplate(ctx, y+100); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("SetDefaultTemplate(missing) = %v, want kind %v", err, errs.ErrNotFound)
	}

	if n := countWhere(t, store.tables.QuotedTemplates(), "is_default"); n != 1 {
		t.Fatalf("%d templates flagged default, want 1", n)
	}
	if n := countWhere(t, store.tables.QuotedTemplates(), "is_default AND id = $1", y); n != 1 {
		t.Fatal("Y is not the default template")
	}
}

func TestPostgresGetDefaultCategoryRepairs(t *testing.T) {
	t.Parallel()
	store := newPostgresStore(t)
	ctx := context.Background()

	first := mustAddCategory(t, store, "First", true)
	mustAddCategory(t, store, "Second", true)

	got, err := store.GetDefaultCategory(ctx)
	if err != nil {
		t.Fatalf("GetDefaultCategory: %v", err)
	}
	if got == nil || got.ID != first {
		t.Fatalf("GetDefaultCategory() = %+v, want id %d", got, first)
	}
	if n := countWhere(t, store.tables.QuotedCategories(), "is_default"); n != 1 {
		t.Fatalf("%d categories flagged default, want 1", n)
	}
}

func TestPostgresUpdateTemplateCategories(t *testing.T) {
	t.Parallel()
	store := newPostgresStore(t)
	ctx := context.Background()

	tmpl := mustAddTemplate(t, store, "Blog")
	old := mustAddCategory(t, store, "Old", false)
	c1 := mustAddCategory(t, store, "C1", false)
	c2 := mustAddCategory(t, store, "C2", false)

	if err := store.UpdateTemplateCategories(ctx, tmpl, []int64{old}); err != nil {
		t.Fatalf("UpdateTemplateCategories: %v", err)
	}
	if err := store.UpdateTemplateCategories(ctx, tmpl, []int64{c1, c2}); err != nil {
		t.Fatalf("UpdateTemplateCategories: %v", err)
	}

	for id, want := range map[int64]bool{c1: true, c2: true, old: false} {
		got, err := store.ExistsRelation(ctx, tmpl, id)
		if err != nil {
			t.Fatalf("ExistsRelation: %v", err)
		}
		if got != want {
			t.Errorf("ExistsRelation(%d, %d) = %t, want %t", tmpl, id, got, want)
		}
	}
}

func TestPostgresRecountKeepsStaleCount(t *testing.T) {
	t.Parallel()
	store := newPostgresStore(t)
	ctx := context.Background()

	shops := mustAddCategory(t, store, "Shops", false)
	other := mustAddCategory(t, store, "Other", false)

	var templates []int64
	for _, name := range []string{"A", "B", "C"} {
		id := mustAddTemplate(t, store, name)
		if err := store.UpdateTemplateCategories(ctx, id, []int64{shops}); err != nil {
			t.Fatalf("UpdateTemplateCategories: %v", err)
		}
		templates = append(templates, id)
	}

	if err := store.RecountCategories(ctx); err != nil {
		t.Fatalf("RecountCategories: %v", err)
	}
	if n := categoryCount(t, store, shops); n != 3 {
		t.Fatalf("templates_count = %d, want 3", n)
	}

	for _, id := range templates {
		if err := store.UpdateTemplateCategories(ctx, id, []int64{other}); err != nil {
			t.Fatalf("UpdateTemplateCategories: %v", err)
		}
	}
	if err := store.RecountCategories(ctx); err != nil {
		t.Fatalf("RecountCategories: %v", err)
	}

	// Shops went 3 -> 2 -> 1 while being emptied; the last removal is
	// never counted.
	if n := categoryCount(t, store, shops); n != 1 {
		t.Fatalf("templates_count after emptying = %d, want the stale 1", n)
	}

	zeroed, err := store.ZeroEmptyCategoryCounts(ctx)
	if err != nil {
		t.Fatalf("ZeroEmptyCategoryCounts: %v", err)
	}
	if zeroed != 1 || categoryCount(t, store, shops) != 0 {
		t.Fatalf("ZeroEmptyCategoryCounts zeroed %d, count %d; want 1 and 0", zeroed, categoryCount(t, store, shops))
	}
	if n := categoryCount(t, store, other); n != 3 {
		t.Fatalf("other templates_count = %d, want 3", n)
	}
}

func TestPostgresDeleteTemplateRemovesRelationships(t *testing.T) {
	t.Parallel()
	store := newPostgresStore(t)
	ctx := context.Background()

	tmpl := mustAddTemplate(t, store, "Blog")
	c := mustAddCategory(t, store, "Blogs", false)
	if err := store.UpdateTemplateCategories(ctx, tmpl, []int64{c}); err != nil {
		t.Fatalf("UpdateTemplateCategories: %v", err)
	}

	if err := store.DeleteTemplate(ctx, tmpl); err != nil {
		t.Fatalf("DeleteTemplate: %v", err)
	}

	got, err := store.GetTemplateRecord(ctx, tmpl)
	if err != nil || got != nil {
		t.Fatalf("GetTemplateRecord after delete = %v, %v; want nil, nil", got, err)
	}
	if n := countWhere(t, store.tables.QuotedRelationships(), "template_id = $1", tmpl); n != 0 {
		t.Fatalf("%d relationship rows left", n)
	}
}

func TestPostgresAddTemplateWithCategoriesIsAtomic(t *testing.T) {
	t.Parallel()
	store := newPostgresStore(t)
	ctx := context.Background()

	c := mustAddCategory(t, store, "Shops", false)

	_, err := store.AddTemplateWithCategories(ctx, 1, "Starter", "", model.TemplateOptions{}, []int64{c, c})
	if !errors.Is(err, errs.ErrConstraintViolation) {
		t.Fatalf("repeated category = %v, want kind %v", err, errs.ErrConstraintViolation)
	}

	_, err = store.AddTemplateWithCategories(ctx, 1, "Starter", "", model.TemplateOptions{}, []int64{c, c + 100})
	if !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("unknown category = %v, want kind %v", err, errs.ErrNotFound)
	}

	if n := countWhere(t, store.tables.QuotedTemplates(), "TRUE"); n != 0 {
		t.Fatalf("%d templates stored by failed calls", n)
	}

	id, err := store.AddTemplateWithCategories(ctx, 1, "Starter", "", model.TemplateOptions{}, []int64{c})
	if err != nil {
		t.Fatalf("AddTemplateWithCategories: %v", err)
	}
	if ok, _ := store.ExistsRelation(ctx, id, c); !ok || categoryCount(t, store, c) != 1 {
		t.Fatal("template not filed and counted under its category")
	}
}

type upgradeState struct {
	Categories []model.Category
	Membership map[string][]string
}

func snapshotCategories(t *testing.T, store *TemplateStore) upgradeState {
	t.Helper()
	ctx := context.Background()

	categories, err := store.ListCategories(ctx)
	if err != nil {
		t.Fatalf("ListCategories: %v", err)
	}
	for i := range categories {
		categories[i].ID = 0 // ids are reissued on every upgrade
	}

	templates, err := store.ListTemplates(ctx)
	if err != nil {
		t.Fatalf("ListTemplates: %v", err)
	}

	state := upgradeState{Categories: categories, Membership: make(map[string][]string)}
	for _, tmpl := range templates {
		linked, err := store.GetTemplateCategories(ctx, tmpl.ID)
		if err != nil {
			t.Fatalf("GetTemplateCategories: %v", err)
		}
		for _, c := range linked {
			state.Membership[tmpl.Name] = append(state.Membership[tmpl.Name], c.Name)
		}
	}
	return state
}

func TestPostgresUpgradeToV20IsRepeatable(t *testing.T) {
	t.Parallel()
	store := newPostgresStore(t)
	ctx := context.Background()

	shops := mustAddCategory(t, store, "Shops", true)
	blogs := mustAddCategory(t, store, "Blogs", false)
	a := mustAddTemplate(t, store, "A")
	mustAddTemplate(t, store, "B")
	if err := store.UpdateTemplateCategories(ctx, a, []int64{shops, blogs}); err != nil {
		t.Fatalf("UpdateTemplateCategories: %v", err)
	}

	if err := store.UpgradeToV20(ctx); err != nil {
		t.Fatalf("UpgradeToV20: %v", err)
	}
	first := snapshotCategories(t, store)

	want := upgradeState{
		Categories: []model.Category{{Name: model.DefaultCategoryName, IsDefault: true, TemplatesCount: 2}},
		Membership: map[string][]string{
			"A": {model.DefaultCategoryName},
			"B": {model.DefaultCategoryName},
		},
	}
	if diff := cmp.Diff(want, first); diff != "" {
		t.Fatalf("state after upgrade mismatch (-want +got):\n%s", diff)
	}

	if err := store.UpgradeToV20(ctx); err != nil {
		t.Fatalf("second UpgradeToV20: %v", err)
	}
	if diff := cmp.Diff(first, snapshotCategories(t, store)); diff != "" {
		t.Fatalf("second upgrade changed the state (-first +second):\n%s", diff)
	}
	if n := countWhere(t, store.tables.QuotedRelationships(), "TRUE"); n != 2 {
		t.Fatalf("%d relationship rows, want 2", n)
	}
}
