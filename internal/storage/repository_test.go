package storage

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"expenses/internal/core"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "expenses.db"))
	if err != nil {
		t.Fatalf("new repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func testExpense(id string, cents int64, iso string) core.Expense {
	date, _ := core.ParseDate(iso)
	created := time.Date(2024, time.June, 1, 10, 0, 0, 0, time.UTC)
	return core.Expense{
		ID:          id,
		Amount:      core.Money{Cents: cents},
		Description: "expense " + id,
		Category:    core.CategoryFood,
		Date:        date,
		CreatedAt:   created,
		UpdatedAt:   created,
	}
}

func TestAppendAndLoad(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	got, err := repo.Load(ctx)
	if err != nil {
		t.Fatalf("load empty: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("fresh store must be empty, got %d", len(got))
	}

	e := testExpense("exp-1", 1250, "2024-06-01")
	got, err = repo.Append(ctx, e)
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 expense after append, got %d", len(got))
	}

	loaded := got[0]
	if loaded.ID != e.ID || loaded.Amount != e.Amount || loaded.Description != e.Description {
		t.Fatalf("round trip mismatch: %+v vs %+v", loaded, e)
	}
	if loaded.Category != e.Category || loaded.Date.ISO() != "2024-06-01" {
		t.Fatalf("round trip mismatch: %+v", loaded)
	}
	if !loaded.CreatedAt.Equal(e.CreatedAt) || !loaded.UpdatedAt.Equal(e.UpdatedAt) {
		t.Fatalf("timestamps not preserved: %+v", loaded)
	}
}

func TestReplace(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	e := testExpense("exp-1", 1000, "2024-06-01")
	if _, err := repo.Append(ctx, e); err != nil {
		t.Fatalf("append: %v", err)
	}

	e.Amount = core.Money{Cents: 2500}
	e.Description = "updated"
	e.Category = core.CategoryBills
	e.UpdatedAt = e.UpdatedAt.Add(time.Hour)

	got, err := repo.Replace(ctx, e)
	if err != nil {
		t.Fatalf("replace: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("replace must not grow the collection, got %d", len(got))
	}
	if got[0].Amount.Cents != 2500 || got[0].Description != "updated" || got[0].Category != core.CategoryBills {
		t.Fatalf("replace did not apply fields: %+v", got[0])
	}
	if !got[0].UpdatedAt.Equal(e.UpdatedAt) {
		t.Fatalf("updatedAt not persisted: %v", got[0].UpdatedAt)
	}
}

func TestReplaceAbsentIDIsNoop(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	if _, err := repo.Append(ctx, testExpense("exp-1", 1000, "2024-06-01")); err != nil {
		t.Fatalf("append: %v", err)
	}

	ghost := testExpense("ghost", 9999, "2024-06-02")
	got, err := repo.Replace(ctx, ghost)
	if err != nil {
		t.Fatalf("replace absent id must not error: %v", err)
	}
	if len(got) != 1 || got[0].ID != "exp-1" || got[0].Amount.Cents != 1000 {
		t.Fatalf("replace of absent id must be a no-op, got %+v", got)
	}
}

func TestRemove(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	if _, err := repo.Append(ctx, testExpense("exp-1", 1000, "2024-06-01")); err != nil {
		t.Fatalf("append: %v", err)
	}
	if _, err := repo.Append(ctx, testExpense("exp-2", 2000, "2024-06-02")); err != nil {
		t.Fatalf("append: %v", err)
	}

	got, err := repo.Remove(ctx, "exp-1")
	if err != nil {
		t.Fatalf("remove: %v", err)
	}
	if len(got) != 1 || got[0].ID != "exp-2" {
		t.Fatalf("expected only exp-2 to remain, got %+v", got)
	}

	// Absent id is a no-op
	got, err = repo.Remove(ctx, "ghost")
	if err != nil {
		t.Fatalf("remove absent id must not error: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("remove of absent id must be a no-op, got %d", len(got))
	}
}

func TestSaveReplacesAll(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	if _, err := repo.Append(ctx, testExpense("old-1", 1000, "2024-06-01")); err != nil {
		t.Fatalf("append: %v", err)
	}

	fresh := []core.Expense{
		testExpense("new-1", 100, "2024-07-01"),
		testExpense("new-2", 200, "2024-07-02"),
	}
	if err := repo.Save(ctx, fresh); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := repo.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(got) != 2 || got[0].ID != "new-1" || got[1].ID != "new-2" {
		t.Fatalf("save must replace the whole collection, got %+v", got)
	}
}

func TestLoadSkipsMalformedRows(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "expenses.db")
	repo, err := NewSQLiteRepository(dbPath)
	if err != nil {
		t.Fatalf("new repository: %v", err)
	}
	defer repo.Close()
	ctx := context.Background()

	if _, err := repo.Append(ctx, testExpense("good", 1000, "2024-06-01")); err != nil {
		t.Fatalf("append: %v", err)
	}

	// A stale row written by an older client with a broken date
	raw, err := sql.Open("sqlite", dbPath)
	if err != nil {
		t.Fatalf("open raw db: %v", err)
	}
	defer raw.Close()
	_, err = raw.ExecContext(ctx, `
		INSERT INTO expenses (id, amount_cents, description, category, expense_date, created_at, updated_at)
		VALUES ('bad', 500, 'broken', 'Food', 'not-a-date', '2024-06-01T00:00:00Z', '2024-06-01T00:00:00Z')`)
	if err != nil {
		t.Fatalf("insert malformed row: %v", err)
	}

	got, err := repo.Load(ctx)
	if err != nil {
		t.Fatalf("load with malformed row must not fail: %v", err)
	}
	if len(got) != 1 || got[0].ID != "good" {
		t.Fatalf("malformed row must be skipped, got %+v", got)
	}
}

func TestGet(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	e := testExpense("exp-1", 1250, "2024-06-01")
	if _, err := repo.Append(ctx, e); err != nil {
		t.Fatalf("append: %v", err)
	}

	got, err := repo.Get(ctx, "exp-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.ID != "exp-1" || got.Amount.Cents != 1250 {
		t.Fatalf("get mismatch: %+v", got)
	}

	if _, err := repo.Get(ctx, "ghost"); err == nil {
		t.Fatalf("get of absent id must error")
	}
}
