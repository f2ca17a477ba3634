package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"expenses/internal/core"
	"expenses/internal/storage"
)

// memoryRepo is an in-memory Repository for tests.
type memoryRepo struct {
	mu    sync.Mutex
	items []core.Expense
}

func (m *memoryRepo) snapshot() []core.Expense {
	out := make([]core.Expense, len(m.items))
	copy(out, m.items)
	return out
}

func (m *memoryRepo) Load(context.Context) ([]core.Expense, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshot(), nil
}

func (m *memoryRepo) Get(_ context.Context, id string) (core.Expense, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.items {
		if e.ID == id {
			return e, nil
		}
	}
	return core.Expense{}, storage.ErrNotFound
}

func (m *memoryRepo) Append(_ context.Context, e core.Expense) ([]core.Expense, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items = append(m.items, e)
	return m.snapshot(), nil
}

func (m *memoryRepo) Replace(_ context.Context, e core.Expense) ([]core.Expense, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.items {
		if m.items[i].ID == e.ID {
			m.items[i] = e
			break
		}
	}
	return m.snapshot(), nil
}

func (m *memoryRepo) Remove(_ context.Context, id string) ([]core.Expense, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.items[:0]
	for _, e := range m.items {
		if e.ID != id {
			kept = append(kept, e)
		}
	}
	m.items = kept
	return m.snapshot(), nil
}

func (m *memoryRepo) Close() error { return nil }

func newTestService(now time.Time) (*ExpenseService, *memoryRepo) {
	repo := &memoryRepo{}
	svc := NewExpenseService(repo, nil)
	svc.now = func() time.Time { return now }
	return svc, repo
}

func TestCreateAssignsIdentityAndTimestamps(t *testing.T) {
	now := time.Date(2024, time.June, 1, 12, 0, 0, 0, time.UTC)
	svc, repo := newTestService(now)
	ctx := context.Background()

	e, err := svc.Create(ctx, core.FormData{
		Amount: "12.50", Description: "Coffee", Category: "Food", Date: "2024-06-01",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if e.ID == "" {
		t.Fatalf("create must assign an id")
	}
	if !e.CreatedAt.Equal(now) || !e.UpdatedAt.Equal(now) {
		t.Fatalf("timestamps not set: %+v", e)
	}
	if len(repo.items) != 1 {
		t.Fatalf("expense not persisted")
	}

	other, err := svc.Create(ctx, core.FormData{
		Amount: "5", Description: "Bus", Category: "Transportation", Date: "2024-06-02",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if other.ID == e.ID {
		t.Fatalf("ids must be unique across the collection")
	}
}

func TestCreateRejectsInvalidForm(t *testing.T) {
	svc, repo := newTestService(time.Now())
	ctx := context.Background()

	bads := []core.FormData{
		{Amount: "0", Description: "x", Category: "Food", Date: "2024-06-01"},
		{Amount: "-3", Description: "x", Category: "Food", Date: "2024-06-01"},
		{Amount: "5", Description: "", Category: "Food", Date: "2024-06-01"},
		{Amount: "5", Description: "x", Category: "Nope", Date: "2024-06-01"},
		{Amount: "5", Description: "x", Category: "Food", Date: "junk"},
	}
	for i, bad := range bads {
		if _, err := svc.Create(ctx, bad); err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
	if len(repo.items) != 0 {
		t.Fatalf("invalid form must not persist anything")
	}
}

func TestUpdatePreservesIdentityAndCreatedAt(t *testing.T) {
	created := time.Date(2024, time.May, 1, 9, 0, 0, 0, time.UTC)
	svc, _ := newTestService(created)
	ctx := context.Background()

	e, err := svc.Create(ctx, core.FormData{
		Amount: "10", Description: "Lunch", Category: "Food", Date: "2024-05-01",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	later := created.Add(72 * time.Hour)
	svc.now = func() time.Time { return later }

	updated, err := svc.Update(ctx, e.ID, core.FormData{
		Amount: "40", Description: "Rent share", Category: "Bills", Date: "2024-05-03",
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}

	if updated.ID != e.ID {
		t.Fatalf("update changed the id")
	}
	if !updated.CreatedAt.Equal(e.CreatedAt) {
		t.Fatalf("update must preserve createdAt")
	}
	if updated.UpdatedAt.Before(e.UpdatedAt) {
		t.Fatalf("updatedAt must not move backwards")
	}
	if updated.Amount.Cents != 4000 || updated.Category != core.CategoryBills {
		t.Fatalf("update did not replace fields: %+v", updated)
	}
}

func TestUpdateUnknownID(t *testing.T) {
	svc, _ := newTestService(time.Now())

	_, err := svc.Update(context.Background(), "ghost", core.FormData{
		Amount: "1", Description: "x", Category: "Food", Date: "2024-06-01",
	})
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDelete(t *testing.T) {
	svc, repo := newTestService(time.Now())
	ctx := context.Background()

	e, err := svc.Create(ctx, core.FormData{
		Amount: "10", Description: "Lunch", Category: "Food", Date: "2024-05-01",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := svc.Delete(ctx, e.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if len(repo.items) != 0 {
		t.Fatalf("expense not removed")
	}

	// Absent id is a no-op
	if err := svc.Delete(ctx, "ghost"); err != nil {
		t.Fatalf("delete of absent id must not error: %v", err)
	}
}

func TestSummaryAndQueryEndToEnd(t *testing.T) {
	now := time.Date(2024, time.June, 20, 0, 0, 0, 0, time.UTC)
	svc, _ := newTestService(now)
	ctx := context.Background()

	if _, err := svc.Create(ctx, core.FormData{
		Amount: "12.50", Description: "Groceries", Category: "Food", Date: "2024-06-01",
	}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.Create(ctx, core.FormData{
		Amount: "40.00", Description: "Electricity", Category: "Bills", Date: "2024-06-15",
	}); err != nil {
		t.Fatalf("create: %v", err)
	}

	summary, err := svc.Summary(ctx)
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if summary.Total.Cents != 5250 {
		t.Fatalf("total = %d, want 5250", summary.Total.Cents)
	}
	if summary.ByCategory[core.CategoryFood].Cents != 1250 ||
		summary.ByCategory[core.CategoryBills].Cents != 4000 {
		t.Fatalf("category buckets wrong: %+v", summary.ByCategory)
	}
	if summary.Top.Category != core.CategoryBills || summary.Top.Amount.Cents != 4000 {
		t.Fatalf("top = %+v, want {Bills, 4000}", summary.Top)
	}

	matches, total, err := svc.Query(ctx, core.Filter{Category: core.CategoryFood})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(matches) != 1 || matches[0].Description != "Groceries" {
		t.Fatalf("expected only the Food expense, got %+v", matches)
	}
	if total.Cents != 1250 {
		t.Fatalf("filtered total = %d, want 1250", total.Cents)
	}
}

func TestExportCSV(t *testing.T) {
	now := time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC)
	svc, _ := newTestService(now)
	ctx := context.Background()

	if _, err := svc.Create(ctx, core.FormData{
		Amount: "12.50", Description: "Coffee", Category: "Food", Date: "2024-06-01",
	}); err != nil {
		t.Fatalf("create: %v", err)
	}

	csv, filename, err := svc.ExportCSV(ctx, core.Filter{})
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if filename != "expenses-2024-06-01.csv" {
		t.Fatalf("filename = %q", filename)
	}
	want := "Date,Description,Category,Amount\n" + `2024-06-01,"Coffee",Food,12.50`
	if csv != want {
		t.Fatalf("csv mismatch:\ngot:  %q\nwant: %q", csv, want)
	}
}

func TestNilAMQPClientIsSafe(t *testing.T) {
	svc, _ := newTestService(time.Now())
	if _, err := svc.Create(context.Background(), core.FormData{
		Amount: "1", Description: "x", Category: "Food", Date: "2024-06-01",
	}); err != nil {
		t.Fatalf("create with nil broker must succeed: %v", err)
	}
	if err := svc.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}
