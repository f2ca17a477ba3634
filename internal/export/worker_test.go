package export

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"expenses/internal/amqp"
	"expenses/internal/core"
)

type fakeLoader struct {
	expenses []core.Expense
	err      error
}

func (f fakeLoader) Load(context.Context) ([]core.Expense, error) {
	return f.expenses, f.err
}

func fixedClock(w *Worker) {
	w.now = func() time.Time {
		return time.Date(2024, time.June, 1, 12, 0, 0, 0, time.UTC)
	}
}

func TestWriteSnapshot(t *testing.T) {
	date, _ := core.ParseDate("2024-06-01")
	loader := fakeLoader{expenses: []core.Expense{{
		ID:          "1",
		Amount:      core.Money{Cents: 1250},
		Description: "Coffee",
		Category:    core.CategoryFood,
		Date:        date,
	}}}

	dir := t.TempDir()
	w := NewWorker(loader, dir)
	fixedClock(w)

	if err := w.WriteSnapshot(context.Background()); err != nil {
		t.Fatalf("write snapshot: %v", err)
	}

	body, err := os.ReadFile(filepath.Join(dir, "expenses-2024-06-01.csv"))
	if err != nil {
		t.Fatalf("snapshot file missing: %v", err)
	}
	want := "Date,Description,Category,Amount\n" + `2024-06-01,"Coffee",Food,12.50`
	if string(body) != want {
		t.Fatalf("snapshot mismatch:\ngot:  %q\nwant: %q", body, want)
	}

	// No stray temp files left behind
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected exactly the snapshot file, got %d entries", len(entries))
	}
}

func TestWriteSnapshotCreatesExportDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "exports")
	w := NewWorker(fakeLoader{}, dir)
	fixedClock(w)

	if err := w.WriteSnapshot(context.Background()); err != nil {
		t.Fatalf("write snapshot: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "expenses-2024-06-01.csv")); err != nil {
		t.Fatalf("snapshot not created in nested dir: %v", err)
	}
}

func TestHandleChangeMessage(t *testing.T) {
	dir := t.TempDir()
	w := NewWorker(fakeLoader{}, dir)
	fixedClock(w)

	msg := amqp.NewExpenseChangedMessage("exp-1", amqp.ActionDeleted)
	if err := w.HandleChangeMessage(context.Background(), msg); err != nil {
		t.Fatalf("handle message: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "expenses-2024-06-01.csv")); err != nil {
		t.Fatalf("snapshot not rebuilt: %v", err)
	}
}

func TestHandleChangeMessageLoadFailure(t *testing.T) {
	w := NewWorker(fakeLoader{err: errors.New("db gone")}, t.TempDir())
	fixedClock(w)

	msg := amqp.NewExpenseChangedMessage("exp-1", amqp.ActionCreated)
	if err := w.HandleChangeMessage(context.Background(), msg); err == nil {
		t.Fatalf("expected error when loading fails")
	}
}
