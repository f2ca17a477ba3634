// Package export rebuilds CSV snapshots of the expense collection. It is
// deliberately separated from the core engines: everything here is a side
// effect driven by change notifications, never part of a request path.
package export

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"expenses/internal/amqp"
	"expenses/internal/core"
	"expenses/internal/log"
)

// Loader supplies the current committed collection.
type Loader interface {
	Load(ctx context.Context) ([]core.Expense, error)
}

// Worker consumes expense-changed messages and rewrites the dated CSV
// snapshot in the export directory.
type Worker struct {
	loader    Loader
	exportDir string
	now       func() time.Time
}

func NewWorker(loader Loader, exportDir string) *Worker {
	return &Worker{
		loader:    loader,
		exportDir: exportDir,
		now:       time.Now,
	}
}

// HandleChangeMessage processes a single change notification. Whatever the
// action was, the snapshot is rebuilt from the full collection.
func (w *Worker) HandleChangeMessage(ctx context.Context, msg *amqp.ExpenseChangedMessage) error {
	slog.InfoContext(ctx, "Processing change message",
		log.FieldExpenseID, msg.ID,
		"action", msg.Action,
		log.FieldComponent, log.ComponentExport,
		log.FieldOperation, log.OpConsume)

	if err := w.WriteSnapshot(ctx); err != nil {
		return fmt.Errorf("rebuild snapshot: %w", err)
	}
	return nil
}

// WriteSnapshot loads the collection and writes the CSV export file.
// The write goes through a temp file and rename so readers never observe
// a partial snapshot.
func (w *Worker) WriteSnapshot(ctx context.Context) error {
	expenses, err := w.loader.Load(ctx)
	if err != nil {
		return fmt.Errorf("load expenses: %w", err)
	}

	if err := os.MkdirAll(w.exportDir, 0755); err != nil {
		return fmt.Errorf("create export directory: %w", err)
	}

	filename := core.ExportFilename(w.now())
	path := filepath.Join(w.exportDir, filename)

	tmp, err := os.CreateTemp(w.exportDir, filename+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp snapshot: %w", err)
	}
	if _, err := tmp.WriteString(core.ExportCSV(expenses)); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close snapshot: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("publish snapshot: %w", err)
	}

	slog.InfoContext(ctx, "Snapshot written",
		"path", path,
		"expenses", len(expenses),
		log.FieldComponent, log.ComponentExport,
		log.FieldOperation, log.OpSnapshot)

	return nil
}

// RunPeriodic rewrites the snapshot on a fixed interval until ctx ends.
// This is the backup path for lost change messages.
func (w *Worker) RunPeriodic(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := w.WriteSnapshot(ctx); err != nil {
				slog.ErrorContext(ctx, "Periodic snapshot failed", "error", err)
			}
		}
	}
}
