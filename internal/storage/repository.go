// Package storage owns the authoritative expense collection. The core
// engines never touch it directly; they consume snapshots returned by Load.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"expenses/internal/core"

	_ "modernc.org/sqlite"
)

// SQLiteRepository persists the expense collection in a local SQLite file.
// Mutating operations hold a mutex: SQLite itself serializes writers, but
// the replace-all semantics of Save need the whole read-modify-write to be
// a single critical section.
// ErrNotFound reports that no expense matches the requested id.
var ErrNotFound = errors.New("expense not found")

type SQLiteRepository struct {
	mu sync.Mutex
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Load returns the most recent committed state of the collection, ordered
// by creation time. Rows that fail to decode are skipped with a warning so
// a damaged store degrades toward an empty collection instead of failing.
func (r *SQLiteRepository) Load(ctx context.Context) ([]core.Expense, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, amount_cents, description, category, expense_date, created_at, updated_at
		FROM expenses
		ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("query expenses: %w", err)
	}
	defer rows.Close()

	expenses := make([]core.Expense, 0)
	for rows.Next() {
		var e core.Expense
		var category, dateStr, createdStr, updated string
		if err := rows.Scan(&e.ID, &e.Amount.Cents, &e.Description, &category, &dateStr, &createdStr, &updated); err != nil {
			return nil, fmt.Errorf("scan expense row: %w", err)
		}

		date, err := core.ParseDate(dateStr)
		if err != nil {
			slog.WarnContext(ctx, "Skipping expense with malformed date",
				"id", e.ID, "expense_date", dateStr)
			continue
		}
		createdAt, err := time.Parse(time.RFC3339Nano, createdStr)
		if err != nil {
			slog.WarnContext(ctx, "Skipping expense with malformed created_at",
				"id", e.ID, "created_at", createdStr)
			continue
		}
		updatedAt, err := time.Parse(time.RFC3339Nano, updated)
		if err != nil {
			slog.WarnContext(ctx, "Skipping expense with malformed updated_at",
				"id", e.ID, "updated_at", updated)
			continue
		}

		e.Category = core.Category(category)
		e.Date = date
		e.CreatedAt = createdAt
		e.UpdatedAt = updatedAt
		expenses = append(expenses, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate expense rows: %w", err)
	}

	return expenses, nil
}

// Save replaces the whole collection in a single transaction.
func (r *SQLiteRepository) Save(ctx context.Context, expenses []core.Expense) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM expenses`); err != nil {
		return fmt.Errorf("clear expenses: %w", err)
	}
	for _, e := range expenses {
		if err := insertExpense(ctx, tx, e); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit save transaction: %w", err)
	}
	return nil
}

// Append inserts a new expense and returns the updated collection.
func (r *SQLiteRepository) Append(ctx context.Context, e core.Expense) ([]core.Expense, error) {
	r.mu.Lock()
	if err := insertExpense(ctx, r.db, e); err != nil {
		r.mu.Unlock()
		return nil, err
	}
	r.mu.Unlock()

	slog.InfoContext(ctx, "Expense saved",
		"id", e.ID,
		"description", e.Description,
		"amount_cents", e.Amount.Cents,
		"category", e.Category,
		"expense_date", e.Date.ISO())

	return r.Load(ctx)
}

// Replace updates the expense matching e.ID and returns the updated
// collection. An absent id is a no-op, not an error.
func (r *SQLiteRepository) Replace(ctx context.Context, e core.Expense) ([]core.Expense, error) {
	r.mu.Lock()
	res, err := r.db.ExecContext(ctx, `
		UPDATE expenses
		SET amount_cents = ?, description = ?, category = ?, expense_date = ?,
		    created_at = ?, updated_at = ?
		WHERE id = ?`,
		e.Amount.Cents, e.Description, string(e.Category), e.Date.ISO(),
		e.CreatedAt.UTC().Format(time.RFC3339Nano), e.UpdatedAt.UTC().Format(time.RFC3339Nano),
		e.ID)
	r.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("update expense: %w", err)
	}

	if n, err := res.RowsAffected(); err == nil && n == 0 {
		slog.WarnContext(ctx, "Replace for unknown expense id", "id", e.ID)
	}

	return r.Load(ctx)
}

// Remove deletes the expense with the given id and returns the updated
// collection. An absent id is a no-op.
func (r *SQLiteRepository) Remove(ctx context.Context, id string) ([]core.Expense, error) {
	r.mu.Lock()
	_, err := r.db.ExecContext(ctx, `DELETE FROM expenses WHERE id = ?`, id)
	r.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("delete expense: %w", err)
	}

	slog.InfoContext(ctx, "Expense deleted", "id", id)

	return r.Load(ctx)
}

// Get retrieves a single expense by id.
func (r *SQLiteRepository) Get(ctx context.Context, id string) (core.Expense, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, amount_cents, description, category, expense_date, created_at, updated_at
		FROM expenses WHERE id = ?`, id)

	var e core.Expense
	var category, dateStr, createdStr, updated string
	if err := row.Scan(&e.ID, &e.Amount.Cents, &e.Description, &category, &dateStr, &createdStr, &updated); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.Expense{}, fmt.Errorf("get expense %s: %w", id, ErrNotFound)
		}
		return core.Expense{}, fmt.Errorf("get expense %s: %w", id, err)
	}

	date, err := core.ParseDate(dateStr)
	if err != nil {
		return core.Expense{}, fmt.Errorf("decode expense %s date: %w", id, err)
	}
	createdAt, err := time.Parse(time.RFC3339Nano, createdStr)
	if err != nil {
		return core.Expense{}, fmt.Errorf("decode expense %s created_at: %w", id, err)
	}
	updatedAt, err := time.Parse(time.RFC3339Nano, updated)
	if err != nil {
		return core.Expense{}, fmt.Errorf("decode expense %s updated_at: %w", id, err)
	}

	e.Category = core.Category(category)
	e.Date = date
	e.CreatedAt = createdAt
	e.UpdatedAt = updatedAt
	return e, nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertExpense(ctx context.Context, db execer, e core.Expense) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO expenses (id, amount_cents, description, category, expense_date, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Amount.Cents, e.Description, string(e.Category), e.Date.ISO(),
		e.CreatedAt.UTC().Format(time.RFC3339Nano), e.UpdatedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("insert expense: %w", err)
	}
	return nil
}
