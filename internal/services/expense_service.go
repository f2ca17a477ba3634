package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"expenses/internal/amqp"
	"expenses/internal/core"
)

// Repository is the storage collaborator contract. The service only ever
// works on snapshots it gets back from these calls.
type Repository interface {
	Load(ctx context.Context) ([]core.Expense, error)
	Get(ctx context.Context, id string) (core.Expense, error)
	Append(ctx context.Context, e core.Expense) ([]core.Expense, error)
	Replace(ctx context.Context, e core.Expense) ([]core.Expense, error)
	Remove(ctx context.Context, id string) ([]core.Expense, error)
	Close() error
}

// ExpenseService orchestrates expense operations across storage and AMQP.
// It owns id generation and audit timestamps; the pure computation lives
// in core.
type ExpenseService struct {
	repo       Repository
	amqpClient *amqp.Client
	now        func() time.Time
}

func NewExpenseService(repo Repository, amqpClient *amqp.Client) *ExpenseService {
	return &ExpenseService{
		repo:       repo,
		amqpClient: amqpClient,
		now:        time.Now,
	}
}

// Get returns a single expense by id.
func (s *ExpenseService) Get(ctx context.Context, id string) (core.Expense, error) {
	return s.repo.Get(ctx, id)
}

// Create validates form input, assigns an id and audit timestamps, saves
// the expense and publishes a change notification.
func (s *ExpenseService) Create(ctx context.Context, form core.FormData) (core.Expense, error) {
	expense, err := core.NewExpense(form, uuid.NewString(), s.now())
	if err != nil {
		return core.Expense{}, err
	}

	if _, err := s.repo.Append(ctx, expense); err != nil {
		return core.Expense{}, fmt.Errorf("save expense: %w", err)
	}

	s.publishChange(ctx, expense.ID, amqp.ActionCreated)

	return expense, nil
}

// Update performs a full-record replace-by-id: user-editable fields come
// from the form, id and createdAt are preserved, updatedAt is refreshed.
func (s *ExpenseService) Update(ctx context.Context, id string, form core.FormData) (core.Expense, error) {
	expense, err := s.repo.Get(ctx, id)
	if err != nil {
		return core.Expense{}, err
	}

	if err := expense.ApplyForm(form, s.now()); err != nil {
		return core.Expense{}, err
	}

	if _, err := s.repo.Replace(ctx, expense); err != nil {
		return core.Expense{}, fmt.Errorf("replace expense: %w", err)
	}

	s.publishChange(ctx, expense.ID, amqp.ActionUpdated)

	return expense, nil
}

// Delete removes an expense by id and publishes a change notification.
func (s *ExpenseService) Delete(ctx context.Context, id string) error {
	if _, err := s.repo.Remove(ctx, id); err != nil {
		return fmt.Errorf("remove expense: %w", err)
	}

	s.publishChange(ctx, id, amqp.ActionDeleted)

	return nil
}

// Summary computes the aggregate view over the full collection, anchored
// at the current wall clock.
func (s *ExpenseService) Summary(ctx context.Context) (core.Summary, error) {
	expenses, err := s.repo.Load(ctx)
	if err != nil {
		return core.Summary{}, fmt.Errorf("load expenses: %w", err)
	}
	return core.Summarize(expenses, s.now()), nil
}

// Query returns the expenses matching the filter, date-descending, with
// the matched subset's total.
func (s *ExpenseService) Query(ctx context.Context, f core.Filter) ([]core.Expense, core.Money, error) {
	expenses, err := s.repo.Load(ctx)
	if err != nil {
		return nil, core.Money{}, fmt.Errorf("load expenses: %w", err)
	}
	matches, total := core.FilterAndSort(expenses, f)
	return matches, total, nil
}

// ExportCSV serializes the filtered collection and returns the CSV text
// together with its dated download filename.
func (s *ExpenseService) ExportCSV(ctx context.Context, f core.Filter) (string, string, error) {
	matches, _, err := s.Query(ctx, f)
	if err != nil {
		return "", "", err
	}
	return core.ExportCSV(matches), core.ExportFilename(s.now()), nil
}

// publishChange notifies the export worker. The broker being down must not
// fail the request: the expense is already committed locally.
func (s *ExpenseService) publishChange(ctx context.Context, id, action string) {
	if s.amqpClient == nil {
		slog.DebugContext(ctx, "AMQP client not available, skipping change message",
			"id", id, "action", action)
		return
	}

	if err := s.amqpClient.PublishExpenseChanged(ctx, id, action); err != nil {
		slog.ErrorContext(ctx, "Failed to publish change message",
			"id", id, "action", action, "error", err)
	}
}

// Close closes both storage and AMQP connections.
func (s *ExpenseService) Close() error {
	var errs []error

	if s.repo != nil {
		if err := s.repo.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}

	if s.amqpClient != nil {
		if err := s.amqpClient.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close expense service: %v", errs)
	}

	return nil
}
