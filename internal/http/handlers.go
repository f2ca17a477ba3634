package http

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"expenses/internal/log"
	"expenses/internal/storage"
)

func (s *Server) handleExpenses(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.handleListExpenses(w, r)
	case http.MethodPost:
		s.handleCreateExpense(w, r)
	default:
		w.Header().Set("Allow", "GET, POST")
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	filter := parseFilter(r)

	matches, total, err := s.service.Query(r.Context(), filter)
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to query expenses",
			log.FieldError, err,
			log.FieldComponent, log.ComponentExpense,
			log.FieldOperation, log.OpList)
		writeError(w, http.StatusInternalServerError, "error loading expenses")
		return
	}

	writeJSON(w, http.StatusOK, toListResponse(matches, total))
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	form, err := parseFormData(r)
	if err != nil {
		slog.ErrorContext(r.Context(), "Parse form error", log.FieldError, err, "url", r.URL.Path)
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	expense, err := s.service.Create(r.Context(), form)
	if err != nil {
		if isValidationError(err) {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		slog.ErrorContext(r.Context(), "Failed to save expense",
			log.FieldError, err,
			log.FieldComponent, log.ComponentExpense,
			log.FieldOperation, log.OpCreate)
		writeError(w, http.StatusInternalServerError, "error saving expense")
		return
	}

	s.summaryCache.Invalidate()

	slog.InfoContext(r.Context(), "Expense created",
		log.FieldExpenseID, expense.ID,
		log.FieldAmountCents, expense.Amount.Cents,
		log.FieldCategory, expense.Category,
		log.FieldComponent, log.ComponentExpense,
		log.FieldOperation, log.OpCreate)

	writeJSON(w, http.StatusCreated, toExpenseResponse(expense))
}

func (s *Server) handleExpenseByID(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/expenses/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, http.StatusNotFound, "not found")
		return
	}

	switch r.Method {
	case http.MethodGet:
		s.handleGetExpense(w, r, id)
	case http.MethodPut:
		s.handleUpdateExpense(w, r, id)
	case http.MethodDelete:
		s.handleDeleteExpense(w, r, id)
	default:
		w.Header().Set("Allow", "GET, PUT, DELETE")
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) handleGetExpense(w http.ResponseWriter, r *http.Request, id string) {
	expense, err := s.service.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "expense not found")
			return
		}
		slog.ErrorContext(r.Context(), "Failed to get expense",
			log.FieldError, err,
			log.FieldExpenseID, id,
			log.FieldComponent, log.ComponentExpense,
			log.FieldOperation, log.OpRead)
		writeError(w, http.StatusInternalServerError, "error loading expense")
		return
	}

	writeJSON(w, http.StatusOK, toExpenseResponse(expense))
}

func (s *Server) handleUpdateExpense(w http.ResponseWriter, r *http.Request, id string) {
	form, err := parseFormData(r)
	if err != nil {
		slog.ErrorContext(r.Context(), "Parse form error", log.FieldError, err, "url", r.URL.Path)
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	expense, err := s.service.Update(r.Context(), id, form)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "expense not found")
			return
		}
		if isValidationError(err) {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		slog.ErrorContext(r.Context(), "Failed to update expense",
			log.FieldError, err,
			log.FieldExpenseID, id,
			log.FieldComponent, log.ComponentExpense,
			log.FieldOperation, log.OpUpdate)
		writeError(w, http.StatusInternalServerError, "error updating expense")
		return
	}

	s.summaryCache.Invalidate()

	slog.InfoContext(r.Context(), "Expense updated",
		log.FieldExpenseID, expense.ID,
		log.FieldComponent, log.ComponentExpense,
		log.FieldOperation, log.OpUpdate)

	writeJSON(w, http.StatusOK, toExpenseResponse(expense))
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request, id string) {
	if err := s.service.Delete(r.Context(), id); err != nil {
		slog.ErrorContext(r.Context(), "Failed to delete expense",
			log.FieldError, err,
			log.FieldExpenseID, id,
			log.FieldComponent, log.ComponentExpense,
			log.FieldOperation, log.OpDelete)
		writeError(w, http.StatusInternalServerError, "error deleting expense")
		return
	}

	s.summaryCache.Invalidate()

	slog.InfoContext(r.Context(), "Expense deleted",
		log.FieldExpenseID, id,
		log.FieldComponent, log.ComponentExpense,
		log.FieldOperation, log.OpDelete)

	w.WriteHeader(http.StatusNoContent)
}
