package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"expenses/internal/core"
)

type expenseResponse struct {
	ID              string    `json:"id"`
	Amount          float64   `json:"amount"`
	AmountFormatted string    `json:"amount_formatted"`
	Description     string    `json:"description"`
	Category        string    `json:"category"`
	Date            string    `json:"date"`
	DateFormatted   string    `json:"date_formatted"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

type listResponse struct {
	Expenses       []expenseResponse `json:"expenses"`
	Count          int               `json:"count"`
	Total          float64           `json:"total"`
	TotalFormatted string            `json:"total_formatted"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func toExpenseResponse(e core.Expense) expenseResponse {
	return expenseResponse{
		ID:              e.ID,
		Amount:          e.Amount.Dollars(),
		AmountFormatted: core.FormatUSD(e.Amount),
		Description:     e.Description,
		Category:        string(e.Category),
		Date:            e.Date.ISO(),
		DateFormatted:   core.FormatShortDate(e.Date),
		CreatedAt:       e.CreatedAt,
		UpdatedAt:       e.UpdatedAt,
	}
}

func toListResponse(expenses []core.Expense, total core.Money) listResponse {
	out := listResponse{
		Expenses:       make([]expenseResponse, 0, len(expenses)),
		Count:          len(expenses),
		Total:          total.Dollars(),
		TotalFormatted: core.FormatUSD(total),
	}
	for _, e := range expenses {
		out.Expenses = append(out.Expenses, toExpenseResponse(e))
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// parseFormData extracts expense form input from a JSON body or an
// urlencoded form, whichever the client sent.
func parseFormData(r *http.Request) (core.FormData, error) {
	if strings.Contains(r.Header.Get("Content-Type"), "application/json") {
		var body struct {
			Amount      string `json:"amount"`
			Description string `json:"description"`
			Category    string `json:"category"`
			Date        string `json:"date"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			return core.FormData{}, err
		}
		return core.FormData{
			Amount:      strings.TrimSpace(body.Amount),
			Description: sanitizeInput(body.Description),
			Category:    strings.TrimSpace(body.Category),
			Date:        strings.TrimSpace(body.Date),
		}, nil
	}

	if err := r.ParseForm(); err != nil {
		return core.FormData{}, err
	}
	return core.FormData{
		Amount:      strings.TrimSpace(r.Form.Get("amount")),
		Description: sanitizeInput(r.Form.Get("description")),
		Category:    strings.TrimSpace(r.Form.Get("category")),
		Date:        strings.TrimSpace(r.Form.Get("date")),
	}, nil
}

// parseFilter builds a core.Filter from query parameters. Unset or
// unparseable values leave the clause open, matching the engine's
// vacuously-true semantics.
func parseFilter(r *http.Request) core.Filter {
	q := r.URL.Query()
	f := core.Filter{
		Search: strings.TrimSpace(q.Get("q")),
	}
	if v := strings.TrimSpace(q.Get("category")); v != "" {
		f.Category = core.Category(v)
	}
	if v := strings.TrimSpace(q.Get("from")); v != "" {
		if d, err := core.ParseDate(v); err == nil {
			f.From = d
		}
	}
	if v := strings.TrimSpace(q.Get("to")); v != "" {
		if d, err := core.ParseDate(v); err == nil {
			f.To = d
		}
	}
	return f
}

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

// isValidationError reports whether err stems from bad user input rather
// than an internal failure.
func isValidationError(err error) bool {
	for _, sentinel := range []error{
		core.ErrInvalidAmount,
		core.ErrEmptyDescription,
		core.ErrDescriptionTooLong,
		core.ErrInvalidCategory,
		core.ErrInvalidDate,
		core.ErrEmptyID,
	} {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}
