package http

import (
	"fmt"
	"log/slog"
	"net/http"

	"expenses/internal/core"
	"expenses/internal/log"
)

type summaryResponse struct {
	Total             float64                 `json:"total"`
	TotalFormatted    string                  `json:"total_formatted"`
	MonthlyTotal      float64                 `json:"monthly_total"`
	MonthlyFormatted  string                  `json:"monthly_total_formatted"`
	ByCategory        map[string]float64      `json:"by_category"`
	Breakdown         []categoryShareResponse `json:"breakdown"`
	TopCategory       string                  `json:"top_category"`
	TopCategoryAmount float64                 `json:"top_category_amount"`
}

type categoryShareResponse struct {
	Category        string  `json:"category"`
	Amount          float64 `json:"amount"`
	AmountFormatted string  `json:"amount_formatted"`
	Percentage      float64 `json:"percentage"`
}

func toSummaryResponse(s core.Summary) summaryResponse {
	out := summaryResponse{
		Total:             s.Total.Dollars(),
		TotalFormatted:    core.FormatUSD(s.Total),
		MonthlyTotal:      s.MonthlyTotal.Dollars(),
		MonthlyFormatted:  core.FormatUSD(s.MonthlyTotal),
		ByCategory:        make(map[string]float64, len(s.ByCategory)),
		Breakdown:         make([]categoryShareResponse, 0, len(s.ByCategory)),
		TopCategory:       string(s.Top.Category),
		TopCategoryAmount: s.Top.Amount.Dollars(),
	}
	for category, amount := range s.ByCategory {
		out.ByCategory[string(category)] = amount.Dollars()
	}
	for _, share := range core.CategoryBreakdown(s) {
		out.Breakdown = append(out.Breakdown, categoryShareResponse{
			Category:        string(share.Category),
			Amount:          share.Amount.Dollars(),
			AmountFormatted: core.FormatUSD(share.Amount),
			Percentage:      share.Percentage,
		})
	}
	return out
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	if cached, ok := s.summaryCache.Get(); ok {
		writeJSON(w, http.StatusOK, toSummaryResponse(cached))
		return
	}

	summary, err := s.service.Summary(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to compute summary",
			log.FieldError, err,
			log.FieldComponent, log.ComponentExpense,
			log.FieldOperation, log.OpSummary)
		writeError(w, http.StatusInternalServerError, "error computing summary")
		return
	}
	s.summaryCache.Set(summary)

	writeJSON(w, http.StatusOK, toSummaryResponse(summary))
}

func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	csv, filename, err := s.service.ExportCSV(r.Context(), parseFilter(r))
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to export CSV",
			log.FieldError, err,
			log.FieldComponent, log.ComponentExport,
			log.FieldOperation, log.OpExport)
		writeError(w, http.StatusInternalServerError, "error exporting expenses")
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(csv))

	slog.InfoContext(r.Context(), "CSV export served",
		log.FieldFilename, filename,
		log.FieldComponent, log.ComponentExport,
		log.FieldOperation, log.OpExport)
}
