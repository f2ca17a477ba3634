package core

import (
	"strings"
	"time"
)

var csvHeader = []string{"Date", "Description", "Category", "Amount"}

// ExportCSV serializes expenses as CSV text: a Date,Description,Category,Amount
// header followed by one row per expense. The description is double-quote
// wrapped to tolerate embedded commas; rows are newline-joined with no
// trailing newline. This layout is the exported artifact format and must
// not drift.
func ExportCSV(expenses []Expense) string {
	lines := make([]string, 0, len(expenses)+1)
	lines = append(lines, strings.Join(csvHeader, ","))
	for _, e := range expenses {
		fields := []string{
			e.Date.ISO(),
			`"` + e.Description + `"`,
			string(e.Category),
			e.Amount.String(),
		}
		lines = append(lines, strings.Join(fields, ","))
	}
	return strings.Join(lines, "\n")
}

// ExportFilename returns the download name for a CSV export generated at
// the given instant, e.g. "expenses-2024-06-01.csv".
func ExportFilename(now time.Time) string {
	return "expenses-" + now.Format("2006-01-02") + ".csv"
}

// FormatShortDate renders a date as short human-readable text,
// e.g. "Jun 1, 2024". Presentational only.
func FormatShortDate(d Date) string {
	return d.Format("Jan 2, 2006")
}
