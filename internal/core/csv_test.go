package core

import (
	"strings"
	"testing"
	"time"
)

func TestExportCSVLayout(t *testing.T) {
	expenses := []Expense{
		expense("1", 1250, CategoryFood, NewDate(2024, 6, 1)),
		expense("2", 4000, CategoryBills, NewDate(2024, 6, 15)),
	}
	expenses[0].Description = "Coffee, with milk"
	expenses[1].Description = "Electricity"

	got := ExportCSV(expenses)
	want := "Date,Description,Category,Amount\n" +
		`2024-06-01,"Coffee, with milk",Food,12.50` + "\n" +
		`2024-06-15,"Electricity",Bills,40.00`

	if got != want {
		t.Fatalf("csv mismatch:\ngot:  %q\nwant: %q", got, want)
	}
	if strings.HasSuffix(got, "\n") {
		t.Fatalf("csv must not end with a trailing newline")
	}
}

func TestExportCSVEmpty(t *testing.T) {
	if got := ExportCSV(nil); got != "Date,Description,Category,Amount" {
		t.Fatalf("empty export must still carry the header, got %q", got)
	}
}

func TestExportCSVRoundTrip(t *testing.T) {
	expenses := []Expense{
		expense("1", 999, CategoryShopping, NewDate(2024, 1, 5)),
		expense("2", 12345, CategoryTransport, NewDate(2024, 2, 6)),
	}
	expenses[0].Description = "Socks"
	expenses[1].Description = "Train ticket"

	lines := strings.Split(ExportCSV(expenses), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header + 2 rows, got %d lines", len(lines))
	}

	for i, e := range expenses {
		fields := strings.Split(lines[i+1], ",")
		if len(fields) != 4 {
			t.Fatalf("row %d: expected 4 fields, got %d", i, len(fields))
		}
		if fields[0] != e.Date.ISO() {
			t.Fatalf("row %d date = %q, want %q", i, fields[0], e.Date.ISO())
		}
		if unquoted := strings.Trim(fields[1], `"`); unquoted != e.Description {
			t.Fatalf("row %d description = %q, want %q", i, unquoted, e.Description)
		}
		if fields[2] != string(e.Category) {
			t.Fatalf("row %d category = %q, want %q", i, fields[2], e.Category)
		}
		if fields[3] != e.Amount.String() {
			t.Fatalf("row %d amount = %q, want %q", i, fields[3], e.Amount.String())
		}
	}
}

func TestExportFilename(t *testing.T) {
	now := time.Date(2024, time.June, 1, 15, 4, 5, 0, time.UTC)
	if got := ExportFilename(now); got != "expenses-2024-06-01.csv" {
		t.Fatalf("filename = %q", got)
	}
}

func TestFormatShortDate(t *testing.T) {
	if got := FormatShortDate(NewDate(2024, 6, 1)); got != "Jun 1, 2024" {
		t.Fatalf("short date = %q", got)
	}
}
