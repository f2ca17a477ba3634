package core

import (
	"sort"
	"strings"
)

// Filter selects a subset of expenses. Every field is optional: the zero
// Filter matches everything. All clauses are AND-ed together.
type Filter struct {
	Category Category // empty or CategoryAll matches any category
	From     Date     // inclusive lower bound; zero means unbounded
	To       Date     // inclusive upper bound; zero means unbounded
	Search   string   // case-insensitive substring over the description
}

// Matches reports whether e satisfies every clause of f.
func (f Filter) Matches(e Expense) bool {
	if f.Category != "" && f.Category != CategoryAll && e.Category != f.Category {
		return false
	}
	if !f.From.IsZero() && e.Date.Before(f.From.Time) {
		return false
	}
	if !f.To.IsZero() && e.Date.After(f.To.Time) {
		return false
	}
	if f.Search != "" && !containsFold(e.Description, f.Search) {
		return false
	}
	return true
}

// FilterAndSort returns the expenses matching f, sorted by date descending,
// together with the matched subset's total. Same-date expenses keep their
// relative input order, so the sort must stay stable.
func FilterAndSort(expenses []Expense, f Filter) ([]Expense, Money) {
	matches := make([]Expense, 0, len(expenses))
	var total Money
	for _, e := range expenses {
		if f.Matches(e) {
			matches = append(matches, e)
			total = total.Add(e.Amount)
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Date.After(matches[j].Date.Time)
	})

	return matches, total
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}
