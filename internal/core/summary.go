package core

import (
	"sort"
	"time"
)

// CategoryAmount pairs a category with its aggregated amount.
type CategoryAmount struct {
	Category Category `json:"category"`
	Amount   Money    `json:"amount"`
}

// Summary is the derived aggregate view over a collection of expenses.
// It is recomputed on demand and never persisted.
type Summary struct {
	Total        Money              `json:"total"`
	MonthlyTotal Money              `json:"monthly_total"`
	ByCategory   map[Category]Money `json:"by_category"`
	Top          CategoryAmount     `json:"top_category"`
}

// Summarize computes the aggregate summary of expenses. The reference
// instant `now` anchors the current-month total; callers normally pass
// time.Now() but tests pin it.
//
// Every one of the six categories gets a bucket even when no expense hits
// it. An expense carrying an unknown category lands in Other. The top
// category is the bucket with the maximum sum; ties resolve to the first
// bucket in canonical Categories order, so an all-zero collection yields
// {Other, 0}.
func Summarize(expenses []Expense, now time.Time) Summary {
	byCategory := make(map[Category]Money, len(Categories))
	for _, c := range Categories {
		byCategory[c] = Money{}
	}

	var total, monthly Money
	for _, e := range expenses {
		total = total.Add(e.Amount)
		if e.Date.SameMonth(now) {
			monthly = monthly.Add(e.Amount)
		}
		bucket := e.Category.OrOther()
		byCategory[bucket] = byCategory[bucket].Add(e.Amount)
	}

	// Strictly-greater scan seeded with {Other, 0}: an exact tie between
	// two categories keeps the earlier one in canonical order, and an
	// all-zero collection keeps the seed.
	top := CategoryAmount{Category: CategoryOther}
	for _, c := range Categories {
		if byCategory[c].Cents > top.Amount.Cents {
			top = CategoryAmount{Category: c, Amount: byCategory[c]}
		}
	}

	return Summary{
		Total:        total,
		MonthlyTotal: monthly,
		ByCategory:   byCategory,
		Top:          top,
	}
}

// CategoryShare is one category's slice of the overall total.
type CategoryShare struct {
	Category   Category `json:"category"`
	Amount     Money    `json:"amount"`
	Percentage float64  `json:"percentage"`
}

// CategoryBreakdown derives each category's share of the summary total as a
// percentage, dropping empty buckets and sorting by amount descending.
// Equal amounts keep canonical Categories order. A zero total yields no
// shares, so percentages never divide by zero.
func CategoryBreakdown(s Summary) []CategoryShare {
	shares := make([]CategoryShare, 0, len(Categories))
	for _, c := range Categories {
		amount := s.ByCategory[c]
		if amount.Cents == 0 {
			continue
		}
		share := CategoryShare{Category: c, Amount: amount}
		if s.Total.Cents > 0 {
			share.Percentage = float64(amount.Cents) / float64(s.Total.Cents) * 100
		}
		shares = append(shares, share)
	}

	sort.SliceStable(shares, func(i, j int) bool {
		return shares[i].Amount.Cents > shares[j].Amount.Cents
	})

	return shares
}
