package core

import (
	"errors"
	"strings"
	"time"
)

const (
	CategoryFood          Category = "Food"
	CategoryTransport     Category = "Transportation"
	CategoryEntertainment Category = "Entertainment"
	CategoryShopping      Category = "Shopping"
	CategoryBills         Category = "Bills"
	CategoryOther         Category = "Other"

	// CategoryAll is only valid inside a Filter, never on an Expense.
	CategoryAll Category = "All"
)

// Categories is the canonical category ordering. It seeds every summary
// bucket and breaks ties when selecting the top category.
var Categories = []Category{
	CategoryFood,
	CategoryTransport,
	CategoryEntertainment,
	CategoryShopping,
	CategoryBills,
	CategoryOther,
}

type (
	Category string

	Date struct {
		time.Time
	}

	Expense struct {
		ID          string
		Amount      Money
		Description string
		Category    Category
		Date        Date
		CreatedAt   time.Time
		UpdatedAt   time.Time
	}

	// FormData is the raw user input produced by the form collaborator.
	FormData struct {
		Amount      string
		Description string
		Category    string
		Date        string
	}
)

var (
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrEmptyDescription   = errors.New("empty description")
	ErrDescriptionTooLong = errors.New("description too long (max 200 characters)")
	ErrInvalidCategory    = errors.New("invalid category")
	ErrInvalidDate        = errors.New("invalid date")
	ErrEmptyID            = errors.New("empty expense id")
)

// Valid reports whether c is one of the six expense categories.
func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// OrOther normalizes an unknown category to Other. Aggregations index by
// category, so a stale persisted value must land in a bucket that exists.
func (c Category) OrOther() Category {
	if c.Valid() {
		return c
	}
	return CategoryOther
}

// ParseCategory parses a user-supplied category token.
func ParseCategory(s string) (Category, error) {
	c := Category(strings.TrimSpace(s))
	if !c.Valid() {
		return "", ErrInvalidCategory
	}
	return c, nil
}

// NewDate creates a Date at UTC midnight for year, month, day.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses an ISO calendar date (2006-01-02).
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", strings.TrimSpace(s))
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	return Date{Time: t}, nil
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

// ISO renders the date as 2006-01-02. Lexicographic order of ISO strings
// matches chronological order, which the filter engine relies on.
func (d Date) ISO() string {
	return d.Format("2006-01-02")
}

// SameMonth reports whether d falls in the same calendar month and year as t.
func (d Date) SameMonth(t time.Time) bool {
	return d.Year() == t.Year() && d.Month() == t.Month()
}

func (d Date) String() string {
	return d.ISO()
}

func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.ISO() + `"`), nil
}

func (d *Date) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func (e Expense) Validate() error {
	if strings.TrimSpace(e.ID) == "" {
		return ErrEmptyID
	}
	if err := e.Amount.Validate(); err != nil {
		return err
	}
	if len(strings.TrimSpace(e.Description)) == 0 {
		return ErrEmptyDescription
	}
	if len(e.Description) > 200 {
		return ErrDescriptionTooLong
	}
	if !e.Category.Valid() {
		return ErrInvalidCategory
	}
	if err := e.Date.Validate(); err != nil {
		return err
	}
	return nil
}

// NewExpense builds a validated expense from form input. The caller supplies
// the id and the creation instant; both audit timestamps start equal.
func NewExpense(form FormData, id string, now time.Time) (Expense, error) {
	cents, err := ParseDecimalToCents(form.Amount)
	if err != nil {
		return Expense{}, err
	}
	category, err := ParseCategory(form.Category)
	if err != nil {
		return Expense{}, err
	}
	date, err := ParseDate(form.Date)
	if err != nil {
		return Expense{}, err
	}

	e := Expense{
		ID:          id,
		Amount:      Money{Cents: cents},
		Description: strings.TrimSpace(form.Description),
		Category:    category,
		Date:        date,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := e.Validate(); err != nil {
		return Expense{}, err
	}
	return e, nil
}

// ApplyForm replaces the user-editable fields of e from form input,
// preserving ID and CreatedAt and refreshing UpdatedAt.
func (e *Expense) ApplyForm(form FormData, now time.Time) error {
	updated, err := NewExpense(form, e.ID, now)
	if err != nil {
		return err
	}
	updated.CreatedAt = e.CreatedAt
	updated.UpdatedAt = now
	*e = updated
	return nil
}
