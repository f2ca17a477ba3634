// Package core holds the pure expense domain: the entity, money handling,
// the summary and filter engines, and the CSV export codec. Nothing in this
// package touches storage, the clock, or any other ambient state.
package core

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// Money is an amount in cents. Calculations stay in integer cents so that
// summing and bucketing never accumulate floating-point drift.
type Money struct {
	Cents int64
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

// Add returns m + other.
func (m Money) Add(other Money) Money {
	return Money{Cents: m.Cents + other.Cents}
}

// Dollars returns the dollar value as a float64 for display purposes.
func (m Money) Dollars() float64 {
	return float64(m.Cents) / 100.0
}

// String renders the amount as a plain two-decimal string, e.g. "12.50".
func (m Money) String() string {
	neg := m.Cents < 0
	cents := m.Cents
	if neg {
		cents = -cents
	}
	s := fmt.Sprintf("%d.%02d", cents/100, cents%100)
	if neg {
		return "-" + s
	}
	return s
}

func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.Dollars())
}

func (m *Money) UnmarshalJSON(b []byte) error {
	var dollars float64
	if err := json.Unmarshal(b, &dollars); err != nil {
		return err
	}
	if dollars < 0 {
		return ErrInvalidAmount
	}
	m.Cents = int64(dollars*100 + 0.5)
	return nil
}

// ParseDecimalToCents converts a decimal string to cents with half-up
// rounding on the third decimal place. It accepts both dot (12.34) and
// comma (12,34) separators. Returns an error for invalid formats, signs,
// or zero amounts.
func ParseDecimalToCents(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		// Only positive values allowed
		return 0, ErrInvalidAmount
	}
	parts := strings.Split(s, ".")
	if len(parts) > 2 {
		return 0, ErrInvalidAmount
	}
	intPart := parts[0]
	fracPart := ""
	if len(parts) == 2 {
		fracPart = parts[1]
	}
	if intPart == "" {
		intPart = "0"
	}
	for _, r := range intPart {
		if !unicode.IsDigit(r) {
			return 0, ErrInvalidAmount
		}
	}
	for _, r := range fracPart {
		if !unicode.IsDigit(r) {
			return 0, ErrInvalidAmount
		}
	}
	iv, err := strconv.ParseInt(intPart, 10, 64)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	// Prevent overflow when multiplying by 100
	const maxSafeInt64 = (1<<63 - 1) / 100
	if iv > maxSafeInt64 {
		return 0, ErrInvalidAmount
	}
	var fracCents int64
	if len(fracPart) > 0 {
		d1 := int64(fracPart[0] - '0')
		fracCents = d1 * 10
		if len(fracPart) > 1 {
			d2 := int64(fracPart[1] - '0')
			fracCents += d2
			if len(fracPart) > 2 && fracPart[2] >= '5' {
				fracCents++
			}
		}
	}
	cents := iv*100 + fracCents
	if cents <= 0 {
		return 0, ErrInvalidAmount
	}
	return cents, nil
}

// FormatUSD formats the amount as US currency text with thousands
// separators, e.g. "$1,234.56". Presentational only.
func FormatUSD(m Money) string {
	neg := m.Cents < 0
	cents := m.Cents
	if neg {
		cents = -cents
	}
	dollars := cents / 100
	rem := cents % 100

	digits := strconv.FormatInt(dollars, 10)
	var grouped strings.Builder
	for i, r := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			grouped.WriteByte(',')
		}
		grouped.WriteRune(r)
	}

	s := fmt.Sprintf("$%s.%02d", grouped.String(), rem)
	if neg {
		return "-" + s
	}
	return s
}
