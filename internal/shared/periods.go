package shared

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// periodLabelLayout renders window bounds inside carry-forward descriptions.
const periodLabelLayout = "2006/01/02"

// ErrInvalidPeriodLabel indicates a label that does not parse back to a window.
var ErrInvalidPeriodLabel = errors.New("period label invalid")

// Window bounds the records a report considers. From is inclusive, To exclusive.
type Window struct {
	From time.Time
	To   time.Time
}

// MonthWindow returns the window covering a calendar month.
func MonthWindow(year int, month time.Month) Window {
	from := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	return Window{From: from, To: from.AddDate(0, 1, 0)}
}

// YearWindow returns the window covering a calendar year.
func YearWindow(year int) Window {
	from := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	return Window{From: from, To: from.AddDate(1, 0, 0)}
}

// Contains reports whether t falls inside the window. A zero window matches everything.
func (w Window) Contains(t time.Time) bool {
	if !w.From.IsZero() && t.Before(w.From) {
		return false
	}
	if !w.To.IsZero() && !t.Before(w.To) {
		return false
	}
	return true
}

// IsZero reports whether both bounds are unset.
func (w Window) IsZero() bool {
	return w.From.IsZero() && w.To.IsZero()
}

// Label renders the window as a human-readable period, e.g. "2024/01/01 - 2024/01/31".
// The upper bound is shown inclusive so the label reads naturally on statements.
func (w Window) Label() string {
	to := w.To
	if !to.IsZero() {
		to = to.AddDate(0, 0, -1)
	}
	return fmt.Sprintf("%s - %s", w.From.Format(periodLabelLayout), to.Format(periodLabelLayout))
}

// ParsePeriodLabel reconstructs a window from its label.
func ParsePeriodLabel(label string) (Window, error) {
	parts := strings.Split(label, " - ")
	if len(parts) != 2 {
		return Window{}, ErrInvalidPeriodLabel
	}
	from, err := time.Parse(periodLabelLayout, strings.TrimSpace(parts[0]))
	if err != nil {
		return Window{}, fmt.Errorf("%w: %v", ErrInvalidPeriodLabel, err)
	}
	to, err := time.Parse(periodLabelLayout, strings.TrimSpace(parts[1]))
	if err != nil {
		return Window{}, fmt.Errorf("%w: %v", ErrInvalidPeriodLabel, err)
	}
	if to.Before(from) {
		return Window{}, ErrInvalidPeriodLabel
	}
	return Window{From: from, To: to.AddDate(0, 0, 1)}, nil
}

// MonthKey formats a timestamp as the trend group-by key, e.g. "2024-03".
func MonthKey(t time.Time) string {
	return fmt.Sprintf("%04d-%02d", t.Year(), int(t.Month()))
}
