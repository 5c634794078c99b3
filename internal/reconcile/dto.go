package reconcile

import (
	"fmt"
	"time"

	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// SummaryQuery carries the parsed report parameters.
type SummaryQuery struct {
	From  string `json:"from" validate:"omitempty,datetime=2006-01-02"`
	To    string `json:"to" validate:"omitempty,datetime=2006-01-02"`
	Year  int    `json:"year" validate:"omitempty,gte=2000,lte=2200"`
	Month int    `json:"month" validate:"omitempty,gte=1,lte=12"`
	Model string `json:"model" validate:"required,oneof=orders collections"`
}

// Window resolves the query to a report window. Explicit bounds win over
// year/month shorthand; year without month means the whole year.
func (q SummaryQuery) Window() (shared.Window, error) {
	if q.From != "" || q.To != "" {
		var w shared.Window
		if q.From != "" {
			from, err := time.Parse("2006-01-02", q.From)
			if err != nil {
				return shared.Window{}, fmt.Errorf("parse from: %w", err)
			}
			w.From = from
		}
		if q.To != "" {
			to, err := time.Parse("2006-01-02", q.To)
			if err != nil {
				return shared.Window{}, fmt.Errorf("parse to: %w", err)
			}
			// Query bounds are inclusive dates.
			w.To = to.AddDate(0, 0, 1)
		}
		return w, nil
	}
	if q.Year != 0 && q.Month != 0 {
		return shared.MonthWindow(q.Year, time.Month(q.Month)), nil
	}
	if q.Year != 0 {
		return shared.YearWindow(q.Year), nil
	}
	return shared.Window{}, nil
}

// CarryForwardRequest is the POST body for carrying a period forward.
type CarryForwardRequest struct {
	Year  int    `json:"year" validate:"required,gte=2000,lte=2200"`
	Month int    `json:"month" validate:"required,gte=1,lte=12"`
	Model string `json:"model" validate:"required,oneof=orders collections"`
}

type summaryResponse struct {
	Period  string           `json:"period"`
	Summary FinancialSummary `json:"summary"`
}

type orderBalancesResponse struct {
	Orders      []OrderFinancials `json:"orders"`
	Diagnostics []Diagnostic      `json:"diagnostics"`
}
