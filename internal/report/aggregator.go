// Package report aggregates a user's receipts into spending reports and
// exports them for tax preparation.
package report

import (
	"fmt"
	"sort"
	"time"

	"github.com/receiptvault/receiptvault/internal/apperr"
	"github.com/receiptvault/receiptvault/internal/entity"
)

// PeriodType selects how a report's date range is derived.
type PeriodType string

const (
	PeriodMonthly PeriodType = "monthly"
	PeriodYearly  PeriodType = "yearly"
	PeriodCustom  PeriodType = "custom"
)

// Period is the resolved inclusive-start, exclusive-end date range.
type Period struct {
	Type  PeriodType `json:"type"`
	Start time.Time  `json:"startDate"`
	End   time.Time  `json:"endDate"`
}

// Summary holds the report's top-line numbers.
type Summary struct {
	TotalSpent    float64 `json:"totalSpent"`
	TotalTax      float64 `json:"totalTax"`
	TotalSubtotal float64 `json:"totalSubtotal"`
	ReceiptCount  int     `json:"receiptCount"`
}

// CategoryTotal is one row of the per-category breakdown.
type CategoryTotal struct {
	CategoryID   string  `json:"categoryId,omitempty"`
	CategoryName string  `json:"categoryName"`
	IRSCategory  string  `json:"irsCategory,omitempty"`
	Total        float64 `json:"total"`
	Count        int     `json:"count"`
}

// MonthTotal is one row of the per-month breakdown, keyed YYYY-MM.
type MonthTotal struct {
	Month string  `json:"month"`
	Total float64 `json:"total"`
	Count int     `json:"count"`
}

// Report is the full aggregation over one period.
type Report struct {
	Period     Period          `json:"period"`
	Summary    Summary         `json:"summary"`
	ByCategory []CategoryTotal `json:"byCategory"`
	ByMonth    []MonthTotal    `json:"byMonth"`
}

// ResolvePeriod turns request parameters into a concrete range. Monthly
// takes year and month; yearly takes year; custom takes explicit bounds.
func ResolvePeriod(pt PeriodType, year, month int, start, end time.Time) (Period, error) {
	switch pt {
	case PeriodMonthly:
		if month < 1 || month > 12 {
			return Period{}, apperr.WithMessage(apperr.ErrInvalidInput, "month must be between 1 and 12")
		}
		s := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
		return Period{Type: pt, Start: s, End: s.AddDate(0, 1, 0)}, nil
	case PeriodYearly:
		s := time.Date(year, 1, 1, 0, 0, 0, 0, time.UTC)
		return Period{Type: pt, Start: s, End: s.AddDate(1, 0, 0)}, nil
	case PeriodCustom:
		if start.IsZero() || end.IsZero() || !end.After(start) {
			return Period{}, apperr.WithMessage(apperr.ErrInvalidInput, "custom period requires startDate before endDate")
		}
		return Period{Type: pt, Start: start, End: end}, nil
	default:
		return Period{}, apperr.WithMessage(apperr.ErrInvalidInput, fmt.Sprintf("unknown period type %q", pt))
	}
}

// Build aggregates receipts into a report. Receipts without a subtotal
// contribute total minus tax to the subtotal line. Receipts without a
// category group under the uncategorized label; a category's IRS label
// comes from the first receipt seen for it.
func Build(period Period, receipts []entity.Receipt) *Report {
	r := &Report{
		Period:     period,
		ByCategory: []CategoryTotal{},
		ByMonth:    []MonthTotal{},
	}

	byCategory := map[string]*CategoryTotal{}
	byMonth := map[string]*MonthTotal{}

	for i := range receipts {
		rec := &receipts[i]

		r.Summary.TotalSpent += rec.Total
		r.Summary.TotalTax += rec.Tax
		if rec.Subtotal != nil {
			r.Summary.TotalSubtotal += *rec.Subtotal
		} else {
			r.Summary.TotalSubtotal += rec.Total - rec.Tax
		}
		r.Summary.ReceiptCount++

		name := rec.CategoryName()
		ct, ok := byCategory[name]
		if !ok {
			ct = &CategoryTotal{CategoryName: name}
			if rec.Category != nil {
				ct.CategoryID = rec.Category.ID
				ct.IRSCategory = rec.Category.IRSLabel()
			}
			byCategory[name] = ct
		}
		ct.Total += rec.Total
		ct.Count++

		month := rec.Date.UTC().Format("2006-01")
		mt, ok := byMonth[month]
		if !ok {
			mt = &MonthTotal{Month: month}
			byMonth[month] = mt
		}
		mt.Total += rec.Total
		mt.Count++
	}

	for _, ct := range byCategory {
		r.ByCategory = append(r.ByCategory, *ct)
	}
	sort.Slice(r.ByCategory, func(i, j int) bool {
		a, b := r.ByCategory[i], r.ByCategory[j]
		if a.Total != b.Total {
			return a.Total > b.Total
		}
		return a.CategoryName < b.CategoryName
	})

	for _, mt := range byMonth {
		r.ByMonth = append(r.ByMonth, *mt)
	}
	sort.Slice(r.ByMonth, func(i, j int) bool {
		return r.ByMonth[i].Month < r.ByMonth[j].Month
	})

	return r
}
