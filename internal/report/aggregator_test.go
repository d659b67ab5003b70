package report

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/receiptvault/receiptvault/internal/apperr"
	"github.com/receiptvault/receiptvault/internal/entity"
)

func irs(s string) *string { return &s }

func receiptFor(merchant string, date time.Time, total, tax float64, cat *entity.Category) entity.Receipt {
	r := entity.Receipt{
		Merchant: merchant,
		Date:     date,
		Total:    total,
		Tax:      tax,
	}
	if cat != nil {
		r.CategoryID = &cat.ID
		r.Category = cat
	}
	return r
}

func TestResolvePeriod(t *testing.T) {
	t.Run("monthly", func(t *testing.T) {
		p, err := ResolvePeriod(PeriodMonthly, 2025, 3, time.Time{}, time.Time{})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !p.Start.Equal(time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)) {
			t.Errorf("start = %v", p.Start)
		}
		if !p.End.Equal(time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)) {
			t.Errorf("end = %v", p.End)
		}
	})

	t.Run("yearly", func(t *testing.T) {
		p, err := ResolvePeriod(PeriodYearly, 2024, 0, time.Time{}, time.Time{})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if p.End.Sub(p.Start) < 365*24*time.Hour {
			t.Errorf("year span too short: %v to %v", p.Start, p.End)
		}
	})

	t.Run("invalid month", func(t *testing.T) {
		_, err := ResolvePeriod(PeriodMonthly, 2025, 13, time.Time{}, time.Time{})
		if !errors.Is(err, apperr.ErrInvalidInput) {
			t.Errorf("error = %v, want INVALID_INPUT", err)
		}
	})

	t.Run("custom requires ordered bounds", func(t *testing.T) {
		s := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
		_, err := ResolvePeriod(PeriodCustom, 0, 0, s, s)
		if !errors.Is(err, apperr.ErrInvalidInput) {
			t.Errorf("error = %v, want INVALID_INPUT", err)
		}
	})
}

func TestBuild(t *testing.T) {
	catA := &entity.Category{Name: "Meals", IRSCategory: irs("Meals & Entertainment")}
	catA.ID = "cat-a"
	catB := &entity.Category{Name: "Travel", IRSCategory: irs("Travel")}
	catB.ID = "cat-b"

	jan := time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)
	feb := time.Date(2025, 2, 10, 0, 0, 0, 0, time.UTC)

	period, _ := ResolvePeriod(PeriodYearly, 2025, 0, time.Time{}, time.Time{})

	t.Run("category grouping", func(t *testing.T) {
		r := Build(period, []entity.Receipt{
			receiptFor("A1", jan, 10, 0, catA),
			receiptFor("A2", jan, 20, 0, catA),
			receiptFor("B1", jan, 30, 0, catB),
		})
		if len(r.ByCategory) != 2 {
			t.Fatalf("byCategory rows = %d, want 2", len(r.ByCategory))
		}
		// rows sort by total descending, ties by name ascending
		if r.ByCategory[0].CategoryName != "Meals" || r.ByCategory[0].Total != 30 || r.ByCategory[0].Count != 2 {
			t.Errorf("first row = %+v, want Meals/30/2", r.ByCategory[0])
		}
		if r.ByCategory[1].CategoryName != "Travel" || r.ByCategory[1].Count != 1 {
			t.Errorf("second row = %+v, want Travel/30/1", r.ByCategory[1])
		}
		if r.ByCategory[0].IRSCategory != "Meals & Entertainment" {
			t.Errorf("irs label = %q", r.ByCategory[0].IRSCategory)
		}
		if r.Summary.TotalSpent != 60 || r.Summary.ReceiptCount != 3 {
			t.Errorf("summary = %+v", r.Summary)
		}
	})

	t.Run("uncategorized bucket", func(t *testing.T) {
		r := Build(period, []entity.Receipt{
			receiptFor("X", jan, 5, 0, nil),
			receiptFor("Y", jan, 7, 0, nil),
		})
		if len(r.ByCategory) != 1 {
			t.Fatalf("byCategory rows = %d, want 1", len(r.ByCategory))
		}
		row := r.ByCategory[0]
		if row.CategoryName != "Uncategorized" || row.Total != 12 || row.Count != 2 {
			t.Errorf("row = %+v", row)
		}
		if row.CategoryID != "" {
			t.Errorf("uncategorized row must not carry a category id, got %q", row.CategoryID)
		}
	})

	t.Run("subtotal fallback", func(t *testing.T) {
		sub := 9.00
		withSub := receiptFor("S", jan, 10, 1, nil)
		withSub.Subtotal = &sub
		withoutSub := receiptFor("N", jan, 20, 2, nil)

		r := Build(period, []entity.Receipt{withSub, withoutSub})
		// 9.00 recorded plus (20 - 2) derived
		if r.Summary.TotalSubtotal != 27 {
			t.Errorf("totalSubtotal = %v, want 27", r.Summary.TotalSubtotal)
		}
	})

	t.Run("monthly breakdown", func(t *testing.T) {
		r := Build(period, []entity.Receipt{
			receiptFor("J1", jan, 10, 0, nil),
			receiptFor("J2", jan.AddDate(0, 0, 5), 5, 0, nil),
			receiptFor("F1", feb, 8, 0, nil),
		})
		if len(r.ByMonth) != 2 {
			t.Fatalf("byMonth rows = %d, want 2", len(r.ByMonth))
		}
		if r.ByMonth[0].Month != "2025-01" || r.ByMonth[0].Total != 15 || r.ByMonth[0].Count != 2 {
			t.Errorf("january = %+v", r.ByMonth[0])
		}
		if r.ByMonth[1].Month != "2025-02" || r.ByMonth[1].Total != 8 {
			t.Errorf("february = %+v", r.ByMonth[1])
		}
	})

	t.Run("empty input", func(t *testing.T) {
		r := Build(period, nil)
		if r.Summary.ReceiptCount != 0 || len(r.ByCategory) != 0 || len(r.ByMonth) != 0 {
			t.Errorf("empty report = %+v", r)
		}
	})
}

func TestWriteXLSX(t *testing.T) {
	period, _ := ResolvePeriod(PeriodMonthly, 2025, 3, time.Time{}, time.Time{})
	cat := &entity.Category{Name: "Meals", IRSCategory: irs("Meals & Entertainment")}
	cat.ID = "cat-a"
	receipts := []entity.Receipt{
		receiptFor("Cafe", time.Date(2025, 3, 5, 0, 0, 0, 0, time.UTC), 12.50, 1.00, cat),
		receiptFor("Nowhere", time.Date(2025, 3, 6, 0, 0, 0, 0, time.UTC), 3.00, 0, nil),
	}
	r := Build(period, receipts)

	var buf bytes.Buffer
	if err := WriteXLSX(&buf, r, receipts); err != nil {
		t.Fatalf("write workbook: %v", err)
	}
	if buf.Len() == 0 {
		t.Fatal("empty workbook")
	}
	// xlsx files are zip archives
	if got := buf.Bytes()[:2]; got[0] != 'P' || got[1] != 'K' {
		t.Errorf("workbook does not look like a zip: % x", got)
	}
}

func TestExportFilename(t *testing.T) {
	now := time.Date(2025, 4, 2, 0, 0, 0, 0, time.UTC)

	monthly, _ := ResolvePeriod(PeriodMonthly, 2025, 3, time.Time{}, time.Time{})
	if got := ExportFilename(monthly, now); got != "expense-report-2025-03-20250402.xlsx" {
		t.Errorf("monthly filename = %q", got)
	}

	yearly, _ := ResolvePeriod(PeriodYearly, 2025, 0, time.Time{}, time.Time{})
	if got := ExportFilename(yearly, now); got != "expense-report-2025-20250402.xlsx" {
		t.Errorf("yearly filename = %q", got)
	}
}
