package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/receiptvault/receiptvault/internal/entity"
)

const (
	sheetSummary  = "Summary"
	sheetCategory = "By Category"
	sheetReceipts = "Receipts"
)

// WriteXLSX renders a report and its receipts as an Excel workbook suitable
// for handing to an accountant.
func WriteXLSX(w io.Writer, r *Report, receipts []entity.Receipt) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := writeSummarySheet(f, r); err != nil {
		return err
	}
	if err := writeCategorySheet(f, r); err != nil {
		return err
	}
	if err := writeReceiptsSheet(f, receipts); err != nil {
		return err
	}

	// excelize creates a default sheet named Sheet1; ours replace it
	if idx, err := f.GetSheetIndex(sheetSummary); err == nil {
		f.SetActiveSheet(idx)
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("report: delete default sheet: %w", err)
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("report: write workbook: %w", err)
	}
	return nil
}

func writeSummarySheet(f *excelize.File, r *Report) error {
	if _, err := f.NewSheet(sheetSummary); err != nil {
		return fmt.Errorf("report: create sheet: %w", err)
	}
	rows := [][]any{
		{"Expense Report"},
		{"Period", string(r.Period.Type)},
		{"From", r.Period.Start.Format("2006-01-02")},
		{"To", r.Period.End.AddDate(0, 0, -1).Format("2006-01-02")},
		{},
		{"Total Spent", r.Summary.TotalSpent},
		{"Total Tax", r.Summary.TotalTax},
		{"Total Subtotal", r.Summary.TotalSubtotal},
		{"Receipt Count", r.Summary.ReceiptCount},
		{},
		{"Monthly Breakdown"},
		{"Month", "Total", "Receipts"},
	}
	for _, mt := range r.ByMonth {
		rows = append(rows, []any{mt.Month, mt.Total, mt.Count})
	}
	return writeRows(f, sheetSummary, rows)
}

func writeCategorySheet(f *excelize.File, r *Report) error {
	if _, err := f.NewSheet(sheetCategory); err != nil {
		return fmt.Errorf("report: create sheet: %w", err)
	}
	rows := [][]any{{"Category", "IRS Category", "Total", "Receipts"}}
	for _, ct := range r.ByCategory {
		rows = append(rows, []any{ct.CategoryName, ct.IRSCategory, ct.Total, ct.Count})
	}
	return writeRows(f, sheetCategory, rows)
}

func writeReceiptsSheet(f *excelize.File, receipts []entity.Receipt) error {
	if _, err := f.NewSheet(sheetReceipts); err != nil {
		return fmt.Errorf("report: create sheet: %w", err)
	}
	rows := [][]any{{"Date", "Merchant", "Category", "Total", "Tax", "Payment Method", "Notes"}}
	for i := range receipts {
		rec := &receipts[i]
		payment := ""
		if rec.PaymentMethod != nil {
			payment = *rec.PaymentMethod
		}
		notes := ""
		if rec.Notes != nil {
			notes = *rec.Notes
		}
		rows = append(rows, []any{
			rec.Date.UTC().Format("2006-01-02"),
			rec.Merchant,
			rec.CategoryName(),
			rec.Total,
			rec.Tax,
			payment,
			notes,
		})
	}
	return writeRows(f, sheetReceipts, rows)
}

func writeRows(f *excelize.File, sheet string, rows [][]any) error {
	for i, row := range rows {
		if len(row) == 0 {
			continue
		}
		cell := fmt.Sprintf("A%d", i+1)
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("report: write row %d on %s: %w", i+1, sheet, err)
		}
	}
	return nil
}

// ExportFilename derives the attachment name for a report download.
func ExportFilename(p Period, now time.Time) string {
	var span string
	switch p.Type {
	case PeriodMonthly:
		span = p.Start.Format("2006-01")
	case PeriodYearly:
		span = p.Start.Format("2006")
	default:
		span = p.Start.Format("20060102") + "-" + p.End.AddDate(0, 0, -1).Format("20060102")
	}
	return strings.ToLower(fmt.Sprintf("expense-report-%s-%s.xlsx", span, now.UTC().Format("20060102")))
}
