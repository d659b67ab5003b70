package insights

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/receiptvault/receiptvault/internal/entity"
)

type stubModel struct {
	response string
	err      error
}

func (s *stubModel) AnalyzeSpending(context.Context, []byte) (string, error) {
	return s.response, s.err
}

func receiptAt(merchant string, date time.Time, total float64) entity.Receipt {
	return entity.Receipt{Merchant: merchant, Date: date, Total: total}
}

func TestCompute(t *testing.T) {
	jan := time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)
	feb := time.Date(2025, 2, 10, 0, 0, 0, 0, time.UTC)

	t.Run("monthly totals", func(t *testing.T) {
		out := Compute([]entity.Receipt{
			receiptAt("A", jan, 10),
			receiptAt("B", jan, 5),
			receiptAt("C", feb, 7),
		})
		if len(out.MonthlySpend) != 2 {
			t.Fatalf("months = %d, want 2", len(out.MonthlySpend))
		}
		if out.MonthlySpend[0].Month != "2025-01" || out.MonthlySpend[0].Total != 15 {
			t.Errorf("january = %+v", out.MonthlySpend[0])
		}
	})

	t.Run("top merchants capped at five", func(t *testing.T) {
		var receipts []entity.Receipt
		for i := 0; i < 8; i++ {
			receipts = append(receipts, receiptAt(fmt.Sprintf("M%d", i), jan, float64(i+1)))
		}
		out := Compute(receipts)
		if len(out.TopMerchants) != 5 {
			t.Fatalf("merchants = %d, want 5", len(out.TopMerchants))
		}
		if out.TopMerchants[0].Merchant != "M7" || out.TopMerchants[0].Total != 8 {
			t.Errorf("top merchant = %+v", out.TopMerchants[0])
		}
	})

	t.Run("merchant totals accumulate", func(t *testing.T) {
		out := Compute([]entity.Receipt{
			receiptAt("Cafe", jan, 4),
			receiptAt("Cafe", feb, 6),
		})
		if len(out.TopMerchants) != 1 {
			t.Fatalf("merchants = %+v", out.TopMerchants)
		}
		if out.TopMerchants[0].Total != 10 || out.TopMerchants[0].Count != 2 {
			t.Errorf("cafe = %+v", out.TopMerchants[0])
		}
	})

	t.Run("uncategorized breakdown", func(t *testing.T) {
		out := Compute([]entity.Receipt{receiptAt("X", jan, 3)})
		if len(out.CategoryBreakdown) != 1 || out.CategoryBreakdown[0].CategoryName != "Uncategorized" {
			t.Errorf("breakdown = %+v", out.CategoryBreakdown)
		}
	})
}

func TestGenerate(t *testing.T) {
	jan := time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)
	receipts := []entity.Receipt{receiptAt("Cafe", jan, 20)}

	t.Run("model enriches", func(t *testing.T) {
		model := &stubModel{response: `{"trends":["Spending is flat"],"suggestions":["Batch your coffee runs"],"predictedNextMonth":22.5}`}
		out := NewService(model, nil).Generate(context.Background(), receipts)
		if len(out.Trends) != 1 || out.Trends[0] != "Spending is flat" {
			t.Errorf("trends = %v", out.Trends)
		}
		if out.PredictedNextMonth == nil || *out.PredictedNextMonth != 22.5 {
			t.Errorf("prediction = %v", out.PredictedNextMonth)
		}
	})

	t.Run("model failure keeps local aggregates", func(t *testing.T) {
		model := &stubModel{err: errors.New("rate limited")}
		out := NewService(model, nil).Generate(context.Background(), receipts)
		if len(out.MonthlySpend) != 1 {
			t.Errorf("monthly spend lost: %+v", out.MonthlySpend)
		}
		if len(out.Trends) != 0 || out.PredictedNextMonth != nil {
			t.Errorf("AI fields should be empty on failure: %+v", out)
		}
	})

	t.Run("garbage model output keeps local aggregates", func(t *testing.T) {
		model := &stubModel{response: "I cannot help with that."}
		out := NewService(model, nil).Generate(context.Background(), receipts)
		if len(out.MonthlySpend) != 1 || len(out.Trends) != 0 {
			t.Errorf("got %+v", out)
		}
	})

	t.Run("nil model", func(t *testing.T) {
		out := NewService(nil, nil).Generate(context.Background(), receipts)
		if len(out.MonthlySpend) != 1 {
			t.Errorf("monthly spend = %+v", out.MonthlySpend)
		}
	})

	t.Run("no receipts skips model", func(t *testing.T) {
		model := &stubModel{response: `{"trends":["x"]}`}
		out := NewService(model, nil).Generate(context.Background(), nil)
		if len(out.Trends) != 0 {
			t.Errorf("trends = %v", out.Trends)
		}
	})
}
