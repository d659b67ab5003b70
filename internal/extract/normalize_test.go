package extract

import (
	"errors"
	"testing"
	"time"
)

func TestFromModelJSON(t *testing.T) {
	t.Run("clean object", func(t *testing.T) {
		raw := `{"merchant":"Trader Joe's","date":"2025-03-10","total":45.67,"tax":3.42,"subtotal":42.25,"items":[{"name":"Bananas","price":1.99,"quantity":2}],"paymentMethod":"VISA","rawText":"TRADER JOES ..."}`
		data, err := FromModelJSON(raw, nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if data.Merchant != "Trader Joe's" {
			t.Errorf("merchant = %q", data.Merchant)
		}
		want := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
		if !data.Date.Equal(want) {
			t.Errorf("date = %v, want %v", data.Date, want)
		}
		if data.Total != 45.67 || data.Tax != 3.42 {
			t.Errorf("total/tax = %v/%v", data.Total, data.Tax)
		}
		if data.Subtotal == nil || *data.Subtotal != 42.25 {
			t.Errorf("subtotal = %v", data.Subtotal)
		}
		if len(data.Items) != 1 || data.Items[0].Quantity != 2 {
			t.Errorf("items = %+v", data.Items)
		}
		if data.PaymentMethod == nil || *data.PaymentMethod != "VISA" {
			t.Errorf("payment = %v", data.PaymentMethod)
		}
	})

	t.Run("fenced and wrapped in prose", func(t *testing.T) {
		raw := "Here is the extraction:\n```json\n{\"merchant\":\"Shell\",\"total\":30.00,\"rawText\":\"SHELL\"}\n```\nLet me know if you need anything else."
		data, err := FromModelJSON(raw, nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if data.Merchant != "Shell" || data.Total != 30.00 {
			t.Errorf("got %+v", data)
		}
	})

	t.Run("string amounts with currency symbols", func(t *testing.T) {
		raw := `{"merchant":"Costco","total":"$1,234.56","tax":"12.50","rawText":"x"}`
		data, err := FromModelJSON(raw, nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if data.Total != 1234.56 {
			t.Errorf("total = %v", data.Total)
		}
		if data.Tax != 12.50 {
			t.Errorf("tax = %v", data.Tax)
		}
	})

	t.Run("missing fields report zero values", func(t *testing.T) {
		data, err := FromModelJSON(`{"total": 5}`, nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if data.Merchant != "" {
			t.Errorf("merchant = %q, want empty", data.Merchant)
		}
		if !data.Date.IsZero() {
			t.Errorf("date = %v, want zero", data.Date)
		}
		if data.RawText == "" {
			t.Error("rawText should default to the raw response")
		}
	})

	t.Run("unparsable date is zero", func(t *testing.T) {
		data, err := FromModelJSON(`{"merchant":"X","date":"sometime in march","total":1,"rawText":"x"}`, nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !data.Date.IsZero() {
			t.Errorf("date = %v, want zero", data.Date)
		}
	})

	t.Run("zero quantity becomes one", func(t *testing.T) {
		data, err := FromModelJSON(`{"merchant":"X","total":1,"items":[{"name":"Gum","price":0.99,"quantity":0}],"rawText":"x"}`, nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if data.Items[0].Quantity != 1 {
			t.Errorf("quantity = %d, want 1", data.Items[0].Quantity)
		}
	})

	t.Run("no json object at all", func(t *testing.T) {
		_, err := FromModelJSON("I could not read this receipt, sorry.", nil)
		if !errors.Is(err, ErrUnparsableResponse) {
			t.Errorf("error = %v, want ErrUnparsableResponse", err)
		}
	})

	t.Run("slash date formats", func(t *testing.T) {
		for _, tc := range []struct {
			in   string
			want time.Time
		}{
			{"03/10/2025", time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)},
			{"3/9/25", time.Date(2025, 3, 9, 0, 0, 0, 0, time.UTC)},
			{"03-10-2025", time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)},
		} {
			got := parseDate(tc.in)
			if !got.Equal(tc.want) {
				t.Errorf("parseDate(%q) = %v, want %v", tc.in, got, tc.want)
			}
		}
	})
}
