package extract

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/receiptvault/receiptvault/internal/llm"
)

// dateLayouts are tried in order when parsing a model-reported date.
var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"01/02/2006",
	"1/2/2006",
	"01/02/06",
	"1/2/06",
	"01-02-2006",
	"1-2-2006",
	"01-02-06",
	"1-2-06",
}

// FromModelJSON normalizes a generative-vision model response into
// ExtractedData. The response is expected to hold a JSON object, possibly
// wrapped in prose or code fences; the first balanced {...} span is parsed.
// Missing or invalid fields come back as zero values for the caller to
// default; only a response with no parseable JSON object at all is an error.
func FromModelJSON(raw string, logger *slog.Logger) (ExtractedData, error) {
	if logger == nil {
		logger = slog.Default()
	}

	doc, err := llm.ExtractJSONObject(raw)
	if err != nil {
		return ExtractedData{}, fmt.Errorf("%w: %v", ErrUnparsableResponse, err)
	}

	if err := llm.ValidateJSONAgainstSchema(llm.BuildExtractionSchema(), doc); err != nil {
		// Field-level defaults below still apply; validation failures are
		// informational once the document decodes.
		logger.Warn("extract.normalize.schema_invalid", "error", err)
	}

	var m map[string]any
	if err := json.Unmarshal(doc, &m); err != nil {
		return ExtractedData{}, fmt.Errorf("%w: %v", ErrUnparsableResponse, err)
	}

	out := ExtractedData{
		Merchant: strings.TrimSpace(asString(m["merchant"])),
		Date:     parseDate(asString(m["date"])),
		Total:    coerceFloat(m["total"]),
		Tax:      coerceFloat(m["tax"]),
		Items:    []LineItem{},
		RawText:  asString(m["rawText"]),
	}
	if out.RawText == "" {
		out.RawText = raw
	}

	if v, ok := m["subtotal"]; ok && v != nil {
		sub := coerceFloat(v)
		out.Subtotal = &sub
	}

	if items, ok := m["items"].([]any); ok {
		for _, it := range items {
			obj, ok := it.(map[string]any)
			if !ok {
				continue
			}
			qty := int(coerceFloat(obj["quantity"]))
			if qty <= 0 {
				qty = 1
			}
			out.Items = append(out.Items, LineItem{
				Name:     asString(obj["name"]),
				Price:    coerceFloat(obj["price"]),
				Quantity: qty,
			})
		}
	}

	if pm := strings.TrimSpace(asString(m["paymentMethod"])); pm != "" {
		out.PaymentMethod = &pm
	}

	return out, nil
}

// parseDate tries each known layout. A zero time means the model reported
// no usable date; callers fall back to a stored or current date.
func parseDate(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

// coerceFloat converts a JSON value to a float64, accepting numbers and
// numeric strings (with an optional leading $). Anything else is 0.
func coerceFloat(v any) float64 {
	switch t := v.(type) {
	case float64:
		return t
	case int:
		return float64(t)
	case string:
		s := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(t), "$"))
		s = strings.ReplaceAll(s, ",", "")
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f
		}
	}
	return 0
}
