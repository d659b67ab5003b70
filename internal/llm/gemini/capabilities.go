package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/receiptvault/receiptvault/internal/categorize"
	"github.com/receiptvault/receiptvault/internal/duplicate"
	"github.com/receiptvault/receiptvault/internal/extract"
	"github.com/receiptvault/receiptvault/internal/llm"
)

const extractionPrompt = `Analyze this receipt image and extract the following information as JSON:
{
  "merchant": "store or business name",
  "date": "date in YYYY-MM-DD format",
  "total": total amount as a number,
  "tax": tax amount as a number or null,
  "subtotal": subtotal as a number or null,
  "items": [{"name": "item name", "price": price as a number, "quantity": quantity as a number}],
  "paymentMethod": "payment method or null",
  "rawText": "all visible text on the receipt"
}
Respond with ONLY the JSON object, no markdown fences and no commentary.`

// ExtractReceipt asks the model for a structured read of one receipt image.
func (c *Client) ExtractReceipt(ctx context.Context, image []byte, mimeType string) (string, error) {
	return c.generate(ctx, []part{textPart(extractionPrompt), imagePart(image, mimeType)})
}

// SuggestCategory asks the model to pick an existing category or propose a
// new one for a receipt.
func (c *Client) SuggestCategory(ctx context.Context, merchant string, items []extract.LineItem, total float64, date time.Time, existing []categorize.CategoryRef) (*categorize.Suggestion, error) {
	var names []string
	for _, cat := range existing {
		names = append(names, cat.Name)
	}
	var itemNames []string
	for _, it := range items {
		itemNames = append(itemNames, it.Name)
	}

	prompt := fmt.Sprintf(`Categorize this expense for a small business.
Merchant: %s
Total: %.2f
Date: %s
Items: %s
Existing categories: %s

Pick the best existing category, or propose a new category name if none fits.
Respond with ONLY a JSON object:
{"categoryName": "name", "confidence": number between 0 and 1, "irsCategory": "IRS schedule C category or null"}`,
		merchant, total, date.Format("2006-01-02"),
		strings.Join(itemNames, ", "), strings.Join(names, ", "))

	raw, err := c.generate(ctx, []part{textPart(prompt)})
	if err != nil {
		return nil, err
	}
	obj, err := llm.ExtractJSONObject(raw)
	if err != nil {
		return nil, fmt.Errorf("gemini: categorize response: %w", err)
	}
	var parsed struct {
		CategoryName string  `json:"categoryName"`
		Confidence   float64 `json:"confidence"`
		IRSCategory  string  `json:"irsCategory"`
	}
	if err := json.Unmarshal(obj, &parsed); err != nil {
		return nil, fmt.Errorf("gemini: categorize response: %w", err)
	}
	if parsed.CategoryName == "" {
		return nil, nil
	}
	s := &categorize.Suggestion{
		CategoryName: parsed.CategoryName,
		Confidence:   parsed.Confidence,
		IRSCategory:  parsed.IRSCategory,
	}
	for _, cat := range existing {
		if strings.EqualFold(cat.Name, parsed.CategoryName) {
			s.CategoryID = cat.ID
			s.CategoryName = cat.Name
			break
		}
	}
	return s, nil
}

// CompareForDuplicate asks the model whether a new receipt duplicates one of
// the supplied candidates.
func (c *Client) CompareForDuplicate(ctx context.Context, image []byte, newReceipt duplicate.Candidate, candidates []duplicate.Candidate) (duplicate.Verdict, error) {
	candJSON, err := json.Marshal(candidates)
	if err != nil {
		return duplicate.Verdict{}, fmt.Errorf("gemini: encode candidates: %w", err)
	}
	newJSON, err := json.Marshal(newReceipt)
	if err != nil {
		return duplicate.Verdict{}, fmt.Errorf("gemini: encode receipt: %w", err)
	}

	prompt := fmt.Sprintf(`A user uploaded a new receipt. Decide whether it duplicates one of their recent receipts.
New receipt: %s
Recent receipts: %s

Respond with ONLY a JSON object:
{"isDuplicate": boolean, "matchId": "id of the matching receipt or null", "confidence": number between 0 and 1, "reason": "short explanation"}`,
		newJSON, candJSON)

	parts := []part{textPart(prompt)}
	if len(image) > 0 {
		parts = append(parts, imagePart(image, "image/jpeg"))
	}
	raw, err := c.generate(ctx, parts)
	if err != nil {
		return duplicate.Verdict{}, err
	}
	obj, err := llm.ExtractJSONObject(raw)
	if err != nil {
		return duplicate.Verdict{}, fmt.Errorf("gemini: duplicate response: %w", err)
	}
	var v duplicate.Verdict
	if err := json.Unmarshal(obj, &v); err != nil {
		return duplicate.Verdict{}, fmt.Errorf("gemini: duplicate response: %w", err)
	}
	return v, nil
}

// AnalyzeSpending asks the model for trends, suggestions, and a next-month
// prediction over a precomputed spending summary. The summary is JSON the
// caller already derived locally; the model never sees raw receipts.
func (c *Client) AnalyzeSpending(ctx context.Context, summaryJSON []byte) (string, error) {
	prompt := fmt.Sprintf(`You are a financial assistant for a small business owner.
Here is their spending summary as JSON: %s

Respond with ONLY a JSON object:
{"trends": ["observation", ...], "suggestions": ["actionable tip", ...], "predictedNextMonth": estimated spend as a number}`,
		summaryJSON)
	return c.generate(ctx, []part{textPart(prompt)})
}
