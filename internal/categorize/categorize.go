// Package categorize assigns expense categories to receipts, either by a
// pure keyword scoring pass or by an external AI suggester.
package categorize

import (
	"context"
	"time"

	"github.com/receiptvault/receiptvault/internal/extract"
)

// CategoryRef is the caller-supplied view of an existing category.
type CategoryRef struct {
	ID          string
	Name        string
	IRSCategory string
}

// Suggestion is a categorizer verdict: either a reference to an existing
// category (CategoryID set) or a proposed new category name (CategoryID
// empty). The caller decides whether to create the proposed category.
type Suggestion struct {
	CategoryID   string  `json:"categoryId"`
	CategoryName string  `json:"categoryName"`
	Confidence   float64 `json:"confidence"`
	IRSCategory  string  `json:"irsCategory,omitempty"`
}

// Suggester is an external categorization capability. Implementations may
// fail; callers treat any error as "no suggestion".
type Suggester interface {
	SuggestCategory(ctx context.Context, merchant string, items []extract.LineItem, total float64, date time.Time, existing []CategoryRef) (*Suggestion, error)
}
