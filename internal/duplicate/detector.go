// Package duplicate flags likely re-uploads of a receipt a user has already
// submitted. The deterministic check is authoritative; the AI comparison is
// best-effort and never blocks an upload.
package duplicate

import (
	"context"
	"log/slog"
	"math"
	"sort"
	"strings"
	"time"
)

const (
	sameDayWindow   = 24 * time.Hour
	candidateWindow = 7 * 24 * time.Hour
	maxAICandidates = 5
)

// Candidate is the comparable view of a receipt.
type Candidate struct {
	ID       string    `json:"id"`
	Merchant string    `json:"merchant"`
	Date     time.Time `json:"date"`
	Total    float64   `json:"total"`
}

// Verdict is the duplicate-check outcome.
type Verdict struct {
	IsDuplicate bool    `json:"isDuplicate"`
	MatchID     string  `json:"matchId,omitempty"`
	Confidence  float64 `json:"confidence"`
	Reason      string  `json:"reason,omitempty"`
}

// Judge is an external model that compares a new receipt (and its image)
// against a candidate list. Implementations may fail; the detector treats
// any error as "not a duplicate".
type Judge interface {
	CompareForDuplicate(ctx context.Context, image []byte, newReceipt Candidate, candidates []Candidate) (Verdict, error)
}

// Detector runs the two-step duplicate check.
type Detector struct {
	logger *slog.Logger
	judge  Judge
}

// NewDetector builds a detector. judge may be nil, disabling step 2.
func NewDetector(judge Judge, logger *slog.Logger) *Detector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Detector{logger: logger, judge: judge}
}

// Detect compares a new receipt against the candidate set.
//
// Step 1 scans for a candidate with the same merchant (case-insensitive), a
// total within 0.01, and a date on the same calendar day; the first match
// short-circuits at confidence 0.9. Step 2 submits up to five candidates
// from the last seven days to the judge. Step 2 fails open: any judge error
// or absence yields a negative verdict so a legitimate upload is never
// blocked.
func (d *Detector) Detect(ctx context.Context, image []byte, newReceipt Candidate, candidates []Candidate) Verdict {
	for _, c := range candidates {
		if strings.EqualFold(c.Merchant, newReceipt.Merchant) &&
			math.Abs(c.Total-newReceipt.Total) < 0.01 &&
			absDuration(c.Date.Sub(newReceipt.Date)) < sameDayWindow {
			return Verdict{
				IsDuplicate: true,
				MatchID:     c.ID,
				Confidence:  0.9,
				Reason:      "Same merchant, date, and total amount",
			}
		}
	}

	if d.judge == nil {
		return Verdict{}
	}

	recent := make([]Candidate, 0, len(candidates))
	for _, c := range candidates {
		if absDuration(c.Date.Sub(newReceipt.Date)) < candidateWindow {
			recent = append(recent, c)
		}
	}
	sort.SliceStable(recent, func(i, j int) bool {
		return absDuration(recent[i].Date.Sub(newReceipt.Date)) < absDuration(recent[j].Date.Sub(newReceipt.Date))
	})
	if len(recent) > maxAICandidates {
		recent = recent[:maxAICandidates]
	}
	if len(recent) == 0 {
		return Verdict{}
	}

	verdict, err := d.judge.CompareForDuplicate(ctx, image, newReceipt, recent)
	if err != nil {
		d.logger.Warn("duplicate.judge_failed", "merchant", newReceipt.Merchant, "error", err)
		return Verdict{}
	}
	return verdict
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
