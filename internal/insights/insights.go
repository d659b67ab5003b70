// Package insights summarizes a user's spending and, when a model is
// available, layers AI-generated trends and suggestions on top. The local
// aggregates are always computed; the AI layer fails open.
package insights

import (
	"context"
	"encoding/json"
	"log/slog"
	"sort"
	"time"

	"github.com/receiptvault/receiptvault/internal/entity"
	"github.com/receiptvault/receiptvault/internal/llm"
)

const topMerchantCount = 5

// MonthSpend is one month's local aggregate, keyed YYYY-MM.
type MonthSpend struct {
	Month string  `json:"month"`
	Total float64 `json:"total"`
	Count int     `json:"count"`
}

// MerchantSpend is one merchant's local aggregate.
type MerchantSpend struct {
	Merchant string  `json:"merchant"`
	Total    float64 `json:"total"`
	Count    int     `json:"count"`
}

// CategorySpend is one category's local aggregate.
type CategorySpend struct {
	CategoryName string  `json:"categoryName"`
	Total        float64 `json:"total"`
	Count        int     `json:"count"`
}

// Insights is the full response: local aggregates plus the optional AI
// fields, which stay empty when no model is configured or the call fails.
type Insights struct {
	MonthlySpend       []MonthSpend    `json:"monthlySpend"`
	TopMerchants       []MerchantSpend `json:"topMerchants"`
	CategoryBreakdown  []CategorySpend `json:"categoryBreakdown"`
	Trends             []string        `json:"trends"`
	Suggestions        []string        `json:"suggestions"`
	PredictedNextMonth *float64        `json:"predictedNextMonth,omitempty"`
}

// TrendModel analyzes a precomputed spending summary. The response is free
// text expected to contain a JSON object.
type TrendModel interface {
	AnalyzeSpending(ctx context.Context, summaryJSON []byte) (string, error)
}

// Service computes insights over a user's receipts.
type Service struct {
	logger *slog.Logger
	model  TrendModel
}

// NewService builds the service. model may be nil, which disables the AI
// layer entirely.
func NewService(model TrendModel, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{logger: logger, model: model}
}

// Generate computes local aggregates and then asks the model for trends.
// Model absence or failure still returns the local aggregates.
func (s *Service) Generate(ctx context.Context, receipts []entity.Receipt) *Insights {
	out := Compute(receipts)
	if s.model == nil || len(receipts) == 0 {
		return out
	}

	summary, err := json.Marshal(map[string]any{
		"monthlySpend":      out.MonthlySpend,
		"topMerchants":      out.TopMerchants,
		"categoryBreakdown": out.CategoryBreakdown,
	})
	if err != nil {
		s.logger.Warn("insights.encode_summary_failed", "error", err)
		return out
	}

	start := time.Now()
	raw, err := s.model.AnalyzeSpending(ctx, summary)
	if err != nil {
		s.logger.Warn("insights.model_failed", "error", err,
			"elapsed_ms", time.Since(start).Milliseconds())
		return out
	}
	obj, err := llm.ExtractJSONObject(raw)
	if err != nil {
		s.logger.Warn("insights.model_response_unparsable", "error", err)
		return out
	}
	var parsed struct {
		Trends             []string `json:"trends"`
		Suggestions        []string `json:"suggestions"`
		PredictedNextMonth *float64 `json:"predictedNextMonth"`
	}
	if err := json.Unmarshal(obj, &parsed); err != nil {
		s.logger.Warn("insights.model_response_unparsable", "error", err)
		return out
	}
	out.Trends = parsed.Trends
	out.Suggestions = parsed.Suggestions
	out.PredictedNextMonth = parsed.PredictedNextMonth
	s.logger.Info("insights.model_ok",
		"trends", len(out.Trends),
		"suggestions", len(out.Suggestions),
		"elapsed_ms", time.Since(start).Milliseconds())
	return out
}

// Compute derives the local aggregates: per-month totals, the top five
// merchants by spend, and per-category totals.
func Compute(receipts []entity.Receipt) *Insights {
	out := &Insights{
		MonthlySpend:      []MonthSpend{},
		TopMerchants:      []MerchantSpend{},
		CategoryBreakdown: []CategorySpend{},
		Trends:            []string{},
		Suggestions:       []string{},
	}

	months := map[string]*MonthSpend{}
	merchants := map[string]*MerchantSpend{}
	categories := map[string]*CategorySpend{}

	for i := range receipts {
		rec := &receipts[i]

		month := rec.Date.UTC().Format("2006-01")
		ms, ok := months[month]
		if !ok {
			ms = &MonthSpend{Month: month}
			months[month] = ms
		}
		ms.Total += rec.Total
		ms.Count++

		m, ok := merchants[rec.Merchant]
		if !ok {
			m = &MerchantSpend{Merchant: rec.Merchant}
			merchants[rec.Merchant] = m
		}
		m.Total += rec.Total
		m.Count++

		name := rec.CategoryName()
		c, ok := categories[name]
		if !ok {
			c = &CategorySpend{CategoryName: name}
			categories[name] = c
		}
		c.Total += rec.Total
		c.Count++
	}

	for _, ms := range months {
		out.MonthlySpend = append(out.MonthlySpend, *ms)
	}
	sort.Slice(out.MonthlySpend, func(i, j int) bool {
		return out.MonthlySpend[i].Month < out.MonthlySpend[j].Month
	})

	for _, m := range merchants {
		out.TopMerchants = append(out.TopMerchants, *m)
	}
	sort.Slice(out.TopMerchants, func(i, j int) bool {
		a, b := out.TopMerchants[i], out.TopMerchants[j]
		if a.Total != b.Total {
			return a.Total > b.Total
		}
		return a.Merchant < b.Merchant
	})
	if len(out.TopMerchants) > topMerchantCount {
		out.TopMerchants = out.TopMerchants[:topMerchantCount]
	}

	for _, c := range categories {
		out.CategoryBreakdown = append(out.CategoryBreakdown, *c)
	}
	sort.Slice(out.CategoryBreakdown, func(i, j int) bool {
		a, b := out.CategoryBreakdown[i], out.CategoryBreakdown[j]
		if a.Total != b.Total {
			return a.Total > b.Total
		}
		return a.CategoryName < b.CategoryName
	})

	return out
}
