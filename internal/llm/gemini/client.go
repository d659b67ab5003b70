// Package gemini calls Google's generative language API. One client backs
// every AI capability: receipt extraction, category suggestion, duplicate
// comparison, and spending analysis.
package gemini

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/receiptvault/receiptvault/internal/config"
	"github.com/receiptvault/receiptvault/internal/llm"
)

const defaultBaseURL = "https://generativelanguage.googleapis.com"

// Client talks to one Gemini model over the generateContent endpoint.
type Client struct {
	cfg    config.GeminiConfig
	http   *http.Client
	logger *slog.Logger
}

// NewClient builds a client from configuration. It returns nil when no API
// key is configured; callers treat a nil client as the capability being
// disabled.
func NewClient(cfg config.GeminiConfig, logger *slog.Logger) *Client {
	if cfg.APIKey == "" {
		return nil
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = "gemini-2.5-flash"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 45 * time.Second
	}
	return &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}
}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inline_data,omitempty"`
}

type inlineData struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"`
}

type generateRequest struct {
	Contents []struct {
		Parts []part `json:"parts"`
	} `json:"contents"`
	GenerationConfig struct {
		Temperature float32 `json:"temperature"`
	} `json:"generationConfig"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

func textPart(s string) part { return part{Text: s} }

func imagePart(image []byte, mimeType string) part {
	return part{InlineData: &inlineData{
		MimeType: mimeType,
		Data:     base64.StdEncoding.EncodeToString(image),
	}}
}

// generate posts one prompt to the model and returns the first candidate's
// concatenated text.
func (c *Client) generate(ctx context.Context, parts []part) (string, error) {
	var body generateRequest
	body.Contents = append(body.Contents, struct {
		Parts []part `json:"parts"`
	}{Parts: parts})
	body.GenerationConfig.Temperature = c.cfg.Temperature

	endpoint := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s",
		c.cfg.BaseURL, c.cfg.Model, url.QueryEscape(c.cfg.APIKey))

	raw, err := llm.SendJSON(ctx, c.http, endpoint, body, nil, c.logger)
	if err != nil {
		return "", fmt.Errorf("gemini: generate: %w", err)
	}

	var resp generateResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return "", fmt.Errorf("gemini: decode response: %w", err)
	}
	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("gemini: empty response")
	}
	var out string
	for _, p := range resp.Candidates[0].Content.Parts {
		out += p.Text
	}
	return out, nil
}
