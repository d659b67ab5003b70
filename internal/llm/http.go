package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// maxResponseBytes bounds how much of a model response is read; anything a
// capability needs fits well under this.
const maxResponseBytes = 4 << 20

// retryDelay is how long to wait before the second attempt. Tests shorten it.
var retryDelay = 2 * time.Second

// StatusError is returned by SendJSON for non-2xx responses. The body is
// kept so callers can log provider error details.
type StatusError struct {
	Code int
	Body []byte
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d", e.Code)
}

// retryable reports whether the provider asked us to back off. 429 is rate
// limiting, 503 is transient overload; both clear on a short wait.
func retryable(code int) bool {
	return code == http.StatusTooManyRequests || code == http.StatusServiceUnavailable
}

// SendJSON posts a JSON body to url and returns the raw response body. It is
// provider-agnostic; callers decide the URL and headers. Rate-limited and
// overloaded responses are retried once after a short pause. Non-2xx
// responses come back as a *StatusError.
func SendJSON(ctx context.Context, client *http.Client, url string, body any, headers map[string]string, logger *slog.Logger) ([]byte, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if client == nil {
		client = &http.Client{Timeout: 45 * time.Second}
	}

	bs, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode json: %w", err)
	}

	reqID := uuid.New().String()
	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(retryDelay):
			}
			logger.Info("llm.http.retry", "req_id", reqID, "attempt", attempt)
		}

		raw, err := sendOnce(ctx, client, url, bs, headers, reqID, logger)
		if err == nil {
			return raw, nil
		}
		lastErr = err

		var se *StatusError
		if !errors.As(err, &se) || !retryable(se.Code) {
			return nil, err
		}
	}
	return nil, lastErr
}

func sendOnce(ctx context.Context, client *http.Client, url string, body []byte, headers map[string]string, reqID string, logger *slog.Logger) ([]byte, error) {
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		logger.Error("llm.http.send_error", "req_id", reqID, "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		logger.Error("llm.http.read_error", "req_id", reqID, "error", err)
		return nil, fmt.Errorf("read response: %w", err)
	}

	logger.Info("llm.http.response",
		"req_id", reqID,
		"status", resp.StatusCode,
		"bytes", len(raw),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)

	if resp.StatusCode/100 != 2 {
		return nil, &StatusError{Code: resp.StatusCode, Body: raw}
	}
	return raw, nil
}
