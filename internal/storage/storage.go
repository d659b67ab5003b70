// Package storage persists receipt images and retrieves them for processing.
package storage

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/receiptvault/receiptvault/internal/apperr"
)

// ImageStore writes uploaded receipt images and reads them back by key.
type ImageStore interface {
	// Put stores the image under key and returns the public URL clients use
	// to display it.
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
	// Fetch returns the stored bytes for key.
	Fetch(ctx context.Context, key string) ([]byte, error)
}

// Fetcher retrieves an image by its stored key or, for externally hosted
// images such as email attachments, by URL.
type Fetcher struct {
	store   ImageStore
	client  *http.Client
	logger  *slog.Logger
	timeout time.Duration
}

func NewFetcher(store ImageStore, timeout time.Duration, logger *slog.Logger) *Fetcher {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Fetcher{
		store:   store,
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
		timeout: timeout,
	}
}

// Fetch loads image bytes for a receipt. Keys resolve through the store;
// absolute http(s) URLs are fetched over the network with the configured
// timeout.
func (f *Fetcher) Fetch(ctx context.Context, keyOrURL string) ([]byte, error) {
	if strings.HasPrefix(keyOrURL, "http://") || strings.HasPrefix(keyOrURL, "https://") {
		return f.fetchURL(ctx, keyOrURL)
	}
	data, err := f.store.Fetch(ctx, keyOrURL)
	if err != nil {
		return nil, apperr.Wrap(apperr.ErrImageFetchFailed, err)
	}
	return data, nil
}

func (f *Fetcher) fetchURL(ctx context.Context, url string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, apperr.Wrap(apperr.ErrImageFetchFailed, err)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		f.logger.Warn("storage.fetch_url_failed", "url", url, "error", err)
		return nil, apperr.Wrap(apperr.ErrImageFetchFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, apperr.Wrap(apperr.ErrImageFetchFailed,
			fmt.Errorf("unexpected status %d fetching image", resp.StatusCode))
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperr.Wrap(apperr.ErrImageFetchFailed, err)
	}
	f.logger.Debug("storage.fetch_url",
		"url", url,
		"bytes", len(data),
		"elapsed_ms", time.Since(start).Milliseconds())
	return data, nil
}
