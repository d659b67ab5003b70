package llm

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestSendJSON(t *testing.T) {
	retryDelay = 10 * time.Millisecond

	t.Run("returns body on success", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if got := r.Header.Get("Content-Type"); got != "application/json" {
				t.Errorf("content type = %q", got)
			}
			w.Write([]byte(`{"ok":true}`))
		}))
		defer srv.Close()

		raw, err := SendJSON(context.Background(), srv.Client(), srv.URL, map[string]int{"a": 1}, nil, nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if string(raw) != `{"ok":true}` {
			t.Errorf("body = %s", raw)
		}
	})

	t.Run("non-2xx yields StatusError with body", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"error":"invalid prompt"}`))
		}))
		defer srv.Close()

		_, err := SendJSON(context.Background(), srv.Client(), srv.URL, nil, nil, nil)
		var se *StatusError
		if !errors.As(err, &se) {
			t.Fatalf("error = %v, want *StatusError", err)
		}
		if se.Code != http.StatusBadRequest {
			t.Errorf("code = %d", se.Code)
		}
		if string(se.Body) != `{"error":"invalid prompt"}` {
			t.Errorf("body = %s", se.Body)
		}
	})

	t.Run("rate limit retried once", func(t *testing.T) {
		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			if calls.Add(1) == 1 {
				w.WriteHeader(http.StatusTooManyRequests)
				return
			}
			w.Write([]byte("ok"))
		}))
		defer srv.Close()

		raw, err := SendJSON(context.Background(), srv.Client(), srv.URL, nil, nil, nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if string(raw) != "ok" {
			t.Errorf("body = %s", raw)
		}
		if calls.Load() != 2 {
			t.Errorf("calls = %d, want 2", calls.Load())
		}
	})

	t.Run("client errors are not retried", func(t *testing.T) {
		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusForbidden)
		}))
		defer srv.Close()

		_, err := SendJSON(context.Background(), srv.Client(), srv.URL, nil, nil, nil)
		var se *StatusError
		if !errors.As(err, &se) || se.Code != http.StatusForbidden {
			t.Fatalf("error = %v, want 403 StatusError", err)
		}
		if calls.Load() != 1 {
			t.Errorf("calls = %d, want 1", calls.Load())
		}
	})

	t.Run("persistent rate limit returns last error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
		}))
		defer srv.Close()

		_, err := SendJSON(context.Background(), srv.Client(), srv.URL, nil, nil, nil)
		var se *StatusError
		if !errors.As(err, &se) || se.Code != http.StatusTooManyRequests {
			t.Fatalf("error = %v, want 429 StatusError", err)
		}
	})

	t.Run("unencodable body", func(t *testing.T) {
		_, err := SendJSON(context.Background(), nil, "http://unused.invalid", func() {}, nil, nil)
		if err == nil {
			t.Fatal("expected encode error")
		}
	})
}
