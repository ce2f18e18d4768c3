package httpclient

import (
	"context"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func newTestClient() *Client {
	return New(log.New(io.Discard, "", 0))
}

func TestFetchJSON_RetriesThenSucceeds(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		if n < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	c := newTestClient()
	var out struct {
		OK bool `json:"ok"`
	}
	err := c.FetchJSON(context.Background(), "test", srv.URL, nil, Options{RetryBase: time.Millisecond}, &out)
	if err != nil {
		t.Fatalf("FetchJSON failed: %v", err)
	}
	if !out.OK {
		t.Fatalf("expected ok=true")
	}
	if calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", calls)
	}
}

func TestFetchJSON_PermanentFailureNoRetry(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := newTestClient()
	var out map[string]any
	err := c.FetchJSON(context.Background(), "test", srv.URL, nil, Options{RetryBase: time.Millisecond}, &out)
	if err == nil {
		t.Fatalf("expected error for 404")
	}
	if calls != 1 {
		t.Fatalf("expected exactly 1 attempt for a permanent failure, got %d", calls)
	}
}

func TestFetchJSON_RetryAfterHonored(t *testing.T) {
	var calls int32
	start := time.Now()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		if n == 1 {
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := newTestClient()
	var out map[string]any
	err := c.FetchJSON(context.Background(), "test", srv.URL, nil, Options{}, &out)
	if err != nil {
		t.Fatalf("FetchJSON failed: %v", err)
	}
	if elapsed := time.Since(start); elapsed < time.Second {
		t.Fatalf("expected to honor retry-after of 1s, only waited %s", elapsed)
	}
}

func TestFetchJSON_NeverPanicsOnBadURL(t *testing.T) {
	c := newTestClient()
	var out map[string]any
	err := c.FetchJSON(context.Background(), "test", "://bad-url", nil, Options{}, &out)
	if err == nil {
		t.Fatalf("expected error for malformed url")
	}
}
