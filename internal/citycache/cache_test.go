package citycache

import (
	"context"
	"errors"
	"io"
	"log"
	"sync/atomic"
	"testing"
	"time"
)

func newTestCache() *Cache {
	return New(time.Hour, 10, log.New(io.Discard, "", 0))
}

func TestGet_ProbesOnceThenCaches(t *testing.T) {
	c := newTestCache()
	defer c.Stop()

	var calls int32
	probe := func(ctx context.Context, source, city string) (string, error) {
		atomic.AddInt32(&calls, 1)
		return "MSK-01", nil
	}

	for i := 0; i < 5; i++ {
		code, err := c.Get(context.Background(), "kufar", "minsk", probe)
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if code != "MSK-01" {
			t.Fatalf("unexpected code %q", code)
		}
	}
	if calls != 1 {
		t.Fatalf("expected exactly 1 probe call, got %d", calls)
	}
}

func TestGet_PropagatesProbeError(t *testing.T) {
	c := newTestCache()
	defer c.Stop()

	wantErr := errors.New("boom")
	probe := func(ctx context.Context, source, city string) (string, error) {
		return "", wantErr
	}

	_, err := c.Get(context.Background(), "onliner", "brest", probe)
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected wrapped probe error, got %v", err)
	}
}

func TestEvictOnce_RemovesIdleEntries(t *testing.T) {
	c := New(time.Millisecond, 10, log.New(io.Discard, "", 0))
	defer c.Stop()

	probe := func(ctx context.Context, source, city string) (string, error) {
		return "X", nil
	}
	if _, err := c.Get(context.Background(), "realt", "gomel", probe); err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	time.Sleep(5 * time.Millisecond)
	c.evictOnce()

	if _, ok := c.m.Load(key{source: "realt", city: "gomel"}); ok {
		t.Fatalf("expected entry to be evicted after idling past TTL")
	}
}
