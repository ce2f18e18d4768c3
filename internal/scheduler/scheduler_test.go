package scheduler

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/yanizio/flatradar/internal/filterstore"
)

type fakeDispatcher struct {
	mu       sync.Mutex
	runCalls int
	blockCh  chan struct{}
}

func (f *fakeDispatcher) RunAll(ctx context.Context) {
	f.mu.Lock()
	f.runCalls++
	f.mu.Unlock()
	if f.blockCh != nil {
		<-f.blockCh
	}
}

func (f *fakeDispatcher) RunOne(ctx context.Context, rec filterstore.Record) {}

func (f *fakeDispatcher) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.runCalls
}

type fakeSweeper struct{ swept atomic.Int64 }

func (f *fakeSweeper) Sweep(ctx context.Context) (int64, error) {
	f.swept.Add(1)
	return 3, nil
}

func TestRunTick_SkipsWhenPreviousTickStillRunning(t *testing.T) {
	d := &fakeDispatcher{blockCh: make(chan struct{})}
	s := New(nil, d, &fakeSweeper{}, time.Hour)

	go s.runTick(context.Background())
	time.Sleep(20 * time.Millisecond) // let the first tick claim the running flag

	s.runTick(context.Background()) // should be skipped immediately
	close(d.blockCh)
	time.Sleep(20 * time.Millisecond)

	if d.calls() != 1 {
		t.Fatalf("expected exactly 1 RunAll call (second skipped), got %d", d.calls())
	}
}

func TestRunTick_RunsAgainAfterPreviousCompletes(t *testing.T) {
	d := &fakeDispatcher{}
	s := New(nil, d, &fakeSweeper{}, time.Hour)

	s.runTick(context.Background())
	s.runTick(context.Background())

	if d.calls() != 2 {
		t.Fatalf("expected 2 sequential RunAll calls, got %d", d.calls())
	}
}

func TestRunSweep_InvokesSweeper(t *testing.T) {
	sw := &fakeSweeper{}
	s := New(nil, &fakeDispatcher{}, sw, time.Hour)
	s.runSweep(context.Background())
	if sw.swept.Load() != 1 {
		t.Fatalf("expected sweep invoked once")
	}
}
