package printjobs

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestSupersessorCancelsPreviousRun(t *testing.T) {
	s := NewSupersessor()

	first, doneFirst := s.Begin(context.Background(), "tab-1")
	second, doneSecond := s.Begin(context.Background(), "tab-1")
	defer doneSecond()

	select {
	case <-first.Done():
	case <-time.After(time.Second):
		t.Fatalf("expected first run to be canceled")
	}
	if !Superseded(first) {
		t.Fatalf("expected first run to be marked superseded, cause=%v", context.Cause(first))
	}
	if second.Err() != nil {
		t.Fatalf("expected second run to stay live, got %v", second.Err())
	}

	// A finished stale run must not evict the newer one.
	doneFirst()
	if got := s.InFlight(); got != 1 {
		t.Fatalf("expected 1 in-flight run, got %d", got)
	}
}

func TestSupersessorIsolatesClients(t *testing.T) {
	s := NewSupersessor()

	a, doneA := s.Begin(context.Background(), "tab-a")
	b, doneB := s.Begin(context.Background(), "tab-b")
	if a.Err() != nil || b.Err() != nil {
		t.Fatalf("expected both runs live")
	}
	doneA()
	doneB()

	if Superseded(a) || Superseded(b) {
		t.Fatalf("finished runs must not read as superseded")
	}
	if got := s.InFlight(); got != 0 {
		t.Fatalf("expected no in-flight runs, got %d", got)
	}
}

func TestSupersessorConcurrentBegin(t *testing.T) {
	s := NewSupersessor()
	var (
		wg         sync.WaitGroup
		mu         sync.Mutex
		superseded int
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ctx, done := s.Begin(context.Background(), "tab")
			time.Sleep(time.Millisecond)
			if Superseded(ctx) {
				mu.Lock()
				superseded++
				mu.Unlock()
			}
			done()
		}()
	}
	wg.Wait()
	if s.InFlight() != 0 {
		t.Fatalf("expected map to drain, got %d", s.InFlight())
	}
	if superseded > 49 {
		t.Fatalf("at most 49 runs can be superseded, got %d", superseded)
	}
}

func TestSupersededIgnoresOtherCauses(t *testing.T) {
	ctx, cancel := context.WithCancelCause(context.Background())
	cancel(errors.New("client went away"))
	if Superseded(ctx) {
		t.Fatalf("unexpected superseded for foreign cause")
	}
}
