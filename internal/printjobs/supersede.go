package printjobs

import (
	"context"
	"errors"
	"sync"
)

// ErrSuperseded marks an analysis whose client started a newer one.
var ErrSuperseded = errors.New("superseded by a newer analysis")

// Supersessor keeps at most one live analysis per client. Starting a new one
// cancels the previous run so its late result is never shown.
type Supersessor struct {
	mu       sync.Mutex
	next     uint64
	inflight map[string]inflightRun
}

type inflightRun struct {
	gen    uint64
	cancel context.CancelCauseFunc
}

// NewSupersessor constructs an empty Supersessor.
func NewSupersessor() *Supersessor {
	return &Supersessor{inflight: make(map[string]inflightRun)}
}

// Begin registers a run for key and returns its context. The previous run
// for key, if any, is canceled with ErrSuperseded. done must be called once
// the run finishes.
func (s *Supersessor) Begin(ctx context.Context, key string) (context.Context, func()) {
	runCtx, cancel := context.WithCancelCause(ctx)

	s.mu.Lock()
	s.next++
	gen := s.next
	prev, hadPrev := s.inflight[key]
	s.inflight[key] = inflightRun{gen: gen, cancel: cancel}
	s.mu.Unlock()

	if hadPrev {
		prev.cancel(ErrSuperseded)
	}

	done := func() {
		s.mu.Lock()
		if cur, ok := s.inflight[key]; ok && cur.gen == gen {
			delete(s.inflight, key)
		}
		s.mu.Unlock()
		cancel(context.Canceled)
	}
	return runCtx, done
}

// Superseded reports whether ctx was canceled by a newer run.
func Superseded(ctx context.Context) bool {
	return errors.Is(context.Cause(ctx), ErrSuperseded)
}

// InFlight returns the number of clients with a live analysis.
func (s *Supersessor) InFlight() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.inflight)
}
