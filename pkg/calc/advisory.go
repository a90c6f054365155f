package calc

import (
	"context"
	"sync"
)

// Advisory holds the insight text for the current inputs of one session.
// Every input change advances the generation; an answer produced for an
// older generation is discarded so stale advice is never attached to new
// numbers.
type Advisory struct {
	mu         sync.Mutex
	generation uint64
	text       string
}

// Generation returns the current generation.
func (a *Advisory) Generation() uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.generation
}

// Invalidate advances the generation and clears the advisory text.
func (a *Advisory) Invalidate() uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.generation++
	a.text = ""
	return a.generation
}

// Text returns the advisory text for the current generation.
func (a *Advisory) Text() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.text
}

// Deliver stores text if generation is still current and reports whether it did.
func (a *Advisory) Deliver(generation uint64, text string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if generation != a.generation {
		return false
	}
	a.text = text
	return true
}

// Request asks gen for advice on req without blocking. The answer replaces
// the advisory text only if no input changed in the meantime. The returned
// channel is closed once the answer was stored or discarded.
func (a *Advisory) Request(ctx context.Context, gen InsightGenerator, req InsightRequest) <-chan struct{} {
	generation := a.Generation()
	done := make(chan struct{})
	go func() {
		defer close(done)
		text := gen.Generate(ctx, req)
		a.Deliver(generation, text)
	}()
	return done
}
