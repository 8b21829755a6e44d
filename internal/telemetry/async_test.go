package telemetry

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

// blockingEmitter blocks each Emit until release is closed.
type blockingEmitter struct {
	mu      sync.Mutex
	calls   int
	release chan struct{}
}

func (e *blockingEmitter) Emit(ctx context.Context, event *ResolutionEvent) error {
	e.mu.Lock()
	e.calls++
	e.mu.Unlock()
	<-e.release
	return nil
}

type failingEmitter struct{}

func (failingEmitter) Emit(ctx context.Context, event *ResolutionEvent) error {
	return errors.New("collector unavailable")
}

func TestEmitAsync_NilArgsNoop(t *testing.T) {
	EmitAsync(nil, &ResolutionEvent{ObservationID: "obs-a"})
	EmitAsync(failingEmitter{}, nil)
	// Nothing was started, so the drain returns without waiting.
	DrainEmits(time.Second)
}

func TestDrainEmits_ReturnsWhenIdle(t *testing.T) {
	start := time.Now()
	DrainEmits(5 * time.Second)
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("idle drain took %v, want an immediate return", elapsed)
	}
}

func TestDrainEmits_WaitsForInFlightEmit(t *testing.T) {
	emitter := &blockingEmitter{release: make(chan struct{})}
	EmitAsync(emitter, &ResolutionEvent{ObservationID: "obs-a"})

	drained := make(chan struct{})
	go func() {
		DrainEmits(5 * time.Second)
		close(drained)
	}()

	select {
	case <-drained:
		t.Fatal("drain returned while an emit was still in flight")
	case <-time.After(50 * time.Millisecond):
	}

	close(emitter.release)
	select {
	case <-drained:
	case <-time.After(2 * time.Second):
		t.Fatal("drain did not return after the emit finished")
	}

	emitter.mu.Lock()
	defer emitter.mu.Unlock()
	if emitter.calls != 1 {
		t.Errorf("emits = %d, want 1", emitter.calls)
	}
}

func TestDrainEmits_TimesOutOnStuckEmit(t *testing.T) {
	emitter := &blockingEmitter{release: make(chan struct{})}
	defer close(emitter.release)
	EmitAsync(emitter, &ResolutionEvent{ObservationID: "obs-a"})

	start := time.Now()
	DrainEmits(100 * time.Millisecond)
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("drain took %v, want the timeout honored", elapsed)
	}
}
