package telemetry

import (
	"context"
	"log"
	"sync"
	"time"
)

// emitTimeout bounds a single async emit.
const emitTimeout = 5 * time.Second

// ShutdownDrainDuration caps how long DrainEmits waits on shutdown.
// Must be >= emitTimeout so a slow emit can still hit its own deadline.
const ShutdownDrainDuration = emitTimeout

// emits tracks in-flight EmitAsync goroutines for DrainEmits.
var emits sync.WaitGroup

// EmitAsync emits the resolution event on a background goroutine so the
// resolve path never blocks on telemetry. The emit runs detached from the
// request context: a cancelled resolve still reports its outcome. Nil
// emitter or event is a no-op; failures are logged and dropped.
func EmitAsync(emitter EventEmitter, event *ResolutionEvent) {
	if emitter == nil || event == nil {
		return
	}
	emits.Add(1)
	go func() {
		defer emits.Done()
		ctx, cancel := context.WithTimeout(context.Background(), emitTimeout)
		defer cancel()
		if err := emitter.Emit(ctx, event); err != nil {
			log.Printf("telemetry: async emit failed: %v", err)
		}
	}()
}

// DrainEmits blocks until all in-flight async emits finish, or until the
// timeout elapses, whichever comes first. With nothing in flight it
// returns immediately.
func DrainEmits(timeout time.Duration) {
	done := make(chan struct{})
	go func() {
		emits.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(timeout):
		log.Printf("telemetry: drain timed out after %v, dropping in-flight emits", timeout)
	}
}
