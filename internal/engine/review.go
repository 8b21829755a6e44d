package engine

import (
	"context"
	"log"

	"identity-resolution/engine/internal/events"
	"identity-resolution/engine/internal/matching"
)

// dispatchReview forwards one medium-confidence candidate to the review
// queue. Best-effort: enqueue failures are logged and never fail the
// resolve, since a missed review candidate only degrades recall.
func (e *Engine) dispatchReview(ctx context.Context, observationID string, cand matching.MatchCandidate) {
	if e.review == nil {
		return
	}
	item := events.ReviewItem{
		ObservationID: observationID,
		Candidate:     cand,
		Confidence:    cand.Confidence,
	}
	if err := e.review.Emit(ctx, observationID, item); err != nil {
		log.Printf("engine: %v", &DispatchError{Queue: "review", Err: err})
	}
}
