// Package events defines the downstream messages this engine emits and the
// producer interface for delivering them (e.g. to Kafka).
package events

import (
	"context"

	"identity-resolution/engine/internal/matching"
)

// AttributionEvent is emitted after a high-confidence identity link is
// written, so the attribution consumer can recalculate channel attribution
// for the linked observations. This engine never computes attribution.
type AttributionEvent struct {
	ObservationID1 string `json:"observation_id_1"`
	ObservationID2 string `json:"observation_id_2"`
	LinkStrength   int    `json:"link_strength"`
	Matcher        string `json:"matcher"`
}

// ReviewItem is a medium-confidence candidate forwarded to the review
// queue for human or secondary-system adjudication.
type ReviewItem struct {
	ObservationID string                  `json:"observation_id"`
	Candidate     matching.MatchCandidate `json:"candidate"`
	Confidence    float64                 `json:"confidence"`
}

// Producer emits engine events. Callers use it best-effort for review
// items (log and continue) and log-only for attribution events after the
// link write has already succeeded.
type Producer interface {
	// Emit serializes and sends one event. key groups related messages
	// onto one partition. Implementations may block briefly.
	Emit(ctx context.Context, key string, event any) error
	// Close releases resources (e.g. the Kafka writer). Safe to call if
	// already closed.
	Close() error
}
