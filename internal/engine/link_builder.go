package engine

import (
	"context"
	"encoding/json"
	"hash/fnv"
	"log"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"

	"identity-resolution/engine/internal/events"
	linkdomain "identity-resolution/engine/internal/link/domain"
	"identity-resolution/engine/internal/matching"
	obsdomain "identity-resolution/engine/internal/observation/domain"
)

// Link strength bonuses for corroborating fields on top of the matcher's
// confidence. Strength is capped at 100.
const (
	bonusEmailMatch       = 20
	bonusPhoneMatch       = 15
	bonusFingerprintMatch = 10
	bonusWithinHour       = 10
	bonusWithinDay        = 5
)

// buildLink persists an identity link for a high-confidence candidate and
// emits the attribution-recalculation event. The write is serialized per
// unordered observation pair, so two concurrent resolves discovering the
// same pair cannot race past the active-link invariant. A persistence
// failure here is returned to the caller for retry.
func (e *Engine) buildLink(ctx context.Context, o *obsdomain.Observation, cand matching.MatchCandidate, now time.Time) (*linkdomain.IdentityLink, error) {
	other, err := e.observations.GetByID(ctx, cand.ObservationID)
	if err != nil {
		return nil, &PersistenceError{Op: "load candidate observation", Err: err}
	}
	if other == nil {
		// The candidate vanished between matching and linking; skip it.
		log.Printf("engine: candidate observation %s not found, skipping link", cand.ObservationID)
		return nil, nil
	}

	matchData, err := json.Marshal(cand)
	if err != nil {
		return nil, &PersistenceError{Op: "serialize match data", Err: err}
	}
	id1, id2 := linkdomain.CanonicalPair(o.ID, other.ID)
	l := &linkdomain.IdentityLink{
		ID:              uuid.New().String(),
		ObservationID1:  id1,
		ObservationID2:  id2,
		LinkType:        cand.MatchType,
		ConfidenceLevel: linkdomain.ConfidenceHigh,
		LinkStrength:    LinkStrength(o, other, cand.Confidence),
		MatchData:       string(matchData),
		Status:          linkdomain.StatusActive,
		CreatedAt:       now,
	}

	unlock := e.pairLocks.lock(id1, id2)
	stored, err := e.links.UpsertActive(ctx, l)
	unlock()
	if err != nil {
		return nil, &PersistenceError{Op: "upsert identity link", Err: err}
	}

	if e.attribution != nil {
		event := events.AttributionEvent{
			ObservationID1: stored.ObservationID1,
			ObservationID2: stored.ObservationID2,
			LinkStrength:   stored.LinkStrength,
			Matcher:        cand.MatchType,
		}
		if err := e.attribution.Emit(ctx, id1, event); err != nil {
			// The link is already durable; attribution recalculation is
			// best-effort and will catch up on the next link event.
			log.Printf("engine: attribution emit failed: %v", err)
		}
	}
	return stored, nil
}

// LinkStrength combines a matcher's confidence with corroborating-field
// bonuses into a 0-100 score used for downstream ranking.
func LinkStrength(a, b *obsdomain.Observation, confidence float64) int {
	s := confidence * 100
	if a.Email != "" && a.Email == b.Email {
		s += bonusEmailMatch
	}
	if a.Phone != "" && a.Phone == b.Phone {
		s += bonusPhoneMatch
	}
	if a.DeviceFingerprint != "" && a.DeviceFingerprint == b.DeviceFingerprint {
		s += bonusFingerprintMatch
	}
	delta := a.CollectedAt.Sub(b.CollectedAt)
	if delta < 0 {
		delta = -delta
	}
	switch {
	case delta <= time.Hour:
		s += bonusWithinHour
	case delta <= 24*time.Hour:
		s += bonusWithinDay
	}
	if s > 100 {
		s = 100
	}
	if s < 0 {
		s = 0
	}
	return int(math.Round(s))
}

// pairLockCount is the number of lock shards. Collisions only cost extra
// serialization, never correctness.
const pairLockCount = 64

// pairLocks serializes link writes per unordered observation pair using a
// sharded set of mutexes keyed by the canonical pair.
type pairLocks struct {
	mu [pairLockCount]sync.Mutex
}

// lock acquires the shard for the pair and returns the unlock func.
// id1, id2 must already be in canonical order so both orderings of a pair
// map to the same shard.
func (p *pairLocks) lock(id1, id2 string) func() {
	h := fnv.New32a()
	h.Write([]byte(id1))
	h.Write([]byte{0})
	h.Write([]byte(id2))
	m := &p.mu[h.Sum32()%pairLockCount]
	m.Lock()
	return m.Unlock
}
