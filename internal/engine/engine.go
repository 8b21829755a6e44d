// Package engine wires the matching pipeline together: it records
// observations, resolves them against the matcher registry, builds
// high-confidence identity links, and dispatches medium-confidence
// candidates for review.
package engine

import (
	"context"
	"time"

	"github.com/google/uuid"

	"identity-resolution/engine/internal/events"
	linkdomain "identity-resolution/engine/internal/link/domain"
	"identity-resolution/engine/internal/matching"
	obsdomain "identity-resolution/engine/internal/observation/domain"
	"identity-resolution/engine/internal/security"
	"identity-resolution/engine/internal/signature"
)

// ObservationRepo is the minimal observation repository needed by the engine.
type ObservationRepo interface {
	Create(ctx context.Context, o *obsdomain.Observation) error
	GetByID(ctx context.Context, id string) (*obsdomain.Observation, error)
}

// LinkRepo is the minimal link repository needed by the engine.
type LinkRepo interface {
	UpsertActive(ctx context.Context, l *linkdomain.IdentityLink) (*linkdomain.IdentityLink, error)
	ListActiveByObservation(ctx context.Context, observationID string) ([]*linkdomain.IdentityLink, error)
}

// Resolution is the outcome of one resolve pass: links created (or updated)
// from high-confidence candidates, and the medium-confidence candidates
// that were forwarded to review.
type Resolution struct {
	High   []*linkdomain.IdentityLink
	Medium []matching.MatchCandidate
}

// Engine is the identity resolution engine. It holds no state between
// calls beyond its dependencies; all working state is reconstructed per
// call from persisted observations.
type Engine struct {
	observations ObservationRepo
	links        LinkRepo
	aggregator   *matching.Aggregator
	digester     *security.Digester
	attribution  events.Producer
	review       events.Producer
	now          func() time.Time
	pairLocks    pairLocks
}

// New returns an Engine with the given dependencies. attribution and
// review may be nil; the corresponding events are then not emitted.
func New(
	observations ObservationRepo,
	links LinkRepo,
	aggregator *matching.Aggregator,
	digester *security.Digester,
	attribution events.Producer,
	review events.Producer,
) *Engine {
	return &Engine{
		observations: observations,
		links:        links,
		aggregator:   aggregator,
		digester:     digester,
		attribution:  attribution,
		review:       review,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// RecordObservation normalizes, validates, and persists an observation,
// returning its assigned id. The id is an opaque uuid, never a content
// hash: repeated observations of the same person get distinct ids, and
// equality lives entirely in the field-level matchers.
func (e *Engine) RecordObservation(ctx context.Context, o *obsdomain.Observation) (string, error) {
	email, err := obsdomain.NormalizeEmail(o.Email)
	if err != nil {
		return "", &ValidationError{Field: "email", Reason: err.Error()}
	}
	o.Email = email
	if o.Email != "" && e.digester != nil {
		o.EmailHash = e.digester.EmailDigest(o.Email)
	}

	phone, err := obsdomain.NormalizePhone(o.Phone)
	if err != nil {
		return "", &ValidationError{Field: "phone", Reason: err.Error()}
	}
	o.Phone = phone

	if o.FullName != "" && o.Name == (obsdomain.Name{}) {
		o.Name = obsdomain.SplitName(o.FullName)
	}
	if o.DeviceType == "" {
		o.DeviceType = signature.DeviceType(o.UserAgent)
	}
	if o.CollectedAt.IsZero() {
		o.CollectedAt = e.now()
	}
	if err := o.Validate(); err != nil {
		return "", &ValidationError{Field: "observation", Reason: err.Error()}
	}
	if o.ID == "" {
		o.ID = uuid.New().String()
	}
	if err := e.observations.Create(ctx, o); err != nil {
		return "", &PersistenceError{Op: "create observation", Err: err}
	}
	return o.ID, nil
}

// Resolve runs the full matching pipeline for the observation: every
// enabled matcher, tiering, link creation for high-confidence candidates,
// and review dispatch for medium ones. Concurrent Resolve calls only
// contend on the per-pair write locks in the link builder.
func (e *Engine) Resolve(ctx context.Context, observationID string) (*Resolution, error) {
	o, err := e.observations.GetByID(ctx, observationID)
	if err != nil {
		return nil, &PersistenceError{Op: "load observation", Err: err}
	}
	if o == nil {
		return nil, ErrObservationNotFound
	}

	now := e.now()
	tiers := e.aggregator.Run(ctx, o, now)

	// A shared identifier promotes the same pair through several matchers:
	// an exact email also matches by hash. Candidates arrive strongest
	// first, so the first one per candidate observation writes the link
	// and the weaker duplicates are dropped.
	res := &Resolution{Medium: tiers.Medium}
	linked := make(map[string]bool, len(tiers.High))
	for _, cand := range tiers.High {
		if linked[cand.ObservationID] {
			continue
		}
		linked[cand.ObservationID] = true
		l, err := e.buildLink(ctx, o, cand, now)
		if err != nil {
			return nil, err
		}
		if l != nil {
			res.High = append(res.High, l)
		}
	}
	for _, cand := range tiers.Medium {
		e.dispatchReview(ctx, o.ID, cand)
	}
	return res, nil
}

// GetLinks returns the active links touching an observation, one hop.
func (e *Engine) GetLinks(ctx context.Context, observationID string) ([]*linkdomain.IdentityLink, error) {
	o, err := e.observations.GetByID(ctx, observationID)
	if err != nil {
		return nil, &PersistenceError{Op: "load observation", Err: err}
	}
	if o == nil {
		return nil, ErrObservationNotFound
	}
	links, err := e.links.ListActiveByObservation(ctx, observationID)
	if err != nil {
		return nil, &PersistenceError{Op: "list links", Err: err}
	}
	return links, nil
}
