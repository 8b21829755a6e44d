// Package matching implements the identity matcher registry: a fixed,
// ordered set of algorithms that find candidate observations believed to
// belong to the same person as a given observation, plus the aggregator
// that runs them and partitions results by confidence.
package matching

import (
	"context"
	"time"

	obsdomain "identity-resolution/engine/internal/observation/domain"
)

// MatchCandidate is the transient result of one matcher run: a candidate
// observation with the matcher's self-reported confidence. Consumed
// immediately by the aggregator, never persisted directly.
type MatchCandidate struct {
	ObservationID   string    `json:"candidate_observation_id"`
	MatchType       string    `json:"match_type"`
	Confidence      float64   `json:"confidence"`
	MatchingFactors []string  `json:"matching_factors"`
	CollectedAt     time.Time `json:"collected_at"`
}

// Matcher is one matching algorithm. Lookup must exclude the querying
// observation itself from results and must not mutate shared state; the
// aggregator may run matchers concurrently.
type Matcher interface {
	Name() string
	// Weight orders matchers in the registry; higher is more trusted.
	Weight() int
	// BaseConfidence is the static confidence assigned to every candidate.
	// The behavioral matcher ignores it and scores candidates dynamically.
	BaseConfidence() float64
	Lookup(ctx context.Context, o *obsdomain.Observation, now time.Time) ([]MatchCandidate, error)
}

// Matcher names, as recorded in candidates, links, and attribution events.
const (
	NameEmailExact          = "email_exact"
	NameEmailHash           = "email_hash"
	NamePhoneExact          = "phone_exact"
	NameNameEmailDomain     = "name_email_domain"
	NameDeviceFingerprint   = "device_fingerprint"
	NameBehavioralPattern   = "behavioral_pattern"
	NameIPGeolocation       = "ip_geolocation"
	NameHouseholdClustering = "household_clustering"
)

// Store is the read-only persistence surface matchers query. Only
// ListBehavioralCandidates excludes the resolving observation in the
// query itself; the exact-match lookups may return it, and collect
// filters it out of every matcher's results.
type Store interface {
	ListByEmail(ctx context.Context, email string) ([]*obsdomain.Observation, error)
	ListByEmailHash(ctx context.Context, emailHash string) ([]*obsdomain.Observation, error)
	ListByPhone(ctx context.Context, phone string) ([]*obsdomain.Observation, error)
	ListByNameAndEmailDomain(ctx context.Context, first, last, emailDomain string) ([]*obsdomain.Observation, error)
	ListByDeviceFingerprint(ctx context.Context, fingerprint string) ([]*obsdomain.Observation, error)
	ListByIPPrefix(ctx context.Context, ipPrefix string) ([]*obsdomain.Observation, error)
	ListByIPSince(ctx context.Context, ip string, since time.Time) ([]*obsdomain.Observation, error)
	// ListBehavioralCandidates returns observations from the trailing
	// window that share the observation's IP or device type or fall in a
	// +/-2h hour-of-day window around hour, capped at limit.
	ListBehavioralCandidates(ctx context.Context, o *obsdomain.Observation, since time.Time, hour, limit int) ([]*obsdomain.Observation, error)
}

// DefaultMatchers returns the full matcher registry in its fixed order.
// The slice is a plain configuration value: tests can construct, reorder,
// or subset it freely, and the aggregator treats it as immutable.
func DefaultMatchers(store Store, behavioralTimeout time.Duration) []Matcher {
	return []Matcher{
		&emailExactMatcher{store: store},
		&emailHashMatcher{store: store},
		&phoneExactMatcher{store: store},
		&nameEmailDomainMatcher{store: store},
		&deviceFingerprintMatcher{store: store},
		&behavioralMatcher{store: store, queryTimeout: behavioralTimeout},
		&ipGeolocationMatcher{store: store},
		&householdClusteringMatcher{store: store},
	}
}

// Filter returns the matchers whose names appear in enabled, preserving
// registry order. A nil or empty set enables everything.
func Filter(matchers []Matcher, enabled map[string]bool) []Matcher {
	if len(enabled) == 0 {
		return matchers
	}
	out := make([]Matcher, 0, len(matchers))
	for _, m := range matchers {
		if enabled[m.Name()] {
			out = append(out, m)
		}
	}
	return out
}

// collect builds candidates from store rows with the matcher's static
// confidence, skipping the querying observation itself.
func collect(o *obsdomain.Observation, rows []*obsdomain.Observation, m Matcher, factors []string) []MatchCandidate {
	out := make([]MatchCandidate, 0, len(rows))
	for _, row := range rows {
		if row.ID == o.ID {
			continue
		}
		out = append(out, MatchCandidate{
			ObservationID:   row.ID,
			MatchType:       m.Name(),
			Confidence:      m.BaseConfidence(),
			MatchingFactors: factors,
			CollectedAt:     row.CollectedAt,
		})
	}
	return out
}
