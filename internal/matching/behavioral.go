package matching

import (
	"context"
	"sort"
	"time"

	obsdomain "identity-resolution/engine/internal/observation/domain"
	"identity-resolution/engine/internal/signature"
)

// Bounds for the behavioral candidate search. The scan is the only matcher
// that reads more than an exact-match index, so it is windowed, capped,
// and given its own timeout; a slow scan fails this matcher alone.
const (
	behavioralWindow              = 90 * 24 * time.Hour
	behavioralScanLimit           = 50
	behavioralMinScore            = 0.60
	behavioralMaxResults          = 10
	defaultBehavioralQueryTimeout = 2 * time.Second
)

// behavioralMatcher scores sessions that share no deterministic identifier
// on temporal, navigational, interaction, device, and referral similarity.
type behavioralMatcher struct {
	store        Store
	queryTimeout time.Duration
}

func (m *behavioralMatcher) Name() string { return NameBehavioralPattern }
func (m *behavioralMatcher) Weight() int  { return 50 }

// BaseConfidence is nominal only: behavioral candidates carry the computed
// similarity score as their confidence.
func (m *behavioralMatcher) BaseConfidence() float64 { return 0 }

func (m *behavioralMatcher) Lookup(ctx context.Context, o *obsdomain.Observation, now time.Time) ([]MatchCandidate, error) {
	timeout := m.queryTimeout
	if timeout <= 0 {
		timeout = defaultBehavioralQueryTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	rows, err := m.store.ListBehavioralCandidates(ctx, o, now.Add(-behavioralWindow), now.Hour(), behavioralScanLimit)
	if err != nil {
		return nil, err
	}

	sig := signature.Extract(o, now)
	out := make([]MatchCandidate, 0, len(rows))
	for _, row := range rows {
		if row.ID == o.ID {
			continue
		}
		score, factors := Similarity(sig, signature.Extract(row, now))
		if score < behavioralMinScore {
			continue
		}
		out = append(out, MatchCandidate{
			ObservationID:   row.ID,
			MatchType:       m.Name(),
			Confidence:      score,
			MatchingFactors: factors,
			CollectedAt:     row.CollectedAt,
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Confidence > out[j].Confidence })
	if len(out) > behavioralMaxResults {
		out = out[:behavioralMaxResults]
	}
	return out, nil
}
