package domain

import "time"

// IdentityLink is a persisted assertion that two observations belong to the
// same person. The pair is stored in canonical order (ObservationID1 <
// ObservationID2) so the at-most-one-active-link invariant can be enforced
// with a unique index.
type IdentityLink struct {
	ID              string
	ObservationID1  string
	ObservationID2  string
	LinkType        string
	ConfidenceLevel ConfidenceLevel
	LinkStrength    int
	MatchData       string // serialized match candidate (JSON)
	Status          Status
	CreatedAt       time.Time
}

type ConfidenceLevel string

const (
	ConfidenceHigh   ConfidenceLevel = "high"
	ConfidenceMedium ConfidenceLevel = "medium"
)

type Status string

const (
	StatusActive  Status = "active"
	StatusRevoked Status = "revoked"
)

// CanonicalPair returns a, b ordered so that a < b. Links always store the
// smaller observation id first.
func CanonicalPair(a, b string) (string, string) {
	if b < a {
		return b, a
	}
	return a, b
}
