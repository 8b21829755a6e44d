package repository

import (
	"context"
	"time"

	"identity-resolution/engine/internal/observation/domain"
)

// Repository defines persistence for observations. Observations are
// append-only: there is no update or delete surface. The List* methods are
// the read-only lookups behind the matcher registry.
type Repository interface {
	Create(ctx context.Context, o *domain.Observation) error
	GetByID(ctx context.Context, id string) (*domain.Observation, error)
	GetBySessionID(ctx context.Context, sessionID string) (*domain.Observation, error)
	ListByEmail(ctx context.Context, email string) ([]*domain.Observation, error)
	ListByEmailHash(ctx context.Context, emailHash string) ([]*domain.Observation, error)
	ListByPhone(ctx context.Context, phone string) ([]*domain.Observation, error)
	ListByNameAndEmailDomain(ctx context.Context, first, last, emailDomain string) ([]*domain.Observation, error)
	ListByDeviceFingerprint(ctx context.Context, fingerprint string) ([]*domain.Observation, error)
	ListByIPPrefix(ctx context.Context, ipPrefix string) ([]*domain.Observation, error)
	ListByIPSince(ctx context.Context, ip string, since time.Time) ([]*domain.Observation, error)
	ListBehavioralCandidates(ctx context.Context, o *domain.Observation, since time.Time, hour, limit int) ([]*domain.Observation, error)
}
