package repository

import (
	"context"

	"identity-resolution/engine/internal/link/domain"
)

// Repository defines persistence for identity links. UpsertActive enforces
// the at-most-one-active-link-per-pair invariant: a second high-confidence
// detection of the same pair updates the existing row in place.
type Repository interface {
	UpsertActive(ctx context.Context, l *domain.IdentityLink) (*domain.IdentityLink, error)
	GetByID(ctx context.Context, id string) (*domain.IdentityLink, error)
	ListActiveByObservation(ctx context.Context, observationID string) ([]*domain.IdentityLink, error)
	Revoke(ctx context.Context, id string) error
}
