package repository

import (
	"context"
	"database/sql"
	"errors"

	"identity-resolution/engine/internal/link/domain"
)

const linkColumns = `id, observation_id_1, observation_id_2, link_type,
	confidence_level, link_strength, match_data, status, created_at`

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a link repository that uses the given db
// for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// UpsertActive inserts the link, or updates strength, type, and match data
// in place when an active link for the pair already exists. The conflict
// target is the partial unique index on active pairs, so the database
// enforces the invariant even under concurrent writers. Returns the stored
// row (the existing row's id and created_at survive an update).
func (r *PostgresRepository) UpsertActive(ctx context.Context, l *domain.IdentityLink) (*domain.IdentityLink, error) {
	id1, id2 := domain.CanonicalPair(l.ObservationID1, l.ObservationID2)
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO identity_links (`+linkColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, 'active', $8)
		ON CONFLICT (observation_id_1, observation_id_2) WHERE status = 'active'
		DO UPDATE SET
			link_type = EXCLUDED.link_type,
			confidence_level = EXCLUDED.confidence_level,
			link_strength = EXCLUDED.link_strength,
			match_data = EXCLUDED.match_data
		RETURNING `+linkColumns,
		l.ID, id1, id2, l.LinkType, string(l.ConfidenceLevel), l.LinkStrength,
		l.MatchData, l.CreatedAt,
	)
	return scanLink(row)
}

// GetByID returns the link for id, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.IdentityLink, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+linkColumns+` FROM identity_links WHERE id = $1`, id)
	l, err := scanLink(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return l, nil
}

// ListActiveByObservation returns active links touching the observation on
// either side of the pair, strongest first. One hop only: graph traversal
// is a caller concern.
func (r *PostgresRepository) ListActiveByObservation(ctx context.Context, observationID string) ([]*domain.IdentityLink, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+linkColumns+` FROM identity_links
		WHERE status = 'active' AND (observation_id_1 = $1 OR observation_id_2 = $1)
		ORDER BY link_strength DESC, created_at DESC`, observationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*domain.IdentityLink
	for rows.Next() {
		l, err := scanLink(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// Revoke transitions the link to revoked. Links are never deleted by this
// engine; revocation frees the pair for a future active link.
func (r *PostgresRepository) Revoke(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE identity_links SET status = 'revoked' WHERE id = $1`, id)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLink(row rowScanner) (*domain.IdentityLink, error) {
	var l domain.IdentityLink
	var level, status string
	err := row.Scan(
		&l.ID, &l.ObservationID1, &l.ObservationID2, &l.LinkType,
		&level, &l.LinkStrength, &l.MatchData, &status, &l.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	l.ConfidenceLevel = domain.ConfidenceLevel(level)
	l.Status = domain.Status(status)
	return &l, nil
}
