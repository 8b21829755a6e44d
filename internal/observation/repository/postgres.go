package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"identity-resolution/engine/internal/observation/domain"
)

// lookupLimit caps every exact-match lookup so one hot identifier (a
// shared office email, a popular device profile) cannot blow up a resolve.
const lookupLimit = 100

var limitClause = strconv.Itoa(lookupLimit)

const observationColumns = `id, source, email, email_hash, phone, full_name,
	first_name, middle_name, last_name, device_fingerprint, device_type,
	ip_address, user_agent, session_id, additional_data, collected_at`

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns an observation repository that uses the
// given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create persists the observation. The observation must have ID set.
func (r *PostgresRepository) Create(ctx context.Context, o *domain.Observation) error {
	data, err := json.Marshal(o.AdditionalData)
	if err != nil {
		return err
	}
	if o.AdditionalData == nil {
		data = []byte("{}")
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO observations (`+observationColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`,
		o.ID, string(o.Source), o.Email, o.EmailHash, o.Phone, o.FullName,
		o.Name.First, o.Name.Middle, o.Name.Last, o.DeviceFingerprint, o.DeviceType,
		o.IPAddress, o.UserAgent, o.SessionID, data, o.CollectedAt,
	)
	return err
}

// GetByID returns the observation for id, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.Observation, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+observationColumns+` FROM observations WHERE id = $1`, id)
	o, err := scanObservation(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return o, nil
}

// GetBySessionID returns the most recent observation for a session, or nil
// if not found. Used by the seeder for idempotency checks.
func (r *PostgresRepository) GetBySessionID(ctx context.Context, sessionID string) (*domain.Observation, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+observationColumns+` FROM observations
		WHERE session_id = $1 ORDER BY collected_at DESC LIMIT 1`, sessionID)
	o, err := scanObservation(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return o, nil
}

func (r *PostgresRepository) ListByEmail(ctx context.Context, email string) ([]*domain.Observation, error) {
	return r.list(ctx, `
		SELECT `+observationColumns+` FROM observations
		WHERE email = $1 ORDER BY collected_at DESC LIMIT `+limitClause, email)
}

func (r *PostgresRepository) ListByEmailHash(ctx context.Context, emailHash string) ([]*domain.Observation, error) {
	return r.list(ctx, `
		SELECT `+observationColumns+` FROM observations
		WHERE email_hash = $1 ORDER BY collected_at DESC LIMIT `+limitClause, emailHash)
}

func (r *PostgresRepository) ListByPhone(ctx context.Context, phone string) ([]*domain.Observation, error) {
	return r.list(ctx, `
		SELECT `+observationColumns+` FROM observations
		WHERE phone = $1 ORDER BY collected_at DESC LIMIT `+limitClause, phone)
}

// ListByNameAndEmailDomain matches on case-insensitive first/last name plus
// the email domain. Middle names are ignored: they are too inconsistently
// collected to be a useful discriminator.
func (r *PostgresRepository) ListByNameAndEmailDomain(ctx context.Context, first, last, emailDomain string) ([]*domain.Observation, error) {
	return r.list(ctx, `
		SELECT `+observationColumns+` FROM observations
		WHERE lower(first_name) = lower($1) AND lower(last_name) = lower($2)
		  AND email LIKE '%@' || $3
		ORDER BY collected_at DESC LIMIT `+limitClause, first, last, emailDomain)
}

func (r *PostgresRepository) ListByDeviceFingerprint(ctx context.Context, fingerprint string) ([]*domain.Observation, error) {
	return r.list(ctx, `
		SELECT `+observationColumns+` FROM observations
		WHERE device_fingerprint = $1 ORDER BY collected_at DESC LIMIT `+limitClause, fingerprint)
}

func (r *PostgresRepository) ListByIPPrefix(ctx context.Context, ipPrefix string) ([]*domain.Observation, error) {
	return r.list(ctx, `
		SELECT `+observationColumns+` FROM observations
		WHERE ip_address LIKE $1 || '%' ORDER BY collected_at DESC LIMIT `+limitClause, ipPrefix)
}

func (r *PostgresRepository) ListByIPSince(ctx context.Context, ip string, since time.Time) ([]*domain.Observation, error) {
	return r.list(ctx, `
		SELECT `+observationColumns+` FROM observations
		WHERE ip_address = $1 AND collected_at >= $2
		ORDER BY collected_at DESC LIMIT `+limitClause, ip, since)
}

// ListBehavioralCandidates returns recent observations that plausibly came
// from the same person: same IP, same device class, or active in a +/-2h
// hour-of-day window (with midnight wraparound). The scorer does the real
// work; this only bounds the scan.
func (r *PostgresRepository) ListBehavioralCandidates(ctx context.Context, o *domain.Observation, since time.Time, hour, limit int) ([]*domain.Observation, error) {
	return r.list(ctx, `
		SELECT `+observationColumns+` FROM observations
		WHERE collected_at >= $1
		  AND id <> $2
		  AND (
			($3 <> '' AND ip_address = $3)
			OR ($4 <> '' AND device_type = $4)
			OR LEAST(ABS(EXTRACT(HOUR FROM collected_at) - $5), 24 - ABS(EXTRACT(HOUR FROM collected_at) - $5)) <= 2
		  )
		ORDER BY collected_at DESC
		LIMIT $6`,
		since, o.ID, o.IPAddress, o.DeviceType, hour, limit)
}

func (r *PostgresRepository) list(ctx context.Context, query string, args ...any) ([]*domain.Observation, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*domain.Observation
	for rows.Next() {
		o, err := scanObservation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanObservation(row rowScanner) (*domain.Observation, error) {
	var o domain.Observation
	var source string
	var data []byte
	err := row.Scan(
		&o.ID, &source, &o.Email, &o.EmailHash, &o.Phone, &o.FullName,
		&o.Name.First, &o.Name.Middle, &o.Name.Last, &o.DeviceFingerprint, &o.DeviceType,
		&o.IPAddress, &o.UserAgent, &o.SessionID, &data, &o.CollectedAt,
	)
	if err != nil {
		return nil, err
	}
	o.Source = domain.Source(source)
	if len(data) > 0 {
		if err := json.Unmarshal(data, &o.AdditionalData); err != nil {
			return nil, err
		}
	}
	return &o, nil
}
