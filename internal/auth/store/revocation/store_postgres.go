package revocation

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	xstrings "jwelary/pkg/platform/strings"
)

// PostgresTRL persists revoked token JTIs in the token_revocations table.
type PostgresTRL struct {
	db    *sql.DB
	clock Clock
}

// PostgresTRLOption configures a PostgresTRL instance.
type PostgresTRLOption func(*PostgresTRL)

// WithPostgresClock sets the clock function for testability.
func WithPostgresClock(clock Clock) PostgresTRLOption {
	return func(trl *PostgresTRL) {
		if clock != nil {
			trl.clock = clock
		}
	}
}

func NewPostgresTRL(db *sql.DB, opts ...PostgresTRLOption) *PostgresTRL {
	trl := &PostgresTRL{db: db, clock: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(trl)
		}
	}
	return trl
}

func (t *PostgresTRL) RevokeToken(ctx context.Context, jti string, ttl time.Duration) error {
	if jti == "" {
		return nil
	}
	if err := validateTTL(ttl); err != nil {
		return err
	}
	_, err := t.db.ExecContext(ctx, `
		INSERT INTO token_revocations (jti, expires_at)
		VALUES ($1, $2)
		ON CONFLICT (jti) DO UPDATE SET
			expires_at = GREATEST(token_revocations.expires_at, EXCLUDED.expires_at)`,
		jti, t.clock().Add(ttl))
	if err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	return nil
}

// RevokeTokens inserts all jtis in one round trip with unnest.
func (t *PostgresTRL) RevokeTokens(ctx context.Context, jtis []string, ttl time.Duration) error {
	jtis = xstrings.DedupeAndTrim(jtis)
	if len(jtis) == 0 {
		return nil
	}
	if err := validateTTL(ttl); err != nil {
		return err
	}
	_, err := t.db.ExecContext(ctx, `
		INSERT INTO token_revocations (jti, expires_at)
		SELECT unnest($1::text[]), $2
		ON CONFLICT (jti) DO UPDATE SET
			expires_at = GREATEST(token_revocations.expires_at, EXCLUDED.expires_at)`,
		pq.Array(jtis), t.clock().Add(ttl))
	if err != nil {
		return fmt.Errorf("revoke tokens batch: %w", err)
	}
	return nil
}

func (t *PostgresTRL) IsRevoked(ctx context.Context, jti string) (bool, error) {
	if jti == "" {
		return false, nil
	}
	var expiresAt time.Time
	err := t.db.QueryRowContext(ctx, `SELECT expires_at FROM token_revocations WHERE jti = $1`, jti).Scan(&expiresAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("check token revocation: %w", err)
	}
	return t.clock().Before(expiresAt), nil
}

// ConsumeOnce inserts the consumption marker, or takes over an expired one.
// A live marker leaves the row untouched and returns no row.
func (t *PostgresTRL) ConsumeOnce(ctx context.Context, jti string, ttl time.Duration) (bool, error) {
	if err := validateTTL(ttl); err != nil {
		return false, err
	}
	now := t.clock()
	var key string
	err := t.db.QueryRowContext(ctx, `
		INSERT INTO token_revocations (jti, expires_at)
		VALUES ($1, $2)
		ON CONFLICT (jti) DO UPDATE SET expires_at = EXCLUDED.expires_at
			WHERE token_revocations.expires_at <= $3
		RETURNING jti`,
		consumedPrefix+jti, now.Add(ttl), now).Scan(&key)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("consume token: %w", err)
	}
	return true, nil
}

// PurgeExpired deletes rows whose expiry has passed.
func (t *PostgresTRL) PurgeExpired(ctx context.Context) (int64, error) {
	res, err := t.db.ExecContext(ctx, `DELETE FROM token_revocations WHERE expires_at <= $1`, t.clock())
	if err != nil {
		return 0, fmt.Errorf("purge revocations: %w", err)
	}
	return res.RowsAffected()
}
