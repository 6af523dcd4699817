package sqlstore

import (
	"context"
	"fmt"
	"time"
)

// BlacklistToken records a refresh token id as revoked. Repeated calls are no-ops.
func (s *Store) BlacklistToken(ctx context.Context, jti string, userID int64, expiresAt time.Time) error {
	const query = `
		INSERT INTO token_blacklist (jti, user_id, expires_at, blacklisted_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (jti) DO NOTHING`
	if _, err := s.db.ExecContext(ctx, query, jti, userID, expiresAt.UTC(), s.timestamp()); err != nil {
		return fmt.Errorf("blacklist token: %w", err)
	}
	return nil
}

// IsTokenBlacklisted reports whether jti was revoked.
func (s *Store) IsTokenBlacklisted(ctx context.Context, jti string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM token_blacklist WHERE jti = $1)`
	var exists bool
	if err := s.db.QueryRowContext(ctx, query, jti).Scan(&exists); err != nil {
		return false, fmt.Errorf("check token blacklist: %w", err)
	}
	return exists, nil
}
