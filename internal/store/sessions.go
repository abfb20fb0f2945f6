// ABOUTME: Dashboard session persistence backed by the sessions table
// ABOUTME: Bearer tokens are sealed before insert and opened on read

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// CreateSession stores a new session. ID, Token and ExpiresAt are required.
func (s *SQLiteStore) CreateSession(ctx context.Context, session *Session) error {
	if session.ID == "" || session.Token == "" || session.ExpiresAt.IsZero() {
		return fmt.Errorf("session requires id, token and expiry")
	}
	if session.CreatedAt.IsZero() {
		session.CreatedAt = time.Now().UTC()
	}

	sealed, err := s.sealer.Seal(session.Token)
	if err != nil {
		return fmt.Errorf("sealing session token: %w", err)
	}

	query := `
		INSERT INTO sessions (id, token_sealed, tenant_id, email, role, locale, created_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = s.db.ExecContext(ctx, query,
		session.ID,
		sealed,
		session.TenantID,
		session.Email,
		session.Role,
		session.Locale,
		session.CreatedAt.UTC().Format(time.RFC3339),
		session.ExpiresAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("inserting session: %w", err)
	}

	s.logger.Debug("created session", "id", session.ID, "tenant_id", session.TenantID)
	return nil
}

// GetSession retrieves a valid (non-expired) session.
// A row whose token no longer unseals (rotated secret) counts as missing.
func (s *SQLiteStore) GetSession(ctx context.Context, id string) (*Session, error) {
	query := `
		SELECT id, token_sealed, tenant_id, email, role, locale, created_at, expires_at
		FROM sessions
		WHERE id = ? AND expires_at > ?
	`

	var session Session
	var sealed, createdAtStr, expiresAtStr string
	now := time.Now().UTC().Format(time.RFC3339)

	err := s.db.QueryRowContext(ctx, query, id, now).Scan(
		&session.ID,
		&sealed,
		&session.TenantID,
		&session.Email,
		&session.Role,
		&session.Locale,
		&createdAtStr,
		&expiresAtStr,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying session: %w", err)
	}

	session.Token, err = s.sealer.Open(sealed)
	if err != nil {
		s.logger.Warn("discarding session with unreadable token", "id", id)
		return nil, ErrSessionNotFound
	}

	session.CreatedAt, err = time.Parse(time.RFC3339, createdAtStr)
	if err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}

	session.ExpiresAt, err = time.Parse(time.RFC3339, expiresAtStr)
	if err != nil {
		return nil, fmt.Errorf("parsing expires_at: %w", err)
	}

	return &session, nil
}

// UpdateSessionLocale records the locale the user picked.
func (s *SQLiteStore) UpdateSessionLocale(ctx context.Context, id, locale string) error {
	result, err := s.db.ExecContext(ctx, "UPDATE sessions SET locale = ? WHERE id = ?", locale, id)
	if err != nil {
		return fmt.Errorf("updating session locale: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if n == 0 {
		return ErrSessionNotFound
	}
	return nil
}

// DeleteSession deletes a session. Deleting a missing session is not an error.
func (s *SQLiteStore) DeleteSession(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM sessions WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	return nil
}

// DeleteExpiredSessions removes all expired sessions and reports how many went.
func (s *SQLiteStore) DeleteExpiredSessions(ctx context.Context) (int64, error) {
	now := time.Now().UTC().Format(time.RFC3339)
	result, err := s.db.ExecContext(ctx, "DELETE FROM sessions WHERE expires_at <= ?", now)
	if err != nil {
		return 0, fmt.Errorf("deleting expired sessions: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected > 0 {
		s.logger.Debug("deleted expired sessions", "count", rowsAffected)
	}
	return rowsAffected, nil
}
