package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/waaaaall/snaptrack/internal/models"
)

// tokenName is the fixed key under which the single live credential is stored.
const tokenName = "spotify"

// TokenRepository implements [TokenStore] on SQLite.
type TokenRepository struct {
	db *sql.DB
}

// NewTokenRepository creates a new TokenRepository with the given database.
func NewTokenRepository(db *sql.DB) *TokenRepository {
	return &TokenRepository{db: db}
}

// Load returns the persisted credential, or nil when none has been stored yet.
func (r *TokenRepository) Load() (*models.Credential, error) {
	var cred models.Credential
	var refresh sql.NullString
	var expiresAt string

	err := r.db.QueryRow(
		"SELECT access_token, refresh_token, expires_at FROM tokens WHERE name = ?",
		tokenName,
	).Scan(&cred.AccessToken, &refresh, &expiresAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load credential: %w", err)
	}

	if refresh.Valid {
		cred.RefreshToken = refresh.String
	}

	cred.ExpiresAt, err = parseTimestamp(expiresAt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse credential expiry: %w", err)
	}

	return &cred, nil
}

// Save replaces the stored credential in a single statement.
//
// The upsert keeps the write atomic: a failed exchange can never leave a
// half-written record behind.
func (r *TokenRepository) Save(cred models.Credential) error {
	_, err := r.db.Exec(`
		INSERT INTO tokens (name, access_token, refresh_token, expires_at, updated_at)
		VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(name) DO UPDATE SET
			access_token = excluded.access_token,
			refresh_token = excluded.refresh_token,
			expires_at = excluded.expires_at,
			updated_at = CURRENT_TIMESTAMP`,
		tokenName, cred.AccessToken, nullable(cred.RefreshToken), cred.ExpiresAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to save credential: %w", err)
	}
	return nil
}

// Clear removes the stored credential.
func (r *TokenRepository) Clear() error {
	if _, err := r.db.Exec("DELETE FROM tokens WHERE name = ?", tokenName); err != nil {
		return fmt.Errorf("failed to clear credential: %w", err)
	}
	return nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// parseTimestamp accepts the RFC3339 form written by Save plus the layouts
// the sqlite driver may hand back for TIMESTAMP columns.
func parseTimestamp(s string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05-07:00", "2006-01-02 15:04:05"} {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}
