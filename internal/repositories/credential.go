package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/tidalx/internal/models"
	"github.com/desertthunder/tidalx/internal/shared"
)

// CredentialRepository is the token store: one [models.Credential] per user key.
type CredentialRepository struct {
	db  *sql.DB
	now func() time.Time
}

// NewCredentialRepository creates a new [CredentialRepository] with the given database connection
func NewCredentialRepository(db *sql.DB) *CredentialRepository {
	return &CredentialRepository{db: db, now: time.Now}
}

// Get loads the credential stored under userKey, returning [shared.ErrNotAuthenticated] when there is none.
func (r *CredentialRepository) Get(ctx context.Context, userKey string) (*models.Credential, error) {
	query := `
		SELECT user_key, tidal_user_id, access_token, refresh_token, token_expiration, created_at, updated_at
		FROM credentials
		WHERE user_key = ?
	`

	var (
		cred       models.Credential
		expiration int64
	)

	err := r.db.QueryRowContext(ctx, query, userKey).Scan(
		&cred.UserKey, &cred.TidalUserID, &cred.AccessToken, &cred.RefreshToken, &expiration,
		&cred.CreatedAt, &cred.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: no credential for %q", shared.ErrNotAuthenticated, userKey)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query credential: %w", err)
	}

	cred.TokenExpiration = time.UnixMilli(expiration).UTC()
	return &cred, nil
}

// Upsert inserts the credential or overwrites the one stored under the same user key.
func (r *CredentialRepository) Upsert(ctx context.Context, cred *models.Credential) error {
	if err := cred.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	now := r.now().UTC()
	cred.UpdatedAt = now
	if cred.CreatedAt.IsZero() {
		cred.CreatedAt = now
	}

	query := `
		INSERT INTO credentials (user_key, tidal_user_id, access_token, refresh_token, token_expiration, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_key) DO UPDATE SET
			tidal_user_id = excluded.tidal_user_id,
			access_token = excluded.access_token,
			refresh_token = excluded.refresh_token,
			token_expiration = excluded.token_expiration,
			updated_at = excluded.updated_at
	`

	_, err := r.db.ExecContext(ctx, query,
		cred.UserKey, cred.TidalUserID, cred.AccessToken, cred.RefreshToken,
		cred.TokenExpiration.UnixMilli(), cred.CreatedAt, cred.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert credential: %w", err)
	}

	return nil
}
