// package repositories provides persistence layer implementations for all model types.
package repositories

import (
	"database/sql"
	"time"
)

// Store bundles the repositories sharing one database connection.
type Store struct {
	Albums      *AlbumRepository
	Credentials *CredentialRepository
}

// NewStore creates every repository over db.
func NewStore(db *sql.DB) *Store {
	return &Store{
		Albums:      NewAlbumRepository(db),
		Credentials: NewCredentialRepository(db),
	}
}

// WithClock replaces the clock used for created_at/updated_at bookkeeping.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.Albums.now = now
	s.Credentials.now = now
	return s
}
