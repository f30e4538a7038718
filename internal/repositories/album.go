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

const albumColumns = `id, title, artist, image_url, tidal_url, audio_quality, last_listened, listen_count, created_at, updated_at`

// AlbumRepository persists [models.Album] rows.
//
// Counter updates are single UPDATE statements so concurrent plays of the same album cannot lose an increment.
type AlbumRepository struct {
	db  *sql.DB
	now func() time.Time
}

// NewAlbumRepository creates a new [AlbumRepository] with the given database connection
func NewAlbumRepository(db *sql.DB) *AlbumRepository {
	return &AlbumRepository{db: db, now: time.Now}
}

// Get retrieves an album by ID, returning [shared.ErrAlbumNotFound] when absent.
func (r *AlbumRepository) Get(ctx context.Context, id string) (*models.Album, error) {
	query := `SELECT ` + albumColumns + ` FROM albums WHERE id = ?`

	album, err := scanAlbum(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", shared.ErrAlbumNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query album: %w", err)
	}
	return album, nil
}

// List retrieves every album in the requested order.
//
// Ties are left to SQLite's row order.
func (r *AlbumRepository) List(ctx context.Context, order models.AlbumOrder) ([]*models.Album, error) {
	query := `SELECT ` + albumColumns + ` FROM albums`

	switch order {
	case models.OrderMostListened:
		query += " ORDER BY listen_count DESC"
	default:
		query += " ORDER BY last_listened DESC"
	}

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query albums: %w", err)
	}
	defer rows.Close()

	albums := []*models.Album{}
	for rows.Next() {
		album, err := scanAlbum(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan album: %w", err)
		}
		albums = append(albums, album)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return albums, nil
}

// RecordPlay registers a play of album at the given time.
//
// A new album is inserted with a listen count of 1 and created is true. An existing album gets its count
// incremented by exactly one and last_listened moved to at, unless the stored value is already later.
func (r *AlbumRepository) RecordPlay(ctx context.Context, album *models.Album, at time.Time) (created bool, err error) {
	album.Normalize()
	if err := album.Validate(); err != nil {
		return false, fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
	}

	now := r.now().UTC()
	insert := `
		INSERT INTO albums (id, title, artist, image_url, tidal_url, audio_quality, last_listened, listen_count, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, 1, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`

	result, err := r.db.ExecContext(ctx, insert,
		album.ID, album.Title, album.Artist, album.ImageURL, album.TidalURL, album.AudioQuality,
		at.UnixMilli(), now, now,
	)
	if err != nil {
		return false, fmt.Errorf("failed to insert album: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 1 {
		return true, nil
	}

	found, err := r.Touch(ctx, album.ID, at)
	if err != nil {
		return false, err
	}
	if !found {
		return false, fmt.Errorf("%w: %s deleted while recording play", shared.ErrAlbumNotFound, album.ID)
	}
	return false, nil
}

// Touch increments the listen count of an existing album and moves last_listened forward to at.
//
// found is false when no album has the given id; nothing is written in that case.
func (r *AlbumRepository) Touch(ctx context.Context, id string, at time.Time) (found bool, err error) {
	query := `
		UPDATE albums
		SET listen_count = listen_count + 1,
		    last_listened = MAX(last_listened, ?),
		    updated_at = ?
		WHERE id = ?
	`

	result, err := r.db.ExecContext(ctx, query, at.UnixMilli(), r.now().UTC(), id)
	if err != nil {
		return false, fmt.Errorf("failed to update album: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get affected rows: %w", err)
	}

	return rows > 0, nil
}

// Delete removes an album by ID. Deleting an unknown id is not an error.
func (r *AlbumRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM albums WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete album: %w", err)
	}
	return nil
}

// Count returns the number of cached albums.
func (r *AlbumRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM albums`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count albums: %w", err)
	}
	return n, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanAlbum(row scanner) (*models.Album, error) {
	var (
		album        models.Album
		lastListened int64
	)

	err := row.Scan(
		&album.ID, &album.Title, &album.Artist, &album.ImageURL, &album.TidalURL, &album.AudioQuality,
		&lastListened, &album.ListenCount, &album.CreatedAt, &album.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	album.LastListened = time.UnixMilli(lastListened).UTC()
	return &album, nil
}
