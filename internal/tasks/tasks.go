package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/desertthunder/tidalx/internal/models"
	"github.com/desertthunder/tidalx/internal/services"
)

// TidalClient is the subset of [services.TidalService] used by the tasks.
//
// Every method returns the credential to persist, which may be a refreshed copy of the input.
type TidalClient interface {
	RecentHistory(ctx context.Context, cred *models.Credential) (*models.Credential, []models.TrackPlay, error)
	Favorites(ctx context.Context, cred *models.Credential) (*models.Credential, *services.FavoriteAlbums, error)
	AlbumDetails(ctx context.Context, cred *models.Credential, albumID string) (*models.Credential, *services.TidalAlbum, error)
	PlayAlbum(ctx context.Context, cred *models.Credential, albumID string) (*models.Credential, error)
}

// CredentialStore loads and saves credentials by user key.
type CredentialStore interface {
	Get(ctx context.Context, userKey string) (*models.Credential, error)
	Upsert(ctx context.Context, cred *models.Credential) error
}

// AlbumStore is the album persistence used by [HistorySync].
type AlbumStore interface {
	AlbumRecorder
	Touch(ctx context.Context, id string, at time.Time) (found bool, err error)
}

// Syncer defines the operations that need a Tidal credential.
type Syncer interface {
	// Sync fetches the listening history and ingests it into the album store.
	Sync(ctx context.Context, userKey string, progress chan<- ProgressUpdate) (*IngestResult, error)

	// Play starts playback of an album on Tidal and counts it as a listen.
	Play(ctx context.Context, userKey, albumID string) error

	// Favorites returns the user's favorite albums.
	Favorites(ctx context.Context, userKey string) (*services.FavoriteAlbums, error)

	// AlbumDetails returns Tidal's metadata for an album.
	AlbumDetails(ctx context.Context, userKey, albumID string) (*services.TidalAlbum, error)
}

// HistorySync implements [Syncer].
type HistorySync struct {
	tidal       TidalClient
	credentials CredentialStore
	albums      AlbumStore
	ingester    *Ingester
	now         func() time.Time
}

// NewHistorySync creates a new HistorySync with the provided dependencies.
func NewHistorySync(tidal TidalClient, credentials CredentialStore, albums AlbumStore) *HistorySync {
	return &HistorySync{
		tidal:       tidal,
		credentials: credentials,
		albums:      albums,
		ingester:    NewIngester(albums),
		now:         time.Now,
	}
}

// WithClock replaces the clock used to timestamp plays started through [HistorySync.Play].
func (h *HistorySync) WithClock(now func() time.Time) *HistorySync {
	h.now = now
	return h
}

// load returns the stored credential; a missing one surfaces as [shared.ErrNotAuthenticated] before any
// Tidal call is made.
func (h *HistorySync) load(ctx context.Context, userKey string) (*models.Credential, error) {
	if userKey == "" {
		userKey = models.DefaultUserKey
	}
	return h.credentials.Get(ctx, userKey)
}

// persist saves updated when it differs from the credential that was loaded.
func (h *HistorySync) persist(ctx context.Context, loaded, updated *models.Credential, progress chan<- ProgressUpdate) error {
	if updated == nil || !loaded.Changed(updated) {
		return nil
	}
	if err := h.credentials.Upsert(ctx, updated); err != nil {
		return fmt.Errorf("failed to store refreshed credential: %w", err)
	}
	sendProgress(progress, savedCredentialUpdate())
	return nil
}

// Sync fetches recent history from Tidal and ingests it.
func (h *HistorySync) Sync(ctx context.Context, userKey string, progress chan<- ProgressUpdate) (*IngestResult, error) {
	sendProgress(progress, loadCredentialUpdate(userKey))
	cred, err := h.load(ctx, userKey)
	if err != nil {
		return nil, err
	}

	sendProgress(progress, fetchHistoryUpdate())
	updated, plays, err := h.tidal.RecentHistory(ctx, cred)
	if perr := h.persist(ctx, cred, updated, progress); perr != nil && err == nil {
		err = perr
	}
	if err != nil {
		return nil, err
	}
	sendProgress(progress, fetchedHistoryUpdate(len(plays)))

	return h.ingester.Ingest(ctx, plays, progress)
}

// Play starts playback on Tidal, then increments the album's listen count and moves its last
// listened time to now. Albums that are not cached locally are left alone.
func (h *HistorySync) Play(ctx context.Context, userKey, albumID string) error {
	cred, err := h.load(ctx, userKey)
	if err != nil {
		return err
	}

	updated, err := h.tidal.PlayAlbum(ctx, cred, albumID)
	if perr := h.persist(ctx, cred, updated, nil); perr != nil && err == nil {
		err = perr
	}
	if err != nil {
		return err
	}

	if _, err := h.albums.Touch(ctx, albumID, h.now().UTC()); err != nil {
		return fmt.Errorf("failed to record play: %w", err)
	}
	return nil
}

// Favorites returns the user's favorite albums from Tidal.
func (h *HistorySync) Favorites(ctx context.Context, userKey string) (*services.FavoriteAlbums, error) {
	cred, err := h.load(ctx, userKey)
	if err != nil {
		return nil, err
	}

	updated, favorites, err := h.tidal.Favorites(ctx, cred)
	if perr := h.persist(ctx, cred, updated, nil); perr != nil && err == nil {
		err = perr
	}
	if err != nil {
		return nil, err
	}
	return favorites, nil
}

// AlbumDetails returns Tidal's metadata for albumID.
func (h *HistorySync) AlbumDetails(ctx context.Context, userKey, albumID string) (*services.TidalAlbum, error) {
	cred, err := h.load(ctx, userKey)
	if err != nil {
		return nil, err
	}

	updated, album, err := h.tidal.AlbumDetails(ctx, cred, albumID)
	if perr := h.persist(ctx, cred, updated, nil); perr != nil && err == nil {
		err = perr
	}
	if err != nil {
		return nil, err
	}
	return album, nil
}
