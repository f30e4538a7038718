package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/tidalx/internal/models"
	"github.com/desertthunder/tidalx/internal/shared"
	"github.com/desertthunder/tidalx/internal/tasks"
)

// AlbumStore is the album persistence used by the HTTP API.
type AlbumStore interface {
	Get(ctx context.Context, id string) (*models.Album, error)
	List(ctx context.Context, order models.AlbumOrder) ([]*models.Album, error)
	RecordPlay(ctx context.Context, album *models.Album, at time.Time) (created bool, err error)
	Delete(ctx context.Context, id string) error
}

// Authenticator starts and completes the Tidal authorization code flow.
type Authenticator interface {
	AuthURL(state string) string
	Exchange(ctx context.Context, code string) (*models.Credential, error)
}

// API serves the JSON endpoints and the browser OAuth flow.
type API struct {
	auth        Authenticator
	sync        tasks.Syncer
	albums      AlbumStore
	credentials tasks.CredentialStore
	cfg         shared.ServerConfig
	logger      *log.Logger
	now         func() time.Time
}

// NewAPI creates the API handlers.
func NewAPI(auth Authenticator, sync tasks.Syncer, albums AlbumStore, credentials tasks.CredentialStore, cfg shared.ServerConfig, logger *log.Logger) *API {
	if cfg.UserKey == "" {
		cfg.UserKey = models.DefaultUserKey
	}
	return &API{
		auth:        auth,
		sync:        sync,
		albums:      albums,
		credentials: credentials,
		cfg:         cfg,
		logger:      logger,
		now:         time.Now,
	}
}

// Register adds every route to router.
func (a *API) Register(router *BasicRouter) {
	router.HandleFunc(http.MethodGet, "/health", a.Health)

	router.HandleFunc(http.MethodGet, "/auth/tidal", a.AuthRedirect)
	router.HandleFunc(http.MethodGet, "/auth/callback", a.AuthCallback)
	router.HandleFunc(http.MethodGet, "/api/auth/status", a.AuthStatus)

	router.HandleFunc(http.MethodGet, "/api/tidal/favorites", a.TidalFavorites)
	router.HandleFunc(http.MethodGet, "/api/tidal/recent", a.TidalRecent)
	router.HandleFunc(http.MethodPost, "/api/tidal/play/{albumId}", a.TidalPlay)
	router.HandleFunc(http.MethodGet, "/api/tidal/albums/{albumId}", a.TidalAlbum)

	router.HandleFunc(http.MethodGet, "/api/albums/recent", a.listAlbums(models.OrderRecent))
	router.HandleFunc(http.MethodGet, "/api/albums/most-listened", a.listAlbums(models.OrderMostListened))
	router.HandleFunc(http.MethodPost, "/api/albums", a.SaveAlbum)
	router.HandleFunc(http.MethodDelete, "/api/albums/{id}", a.DeleteAlbum)

	if a.cfg.StaticDir != "" {
		router.Handle(http.MethodGet, "/", NewSPAHandler(a.cfg.StaticDir))
	}
}

// NewRouter builds the application router with the standard middleware stack.
func NewRouter(api *API, cfg shared.ServerConfig, logger *log.Logger) *BasicRouter {
	router := NewBasicRouter()
	router.Use(RequestID(), Logger(logger), Recover(logger), CORS(cfg.AllowedOrigins))
	api.Register(router)
	return router
}

// Health reports liveness.
func (a *API) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"timestamp": a.now().UTC(),
		"service":   "tidalx",
	})
}

// AuthStatus tells the front end whether a credential is stored.
func (a *API) AuthStatus(w http.ResponseWriter, r *http.Request) {
	cred, err := a.credentials.Get(r.Context(), a.cfg.UserKey)
	if errors.Is(err, shared.ErrNotAuthenticated) {
		writeJSON(w, http.StatusOK, map[string]any{"authenticated": false})
		return
	}
	if err != nil {
		writeError(w, r, a.logger, err, "Failed to read auth status")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"authenticated": true,
		"expiresAt":     cred.TokenExpiration,
		"expired":       cred.Expired(a.now()),
		"tidalUserId":   cred.TidalUserID,
	})
}

// TidalFavorites proxies the user's favorite albums, forwarding Tidal's body unchanged.
func (a *API) TidalFavorites(w http.ResponseWriter, r *http.Request) {
	favorites, err := a.sync.Favorites(r.Context(), a.cfg.UserKey)
	if err != nil {
		writeError(w, r, a.logger, err, "Failed to fetch Tidal favorites")
		return
	}
	if len(favorites.Raw) > 0 {
		writeRaw(w, http.StatusOK, favorites.Raw)
		return
	}
	writeJSON(w, http.StatusOK, favorites)
}

// TidalRecent ingests the listening history and returns the cached albums, most recent first.
func (a *API) TidalRecent(w http.ResponseWriter, r *http.Request) {
	result, err := a.sync.Sync(r.Context(), a.cfg.UserKey, nil)
	if err != nil {
		writeError(w, r, a.logger, err, "Failed to fetch Tidal recent albums")
		return
	}
	a.logger.Info("history synced", "result", result.String(), "request_id", RequestIDFrom(r.Context()))

	albums, err := a.albums.List(r.Context(), models.OrderRecent)
	if err != nil {
		writeError(w, r, a.logger, err, "Failed to fetch Tidal recent albums")
		return
	}
	writeJSON(w, http.StatusOK, albums)
}

// TidalPlay starts playback of an album and counts it as a listen.
func (a *API) TidalPlay(w http.ResponseWriter, r *http.Request) {
	albumID := r.PathValue("albumId")
	if err := a.sync.Play(r.Context(), a.cfg.UserKey, albumID); err != nil {
		writeError(w, r, a.logger, err, "Failed to play album")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// TidalAlbum proxies album details as Tidal returned them.
func (a *API) TidalAlbum(w http.ResponseWriter, r *http.Request) {
	album, err := a.sync.AlbumDetails(r.Context(), a.cfg.UserKey, r.PathValue("albumId"))
	if err != nil {
		writeError(w, r, a.logger, err, "Failed to fetch album details")
		return
	}
	if len(album.Raw) > 0 {
		writeRaw(w, http.StatusOK, album.Raw)
		return
	}
	writeJSON(w, http.StatusOK, album)
}

func (a *API) listAlbums(order models.AlbumOrder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		albums, err := a.albums.List(r.Context(), order)
		if err != nil {
			writeError(w, r, a.logger, err, "Failed to fetch albums")
			return
		}
		writeJSON(w, http.StatusOK, albums)
	}
}

type albumRequest struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	Artist       string `json:"artist"`
	ImageURL     string `json:"imageUrl"`
	TidalURL     string `json:"tidalUrl"`
	AudioQuality string `json:"audioQuality"`
}

// SaveAlbum adds an album, or counts a listen of an existing one, without going through Tidal.
//
// Responds 201 with the new album or 200 with the updated one.
func (a *API) SaveAlbum(w http.ResponseWriter, r *http.Request) {
	var req albumRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	if err := dec.Decode(&req); err != nil {
		writeError(w, r, a.logger, fmt.Errorf("%w: request body must be a JSON album", shared.ErrInvalidInput), "Invalid album")
		return
	}
	if strings.TrimSpace(req.ID) == "" {
		writeError(w, r, a.logger, fmt.Errorf("%w: album id is required", shared.ErrInvalidInput), "Invalid album")
		return
	}

	album := &models.Album{
		ID:           req.ID,
		Title:        req.Title,
		Artist:       req.Artist,
		ImageURL:     req.ImageURL,
		TidalURL:     req.TidalURL,
		AudioQuality: req.AudioQuality,
	}

	created, err := a.albums.RecordPlay(r.Context(), album, a.now().UTC())
	if err != nil {
		writeError(w, r, a.logger, err, "Failed to add/update album")
		return
	}

	saved, err := a.albums.Get(r.Context(), album.ID)
	if err != nil {
		writeError(w, r, a.logger, err, "Failed to add/update album")
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, saved)
}

// DeleteAlbum removes an album from the cache.
func (a *API) DeleteAlbum(w http.ResponseWriter, r *http.Request) {
	if err := a.albums.Delete(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, r, a.logger, err, "Failed to delete album")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
