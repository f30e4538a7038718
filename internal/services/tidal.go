// Tidal API implementation
//
// The service never stores tokens: every call takes the caller's [models.Credential] and returns the one
// that should be persisted afterwards, which differs from the input only when a refresh happened.
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/desertthunder/tidalx/internal/models"
	"github.com/desertthunder/tidalx/internal/shared"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

const (
	tidalAuthURL  = "https://login.tidal.com/authorize"
	tidalTokenURL = "https://auth.tidal.com/v1/oauth2/token"
	tidalBaseURL  = "https://api.tidal.com/v1"

	defaultCountryCode = "US"
	defaultTokenTTL    = time.Hour
	maxErrorBody       = 4 << 10
)

var defaultScopes = []string{"r_usr", "w_usr", "r_sub", "w_sub"}

// TidalService implements the OAuth flow and the handful of Tidal endpoints the application needs.
type TidalService struct {
	config      *oauth2.Config
	httpClient  *http.Client
	limiter     *rate.Limiter
	baseURL     string
	countryCode string
	userKey     string
	now         func() time.Time
}

// TidalOption customises a [TidalService].
type TidalOption func(*TidalService)

// WithHTTPClient sets the client used for API and token requests.
func WithHTTPClient(c *http.Client) TidalOption {
	return func(s *TidalService) {
		if c != nil {
			s.httpClient = c
		}
	}
}

// WithRateLimit limits outbound requests; rps <= 0 disables limiting.
func WithRateLimit(rps float64) TidalOption {
	return func(s *TidalService) {
		if rps <= 0 {
			s.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		burst := int(rps)
		if burst < 1 {
			burst = 1
		}
		s.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithClock replaces time.Now, used for expiry checks.
func WithClock(now func() time.Time) TidalOption {
	return func(s *TidalService) { s.now = now }
}

// WithEndpoints points the service at different OAuth and API hosts. Empty values keep the defaults.
func WithEndpoints(authURL, tokenURL, baseURL string) TidalOption {
	return func(s *TidalService) {
		if authURL != "" {
			s.config.Endpoint.AuthURL = authURL
		}
		if tokenURL != "" {
			s.config.Endpoint.TokenURL = tokenURL
		}
		if baseURL != "" {
			s.baseURL = strings.TrimRight(baseURL, "/")
		}
	}
}

// WithUserKey sets the key attached to credentials created by [TidalService.Exchange].
func WithUserKey(key string) TidalOption {
	return func(s *TidalService) {
		if key != "" {
			s.userKey = key
		}
	}
}

// NewTidalService creates a new Tidal service with the given OAuth2 credentials.
//
// Recognised keys: client_id, client_secret (required), redirect_uri, scopes (space separated) and
// country_code.
func NewTidalService(credentials map[string]string, opts ...TidalOption) (*TidalService, error) {
	clientID := credentials["client_id"]
	if clientID == "" {
		return nil, fmt.Errorf("%w: missing client_id", shared.ErrMissingCredentials)
	}

	clientSecret := credentials["client_secret"]
	if clientSecret == "" {
		return nil, fmt.Errorf("%w: missing client_secret", shared.ErrMissingCredentials)
	}

	redirectURI := credentials["redirect_uri"]
	if redirectURI == "" {
		redirectURI = "http://localhost:3001/auth/callback"
	}

	scopes := strings.Fields(credentials["scopes"])
	if len(scopes) == 0 {
		scopes = defaultScopes
	}

	countryCode := credentials["country_code"]
	if countryCode == "" {
		countryCode = defaultCountryCode
	}

	s := &TidalService{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURI,
			Scopes:       scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:   tidalAuthURL,
				TokenURL:  tidalTokenURL,
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		httpClient:  http.DefaultClient,
		limiter:     rate.NewLimiter(rate.Inf, 1),
		baseURL:     tidalBaseURL,
		countryCode: countryCode,
		userKey:     models.DefaultUserKey,
		now:         time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s, nil
}

func (s *TidalService) Name() string {
	return "Tidal"
}

// AuthURL returns the authorization URL the user is redirected to.
func (s *TidalService) AuthURL(state string) string {
	return s.config.AuthCodeURL(state)
}

func (s *TidalService) oauthContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, s.httpClient)
}

// credentialFrom turns a token endpoint response into a credential, defaulting a missing expiry.
func (s *TidalService) credentialFrom(userKey string, tok *oauth2.Token, previous *models.Credential) *models.Credential {
	if tok.Expiry.IsZero() {
		tok.Expiry = s.now().Add(defaultTokenTTL)
	}
	return models.CredentialFromToken(userKey, tok, previous)
}

// Exchange trades an authorization code for a credential.
func (s *TidalService) Exchange(ctx context.Context, code string) (*models.Credential, error) {
	if strings.TrimSpace(code) == "" {
		return nil, fmt.Errorf("%w: missing authorization code", shared.ErrAuthFailed)
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	tok, err := s.config.Exchange(s.oauthContext(ctx), code)
	if err != nil {
		return nil, tokenError(shared.ErrAuthFailed, "failed to exchange auth code", err)
	}

	return s.credentialFrom(s.userKey, tok, nil), nil
}

// Refresh obtains a new access token using the credential's refresh token.
func (s *TidalService) Refresh(ctx context.Context, cred *models.Credential) (*models.Credential, error) {
	if cred == nil {
		return nil, shared.ErrNotAuthenticated
	}
	if cred.RefreshToken == "" {
		return nil, shared.ErrNoRefreshToken
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	// A token without an access token is never valid, so the source always hits the token endpoint.
	src := s.config.TokenSource(s.oauthContext(ctx), &oauth2.Token{RefreshToken: cred.RefreshToken})
	tok, err := src.Token()
	if err != nil {
		return nil, tokenError(shared.ErrRefreshFailed, "failed to refresh token", err)
	}

	return s.credentialFrom(cred.UserKey, tok, cred), nil
}

// EnsureValid returns cred unchanged while it is unexpired and a refreshed credential otherwise.
func (s *TidalService) EnsureValid(ctx context.Context, cred *models.Credential) (*models.Credential, error) {
	if cred == nil || (cred.AccessToken == "" && cred.RefreshToken == "") {
		return nil, shared.ErrNotAuthenticated
	}
	if cred.AccessToken != "" && !cred.Expired(s.now()) {
		return cred, nil
	}
	return s.Refresh(ctx, cred)
}

// tokenError classifies an OAuth failure: a rejection by the token endpoint is an auth error, anything
// else (network, decoding) is a plain request failure.
func tokenError(kind error, msg string, err error) error {
	var re *oauth2.RetrieveError
	if errors.As(err, &re) {
		return fmt.Errorf("%w: %s: %v", kind, msg, err)
	}
	return fmt.Errorf("%w: %s: %v", shared.ErrAPIRequest, msg, err)
}

// doRequest performs an authenticated HTTP request to the Tidal API.
//
// The credential is validated (and refreshed if needed) first; the credential actually used is returned
// even when the request itself fails, so a refresh is never lost.
func (s *TidalService) doRequest(ctx context.Context, cred *models.Credential, method, endpoint string, body, result any) (*models.Credential, error) {
	cred, err := s.EnsureValid(ctx, cred)
	if err != nil {
		return nil, err
	}

	apiURL, err := url.Parse(s.baseURL + endpoint)
	if err != nil {
		return cred, fmt.Errorf("invalid endpoint %q: %w", endpoint, err)
	}
	q := apiURL.Query()
	q.Set("countryCode", s.countryCode)
	apiURL.RawQuery = q.Encode()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return cred, fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, apiURL.String(), reader)
	if err != nil {
		return cred, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+cred.AccessToken)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return cred, err
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return cred, fmt.Errorf("%w: %s %s: %v", shared.ErrAPIRequest, method, endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return cred, &shared.UpstreamError{
			Method:     method,
			Endpoint:   endpoint,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(data)),
		}
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil && !errors.Is(err, io.EOF) {
			return cred, fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return cred, nil
}

// Favorites retrieves the user's favorite albums.
func (s *TidalService) Favorites(ctx context.Context, cred *models.Credential) (*models.Credential, *FavoriteAlbums, error) {
	var favorites FavoriteAlbums
	cred, raw, err := s.getRaw(ctx, cred, "/users/me/favorites/albums", &favorites)
	if err != nil {
		return cred, nil, err
	}
	if favorites.Items == nil {
		favorites.Items = []FavoriteAlbum{}
	}
	favorites.Raw = raw
	return cred, &favorites, nil
}

// RecentHistory retrieves the user's recently played tracks, most recent first as Tidal returns them.
func (s *TidalService) RecentHistory(ctx context.Context, cred *models.Credential) (*models.Credential, []models.TrackPlay, error) {
	var history TidalHistory
	cred, err := s.doRequest(ctx, cred, http.MethodGet, "/users/me/history/tracks", nil, &history)
	if err != nil {
		return cred, nil, err
	}

	fetchedAt := s.now().UTC()
	plays := make([]models.TrackPlay, 0, len(history.Items))
	for _, item := range history.Items {
		plays = append(plays, item.Play(fetchedAt))
	}
	return cred, plays, nil
}

// AlbumDetails retrieves an album by ID.
func (s *TidalService) AlbumDetails(ctx context.Context, cred *models.Credential, albumID string) (*models.Credential, *TidalAlbum, error) {
	if albumID == "" {
		return cred, nil, fmt.Errorf("%w: album id", shared.ErrMissingArgument)
	}

	var album TidalAlbum
	endpoint := "/albums/" + url.PathEscape(albumID)
	cred, raw, err := s.getRaw(ctx, cred, endpoint, &album)
	if err != nil {
		return cred, nil, err
	}
	album.Raw = raw
	return cred, &album, nil
}

// getRaw fetches endpoint, decodes it into result and also returns the untouched body.
func (s *TidalService) getRaw(ctx context.Context, cred *models.Credential, endpoint string, result any) (*models.Credential, json.RawMessage, error) {
	var raw json.RawMessage
	cred, err := s.doRequest(ctx, cred, http.MethodGet, endpoint, nil, &raw)
	if err != nil || len(raw) == 0 {
		return cred, nil, err
	}
	if err := json.Unmarshal(raw, result); err != nil {
		return cred, nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return cred, raw, nil
}

// PlayAlbum asks Tidal to start playback of an album.
//
// Tidal answers 404, 405 or 501 when direct playback is not available to the client; that case is
// reported as [shared.ErrPlaybackUnsupported] wrapping the upstream error.
func (s *TidalService) PlayAlbum(ctx context.Context, cred *models.Credential, albumID string) (*models.Credential, error) {
	if albumID == "" {
		return cred, fmt.Errorf("%w: album id", shared.ErrMissingArgument)
	}

	body := map[string]string{"albumId": albumID}
	cred, err := s.doRequest(ctx, cred, http.MethodPost, "/playback/play", body, nil)

	var upstream *shared.UpstreamError
	if errors.As(err, &upstream) {
		switch upstream.StatusCode {
		case http.StatusNotFound, http.StatusMethodNotAllowed, http.StatusNotImplemented:
			return cred, fmt.Errorf("%w: %w", shared.ErrPlaybackUnsupported, err)
		}
	}
	return cred, err
}
