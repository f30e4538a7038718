package server

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/desertthunder/tidalx/internal/shared"
)

const (
	stateCookie   = "tidalx_oauth_state"
	stateLifetime = 600
)

// AuthRedirect sends the browser to Tidal's authorize page.
//
// The state is kept in a short-lived cookie and checked by [API.AuthCallback].
func (a *API) AuthRedirect(w http.ResponseWriter, r *http.Request) {
	state, err := shared.GenerateState()
	if err != nil {
		writeError(w, r, a.logger, err, "Failed to start authorization")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     stateCookie,
		Value:    state,
		Path:     "/auth",
		MaxAge:   stateLifetime,
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, a.auth.AuthURL(state), http.StatusFound)
}

// AuthCallback completes the authorization code flow and stores the credential.
//
// Success redirects to <frontend>/connected, any failure to <frontend>/error.
func (a *API) AuthCallback(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{Name: stateCookie, Value: "", Path: "/auth", MaxAge: -1, HttpOnly: true})

	if err := a.completeAuth(r); err != nil {
		a.logger.Error("authentication error", "error", err, "request_id", RequestIDFrom(r.Context()))
		http.Redirect(w, r, a.frontendURL("/error"), http.StatusFound)
		return
	}

	a.logger.Info("tidal account connected", "user_key", a.cfg.UserKey)
	http.Redirect(w, r, a.frontendURL("/connected"), http.StatusFound)
}

func (a *API) completeAuth(r *http.Request) error {
	q := r.URL.Query()

	cookie, err := r.Cookie(stateCookie)
	if err != nil || cookie.Value == "" || cookie.Value != q.Get("state") {
		return shared.ErrInvalidState
	}

	code := q.Get("code")
	if code == "" {
		return fmt.Errorf("%w: %s - %s", shared.ErrAuthFailed, q.Get("error"), q.Get("error_description"))
	}

	cred, err := a.auth.Exchange(r.Context(), code)
	if err != nil {
		return err
	}
	cred.UserKey = a.cfg.UserKey

	if err := a.credentials.Upsert(r.Context(), cred); err != nil {
		return fmt.Errorf("failed to store credential: %w", err)
	}
	return nil
}

func (a *API) frontendURL(path string) string {
	return strings.TrimRight(a.cfg.FrontendURL, "/") + path
}
