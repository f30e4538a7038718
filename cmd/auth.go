package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/desertthunder/tidalx/internal/models"
	"github.com/desertthunder/tidalx/internal/server"
	"github.com/desertthunder/tidalx/internal/shared"
	"github.com/urfave/cli/v3"
)

// authTimeout bounds how long the local callback server waits for the browser.
var authTimeout = 2 * time.Minute

// openBrowser is replaced in tests.
var openBrowser = shared.OpenBrowser

// AuthLogin runs the authorization code flow against a local callback server and stores the credential.
func (r *Runner) AuthLogin(ctx context.Context, cmd *cli.Command) error {
	tidal, err := r.tidalClient()
	if err != nil {
		return err
	}
	store, err := r.openStore()
	if err != nil {
		return err
	}

	cred, err := r.doOAuth(ctx, tidal, r.config.Credentials.Tidal.RedirectURI)
	if err != nil {
		return err
	}

	cred.UserKey = r.userKey()
	if err := store.Credentials.Upsert(ctx, cred); err != nil {
		return fmt.Errorf("failed to store credential: %w", err)
	}

	r.logger.Info("stored Tidal credential", "user_key", cred.UserKey, "expires", cred.TokenExpiration)
	r.writePlain("✓ Connected to Tidal\n")
	if cred.TidalUserID != "" {
		r.writePlain("  User ID: %s\n", cred.TidalUserID)
	}
	r.writePlain("  Token expires: %s\n", cred.TokenExpiration.Local().Format(time.DateTime))
	return nil
}

// AuthStatus prints whether a credential is stored and when its access token expires.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	store, err := r.openStore()
	if err != nil {
		return err
	}

	cred, err := store.Credentials.Get(ctx, r.userKey())
	if errors.Is(err, shared.ErrNotAuthenticated) {
		if cmd.Bool("json") {
			return r.writeJSON(map[string]any{"authenticated": false}, false)
		}
		r.writePlain("✗ Not connected. Run 'tidalx auth' to connect your Tidal account.\n")
		return nil
	}
	if err != nil {
		return err
	}

	expired := cred.Expired(time.Now())
	if cmd.Bool("json") {
		return r.writeJSON(map[string]any{
			"authenticated": true,
			"userKey":       cred.UserKey,
			"tidalUserId":   cred.TidalUserID,
			"expiresAt":     cred.TokenExpiration,
			"expired":       expired,
		}, false)
	}

	r.writePlain("✓ Connected (%s)\n", cred.UserKey)
	if cred.TidalUserID != "" {
		r.writePlain("  User ID: %s\n", cred.TidalUserID)
	}
	state := "valid"
	if expired {
		state = "expired, refreshed on next request"
	}
	r.writePlain("  Access token: %s until %s\n", state, cred.TokenExpiration.Local().Format(time.DateTime))
	return nil
}

// callbackAddr derives the listen address and callback path from the registered redirect URI.
func callbackAddr(redirectURI string) (addr, path string, err error) {
	u, err := url.Parse(redirectURI)
	if err != nil || u.Host == "" {
		return "", "", fmt.Errorf("%w: redirect_uri %q is not an absolute URL", shared.ErrInvalidConfig, redirectURI)
	}

	host, port := u.Hostname(), u.Port()
	if port == "" {
		port = "80"
		if u.Scheme == "https" {
			port = "443"
		}
	}

	path = u.Path
	if path == "" {
		path = "/"
	}
	return net.JoinHostPort(host, port), path, nil
}

// doOAuth serves the redirect URI locally, sends the user to Tidal and waits for the callback.
func (r *Runner) doOAuth(ctx context.Context, auth server.Authenticator, redirectURI string) (*models.Credential, error) {
	addr, path, err := callbackAddr(redirectURI)
	if err != nil {
		return nil, err
	}

	state, err := shared.GenerateState()
	if err != nil {
		return nil, fmt.Errorf("failed to generate state token: %w", err)
	}

	oauthHandler := server.NewOAuthHandler(auth, path, state)
	router := server.NewBasicRouter()
	router.Handler(oauthHandler)

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	httpServer := server.NewHTTPServer(addr, router)
	serverErrors := make(chan error, 1)
	go func() {
		r.logger.Infof("starting OAuth callback server at %v", addr)
		if err := httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrors <- err
		}
	}()

	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			r.logger.Warn("error shutting down server", "error", err)
		}
	}()

	authURL := auth.AuthURL(state)
	r.writePlain("→ Opening browser for Tidal authorization...\n")
	if err := openBrowser(authURL); err != nil {
		r.logger.Warnf("failed to open browser automatically %v", err)
		r.writePlainln("⚠ Could not open browser automatically.")
		r.writePlain("Please open this URL in your browser:\n%s\n\n", authURL)
	}

	r.writePlain("→ Waiting for authorization (%s timeout)...\n", authTimeout)

	timeout := time.NewTimer(authTimeout)
	defer timeout.Stop()

	var result server.OAuthResult
	select {
	case result = <-oauthHandler.Result():
	case err := <-serverErrors:
		return nil, fmt.Errorf("server error: %w", err)
	case <-timeout.C:
		return nil, fmt.Errorf("%w: authorization timed out after %s", shared.ErrTimeout, authTimeout)
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	if result.Error() != nil {
		return nil, fmt.Errorf("authorization failed: %w", result.Error())
	}
	if result.Credential == nil {
		return nil, fmt.Errorf("%w: no credential received", shared.ErrAuthFailed)
	}

	return result.Credential, nil
}
