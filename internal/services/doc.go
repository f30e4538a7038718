// Package services implements the Tidal API client.
//
// # Credentials
//
// [TidalService] holds configuration only. Each call receives the caller's [models.Credential] and returns
// the credential that should be persisted afterwards:
//
//	cred, plays, err := tidal.RecentHistory(ctx, cred)
//	// cred may now carry a refreshed access token; store it even if err != nil
//
// [TidalService.EnsureValid] refreshes when now >= TokenExpiration and never otherwise. Refresh goes
// through [oauth2.Config.TokenSource] with the stored refresh token.
//
// # Requests
//
// Every API request carries a bearer token and the configured countryCode, and waits on a
// [rate.Limiter] before it is sent.
//
// # Error Handling
//
// Services use typed errors from shared package:
//   - [shared.ErrNotAuthenticated], [shared.ErrNoRefreshToken] : no usable credential
//   - [shared.ErrAuthFailed] : authorization code rejected
//   - [shared.ErrRefreshFailed] : refresh token rejected
//   - [shared.UpstreamError] : any non-2xx API response, with status and body
//   - [shared.ErrPlaybackUnsupported] : playback endpoint unavailable (404, 405, 501)
//
// # API Mappings
//
// Tidal ids may be JSON numbers or strings and decode into [FlexID]. History entries convert to
// [models.TrackPlay] via [TidalTrack.Play] and albums to [models.Album] via [TidalAlbum.Model].
package services
