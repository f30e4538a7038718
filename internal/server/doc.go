// Package server provides HTTP routing, middleware and handlers for the web API and the CLI login flow.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support. [BasicRouter] registers
// "METHOD /path" patterns on an [http.ServeMux]; path parameters are read with [http.Request.PathValue].
//
// [Middleware] wraps the whole mux, first added outermost:
//   - [RequestID] : X-Request-ID propagation (google/uuid)
//   - [Logger] : one charmbracelet/log line per request
//   - [Recover] : panics become 500 responses
//   - [CORS] : configured origins
//
// # API
//
// [API] serves the JSON endpoints under /api, the browser OAuth flow under /auth, /health and optionally
// the built front end through [SPAHandler].
//
// Errors are written as {"error": "..."}: auth errors as 401, validation errors as 400 and everything
// else, including upstream Tidal failures and unsupported playback, as 500 with a generic message.
//
// # OAuth Callback Handler
//
// [OAuthHandler] serves the callback of a terminal login: a temporary server is started by the auth
// command, the handler validates the state parameter, exchanges the code, and sends the credential
// through a channel. It only processes one callback.
//
// # Handler Interface
//
// Custom handlers implement the [Handler] interface, which wraps the stdlib handler interface and adds routes,
// allowing handlers to register multiple routes to encapsulate route definitions within the implementation.
package server
