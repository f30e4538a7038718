// Package tasks implements the listening-history operations shared by the HTTP server, CLI and TUI.
//
// # Core Operations
//
// The [Syncer] interface defines four operations, all of which load the stored credential first and
// fail with [shared.ErrNotAuthenticated] before any Tidal call when none exists:
//
//  1. [Syncer.Sync] : Fetch recent listening history and ingest it
//  2. [Syncer.Play] : Start playback of an album and count it as a listen
//  3. [Syncer.Favorites] : Proxy the user's favorite albums
//  4. [Syncer.AlbumDetails] : Proxy Tidal's album metadata
//
// A credential refreshed during a call is stored again even when the call itself fails.
//
// # Ingestion
//
// [Ingester.Ingest] writes each distinct album in a batch once, using its first occurrence in the
// batch. Repeating the same batch increments every album again; there is no dedup across calls.
//
// # Progress Reporting
//
// The [ProgressUpdate] struct contains phase, step counters, messages, and optional data for advanced UI rendering.
// Updates use select with default to prevent blocking.
package tasks
