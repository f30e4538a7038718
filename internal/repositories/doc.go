// Package repositories implements SQLite persistence for the album cache and the token store.
//
// Key Implementations:
//   - [AlbumRepository] : album rows with recency/popularity listings and atomic play counters
//   - [CredentialRepository] : OAuth credentials keyed by an explicit user key
//
// Timestamps that take part in ordering or expiry checks (last_listened, token_expiration) are stored as
// unix milliseconds so SQLite compares them numerically.
//
// [AlbumRepository.RecordPlay] is the only write path used by ingestion and playback: an INSERT that does
// nothing on conflict followed by an UPDATE that increments listen_count in place. Neither statement reads
// before writing, so two requests playing the same album both land their increment.
package repositories
