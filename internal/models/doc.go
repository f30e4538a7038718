// Package models defines domain entities for the Tidal listening history service.
//
// The package contains two categories of types:
//
// 1. Upstream projections: values decoded from Tidal responses
//   - [TrackPlay] : one entry of the listening history, referencing its album
//
// 2. Persistent Entities: Database-backed models
//   - [Album] : locally cached album state with recency and play counters
//   - [Credential] : OAuth tokens stored under an explicit user key
//
// Persistent entities implement the Model interface providing a storage key and validation.
package models
