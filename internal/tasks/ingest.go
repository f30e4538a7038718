package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/desertthunder/tidalx/internal/models"
)

// AlbumRecorder is the write side of the album store used by ingestion.
type AlbumRecorder interface {
	RecordPlay(ctx context.Context, album *models.Album, at time.Time) (created bool, err error)
}

// IngestResult summarises one ingestion call.
type IngestResult struct {
	Tracks  int // Track plays received
	Albums  int // Distinct albums written
	Created int // Albums seen for the first time
	Updated int // Existing albums whose count was incremented
	Skipped int // Plays ignored: repeated album in this call or no album id
}

func (r IngestResult) String() string {
	return fmt.Sprintf("%d tracks, %d albums (%d new, %d updated, %d skipped)",
		r.Tracks, r.Albums, r.Created, r.Updated, r.Skipped)
}

// Ingester reconciles listening history into the album store.
type Ingester struct {
	albums AlbumRecorder
}

// NewIngester creates an [Ingester] writing to albums.
func NewIngester(albums AlbumRecorder) *Ingester {
	return &Ingester{albums: albums}
}

// Ingest writes each distinct album referenced by plays exactly once, using its first occurrence.
//
// Later plays of an album already handled in this call are skipped even when they are newer. The first
// storage error stops ingestion; albums written before it stay written. The returned result is non-nil
// in both cases.
func (i *Ingester) Ingest(ctx context.Context, plays []models.TrackPlay, progress chan<- ProgressUpdate) (*IngestResult, error) {
	result := &IngestResult{Tracks: len(plays)}
	seen := make(map[string]struct{}, len(plays))

	for idx, play := range plays {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		if play.AlbumID == "" {
			result.Skipped++
			continue
		}
		if _, ok := seen[play.AlbumID]; ok {
			result.Skipped++
			continue
		}
		seen[play.AlbumID] = struct{}{}

		album := play.Album()
		created, err := i.albums.RecordPlay(ctx, album, play.PlayedAt)
		if err != nil {
			return result, fmt.Errorf("failed to record album %s: %w", play.AlbumID, err)
		}

		result.Albums++
		if created {
			result.Created++
		} else {
			result.Updated++
		}

		sendProgress(progress, ingestAlbumUpdate(idx+1, len(plays), album, created))
	}

	return result, nil
}
