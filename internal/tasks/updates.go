package tasks

import (
	"fmt"

	"github.com/desertthunder/tidalx/internal/models"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// Operation phase enumeration
type Phase int

const (
	LoadCredential Phase = iota
	FetchHistory
	IngestAlbums
	SaveCredential
)

func (p Phase) String() string {
	switch p {
	case LoadCredential:
		return "load_credential"
	case FetchHistory:
		return "fetch_history"
	case IngestAlbums:
		return "ingest_albums"
	case SaveCredential:
		return "save_credential"
	default:
		return ""
	}
}

// sendProgress sends a progress update through the channel without blocking.
func sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

func loadCredentialUpdate(userKey string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   LoadCredential,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Loading Tidal credential (%s)...", userKey),
	}
}

func fetchHistoryUpdate() ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchHistory,
		Step:    1,
		Total:   1,
		Message: "Fetching listening history from Tidal...",
	}
}

func fetchedHistoryUpdate(count int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchHistory,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Fetched %d tracks", count),
	}
}

func savedCredentialUpdate() ProgressUpdate {
	return ProgressUpdate{
		Phase:   SaveCredential,
		Step:    1,
		Total:   1,
		Message: "Access token refreshed",
	}
}

func ingestAlbumUpdate(step, total int, album *models.Album, created bool) ProgressUpdate {
	verb := "updated"
	if created {
		verb = "added"
	}
	return ProgressUpdate{
		Phase:   IngestAlbums,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] %s: %s - %s", step, total, verb, album.Artist, album.Title),
		Data:    album,
	}
}
