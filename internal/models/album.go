package models

import (
	"fmt"
	"strings"
	"time"
)

const (
	tidalAlbumURL = "https://tidal.com/browse/album/%s"
	tidalImageURL = "https://resources.tidal.com/images/%s/640x640.jpg"
)

// Album is the locally cached projection of a Tidal album.
//
// ListenCount starts at 1 and only grows; LastListened never moves backwards.
type Album struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Artist       string    `json:"artist"`
	ImageURL     string    `json:"imageUrl"`
	TidalURL     string    `json:"tidalUrl"`
	AudioQuality string    `json:"audioQuality"`
	LastListened time.Time `json:"lastListened"`
	ListenCount  int       `json:"listenCount"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

func (a *Album) Key() string { return a.ID }

// Validate checks the album can be stored.
func (a *Album) Validate() error {
	if strings.TrimSpace(a.ID) == "" {
		return fmt.Errorf("album id is required")
	}
	if a.ListenCount < 0 {
		return fmt.Errorf("listen count must not be negative")
	}
	return nil
}

// Normalize fills display fields derivable from the album id and cover.
func (a *Album) Normalize() {
	a.ID = strings.TrimSpace(a.ID)
	if a.TidalURL == "" && a.ID != "" {
		a.TidalURL = AlbumURL(a.ID)
	}
	a.ImageURL = CoverURL(a.ImageURL)
}

// AlbumURL returns the Tidal web player link for an album.
func AlbumURL(id string) string {
	return fmt.Sprintf(tidalAlbumURL, id)
}

// CoverURL turns a Tidal cover id ("aaaa-bbbb-...") into an image URL.
//
// Values that already look like URLs, and empty values, are returned unchanged.
func CoverURL(cover string) string {
	if cover == "" || strings.Contains(cover, "://") {
		return cover
	}
	return fmt.Sprintf(tidalImageURL, strings.ReplaceAll(cover, "-", "/"))
}
