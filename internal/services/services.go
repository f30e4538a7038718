// package services wraps the HTTP APIs the application talks to.
//
// Tidal API response types based on the v1 endpoints used by the Tidal web player
package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/desertthunder/tidalx/internal/models"
)

// FlexID decodes an identifier that Tidal sends either as a JSON number or as a string.
type FlexID string

func (f *FlexID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}

	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexID(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("id must be a string or number: %w", err)
	}
	*f = FlexID(n.String())
	return nil
}

func (f FlexID) String() string { return string(f) }

// TidalArtist is an artist reference embedded in tracks and albums.
type TidalArtist struct {
	ID   FlexID `json:"id"`
	Name string `json:"name"`
	Type string `json:"type,omitempty"`
}

// TidalAlbum represents a Tidal album, either embedded in a track or returned by /albums/{id}.
type TidalAlbum struct {
	ID             FlexID        `json:"id"`
	Title          string        `json:"title"`
	Cover          string        `json:"cover"`
	URL            string        `json:"url,omitempty"`
	AudioQuality   string        `json:"audioQuality,omitempty"`
	ReleaseDate    string        `json:"releaseDate,omitempty"`
	NumberOfTracks int           `json:"numberOfTracks,omitempty"`
	Duration       int           `json:"duration,omitempty"`
	Artist         *TidalArtist  `json:"artist,omitempty"`
	Artists        []TidalArtist `json:"artists,omitempty"`

	// Raw is the response body as Tidal sent it, set when the album was fetched directly.
	Raw json.RawMessage `json:"-"`
}

// ArtistName returns the main artist, falling back to the first listed one.
func (a TidalAlbum) ArtistName() string {
	if a.Artist != nil && a.Artist.Name != "" {
		return a.Artist.Name
	}
	if len(a.Artists) > 0 {
		return a.Artists[0].Name
	}
	return ""
}

// Model converts the album into its locally cached form.
func (a TidalAlbum) Model() *models.Album {
	album := &models.Album{
		ID:           a.ID.String(),
		Title:        a.Title,
		Artist:       a.ArtistName(),
		ImageURL:     a.Cover,
		AudioQuality: a.AudioQuality,
	}
	album.Normalize()
	return album
}

// TidalTrack is one entry of /users/me/history/tracks.
type TidalTrack struct {
	ID               FlexID        `json:"id"`
	Title            string        `json:"title"`
	Duration         int           `json:"duration"`
	AudioQuality     string        `json:"audioQuality"`
	PlaybackDateTime string        `json:"playbackDateTime"`
	Artist           *TidalArtist  `json:"artist,omitempty"`
	Artists          []TidalArtist `json:"artists,omitempty"`
	Album            TidalAlbum    `json:"album"`
}

// TidalHistory is the page returned by the history endpoint.
type TidalHistory struct {
	Limit              int          `json:"limit"`
	Offset             int          `json:"offset"`
	TotalNumberOfItems int          `json:"totalNumberOfItems"`
	Items              []TidalTrack `json:"items"`
}

// FavoriteAlbum wraps an album saved in the user's collection.
type FavoriteAlbum struct {
	Created string     `json:"created"`
	Item    TidalAlbum `json:"item"`
}

// FavoriteAlbums is the page returned by the favorites endpoint.
type FavoriteAlbums struct {
	Limit              int             `json:"limit"`
	Offset             int             `json:"offset"`
	TotalNumberOfItems int             `json:"totalNumberOfItems"`
	Items              []FavoriteAlbum `json:"items"`

	Raw json.RawMessage `json:"-"`
}

var playbackLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.000-0700",
	"2006-01-02T15:04:05-0700",
}

// parsePlaybackTime parses Tidal's timestamps, which use either RFC 3339 or a "+0000" offset.
func parsePlaybackTime(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.UnixMilli(ms).UTC(), true
	}
	for _, layout := range playbackLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// Play converts the history entry into a [models.TrackPlay].
//
// fallback is used as the play time when Tidal sent none or an unparseable one.
func (t TidalTrack) Play(fallback time.Time) models.TrackPlay {
	playedAt, ok := parsePlaybackTime(t.PlaybackDateTime)
	if !ok {
		playedAt = fallback
	}

	artist := t.Album.ArtistName()
	if artist == "" {
		if t.Artist != nil {
			artist = t.Artist.Name
		} else if len(t.Artists) > 0 {
			artist = t.Artists[0].Name
		}
	}

	quality := t.AudioQuality
	if quality == "" {
		quality = t.Album.AudioQuality
	}

	return models.TrackPlay{
		TrackID:      t.ID.String(),
		TrackTitle:   t.Title,
		AlbumID:      t.Album.ID.String(),
		AlbumTitle:   t.Album.Title,
		Artist:       artist,
		Cover:        t.Album.Cover,
		AudioQuality: quality,
		PlayedAt:     playedAt,
	}
}
