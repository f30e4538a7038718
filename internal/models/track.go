package models

import "time"

// TrackPlay is one entry of a user's Tidal listening history.
type TrackPlay struct {
	TrackID      string
	TrackTitle   string
	AlbumID      string
	AlbumTitle   string
	Artist       string
	Cover        string
	AudioQuality string
	PlayedAt     time.Time
}

// Album projects the play onto the album it references, as first seen at PlayedAt.
func (p TrackPlay) Album() *Album {
	album := &Album{
		ID:           p.AlbumID,
		Title:        p.AlbumTitle,
		Artist:       p.Artist,
		ImageURL:     p.Cover,
		AudioQuality: p.AudioQuality,
		LastListened: p.PlayedAt,
		ListenCount:  1,
	}
	album.Normalize()
	return album
}
