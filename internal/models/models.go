// package models defines the data model for the Tidal listening history service
package models

// Model defines the base interface for persistent models.
type Model interface {
	Key() string     // Key returns the primary key the model is stored under
	Validate() error // Validate checks if the model's data is valid and returns an error if not
}

// AlbumOrder selects one of the two total orderings offered for album listings.
type AlbumOrder int

const (
	// OrderRecent sorts by last_listened descending.
	OrderRecent AlbumOrder = iota
	// OrderMostListened sorts by listen_count descending.
	OrderMostListened
)

func (o AlbumOrder) String() string {
	switch o {
	case OrderRecent:
		return "recent"
	case OrderMostListened:
		return "most-listened"
	default:
		return "unknown"
	}
}

// ParseAlbumOrder accepts the names used by the CLI and front end ("recent", "count", "most-listened").
func ParseAlbumOrder(s string) (AlbumOrder, bool) {
	switch s {
	case "", "recent":
		return OrderRecent, true
	case "count", "most-listened", "most_listened":
		return OrderMostListened, true
	default:
		return OrderRecent, false
	}
}
