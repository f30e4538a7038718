package ui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/list"
	"github.com/desertthunder/tidalx/internal/models"
)

var _ list.Item = albumItem{}

// albumItem wraps [models.Album] to implement [list.Item].
type albumItem struct {
	album *models.Album
}

func (i albumItem) FilterValue() string { return i.album.Title + " " + i.album.Artist }
func (i albumItem) Title() string       { return i.album.Title }
func (i albumItem) Description() string {
	plays := "1 play"
	if i.album.ListenCount != 1 {
		plays = fmt.Sprintf("%d plays", i.album.ListenCount)
	}
	desc := fmt.Sprintf("%s • %s", i.album.Artist, plays)
	if !i.album.LastListened.IsZero() {
		desc = fmt.Sprintf("%s • %s", desc, i.album.LastListened.Local().Format(time.DateTime))
	}
	return desc
}

func albumItems(albums []*models.Album) []list.Item {
	items := make([]list.Item, len(albums))
	for i, album := range albums {
		items[i] = albumItem{album: album}
	}
	return items
}
