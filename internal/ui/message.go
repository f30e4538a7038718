package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/tidalx/internal/models"
	"github.com/desertthunder/tidalx/internal/tasks"
)

// MsgKind enumerates all message types in the application.
type MsgKind int

// Msg represents all possible messages in the TUI (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
}

var (
	_ tea.Msg = Msg{}
)

const (
	MsgAlbumsLoaded MsgKind = iota
	MsgProgressUpdate
	MsgSyncComplete
	MsgPlayComplete
)

type albumsLoaded struct {
	albums []*models.Album
	err    error
}

type syncComplete struct {
	result *tasks.IngestResult
	err    error
}

type playComplete struct {
	album *models.Album
	err   error
}

// albumsLoadedMsg is the constructor for [MsgAlbumsLoaded]
func albumsLoadedMsg(albums []*models.Album, err error) Msg {
	return Msg{kind: MsgAlbumsLoaded, data: albumsLoaded{albums, err}}
}

// progressUpdateMsg is the constructor for [MsgProgressUpdate]
func progressUpdateMsg(update tasks.ProgressUpdate) Msg {
	return Msg{kind: MsgProgressUpdate, data: update}
}

// syncCompleteMsg is the constructor for [MsgSyncComplete]
func syncCompleteMsg(result *tasks.IngestResult, err error) Msg {
	return Msg{kind: MsgSyncComplete, data: syncComplete{result, err}}
}

// playCompleteMsg is the constructor for [MsgPlayComplete]
func playCompleteMsg(album *models.Album, err error) Msg {
	return Msg{kind: MsgPlayComplete, data: playComplete{album, err}}
}
