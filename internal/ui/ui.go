package ui

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/tidalx/internal/models"
	"github.com/desertthunder/tidalx/internal/shared"
	"github.com/desertthunder/tidalx/internal/tasks"
)

// AlbumLister reads the cached albums in one of the supported orders.
type AlbumLister interface {
	List(ctx context.Context, order models.AlbumOrder) ([]*models.Album, error)
}

// Model represents the TUI application state.
type Model struct {
	ctx      context.Context
	sync     tasks.Syncer
	albums   AlbumLister
	userKey  string
	order    models.AlbumOrder
	list     list.Model
	progress chan tasks.ProgressUpdate
	done     chan syncComplete
	busy     bool
	status   string
	warn     bool
	err      error
	fatal    error
	width    int
	height   int
	help     help.Model
	keys     keyMap
}

// NewModel creates a new TUI model with the provided dependencies.
func NewModel(ctx context.Context, sync tasks.Syncer, albums AlbumLister, userKey string) *Model {
	if userKey == "" {
		userKey = models.DefaultUserKey
	}

	l := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	l.SetShowHelp(false)
	l.Title = listTitle(models.OrderRecent)
	l.Styles.Title = styles.title.MarginBottom(0)

	return &Model{
		ctx:     ctx,
		sync:    sync,
		albums:  albums,
		userKey: userKey,
		order:   models.OrderRecent,
		list:    l,
		help:    help.New(),
		keys:    newKeyMap(),
	}
}

func listTitle(order models.AlbumOrder) string {
	if order == models.OrderMostListened {
		return "Most Listened Albums"
	}
	return "Recently Listened Albums"
}

// Init loads the cached albums.
func (m *Model) Init() tea.Cmd {
	return m.loadAlbums()
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.list.SetSize(msg.Width-4, msg.Height-6)
		return m, nil

	case tea.KeyMsg:
		if m.list.SettingFilter() {
			break
		}
		return m.handleKeys(msg)

	case Msg:
		return m.handleMsg(msg)
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m *Model) handleKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.sort):
		if m.order == models.OrderRecent {
			m.order = models.OrderMostListened
		} else {
			m.order = models.OrderRecent
		}
		m.list.Title = listTitle(m.order)
		return m, m.loadAlbums()
	case key.Matches(msg, m.keys.refresh):
		if m.busy {
			return m, nil
		}
		m.busy = true
		m.setStatus("Syncing with Tidal...", false)
		return m, m.startSync()
	case key.Matches(msg, m.keys.play):
		if m.busy {
			return m, nil
		}
		item, ok := m.list.SelectedItem().(albumItem)
		if !ok {
			return m, nil
		}
		m.busy = true
		m.setStatus(fmt.Sprintf("Starting %s - %s...", item.album.Artist, item.album.Title), false)
		return m, m.playAlbum(item.album)
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m *Model) handleMsg(msg Msg) (tea.Model, tea.Cmd) {
	switch msg.kind {
	case MsgAlbumsLoaded:
		data := msg.data.(albumsLoaded)
		if data.err != nil {
			m.fatal = data.err
			return m, nil
		}
		return m, m.list.SetItems(albumItems(data.albums))

	case MsgProgressUpdate:
		update := msg.data.(tasks.ProgressUpdate)
		m.setStatus(update.Message, false)
		return m, waitForProgress(m.progress, m.done)

	case MsgSyncComplete:
		data := msg.data.(syncComplete)
		m.busy = false
		m.progress, m.done = nil, nil
		if data.err != nil {
			m.setError(data.err)
			return m, nil
		}
		m.setStatus("Synced "+data.result.String(), false)
		return m, m.loadAlbums()

	case MsgPlayComplete:
		data := msg.data.(playComplete)
		m.busy = false
		switch {
		case errors.Is(data.err, shared.ErrPlaybackUnsupported):
			m.setStatus(fmt.Sprintf("Remote playback unavailable, open %s", data.album.TidalURL), true)
			return m, nil
		case data.err != nil:
			m.setError(data.err)
			return m, nil
		}
		m.setStatus(fmt.Sprintf("Playing %s - %s", data.album.Artist, data.album.Title), false)
		return m, m.loadAlbums()
	}
	return m, nil
}

func (m *Model) setStatus(s string, warn bool) {
	m.status, m.warn, m.err = s, warn, nil
}

func (m *Model) setError(err error) {
	m.status, m.warn = "", false
	if shared.IsAuthError(err) {
		err = fmt.Errorf("not connected to Tidal, run 'tidalx auth' first: %w", err)
	}
	m.err = err
}

func (m *Model) loadAlbums() tea.Cmd {
	order := m.order
	return func() tea.Msg {
		albums, err := m.albums.List(m.ctx, order)
		return albumsLoadedMsg(albums, err)
	}
}

func (m *Model) startSync() tea.Cmd {
	m.progress = make(chan tasks.ProgressUpdate, 50)
	m.done = make(chan syncComplete, 1)

	progress, done := m.progress, m.done
	go func() {
		result, err := m.sync.Sync(m.ctx, m.userKey, progress)
		done <- syncComplete{result, err}
		close(progress)
	}()

	return waitForProgress(progress, done)
}

func waitForProgress(progress <-chan tasks.ProgressUpdate, done <-chan syncComplete) tea.Cmd {
	return func() tea.Msg {
		update, ok := <-progress
		if !ok {
			res := <-done
			return syncCompleteMsg(res.result, res.err)
		}
		return progressUpdateMsg(update)
	}
}

func (m *Model) playAlbum(album *models.Album) tea.Cmd {
	return func() tea.Msg {
		return playCompleteMsg(album, m.sync.Play(m.ctx, m.userKey, album.ID))
	}
}

// View renders the album list with a status line and key help.
func (m *Model) View() string {
	if m.fatal != nil {
		return styles.err.Render(fmt.Sprintf("Error: %v\n\nPress q to quit", m.fatal))
	}

	var status string
	switch {
	case m.err != nil:
		status = styles.err.Render(fmt.Sprintf("Error: %v", m.err))
	case m.warn:
		status = styles.warn.Render(m.status)
	case m.status != "":
		status = styles.ok.Render(m.status)
	}

	return fmt.Sprintf("%s\n%s\n%s", m.list.View(), status, styles.help.Render(m.help.View(m.keys)))
}
