package ui

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/waaaaall/snaptrack/internal/models"
	"github.com/waaaaall/snaptrack/internal/pipeline"
	"github.com/waaaaall/snaptrack/internal/services"
	"github.com/waaaaall/snaptrack/internal/store"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	HomeView ViewState = iota
	SnapView
	ResultView
	PlaylistListView
	HistoryView
)

// Model represents the TUI application state.
type Model struct {
	ctx     context.Context
	view    ViewState
	engine  *pipeline.Engine
	music   services.MusicService
	history store.HistoryStore

	width  int
	height int

	playlistList list.Model
	historyList  list.Model

	progressChan chan pipeline.ProgressUpdate
	snapDone     chan snapCompleteMsg
	progress     pipeline.ProgressUpdate
	result       *pipeline.Result
	err          error

	help help.Model
	keys keyMap
}

type playlistsFetchedMsg struct {
	playlists []models.Playlist
	err       error
}

type historyFetchedMsg struct {
	recs []models.Recognition
	err  error
}

type progressUpdateMsg pipeline.ProgressUpdate

type snapCompleteMsg struct {
	result *pipeline.Result
	err    error
}

// NewModel creates a new TUI model with the provided dependencies.
func NewModel(ctx context.Context, engine *pipeline.Engine, music services.MusicService, history store.HistoryStore) *Model {
	return &Model{
		ctx:     ctx,
		view:    HomeView,
		engine:  engine,
		music:   music,
		history: history,
		help:    help.New(),
		keys:    newKeyMap(),
	}
}

func (m *Model) Init() tea.Cmd {
	return nil
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if m.playlistList.Width() == 0 {
			m.playlistList.SetSize(msg.Width-4, msg.Height-8)
		}
		if m.historyList.Width() == 0 {
			m.historyList.SetSize(msg.Width-4, msg.Height-8)
		}
		return m, nil

	case tea.KeyMsg:
		switch m.view {
		case HomeView:
			return m.handleHomeKeys(msg)
		case ResultView:
			return m.handleResultKeys(msg)
		case PlaylistListView:
			return m.handleListKeys(msg, &m.playlistList)
		case HistoryView:
			return m.handleListKeys(msg, &m.historyList)
		case SnapView:
			if msg.String() == "ctrl+c" {
				return m, tea.Quit
			}
		}

	case playlistsFetchedMsg:
		if msg.err != nil {
			m.err = msg.err
			m.view = ResultView
			return m, nil
		}
		items := make([]list.Item, len(msg.playlists))
		for i, pl := range msg.playlists {
			items[i] = playlistItem{playlist: pl}
		}
		m.playlistList = list.New(items, list.NewDefaultDelegate(), 0, 0)
		m.playlistList.Title = "Spotify Playlists"
		m.playlistList.SetSize(m.width-4, m.height-8)
		m.view = PlaylistListView
		return m, nil

	case historyFetchedMsg:
		if msg.err != nil {
			m.err = msg.err
			m.view = ResultView
			return m, nil
		}
		items := make([]list.Item, len(msg.recs))
		for i, rec := range msg.recs {
			items[i] = historyItem{rec: rec}
		}
		m.historyList = list.New(items, list.NewDefaultDelegate(), 0, 0)
		m.historyList.Title = "Recognition History"
		m.historyList.SetSize(m.width-4, m.height-8)
		m.view = HistoryView
		return m, nil

	case progressUpdateMsg:
		m.progress = pipeline.ProgressUpdate(msg)
		return m, m.waitForProgress()

	case snapCompleteMsg:
		m.result = msg.result
		m.err = msg.err
		m.view = ResultView
		m.progressChan = nil
		return m, nil
	}

	return m.updateLists(msg)
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	switch m.view {
	case HomeView:
		return m.renderHome()
	case SnapView:
		return m.renderSnap()
	case ResultView:
		return m.renderResult()
	case PlaylistListView:
		return m.renderList(m.playlistList)
	case HistoryView:
		return m.renderList(m.historyList)
	default:
		return ""
	}
}

func (m *Model) handleHomeKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.snap):
		m.view = SnapView
		m.result = nil
		m.err = nil
		return m, m.startSnap()
	case key.Matches(msg, m.keys.playlists):
		return m, m.fetchPlaylists()
	case key.Matches(msg, m.keys.history):
		return m, m.fetchHistory()
	}
	return m, nil
}

func (m *Model) handleResultKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.restart):
		m.view = SnapView
		m.result = nil
		m.err = nil
		return m, m.startSnap()
	case key.Matches(msg, m.keys.back):
		m.view = HomeView
		return m, nil
	}
	return m, nil
}

func (m *Model) handleListKeys(msg tea.KeyMsg, l *list.Model) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "esc":
		m.view = HomeView
		return m, nil
	}

	var cmd tea.Cmd
	*l, cmd = l.Update(msg)
	return m, cmd
}

func (m *Model) updateLists(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.view {
	case PlaylistListView:
		m.playlistList, cmd = m.playlistList.Update(msg)
	case HistoryView:
		m.historyList, cmd = m.historyList.Update(msg)
	}
	return m, cmd
}

func (m *Model) fetchPlaylists() tea.Cmd {
	return func() tea.Msg {
		playlists, err := m.music.GetPlaylists(m.ctx)
		return playlistsFetchedMsg{playlists: playlists, err: err}
	}
}

func (m *Model) fetchHistory() tea.Cmd {
	return func() tea.Msg {
		recs, err := m.history.List(50)
		return historyFetchedMsg{recs: recs, err: err}
	}
}

func (m *Model) startSnap() tea.Cmd {
	m.progressChan = make(chan pipeline.ProgressUpdate, 50)
	progress := m.progressChan

	done := make(chan snapCompleteMsg, 1)
	m.snapDone = done

	go func() {
		result, err := m.engine.Snap(m.ctx, progress)
		done <- snapCompleteMsg{result: result, err: err}
		close(progress)
	}()

	return m.waitForProgress()
}

func (m *Model) waitForProgress() tea.Cmd {
	progress := m.progressChan
	done := m.snapDone
	return func() tea.Msg {
		if progress == nil {
			return nil
		}
		update, ok := <-progress
		if !ok {
			return <-done
		}
		return progressUpdateMsg(update)
	}
}

func (m *Model) renderHome() string {
	title := styles.title.Render("snaptrack")
	body := "Capture what's playing and save it to your playlist.\n"
	helpView := m.help.ShortHelpView([]key.Binding{m.keys.snap, m.keys.playlists, m.keys.history, m.keys.quit})
	return fmt.Sprintf("%s\n%s\n%s", title, body, helpView)
}

func (m *Model) renderSnap() string {
	title := styles.title.Render("Snapping")

	message := m.progress.Message
	if message == "" {
		message = "Starting..."
	}

	return fmt.Sprintf("%s\n%s\n\n%s", title, message, styles.help.Render("ctrl+c to quit"))
}

func (m *Model) renderResult() string {
	helpView := m.help.ShortHelpView([]key.Binding{m.keys.restart, m.keys.back, m.keys.quit})

	if m.err != nil {
		return fmt.Sprintf("%s\n\n%s", styles.err.Render(fmt.Sprintf("✗ %v", m.err)), helpView)
	}
	if m.result == nil {
		return fmt.Sprintf("%s\n\n%s", styles.warn.Render("No result available"), helpView)
	}

	title := styles.ok.Render("✓ Saved!")
	info := fmt.Sprintf("\nTrack: %s\nPlaylist: %s\n", m.result.Track.String(), m.result.Playlist.Name)
	return fmt.Sprintf("%s%s\n%s", title, info, helpView)
}

func (m *Model) renderList(l list.Model) string {
	helpView := m.help.ShortHelpView([]key.Binding{m.keys.back, m.keys.quit})
	return fmt.Sprintf("%s\n\n%s", l.View(), helpView)
}
