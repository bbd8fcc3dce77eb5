package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	"github.com/waaaaall/snaptrack/internal/models"
)

var (
	_ list.Item = playlistItem{}
	_ list.Item = historyItem{}
)

// playlistItem wraps [models.Playlist] to implement [list.Item].
type playlistItem struct {
	playlist models.Playlist
}

func (i playlistItem) FilterValue() string { return i.playlist.Name }
func (i playlistItem) Title() string       { return i.playlist.Name }
func (i playlistItem) Description() string {
	desc := fmt.Sprintf("%d tracks", i.playlist.TrackCount)
	if i.playlist.Public {
		desc = fmt.Sprintf("%s • public", desc)
	}
	return desc
}

// historyItem wraps [models.Recognition] to implement [list.Item].
type historyItem struct {
	rec models.Recognition
}

func (i historyItem) FilterValue() string { return i.rec.Track.Title }
func (i historyItem) Title() string {
	if i.rec.Track.Title == "" {
		return "(unrecognized)"
	}
	return i.rec.Track.String()
}
func (i historyItem) Description() string {
	when := i.rec.CreatedAt.Format("2006-01-02 15:04")
	if i.rec.Failure != "" {
		return fmt.Sprintf("%s • failed at %s: %s", when, i.rec.Stage, i.rec.Failure)
	}
	return fmt.Sprintf("%s • saved", when)
}
