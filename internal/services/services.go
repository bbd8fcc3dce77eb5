// package services defines interfaces for the external HTTP APIs the
// pipeline talks to
//
// AudD (recognition), Spotify (search and playlists)
package services

import (
	"context"

	"github.com/waaaaall/snaptrack/internal/models"
)

// Recognizer identifies the track playing in an encoded audio clip.
type Recognizer interface {
	// Recognize submits the clip and returns the identified track.
	// Returns ErrNoRecognition when the service answers but matches nothing.
	Recognize(ctx context.Context, clip []byte) (*models.Track, error)
}

// MusicService defines the playlist-side operations the pipeline needs from
// a streaming service.
type MusicService interface {
	// SearchTrack finds the best match for a recognized track and returns
	// its service URI.
	SearchTrack(ctx context.Context, track models.Track) (string, error)

	// GetPlaylists retrieves all playlists for the authenticated user.
	GetPlaylists(ctx context.Context) ([]models.Playlist, error)

	// FindPlaylist resolves a playlist by name.
	FindPlaylist(ctx context.Context, name string) (*models.Playlist, error)

	// CreatePlaylist creates a new private playlist with the given name.
	CreatePlaylist(ctx context.Context, name string) (*models.Playlist, error)

	// AddToPlaylist appends one track to a playlist.
	AddToPlaylist(ctx context.Context, playlistID, trackURI string) error

	// Name returns the name of the service (e.g., "Spotify")
	Name() string
}

// TokenProvider supplies a usable access token for each request, acquiring
// or refreshing one as needed.
type TokenProvider func(ctx context.Context) (string, error)
