// Spotify API implementation of [MusicService]
//
// Spotify API response types based on https://developer.spotify.com/documentation/web-api/reference/
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/waaaaall/snaptrack/internal/models"
	"github.com/waaaaall/snaptrack/internal/shared"
	"golang.org/x/time/rate"
)

const spotifyBaseURL = "https://api.spotify.com/v1"

// playlistPageLimit is the page size for /me/playlists.
const playlistPageLimit = 50

// SpotifyImage represents an image resource.
type SpotifyImage struct {
	URL    string `json:"url"`
	Height int    `json:"height"`
	Width  int    `json:"width"`
}

// SpotifyArtist represents a Spotify artist.
type SpotifyArtist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	URI  string `json:"uri"`
}

// SpotifyTrack represents a Spotify track.
type SpotifyTrack struct {
	ID      string          `json:"id"`
	Name    string          `json:"name"`
	Artists []SpotifyArtist `json:"artists"`
	URI     string          `json:"uri"`
}

type Owner struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

type playlistTracks struct {
	Total int `json:"total"`
}

// SpotifySimplePlaylist represents a simplified playlist object (used in lists).
type SpotifySimplePlaylist struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Owner       Owner          `json:"owner"`
	Public      bool           `json:"public"`
	Tracks      playlistTracks `json:"tracks"`
	Images      []SpotifyImage `json:"images"`
	URI         string         `json:"uri"`
}

// SpotifyPaginatedPlaylists represents a paginated response of playlists.
type SpotifyPaginatedPlaylists struct {
	Items    []SpotifySimplePlaylist `json:"items"`
	Total    int                     `json:"total"`
	Limit    int                     `json:"limit"`
	Offset   int                     `json:"offset"`
	Next     *string                 `json:"next"`
	Previous *string                 `json:"previous"`
}

type searchResponse struct {
	Tracks struct {
		Items []SpotifyTrack `json:"items"`
	} `json:"tracks"`
}

// SpotifyService implements [MusicService] against the Spotify Web API.
//
// Every request asks the token provider for a fresh access token, so an
// expiring credential refreshes transparently mid-session. Requests share a
// rate limiter to stay under the API's burst ceiling.
type SpotifyService struct {
	baseURL    string
	tokens     TokenProvider
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *log.Logger
}

// NewSpotifyService creates a Spotify client using tokens from the provider.
func NewSpotifyService(tokens TokenProvider, httpClient *http.Client, logger *log.Logger) *SpotifyService {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &SpotifyService{
		baseURL:    spotifyBaseURL,
		tokens:     tokens,
		httpClient: httpClient,
		limiter:    rate.NewLimiter(rate.Every(100*time.Millisecond), 5),
		logger:     logger,
	}
}

func (s *SpotifyService) Name() string {
	return "Spotify"
}

// doRequest performs an authenticated, rate-limited request to the API.
func (s *SpotifyService) doRequest(ctx context.Context, method, endpoint string, body interface{}, result interface{}) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}

	token, err := s.tokens(ctx)
	if err != nil {
		return err
	}

	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+endpoint, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: spotify returned status %d for %s %s", shared.ErrAPIRequest, resp.StatusCode, method, endpoint)
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("%w: failed to decode response: %v", shared.ErrAPIRequest, err)
		}
	}

	return nil
}

// SearchTrack searches for the recognized track and returns the URI of the
// top match.
func (s *SpotifyService) SearchTrack(ctx context.Context, track models.Track) (string, error) {
	query := strings.TrimSpace(track.Title + " " + track.Artist)
	endpoint := fmt.Sprintf("/search?q=%s&type=track&limit=1", url.QueryEscape(query))

	var response searchResponse
	if err := s.doRequest(ctx, http.MethodGet, endpoint, nil, &response); err != nil {
		return "", err
	}

	if len(response.Tracks.Items) == 0 {
		return "", fmt.Errorf("%w: %s", shared.ErrTrackNotFound, track.String())
	}

	match := response.Tracks.Items[0]
	s.logger.Debug("search matched", "query", query, "uri", match.URI)
	return match.URI, nil
}

// UserPlaylists retrieves one page of the current user's playlists.
func (s *SpotifyService) UserPlaylists(ctx context.Context, limit, offset int) (*SpotifyPaginatedPlaylists, error) {
	if limit <= 0 || limit > playlistPageLimit {
		limit = playlistPageLimit
	}

	endpoint := fmt.Sprintf("/me/playlists?limit=%d&offset=%d", limit, offset)

	var response SpotifyPaginatedPlaylists
	if err := s.doRequest(ctx, http.MethodGet, endpoint, nil, &response); err != nil {
		return nil, err
	}

	return &response, nil
}

// GetPlaylists retrieves all playlists for the authenticated user, following
// pagination until the last page.
func (s *SpotifyService) GetPlaylists(ctx context.Context) ([]models.Playlist, error) {
	var all []models.Playlist
	offset := 0

	for {
		response, err := s.UserPlaylists(ctx, playlistPageLimit, offset)
		if err != nil {
			return nil, err
		}

		for _, sp := range response.Items {
			all = append(all, models.Playlist{
				ID:         sp.ID,
				Name:       sp.Name,
				TrackCount: sp.Tracks.Total,
				Public:     sp.Public,
			})
		}

		if response.Next == nil {
			break
		}
		offset += playlistPageLimit
	}

	return all, nil
}

// FindPlaylist resolves a playlist by name, scanning every page.
//
// The match is exact; the first match wins regardless of which page it
// appears on.
func (s *SpotifyService) FindPlaylist(ctx context.Context, name string) (*models.Playlist, error) {
	playlists, err := s.GetPlaylists(ctx)
	if err != nil {
		return nil, err
	}

	for _, p := range playlists {
		if p.Name == name {
			return &p, nil
		}
	}

	return nil, fmt.Errorf("%w: %q", shared.ErrPlaylistNotFound, name)
}

// CreatePlaylist creates a new private playlist for the current user.
func (s *SpotifyService) CreatePlaylist(ctx context.Context, name string) (*models.Playlist, error) {
	body := map[string]interface{}{
		"name":        name,
		"public":      false,
		"description": "Tracks recognized from browser audio",
	}

	var created SpotifySimplePlaylist
	if err := s.doRequest(ctx, http.MethodPost, "/me/playlists", body, &created); err != nil {
		return nil, err
	}

	s.logger.Info("playlist created", "name", created.Name, "id", created.ID)
	return &models.Playlist{
		ID:     created.ID,
		Name:   created.Name,
		Public: created.Public,
	}, nil
}

// AddToPlaylist appends one track URI to the playlist.
func (s *SpotifyService) AddToPlaylist(ctx context.Context, playlistID, trackURI string) error {
	endpoint := fmt.Sprintf("/playlists/%s/tracks", playlistID)
	body := map[string]interface{}{
		"uris": []string{trackURI},
	}

	if err := s.doRequest(ctx, http.MethodPost, endpoint, body, nil); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAddToPlaylist, err)
	}

	s.logger.Debug("track appended", "playlist", playlistID, "uri", trackURI)
	return nil
}
