// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/waaaaall/snaptrack/internal/models"
	"github.com/waaaaall/snaptrack/internal/shared"
)

// MockMusicService is a test double for [services.MusicService]
type MockMusicService struct {
	Playlists []models.Playlist
	SearchURI string
	SearchErr error
	AddErr    error
	Appended  []string
}

func (m *MockMusicService) SearchTrack(ctx context.Context, track models.Track) (string, error) {
	if m.SearchErr != nil {
		return "", m.SearchErr
	}
	return m.SearchURI, nil
}

func (m *MockMusicService) GetPlaylists(ctx context.Context) ([]models.Playlist, error) {
	return m.Playlists, nil
}

func (m *MockMusicService) FindPlaylist(ctx context.Context, name string) (*models.Playlist, error) {
	for _, p := range m.Playlists {
		if p.Name == name {
			return &p, nil
		}
	}
	return nil, shared.ErrPlaylistNotFound
}

func (m *MockMusicService) CreatePlaylist(ctx context.Context, name string) (*models.Playlist, error) {
	p := models.Playlist{ID: "created", Name: name}
	m.Playlists = append(m.Playlists, p)
	return &p, nil
}

func (m *MockMusicService) AddToPlaylist(ctx context.Context, playlistID, trackURI string) error {
	if m.AddErr != nil {
		return m.AddErr
	}
	m.Appended = append(m.Appended, playlistID+":"+trackURI)
	return nil
}

func (m *MockMusicService) Name() string { return "mock" }

// MockRecognizer is a test double for [services.Recognizer]
type MockRecognizer struct {
	Track *models.Track
	Err   error
}

func (m *MockRecognizer) Recognize(ctx context.Context, clip []byte) (*models.Track, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Track, nil
}

// MockTokenSource is a test double for [pipeline.TokenSource]
type MockTokenSource struct {
	Token string
	Err   error
	Calls int
}

func (m *MockTokenSource) EnsureToken(ctx context.Context) (string, error) {
	m.Calls++
	if m.Err != nil {
		return "", m.Err
	}
	return m.Token, nil
}

// MockRecorder is a test double for [pipeline.ClipRecorder]
type MockRecorder struct {
	Clip []byte
	Err  error
}

func (m *MockRecorder) Record(ctx context.Context, progress func(time.Duration)) ([]byte, error) {
	if progress != nil {
		progress(10 * time.Second)
	}
	return m.Clip, m.Err
}

func (m *MockRecorder) Duration() time.Duration { return 10 * time.Second }

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

func MustGetwd(t *testing.T) string {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Failed to get working directory: %v", err)
	}
	return wd
}

func MustChdir(t *testing.T, dir string) {
	t.Helper()
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Failed to change directory to %s: %v", dir, err)
	}
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}
