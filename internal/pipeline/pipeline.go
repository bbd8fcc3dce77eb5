// package pipeline implements the recognize-and-save flow.
//
// The core abstraction is Engine, which runs one capture through recognition,
// search, playlist resolution, and append. Runs emit progress updates via
// channels for non-blocking status reporting to CLI/UI layers.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/waaaaall/snaptrack/internal/models"
	"github.com/waaaaall/snaptrack/internal/services"
	"github.com/waaaaall/snaptrack/internal/shared"
	"github.com/waaaaall/snaptrack/internal/store"
)

// Stage enumerates the pipeline states. A run moves forward through them in
// order; any failure jumps to StageFailed with the failing stage recorded.
type Stage int

const (
	StageIdle Stage = iota
	StageTokenCheck
	StageCapturing
	StageRecording
	StageRecognizing
	StageSearching
	StagePlaylistResolving
	StageAppending
	StageDone
	StageFailed
)

func (s Stage) String() string {
	switch s {
	case StageIdle:
		return "idle"
	case StageTokenCheck:
		return "token_check"
	case StageCapturing:
		return "capturing"
	case StageRecording:
		return "recording"
	case StageRecognizing:
		return "recognizing"
	case StageSearching:
		return "searching"
	case StagePlaylistResolving:
		return "playlist_resolving"
	case StageAppending:
		return "appending"
	case StageDone:
		return "done"
	case StageFailed:
		return "failed"
	default:
		return ""
	}
}

// TokenSource supplies a usable access token, acquiring one interactively
// when nothing is cached.
type TokenSource interface {
	EnsureToken(ctx context.Context) (string, error)
}

// ClipRecorder captures one fixed-length audio clip.
type ClipRecorder interface {
	Record(ctx context.Context, progress func(remaining time.Duration)) ([]byte, error)
	Duration() time.Duration
}

// Result contains the outcome of a successful run.
type Result struct {
	Track    models.Track    `json:"track"`
	TrackURI string          `json:"track_uri"`
	Playlist models.Playlist `json:"playlist"`
}

// session carries the state accumulated across one run's stages.
type session struct {
	clip     []byte
	track    *models.Track
	trackURI string
	playlist *models.Playlist
}

// Engine orchestrates one recognition run at a time.
//
// Runs are serialized: a second Snap blocks until the first finishes, so at
// most one capture and one credential acquisition is in flight.
type Engine struct {
	mu sync.Mutex

	auth       TokenSource
	recorder   ClipRecorder
	recognizer services.Recognizer
	music      services.MusicService
	history    store.HistoryStore

	playlistName string
	autoCreate   bool
	logger       *log.Logger
}

// NewEngine creates a pipeline engine over the given collaborators.
func NewEngine(auth TokenSource, recorder ClipRecorder, recognizer services.Recognizer, music services.MusicService, history store.HistoryStore, playlist shared.PlaylistConfig, logger *log.Logger) *Engine {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Engine{
		auth:         auth,
		recorder:     recorder,
		recognizer:   recognizer,
		music:        music,
		history:      history,
		playlistName: playlist.Name,
		autoCreate:   playlist.AutoCreate,
		logger:       logger,
	}
}

// sendProgress sends a progress update through the channel without blocking.
// Uses select with default so progress reporting never stalls the run.
func (e *Engine) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

// Snap runs one capture through the whole pipeline.
//
// The terminal outcome, success or failure, is recorded to history with the
// stage it ended in. Failures never retry within a run.
func (e *Engine) Snap(ctx context.Context, progress chan<- ProgressUpdate) (*Result, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.auth == nil || e.recognizer == nil || e.music == nil {
		return nil, fmt.Errorf("%w: pipeline not fully wired", shared.ErrServiceUnavailable)
	}

	var sess session

	e.sendProgress(progress, tokenCheckUpdate())
	if _, err := e.auth.EnsureToken(ctx); err != nil {
		return nil, e.fail(progress, sess, StageTokenCheck, err)
	}

	e.sendProgress(progress, capturingUpdate())
	clip, err := e.recorder.Record(ctx, func(remaining time.Duration) {
		e.sendProgress(progress, countdownUpdate(remaining))
	})
	if err != nil {
		stage := StageRecording
		if errors.Is(err, shared.ErrCaptureFailed) {
			stage = StageCapturing
		}
		return nil, e.fail(progress, sess, stage, err)
	}
	sess.clip = clip

	e.sendProgress(progress, recognizingUpdate())
	track, err := e.recognizer.Recognize(ctx, sess.clip)
	if err != nil {
		return nil, e.fail(progress, sess, StageRecognizing, err)
	}
	sess.track = track

	e.sendProgress(progress, searchingUpdate(*track))
	uri, err := e.music.SearchTrack(ctx, *track)
	if err != nil {
		return nil, e.fail(progress, sess, StageSearching, err)
	}
	sess.trackURI = uri

	e.sendProgress(progress, resolvingUpdate(e.playlistName))
	playlist, err := e.resolvePlaylist(ctx)
	if err != nil {
		return nil, e.fail(progress, sess, StagePlaylistResolving, err)
	}
	sess.playlist = playlist

	e.sendProgress(progress, appendingUpdate(*playlist))
	if err := e.music.AddToPlaylist(ctx, playlist.ID, uri); err != nil {
		return nil, e.fail(progress, sess, StageAppending, err)
	}

	result := &Result{
		Track:    *track,
		TrackURI: uri,
		Playlist: *playlist,
	}

	e.record(models.Recognition{
		Track:      *track,
		TrackURI:   uri,
		PlaylistID: playlist.ID,
		Stage:      StageDone.String(),
	})

	e.logger.Info("track saved", "track", track.String(), "playlist", playlist.Name)
	e.sendProgress(progress, doneUpdate(result))
	return result, nil
}

// resolvePlaylist looks up the configured playlist, creating it when
// auto-create is on and the lookup finds nothing.
func (e *Engine) resolvePlaylist(ctx context.Context) (*models.Playlist, error) {
	playlist, err := e.music.FindPlaylist(ctx, e.playlistName)
	if err == nil {
		return playlist, nil
	}

	if errors.Is(err, shared.ErrPlaylistNotFound) && e.autoCreate {
		e.logger.Info("playlist missing, creating it", "name", e.playlistName)
		return e.music.CreatePlaylist(ctx, e.playlistName)
	}

	return nil, err
}

// fail records the terminal failure and emits the failure update.
func (e *Engine) fail(progress chan<- ProgressUpdate, sess session, stage Stage, err error) error {
	rec := models.Recognition{
		TrackURI: sess.trackURI,
		Stage:    stage.String(),
		Failure:  err.Error(),
	}
	if sess.track != nil {
		rec.Track = *sess.track
	}
	if sess.playlist != nil {
		rec.PlaylistID = sess.playlist.ID
	}
	e.record(rec)

	e.logger.Error("pipeline run failed", "stage", stage, "error", err)
	e.sendProgress(progress, failedUpdate(stage, err))
	return err
}

// record persists a history entry; history failures are logged, never fatal.
func (e *Engine) record(rec models.Recognition) {
	if e.history == nil {
		return
	}
	if err := e.history.Create(rec); err != nil {
		e.logger.Warn("failed to record history entry", "error", err)
	}
}
