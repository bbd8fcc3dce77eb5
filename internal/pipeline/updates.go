package pipeline

import (
	"fmt"
	"time"

	"github.com/waaaaall/snaptrack/internal/models"
)

// ProgressUpdate represents a progress event during a pipeline run.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Stage   Stage  // Pipeline stage the run is in
	Message string // Human-readable message for display
	Data    any    // Optional stage-specific data for advanced UIs
}

func tokenCheckUpdate() ProgressUpdate {
	return ProgressUpdate{
		Stage:   StageTokenCheck,
		Message: "Checking Spotify credentials...",
	}
}

func capturingUpdate() ProgressUpdate {
	return ProgressUpdate{
		Stage:   StageCapturing,
		Message: "Opening audio capture...",
	}
}

func countdownUpdate(remaining time.Duration) ProgressUpdate {
	return ProgressUpdate{
		Stage:   StageRecording,
		Message: fmt.Sprintf("Recording... %ds", int(remaining.Round(time.Second).Seconds())),
		Data:    remaining,
	}
}

func recognizingUpdate() ProgressUpdate {
	return ProgressUpdate{
		Stage:   StageRecognizing,
		Message: "Identifying track...",
	}
}

func searchingUpdate(track models.Track) ProgressUpdate {
	return ProgressUpdate{
		Stage:   StageSearching,
		Message: fmt.Sprintf("Searching Spotify for %s...", track.String()),
		Data:    track,
	}
}

func resolvingUpdate(name string) ProgressUpdate {
	return ProgressUpdate{
		Stage:   StagePlaylistResolving,
		Message: fmt.Sprintf("Resolving playlist %q...", name),
	}
}

func appendingUpdate(playlist models.Playlist) ProgressUpdate {
	return ProgressUpdate{
		Stage:   StageAppending,
		Message: fmt.Sprintf("Adding to %s...", playlist.Name),
		Data:    playlist,
	}
}

func doneUpdate(result *Result) ProgressUpdate {
	return ProgressUpdate{
		Stage:   StageDone,
		Message: fmt.Sprintf("✓ %s saved to %s", result.Track.String(), result.Playlist.Name),
		Data:    result,
	}
}

func failedUpdate(stage Stage, err error) ProgressUpdate {
	return ProgressUpdate{
		Stage:   StageFailed,
		Message: fmt.Sprintf("✗ %s: %v", stage, err),
		Data:    err,
	}
}
