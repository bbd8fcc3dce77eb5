package main

import (
	"context"

	"github.com/urfave/cli/v3"
	"github.com/waaaaall/snaptrack/internal/capture"
	"github.com/waaaaall/snaptrack/internal/pipeline"
)

// Snap runs one capture through recognition and saves the match to the
// configured playlist.
func (r *Runner) Snap(ctx context.Context, cmd *cli.Command) error {
	useJSON := cmd.Bool("json")
	pretty := cmd.Bool("pretty")

	if name := cmd.String("playlist"); name != "" {
		r.config.Playlist.Name = name
	}
	if duration := cmd.Int("duration"); duration > 0 {
		r.config.Capture.DurationSeconds = int(duration)
		r.recorder = capture.NewRecorderFromConfig(r.config.Capture, r.logger)
	}

	engine, err := r.buildEngine()
	if err != nil {
		return err
	}

	progress := make(chan pipeline.ProgressUpdate, 50)
	drained := make(chan struct{})
	go func() {
		defer close(drained)
		for update := range progress {
			if useJSON {
				continue
			}
			r.writePlain("%s\n", update.Message)
		}
	}()

	result, runErr := engine.Snap(ctx, progress)
	close(progress)
	<-drained

	if useJSON {
		if err := r.writeResult(result, runErr, pretty); err != nil {
			return err
		}
		return runErr
	}

	if runErr != nil {
		return runErr
	}

	r.writePlainln("✓ %s", result.Track.String())
	r.writePlain("  Playlist: %s\n", result.Playlist.Name)
	r.writePlain("  URI: %s\n", result.TrackURI)
	return nil
}
