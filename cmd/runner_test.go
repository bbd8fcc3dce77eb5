package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/urfave/cli/v3"
	"github.com/waaaaall/snaptrack/internal/models"
	"github.com/waaaaall/snaptrack/internal/shared"
	tu "github.com/waaaaall/snaptrack/internal/testing"
)

func TestRunner(t *testing.T) {
	t.Run("NewRunner", func(t *testing.T) {
		t.Run("with all dependencies provided", func(t *testing.T) {
			config := shared.DefaultConfig()
			logger := shared.NewLogger(nil)
			output := &bytes.Buffer{}
			httpClient := &http.Client{}
			music := &tu.MockMusicService{}

			runner := NewRunner(RunnerOpts{
				Config:     config,
				Logger:     logger,
				Output:     output,
				HTTPClient: httpClient,
				Music:      music,
			})

			if runner.config != config {
				t.Error("expected config to be set")
			}
			if runner.logger != logger {
				t.Error("expected logger to be set")
			}
			if runner.output != output {
				t.Error("expected output to be set")
			}
			if runner.httpClient != httpClient {
				t.Error("expected httpClient to be set")
			}
			if runner.music != music {
				t.Error("expected music service to be set")
			}
		})

		t.Run("with nil config uses defaults", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Config: nil})
			if runner.config == nil {
				t.Error("expected default config to be set")
			}
		})

		t.Run("with nil output uses stdout", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: nil})
			if runner.output != os.Stdout {
				t.Error("expected output to default to os.Stdout")
			}
		})

		t.Run("with nil httpClient uses default", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{HTTPClient: nil})
			if runner.httpClient != http.DefaultClient {
				t.Error("expected httpClient to default to http.DefaultClient")
			}
		})
	})

	t.Run("writeJSON", func(t *testing.T) {
		t.Run("writes formatted JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writeJSON(map[string]string{"key": "value"}, true); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			result := output.String()
			if !strings.Contains(result, `"key": "value"`) {
				t.Errorf("expected formatted JSON, got %s", result)
			}
			if !strings.HasSuffix(result, "\n") {
				t.Error("expected output to end with newline")
			}
		})

		t.Run("writes compact JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writeJSON(map[string]string{"key": "value"}, false); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if !strings.Contains(output.String(), `{"key":"value"}`) {
				t.Errorf("expected compact JSON, got %s", output.String())
			}
		})

		t.Run("write failure propagates", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &tu.FWriter{}})
			if err := runner.writeJSON(map[string]string{"key": "value"}, false); err == nil {
				t.Error("expected error from failing writer")
			}
		})
	})
}

func testApp(runner *Runner) *cli.Command {
	return &cli.Command{
		Name:     "snaptrack",
		Commands: runner.register(),
	}
}

func memConfig() *shared.Config {
	config := shared.DefaultConfig()
	config.Database.Path = ":memory:"
	return config
}

func TestSnapCommand(t *testing.T) {
	track := &models.Track{Title: "Take Five", Artist: "Dave Brubeck"}

	t.Run("JSON Output Envelope", func(t *testing.T) {
		output := &bytes.Buffer{}
		music := &tu.MockMusicService{
			SearchURI: "spotify:track:t1",
			Playlists: []models.Playlist{{ID: "pl1", Name: "Saved from Browser"}},
		}

		runner := NewRunner(RunnerOpts{
			Config:     memConfig(),
			Output:     output,
			Auth:       &tu.MockTokenSource{Token: "tok"},
			Music:      music,
			Recognizer: &tu.MockRecognizer{Track: track},
			Recorder:   &tu.MockRecorder{Clip: []byte("clip")},
			Logger:     shared.NewLogger(&bytes.Buffer{}),
		})

		err := testApp(runner).Run(context.Background(), []string{"snaptrack", "snap", "--json"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		var envelope CommandResult
		if err := json.Unmarshal(output.Bytes(), &envelope); err != nil {
			t.Fatalf("expected JSON envelope, got %q: %v", output.String(), err)
		}
		if !envelope.Success || envelope.Error != "" {
			t.Errorf("expected success envelope, got %+v", envelope)
		}
		if len(music.Appended) != 1 {
			t.Errorf("expected one append, got %v", music.Appended)
		}
	})

	t.Run("Failure Envelope Carries The Error", func(t *testing.T) {
		output := &bytes.Buffer{}
		runner := NewRunner(RunnerOpts{
			Config:     memConfig(),
			Output:     output,
			Auth:       &tu.MockTokenSource{Token: "tok"},
			Music:      &tu.MockMusicService{},
			Recognizer: &tu.MockRecognizer{Err: shared.ErrNoRecognition},
			Recorder:   &tu.MockRecorder{Clip: []byte("clip")},
			Logger:     shared.NewLogger(&bytes.Buffer{}),
		})

		err := testApp(runner).Run(context.Background(), []string{"snaptrack", "snap", "--json"})
		if err == nil {
			t.Fatal("expected the run error to propagate")
		}

		var envelope CommandResult
		if err := json.Unmarshal(output.Bytes(), &envelope); err != nil {
			t.Fatalf("expected JSON envelope, got %q: %v", output.String(), err)
		}
		if envelope.Success || envelope.Error == "" {
			t.Errorf("expected failure envelope, got %+v", envelope)
		}
	})

	t.Run("Playlist Flag Overrides Config", func(t *testing.T) {
		output := &bytes.Buffer{}
		music := &tu.MockMusicService{
			SearchURI: "spotify:track:t1",
			Playlists: []models.Playlist{{ID: "pl2", Name: "Late Night"}},
		}

		runner := NewRunner(RunnerOpts{
			Config:     memConfig(),
			Output:     output,
			Auth:       &tu.MockTokenSource{Token: "tok"},
			Music:      music,
			Recognizer: &tu.MockRecognizer{Track: track},
			Recorder:   &tu.MockRecorder{Clip: []byte("clip")},
			Logger:     shared.NewLogger(&bytes.Buffer{}),
		})

		err := testApp(runner).Run(context.Background(), []string{"snaptrack", "snap", "--playlist", "Late Night"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(music.Appended) != 1 || !strings.HasPrefix(music.Appended[0], "pl2:") {
			t.Errorf("expected append to the overridden playlist, got %v", music.Appended)
		}
	})
}

func TestHistoryCommand(t *testing.T) {
	t.Run("Empty History", func(t *testing.T) {
		output := &bytes.Buffer{}
		runner := NewRunner(RunnerOpts{
			Config: memConfig(),
			Output: output,
			Logger: shared.NewLogger(&bytes.Buffer{}),
		})
		defer runner.Close()

		err := testApp(runner).Run(context.Background(), []string{"snaptrack", "history"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(output.String(), "No recognitions yet") {
			t.Errorf("expected empty-history message, got %q", output.String())
		}
	})

	t.Run("JSON Output", func(t *testing.T) {
		output := &bytes.Buffer{}
		runner := NewRunner(RunnerOpts{
			Config: memConfig(),
			Output: output,
			Logger: shared.NewLogger(&bytes.Buffer{}),
		})
		defer runner.Close()

		if err := runner.openDatabase(); err != nil {
			t.Fatalf("failed to open database: %v", err)
		}
		if err := runner.history.Create(models.Recognition{
			Track: models.Track{Title: "Take Five", Artist: "Dave Brubeck"},
			Stage: "done",
		}); err != nil {
			t.Fatalf("failed to seed history: %v", err)
		}

		err := testApp(runner).Run(context.Background(), []string{"snaptrack", "history", "--json"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		var recs []models.Recognition
		if err := json.Unmarshal(output.Bytes(), &recs); err != nil {
			t.Fatalf("expected JSON list, got %q: %v", output.String(), err)
		}
		if len(recs) != 1 || recs[0].Track.Title != "Take Five" {
			t.Errorf("unexpected history output: %+v", recs)
		}
	})
}

func TestSetupCommand(t *testing.T) {
	t.Run("Initializes Then Rolls Back", func(t *testing.T) {
		dir := t.TempDir()
		configPath := filepath.Join(dir, "config.toml")
		dbPath := filepath.Join(dir, "snaptrack.db")
		data := fmt.Sprintf("[database]\npath = %q\nmax_open_conns = 1\nmax_idle_conns = 1\n", dbPath)
		if err := os.WriteFile(configPath, []byte(data), 0644); err != nil {
			t.Fatalf("failed to write config: %v", err)
		}

		output := &bytes.Buffer{}
		runner := NewRunner(RunnerOpts{
			Output: output,
			Logger: shared.NewLogger(&bytes.Buffer{}),
		})

		err := testApp(runner).Run(context.Background(), []string{"snaptrack", "setup", "--config", configPath})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(output.String(), "Setup complete") {
			t.Errorf("expected setup confirmation, got %q", output.String())
		}

		output.Reset()
		err = testApp(runner).Run(context.Background(), []string{"snaptrack", "setup", "--config", configPath, "--rollback"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(output.String(), "Rolled back") {
			t.Errorf("expected rollback confirmation, got %q", output.String())
		}
	})
}

func TestAuthStatusCommand(t *testing.T) {
	t.Run("Not Authenticated Without A Credential", func(t *testing.T) {
		output := &bytes.Buffer{}
		runner := NewRunner(RunnerOpts{
			Config: memConfig(),
			Output: output,
			Logger: shared.NewLogger(&bytes.Buffer{}),
		})
		defer runner.Close()

		err := testApp(runner).Run(context.Background(), []string{"snaptrack", "auth", "status"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(output.String(), "Not authenticated") {
			t.Errorf("expected unauthenticated status, got %q", output.String())
		}
	})
}
