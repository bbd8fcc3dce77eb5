package main

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"
	"github.com/waaaaall/snaptrack/internal/auth"
	"github.com/waaaaall/snaptrack/internal/capture"
	"github.com/waaaaall/snaptrack/internal/pipeline"
	"github.com/waaaaall/snaptrack/internal/server"
	"github.com/waaaaall/snaptrack/internal/services"
	"github.com/waaaaall/snaptrack/internal/shared"
	"github.com/waaaaall/snaptrack/internal/store"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
//
// Collaborators are wired lazily so commands that never touch Spotify (like
// history) work without credentials.
type Runner struct {
	config     *shared.Config
	configPath string
	db         *sql.DB
	tokens     store.TokenStore
	history    store.HistoryStore
	auth       pipeline.TokenSource
	music      services.MusicService
	recognizer services.Recognizer
	recorder   pipeline.ClipRecorder
	httpClient *http.Client
	logger     *log.Logger
	output     io.Writer
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	Tokens     store.TokenStore
	History    store.HistoryStore
	Auth       pipeline.TokenSource
	Music      services.MusicService
	Recognizer services.Recognizer
	Recorder   pipeline.ClipRecorder
	HTTPClient *http.Client
	Logger     *log.Logger
	Output     io.Writer
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.ConfigPath == "" {
		opts.ConfigPath = "config.toml"
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}

	return &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		tokens:     opts.Tokens,
		history:    opts.History,
		auth:       opts.Auth,
		music:      opts.Music,
		recognizer: opts.Recognizer,
		recorder:   opts.Recorder,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		output:     opts.Output,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		snapCommand, authCommand, playlistsCommand, historyCommand, setupCommand, tuiCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// SetLogger replaces the runner's logger (used by the TUI to log to a file).
func (r *Runner) SetLogger(logger *log.Logger) {
	r.logger = logger
}

// openDatabase opens the configured SQLite database, runs migrations, and
// wires the repositories. Idempotent across commands in one invocation.
func (r *Runner) openDatabase() error {
	if r.tokens != nil && r.history != nil {
		return nil
	}

	db, err := shared.NewDatabase(r.config.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	shared.ConfigureDatabase(db, r.config.Database.MaxOpenConns, r.config.Database.MaxIdleConns)

	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	r.db = db
	if r.tokens == nil {
		r.tokens = store.NewTokenRepository(db)
	}
	if r.history == nil {
		r.history = store.NewHistoryRepository(db)
	}
	return nil
}

// ensureAuth wires the credential manager with a loopback prompter.
func (r *Runner) ensureAuth() (pipeline.TokenSource, error) {
	if r.auth != nil {
		return r.auth, nil
	}

	if err := r.openDatabase(); err != nil {
		return nil, err
	}

	flow := server.Flow(r.config.Credentials.Spotify.Flow)
	if flow == "" {
		flow = server.FlowCode
	}

	prompter := auth.NewLoopbackPrompter(r.config.Server.Host, r.config.Server.Port, flow, r.logger)
	manager, err := auth.NewManager(r.config, r.tokens, prompter, r.httpClient, r.logger)
	if err != nil {
		return nil, err
	}

	r.auth = manager
	return r.auth, nil
}

// ensureMusic wires the Spotify client over the credential manager.
func (r *Runner) ensureMusic() (services.MusicService, error) {
	if r.music != nil {
		return r.music, nil
	}

	tokenSource, err := r.ensureAuth()
	if err != nil {
		return nil, err
	}

	r.music = services.NewSpotifyService(tokenSource.EnsureToken, r.httpClient, r.logger)
	return r.music, nil
}

// ensureRecognizer wires the AudD client.
func (r *Runner) ensureRecognizer() (services.Recognizer, error) {
	if r.recognizer != nil {
		return r.recognizer, nil
	}

	apiToken := r.config.Credentials.AudD.APIToken
	if apiToken == "" {
		return nil, fmt.Errorf("%w: audd api_token", shared.ErrMissingCredentials)
	}

	timeout := time.Duration(r.config.Recognition.TimeoutSeconds) * time.Second
	r.recognizer = services.NewAudDClient(apiToken, timeout, r.httpClient, r.logger)
	return r.recognizer, nil
}

func (r *Runner) ensureRecorder() pipeline.ClipRecorder {
	if r.recorder == nil {
		r.recorder = capture.NewRecorderFromConfig(r.config.Capture, r.logger)
	}
	return r.recorder
}

// buildEngine wires the full pipeline.
func (r *Runner) buildEngine() (*pipeline.Engine, error) {
	tokenSource, err := r.ensureAuth()
	if err != nil {
		return nil, err
	}
	music, err := r.ensureMusic()
	if err != nil {
		return nil, err
	}
	recognizer, err := r.ensureRecognizer()
	if err != nil {
		return nil, err
	}

	return pipeline.NewEngine(
		tokenSource,
		r.ensureRecorder(),
		recognizer,
		music,
		r.history,
		r.config.Playlist,
		r.logger,
	), nil
}

// CommandResult is the JSON envelope for machine-readable command output.
type CommandResult struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

func (r *Runner) writeResult(data any, cmdErr error, pretty bool) error {
	envelope := CommandResult{Success: cmdErr == nil, Data: data}
	if cmdErr != nil {
		envelope.Error = cmdErr.Error()
	}
	return r.writeJSON(envelope, pretty)
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

// Close releases the database connection if one was opened.
func (r *Runner) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}
