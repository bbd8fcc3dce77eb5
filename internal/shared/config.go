package shared

import (
	_ "embed"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Credentials CredentialsConfig `toml:"credentials"`
	Capture     CaptureConfig     `toml:"capture"`
	Recognition RecognitionConfig `toml:"recognition"`
	Playlist    PlaylistConfig    `toml:"playlist"`
	Database    DatabaseConfig    `toml:"database"`
	Server      ServerConfig      `toml:"server"`
}

// CredentialsConfig contains service-specific credentials.
type CredentialsConfig struct {
	Spotify SpotifyConfig `toml:"spotify"`
	AudD    AudDConfig    `toml:"audd"`
}

// SpotifyConfig contains Spotify API credentials and the authorization grant shape.
//
// Flow selects exactly one of the two redirect shapes: "code" (authorization
// code grant) or "token" (implicit grant). A deployment supports one, never both.
type SpotifyConfig struct {
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
	RedirectURI  string `toml:"redirect_uri"`
	Flow         string `toml:"flow"`
}

// AudDConfig contains the AudD recognition service credentials.
type AudDConfig struct {
	APIToken string `toml:"api_token"`
}

// CaptureConfig controls the audio capture stage.
//
// Command is the opaque capture capability: an external program that writes
// an encoded audio stream to stdout until killed (e.g. ffmpeg reading the
// system monitor source).
type CaptureConfig struct {
	Command         string   `toml:"command"`
	Args            []string `toml:"args"`
	DurationSeconds int      `toml:"duration_seconds"`
	Monitor         bool     `toml:"monitor"`
}

// RecognitionConfig controls the recognition stage.
type RecognitionConfig struct {
	TimeoutSeconds int `toml:"timeout_seconds"`
}

// PlaylistConfig names the target playlist.
//
// AutoCreate restores the earlier behavior of creating the playlist when it
// does not exist; when false the user is told to create it manually.
type PlaylistConfig struct {
	Name       string `toml:"name"`
	AutoCreate bool   `toml:"auto_create"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// ServerConfig contains settings for the loopback OAuth callback server.
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read config file: %v", ErrMissingConfig, err)
	}

	var config Config
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("%w: failed to parse config: %v", ErrInvalidConfig, err)
	}

	config.applyEnv()
	return &config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	config.applyEnv()
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// SaveConfig writes the configuration back to the specified path.
func SaveConfig(path string, config *Config) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(config); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	return nil
}

// applyEnv overlays secrets from the environment, loaded by the caller via godotenv.
//
// Environment values win over file values so credentials can stay out of config.toml.
func (c *Config) applyEnv() {
	if v := os.Getenv("SPOTIFY_ID"); v != "" {
		c.Credentials.Spotify.ClientID = v
	}
	if v := os.Getenv("SPOTIFY_SECRET"); v != "" {
		c.Credentials.Spotify.ClientSecret = v
	}
	if v := os.Getenv("AUDD_API_TOKEN"); v != "" {
		c.Credentials.AudD.APIToken = v
	}
}

// Validate checks that the credentials required for the OAuth flow are present.
func (c *Config) Validate() error {
	s := c.Credentials.Spotify
	if s.ClientID == "" {
		return fmt.Errorf("%w: spotify client_id", ErrMissingCredentials)
	}
	if s.Flow != "token" && s.ClientSecret == "" {
		return fmt.Errorf("%w: spotify client_secret", ErrMissingCredentials)
	}
	if s.Flow != "" && s.Flow != "code" && s.Flow != "token" {
		return fmt.Errorf("%w: flow must be \"code\" or \"token\", got %q", ErrInvalidConfig, s.Flow)
	}
	return nil
}
