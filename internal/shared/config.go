package shared

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

//go:embed config.example.toml
var exampleConf []byte

// Environment variables holding the Spotify credentials.
const (
	EnvClientID     = "SPOTIFY_CLIENT_ID"
	EnvClientSecret = "SPOTIFY_CLIENT_SECRET"
	EnvRefreshToken = "SPOTIFY_REFRESH_TOKEN"
	EnvUserID       = "SPOTIFY_USER_ID"
	EnvLogLevel     = "LOG_LEVEL"
)

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Spotify SpotifyConfig `toml:"spotify"`
	Cache   CacheConfig   `toml:"cache"`
	Fetch   FetchConfig   `toml:"fetch"`
	Log     LogConfig     `toml:"log"`
	Server  ServerConfig  `toml:"server"`
}

// SpotifyConfig contains non-secret Spotify settings.
type SpotifyConfig struct {
	Market      string `toml:"market"`
	RedirectURI string `toml:"redirect_uri"`
}

// CacheConfig sizes the audio feature cache.
type CacheConfig struct {
	MaxSize int `toml:"max_size"`
}

// FetchConfig bounds batched remote lookups.
type FetchConfig struct {
	BatchSize         int     `toml:"batch_size"`
	Concurrency       int     `toml:"concurrency"`
	RequestsPerSecond float64 `toml:"requests_per_second"`
}

// LogConfig selects the log level and output format ("text" or "json").
type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// ServerConfig contains the OAuth callback listener settings.
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// Credentials are the OAuth client credentials and refresh token, read once from the environment.
type Credentials struct {
	ClientID     string
	ClientSecret string
	RefreshToken string
	UserID       string
}

// HasClient reports whether both the client id and secret are present.
func (c Credentials) HasClient() bool {
	return c.ClientID != "" && c.ClientSecret != ""
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Fields missing from the file keep the embedded defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("%w: failed to parse config: %v", ErrInvalidConfig, err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// Validate rejects values the fetch pipeline cannot run with.
func (c *Config) Validate() error {
	switch {
	case c.Cache.MaxSize <= 0:
		return fmt.Errorf("%w: cache.max_size must be positive", ErrInvalidConfig)
	case c.Fetch.BatchSize <= 0 || c.Fetch.BatchSize > 50:
		return fmt.Errorf("%w: fetch.batch_size must be between 1 and 50", ErrInvalidConfig)
	case c.Fetch.Concurrency <= 0:
		return fmt.Errorf("%w: fetch.concurrency must be positive", ErrInvalidConfig)
	}
	return nil
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

// LoadDotEnv loads variables from the given .env files into the process environment.
// Variables already set are not overridden and missing files are ignored.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("failed to load %s: %w", p, err)
		}
	}
	return nil
}

// CredentialsFromEnv reads [Credentials] using lookup, which is normally [os.Getenv].
func CredentialsFromEnv(lookup func(string) string) Credentials {
	if lookup == nil {
		lookup = os.Getenv
	}
	get := func(k string) string { return strings.TrimSpace(lookup(k)) }
	return Credentials{
		ClientID:     get(EnvClientID),
		ClientSecret: get(EnvClientSecret),
		RefreshToken: get(EnvRefreshToken),
		UserID:       get(EnvUserID),
	}
}
