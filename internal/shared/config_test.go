package shared

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestConfig(t *testing.T) {
	t.Run("DefaultConfig", func(t *testing.T) {
		config := DefaultConfig()

		if config.Cache.MaxSize != 1000 {
			t.Errorf("expected cache size 1000, got %d", config.Cache.MaxSize)
		}
		if config.Fetch.BatchSize != 50 {
			t.Errorf("expected batch size 50, got %d", config.Fetch.BatchSize)
		}
		if config.Fetch.Concurrency != 4 {
			t.Errorf("expected concurrency 4, got %d", config.Fetch.Concurrency)
		}
		if config.Spotify.Market != "US" {
			t.Errorf("expected market US, got %s", config.Spotify.Market)
		}
		if config.Spotify.RedirectURI != "http://127.0.0.1:8888/callback" {
			t.Errorf("unexpected redirect uri %s", config.Spotify.RedirectURI)
		}
		if err := config.Validate(); err != nil {
			t.Errorf("default config should be valid: %v", err)
		}
	})

	t.Run("CreateConfigFile", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.toml")

		if err := CreateConfigFile(configPath); err != nil {
			t.Fatalf("failed to create config file: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load created config: %v", err)
		}

		if config.Cache.MaxSize != DefaultConfig().Cache.MaxSize {
			t.Errorf("created config cache size doesn't match default")
		}

		if err := CreateConfigFile(configPath); err == nil {
			t.Error("creating config file again should fail")
		}
	})

	t.Run("LoadConfig", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.toml")

		testConfig := `[spotify]
market = "DE"

[fetch]
concurrency = 2

[log]
level = "debug"
format = "json"
`
		if err := os.WriteFile(configPath, []byte(testConfig), 0644); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load config: %v", err)
		}

		if config.Spotify.Market != "DE" {
			t.Errorf("expected market DE, got %s", config.Spotify.Market)
		}
		if config.Fetch.Concurrency != 2 {
			t.Errorf("expected concurrency 2, got %d", config.Fetch.Concurrency)
		}
		if config.Fetch.BatchSize != 50 {
			t.Errorf("expected default batch size to survive, got %d", config.Fetch.BatchSize)
		}
		if config.Log.Format != "json" {
			t.Errorf("expected json log format, got %s", config.Log.Format)
		}
	})

	t.Run("LoadConfig rejects invalid values", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.toml")
		if err := os.WriteFile(configPath, []byte("[fetch]\nbatch_size = 100\n"), 0644); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		_, err := LoadConfig(configPath)
		if !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("expected ErrInvalidConfig, got %v", err)
		}
	})

	t.Run("LoadConfig missing file", func(t *testing.T) {
		if _, err := LoadConfig(filepath.Join(t.TempDir(), "nope.toml")); err == nil {
			t.Error("expected error for missing file")
		}
	})
}

func TestCredentials(t *testing.T) {
	t.Run("CredentialsFromEnv", func(t *testing.T) {
		env := map[string]string{
			EnvClientID:     " id ",
			EnvClientSecret: "secret",
			EnvRefreshToken: "refresh",
		}
		creds := CredentialsFromEnv(func(k string) string { return env[k] })

		if creds.ClientID != "id" {
			t.Errorf("expected trimmed client id, got %q", creds.ClientID)
		}
		if !creds.HasClient() {
			t.Error("expected HasClient to be true")
		}
		if creds.UserID != "" {
			t.Errorf("expected empty user id, got %q", creds.UserID)
		}
	})

	t.Run("HasClient requires both values", func(t *testing.T) {
		if (Credentials{ClientID: "id"}).HasClient() {
			t.Error("expected HasClient to be false without secret")
		}
	})

	t.Run("LoadDotEnv", func(t *testing.T) {
		tmpDir := t.TempDir()
		envPath := filepath.Join(tmpDir, ".env")
		if err := os.WriteFile(envPath, []byte("SPOTIFY_MCPB_TEST_VALUE=from_file\n"), 0644); err != nil {
			t.Fatalf("failed to write env file: %v", err)
		}
		t.Setenv("SPOTIFY_MCPB_TEST_VALUE", "")
		os.Unsetenv("SPOTIFY_MCPB_TEST_VALUE")

		if err := LoadDotEnv(envPath, filepath.Join(tmpDir, "missing.env")); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got := os.Getenv("SPOTIFY_MCPB_TEST_VALUE"); got != "from_file" {
			t.Errorf("expected value from .env, got %q", got)
		}
	})
}
