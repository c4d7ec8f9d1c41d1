package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/fabioc-aloha/spotify-mcpb/internal/shared"
	tu "github.com/fabioc-aloha/spotify-mcpb/internal/testing"
)

func envOf(vars map[string]string) func(string) string {
	return func(k string) string { return vars[k] }
}

func freePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to reserve a port: %v", err)
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port
}

func TestRunner(t *testing.T) {
	t.Run("NewRunner", func(t *testing.T) {
		t.Run("with all dependencies provided", func(t *testing.T) {
			config := shared.DefaultConfig()
			logger := shared.NewLogger(io.Discard)
			output := &bytes.Buffer{}
			httpClient := &http.Client{}

			runner := NewRunner(RunnerOpts{
				Config:     config,
				Logger:     logger,
				Output:     output,
				HTTPClient: httpClient,
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
		})

		t.Run("with zero options uses defaults", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{})

			if runner.logger == nil {
				t.Error("expected default logger to be set")
			}
			if runner.output != os.Stdout || runner.input != os.Stdin {
				t.Error("expected stdio defaults")
			}
			if runner.httpClient != http.DefaultClient {
				t.Error("expected default http client")
			}
			if runner.authTimeout != defaultAuthTimeout {
				t.Errorf("expected %s auth timeout, got %s", defaultAuthTimeout, runner.authTimeout)
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

			expected := `{"key":"value"}` + "\n"
			if output.String() != expected {
				t.Errorf("expected %q, got %q", expected, output.String())
			}
		})

		t.Run("handles marshal error with non-serializable data", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &bytes.Buffer{}})

			err := runner.writeJSON(make(chan int), false)
			if err == nil || !strings.Contains(err.Error(), "failed to marshal JSON") {
				t.Errorf("expected marshal error, got %v", err)
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &tu.FWriter{}})

			err := runner.writeJSON(map[string]string{"key": "value"}, false)
			if err == nil || !strings.Contains(err.Error(), "failed to write output") {
				t.Errorf("expected write error, got %v", err)
			}
		})
	})

	t.Run("writePlain", func(t *testing.T) {
		t.Run("writes plain text successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writePlain("hello %s", "world"); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if output.String() != "hello world" {
				t.Errorf("expected 'hello world', got %q", output.String())
			}
		})

		t.Run("writePlainln surrounds with newlines", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writePlainln("done"); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if output.String() != "\ndone\n" {
				t.Errorf("got %q", output.String())
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &tu.FWriter{}})

			err := runner.writePlain("test")
			if err == nil || !strings.Contains(err.Error(), "failed to write output") {
				t.Errorf("expected write error, got %v", err)
			}
		})
	})

	t.Run("register", func(t *testing.T) {
		commands := NewRunner(RunnerOpts{}).register()

		var names []string
		for _, cmd := range commands {
			names = append(names, cmd.Name)
		}
		if strings.Join(names, ",") != "serve,auth,config" {
			t.Errorf("unexpected commands %v", names)
		}
	})
}

func TestLoadConfig(t *testing.T) {
	t.Run("missing file uses defaults", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{Logger: shared.NewLogger(io.Discard), Getenv: envOf(nil)})

		config, err := runner.loadConfig(filepath.Join(t.TempDir(), "missing.toml"))
		if err != nil {
			t.Fatalf("unexpected error %v", err)
		}
		if config.Cache.MaxSize != 1000 || config.Spotify.Market != "US" {
			t.Errorf("expected defaults, got %+v", config)
		}
	})

	t.Run("file values and LOG_LEVEL override", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.toml")
		body := "[spotify]\nmarket = \"DE\"\n\n[log]\nlevel = \"warn\"\n"
		if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}

		logger := shared.NewLogger(io.Discard)
		runner := NewRunner(RunnerOpts{Logger: logger, Getenv: envOf(map[string]string{"LOG_LEVEL": "debug"})})

		config, err := runner.loadConfig(path)
		if err != nil {
			t.Fatalf("unexpected error %v", err)
		}
		if config.Spotify.Market != "DE" {
			t.Errorf("market = %s", config.Spotify.Market)
		}
		if config.Fetch.Concurrency != 4 {
			t.Errorf("expected unset values to keep defaults, got %d", config.Fetch.Concurrency)
		}
		if logger.GetLevel() != log.DebugLevel {
			t.Errorf("level = %s, want debug", logger.GetLevel())
		}
	})

	t.Run("invalid file is an error", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.toml")
		if err := os.WriteFile(path, []byte("[fetch]\nconcurrency = 0\n"), 0o644); err != nil {
			t.Fatal(err)
		}

		runner := NewRunner(RunnerOpts{Logger: shared.NewLogger(io.Discard), Getenv: envOf(nil)})
		if _, err := runner.loadConfig(path); !errors.Is(err, shared.ErrInvalidConfig) {
			t.Errorf("expected invalid config error, got %v", err)
		}
	})
}

func TestConfigCommands(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	output := &bytes.Buffer{}
	runner := NewRunner(RunnerOpts{Logger: shared.NewLogger(io.Discard), Output: output, Getenv: envOf(nil)})

	if err := newApp(runner).Run(context.Background(), []string{"spotify-mcpb", "config", "init", "--config", path}); err != nil {
		t.Fatalf("config init failed: %v", err)
	}
	tu.AssertFileExists(t, path)
	if !strings.Contains(tu.MustReadFile(t, path), "max_size = 1000") {
		t.Error("expected the default settings in the written file")
	}
	if !strings.Contains(output.String(), "Config written to") {
		t.Errorf("unexpected output %q", output.String())
	}

	err := newApp(runner).Run(context.Background(), []string{"spotify-mcpb", "config", "init", "--config", path})
	if err == nil || !strings.Contains(err.Error(), "already exists") {
		t.Errorf("expected existing file error, got %v", err)
	}

	output.Reset()
	if err := newApp(runner).Run(context.Background(), []string{"spotify-mcpb", "config", "show", "--config", path}); err != nil {
		t.Fatalf("config show failed: %v", err)
	}
	if !strings.Contains(output.String(), `market = "US"`) {
		t.Errorf("expected TOML output, got %q", output.String())
	}
}

func TestAuthURL(t *testing.T) {
	t.Run("prints the authorize URL", func(t *testing.T) {
		output := &bytes.Buffer{}
		runner := NewRunner(RunnerOpts{
			Config: shared.DefaultConfig(),
			Logger: shared.NewLogger(io.Discard),
			Output: output,
			Getenv: envOf(map[string]string{shared.EnvClientID: "cid", shared.EnvClientSecret: "csecret"}),
		})

		if err := newApp(runner).Run(context.Background(), []string{"spotify-mcpb", "auth", "url"}); err != nil {
			t.Fatalf("auth url failed: %v", err)
		}
		for _, part := range []string{
			"https://accounts.spotify.com/authorize",
			"client_id=cid",
			"redirect_uri=http%3A%2F%2F127.0.0.1%3A8888%2Fcallback",
			"user-library-modify",
		} {
			if !strings.Contains(output.String(), part) {
				t.Errorf("output missing %s:\n%s", part, output.String())
			}
		}
	})

	t.Run("flags override the environment", func(t *testing.T) {
		output := &bytes.Buffer{}
		runner := NewRunner(RunnerOpts{
			Config: shared.DefaultConfig(),
			Logger: shared.NewLogger(io.Discard),
			Output: output,
			Getenv: envOf(nil),
		})

		args := []string{"spotify-mcpb", "auth", "url", "--client-id", "flag-id", "--client-secret", "s"}
		if err := newApp(runner).Run(context.Background(), args); err != nil {
			t.Fatalf("auth url failed: %v", err)
		}
		if !strings.Contains(output.String(), "client_id=flag-id") {
			t.Errorf("expected flag client id in %s", output.String())
		}
	})

	t.Run("missing credentials", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{
			Config: shared.DefaultConfig(),
			Logger: shared.NewLogger(io.Discard),
			Output: &bytes.Buffer{},
			Getenv: envOf(map[string]string{shared.EnvClientID: "cid"}),
		})

		err := newApp(runner).Run(context.Background(), []string{"spotify-mcpb", "auth", "url"})
		if !errors.Is(err, shared.ErrMissingCredentials) {
			t.Errorf("expected missing credentials error, got %v", err)
		}
	})
}

// callbackBrowser stands in for the system browser: it follows the authorize URL's redirect_uri with
// the state and a fixed code, as Spotify would after the user approves.
func callbackBrowser(t *testing.T, code string) func(string) error {
	return func(authURL string) error {
		u, err := url.Parse(authURL)
		if err != nil {
			return err
		}
		q := u.Query()
		callback := fmt.Sprintf("%s?state=%s&code=%s", q.Get("redirect_uri"), url.QueryEscape(q.Get("state")), code)
		resp, err := http.Get(callback)
		if err != nil {
			t.Errorf("callback request failed: %v", err)
			return nil
		}
		resp.Body.Close()
		return nil
	}
}

func TestAuth(t *testing.T) {
	newAuthRunner := func(t *testing.T, output io.Writer, browser func(string) error) (*Runner, *tu.FakeSpotify) {
		fake := tu.NewFakeSpotify(t)
		fake.HandleToken(func(w http.ResponseWriter, r *http.Request) {
			if err := r.ParseForm(); err != nil || r.PostForm.Get("code") != "good-code" {
				tu.WriteJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_grant"})
				return
			}
			tu.WriteJSON(w, http.StatusOK, map[string]any{
				"access_token":  "a1",
				"refresh_token": "r-issued",
				"token_type":    "Bearer",
				"expires_in":    3600,
			})
		})

		port := freePort(t)
		config := shared.DefaultConfig()
		config.Server.Port = port
		config.Spotify.RedirectURI = fmt.Sprintf("http://127.0.0.1:%d/callback", port)

		return NewRunner(RunnerOpts{
			Config:      config,
			Logger:      shared.NewLogger(io.Discard),
			Output:      output,
			Getenv:      envOf(map[string]string{shared.EnvClientID: "cid", shared.EnvClientSecret: "csecret"}),
			OpenBrowser: browser,
			TokenURL:    fake.TokenURL(),
		}), fake
	}

	t.Run("prints the refresh token", func(t *testing.T) {
		output := &bytes.Buffer{}
		runner, fake := newAuthRunner(t, output, callbackBrowser(t, "good-code"))

		if err := newApp(runner).Run(context.Background(), []string{"spotify-mcpb", "auth"}); err != nil {
			t.Fatalf("auth failed: %v", err)
		}
		if !strings.Contains(output.String(), "SPOTIFY_REFRESH_TOKEN=r-issued") {
			t.Errorf("expected refresh token in output:\n%s", output.String())
		}
		if fake.TokenCalls() != 1 {
			t.Errorf("expected one exchange, got %d", fake.TokenCalls())
		}
	})

	t.Run("json output", func(t *testing.T) {
		output := &bytes.Buffer{}
		runner, _ := newAuthRunner(t, output, callbackBrowser(t, "good-code"))

		if err := newApp(runner).Run(context.Background(), []string{"spotify-mcpb", "auth", "--json"}); err != nil {
			t.Fatalf("auth failed: %v", err)
		}
		text := output.String()
		var got authOutput
		if err := json.Unmarshal([]byte(text[strings.Index(text, "{"):]), &got); err != nil {
			t.Fatalf("expected JSON output, got %q: %v", text, err)
		}
		if got.RefreshToken != "r-issued" || got.AccessToken != "a1" {
			t.Errorf("unexpected token output %+v", got)
		}
	})

	t.Run("rejected code", func(t *testing.T) {
		output := &bytes.Buffer{}
		runner, _ := newAuthRunner(t, output, callbackBrowser(t, "bad-code"))

		err := newApp(runner).Run(context.Background(), []string{"spotify-mcpb", "auth"})
		if err == nil || !strings.Contains(err.Error(), "token exchange failed") {
			t.Errorf("expected exchange failure, got %v", err)
		}
		if !strings.Contains(output.String(), "Authorization failed") {
			t.Errorf("expected failure notice in output %q", output.String())
		}
	})

	t.Run("browser failure prints the URL", func(t *testing.T) {
		output := &bytes.Buffer{}
		runner, _ := newAuthRunner(t, output, func(string) error { return errors.New("no browser") })
		runner.authTimeout = 50 * time.Millisecond

		err := newApp(runner).Run(context.Background(), []string{"spotify-mcpb", "auth"})
		if !errors.Is(err, shared.ErrTimeout) {
			t.Errorf("expected timeout, got %v", err)
		}
		if !strings.Contains(output.String(), "https://accounts.spotify.com/authorize") {
			t.Errorf("expected the URL for manual copy in %q", output.String())
		}
	})
}

func TestServe(t *testing.T) {
	fake := tu.NewFakeSpotify(t)
	fake.HandleJSON(http.MethodGet, "/me", http.StatusOK, map[string]any{"id": "user-1"})
	fake.Handle(http.MethodPut, "/me/player/pause", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	input := strings.NewReader(
		`{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2024-11-05","capabilities":{},"clientInfo":{"name":"test","version":"1"}}}` + "\n" +
			`{"jsonrpc":"2.0","id":2,"method":"tools/call","params":{"name":"spotify_pause","arguments":{}}}` + "\n",
	)
	output := &bytes.Buffer{}
	runner := NewRunner(RunnerOpts{
		Config: shared.DefaultConfig(),
		Logger: shared.NewLogger(io.Discard),
		Input:  input,
		Output: output,
		Getenv: envOf(map[string]string{
			shared.EnvClientID:     "cid",
			shared.EnvClientSecret: "csecret",
			shared.EnvRefreshToken: "refresh",
		}),
		APIBaseURL: fake.BaseURL(),
		TokenURL:   fake.TokenURL(),
	})

	if err := newApp(runner).Run(context.Background(), []string{"spotify-mcpb"}); err != nil {
		t.Fatalf("serve failed: %v", err)
	}
	if fake.Hits(http.MethodPut, "/me/player/pause") != 1 {
		t.Errorf("expected the pause tool to reach the API")
	}
	if !strings.Contains(output.String(), "paused") {
		t.Errorf("expected the tool result on stdout, got %s", output.String())
	}
}
