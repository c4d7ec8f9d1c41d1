package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/fabioc-aloha/spotify-mcpb/internal/shared"
	"github.com/urfave/cli/v3"
)

const defaultAuthTimeout = 2 * time.Minute

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config      *shared.Config
	logger      *log.Logger
	input       io.Reader
	output      io.Writer
	httpClient  *http.Client
	getenv      func(string) string
	openBrowser func(string) error
	palette     *Palette

	apiBaseURL  string
	tokenURL    string
	authTimeout time.Duration
}

// RunnerOpts contains configuration options for creating a Runner.
//
// Config, when set, is used instead of reading the --config file. APIBaseURL and TokenURL default to
// the production Spotify endpoints.
type RunnerOpts struct {
	Config      *shared.Config
	Logger      *log.Logger
	Input       io.Reader
	Output      io.Writer
	HTTPClient  *http.Client
	Getenv      func(string) string
	OpenBrowser func(string) error
	APIBaseURL  string
	TokenURL    string
	AuthTimeout time.Duration
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Input == nil {
		opts.Input = os.Stdin
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	if opts.Getenv == nil {
		opts.Getenv = os.Getenv
	}
	if opts.OpenBrowser == nil {
		opts.OpenBrowser = shared.OpenBrowser
	}
	if opts.AuthTimeout <= 0 {
		opts.AuthTimeout = defaultAuthTimeout
	}

	return &Runner{
		config:      opts.Config,
		logger:      opts.Logger,
		input:       opts.Input,
		output:      opts.Output,
		httpClient:  opts.HTTPClient,
		getenv:      opts.Getenv,
		openBrowser: opts.OpenBrowser,
		palette:     defaultPalette,
		apiBaseURL:  opts.APIBaseURL,
		tokenURL:    opts.TokenURL,
		authTimeout: opts.AuthTimeout,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){serveCommand, authCommand, configCommand} {
		commands = append(commands, fn(r))
	}

	return commands
}

// loadConfig returns the injected config, or the file at path, or the defaults when path does not
// exist. It also applies the [log] section and the LOG_LEVEL override to the runner's logger.
func (r *Runner) loadConfig(path string) (*shared.Config, error) {
	config := r.config
	if config == nil {
		config = shared.DefaultConfig()
		if _, err := os.Stat(path); err == nil {
			loaded, err := shared.LoadConfig(path)
			if err != nil {
				return nil, err
			}
			config = loaded
			r.logger.Debug("config_loaded", "path", path)
		}
	}

	logConfig := config.Log
	if level := strings.TrimSpace(r.getenv(shared.EnvLogLevel)); level != "" {
		logConfig.Level = level
	}
	shared.ConfigureLogger(r.logger, logConfig)
	return config, nil
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
