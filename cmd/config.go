package main

import (
	"context"
	"fmt"

	"github.com/BurntSushi/toml"
	"github.com/fabioc-aloha/spotify-mcpb/internal/shared"
	"github.com/urfave/cli/v3"
)

// ConfigInit writes the default config.toml. An existing file is never overwritten.
func (r *Runner) ConfigInit(ctx context.Context, cmd *cli.Command) error {
	path := cmd.String("config")
	if err := shared.CreateConfigFile(path); err != nil {
		return err
	}
	r.logger.Info("config_created", "path", path)
	r.writePlain("%s\n", r.palette.OK("Config written to "+path))
	r.writePlain("%s\n", r.palette.Help(fmt.Sprintf(
		"Credentials stay in the environment: %s, %s, %s",
		shared.EnvClientID, shared.EnvClientSecret, shared.EnvRefreshToken,
	)))
	return nil
}

// ConfigShow prints the effective configuration as TOML.
func (r *Runner) ConfigShow(ctx context.Context, cmd *cli.Command) error {
	config, err := r.loadConfig(cmd.String("config"))
	if err != nil {
		return err
	}
	if err := toml.NewEncoder(r.output).Encode(config); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
