package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"channelposter/internal/app"
	"channelposter/internal/config"
	"channelposter/internal/poster"
)

// exitError carries the process exit status out of a command.
type exitError struct {
	code int
	err  error
	// reported is set when the command already told the operator.
	reported bool
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func exitWith(kind poster.Kind, err error) error {
	return &exitError{code: kind.ExitCode(), err: err}
}

// configFailure tags err as a configuration failure (exit 2).
func configFailure(err error) error {
	var ce *app.ConfigError
	if errors.As(err, &ce) {
		return exitWith(poster.ConfigFailed, err)
	}
	return exitWith(poster.ConfigFailed, &app.ConfigError{Err: err})
}

type rootFlags struct {
	configPath string
	envFiles   []string
	logLevel   string
	postsFile  string
	postType   string
	postNumber string
	schedule   string
}

func newRootCmd() *cobra.Command {
	f := &rootFlags{}
	publish := newPublishCmd(f)

	root := &cobra.Command{
		Use:   "poster",
		Short: "Publish a preset post to a Telegram channel",
		Long: `poster picks one post from a preset catalog (by number, by type or at random),
decorates it and sends it to a Telegram channel, then appends the publication
to a log.

Settings come from an optional config file (--config), the environment
(BOT_TOKEN, CHANNEL_ID, POST_TYPE, POST_NUMBER, ...; a .env file is loaded if
present) and flags, in increasing order of precedence.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		// Without a subcommand, publish once.
		RunE: publish.RunE,
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&f.configPath, "config", "c", "", "config file (.json, .yaml or .toml)")
	pf.StringSliceVar(&f.envFiles, "env-file", nil, "dotenv file(s) to load (default .env if present)")
	pf.StringVar(&f.logLevel, "log-level", "", "log level: trace, debug, info, warn, error")
	pf.StringVar(&f.postsFile, "posts", "", "catalog file (overrides POSTS_FILE)")
	pf.StringVar(&f.postType, "type", "", "post type filter (overrides POST_TYPE)")
	pf.StringVar(&f.postNumber, "number", "", "1-based post number (overrides POST_NUMBER)")

	root.AddCommand(
		publish,
		newRunCmd(f),
		newCatalogCmd(f),
		newPreviewCmd(f),
		newHistoryCmd(f),
	)
	return root
}

// loadConfig resolves the configuration for a command.
func (f *rootFlags) loadConfig() (config.Config, error) {
	if err := config.LoadDotEnv(f.envFiles...); err != nil {
		return config.Config{}, fmt.Errorf("load env file: %w", err)
	}
	cfg, err := config.Load(f.configPath, nil)
	if err != nil {
		return config.Config{}, err
	}
	if f.logLevel != "" {
		cfg.Logging.Level = f.logLevel
	}
	if f.postsFile != "" {
		cfg.Posts.File = f.postsFile
	}
	if f.postType != "" {
		cfg.Posts.Type = f.postType
	}
	if f.postNumber != "" {
		cfg.Posts.Number = f.postNumber
	}
	if f.schedule != "" {
		cfg.Schedule.Spec = f.schedule
	}
	return cfg, nil
}

// newApp loads config and builds the app; failures are configuration errors.
func (f *rootFlags) newApp(mode app.Mode) (*app.App, error) {
	cfg, err := f.loadConfig()
	if err != nil {
		return nil, configFailure(err)
	}
	a, err := app.New(cfg, mode, app.Options{})
	if err != nil {
		return nil, configFailure(err)
	}
	return a, nil
}
