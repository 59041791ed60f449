// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/subosito/gotenv"

	"github.com/jeranaias/yukti/internal/config"
	"github.com/jeranaias/yukti/internal/logging"
)

// =============================================================================
// GLOBAL OPTIONS
// =============================================================================

// globalOptions holds the persistent flags shared by every command.
type globalOptions struct {
	configPath string
	logLevel   string
	logFile    string
	model      string
	url        string
}

// app is the state prepared by the root command before any subcommand runs.
type app struct {
	opts       globalOptions
	cfg        *config.Config
	configPath string // file the config came from, "" for defaults
	logCloser  io.Closer
}

// defaultLogLevel is used when neither the flag nor the config set a level.
// Interactive commands stay quiet so log lines do not interleave with chat.
func defaultLogLevel(cmd *cobra.Command) string {
	if cmd.Name() == "serve" {
		return "info"
	}
	return "warn"
}

// =============================================================================
// ROOT COMMAND
// =============================================================================

// NewRootCommand builds the yukti command tree.
func NewRootCommand() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "yukti",
		Short: config.ProjectName + " - a local AI assistant backed by Ollama",
		Long: config.ProjectName + ` is a chat assistant that runs entirely on your machine.
It answers questions with a local Ollama model, remembers the last few
exchanges of a conversation and formats replies by question type.

Configuration is read from ~/.yukti/config.toml (or config.json) and may be
overridden with YUKTI_* environment variables or a .env file.`,
		Version:       config.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.prepare(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if a.logCloser != nil {
				return a.logCloser.Close()
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat(cmd, a)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&a.opts.configPath, "config", "c", "", "config file (default ~/.yukti/config.toml)")
	flags.StringVar(&a.opts.logLevel, "log-level", "", "log level: trace, debug, info, warn, error")
	flags.StringVar(&a.opts.logFile, "log-file", "", "also write logs to this file")
	flags.StringVarP(&a.opts.model, "model", "m", "", "Ollama model to use (overrides config)")
	flags.StringVar(&a.opts.url, "url", "", "Ollama base URL (overrides config)")

	root.AddCommand(
		newChatCommand(a),
		newAskCommand(a),
		newStatusCommand(a),
		newServeCommand(a),
		newConfigCommand(a),
		newVersionCommand(),
	)
	return root
}

// Execute runs the CLI and returns the process exit code.
func Execute() int {
	root := NewRootCommand()
	if err := root.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, ErrorStyle.Render("Error: ")+err.Error())
		return 1
	}
	return 0
}

// prepare loads .env, the configuration and flag overrides, then sets up
// logging.
func (a *app) prepare(cmd *cobra.Command) error {
	// A missing .env is normal.
	_ = gotenv.Load()

	cfg, path, err := loadConfig(a.opts.configPath)
	if err != nil {
		return err
	}
	if a.opts.model != "" {
		cfg.Ollama.Model = a.opts.model
	}
	if a.opts.url != "" {
		cfg.Ollama.URL = a.opts.url
	}
	if a.opts.logLevel != "" {
		cfg.Log.Level = a.opts.logLevel
	}
	if a.opts.logFile != "" {
		cfg.Log.File = a.opts.logFile
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid settings: %w", err)
	}

	closer, err := logging.Setup(logging.Options{
		Level:        cfg.Log.Level,
		DefaultLevel: defaultLogLevel(cmd),
		Format:       cfg.Log.Format,
		File:         cfg.Log.File,
		NoColor:      !ColorsEnabled(),
	})
	if err != nil {
		return err
	}

	a.cfg = cfg
	a.configPath = path
	a.logCloser = closer

	log.Debug().
		Str("config", path).
		Str("model", cfg.Ollama.Model).
		Str("url", cfg.Ollama.URL).
		Msg("CONFIG_LOADED")
	return nil
}

// loadConfig reads an explicit path when given, otherwise the default
// locations. It also reports which file was used.
func loadConfig(explicit string) (*config.Config, string, error) {
	if explicit != "" {
		cfg, err := config.LoadFromPath(explicit)
		if err != nil {
			return nil, "", err
		}
		return cfg, explicit, nil
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, "", err
	}
	return cfg, existingConfigPath(), nil
}

// existingConfigPath returns the default config file that exists, if any.
func existingConfigPath() string {
	for _, fn := range []func() (string, error){config.ConfigPathTOML, config.ConfigPathJSON} {
		p, err := fn()
		if err != nil {
			continue
		}
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// =============================================================================
// VERSION
// =============================================================================

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		// Printing the version must work even with a broken config file.
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", config.ProjectName, config.Version)
			fmt.Fprintf(cmd.OutOrStdout(), "Author: %s\n", config.Author)
			return nil
		},
	}
}
