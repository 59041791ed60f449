// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/jeranaias/yukti/internal/config"
	"github.com/jeranaias/yukti/internal/pipeline"
	"github.com/jeranaias/yukti/internal/server"
	"github.com/jeranaias/yukti/internal/session"
	"github.com/jeranaias/yukti/internal/storage"
)

const (
	sweepInterval   = time.Minute
	shutdownTimeout = 10 * time.Second
)

func newServeCommand(a *app) *cobra.Command {
	var (
		addr     string
		noReload bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the chat API over HTTP and WebSocket",
		Long: `Serve the chat API over HTTP and WebSocket.

Each client creates a session with POST /api/sessions and then talks to it.
Sessions idle longer than server.session_idle_timeout minutes are dropped.
When a config file is in use it is watched, and new sessions pick up edits.`,
		Example: `  yukti serve
  yukti serve --addr 0.0.0.0:8787`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr != "" {
				a.cfg.Server.Addr = addr
			}
			return runServe(cmd.Context(), a, !noReload)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides config)")
	cmd.Flags().BoolVar(&noReload, "no-reload", false, "do not watch the config file for changes")
	return cmd
}

func runServe(ctx context.Context, a *app, reload bool) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	store := openStore(a.cfg)
	if store != nil {
		defer store.Close()
	}

	registry := session.NewRegistry(sessionFactory(a.cfg, store), a.cfg.SessionIdleTimeout())
	go registry.Run(ctx, sweepInterval)

	if reload && a.configPath != "" {
		go watchConfig(ctx, a, registry, store)
	}

	srv := server.New(a.cfg, registry, store)
	go srv.PruneLimiter(ctx, 5*time.Minute)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// swapFactory returns the reload callback for watchConfig. Command-line
// overrides are re-applied to every reloaded config. Existing sessions keep
// the settings they were created with.
func swapFactory(a *app, registry *session.Registry, store *storage.Store) func(*config.Config) {
	return func(cfg *config.Config) {
		if a.opts.model != "" {
			cfg.Ollama.Model = a.opts.model
		}
		if a.opts.url != "" {
			cfg.Ollama.URL = a.opts.url
		}
		registry.SetFactory(sessionFactory(cfg, store))
		log.Info().Str("model", cfg.Ollama.Model).Msg("SESSION_FACTORY_SWAPPED")
	}
}

// sessionFactory builds orchestrators for new sessions from cfg.
func sessionFactory(cfg *config.Config, store *storage.Store) session.Factory {
	return func(id string) *pipeline.Orchestrator {
		return newOrchestrator(cfg, store, id)
	}
}

// watchConfig swaps the session factory whenever the config file changes.
func watchConfig(ctx context.Context, a *app, registry *session.Registry, store *storage.Store) {
	err := config.Watch(ctx, a.configPath, swapFactory(a, registry, store))
	if err != nil {
		log.Warn().Err(err).Str("path", a.configPath).Msg("CONFIG_WATCH_FAILED")
	}
}
