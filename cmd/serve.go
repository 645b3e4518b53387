package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/davidbz/kiln/internal/config"
	"github.com/davidbz/kiln/internal/domain"
	"github.com/davidbz/kiln/internal/http"
	"github.com/davidbz/kiln/internal/observability"
)

const shutdownTimeout = 15 * time.Second

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			container := buildContainer()
			return container.Invoke(func(
				server *http.Server,
				orchestrator *domain.CacheOrchestrator,
				cacheCfg *config.CacheConfig,
				hooks *shutdownHooks,
			) error {
				return serve(cmd.Context(), server, orchestrator, cacheCfg, hooks)
			})
		},
	}
}

func serve(
	parent context.Context,
	server *http.Server,
	orchestrator *domain.CacheOrchestrator,
	cacheCfg *config.CacheConfig,
	hooks *shutdownHooks,
) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := observability.FromContext(ctx)
	defer func() { _ = logger.Sync() }()

	go orchestrator.Metrics().RunResetLoop(ctx, cacheCfg.MetricsResetInterval)
	go orchestrator.RunReconcileLoop(ctx, cacheCfg.ReconcileInterval)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	var serveErr error
	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case serveErr = <-errCh:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	var errs []error
	if serveErr != nil {
		errs = append(errs, serveErr)
	}
	if err := server.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, err)
	}
	if err := hooks.run(); err != nil {
		errs = append(errs, fmt.Errorf("failed to release resources: %w", err))
	}
	return errors.Join(errs...)
}
