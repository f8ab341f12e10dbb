package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/hummingbird/service/internal/config"
	"github.com/hummingbird/service/internal/db"
	"github.com/hummingbird/service/internal/media"
	"github.com/hummingbird/service/internal/metrics"
	"github.com/hummingbird/service/internal/upload"
)

const shutdownTimeout = 30 * time.Second

type serveOptions struct {
	Migrate bool
}

func newServeOptions() *serveOptions {
	return &serveOptions{}
}

func (o *serveOptions) AddFlags(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&o.Migrate, "migrate", true, "Apply database migrations before serving (postgres backend only)")
}

func newServeCommand(o *serveOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.Run(cmd.Context())
		},
	}
	o.AddFlags(cmd)
	return cmd
}

// Run wires dependencies and serves until SIGINT or SIGTERM.
func (o *serveOptions) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log, err := newLogger(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}

	var cleanup closers
	defer cleanup.close(log)

	if o.Migrate && cfg.MetadataBackend == config.MetadataPostgres {
		if err := db.Migrate(cfg.DatabaseURL, log); err != nil {
			return fmt.Errorf("database migration failed: %w", err)
		}
	}

	repo, err := openRepository(ctx, cfg, log, &cleanup)
	if err != nil {
		return fmt.Errorf("metadata store init failed: %w", err)
	}
	store, err := openStorage(ctx, cfg, log, &cleanup)
	if err != nil {
		return fmt.Errorf("object storage init failed: %w", err)
	}

	observer, err := metrics.NewObserver("hummingbird", prometheus.DefaultRegisterer)
	if err != nil {
		return fmt.Errorf("metrics init failed: %w", err)
	}

	// Wire dependencies: repository → service → handler
	pipeline, err := upload.New(store, repo, cfg.Limits(),
		upload.WithLogger(log.WithField("component", "upload")),
		upload.WithObserver(observer),
		upload.WithInvalidTypeStatus(cfg.InvalidFileTypeStatus),
	)
	if err != nil {
		return err
	}
	mediaSvc := media.NewService(repo, store)

	router := newRouter(routerDeps{
		log:     log,
		uploads: upload.NewHandler(pipeline, log),
		media:   media.NewHandler(mediaSvc, log),
		checks: map[string]pinger{
			"metadata": repo,
			"storage":  store,
		},
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       5 * time.Minute,
		WriteTimeout:      5 * time.Minute,
		IdleTimeout:       60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.WithField("env", cfg.AppEnv).Infof("server listening on :%s", cfg.Port)
		log.Infof("swagger UI at http://localhost:%s/swagger/", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down gracefully...")

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("forced shutdown: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info("server stopped")
	return nil
}
