package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"gophistory/internal/app/server/api"
	"gophistory/internal/app/server/config"
	"gophistory/internal/app/server/metrics"
	"gophistory/internal/domain/sync"
	"gophistory/internal/infrastructure/storage"
	"gophistory/internal/utils/logger"
	"gophistory/internal/version"

	"golang.org/x/exp/slog"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server stopped", slog.Any("error", err))
		os.Exit(1)
	}
}

func run() error {
	conf, err := config.Load()
	if err != nil {
		return err
	}

	log := logger.NewWriter(conf.Env, os.Stdout, conf.Logger.LogLevel)
	log.Info("starting relay",
		slog.String("env", conf.Env),
		slog.String("address", conf.Server.RunAddress),
		slog.String("protocol", version.Protocol))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repos, err := storage.New(ctx, conf.DB.DatabaseURI, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := repos.Close(); err != nil {
			log.Error("close storage", slog.Any("error", err))
		}
	}()

	opts := api.Options{
		Repositories: repos,
		Sync: sync.ServiceConfig{
			PageSize:     conf.Sync.PageSize,
			MaxBatchSize: conf.Sync.MaxBatchSize,
		},
		SessionTTL:       conf.Auth.SessionTTL,
		OpenRegistration: conf.Auth.OpenRegistration,
		StrictPasswords:  conf.Auth.StrictPasswords,
	}
	if conf.Metrics.Enabled {
		opts.Metrics = metrics.New()
	}

	srv := &http.Server{
		Addr:    conf.Server.RunAddress,
		Handler: api.New(opts, log),
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}

	return <-errCh
}
