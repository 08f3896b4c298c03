package di

import (
	"context"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"orgmap/infrastructure/config"
	"orgmap/pkg/observability"
)

// Serve builds the container from loader, loads the graph and serves HTTP
// until ctx is cancelled. Config file changes are applied while running.
func Serve(ctx context.Context, loader *config.Loader, cfg *config.Config) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	container, err := InitializeContainer(ctx, cfg)
	if err != nil {
		return err
	}
	defer container.Close()
	logger := container.Logger

	if endpoint := cfg.Observability.TracingEndpoint; endpoint != "" {
		tp, err := observability.InitTracing(ctx, cfg.Observability.ServiceName, string(cfg.Environment), endpoint, cfg.Observability.SampleRate)
		if err != nil {
			logger.Warn("Tracing disabled", zap.Error(err))
		} else {
			defer func() {
				shutdownCtx, done := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
				defer done()
				if err := tp.Shutdown(shutdownCtx); err != nil {
					logger.Warn("Tracer shutdown failed", zap.Error(err))
				}
			}()
		}
	}

	if loader != nil {
		watcher, err := config.NewWatcher(loader, cfg, logger.Named("config"))
		if err != nil {
			logger.Warn("Configuration hot reloading disabled", zap.Error(err))
		} else {
			defer watcher.Stop()
			watcher.OnChange(func(old, updated *config.Config) {
				container.ApplyConfig(updated)
			})
		}
	}

	container.Start(ctx)

	srv := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      container.Router.Setup(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("Starting server",
			zap.String("address", srv.Addr),
			zap.String("store", container.Store.Name()),
			zap.Strings("config", cfg.LoadedFrom),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			logger.Error("Server failed", zap.Error(err))
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("Shutting down server...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", zap.Error(err))
		return err
	}
	logger.Info("Server stopped")
	return nil
}
