package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/salesops/ui-api/internal/bootstrap"
)

func main() {
	ctx := context.Background()
	logger := bootstrap.InitLogger()
	if err := run(ctx, logger); err != nil {
		logger.ErrorContext(ctx, "fatal error", "error", err)
		os.Exit(1) //nolint:forbidigo // Main entrypoint should exit with non-zero status on fatal errors.
	}
}

func run(ctx context.Context, logger *slog.Logger) error {
	cfg, err := bootstrap.LoadConfig()
	if err != nil {
		return err
	}

	logger.InfoContext(ctx, "starting salesops gateway",
		"addr", cfg.HTTP.Addr,
		"auth_mode", cfg.Auth.Mode,
		"state_mode", cfg.State.Mode,
		"dev", cfg.IsDev,
	)

	storage, err := bootstrap.BuildStateStorage(cfg.State, logger)
	if err != nil {
		return err
	}
	if storage.Close != nil {
		defer func() {
			if cerr := storage.Close(); cerr != nil {
				logger.ErrorContext(ctx, "close state storage failed", "error", cerr)
			}
		}()
	}

	services, err := bootstrap.NewServices(ctx, &bootstrap.ServiceDeps{
		Config:  &cfg,
		Storage: storage.Storage,
		Logger:  logger,
	})
	if err != nil {
		return err
	}

	server := bootstrap.StartHTTPServer(&bootstrap.HTTPServerConfig{
		Config:   &cfg,
		Services: services,
		Logger:   logger,
	})

	// Block until interrupted, then drain in-flight requests.
	signalCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-signalCtx.Done()

	return bootstrap.ShutdownHTTPServer(context.Background(), server, logger)
}
