package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/convoke-ai/convoke/internal/analytics"
	"github.com/convoke-ai/convoke/internal/buildinfo"
	"github.com/convoke-ai/convoke/internal/config"
	"github.com/convoke-ai/convoke/internal/gateway"
	"github.com/convoke-ai/convoke/internal/platform/logger"
	platformotel "github.com/convoke-ai/convoke/internal/platform/otel"
	"github.com/convoke-ai/convoke/internal/server"
	"github.com/convoke-ai/convoke/internal/store"
	"github.com/convoke-ai/convoke/internal/store/sqlite"

	// Adapter packages register themselves on import.
	_ "github.com/convoke-ai/convoke/internal/provider/anthropic"
	_ "github.com/convoke-ai/convoke/internal/provider/gemini"
	_ "github.com/convoke-ai/convoke/internal/provider/groq"
	_ "github.com/convoke-ai/convoke/internal/provider/openai"
)

func main() {
	log, err := logger.New(logger.FromEnv())
	if err != nil {
		panic("failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = log.Sync()
	}()

	if err := run(log); err != nil {
		log.Fatal("server exited", zap.Error(err))
	}
}

func run(log *zap.Logger) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go buildinfo.CheckForUpdates(ctx, log)

	if cfg.Telemetry.Enabled {
		shutdown, err := platformotel.InitTracer(cfg.Telemetry.ServiceName, log, os.Stdout)
		if err != nil {
			return err
		}
		defer func() {
			flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdown(flushCtx); err != nil {
				log.Warn("tracer shutdown failed", zap.Error(err))
			}
		}()
	}

	var ingestor analytics.Ingestor
	var repo store.Repository
	if cfg.Store.Enabled {
		repo, err = sqlite.Open(cfg.Store.DSN)
		if err != nil {
			return err
		}
		defer func() {
			_ = repo.Close()
		}()

		ingestor = analytics.NewIngestor(log, repo)
		ingestor.Start(ctx)
		defer ingestor.Stop()
	}

	registry := gateway.NewRegistry(cfg.Providers)
	service := gateway.NewService(log, registry, ingestor)
	prober := gateway.NewProber(log, service)

	srv := server.New(cfg, log, service, prober, registry.Identifiers(), repo)

	httpServer := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: srv.Handler(),
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("gateway listening",
			zap.String("port", cfg.Server.Port),
			zap.Strings("providers", registry.Identifiers()),
			zap.String("version", buildinfo.Version),
		)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}
