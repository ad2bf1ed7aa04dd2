package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/DoyleJ11/mahjong-settlement/internal/config"
	"github.com/DoyleJ11/mahjong-settlement/internal/httpapi"
	"github.com/DoyleJ11/mahjong-settlement/internal/hub"
	"github.com/DoyleJ11/mahjong-settlement/internal/logging"
	"github.com/DoyleJ11/mahjong-settlement/internal/session"
	"github.com/DoyleJ11/mahjong-settlement/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger, err := logging.New(cfg.LogLevel, cfg.AppEnv)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var repo session.Repository
	if cfg.PostgresDSN == "" {
		logger.Warn("POSTGRES_DSN not set, sessions are kept in memory")
		repo = store.NewMemoryStore()
	} else {
		pg, err := store.NewPostgresStore(cfg.PostgresDSN, logger)
		if err != nil {
			return err
		}
		defer pg.Close()
		repo = pg
	}

	h := hub.NewHub(ctx, repo, logger)

	// Build the router *with* the hub injected
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: httpapi.SetupRoutes(h, logger),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("listening", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		h.Inbox() <- hub.ShutdownHub{}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
