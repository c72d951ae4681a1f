package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/DoyleJ11/fate-bridge/internal/bridge"
	"github.com/DoyleJ11/fate-bridge/internal/capture"
	"github.com/DoyleJ11/fate-bridge/internal/config"
	"github.com/DoyleJ11/fate-bridge/internal/httpapi"
	"github.com/DoyleJ11/fate-bridge/internal/mcpserver"
	"github.com/DoyleJ11/fate-bridge/internal/state"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger, err := buildLogger(cfg.Debug)
	if err != nil {
		log.Fatalf("build logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if cfg.AuthToken == "" {
		logger.Warn("AUTH_TOKEN not set, admitting any peer")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store := state.NewStore(cfg.DebounceWindow, logger.Named("state"))
	media := capture.New(cfg.CaptureDir, logger.Named("capture"))
	br := bridge.New(ctx, store, media, cfg.HeartbeatInterval, logger.Named("bridge"))
	mcpSrv := mcpserver.New(store, br, media, cfg.AssetsDir, logger.Named("mcp"))

	store.Subscribe(mcpSrv.NotifyChanged)
	store.Start()

	srv := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: httpapi.SetupRoutes(br, cfg.AuthToken, logger.Named("ws")),
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("listening for game client", zap.String("addr", cfg.ListenAddr))
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		return mcpSrv.Run(gctx)
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		br.Shutdown()
		media.Close()
		store.Close()
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Fatal("server exited", zap.Error(err))
	}
	logger.Info("shutdown complete")
}

func buildLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
