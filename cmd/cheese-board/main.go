package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/park285/cheese-board/internal/app"
	"github.com/park285/cheese-board/internal/config"
	"github.com/park285/cheese-board/internal/obslog"
)

func main() {
	if err := obslog.InitFromEnv(); err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	logger := obslog.L()
	defer func() { _ = logger.Sync() }()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	initCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	deps, err := app.Build(initCtx, cfg, logger)
	if err != nil {
		cancel()
		logger.Fatal("init error", zap.Error(err))
	}
	if n, err := deps.ResumeStored(initCtx, logger); err != nil {
		logger.Warn("resume stored matches failed", zap.Error(err))
	} else if n > 0 {
		logger.Info("resumed stored matches", zap.Int("count", n))
	}
	cancel()

	loopDone := make(chan error, 1)
	go func() { loopDone <- deps.Manager.Run(ctx) }()

	srvErr := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", cfg.HTTPAddr))
		srvErr <- deps.Server.ListenAndServe(cfg.HTTPAddr)
	}()

	select {
	case <-ctx.Done():
	case err := <-srvErr:
		if err != nil {
			logger.Error("http server stopped", zap.Error(err))
		}
		stop()
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	if err := deps.Server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Warn("http shutdown", zap.Error(err))
	}
	<-loopDone
	deps.Manager.Shutdown(shutdownCtx)
	if err := deps.Close(); err != nil {
		logger.Warn("close dependencies", zap.Error(err))
	}
	logger.Info("stopped")
}
