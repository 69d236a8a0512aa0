package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kev129/deleton/common/logger"
	"github.com/kev129/deleton/internal/config"
	"github.com/kev129/deleton/internal/service"
	"go.uber.org/zap"
)

func main() {
	// 加载配置
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 初始化Logger
	lg, err := logger.NewLogger(cfg.Log.Level, cfg.Log.Format, "deleton-extract")
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer lg.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	extractService, err := service.NewExtractService(ctx, cfg, lg)
	if err != nil {
		lg.Fatal("Failed to create extract service", zap.Error(err))
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- extractService.Run(ctx)
	}()

	// 等待中断信号或抽取循环结束
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	var runErr error
	select {
	case sig := <-sigChan:
		lg.Info("Received signal, shutting down", zap.String("signal", sig.String()))
		cancel()
		runErr = <-errCh
	case runErr = <-errCh:
		cancel()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := extractService.Stop(shutdownCtx); err != nil {
		lg.Error("Error during shutdown", zap.Error(err))
	}

	if runErr != nil {
		lg.Error("Extract stopped abnormally", zap.Error(runErr))
		lg.Sync()
		os.Exit(1)
	}
	lg.Info("Service stopped")
}
