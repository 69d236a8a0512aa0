package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/kev129/deleton/common/database"
	"github.com/kev129/deleton/common/logger"
	"github.com/kev129/deleton/internal/config"
	"github.com/kev129/deleton/internal/repository"
	"github.com/kev129/deleton/internal/service"
	"github.com/kev129/deleton/internal/transformer"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	lg, err := logger.NewLogger(cfg.Log.Level, cfg.Log.Format, "deleton-transform")
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer lg.Sync()

	db, err := database.NewPostgresDB(&cfg.Database)
	if err != nil {
		lg.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer database.Close(db)

	staging := repository.NewStagingRepository(db, cfg.Schema.Staging, lg)
	production := repository.NewProductionRepository(db, cfg.Schema.Production, cfg.Schema.ProductionTable, lg)
	transformService := service.NewTransformService(staging, production, transformer.NewFactTransformer(lg), cfg.Transform.Interval, lg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = transformService.Run(ctx)
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigChan
	lg.Info("Received signal, shutting down", zap.String("signal", sig.String()))

	cancel()
	<-done
	lg.Info("Service stopped")
}
