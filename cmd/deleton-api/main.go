package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kev129/deleton/common/database"
	"github.com/kev129/deleton/common/logger"
	rediscommon "github.com/kev129/deleton/common/redis"
	"github.com/kev129/deleton/internal/config"
	httpapi "github.com/kev129/deleton/internal/http"
	"github.com/kev129/deleton/internal/live"
	"github.com/kev129/deleton/internal/notify"
	"github.com/kev129/deleton/internal/repository"
	"github.com/kev129/deleton/internal/service"
	"github.com/kev129/deleton/internal/store"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	lg, err := logger.NewLogger(cfg.Log.Level, cfg.Log.Format, "deleton-api")
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer lg.Sync()

	db, err := database.NewPostgresDB(&cfg.Database)
	if err != nil {
		lg.Fatal("Failed to connect to database", zap.Error(err))
	}

	redisClient := rediscommon.NewRedisClient(&cfg.Redis)

	production := repository.NewProductionRepository(db, cfg.Schema.Production, cfg.Schema.ProductionTable, lg)
	staging := repository.NewStagingRepository(db, cfg.Schema.Staging, lg)
	mailer := notify.NewMailer(cfg.Mail.APIURL, cfg.Mail.APIKey, cfg.Mail.Sender, lg)
	tracker := live.NewTracker(store.NewRedisKV(redisClient), staging, mailer, live.Settings{
		KeyPrefix:   cfg.Live.KeyPrefix,
		TTL:         cfg.Live.TTL,
		AlertTTL:    cfg.Live.AlertTTL,
		MailTimeout: cfg.Live.MailTimeout,
	}, lg)

	router := httpapi.NewRouter(lg)
	router.RegisterRideRoutes(httpapi.NewRideHandler(production, cfg.Dashboard.Window, lg))
	router.RegisterLiveRoutes(httpapi.NewLiveHandler(tracker, lg))
	router.RegisterMetricsRoute()

	srv := service.NewServer(cfg.HTTP.Addr, router, lg)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		lg.Info("Received signal, shutting down", zap.String("signal", sig.String()))
	case err := <-errCh:
		lg.Error("HTTP server stopped", zap.Error(err))
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = srv.Stop(shutdownCtx)
	_ = redisClient.Close()
	_ = database.Close(db)
}
