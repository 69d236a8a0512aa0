package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/kev129/deleton/common/database"
	"github.com/kev129/deleton/common/logger"
	"github.com/kev129/deleton/internal/config"
	"github.com/kev129/deleton/internal/notify"
	"github.com/kev129/deleton/internal/repository"
	"github.com/kev129/deleton/internal/service"
	"go.uber.org/zap"
)

func main() {
	once := flag.Bool("once", false, "send one report and exit")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	lg, err := logger.NewLogger(cfg.Log.Level, cfg.Log.Format, "deleton-report")
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer lg.Sync()

	db, err := database.NewPostgresDB(&cfg.Database)
	if err != nil {
		lg.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer database.Close(db)

	production := repository.NewProductionRepository(db, cfg.Schema.Production, cfg.Schema.ProductionTable, lg)
	mailer := notify.NewMailer(cfg.Mail.APIURL, cfg.Mail.APIKey, cfg.Mail.Sender, lg)
	reportService, err := service.NewReportService(production, mailer, service.ReportSettings{
		Schedule:   cfg.Report.Schedule,
		Window:     cfg.Report.Window,
		Recipients: cfg.Report.Recipients,
	}, lg)
	if err != nil {
		lg.Fatal("Failed to create report service", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if *once {
		if err := reportService.SendOnce(ctx); err != nil {
			lg.Error("Failed to send report", zap.Error(err))
			lg.Sync()
			os.Exit(1)
		}
		return
	}

	if err := reportService.Start(ctx); err != nil {
		lg.Fatal("Failed to start report service", zap.Error(err))
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigChan
	lg.Info("Received signal, shutting down", zap.String("signal", sig.String()))

	cancel()
	reportService.Stop()
	lg.Info("Service stopped")
}
