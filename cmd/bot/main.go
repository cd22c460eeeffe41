package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/joho/godotenv"
	prom "github.com/prometheus/client_golang/prometheus"

	"days-together/internal/config"
	"days-together/internal/metrics"
	"days-together/internal/notify"
	"days-together/internal/relation"
	"days-together/internal/scheduler"
	"days-together/internal/storage"
	"days-together/internal/telegram"
)

func main() {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("Warning: .env file not found: %v", err)
	}

	cfg, err := config.New()
	if err != nil {
		log.Fatalf("%v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repo, err := storage.Open(string(cfg.StorageDriver), storagePath(cfg))
	if err != nil {
		log.Fatalf("failed to open storage: %v", err)
	}
	defer func() {
		if err := repo.Close(); err != nil {
			log.Printf("failed to close storage: %v", err)
		}
	}()

	reg := prom.NewRegistry()
	rec := metrics.NewPrometheusRecorder(reg)
	if cfg.MetricsAddr != "" {
		go func() {
			if err := metrics.Serve(ctx, cfg.MetricsAddr, reg); err != nil {
				log.Printf("❌ metrics endpoint failed: %v", err)
			}
		}()
	}

	api, err := tgbotapi.NewBotAPI(cfg.TelegramBotToken)
	if err != nil {
		log.Fatalf("failed to create bot: %v", err)
	}

	machine := relation.NewMachine(
		relation.NewStore(repo),
		notify.Composer{PhotoURL: cfg.MilestoneImageURL},
		telegram.NewNotifier(api),
		rec,
	)

	sched, err := scheduler.New(cfg.DailySchedule, cfg.Location(), machine, scheduler.WithRecorder(rec))
	if err != nil {
		log.Fatalf("failed to create scheduler: %v", err)
	}
	if err := sched.Start(ctx); err != nil {
		log.Fatalf("failed to start scheduler: %v", err)
	}
	defer sched.Stop()

	telegram.New(api, machine, cfg.AdminUserID).Start(ctx)
}

func storagePath(cfg *config.Config) string {
	if cfg.StorageDriver == config.DriverSQLite {
		return cfg.SQLitePath
	}
	return cfg.DataFilePath
}
