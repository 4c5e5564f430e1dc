package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/dom/faceoff/internal/config"
	"github.com/dom/faceoff/internal/export"
	"github.com/dom/faceoff/internal/logger"
	"github.com/dom/faceoff/internal/repository/postgres"
	"github.com/dom/faceoff/internal/service"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	days := flag.Int("days", 30, "export feedback submitted in the last N days")
	out := flag.String("out", "feedback.xlsx", "output workbook path")
	flag.Parse()

	// Load .env
	if err := godotenv.Load(); err != nil {
		fmt.Fprintln(os.Stderr, "No .env file found")
	}

	cfg, err := config.Read()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if cfg.DatabaseURL == "" {
		fmt.Fprintln(os.Stderr, "DATABASE_URL is required")
		os.Exit(1)
	}

	log, err := logger.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	db, err := postgres.NewConnection(cfg.DatabaseURL, cfg.IsProduction())
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}

	feedback := service.NewFeedbackService(postgres.NewFeedbackRepository(db))

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	since := time.Now().AddDate(0, 0, -*days)
	entries, err := feedback.Since(ctx, since)
	if err != nil {
		log.Fatal("failed to load feedback", zap.Error(err))
	}

	f, err := os.Create(*out)
	if err != nil {
		log.Fatal("failed to create output file", zap.Error(err))
	}
	defer f.Close()

	if err := export.WriteFeedbackWorkbook(f, entries); err != nil {
		log.Fatal("failed to write workbook", zap.Error(err))
	}

	log.Info("feedback exported",
		zap.String("path", *out),
		zap.Int("entries", len(entries)),
		zap.Time("since", since),
	)
}
