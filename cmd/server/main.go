package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dom/faceoff/internal/api"
	"github.com/dom/faceoff/internal/config"
	"github.com/dom/faceoff/internal/facescore"
	"github.com/dom/faceoff/internal/jobs"
	"github.com/dom/faceoff/internal/logger"
	"github.com/dom/faceoff/internal/photostore"
	"github.com/dom/faceoff/internal/repository/postgres"
	"github.com/dom/faceoff/internal/service"
	"github.com/dom/faceoff/internal/websocket"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	// Load .env if present
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize database
	db, err := postgres.NewConnection(cfg.DatabaseURL, cfg.IsProduction())
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}

	// Initialize repositories
	repos := postgres.NewRepositories(db)

	// Initialize WebSocket hub
	hub := websocket.NewHub(log.Named("hub"))
	go hub.Run()

	var notifier service.Notifier = hub
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.Fatal("invalid REDIS_URL", zap.Error(err))
		}
		rdb := redis.NewClient(opts)
		defer rdb.Close()

		relay := websocket.NewRedisRelay(rdb, hub, websocket.DefaultRelayChannel, log.Named("relay"))
		go func() {
			if err := relay.Run(ctx, nil); err != nil {
				log.Error("redis relay stopped", zap.Error(err))
			}
		}()
		notifier = relay
		log.Info("match events relayed through redis")
	}

	// Photo storage
	var photos photostore.Store = photostore.NewInlineStore()
	if cfg.S3.Enabled() {
		s3Store, err := photostore.NewS3Store(ctx, photostore.S3Options{
			Bucket:          cfg.S3.Bucket,
			Endpoint:        cfg.S3.Endpoint,
			Region:          cfg.S3.Region,
			AccessKeyID:     cfg.S3.AccessKeyID,
			SecretAccessKey: cfg.S3.SecretAccessKey,
			PublicBaseURL:   cfg.S3.PublicBaseURL,
		})
		if err != nil {
			log.Fatal("failed to configure photo bucket", zap.Error(err))
		}
		photos = s3Store
		log.Info("photos stored in bucket", zap.String("bucket", cfg.S3.Bucket))
	}

	scorer := facescore.NewClient(cfg.FacePP.BaseURL, cfg.FacePP.APIKey, cfg.FacePP.APISecret,
		facescore.WithTimeout(cfg.FacePP.Timeout),
		facescore.WithRetry(cfg.FacePP.MaxRetries),
		facescore.WithBaseDelay(cfg.FacePP.RetryDelay),
		facescore.WithLogger(log.Named("facepp")),
	)

	// Initialize services
	services := service.NewServices(repos, service.Dependencies{
		Photos:   photos,
		Scorer:   scorer,
		Notifier: notifier,
		Logger:   log,
	}, cfg)

	sweeper := jobs.NewSessionSweeper(services.Auth, cfg.SessionSweepInterval, log.Named("sweeper"))
	if err := sweeper.Start(); err != nil {
		log.Fatal("failed to start session sweeper", zap.Error(err))
	}

	// Initialize router
	router := api.NewRouter(services, hub, cfg, log)

	srv := &http.Server{
		Addr:              "0.0.0.0:" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		// Compare makes two scoring calls with retries.
		WriteTimeout: 2 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("server starting", zap.String("port", cfg.Port), zap.String("environment", cfg.Environment))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("failed to start server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}
	if err := sweeper.Shutdown(); err != nil {
		log.Warn("session sweeper shutdown", zap.Error(err))
	}
	router.Close()
	hub.Stop()

	log.Info("server stopped")
}
