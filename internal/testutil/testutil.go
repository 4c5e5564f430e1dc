package testutil

import (
	"context"
	"fmt"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dom/faceoff/internal/api"
	"github.com/dom/faceoff/internal/config"
	"github.com/dom/faceoff/internal/photostore"
	"github.com/dom/faceoff/internal/repository"
	repoPostgres "github.com/dom/faceoff/internal/repository/postgres"
	"github.com/dom/faceoff/internal/service"
	"github.com/dom/faceoff/internal/websocket"
	"github.com/testcontainers/testcontainers-go"
	tcPostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
	gormPostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// TestDB manages a testcontainers PostgreSQL instance
type TestDB struct {
	Container testcontainers.Container
	DB        *gorm.DB
	DSN       string
}

// NewTestDB creates a new PostgreSQL testcontainer and returns a migrated connection
func NewTestDB(t *testing.T) *TestDB {
	t.Helper()

	ctx := context.Background()

	container, err := tcPostgres.Run(ctx,
		"postgres:15-alpine",
		tcPostgres.WithDatabase("test_faceoff"),
		tcPostgres.WithUsername("test"),
		tcPostgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}

	testDB := &TestDB{Container: container}
	t.Cleanup(testDB.Cleanup)

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("failed to get connection string: %v", err)
	}
	testDB.DSN = dsn

	db, err := gorm.Open(gormPostgres.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("failed to connect to database: %v", err)
	}
	testDB.DB = db

	if err := repoPostgres.Migrate(db); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	return testDB
}

// Cleanup terminates the container
func (tdb *TestDB) Cleanup() {
	if tdb.Container != nil {
		tdb.Container.Terminate(context.Background())
	}
}

// Truncate clears all tables for test isolation
func (tdb *TestDB) Truncate(t *testing.T) {
	t.Helper()

	tables := []string{"feedback", "matches", "user_sessions", "users"}
	if err := tdb.DB.Exec(fmt.Sprintf("TRUNCATE TABLE %s CASCADE", strings.Join(tables, ", "))).Error; err != nil {
		t.Fatalf("failed to truncate tables: %v", err)
	}
}

// TestConfig returns a configuration suitable for testing
func TestConfig() *config.Config {
	return &config.Config{
		Port:                 "0",
		Environment:          "test",
		AllowedOrigins:       []string{"http://localhost:5173"},
		SessionSecret:        "test-session-secret-key-for-testing-only",
		SessionTTL:           time.Hour,
		SessionSweepInterval: time.Minute,
		UploadMaxBytes:       1024 * 1024,
		CompareDelay:         0,
		RateLimitRequests:    1000,
		RateLimitWindow:      time.Minute,
		LogLevel:             "error",
		LogFormat:            "json",
	}
}

// TestServer holds all components for HTTP-level testing. It runs on the
// in-memory store so it needs no database.
type TestServer struct {
	Server   *httptest.Server
	Store    *MemoryStore
	Repos    *repository.Repositories
	Services *service.Services
	Hub      *websocket.Hub
	Scorer   *FakeScorer
	Config   *config.Config
}

// NewTestServer creates a complete test server with all dependencies
func NewTestServer(t *testing.T, opts ...func(*config.Config)) *TestServer {
	t.Helper()

	cfg := TestConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	store := NewMemoryStore()
	repos := store.Repositories()
	scorer := NewFakeScorer(map[string]float64{})

	hub := websocket.NewHub(zap.NewNop())
	go hub.Run()

	services := service.NewServices(repos, service.Dependencies{
		Photos:   photostore.NewInlineStore(),
		Scorer:   scorer,
		Notifier: hub,
	}, cfg)

	router := api.NewRouter(services, hub, cfg, zap.NewNop())
	server := httptest.NewServer(router)

	t.Cleanup(func() {
		server.Close()
		router.Close()
		hub.Stop()
	})

	return &TestServer{
		Server:   server,
		Store:    store,
		Repos:    repos,
		Services: services,
		Hub:      hub,
		Scorer:   scorer,
		Config:   cfg,
	}
}

// URL returns the full URL for a given path
func (ts *TestServer) URL(path string) string {
	return ts.Server.URL + path
}

// WebSocketURL returns the WebSocket URL
func (ts *TestServer) WebSocketURL() string {
	return "ws" + strings.TrimPrefix(ts.Server.URL, "http") + "/ws"
}
