package api

import (
	"net/http"

	"github.com/dom/faceoff/internal/api/handlers"
	"github.com/dom/faceoff/internal/api/middleware"
	"github.com/dom/faceoff/internal/config"
	"github.com/dom/faceoff/internal/service"
	"github.com/dom/faceoff/internal/websocket"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// Router is the HTTP surface. Close releases the rate limiter's goroutine.
type Router struct {
	chi.Router
	limiter *middleware.RateLimiter
}

func (rt *Router) Close() {
	rt.limiter.Stop()
}

func NewRouter(services *service.Services, hub *websocket.Hub, cfg *config.Config, logger *zap.Logger) *Router {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(middleware.RequestLogger(logger.Named("http")))
	r.Use(chiMiddleware.Recoverer)
	r.Use(middleware.CORS(cfg.AllowedOrigins))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(services.Auth, cfg.IsProduction(), logger.Named("auth"))
	matchHandler := handlers.NewMatchHandler(services.Match, cfg.UploadMaxBytes, logger.Named("match"))
	feedbackHandler := handlers.NewFeedbackHandler(services.Feedback, logger.Named("feedback"))
	wsHandler := handlers.NewWebSocketHandler(hub, cfg.AllowedOrigins, logger.Named("ws"))

	limiter := middleware.NewRateLimiter(cfg.RateLimitRequests, cfg.RateLimitWindow)

	r.Route("/api", func(r chi.Router) {
		// Public routes
		r.Post("/register", authHandler.Register)
		r.Post("/login", authHandler.Login)
		r.Get("/leaderboard", matchHandler.Leaderboard)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(services.Auth, logger.Named("auth")))

			r.Post("/logout", authHandler.Logout)
			r.Get("/user", authHandler.Me)
			r.Delete("/user", authHandler.DeleteAccount)

			r.Route("/matches", func(r chi.Router) {
				r.Get("/", matchHandler.List)
				r.Get("/{id}", matchHandler.Get)

				// Uploads and scoring
				r.Group(func(r chi.Router) {
					r.Use(limiter.Limit)
					r.Post("/", matchHandler.Create)
					r.Post("/{id}/respond", matchHandler.Respond)
					r.Post("/{id}/compare", matchHandler.Compare)
				})
			})

			r.Post("/feedback", feedbackHandler.Submit)
		})
	})

	// WebSocket endpoint
	r.Get("/ws", wsHandler.Handle)

	return &Router{Router: r, limiter: limiter}
}
