package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/omid3098/conduit-monitor/internal/agent"
	"github.com/omid3098/conduit-monitor/internal/api/handlers"
	"github.com/omid3098/conduit-monitor/internal/auth"
	"github.com/omid3098/conduit-monitor/internal/services"
	"github.com/omid3098/conduit-monitor/internal/websocket"
	"golang.org/x/time/rate"
)

// Deps are the services the API is built on.
type Deps struct {
	Hub            *websocket.Hub
	ServerService  services.ServerServiceProvider
	MetricsService services.MetricsServiceProvider
	UptimeService  services.UptimeServiceProvider
	Status         handlers.StatusReader
	Fetcher        agent.Fetcher
}

// Options configures the HTTP surface.
type Options struct {
	CORSOrigins    []string
	JWTSecret      string // empty disables API auth
	RateLimitRPS   float64
	RateLimitBurst int
}

// NewRouter creates and configures a new Chi router.
func NewRouter(deps Deps, opts Options) *chi.Mux {
	r := chi.NewRouter()

	// Basic middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	if opts.RateLimitRPS > 0 {
		r.Use(NewRateLimiter(rate.Limit(opts.RateLimitRPS), opts.RateLimitBurst).Middleware)
	}

	// Initialize handlers
	historyHandler := handlers.NewHistoryHandler(deps.MetricsService)
	uptimeHandler := handlers.NewUptimeHandler(deps.UptimeService)
	serverHandler := handlers.NewServerHandler(deps.ServerService, deps.MetricsService, deps.UptimeService)
	statusHandler := handlers.NewStatusHandler(deps.ServerService, deps.Status, deps.Fetcher)
	wsHandler := handlers.NewWebSocketHandler(deps.Hub, deps.ServerService, deps.Status, opts.CORSOrigins)

	r.Route("/api", func(r chi.Router) {
		if opts.JWTSecret != "" {
			r.Use(auth.NewAuthenticator(opts.JWTSecret).Middleware)
		}

		r.Get("/ws", wsHandler.Serve)
		r.Get("/history", historyHandler.Get)
		r.Get("/uptime", uptimeHandler.GetFleet)
		r.Get("/tags", serverHandler.GetTags)

		r.Route("/servers", func(r chi.Router) {
			r.Get("/", serverHandler.GetAll)
			r.Post("/", serverHandler.Create)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", serverHandler.Get)
				r.Delete("/", serverHandler.Delete)
				r.Put("/tags", serverHandler.UpdateTags)
				r.Get("/history", serverHandler.GetHistory)
				r.Get("/uptime", uptimeHandler.GetServer)
				r.Get("/status", statusHandler.GetStatus)
				r.Get("/health", statusHandler.GetHealth)
				r.Get("/ws", wsHandler.Serve)
			})
		})
	})

	return r
}
