package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/omid3098/conduit-monitor/internal/agent"
	"github.com/omid3098/conduit-monitor/internal/api"
	"github.com/omid3098/conduit-monitor/internal/config"
	"github.com/omid3098/conduit-monitor/internal/database"
	"github.com/omid3098/conduit-monitor/internal/logger"
	"github.com/omid3098/conduit-monitor/internal/monitoring"
	"github.com/omid3098/conduit-monitor/internal/services"
	"github.com/omid3098/conduit-monitor/internal/uptime"
	"github.com/omid3098/conduit-monitor/internal/websocket"
	"github.com/rs/zerolog/log"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	logger.Init(cfg.LogLevel)

	// Set up database
	db, err := database.New(cfg.DatabasePath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatal().Err(err).Msg("Failed to apply database migrations")
	}

	// Set up WebSocket Hub
	hub := websocket.NewHub()
	go hub.Run()

	// Set up services
	eventService := services.NewUptimeEventService(db)
	var stateCache uptime.StateCache = uptime.NewMemoryStateCache()
	if cfg.StateCache == "store" {
		stateCache = uptime.NewStoreStateCache(eventService)
	}
	tracker := uptime.NewTracker(eventService, stateCache)

	serverService := services.NewServerService(db)
	metricsService := services.NewMetricsService(db, cfg.HistoryMaxPoints)
	uptimeService := services.NewUptimeService(tracker, serverService)
	agentClient := agent.NewClient(cfg.AgentTimeout.Duration, cfg.HealthTimeout.Duration)

	// Set up and run the background poller
	poller := monitoring.NewPoller(serverService, metricsService, uptimeService, agentClient, hub, monitoring.PollerConfig{
		Interval:    cfg.PollInterval.Duration,
		Concurrency: cfg.PollConcurrency,
		StaleAfter:  cfg.StaleThreshold.Duration,
	})
	go poller.Run()

	// Set up and run the retention scheduler
	scheduler, err := monitoring.NewScheduler(metricsService, cfg.RetentionHours, cfg.PruneSchedule)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to set up retention scheduler")
	}
	go scheduler.Run()

	// Set up router
	router := api.NewRouter(api.Deps{
		Hub:            hub,
		ServerService:  serverService,
		MetricsService: metricsService,
		UptimeService:  uptimeService,
		Status:         poller,
		Fetcher:        agentClient,
	}, api.Options{
		CORSOrigins:    cfg.CORSOrigins,
		JWTSecret:      cfg.JWTSecret,
		RateLimitRPS:   cfg.RateLimitRPS,
		RateLimitBurst: cfg.RateLimitBurst,
	})
	if cfg.JWTSecret == "" {
		log.Warn().Msg("JWT_SECRET is not set; the API is unauthenticated")
	}

	// Set up server
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Graceful shutdown
	go func() {
		log.Info().Int("port", cfg.ServerPort).Msg("Server starting")
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("ListenAndServe failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	poller.Stop()
	scheduler.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	hub.Stop()

	log.Info().Msg("Server exiting")
}
