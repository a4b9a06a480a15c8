package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"

	httpAdapter "github.com/lorrc/support-agents-backend/internal/adapters/primary/http"
	mw "github.com/lorrc/support-agents-backend/internal/adapters/primary/http/middleware"
	"github.com/lorrc/support-agents-backend/internal/adapters/primary/websocket"
	"github.com/lorrc/support-agents-backend/internal/adapters/secondary/email"
	"github.com/lorrc/support-agents-backend/internal/adapters/secondary/knowledge"
	"github.com/lorrc/support-agents-backend/internal/adapters/secondary/memory"
	"github.com/lorrc/support-agents-backend/internal/adapters/secondary/orders"
	"github.com/lorrc/support-agents-backend/internal/adapters/secondary/postgres"
	"github.com/lorrc/support-agents-backend/internal/config"
	"github.com/lorrc/support-agents-backend/internal/core/pipeline"
	"github.com/lorrc/support-agents-backend/internal/core/ports"
	"github.com/lorrc/support-agents-backend/internal/core/services"
	"github.com/lorrc/support-agents-backend/internal/infrastructure/logging"
)

func main() {
	// 1. Load Configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// 2. Initialize Structured Logger
	logger := logging.NewLogger(logging.Config{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		Output:      os.Stdout,
		ServiceName: cfg.App.Name,
		Environment: cfg.App.Environment,
	})

	logger.Info("starting service",
		"version", cfg.App.Version,
		"environment", cfg.App.Environment,
		"storage", cfg.Database.Driver,
	)

	// 3. Initialize Storage (Secondary Adapters)
	ctx := context.Background()

	var (
		ticketRepo ports.TicketRepository
		traceRepo  ports.TraceLedger
		statsRepo  ports.StatsRepository
		healthDB   httpAdapter.HealthChecker
	)

	switch cfg.Database.Driver {
	case "postgres":
		poolConfig, err := pgxpool.ParseConfig(cfg.Database.URL)
		if err != nil {
			logger.Error("failed to parse database URL", "error", err)
			os.Exit(1)
		}
		poolConfig.MaxConns = int32(cfg.Database.MaxOpenConns)
		poolConfig.MinConns = int32(cfg.Database.MaxIdleConns)
		poolConfig.MaxConnLifetime = cfg.Database.ConnMaxLifetime
		poolConfig.MaxConnIdleTime = cfg.Database.ConnMaxIdleTime

		pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
		if err != nil {
			logger.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer pool.Close()

		if err := pool.Ping(ctx); err != nil {
			logger.Error("database ping failed", "error", err)
			os.Exit(1)
		}
		logger.Info("database connection established")

		ticketRepo = postgres.NewTicketRepository(pool)
		traceRepo = postgres.NewTraceRepository(pool)
		statsRepo = postgres.NewStatsRepository(pool)
		healthDB = pool

	default: // memory
		store := memory.NewStore()
		ticketRepo = store
		traceRepo = store
		statsRepo = store
	}

	// 4. Initialize Real-time Hub
	hub := websocket.NewHub(logger)
	go hub.Run()

	// 5. Initialize Rate Limiters
	var generalRateLimiter, submitRateLimiter *mw.RateLimiter
	if cfg.RateLimit.Enabled {
		generalRateLimiter = mw.NewRateLimiter(mw.RateLimiterConfig{
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			BurstSize:         cfg.RateLimit.BurstSize,
			CleanupInterval:   time.Minute,
			TTL:               3 * time.Minute,
		})

		submitRateLimiter = mw.NewRateLimiter(mw.RateLimiterConfig{
			RequestsPerSecond: cfg.RateLimit.SubmitRPS,
			BurstSize:         cfg.RateLimit.SubmitBurst,
			CleanupInterval:   time.Minute,
			TTL:               5 * time.Minute,
		})
	}

	// 6. Dependency Injection (Wiring the Hexagon)

	// Error Handler
	errorHandler := httpAdapter.NewErrorHandler(logger)

	// Tool adapters used by the agent stages
	kb := knowledge.NewBase()
	orderGateway := orders.NewGateway()

	// Notifier (Secondary Adapter)
	notifier := email.NewMockSMTPNotifier(logger)

	// Agent pipeline
	escalationPolicy, err := pipeline.PolicyByName(cfg.Pipeline.EscalationPolicy)
	if err != nil {
		logger.Error("invalid escalation policy in configuration", "error", err)
		os.Exit(1)
	}
	stages := []pipeline.Stage{
		pipeline.NewTriageStage(cfg.Pipeline.TriageConfidenceFloor),
		pipeline.NewResearchStage(kb, cfg.Pipeline.KnowledgeResults),
		pipeline.NewPolicyStage(orderGateway),
		pipeline.NewResponseStage(cfg.Pipeline.ResponseFallback),
		pipeline.NewEscalationStage(escalationPolicy, cfg.Pipeline.ConfidenceThreshold),
	}

	// Services (Core)
	locks := services.NewTicketLocks()
	pipelineService := services.NewPipelineService(ticketRepo, traceRepo, stages, hub, locks, cfg.Pipeline.StageTimeout, logger)
	ticketService := services.NewTicketService(ticketRepo, traceRepo, pipelineService, hub, notifier, locks, logger)
	statsService := services.NewStatsService(statsRepo, logger)

	// Handlers (Primary Adapters)
	ticketHandler := httpAdapter.NewTicketHandler(ticketService, errorHandler, logger)
	statsHandler := httpAdapter.NewStatsHandler(statsService, errorHandler, logger)
	wsHandler := httpAdapter.NewWebSocketHandler(hub, cfg, logger)
	healthHandler := httpAdapter.NewHealthHandler(healthDB, cfg.App.Version)

	// 7. Setup Router
	r := chi.NewRouter()

	// Global middleware
	r.Use(mw.RequestID)
	r.Use(mw.RequestLogger(logger))
	r.Use(mw.RecoveryLogger(logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.Server.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Apply general rate limiting if enabled
	if generalRateLimiter != nil {
		r.Use(generalRateLimiter.Middleware)
	}

	// Health check endpoints (outside /api/v1 for standard probe paths)
	r.Get("/health", healthHandler.HandleHealth)
	r.Get("/health/live", healthHandler.HandleLiveness)
	r.Get("/health/ready", healthHandler.HandleReadiness)

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		// Ticket submission gets a stricter limit than reads
		var submitMW []func(http.Handler) http.Handler
		if submitRateLimiter != nil {
			submitMW = append(submitMW, submitRateLimiter.Middleware)
		}
		r.Route("/tickets", func(r chi.Router) {
			ticketHandler.RegisterRoutes(r, submitMW...)
		})

		r.Get("/stats", statsHandler.HandleGetStats)

		// WebSocket event stream for the dashboard
		r.Get("/ws", wsHandler.ServeHTTP)
	})

	// 8. Start Server with Graceful Shutdown
	srv := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start server in goroutine
	go func() {
		logger.Info("server starting", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	logger.Info("shutdown signal received", "signal", sig.String())

	// Create shutdown context with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	// Graceful shutdown
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
		os.Exit(1)
	}

	// Let in-flight notification goroutines drain
	notifier.Shutdown()

	logger.Info("server shutdown complete")
}
