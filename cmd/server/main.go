// Agentic honeypot server: scores scam messages, engages in persona and
// reports the gathered intelligence once per conversation.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/ashureev/honeypot/internal/agent"
	"github.com/ashureev/honeypot/internal/api"
	"github.com/ashureev/honeypot/internal/config"
	"github.com/ashureev/honeypot/internal/detect"
	"github.com/ashureev/honeypot/internal/events"
	"github.com/ashureev/honeypot/internal/honeypot"
	"github.com/ashureev/honeypot/internal/metrics"
	"github.com/ashureev/honeypot/internal/middleware"
	"github.com/ashureev/honeypot/internal/patterns"
	"github.com/ashureev/honeypot/internal/report"
	"github.com/ashureev/honeypot/internal/session"
	"github.com/ashureev/honeypot/internal/store"
	"github.com/ashureev/honeypot/web"
)

const (
	shutdownTimeout     = 10 * time.Second
	reportDrainTimeout  = 15 * time.Second
	eventReplay         = 100
	rateLimiterIdleTime = 10 * time.Minute
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	if err := run(cfg); err != nil {
		slog.Error("Server stopped with error", "error", err)
		os.Exit(1)
	}
	slog.Info("Server stopped successfully")
}

// run wires the server and blocks until shutdown. Returning instead of
// exiting lets deferred cleanup run.
func run(cfg *config.Config) error {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLevel(cfg.LogLevel),
	}))
	slog.SetDefault(logger)

	slog.Info("Starting server",
		"port", cfg.Port,
		"report_enabled", cfg.ReportEnabled(),
		"agent_provider", cfg.Agent.Provider,
		"min_turns", cfg.Report.MinTurns,
		"max_turns", cfg.Report.MaxTurns)

	// Initialize dependencies.
	repo, err := store.NewSQLite(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("initialize database: %w", err)
	}
	defer func() {
		if closeErr := repo.Close(); closeErr != nil {
			slog.Error("Failed to close repository", "error", closeErr)
		}
	}()
	slog.Info("Report ledger ready", "path", cfg.DBPath)

	lib, err := patterns.Load(cfg.PatternsFile)
	if err != nil {
		return fmt.Errorf("load patterns: %w", err)
	}
	engine := detect.NewEngine(lib)

	sessions := session.NewStore(session.Options{
		TTL:         cfg.Session.TTL,
		MaxSessions: cfg.Session.MaxSessions,
		MaxReported: cfg.Session.MaxReported,
		Logger:      logger,
	})
	hub := events.NewHub(eventReplay, originHosts(cfg.AllowedOrigins), logger)

	var sender report.Sender
	if cfg.ReportEnabled() {
		httpSender, err := report.NewHTTPSender(cfg.Report.URL, nil, &http.Client{})
		if err != nil {
			return fmt.Errorf("initialize report sender: %w", err)
		}
		sender = httpSender
	} else {
		slog.Warn("REPORT_URL not set, reports will be gated and latched but not transmitted")
	}
	dispatcher := report.NewDispatcher(report.DispatcherOptions{
		Sender:         sender,
		Ledger:         repo,
		Publisher:      hub,
		AttemptTimeout: cfg.Report.Timeout,
		MaxAttempts:    cfg.Report.MaxAttempts,
		Backoff:        cfg.Report.Backoff,
		Logger:         logger,
	})

	generator, err := agent.NewGenerator(cfg.Agent, logger)
	if err != nil {
		return fmt.Errorf("initialize reply generator: %w", err)
	}
	convLog, err := agent.NewConversationLogger(cfg.ConversationLog, logger)
	if err != nil {
		return fmt.Errorf("initialize conversation logger: %w", err)
	}
	replies := agent.NewService(generator, cfg.Agent.Timeout, convLog, logger)
	slog.Info("Reply generator ready", "provider", replies.Provider(), "ai_available", replies.Available())

	svc := honeypot.NewService(honeypot.Options{
		Engine:    engine,
		Sessions:  sessions,
		Replier:   replies,
		Reporter:  dispatcher,
		Publisher: hub,
		MinTurns:  cfg.Report.MinTurns,
		MaxTurns:  cfg.Report.MaxTurns,
		Logger:    logger,
	})
	handler := api.NewHandler(svc, repo, replies, logger)
	limiter := middleware.NewRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst, rateLimiterIdleTime)
	auth := middleware.APIKey(cfg.APIKey)

	// Setup router.
	r := chi.NewRouter()

	// Global middleware.
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(metrics.HTTP)
	r.Use(middleware.CORS(cfg.AllowedOrigins))

	r.Handle("/metrics", promhttp.Handler())
	r.Get("/dashboard", http.RedirectHandler("/dashboard/", http.StatusMovedPermanently).ServeHTTP)
	r.Handle("/dashboard/*", http.StripPrefix("/dashboard", web.Handler()))
	r.With(auth).Get("/ws/events", hub.ServeHTTP)
	r.Group(func(r chi.Router) {
		r.Use(limiter.Middleware)
		handler.RegisterRoutes(r, auth)
	})

	// Event streams are long-lived, so no WriteTimeout.
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return sessions.RunSweeper(gctx, cfg.Session.SweepInterval)
	})
	g.Go(func() error {
		return limiter.RunEviction(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("Shutting down gracefully...")

		hub.CloseAll()
		err := closeWithin(shutdownTimeout, srv.Shutdown)
		// Reports get their own budget so a slow HTTP drain cannot cancel them.
		if dErr := closeWithin(reportDrainTimeout, dispatcher.Close); dErr != nil {
			slog.Warn("Pending reports abandoned at shutdown", "error", dErr)
		}
		if aErr := replies.Close(); aErr != nil {
			slog.Warn("Failed to close reply generator", "error", aErr)
		}
		return err
	})

	return g.Wait()
}

// closeWithin calls closeFn with a fresh deadline of d.
func closeWithin(d time.Duration, closeFn func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(context.Background(), d)
	defer cancel()
	return closeFn(ctx)
}

func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// originHosts converts CORS origins into WebSocket origin host patterns.
func originHosts(origins []string) []string {
	hosts := make([]string, 0, len(origins))
	for _, o := range origins {
		if o == "*" {
			hosts = append(hosts, o)
			continue
		}
		if u, err := url.Parse(o); err == nil && u.Host != "" {
			hosts = append(hosts, u.Host)
			continue
		}
		hosts = append(hosts, o)
	}
	return hosts
}
