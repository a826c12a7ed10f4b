// Package main is the entry point for the renewal engine API server.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/renewal-ai/renewal-engine/internal/config"
	"github.com/renewal-ai/renewal-engine/internal/drafting"
	"github.com/renewal-ai/renewal-engine/internal/handler"
	"github.com/renewal-ai/renewal-engine/internal/listing"
	"github.com/renewal-ai/renewal-engine/internal/llm"
	"github.com/renewal-ai/renewal-engine/internal/messaging"
	"github.com/renewal-ai/renewal-engine/internal/middleware"
	natsclient "github.com/renewal-ai/renewal-engine/internal/nats"
	"github.com/renewal-ai/renewal-engine/internal/negotiation"
	"github.com/renewal-ai/renewal-engine/internal/notify"
	"github.com/renewal-ai/renewal-engine/internal/offer"
	"github.com/renewal-ai/renewal-engine/internal/pricing"
	"github.com/renewal-ai/renewal-engine/internal/scoring"
	"github.com/renewal-ai/renewal-engine/internal/store"
	"github.com/renewal-ai/renewal-engine/internal/workflow"
	"github.com/renewal-ai/renewal-engine/pkg/logger"
	"github.com/renewal-ai/renewal-engine/pkg/tracing"
)

func main() {
	// Load configuration
	cfg := config.Load()
	if err := cfg.Engine.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid engine configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	logger.SetGlobal(log)

	log.Info("starting renewal engine API server")

	// Initialize tracing if enabled
	ctx := context.Background()
	if cfg.TracingEnabled {
		tp, err := tracing.InitTracer(ctx, "renewal-engine", cfg.TracingEndpoint)
		if err != nil {
			log.Warn("failed to initialize tracing", zap.Error(err))
		} else {
			defer tracing.Shutdown(ctx, tp)
		}
	}

	// Open the database
	st, err := store.Open(cfg.DatabaseDriver, cfg.DatabaseDSN)
	if err != nil {
		log.Error("failed to open database", zap.Error(err))
		os.Exit(1)
	}

	// Connect to NATS
	natsClient, err := natsclient.Connect(natsclient.Config{
		URL:      cfg.NATSURL,
		CAFile:   cfg.NATSCAFile,
		CertFile: cfg.NATSCertFile,
		KeyFile:  cfg.NATSKeyFile,
		Token:    cfg.NATSToken,
	}, log)
	if err != nil {
		log.Error("failed to connect to NATS", zap.Error(err))
		os.Exit(1)
	}
	defer natsClient.Close()

	// Ensure JetStream stream exists
	streamManager := natsclient.NewStreamManager(natsClient)
	if err := streamManager.EnsureStream(ctx); err != nil {
		log.Error("failed to ensure stream", zap.Error(err))
		os.Exit(1)
	}

	// Initialize the drafting collaborator. Without an API key the engine
	// runs on templates alone.
	var drafter drafting.Drafter = drafting.NewTemplateDrafter()
	apiKey := cfg.AnthropicAPIKey
	provider := llm.Provider(cfg.DefaultLLM)
	if provider == llm.ProviderOpenAI {
		apiKey = cfg.OpenAIAPIKey
	}
	if apiKey != "" {
		llmClient, err := llm.NewClient(provider, apiKey)
		if err != nil {
			log.Warn("failed to create LLM client, using template drafting only", zap.Error(err))
		} else {
			drafter = drafting.NewChain(
				drafting.NewLLMDrafter(llmClient, "", cfg.LLMTimeout, log),
				drafting.NewTemplateDrafter(),
				log,
			)
		}
	}

	// Initialize collaborators and services
	messenger := messaging.NewNATSMessenger(streamManager, log)
	relister := listing.NewNATSRelister(streamManager, log)
	notifier := notify.NewLandlordNotifier(st, streamManager, log)

	scoringSvc := scoring.NewService(st, st, cfg.Engine, log)
	pricingSvc := pricing.NewService(st, cfg.Engine, log)
	dispatcher := offer.NewService(st, st, scoringSvc, pricingSvc, drafter, messenger, notifier, cfg.Engine, log)
	negotiationSvc := negotiation.NewService(st, st, st, st, st, drafter, messenger, relister, notifier, log)
	orchestrator := workflow.NewOrchestrator(st, st, dispatcher, messenger, relister, cfg.Engine, cfg.SweepConcurrency, log)

	// Initialize handlers
	healthHandler := handler.NewHealthHandler(natsClient, st)
	renewalHandler := handler.NewRenewalHandler(scoringSvc, pricingSvc, dispatcher, negotiationSvc, orchestrator, st, st, st, log)
	sweepHandler := handler.NewSweepHandler(orchestrator, cfg.SweepSecret, log)

	// Create router
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging(log))
	r.Use(middleware.SecurityHeaders)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Requested-With"},
		ExposedHeaders:   []string{"Link", "X-Correlation-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health endpoints (no auth required)
	r.Get("/health", healthHandler.Health)
	r.Get("/ready", healthHandler.Ready)

	// Metrics endpoint
	r.Handle("/metrics", promhttp.Handler())

	// Sweep endpoint, authenticated by shared secret
	r.Post("/internal/sweep", sweepHandler.Run)

	// API routes with authentication
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWTSecret))
		r.Use(middleware.RateLimit(cfg.RateLimitRequests, cfg.RateLimitWindow))

		r.Route("/leases/{id}", func(r chi.Router) {
			r.Post("/simulate", renewalHandler.Simulate)
			r.Post("/initiate", renewalHandler.Initiate)
			r.Get("/scenarios", renewalHandler.Scenarios)
			r.Get("/negotiation-log", renewalHandler.NegotiationLog)
		})

		r.Route("/offers/{id}", func(r chi.Router) {
			r.Get("/", renewalHandler.GetOffer)
			r.Post("/reply", renewalHandler.Reply)
			r.Post("/decision", renewalHandler.Decision)
			r.Post("/follow-up", renewalHandler.FollowUp)
		})
	})

	// Create HTTP server
	srv := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      r,
		ReadTimeout:  cfg.ServerReadTimeout,
		WriteTimeout: cfg.ServerWriteTimeout,
	}

	// Background sweep ticker
	sweepCtx, stopSweep := context.WithCancel(ctx)
	defer stopSweep()
	if cfg.SweepInterval > 0 {
		go runSweepLoop(sweepCtx, orchestrator, cfg.SweepInterval, log)
	}

	// Start server in goroutine
	go func() {
		log.Info("server listening", zap.String("port", cfg.ServerPort))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", zap.Error(err))
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")
	stopSweep()

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("forced shutdown", zap.Error(err))
		os.Exit(1)
	}

	log.Info("server stopped")
}

// runSweepLoop runs the orchestrator on a fixed cadence until ctx is done.
func runSweepLoop(ctx context.Context, orchestrator *workflow.Orchestrator, interval time.Duration, log *logger.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := orchestrator.Sweep(ctx); err != nil {
				log.Error("scheduled sweep failed", zap.Error(err))
			}
		}
	}
}
