package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lexiqai/live-translator/internal/bus"
	"github.com/lexiqai/live-translator/internal/config"
	"github.com/lexiqai/live-translator/internal/control"
	"github.com/lexiqai/live-translator/internal/manifest"
	"github.com/lexiqai/live-translator/internal/observability"
	"github.com/lexiqai/live-translator/internal/resilience"
	"github.com/lexiqai/live-translator/internal/stt"
	"github.com/lexiqai/live-translator/internal/translate"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		// Use fmt for fatal errors before logger is initialized
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	observability.InitLogger(cfg.LogLevel, cfg.LogPretty)
	logger := observability.GetLogger()

	logger.Info().
		Str("port", cfg.Port).
		Str("deepgram_model", cfg.DeepgramModel).
		Str("translator_endpoint", cfg.TranslatorEndpoint).
		Str("log_level", cfg.LogLevel).
		Bool("metrics_enabled", cfg.MetricsEnabled).
		Msg("Live translator starting")

	m, err := manifest.Load(cfg.ManifestPath)
	if err != nil {
		logger.Fatal().Err(err).Str("path", cfg.ManifestPath).Msg("Failed to load control manifest")
	}

	resetTimeout := time.Duration(cfg.CircuitBreakerResetTimeout) * time.Second
	sttBreaker := resilience.NewCircuitBreaker("deepgram", cfg.CircuitBreakerMaxFailures, resetTimeout).WithMetrics()
	translatorBreaker := resilience.NewCircuitBreaker("translator", cfg.CircuitBreakerMaxFailures, resetTimeout).WithMetrics()

	deps := control.Dependencies{
		Config:      cfg,
		Manifest:    m,
		Recognizers: stt.NewFactory(cfg, sttBreaker, logger),
		Translator:  translate.NewAzureClient(cfg, translatorBreaker, logger),
		Logger:      logger,
	}

	checks := []observability.HealthCheck{
		{Name: "deepgram", Check: sttBreaker.Check},
		{Name: "translator", Check: translatorBreaker.Check},
	}

	// Output publishing is optional
	var natsClient *bus.Client
	if cfg.NATSURL != "" {
		natsClient, err = bus.Connect(cfg.NATSURL, 5*time.Second, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to connect to NATS")
		}
		deps.Bus = natsClient.Conn()
		checks = append(checks, observability.HealthCheck{
			Name: "nats",
			Check: func(ctx context.Context) (bool, error) {
				if !natsClient.Healthy() {
					return false, fmt.Errorf("not connected")
				}
				return true, nil
			},
		})
	}

	handler := control.NewHandler(deps)

	mux := http.NewServeMux()
	mux.Handle("/ws/control", handler)
	mux.HandleFunc("/manifest", manifest.Handler(m))
	mux.HandleFunc("/health", observability.HealthCheckHandler())
	mux.HandleFunc("/ready", observability.ReadinessHandler(checks...))

	if cfg.MetricsEnabled {
		mux.Handle("/metrics", promhttp.Handler())
		logger.Info().Msg("Prometheus metrics enabled at /metrics")
	}

	server := &http.Server{
		Addr:        fmt.Sprintf(":%s", cfg.Port),
		Handler:     mux,
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	if cfg.GRPCHealthPort != "" {
		healthServer := observability.NewGRPCHealthServer(checks, 10*time.Second, logger)
		go func() {
			if err := healthServer.Serve(ctx, fmt.Sprintf(":%s", cfg.GRPCHealthPort)); err != nil {
				logger.Error().Err(err).Msg("gRPC health server failed")
			}
		}()
	}

	go func() {
		logger.Info().
			Str("port", cfg.Port).
			Str("endpoint", fmt.Sprintf("ws://localhost:%s/ws/control", cfg.Port)).
			Msg("Server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Int("controls", handler.Active()).Msg("Shutting down server...")
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Hijacked control sockets are not tracked by the HTTP server
	handler.Shutdown()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Server forced to shutdown")
	}
	natsClient.Close()

	logger.Info().Msg("Server exited gracefully")
}

