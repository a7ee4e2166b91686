package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dvloznov/novabank/internal/api/handlers"
	"github.com/dvloznov/novabank/internal/api/middleware"
	"github.com/dvloznov/novabank/internal/assistant"
	"github.com/dvloznov/novabank/internal/config"
	"github.com/dvloznov/novabank/internal/conversation"
	"github.com/dvloznov/novabank/internal/domain"
	"github.com/dvloznov/novabank/internal/gateway"
	"github.com/dvloznov/novabank/internal/ledger"
	"github.com/dvloznov/novabank/internal/logger"
	"golang.org/x/sync/errgroup"
)

func main() {
	// Parse command-line flags
	var (
		port    = flag.String("port", "", "HTTP server port (overrides PORT)")
		envFile = flag.String("env-file", ".env", "Path to a .env file to load before reading the environment")
	)
	flag.Parse()

	bootLog := logger.New("info")
	if err := config.LoadEnvFile(*envFile); err != nil {
		bootLog.Fatal().Err(err).Msg("Failed to load env file")
	}

	cfg := config.Load()
	if *port != "" {
		cfg.Port = *port
	}
	if err := cfg.Validate(); err != nil {
		bootLog.Fatal().Err(err).Msg("Invalid configuration")
	}

	// Initialize logger
	log := logger.New(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize the ledger and the assistant gateway
	store := ledger.NewStore(domain.DefaultSeed())

	var gw gateway.Gateway = gateway.Offline{}
	if cfg.HasGemini() {
		gemini, err := gateway.NewGemini(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, log)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create Gemini gateway")
		}
		gw = gemini
		log.Info().Str("model", cfg.GeminiModel).Msg("Assistant gateway ready")
	} else {
		log.Warn().Msg("No GEMINI_API_KEY configured - the assistant will answer with an apology")
	}

	registry := conversation.NewRegistry(conversation.Deps{
		Gateway:     gw,
		Ledger:      store,
		Interpreter: assistant.NewInterpreter(assistant.DefaultLimits()),
		Timeout:     cfg.GatewayTimeout,
		Logger:      log,
	}, cfg.SessionTTL)

	handler := handlers.NewRouter(handlers.RouterConfig{
		Ledger:         store,
		Conversations:  registry,
		Log:            logger.Component(log, "api"),
		CORSOrigin:     cfg.CORSOrigin,
		MessageLimiter: middleware.NewLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst),
	})

	// Create HTTP server. WriteTimeout leaves room for a full model call.
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.GatewayTimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info().Str("port", cfg.Port).Msg("Starting API server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("Shutting down server...")

		// Graceful shutdown
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("Server stopped with error")
		os.Exit(1)
	}

	log.Info().Msg("Server exited")
}
