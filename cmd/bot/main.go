package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/user/hrbot/internal/agent"
	"github.com/user/hrbot/internal/config"
	"github.com/user/hrbot/internal/storage"
	"github.com/user/hrbot/internal/telegram"
	"github.com/user/hrbot/internal/webhook"
	"github.com/user/hrbot/pkg/logger"
)

func main() {
	// Parse command-line flags
	configPath := flag.String("config", "", "Path to configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		// Try to initialize basic logger for error output
		logger.Init(true, "")
		logger.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Initialize logger
	debug := cfg.Log.Level == "debug"
	if err := logger.Init(debug, cfg.Log.File); err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}

	logger.Info().Msg("Starting HR agent bot")

	// Initialize database
	db, err := storage.NewDatabase(cfg.Database.Path)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer db.Close()

	ledger := storage.NewUpdateLedger(db)
	threadStore := storage.NewThreadStore(db)
	logger.Info().Str("path", cfg.Database.Path).Msg("Database initialized")

	// Initialize agent client and thread directory
	agentClient := agent.NewClient(cfg.Agent.APIKey, cfg.Agent.AssistantID)
	directory := agent.NewDirectory(threadStore, agentClient)

	// Initialize Telegram API
	api, err := tgbotapi.NewBotAPI(cfg.Telegram.Token)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize Telegram API")
	}
	api.Debug = cfg.Telegram.Debug
	logger.Info().Str("username", api.Self.UserName).Msg("Telegram bot authorized")

	sender := telegram.NewSender(api)
	manager := telegram.NewWebhookManager(api, cfg.Webhook.PublicURL)

	// Handlers
	tgHandler := webhook.NewTelegramHandler(ledger, directory, agentClient, sender)
	signedHandler := webhook.NewSignedHandler(cfg.Webhook.Secret)
	adminHandler := webhook.NewAdminHandler(manager, cfg.Webhook.InternalToken)

	// Set up HTTP router. No timeout middleware here: the Telegram handler
	// carries its own deadline and must always answer 200 itself.
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	r.Post(telegram.WebhookPath, tgHandler.ServeHTTP)
	r.Post("/webhook", signedHandler.ServeHTTP)
	r.Post("/telegram/set-webhook", adminHandler.SetWebhook)
	r.Get("/telegram/webhook-status", adminHandler.WebhookStatus)

	// Register the Telegram webhook automatically when a public URL is
	// configured; failures are logged, the server still starts.
	if cfg.Webhook.PublicURL != "" {
		go func() {
			if err := manager.Register(); err != nil {
				logger.Warn().Err(err).Msg("Automatic webhook registration failed")
				return
			}
			logger.Info().Str("url", manager.WebhookURL()).Msg("Telegram webhook registered")
		}()
	}

	// Start HTTP server
	server := &http.Server{
		Addr:    cfg.ServerAddress(),
		Handler: r,
	}

	go func() {
		logger.Info().Str("address", cfg.ServerAddress()).Msg("Starting HTTP server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("HTTP server error")
		}
	}()

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Info().Msg("Shutting down...")

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("HTTP server shutdown error")
	}

	logger.Info().Msg("Shutdown complete")
}
