package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/danifischer/raidbot/internal/accounts"
	"github.com/danifischer/raidbot/internal/config"
	"github.com/danifischer/raidbot/internal/database"
	"github.com/danifischer/raidbot/internal/gateway"
	"github.com/danifischer/raidbot/internal/handler"
	"github.com/danifischer/raidbot/internal/jobs"
	"github.com/danifischer/raidbot/internal/metrics"
	"github.com/danifischer/raidbot/internal/middleware"
	"github.com/danifischer/raidbot/internal/model"
	"github.com/danifischer/raidbot/internal/repository"
	"github.com/danifischer/raidbot/internal/service"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Initialize structured logging
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLevel(cfg.Server.LogLevel),
	}))
	slog.SetDefault(logger)

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	ctx := context.Background()

	// Initialize snapshot storage
	store, err := database.Open(ctx, cfg.Storage.Config)
	if err != nil {
		slog.Error("failed to open snapshot store",
			slog.String("driver", string(cfg.Storage.Driver)),
			slog.String("error", err.Error()),
		)
		os.Exit(1)
	}
	defer func() { _ = store.Close() }()

	codec, err := database.NewCodec(cfg.Storage.Codec)
	if err != nil {
		slog.Error("invalid snapshot codec", slog.String("error", err.Error()))
		os.Exit(1)
	}

	m := metrics.New()

	// Initialize repository and restore the last snapshot
	raidRepo := repository.NewRaidRepository(repository.RaidRepositoryConfig{
		Store:         store,
		Codec:         codec,
		SaveTries:     uint(cfg.Storage.SaveTries),
		RetryInterval: cfg.Storage.RetryInterval,
		OnSave:        m.ObserveSnapshotSave,
	})
	if err := raidRepo.Load(ctx); err != nil {
		slog.Error("failed to load raids", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("snapshot store ready",
		slog.String("driver", string(cfg.Storage.Driver)),
		slog.String("codec", codec.Name()),
		slog.Int("raids", raidRepo.Count()),
	)

	directory, err := accounts.LoadFile(cfg.Raids.AccountsPath)
	if err != nil {
		slog.Error("failed to load accounts", slog.String("error", err.Error()))
		os.Exit(1)
	}

	guilds := middleware.NewGuildAllowlist(cfg.Server.AllowedGuilds)

	// The relay needs the reaction service and the services need the relay,
	// so the client is built first and handed its handler afterwards.
	var (
		client *gateway.Client
		sender gateway.Sender = gateway.LogSender{}
	)
	sink := &reactionSink{}
	if cfg.Gateway.Enabled {
		client = gateway.NewClient(gateway.Config{
			URL:            cfg.Gateway.URL,
			Token:          cfg.Gateway.Token,
			ReconnectMin:   cfg.Gateway.ReconnectMin,
			ReconnectMax:   cfg.Gateway.ReconnectMax,
			RequestTimeout: cfg.Gateway.RequestTimeout,
			Markers:        cfg.Reactions.All(),
			Guilds:         guilds,
		}, sink)
		sender = client
	}
	platform := gateway.NewRelay(sender, cfg.Reactions)

	// Initialize services
	rosterService := service.NewRosterService(service.RosterServiceConfig{
		RaidRepo:           raidRepo,
		Accounts:           directory,
		Platform:           platform,
		Templates:          cfg.Raids.Templates,
		DefaultAccountType: cfg.Raids.DefaultAccountType,
		Recorder:           m,
	})

	conversationService := service.NewConversationService(service.ConversationServiceConfig{
		Roster:   rosterService,
		Accounts: directory,
		Platform: platform,
		TTL:      cfg.Conversation.TTL,
		Recorder: m,
	})

	reactionService := service.NewReactionService(service.ReactionServiceConfig{
		Roster:        rosterService,
		Accounts:      directory,
		Platform:      platform,
		Conversations: conversationService,
		Symbols:       cfg.Reactions,
		Recorder:      m,
	})
	sink.service = reactionService

	// Initialize background jobs
	conversationExpiry := jobs.NewConversationExpiry(conversationService, cfg.Conversation.SweepInterval)
	storeMonitor := jobs.NewStoreMonitor(store, raidRepo, m, cfg.Storage.PingInterval)

	// Initialize handlers
	healthHandler := handler.NewHealthHandler(store, raidRepo)
	if client != nil {
		healthHandler.WithGateway(client)
	}
	raidHandler := handler.NewRaidHandler(rosterService)
	rosterHandler := handler.NewRosterHandler(rosterService)
	reactionHandler := handler.NewReactionHandler(reactionService, guilds)
	conversationHandler := handler.NewConversationHandler(conversationService)

	// Setup router
	mux := http.NewServeMux()
	healthHandler.RegisterRoutes(mux)
	raidHandler.RegisterRoutes(mux)
	rosterHandler.RegisterRoutes(mux)
	reactionHandler.RegisterRoutes(mux)
	conversationHandler.RegisterRoutes(mux)
	if cfg.Server.MetricsEnabled {
		mux.Handle("GET /metrics", m.Handler())
	}

	rateLimiter := middleware.NewRateLimiter(middleware.RateLimitConfig{})
	defer rateLimiter.Stop()

	// Apply middleware
	h := middleware.Chain(
		mux,
		middleware.RequestID,
		middleware.Logger,
		middleware.Recovery,
		middleware.Compress,
		middleware.GuildAccess(guilds),
		middleware.RateLimit(rateLimiter),
	)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      h,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	// Start background jobs
	conversationExpiry.Start()
	storeMonitor.Start()
	if client != nil {
		client.Start()
	}

	// Start server in goroutine
	go func() {
		slog.Info("server starting",
			slog.String("port", cfg.Server.Port),
			slog.String("env", cfg.Server.Env),
			slog.Bool("gateway", cfg.Gateway.Enabled),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server")

	// Stop accepting reactions before the HTTP server drains
	if client != nil {
		client.Stop()
	}
	conversationExpiry.Stop()
	storeMonitor.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", slog.String("error", err.Error()))
	}

	slog.Info("server stopped")
}

// reactionSink forwards gateway reactions to the reaction service once it exists
type reactionSink struct {
	service *service.ReactionService
}

func (s *reactionSink) HandleReaction(ctx context.Context, ev model.ReactionEvent) (model.ReactionResult, error) {
	return s.service.HandleReaction(ctx, ev)
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}
