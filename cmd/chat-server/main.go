package main

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"streamchat/internal/chat"
	"streamchat/internal/config"
	"streamchat/internal/domain"
	"streamchat/internal/handler"
	"streamchat/internal/identity"
	"streamchat/internal/messaging"
	"streamchat/internal/middleware"
	"streamchat/internal/observability"
	"streamchat/internal/repository/memory"
	"streamchat/internal/repository/postgres"
	"streamchat/internal/streamkey"
	"streamchat/internal/websocket"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	cfg := config.Load()

	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info"
	}
	logFormat := os.Getenv("LOG_FORMAT")
	if logFormat == "" {
		logFormat = "json"
	}
	observability.InitLogger(logLevel, logFormat)

	slog.Info("starting chat server", slog.String("node_id", cfg.NodeID))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Stores: postgres when configured, in-memory otherwise.
	var (
		db       *sql.DB
		modLog   domain.ModerationLogStore
		keyStore domain.StreamKeyStore
	)
	if cfg.DatabaseURL != "" {
		var err error
		db, err = config.NewPostgresConnection(ctx, cfg.DatabaseURL)
		if err != nil {
			slog.Error("failed to connect to database", slog.String("error", err.Error()))
			os.Exit(1)
		}
		defer db.Close()
		modLog = postgres.NewModerationLogRepository(db)
		keyStore = postgres.NewStreamKeyRepository(db)
		slog.Info("connected to postgresql")
	} else {
		modLog = memory.NewModerationLogStore()
		keyStore = memory.NewStreamKeyStore()
		slog.Info("running with in-memory stores")
	}

	keys := streamkey.NewService(keyStore)

	tokens := identity.NewTokenRegistry()
	tokens.Add(cfg.AdminToken, &identity.Identity{
		UserID:      "admin",
		Username:    "admin",
		DisplayName: "admin",
		Roles:       []string{domain.RoleAdmin},
	})

	hub := websocket.NewHub()

	// Optional cross-node relay.
	var (
		rmq         *messaging.RabbitMQ
		broadcaster domain.Broadcaster = hub
	)
	if cfg.RabbitMQURL != "" {
		rmqCtx, rmqCancel := context.WithTimeout(ctx, 60*time.Second)
		defer rmqCancel()

		var err error
		rmq, err = messaging.NewRabbitMQWithRetry(rmqCtx, cfg.RabbitMQURL, cfg.NodeID)
		if err != nil {
			slog.Error("failed to connect to rabbitmq", slog.String("error", err.Error()))
			os.Exit(1)
		}
		defer rmq.Close()

		relay := messaging.NewRelay(hub, rmq, cfg.NodeID)
		defer relay.Close()
		broadcaster = relay

		consumer := messaging.NewConsumer(rmq, hub, cfg.NodeID)
		if err := consumer.Start(ctx); err != nil {
			slog.Error("failed to start relay consumer", slog.String("error", err.Error()))
			os.Exit(1)
		}
		slog.Info("event relay started")
	}

	registry := chat.NewRegistry(chat.NewMemoryRoomStore(), cfg.EvictionGrace)
	filter := chat.NewWordFilter(cfg.GlobalBannedWords)
	chatSvc := chat.NewService(registry, broadcaster, filter, modLog)

	origins := middleware.ParseOrigins(cfg.AllowedOrigins)
	roomHandler := handler.NewRoomHandler(chatSvc, modLog)
	keyHandler := handler.NewStreamKeyHandler(keys)
	wsHandler := handler.NewWebSocketHandler(hub, chatSvc, tokens, keys, origins)

	r := chi.NewRouter()

	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.CORS(origins))
	r.Use(middleware.Metrics())
	r.Use(middleware.OpenAPIValidator(middleware.DefaultOpenAPIValidatorConfig()))

	r.Get("/health", handler.Health)
	r.Get("/health/ready", handler.Ready(db, rmq))
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		apiLimiter := middleware.NewRateLimiter(20, 50)

		r.Group(func(r chi.Router) {
			r.Use(apiLimiter.Middleware())
			r.Get("/rooms", roomHandler.List)
			r.Get("/rooms/{id}", roomHandler.Get)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.Identity(tokens))
			r.Use(apiLimiter.Middleware())

			r.Patch("/rooms/{id}/settings", roomHandler.UpdateSettings)
			r.Get("/rooms/{id}/moderation-log", roomHandler.ModerationLog)
			r.Post("/streamkeys", keyHandler.Issue)
			r.Get("/streamkeys", keyHandler.List)
			r.Delete("/streamkeys/{id}", keyHandler.Revoke)
		})
	})

	// Credentials handled internally to support query param tokens
	r.Get("/ws/chat", wsHandler.HandleConnection)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("chat server listening", slog.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	slog.Info("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", slog.String("error", err.Error()))
	}

	cancel()
	time.Sleep(100 * time.Millisecond)

	slog.Info("server stopped gracefully")
}
