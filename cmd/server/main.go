package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/fieldops/wms-backend/internal/auth"
	"github.com/fieldops/wms-backend/internal/chat"
	"github.com/fieldops/wms-backend/internal/config"
	"github.com/fieldops/wms-backend/internal/database"
	"github.com/fieldops/wms-backend/internal/handlers"
	"github.com/fieldops/wms-backend/internal/middleware"
	"github.com/fieldops/wms-backend/internal/models"
	redisc "github.com/fieldops/wms-backend/internal/redis"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	slog.Info("starting wms backend")

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	db, err := database.InitDB(cfg.DatabaseURL)
	if err != nil {
		slog.Error("failed to init database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	slog.Info("connected to PostgreSQL")

	if err := database.RunMigrations(db); err != nil {
		slog.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}
	slog.Info("database migrations complete")

	store := database.NewStore(db)

	redisClient, err := redisc.InitRedis(cfg.RedisURL)
	if err != nil {
		// Presence and cross-instance fan-out degrade gracefully without redis.
		slog.Warn("redis unavailable, running single-instance", "error", err)
		redisClient = nil
	} else {
		defer redisClient.Close()
		slog.Info("connected to Redis")
	}

	registry := chat.NewRegistry()
	resolver := chat.NewResolver(store, store)
	broadcaster := chat.NewBroadcaster(registry, store, redisClient, uuid.NewString())
	go broadcaster.RunFanIn()

	loginLimiter := middleware.NewRateLimiter(cfg.LoginRatePerMinute)

	router := mux.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Logging)
	router.Use(middleware.CORS(cfg.CORSOrigin))

	// Public routes
	router.HandleFunc("/health", handlers.Health).Methods("GET", "OPTIONS")
	router.Handle("/api/auth/login",
		loginLimiter.Middleware(auth.LoginHandler(store, cfg.JWTSecret))).Methods("POST", "OPTIONS")

	// WebSocket (token verified inside)
	router.HandleFunc("/ws/chat", chat.ServeWS(registry, broadcaster, store, redisClient, cfg.JWTSecret)).Methods("GET")

	// Protected routes
	protected := router.PathPrefix("/api").Subrouter()
	protected.Use(auth.JWTMiddleware(cfg.JWTSecret))

	protected.Handle("/auth/register",
		auth.RequireRole(models.RoleAdmin)(auth.RegisterHandler(store))).Methods("POST")
	protected.HandleFunc("/auth/me", auth.MeHandler(store)).Methods("GET")

	protected.HandleFunc("/chat/rooms", handlers.ListChatRooms(store)).Methods("GET")
	protected.Handle("/chat/rooms",
		auth.RequireRole(models.RoleTeknisi, models.RoleAdminRegional, models.RoleAdmin)(
			handlers.CreateOrGetChatRoom(resolver))).Methods("POST")
	protected.HandleFunc("/chat/rooms/{id:[0-9]+}/messages", handlers.GetChatMessages(store)).Methods("GET")
	protected.HandleFunc("/chat/online", handlers.OnlineUsers(registry, redisClient)).Methods("GET")

	protected.HandleFunc("/work-orders", handlers.ListWorkOrders(store)).Methods("GET")
	protected.HandleFunc("/work-orders/statistics", handlers.GetWorkOrderStatistics(store)).Methods("GET")
	protected.Handle("/work-orders/pending-approval",
		auth.RequireRole(models.RoleAdmin, models.RoleAdminRegional)(
			handlers.PendingApproval(store))).Methods("GET")
	protected.HandleFunc("/work-orders/{id:[0-9]+}", handlers.GetWorkOrder(store)).Methods("GET")
	protected.Handle("/work-orders/{id:[0-9]+}",
		auth.RequireRole(models.RoleTeknisi, models.RoleAdmin)(
			handlers.UpdateWorkOrder(store))).Methods("PATCH")
	protected.Handle("/work-orders/{id:[0-9]+}/approval",
		auth.RequireRole(models.RoleAdmin, models.RoleAdminRegional)(
			handlers.ApproveWorkOrder(store))).Methods("POST")

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		slog.Info("server listening", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	slog.Info("shutting down", "signal", sig.String())

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	registry.Shutdown()
	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("forced shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("server stopped gracefully")
}
