package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"live_event_platform/internal/config"
	"live_event_platform/internal/domain"
	"live_event_platform/internal/handler"
	"live_event_platform/internal/middleware"
	"live_event_platform/internal/repository"
	"live_event_platform/internal/service"
	"live_event_platform/pkg/logger"
	"live_event_platform/pkg/token"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

func main() {
	// Загрузка конфигурации
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Инициализация логгера
	appLogger := logger.New(cfg.Log.Level)

	// Подключение к PostgreSQL
	dbPool, err := pgxpool.New(context.Background(), cfg.Database.DSN)
	if err != nil {
		appLogger.Fatal("Failed to connect to database", "error", err)
	}
	defer dbPool.Close()

	// Проверка подключения к БД
	if err := dbPool.Ping(context.Background()); err != nil {
		appLogger.Fatal("Failed to ping database", "error", err)
	}
	appLogger.Info("Database connection established")

	// Подключение к Redis
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()

	// Проверка подключения к Redis
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		appLogger.Fatal("Failed to connect to Redis", "error", err)
	}
	appLogger.Info("Redis connection established")

	// Шифратор bearer-токенов
	sealer, err := token.NewSealer(cfg.Token.SealKey)
	if err != nil {
		appLogger.Fatal("Failed to init token sealer", "error", err)
	}

	// Хранилище секретов для ключа подписи CDN-cookie
	secrets, err := service.NewSecretsManagerStore(context.Background(), cfg.Signing.AWSRegion)
	if err != nil {
		appLogger.Fatal("Failed to init secret store", "error", err)
	}

	// In-process hub живых WebSocket-соединений
	hub := handler.NewHub(appLogger)

	// Инициализация репозиториев
	repos := repository.NewRepositories(dbPool, rdb, appLogger)

	// Инициализация сервисов
	services := service.NewServices(repos, cfg, sealer, hub, secrets, appLogger)

	// Инициализация middleware
	authMiddleware := middleware.NewAuthMiddleware(services.Token, appLogger)
	rateLimitMiddleware := middleware.NewRateLimitMiddleware(services.RateLimit, appLogger)

	// Инициализация handlers
	handlers := handler.NewHandlers(services, hub, cfg, appLogger)

	// Настройка роутера
	router := setupRouter(handlers, authMiddleware, rateLimitMiddleware, cfg)

	// Запуск HTTP сервера
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		appLogger.Info("Starting server", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Fatal("Failed to start server", "error", err)
		}
	}()

	// Ожидание сигнала для graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		appLogger.Fatal("Server forced to shutdown", "error", err)
	}

	appLogger.Info("Server exited")
}

func setupRouter(
	handlers *handler.Handlers,
	authMiddleware *middleware.AuthMiddleware,
	rateLimitMiddleware *middleware.RateLimitMiddleware,
	cfg *config.Config,
) *gin.Engine {
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS())
	router.Use(middleware.RequestLogger())
	router.Use(middleware.ErrorHandler())

	// Health check
	router.GET("/health", handlers.Health.Check)

	// API v1
	v1 := router.Group("/api/v1")
	{
		events := v1.Group("/events/:eventId")
		{
			// Публичные endpoints
			events.POST("/authenticate", rateLimitMiddleware.Limit(), handlers.Auth.Authenticate)
			events.GET("/broadcast", handlers.Broadcast.Authorize)

			// Meeting-токен: любая роль с действующим токеном, допуск
			// участника проверяет handler
			events.POST("/meeting-token",
				authMiddleware.Require(domain.RoleModerator, domain.RoleTalent, domain.RoleAttendee),
				handlers.LiveEvent.MeetingToken)

			// Административный срез модератора
			admin := events.Group("")
			admin.Use(authMiddleware.Require(domain.RoleModerator))
			{
				admin.GET("/hand-raises", handlers.LiveEvent.ListHandRaises)
				admin.POST("/attendees/:attendeeId/live", handlers.LiveEvent.PromoteLiveAttendee)
				admin.DELETE("/attendees/:attendeeId/live", handlers.LiveEvent.DemoteLiveAttendee)
				admin.POST("/kick", handlers.LiveEvent.Kick)
				admin.POST("/access-keys", handlers.LiveEvent.MintAccessKey)
			}
		}
	}

	// WebSocket endpoints: токен проверяется до upgrade
	router.GET("/ws/events/:eventId", handlers.WebSocket.HandleLiveEvent)
	router.GET("/ws/meetings/:meetingId", handlers.WebSocket.HandleMeeting)

	return router
}
