package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"time"
	"visitdesk/app/config"
	"visitdesk/internal/adapters"
	"visitdesk/internal/handlers"
	"visitdesk/internal/models"
	"visitdesk/internal/ports"
	"visitdesk/internal/realtime"
	"visitdesk/internal/repositories"
	"visitdesk/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	otelgin "go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/jaeger"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	tracesdk "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.12.0"
)

type Container struct {
	isShuttingDown bool

	GinEngine   *gin.Engine
	Config      *config.Config
	Redis       *redis.Client
	RateLimiter *RateLimiter

	Metrics        *Metrics
	Logger         *slog.Logger
	TracerProvider *tracesdk.TracerProvider

	Server *http.Server

	Repository *repositories.RepositoryAdapter

	Broker         ports.Broker
	AuthService    *services.AuthService
	ChatService    *services.ChatService
	MessageService *services.MessageService

	ChatHandler      *handlers.ChatHandler
	MessageHandler   *handlers.MessageHandler
	WebSocketHandler *handlers.WebSocketHandler
}

func NewContainer() (*Container, error) {
	container := &Container{}

	if err := container.initCore(); err != nil {
		return nil, err
	}

	container.initProductionFeatures()

	return container, nil
}

func (c *Container) initCore() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}
	c.Config = &cfg

	c.Logger = c.initLogger()
	c.Redis = c.initRedis()
	c.Metrics = NewMetrics()

	if err = c.initTracing(); err != nil {
		return err
	}

	c.Repository, err = repositories.NewRepositoryAdapter(cfg.Database, c.Logger)
	if err != nil {
		c.Logger.Error("repository initialize error", "error", err.Error())
		return err
	}

	c.Broker = c.initBroker()

	c.ChatService = services.NewChatService(c.Repository.Chat, c.Repository.Message, c.Repository.User, c.Logger)
	c.MessageService = services.NewMessageService(c.Repository.Message, c.Repository.Chat, c.Repository.User, c.Broker, c.Logger)
	c.MessageService.SetSentObserver(func(messageType string) {
		c.Metrics.MessagesSent.WithLabelValues(messageType).Inc()
	})

	tokenRepo := adapters.NewRedisTokenRepository(c.Redis)
	c.AuthService = services.NewAuthService(c.Repository.User, tokenRepo, []byte(cfg.JWT.SecretKey), c.Logger)

	c.RateLimiter = NewRateLimiter(cfg.RateLimit.MaxRequests, cfg.RateLimit.Window)

	c.ChatHandler = handlers.NewChatHandler(c.ChatService, c.Logger)
	c.MessageHandler = handlers.NewMessageHandler(c.MessageService, c.Logger)
	c.WebSocketHandler = handlers.NewWebSocketHandler(c.Broker, c.AuthService, c.MessageService, c.ChatService, c.Logger, c.Metrics.ActiveWebSockets)

	c.Server = c.initServer()
	c.GinEngine = c.initGinEngine()
	c.Server.Handler = c.GinEngine

	if cfg.Environment.Current == "development" {
		c.seedSampleUsers()
	}

	return nil
}

func (c *Container) initProductionFeatures() {
	c.initHealthRoutes(c.GinEngine)

	c.GinEngine.Use(services.SecurityMiddleware())
	c.GinEngine.Use(services.RequestIDMiddleware())
}

func (c *Container) initBroker() ports.Broker {
	if c.Config.Broker.Kind == "redis" {
		c.Logger.Info("using redis-backed delivery fan-out")
		return adapters.NewRedisBroker(c.Redis, c.Logger)
	}
	return realtime.NewHub(c.Logger)
}

func (c *Container) initTracing() error {
	if !c.Config.Tracing.Enabled {
		c.Logger.Info("tracing disabled")
		return nil
	}

	exp, err := jaeger.New(jaeger.WithCollectorEndpoint(jaeger.WithEndpoint(c.Config.Tracing.Endpoint)))
	if err != nil {
		return err
	}

	c.TracerProvider = tracesdk.NewTracerProvider(
		tracesdk.WithBatcher(exp),
		tracesdk.WithResource(resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceNameKey.String(c.Config.Tracing.ServiceName),
			attribute.String("environment", c.Config.Environment.Current),
		)),
	)

	otel.SetTracerProvider(c.TracerProvider)

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	c.Logger.Info("tracing initialized", "endpoint", c.Config.Tracing.Endpoint)
	return nil
}

func (c *Container) initHealthRoutes(eng *gin.Engine) {
	eng.GET("/health", func(ctx *gin.Context) {
		health := map[string]string{
			"status":    "ok",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		}

		if err := c.Repository.HealthCheck(ctx.Request.Context()); err != nil {
			health["database"] = "unhealthy"
			health["status"] = "degraded"
			ctx.JSON(503, health)
			return
		}

		if err := c.Redis.Ping().Err(); err != nil {
			health["redis"] = "unhealthy"
			health["status"] = "degraded"
			ctx.JSON(503, health)
			return
		}

		health["database"] = "healthy"
		health["redis"] = "healthy"
		ctx.JSON(200, health)
	})

	eng.GET("/ready", func(ctx *gin.Context) {
		if c.isShuttingDown {
			ctx.JSON(503, gin.H{"status": "shutting down"})
			return
		}
		ctx.JSON(200, gin.H{"status": "ready"})
	})

	eng.GET("/live", func(ctx *gin.Context) {
		ctx.JSON(200, gin.H{"status": "live"})
	})

	eng.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

func (c *Container) initGinEngine() *gin.Engine {
	eng := gin.Default()

	if c.Config.Tracing.Enabled {
		eng.Use(otelgin.Middleware(c.Config.Tracing.ServiceName))
	}
	eng.Use(MetricsMiddleware(c.Metrics))

	api := eng.Group("/api")
	api.Use(RateLimitMiddleware(c.RateLimiter))
	{
		messagesGroup := api.Group("/messages")
		messagesGroup.Use(c.AuthService.AuthMiddleware())
		{
			messagesGroup.POST("", c.MessageHandler.SendMessage)
			messagesGroup.GET("", c.MessageHandler.GetInbox)
			messagesGroup.PUT("/:messageId", c.MessageHandler.EditMessage)
			messagesGroup.DELETE("/:messageId", c.MessageHandler.DeleteMessage)
		}

		chatsGroup := api.Group("/chats")
		chatsGroup.Use(c.AuthService.AuthMiddleware())
		{
			chatsGroup.POST("", c.ChatHandler.CreateChat)
			chatsGroup.GET("", c.ChatHandler.ListChats)
			chatsGroup.GET("/user/:userId",
				services.RequireRoles(models.RoleAdvisor, models.RoleCoordinator, models.RoleDirector),
				c.ChatHandler.ListChatsForUser)
			chatsGroup.GET("/:chatId/details", c.ChatHandler.GetChat)
			chatsGroup.POST("/:chatId/mark-read", c.MessageHandler.MarkRead)
		}

		api.GET("/ws", c.WebSocketHandler.HandleWebSocket)
	}

	return eng
}

func (c *Container) initLogger() *slog.Logger {
	var logger *slog.Logger
	if c.Config.Environment.Current == "development" {
		logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		}))
	} else {
		logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}))
	}

	slog.SetDefault(logger)
	return logger
}

func (c *Container) initRedis() *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     c.Config.Redis.Addr,
		Password: c.Config.Redis.Password,
		DB:       c.Config.Redis.DB,
	})
}

func (c *Container) initServer() *http.Server {
	return &http.Server{
		Addr:         ":" + c.Config.Server.Port,
		ReadTimeout:  time.Duration(c.Config.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(c.Config.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(c.Config.Server.IdleTimeout) * time.Second,
	}
}

func (c *Container) seedSampleUsers() {
	ctx := context.Background()
	sample := []models.User{
		{ID: "advisor-1", Name: "Deniz Aksoy", Role: models.RoleAdvisor},
		{ID: "guide-1", Name: "Mert Kaya", Role: models.RoleGuide},
		{ID: "visitor-1", Name: "Elif Demir", Role: models.RoleVisitor},
	}
	for _, user := range sample {
		if err := c.Repository.User.CreateUser(ctx, user); err != nil {
			c.Logger.Warn("failed to seed sample user", "userID", user.ID, "error", err)
		}
	}
}

func (c *Container) Close() error {
	c.isShuttingDown = true

	if closer, ok := c.Broker.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			c.Logger.Error("failed to close broker", "error", err)
		}
	}

	if c.Repository != nil {
		if err := c.Repository.Close(); err != nil {
			c.Logger.Error("failed to close repository", "error", err)
		}
	}

	if c.TracerProvider != nil {
		if err := c.TracerProvider.Shutdown(context.Background()); err != nil {
			c.Logger.Error("failed to shutdown tracer provider", "error", err)
		}
	}

	if c.Redis != nil {
		return c.Redis.Close()
	}

	return nil
}
