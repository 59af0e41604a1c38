package router

import (
	"net/http"
	"time"

	"ollama-chat-demo/backend/internal/api"
	"ollama-chat-demo/backend/pkg/config"
	"ollama-chat-demo/backend/pkg/di"
	"ollama-chat-demo/backend/pkg/errors"
	"ollama-chat-demo/backend/pkg/jwt"
	"ollama-chat-demo/backend/pkg/logger"
	"ollama-chat-demo/backend/pkg/middleware"
	"ollama-chat-demo/backend/pkg/observability"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// Track server start time for uptime calculations
var startTime = time.Now()

// Router is the main router for the application
type Router struct {
	Engine    *gin.Engine
	Container *di.Container
	Logger    *logger.Logger
	Config    *config.Config
}

// New creates a new router with the given container
func New(container *di.Container) *Router {
	logger.SetGlobal(container.Logger)
	cfg := config.Get()

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()

	// Logger first so every later middleware has a request-scoped logger
	engine.Use(logger.Middleware(container.Logger))
	engine.Use(errors.ErrorHandler())
	engine.Use(errors.RecoveryWithLogger())

	limiterOpts := middleware.DefaultRateLimiterOptions()
	limiterOpts.Limit = rate.Limit(cfg.Security.RateLimit)
	limiterOpts.Burst = cfg.Security.RateLimitBurst
	rateLimiter := middleware.NewRateLimiter(container.Logger, limiterOpts)
	engine.Use(rateLimiter.Middleware())

	return &Router{
		Engine:    engine,
		Container: container,
		Logger:    container.Logger,
		Config:    cfg,
	}
}

// SetupRoutes registers all application routes
func (r *Router) SetupRoutes() {
	r.Engine.Use(corsMiddleware(r.Config.Security.AllowedOrigins))

	jwtAuth := middleware.JWTAuthMiddleware(r.Container.JWTService, r.Logger)
	adminOnly := middleware.RequireRole(jwt.RoleAdmin)

	authHandler := api.NewAuthHandler(r.Container.UserService, r.Container.SessionController, r.Logger)
	chatController := api.NewChatController(r.Container.SessionController, r.Container.OllamaClient, r.Logger)
	promptController := api.NewPromptController(r.Container.PromptStore, r.Logger)

	r.Engine.GET("/metrics", gin.WrapH(observability.MetricsHandler()))

	v1 := r.Engine.Group("/api/v1")

	// Public routes (no auth required)
	v1.GET("/health", r.healthCheckHandler())
	authRoutes := v1.Group("/auth")
	{
		authRoutes.POST("/signup", authHandler.Signup)
		authRoutes.POST("/login", authHandler.Login)
		authRoutes.POST("/logout", jwtAuth, authHandler.Logout)
		authRoutes.GET("/me", jwtAuth, authHandler.Me)
	}

	// Chat routes (require authentication)
	chats := v1.Group("/chats", jwtAuth)
	{
		chats.POST("", chatController.NewChat)
		chats.GET("", chatController.ListChats)
		chats.GET("/:chatId", chatController.GetChat)
		chats.POST("/:chatId/messages", chatController.SendMessage)
	}

	models := v1.Group("/models", jwtAuth)
	{
		models.GET("", chatController.ListModels)
		models.PUT("/selected", chatController.SelectModel)
	}

	// Prompt library management is admin-only
	prompts := v1.Group("/prompts", jwtAuth, adminOnly)
	{
		prompts.GET("", promptController.List)
		prompts.POST("", promptController.Save)
		prompts.DELETE("/:name", promptController.Delete)
		prompts.GET("/export", promptController.Export)
		prompts.POST("/import", promptController.Import)
	}
}

// healthCheckHandler reports process and database health
func (r *Router) healthCheckHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		dbStatus := "up"
		if r.Container.DB != nil {
			if err := config.TestConnection(r.Container.DB); err != nil {
				dbStatus = "down"
			}
		} else {
			dbStatus = "not configured"
		}

		ollamaStatus := "up"
		if !r.Container.OllamaClient.Reachable(c.Request.Context()) {
			ollamaStatus = "down"
		}

		c.JSON(http.StatusOK, gin.H{
			"status":   "ok",
			"env":      r.Config.Server.Env,
			"database": dbStatus,
			"ollama":   ollamaStatus,
			"uptime":   time.Since(startTime).String(),
		})
	}
}

// corsMiddleware handles cross-origin requests
func corsMiddleware(allowedOrigins []string) gin.HandlerFunc {
	allowAll := len(allowedOrigins) == 0
	origins := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		if o == "*" {
			allowAll = true
		}
		origins[o] = true
	}

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if allowAll {
			c.Header("Access-Control-Allow-Origin", "*")
		} else if origins[origin] {
			c.Header("Access-Control-Allow-Origin", origin)
		}
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Authorization, Content-Type, X-Request-ID")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
