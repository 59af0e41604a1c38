package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ollama-chat-demo/backend/internal/models"
	"ollama-chat-demo/backend/pkg/config"
	"ollama-chat-demo/backend/pkg/di"
	"ollama-chat-demo/backend/pkg/logger"
	"ollama-chat-demo/backend/pkg/observability"
	"ollama-chat-demo/backend/pkg/router"

	"github.com/joho/godotenv"
	"gorm.io/gorm"
)

func main() {
	godotenv.Load()

	cfg := config.New()

	log := logger.New(logger.Config{
		Level: cfg.Logging.Level,
		JSON:  cfg.Logging.Format == "json",
	})
	logger.SetGlobal(log)

	log.Info("Starting server",
		"env", cfg.Server.Env,
		"port", cfg.Server.Port,
		"storage", cfg.Storage.Backend,
	)

	db, err := config.NewDB()
	if err != nil {
		log.LogError(err, "Failed to connect to database")
		os.Exit(1)
	}

	if err := migrate(db); err != nil {
		log.LogError(err, "Failed to run migrations")
		os.Exit(1)
	}

	shutdownTracing := observability.SetupTracing("ollama-chat-backend", log)
	defer shutdownTracing()
	observability.SetupPrometheusMetrics(log)

	container, err := di.New(db, cfg, log)
	if err != nil {
		log.LogError(err, "Failed to build application container")
		os.Exit(1)
	}

	r := router.New(container)
	r.SetupRoutes()

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      r.Engine,
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: cfg.Server.Timeout,
		IdleTimeout:  2 * cfg.Server.Timeout,
	}

	go func() {
		log.Info("Listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.LogError(err, "Server failed")
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.LogError(err, "Forced shutdown")
	}

	log.Info("Server stopped")
}

func migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.ChatRecord{},
		&models.PromptTemplate{},
	)
}
