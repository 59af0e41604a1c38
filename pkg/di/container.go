// Package di wires the application's services together.
package di

import (
	"fmt"

	"ollama-chat-demo/backend/internal/ollama"
	"ollama-chat-demo/backend/internal/service"
	"ollama-chat-demo/backend/internal/store"
	"ollama-chat-demo/backend/pkg/cache"
	"ollama-chat-demo/backend/pkg/config"
	"ollama-chat-demo/backend/pkg/jwt"
	"ollama-chat-demo/backend/pkg/logger"

	"gorm.io/gorm"
)

// Container holds all the dependencies for the application
type Container struct {
	DB                *gorm.DB
	Logger            *logger.Logger
	JWTService        *jwt.Service
	UserService       *service.UserService
	ChatStore         store.ChatStore
	PromptStore       store.PromptStore
	OllamaClient      *ollama.Client
	SessionController *service.SessionController
}

// New creates a new dependency injection container
func New(db *gorm.DB, cfg *config.Config, log *logger.Logger) (*Container, error) {
	if cfg == nil {
		cfg = config.Get()
	}
	if log == nil {
		log = logger.GetGlobal()
	}

	jwtService := jwt.NewService(cfg.JWT.Secret, cfg.JWT.Expiry)
	userService := service.NewUserService(db, jwtService)

	// Model tags are cached in redis when configured so replicas share one
	// list, otherwise in process memory.
	var modelCache ollama.ModelCache
	if cfg.Redis.URL != "" {
		modelCache = cache.NewRedis(cfg.Redis.URL)
	} else {
		modelCache = cache.NewMemory(cfg.Cache.MaxSize, cfg.Cache.PurgeWindow)
	}

	ollamaClient := ollama.NewClient(cfg.Ollama.BaseURL, modelCache, cfg.Cache.TTL, log)

	var chatStore store.ChatStore
	var promptStore store.PromptStore
	switch cfg.Storage.Backend {
	case config.StorageFile:
		fileChats, err := store.NewFileChatStore(cfg.Storage.Dir, log)
		if err != nil {
			return nil, fmt.Errorf("failed to create file chat store: %w", err)
		}
		filePrompts, err := store.NewFilePromptStore(cfg.Storage.Dir, log)
		if err != nil {
			return nil, fmt.Errorf("failed to create file prompt store: %w", err)
		}
		chatStore = fileChats
		promptStore = filePrompts
	case config.StoragePostgres:
		chatStore = store.NewGormChatStore(db)
		promptStore = store.NewGormPromptStore(db)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}

	sessions := service.NewSessionController(chatStore, promptStore, ollamaClient, cfg.Ollama.DefaultModel, log)

	return &Container{
		DB:                db,
		Logger:            log,
		JWTService:        jwtService,
		UserService:       userService,
		ChatStore:         chatStore,
		PromptStore:       promptStore,
		OllamaClient:      ollamaClient,
		SessionController: sessions,
	}, nil
}
