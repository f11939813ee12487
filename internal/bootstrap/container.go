package bootstrap

import (
	"context"
	"log"
	"path/filepath"

	"game-exploration-be/internal/config"
	"game-exploration-be/internal/controller"
	"game-exploration-be/internal/handler"
	"game-exploration-be/internal/pkg/logger"
	"game-exploration-be/internal/repository/memory"
	"game-exploration-be/internal/repository/unitofwork"
	"game-exploration-be/internal/service"
	"game-exploration-be/internal/websocket"
	"game-exploration-be/pkg/exploration/debuglog"
	"game-exploration-be/pkg/exploration/preview"
	"game-exploration-be/pkg/exploration/stage"
	"game-exploration-be/pkg/llm"
	"game-exploration-be/pkg/llm/factory"
	"game-exploration-be/pkg/templates"

	pktNats "game-exploration-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Container struct {
	// Controllers
	ExplorationController controller.IExplorationController
	VersionController     controller.IVersionController
	DebugController       controller.IDebugController

	// Background Services (Exposed for main.go to run)
	ConsumerService service.IConsumerService

	// WebSockets
	StreamHandler *handler.ExplorationStreamHandler
	WebSocketHub  *websocket.Hub

	Logger   logger.ILogger
	DebugLog *debuglog.Buffer

	closers []func()
}

// NewContainer builds the provider from config and exits when it is misconfigured.
func NewContainer(db *gorm.DB, cfg *config.Config) *Container {
	llmProvider, err := factory.NewLLMProvider(factory.ProviderConfig{
		Provider: cfg.Ai.LLMProvider,
		Model:    cfg.Ai.LLMModel,
		BaseURL:  providerBaseURL(cfg),
		APIKey:   cfg.Ai.OpenAIAPIKey,
		Timeout:  cfg.Ai.Timeout,
	})
	if err != nil {
		log.Fatalf("[FATAL] Failed to initialize LLM Provider: %v", err)
	}
	log.Printf("[INFO] Using LLM Provider: %s (%s)", cfg.Ai.LLMProvider, cfg.Ai.LLMModel)

	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.IsProduction())
	return NewContainerWithProvider(db, cfg, llmProvider, sysLogger)
}

// NewContainerWithProvider wires every component around an existing provider.
func NewContainerWithProvider(db *gorm.DB, cfg *config.Config, llmProvider llm.LLMProvider, sysLogger logger.ILogger) *Container {
	c := &Container{Logger: sysLogger}

	// 1. Core Facades
	uowFactory := unitofwork.NewRepositoryFactory(db)
	catalog, err := templates.Default()
	if err != nil {
		log.Fatalf("[FATAL] Failed to load template catalog: %v", err)
	}

	// 2. Event Bus
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{OutputChannelBuffer: 64},
		watermill.NewStdLogger(false, false),
	)
	c.closers = append(c.closers, func() { _ = pubSub.Close() })

	// 3. Infrastructure
	rdb := connectRedis(cfg.App.RedisURL)
	if rdb != nil {
		c.closers = append(c.closers, func() { _ = rdb.Close() })
	}

	var external service.ExternalPublisher
	if cfg.App.NatsURL != "" {
		natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL)
		if err != nil {
			log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
		} else {
			external = natsPub
			c.closers = append(c.closers, natsPub.Close)
		}
	}

	var previewStore preview.Store = memory.NewPreviewRepository()
	if rdb != nil {
		previewStore = memory.NewRedisPreviewRepository(rdb)
	}
	previews := preview.NewCache(previewStore,
		preview.WithTTL(cfg.Preview.TTL),
		preview.WithMaxFixAttempts(cfg.Preview.MaxFixAttempts),
	)

	wsLogger := logger.NewIsolatedLogger(filepath.Join(filepath.Dir(cfg.App.LogFilePath), "exploration_stream.log"))
	wsHub := websocket.NewHub(rdb, wsLogger)

	// 4. Pipeline
	c.DebugLog = debuglog.New(cfg.App.DebugLogCapacity)
	runner := stage.NewRunner(llmProvider, c.DebugLog, sysLogger, stage.Config{
		Model:      cfg.Ai.LLMModel,
		Timeout:    cfg.Ai.Timeout,
		MaxRetries: cfg.Ai.MaxRetries,
		BaseDelay:  cfg.Ai.RetryBaseDelay,
	})

	// 5. Services
	eventService := service.NewEventService(pubSub, service.ExplorationTopic, sysLogger)
	memoryService := service.NewMemoryService(uowFactory, sysLogger)
	versionService := service.NewVersionService(uowFactory, sysLogger)
	explorationService := service.NewExplorationService(
		uowFactory,
		runner,
		catalog,
		previews,
		memoryService,
		eventService,
		sysLogger,
	)
	c.ConsumerService = service.NewConsumerService(pubSub, service.ExplorationTopic, external, wsHub, sysLogger)

	// 6. Controllers
	c.ExplorationController = controller.NewExplorationController(explorationService, memoryService)
	c.VersionController = controller.NewVersionController(versionService)
	c.DebugController = controller.NewDebugController(c.DebugLog)
	c.StreamHandler = handler.NewExplorationStreamHandler(wsHub, wsLogger)
	c.WebSocketHub = wsHub

	return c
}

// Start runs the websocket hub and the event consumer until ctx is done.
func (c *Container) Start(ctx context.Context) error {
	go c.WebSocketHub.Run(ctx)
	return c.ConsumerService.Consume(ctx)
}

func (c *Container) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
}

func providerBaseURL(cfg *config.Config) string {
	if cfg.Ai.LLMProvider == "ollama" {
		return cfg.Ai.OllamaBaseURL
	}
	return cfg.Ai.OpenAIBaseURL
}

// connectRedis returns nil when url is empty or the server is unreachable.
func connectRedis(url string) *redis.Client {
	if url == "" {
		return nil
	}
	opt, err := redis.ParseURL(url)
	if err != nil {
		log.Printf("[WARN] Failed to parse Redis URL: %v. Using direct Addr", err)
		opt = &redis.Options{Addr: url}
	}
	rdb := redis.NewClient(opt)
	if _, err := rdb.Ping(context.Background()).Result(); err != nil {
		log.Printf("[WARN] Failed to connect to Redis: %v. Using in-memory preview cache", err)
		_ = rdb.Close()
		return nil
	}
	return rdb
}
