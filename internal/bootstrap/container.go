package bootstrap

import (
	"context"
	"log"

	"voice-journal-be/internal/config"
	"voice-journal-be/internal/controller"
	"voice-journal-be/internal/handler"
	"voice-journal-be/internal/pkg/clock"
	"voice-journal-be/internal/pkg/logger"
	"voice-journal-be/internal/repository/memory"
	"voice-journal-be/internal/repository/unitofwork"
	"voice-journal-be/internal/service"
	"voice-journal-be/internal/websocket"
	"voice-journal-be/pkg/llm/factory"
	pktNats "voice-journal-be/pkg/nats"
	"voice-journal-be/pkg/storage"
	"voice-journal-be/pkg/tts"
	"voice-journal-be/pkg/voice/orchestrator"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Container struct {
	// Controllers
	SessionController controller.ISessionController

	// Background services (exposed for main.go to run)
	ArchivalService service.IArchivalService

	// WebSockets
	RealtimeHandler *handler.RealtimeHandler
	WebSocketHub    *websocket.Hub
}

func NewContainer(db *gorm.DB, cfg *config.Config) *Container {
	// 1. Core facades
	uowFactory := unitofwork.NewRepositoryFactory(db)
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")

	// 2. In-process work queue
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{},
		watermillLogger,
	)

	// 3. AI providers
	llmProvider, err := factory.NewLLMProvider(cfg.Ai.LLMProvider)
	if err != nil {
		log.Fatalf("[FATAL] Failed to initialize LLM provider: %v", err)
	}
	log.Printf("[INFO] Using LLM provider: %s (%s)", cfg.Ai.LLMProvider, cfg.Ai.LLMModel)

	store, err := storage.NewClient(storage.Config{
		Endpoint:  cfg.Storage.Endpoint,
		Region:    cfg.Storage.Region,
		Bucket:    cfg.Storage.Bucket,
		AccessKey: cfg.Storage.AccessKey,
		SecretKey: cfg.Storage.SecretKey,
		PublicURL: cfg.Storage.PublicURL,
	})
	if err != nil {
		log.Fatalf("[FATAL] Failed to initialize storage client: %v", err)
	}

	var ttsProvider tts.Provider
	if cfg.Ai.TTSProvider == "elevenlabs" {
		ttsProvider = tts.NewElevenLabsProvider(cfg.Keys.ElevenLabs, store)
		log.Printf("[INFO] Using TTS provider: ELEVENLABS")
	} else {
		ttsProvider = tts.NewGatewayProvider(cfg.Ai.TTSGatewayURL)
		log.Printf("[INFO] Using TTS provider: GATEWAY (%s)", cfg.Ai.TTSGatewayURL)
	}

	orch := orchestrator.New(llmProvider, ttsProvider, cfg.Ai.TTSVoice)

	// 4. Infrastructure
	natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS publisher: %v", err)
	}

	natsSub, err := pktNats.NewSubscriber(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS subscriber: %v", err)
	}

	opt, err := redis.ParseURL(cfg.App.RedisURL)
	if err != nil {
		log.Printf("[WARN] Failed to parse Redis URL: %v. Using direct Addr", err)
		opt = &redis.Options{
			Addr: cfg.App.RedisURL,
		}
	}
	rdb := redis.NewClient(opt)
	if _, err := rdb.Ping(context.Background()).Result(); err != nil {
		log.Printf("[WARN] Failed to connect to Redis: %v", err)
	}

	// WebSocket hub
	wsLogger := logger.NewIsolatedLogger("logs/realtime.log")
	wsHub := websocket.NewHub(rdb, wsLogger)
	go wsHub.Run()

	// 5. Services
	var eventBus service.IEventPublisher
	if natsPub != nil {
		eventBus = natsPub
	}

	liveRuns := memory.NewLiveRunRepository()
	systemClock := clock.System()

	publisherService := service.NewPublisherService(pubSub, cfg.Keys.ArchiveTopic)
	entitlementService := service.NewEntitlementService(uowFactory, rdb, cfg.Session, sysLogger)

	sessionService := service.NewSessionService(
		uowFactory,
		entitlementService,
		publisherService,
		eventBus,
		wsHub,
		systemClock,
		cfg.Session,
		sysLogger,
	)

	conversationService := service.NewConversationService(
		uowFactory,
		orch,
		liveRuns,
		wsHub,
		publisherService,
		systemClock,
		cfg.Session,
		sysLogger,
	)

	archivalService := service.NewArchivalService(
		pubSub,
		cfg.Keys.ArchiveTopic,
		uowFactory,
		store,
		wsHub,
		eventBus,
		sysLogger,
	)

	if natsSub != nil {
		relayService := service.NewRelayService(natsSub, wsHub, wsLogger)
		relayService.Start()
	}

	realtimeHandler := handler.NewRealtimeHandler(wsHub, wsLogger)

	return &Container{
		SessionController: controller.NewSessionController(sessionService, conversationService),
		ArchivalService:   archivalService,
		RealtimeHandler:   realtimeHandler,
		WebSocketHub:      wsHub,
	}
}
