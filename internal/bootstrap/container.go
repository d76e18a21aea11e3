package bootstrap

import (
	"context"
	"log"

	"ai-knowledgebase-be/internal/config"
	"ai-knowledgebase-be/internal/controller"
	"ai-knowledgebase-be/internal/pkg/logger"
	"ai-knowledgebase-be/internal/repository/implementation"
	"ai-knowledgebase-be/internal/repository/unitofwork"
	"ai-knowledgebase-be/internal/service"
	"ai-knowledgebase-be/pkg/embedding"
	"ai-knowledgebase-be/pkg/embedding/jina"
	"ai-knowledgebase-be/pkg/fulltext"
	"ai-knowledgebase-be/pkg/llm/factory"
	"ai-knowledgebase-be/pkg/rag/expand"
	"ai-knowledgebase-be/pkg/rag/rerank"
	"ai-knowledgebase-be/pkg/rag/topic"
	"ai-knowledgebase-be/pkg/vectorstore"

	pktNats "ai-knowledgebase-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// defaultDimensions matches the vector(768) column; providers with other
// output sizes register their own value.
const defaultDimensions = 768

type Container struct {
	// Controllers
	IndexingController  controller.IIndexingController
	RetrievalController controller.IRetrievalController

	// Background Services (Exposed for main.go to run)
	IndexerService service.IIndexerService

	Logger logger.ILogger
}

func NewContainer(db *gorm.DB, cfg *config.Config) *Container {
	// 1. Core Facades
	uowFactory := unitofwork.NewRepositoryFactory(db)
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")

	// 2. Event Bus
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{},
		watermillLogger,
	)

	// 3. Embedding Providers
	providers := embedding.NewRegistry()
	providers.Register(embedding.NewOllamaProvider(
		cfg.Embedding.OllamaBaseURL,
		cfg.Embedding.OllamaModel,
		defaultDimensions,
	))
	if cfg.Embedding.GeminiAPIKey != "" {
		providers.Register(embedding.NewGeminiProvider(cfg.Embedding.GeminiAPIKey))
	}
	if cfg.Embedding.JinaAPIKey != "" {
		providers.Register(jina.NewJinaProvider(cfg.Embedding.JinaAPIKey))
	}
	if err := providers.SetDefault(cfg.Embedding.Provider); err != nil {
		log.Printf("[WARN] Embedding provider %q not configured, keeping first registered default", cfg.Embedding.Provider)
	}

	// 4. Vector Store and Lexical Index
	// Only stores backed by the same chunk table as the lexical index are
	// registered here; both arms must agree on membership.
	embeddingRepo := implementation.NewNoteEmbeddingRepository(db)
	stores := vectorstore.NewRegistry()
	stores.Register(vectorstore.NewRepositoryStore("pgvector", embeddingRepo))

	lexicalIndex := fulltext.NewRepositoryIndex(embeddingRepo)

	// 5. Chat Provider (optional stages degrade to pass-through without it)
	chatProvider, err := factory.NewChatProvider(
		cfg.LLM.Provider,
		cfg.LLM.Model,
		cfg.LLM.OllamaBaseURL,
		cfg.LLM.HuggingFaceAPIKey,
	)
	if err != nil {
		log.Printf("[WARN] LLM provider unavailable, expansion/rerank/topics disabled: %v", err)
		chatProvider = nil
	} else {
		log.Printf("[INFO] Using LLM Provider: %s (%s)", cfg.LLM.Provider, cfg.LLM.Model)
	}

	// 6. Infrastructure
	natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
		natsPub = nil
	}
	if natsPub != nil {
		natsSub, err := pktNats.NewSubscriber(cfg.App.NatsURL)
		if err != nil {
			log.Printf("[WARN] Failed to connect to NATS Subscriber: %v", err)
		} else if err := natsSub.Subscribe(pktNats.AllEvents, "kb-lifecycle-audit", service.NewLifecycleAuditHandler(sysLogger)); err != nil {
			log.Printf("[WARN] Failed to subscribe to lifecycle events: %v", err)
		}
	}

	var cancelRegistry service.CancelRegistry
	opt, err := redis.ParseURL(cfg.App.RedisURL)
	if err != nil {
		log.Printf("[WARN] Failed to parse Redis URL: %v. Using direct Addr", err)
		opt = &redis.Options{Addr: cfg.App.RedisURL}
	}
	rdb := redis.NewClient(opt)
	if _, err := rdb.Ping(context.Background()).Result(); err != nil {
		log.Printf("[WARN] Failed to connect to Redis, using in-process cancellation: %v", err)
		cancelRegistry = service.NewMemoryCancelRegistry()
	} else {
		cancelRegistry = service.NewRedisCancelRegistry(rdb)
	}

	// 7. Services
	publisherService := service.NewPublisherService(cfg.Indexing.TopicName, pubSub)
	indexerService := service.NewIndexerService(
		pubSub,
		cfg.Indexing.TopicName,
		uowFactory,
		providers,
		stores,
		cancelRegistry,
		natsPub,
		cfg.Indexing,
		sysLogger,
	)
	indexingService := service.NewIndexingService(
		uowFactory,
		publisherService,
		providers,
		stores,
		cancelRegistry,
		natsPub,
		cfg.Indexing,
		sysLogger,
	)

	expander := expand.NewExpander(chatProvider, sysLogger)
	reranker := rerank.NewReranker(chatProvider, sysLogger)
	classifier := topic.NewClassifier(chatProvider, sysLogger)

	retrievalService := service.NewRetrievalService(
		uowFactory,
		providers,
		stores,
		lexicalIndex,
		expander,
		reranker,
		classifier,
		cfg.Retrieval,
		sysLogger,
	)

	// 8. Controllers
	return &Container{
		IndexingController:  controller.NewIndexingController(indexingService),
		RetrievalController: controller.NewRetrievalController(retrievalService),
		IndexerService:      indexerService,
		Logger:              sysLogger,
	}
}
