package main

import (
	"context"
	"log"
	"time"

	"ChattyWidget/internal/api"
	"ChattyWidget/internal/chunker"
	"ChattyWidget/internal/config"
	"ChattyWidget/internal/database/minio"
	"ChattyWidget/internal/database/mongo"
	"ChattyWidget/internal/database/mysql"
	"ChattyWidget/internal/database/redis"
	"ChattyWidget/internal/embedding"
	"ChattyWidget/internal/formatter"
	"ChattyWidget/internal/loader"
	"ChattyWidget/internal/orchestrator"
	"ChattyWidget/internal/provider"
	"ChattyWidget/internal/retrieval"
	"ChattyWidget/internal/store"
	pkghttp "ChattyWidget/pkg/http"
	"ChattyWidget/pkg/logger"
	"ChattyWidget/pkg/ratelimiter"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig("config.yaml")
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	// Initialize logger
	logger.Init(logger.ParseLevel(cfg.Logger.Level))
	appLogger := logger.New("chatty_service", "", "")
	appLogger.Info("Logger initialized")

	// Initialize database connection and document store
	db, err := mysql.GetDB(&cfg.Databases.MySQL)
	if err != nil {
		appLogger.Fatal(err.Error())
	}
	docStore, err := store.NewGormDocumentStore(db)
	if err != nil {
		appLogger.Fatal(err.Error())
	}
	appLogger.Info("Document store ready")

	// Embedding client, optionally wrapped with a Redis read-through cache
	embedder, err := embedding.NewEmbedder(cfg.Embedding)
	if err != nil {
		appLogger.Fatal(err.Error())
	}
	if cfg.Databases.Redis.Enabled {
		rdb, err := redis.GetClient(&cfg.Databases.Redis)
		if err != nil {
			appLogger.Fatal(err.Error())
		}
		ttl := time.Duration(cfg.Embedding.CacheTTL) * time.Second
		embedder = embedding.NewCachedEmbedder(embedder, rdb, cfg.Embedding.Model, ttl, appLogger)
		appLogger.Info("Embedding cache enabled (redis)")
	} else {
		ttl := time.Duration(cfg.Embedding.CacheTTL) * time.Second
		embedder = embedding.NewMemoryCachedEmbedder(embedder, cfg.Embedding.Model, 64<<20, ttl)
		appLogger.Info("Embedding cache enabled (in-process)")
	}

	// Website documents are re-fetched lazily through the breaker-guarded HTTP client
	httpClient, err := pkghttp.NewClient(cfg.Middleware.CircuitBreaker)
	if err != nil {
		appLogger.Fatal(err.Error())
	}
	fetcher := loader.NewWebFetcher(httpClient)

	embeddings := embedding.NewStore(embedder, docStore, chunker.New(cfg.Retrieval.ChunkSize), fetcher, appLogger)
	searcher := retrieval.NewSearcher(embeddings, docStore, cfg.Retrieval, appLogger)

	// Provider adapters: Ollama always, cloud providers only when an API key is configured
	ollamaAdapter, err := provider.NewOllama(cfg.Providers.Ollama, appLogger)
	if err != nil {
		appLogger.Fatal(err.Error())
	}
	adapters := []provider.Adapter{ollamaAdapter}

	if cfg.Providers.OpenAI.APIKey != "" {
		adapters = append(adapters, provider.NewOpenAI(cfg.Providers.OpenAI, appLogger))
		appLogger.Info("OpenAI provider enabled")
	}
	if cfg.Providers.DeepSeek.APIKey != "" {
		var files store.FileStore
		if cfg.Databases.MinIO.Enabled {
			mc, err := minio.GetClient(&cfg.Databases.MinIO)
			if err != nil {
				appLogger.Fatal(err.Error())
			}
			files = store.NewMinioFileStore(mc, cfg.Databases.MinIO.Bucket)
			appLogger.Info("Raw file store enabled for DeepSeek uploads")
		}
		adapters = append(adapters, provider.NewDeepSeek(cfg.Providers.DeepSeek, files, appLogger))
		appLogger.Info("DeepSeek provider enabled")
	}

	router := provider.NewRouter(appLogger, adapters...)

	// Discover locally installed Ollama models in the background
	go func() {
		listTimeout := time.Duration(cfg.Providers.Ollama.ListTimeout) * time.Second
		ctx, cancel := context.WithTimeout(context.Background(), listTimeout)
		defer cancel()
		ollamaAdapter.DiscoverModels(ctx)
	}()

	// Optional feedback sink
	var feedback store.FeedbackStore
	if cfg.Databases.MongoDB.Enabled {
		mongoClient, err := mongo.GetClient(&cfg.Databases.MongoDB)
		if err != nil {
			appLogger.Fatal(err.Error())
		}
		feedback = store.NewMongoFeedbackStore(mongoClient, cfg.Databases.MongoDB.Database)
		appLogger.Info("Feedback sink enabled")
	}

	orch := orchestrator.New(router, searcher, docStore, formatter.New(appLogger), feedback, appLogger)

	limiter, err := ratelimiter.FromConfig(cfg.Middleware.RateLimiter)
	if err != nil {
		appLogger.Fatal(err.Error())
	}

	handler := api.NewHandler(orch, embeddings, cfg, appLogger)
	engine := api.SetupRouter(handler, cfg.Auth.JwtSecret, limiter)
	appLogger.Info("Router setup completed")

	appLogger.Info("Starting server on " + cfg.App.Address)
	if err := engine.Run(cfg.App.Address); err != nil {
		appLogger.Fatal(err.Error())
	}
}
