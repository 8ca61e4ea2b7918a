// Package docqa provides the document QA server implementation.
package docqa

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kart-io/logger"
	goredis "github.com/redis/go-redis/v9"

	"github.com/kart-io/docqa/internal/docqa/biz"
	"github.com/kart-io/docqa/internal/docqa/handler"
	"github.com/kart-io/docqa/internal/docqa/router"
	"github.com/kart-io/docqa/internal/docqa/store"
	"github.com/kart-io/docqa/internal/docqa/watcher"
	"github.com/kart-io/docqa/pkg/llm"
	cacheopts "github.com/kart-io/docqa/pkg/options/cache"
	docqaopts "github.com/kart-io/docqa/pkg/options/docqa"
	httpopts "github.com/kart-io/docqa/pkg/options/http"
	llmopts "github.com/kart-io/docqa/pkg/options/llm"
	logopts "github.com/kart-io/docqa/pkg/options/logger"

	// 导入 LLM 供应商以自动注册
	_ "github.com/kart-io/docqa/pkg/llm/openai"
)

// Name is the name of the application.
const Name = "docqa"

// shutdownTimeout bounds graceful HTTP shutdown.
const shutdownTimeout = 10 * time.Second

// Config contains application-related configurations.
type Config struct {
	HTTPOptions      *httpopts.Options
	LogOptions       *logopts.Options
	EmbeddingOptions *llmopts.ProviderOptions
	ChatOptions      *llmopts.ProviderOptions
	DocQAOptions     *docqaopts.Options
	CacheOptions     *cacheopts.Options
}

// Server represents the docqa server.
type Server struct {
	cfg        *Config
	httpServer *http.Server
	manager    *store.Manager
	watcher    *watcher.Watcher
	redisClose func()
}

// samplingParams 将配置的默认采样参数转换为调用级参数。
func samplingParams(o *docqaopts.SamplingOptions) llm.SamplingParams {
	if o == nil {
		return llm.DefaultSamplingParams()
	}
	return llm.SamplingParams{
		Temperature:      o.Temperature,
		MaxTokens:        o.MaxTokens,
		TopP:             o.TopP,
		FrequencyPenalty: o.FrequencyPenalty,
		PresencePenalty:  o.PresencePenalty,
	}
}

// NewServer initializes and returns a new Server instance.
func (cfg *Config) NewServer(ctx context.Context) (*Server, error) {
	// 1. 初始化日志
	if err := cfg.LogOptions.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	logger.Info("Starting docqa service...")

	// 2. 初始化向量存储
	if err := os.MkdirAll(filepath.Dir(cfg.DocQAOptions.VectorStorePath), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create vector store directory: %w", err)
	}
	manager := store.NewManager(cfg.DocQAOptions.VectorStorePath)
	logger.Infof("Vector store initialized at %s", cfg.DocQAOptions.VectorStorePath)

	// 3. 初始化 Redis 客户端（用于缓存）
	var redisClient *goredis.Client
	var answerCache *biz.AnswerCache
	var redisClose func()
	if cfg.CacheOptions.Enabled && cfg.CacheOptions.Redis != nil {
		redisOpts := cfg.CacheOptions.Redis
		redisClient = goredis.NewClient(&goredis.Options{
			Addr:         redisOpts.Addr(),
			Password:     redisOpts.Password,
			DB:           redisOpts.Database,
			MaxRetries:   redisOpts.MaxRetries,
			PoolSize:     redisOpts.PoolSize,
			MinIdleConns: redisOpts.MinIdleConns,
		})

		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.Warnw("failed to connect to redis, cache will be disabled", "error", err.Error())
			_ = redisClient.Close()
			redisClient = nil
		} else {
			answerCache = biz.NewAnswerCache(redisClient, cfg.CacheOptions.KeyPrefix, cfg.CacheOptions.TTL)
			redisClose = func() { _ = redisClient.Close() }
			logger.Infow("Redis answer cache initialized",
				"addr", redisOpts.Addr(),
				"ttl", cfg.CacheOptions.TTL)
		}
	} else {
		logger.Info("Answer cache is disabled")
	}

	// 4. 初始化 LLM 供应商
	embedProvider, err := llm.NewEmbeddingProvider(cfg.EmbeddingOptions.Provider, cfg.EmbeddingOptions.ToConfigMap())
	if err != nil {
		_ = manager.Close()
		return nil, fmt.Errorf("failed to initialize embedding provider: %w", err)
	}
	if redisClient != nil {
		embedProvider = llm.NewCachedEmbeddingProvider(embedProvider, redisClient, llm.DefaultEmbeddingCacheConfig())
	}
	logger.Infow("Embedding provider initialized",
		"provider", cfg.EmbeddingOptions.Provider,
		"model", cfg.EmbeddingOptions.Model)

	chatProvider, err := llm.NewChatProvider(cfg.ChatOptions.Provider, cfg.ChatOptions.ToConfigMap())
	if err != nil {
		_ = manager.Close()
		return nil, fmt.Errorf("failed to initialize chat provider: %w", err)
	}
	logger.Infow("Chat provider initialized",
		"provider", cfg.ChatOptions.Provider,
		"model", cfg.ChatOptions.Model)

	// 5. 初始化业务层
	defaults := samplingParams(cfg.DocQAOptions.Sampling)
	ingestor := biz.NewIngestor(manager, embedProvider, &biz.IngestorConfig{
		DataDir:      cfg.DocQAOptions.DataDir,
		ChunkSize:    cfg.DocQAOptions.ChunkSize,
		ChunkOverlap: cfg.DocQAOptions.ChunkOverlap,
	})
	retriever := biz.NewRetriever(manager, embedProvider, &biz.RetrieverConfig{
		TopK:               cfg.DocQAOptions.TopK,
		RelevanceThreshold: cfg.DocQAOptions.RelevanceThreshold,
		FallbackTopK:       cfg.DocQAOptions.FallbackTopK,
	})
	assembler := biz.NewPromptAssembler(cfg.DocQAOptions.PromptTemplate)
	classifier := biz.NewLLMClassifier(chatProvider, defaults)
	service := biz.NewDocQAService(ingestor, retriever, assembler, classifier, chatProvider, manager, answerCache, &biz.ServiceConfig{
		DataDir:         cfg.DocQAOptions.DataDir,
		HistoryLimit:    cfg.DocQAOptions.HistoryLimit,
		DefaultSampling: defaults,
	})

	// 6. 初始化目录监视器（可选）
	var dirWatcher *watcher.Watcher
	if cfg.DocQAOptions.Watch {
		if err := os.MkdirAll(cfg.DocQAOptions.DataDir, 0o755); err != nil {
			_ = manager.Close()
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
		dirWatcher, err = watcher.New(service, cfg.DocQAOptions.DataDir)
		if err != nil {
			_ = manager.Close()
			return nil, fmt.Errorf("failed to create directory watcher: %w", err)
		}
	}

	// 7. 初始化 HTTP 服务
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.MaxMultipartMemory = cfg.HTTPOptions.MaxUploadSize

	inferenceHandler := handler.NewInferenceHandler(service)
	ingestionHandler := handler.NewIngestionHandler(service, cfg.DocQAOptions.DataDir)
	router.Register(engine, inferenceHandler, ingestionHandler)

	httpServer := &http.Server{
		Addr:         cfg.HTTPOptions.Addr,
		Handler:      engine,
		ReadTimeout:  cfg.HTTPOptions.ReadTimeout,
		WriteTimeout: cfg.HTTPOptions.WriteTimeout,
		IdleTimeout:  cfg.HTTPOptions.IdleTimeout,
	}

	return &Server{
		cfg:        cfg,
		httpServer: httpServer,
		manager:    manager,
		watcher:    dirWatcher,
		redisClose: redisClose,
	}, nil
}

// Run starts the server and blocks until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	if s.watcher != nil {
		if err := s.watcher.Start(ctx); err != nil {
			return fmt.Errorf("failed to start directory watcher: %w", err)
		}
		// 启动即触发一次，消化已有的待处理文件
		s.watcher.Trigger()
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Infof("HTTP server listening on %s", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server error: %w", err)
	case <-ctx.Done():
	}

	logger.Info("Shutting down docqa service...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Errorw("http server shutdown failed", "error", err.Error())
	}

	if s.watcher != nil {
		if err := s.watcher.Close(); err != nil {
			logger.Warnw("failed to close directory watcher", "error", err.Error())
		}
	}
	if s.redisClose != nil {
		s.redisClose()
	}
	if err := s.manager.Close(); err != nil {
		logger.Warnw("failed to close vector store", "error", err.Error())
	}

	logger.Info("docqa service stopped")
	return nil
}
