// Package main 是应用程序的入口点。
package main

import (
	"context"
	"docqa-go/internal/chain"
	"docqa-go/internal/config"
	"docqa-go/internal/handler"
	"docqa-go/internal/middleware"
	"docqa-go/internal/pipeline"
	"docqa-go/internal/prompt"
	"docqa-go/internal/repository"
	"docqa-go/internal/service"
	"docqa-go/pkg/database"
	"docqa-go/pkg/embedding"
	"docqa-go/pkg/es"
	"docqa-go/pkg/kafka"
	"docqa-go/pkg/llm"
	"docqa-go/pkg/log"
	"docqa-go/pkg/storage"
	"docqa-go/pkg/tika"
	"docqa-go/pkg/token"
	"docqa-go/pkg/vectordb"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
)

// vectorStore 同时提供检索与写入，es.Store 与 vectordb.MemoryStore 都满足。
type vectorStore interface {
	chain.Searcher
	pipeline.VectorIndexer
}

func main() {
	configPath := flag.String("config", "./configs/config.yaml", "path to config file")
	flag.Parse()

	// 1. 初始化配置，缺少必填项时拒绝启动
	config.Init(*configPath)
	cfg := config.Conf

	// 2. 初始化日志记录器
	log.Init(cfg.Log.Level, cfg.Log.Format, cfg.Log.OutputPath)
	defer log.Sync() // 确保在程序退出时刷新所有缓冲的日志条目
	log.Info("日志记录器初始化成功")

	rootCtx, cancelRoot := context.WithCancel(context.Background())
	defer cancelRoot()

	// 3. 初始化向量库（进程级单例，之后只读）
	store, err := initVectorStore(cfg)
	if err != nil {
		log.Fatal("向量库初始化失败", err)
	}

	templates, err := prompt.ForLocale(prompt.Locale(cfg.LLM.Prompt.Locale))
	if err != nil {
		log.Fatal("提示词模板加载失败", err)
	}

	// 4. 可选的基础设施：MySQL 审计与知识库、Redis 会话
	var exchangeRepo repository.ExchangeRepository
	if cfg.Database.MySQL.DSN != "" {
		if err := database.InitMySQL(cfg.Database.MySQL.DSN); err != nil {
			log.Fatal("MySQL 初始化失败", err)
		}
		exchangeRepo = repository.NewExchangeRepository(database.DB)
	} else {
		log.Warnf("未配置 database.mysql.dsn，问答审计与知识库管理已禁用")
	}

	var sessionService service.SessionService
	if cfg.Database.Redis.Addr != "" {
		if err := database.InitRedis(rootCtx, cfg.Database.Redis); err != nil {
			log.Fatal("Redis 初始化失败", err)
		}
		sessionService = service.NewSessionService(repository.NewSessionRepository(database.RDB))
	} else {
		log.Warnf("未配置 database.redis.addr，服务端会话已禁用")
	}

	// 5. 问答服务
	embeddingClient := embedding.NewClient(cfg.Embedding)
	llmClient := llm.NewClient(cfg.LLM)
	qaService := service.NewQAService(
		llmClient,
		embeddingClient,
		store,
		templates,
		service.QAOptions{
			TopK:                cfg.Retrieval.TopK,
			AwaitTimeout:        cfg.Retrieval.AwaitTimeout,
			CondenseTemperature: cfg.LLM.Generation.CondenseTemperature,
			AnswerTemperature:   cfg.LLM.Generation.Temperature,
		},
		sessionService,
		exchangeRepo,
	)

	// 6. 知识库导入：需要 MySQL、Redis、MinIO 与 Kafka
	var knowledgeService service.KnowledgeService
	if database.DB != nil && database.RDB != nil {
		knowledgeService, err = initIngestion(rootCtx, cfg, store, embeddingClient)
		if err != nil {
			log.Fatal("知识库导入初始化失败", err)
		}
	}

	// 7. 设置 Gin 模式并创建路由引擎
	gin.SetMode(cfg.Server.Mode)
	r := gin.New()
	r.Use(middleware.RequestLogger(), gin.Recovery())

	// 8. 注册路由
	r.GET("/healthz", handler.Healthz)
	chatHandler := handler.NewChatHandler(qaService)
	r.Any("/api/chat", chatHandler.Ask)

	apiV1 := r.Group("/api/v1")
	{
		apiV1.Any("/chat", chatHandler.Ask)
		apiV1.GET("/chat/stream", handler.NewStreamHandler(qaService).Handle)

		if sessionService != nil {
			sessionHandler := handler.NewSessionHandler(sessionService)
			apiV1.GET("/sessions/:id", sessionHandler.GetSession)
			apiV1.DELETE("/sessions/:id", sessionHandler.DeleteSession)
		}

		if knowledgeService != nil {
			if cfg.JWT.Secret == "" {
				log.Warnf("未配置 jwt.secret，知识库管理接口未注册")
			} else {
				jwtManager := token.NewJWTManager(cfg.JWT.Secret, cfg.JWT.AccessTokenExpireHours)
				knowledgeHandler := handler.NewKnowledgeHandler(knowledgeService)
				documents := apiV1.Group("/admin/documents")
				documents.Use(middleware.AdminAuthMiddleware(jwtManager))
				{
					documents.POST("", knowledgeHandler.Upload)
					documents.GET("", knowledgeHandler.List)
					documents.DELETE("/:md5", knowledgeHandler.Delete)
					documents.GET("/:md5/download", knowledgeHandler.Download)
				}
			}
		}
	}

	// 9. 初始化导入目录，已导入的文件会被跳过
	if knowledgeService != nil && cfg.Server.SeedDir != "" {
		go seedKnowledgeBase(rootCtx, knowledgeService, cfg.Server.SeedDir)
	}

	// 启动 HTTP 服务器并实现优雅停机
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: r,
	}

	go func() {
		log.Infof("服务启动于 %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP 服务监听失败: %s\n", err)
		}
	}()

	// 等待中断信号以实现优雅停机
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("接收到停机信号，正在关闭服务...")
	cancelRoot() // 停止 Kafka 消费者与初始化导入

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("HTTP 服务器关闭失败: %v", err)
	}
	log.Info("服务已优雅关闭")
}

// initVectorStore 按 retrieval.provider 创建向量库。
func initVectorStore(cfg config.Config) (vectorStore, error) {
	switch cfg.Retrieval.Provider {
	case config.ProviderMemory:
		return vectordb.NewMemoryStore(cfg.Retrieval.MemoryPath, cfg.Retrieval.Namespace)
	default:
		if err := es.InitES(cfg.Elasticsearch, cfg.Embedding.Dimensions); err != nil {
			return nil, err
		}
		return es.NewStore(es.ESClient, cfg.Elasticsearch.IndexName, cfg.Retrieval.Namespace), nil
	}
}

// initIngestion 组装导入链路并启动后台 Kafka 消费者。
func initIngestion(ctx context.Context, cfg config.Config, store vectorStore, embedder embedding.Client) (service.KnowledgeService, error) {
	bucket, err := storage.InitMinIO(ctx, cfg.MinIO)
	if err != nil {
		return nil, err
	}
	fileRepo := repository.NewKnowledgeFileRepository(database.DB, database.RDB)
	chunkRepo := repository.NewChunkRepository(database.DB)

	processor := pipeline.NewProcessor(bucket, tika.NewClient(cfg.Tika), embedder, store, fileRepo, chunkRepo)
	go kafka.StartConsumer(ctx, cfg.Kafka, processor, fileRepo)

	producer := kafka.NewProducer(cfg.Kafka)
	go func() {
		<-ctx.Done()
		if err := producer.Close(); err != nil {
			log.Warnf("关闭 Kafka 生产者失败: %v", err)
		}
	}()
	return service.NewKnowledgeService(fileRepo, bucket, producer, store, cfg.Retrieval.Namespace), nil
}

func seedKnowledgeBase(ctx context.Context, svc service.KnowledgeService, dir string) {
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		log.Infof("初始化目录 '%s' 不存在或不可用，跳过初始化导入", dir)
		return
	}
	if _, err := svc.SeedDirectory(ctx, dir); err != nil {
		log.Warnf("初始化导入失败: %v", err)
	}
}
