// Package bootstrap 按配置组装服务依赖，供 server 与 initdb 两个入口共用。
package bootstrap

import (
	"context"
	"fmt"
	"time"

	"docqa-go/internal/config"
	"docqa-go/internal/pipeline"
	"docqa-go/internal/repository"
	"docqa-go/internal/service"
	"docqa-go/pkg/database"
	"docqa-go/pkg/embedding"
	"docqa-go/pkg/es"
	"docqa-go/pkg/llm"
	"docqa-go/pkg/log"
	"docqa-go/pkg/storage"
	"docqa-go/pkg/tika"
)

// App 持有组装完成的服务。
type App struct {
	Chat service.ChatService
}

// Build 初始化外部连接并装配 ChatService。
// Redis 与 MySQL 是可选的：地址为空时直接跳过，连接失败时记录告警后降级运行。
func Build(ctx context.Context, cfg config.Config) (*App, error) {
	// 1. Embedding 客户端，Redis 可用时包一层缓存
	var embedder embedding.Client = embedding.NewClient(cfg.Embedding)
	if cfg.Database.Redis.Addr != "" {
		if err := database.InitRedis(ctx, cfg.Database.Redis); err != nil {
			log.Warnf("Redis 不可用，embedding 缓存已关闭: %v", err)
		} else {
			ttl := time.Duration(cfg.Embedding.CacheTTLHours) * time.Hour
			embedder = embedding.NewCachedClient(embedder, database.RDB, ttl)
		}
	}
	log.Infow("embedding 客户端就绪", "model", embedder.Model(), "dims", embedder.Dimensions())

	// 2. 分块登记表
	var chunkRepo repository.ChunkRepository
	if cfg.Database.MySQL.DSN != "" {
		if err := database.InitMySQL(cfg.Database.MySQL.DSN); err != nil {
			log.Warnf("MySQL 不可用，分块登记表已关闭: %v", err)
		} else if err := database.Migrate(database.DB); err != nil {
			log.Warnf("分块登记表迁移失败: %v", err)
		} else {
			chunkRepo = repository.NewChunkRepository(database.DB)
		}
	}

	// 3. 向量索引
	vectorRepo, err := buildVectorRepository(ctx, cfg, embedder)
	if err != nil {
		return nil, err
	}
	indexService := service.NewIndexService(vectorRepo, embedder, cfg.Elasticsearch.BatchSize)

	// 4. 生成器
	llmClient, err := llm.NewClient(cfg.LLM)
	if err != nil {
		return nil, fmt.Errorf("初始化 LLM 客户端失败: %w", err)
	}
	generator := service.NewGenerator(llmClient, cfg.LLM.Generation)

	// 5. 语料处理管道
	ingestor, err := buildIngestor(ctx, cfg)
	if err != nil {
		return nil, err
	}

	// 6. 会话与编排
	sessions := service.NewSessionStore(cfg.Session.MaxSessions, time.Duration(cfg.Session.TTLMinutes)*time.Minute)
	chat := service.NewChatService(service.ChatServiceDeps{
		Index:     indexService,
		Generator: generator,
		Ingestor:  ingestor,
		Sessions:  sessions,
		ChunkRepo: chunkRepo,
		ModelName: embedder.Model(),
		TopK:      cfg.Retrieval.TopK,
	})

	return &App{Chat: chat}, nil
}

func buildVectorRepository(ctx context.Context, cfg config.Config, embedder embedding.Client) (repository.VectorRepository, error) {
	switch cfg.Retrieval.Backend {
	case "memory":
		log.Info("使用进程内向量索引")
		return repository.NewMemoryVectorRepository(), nil
	case "", "elasticsearch":
		spec := es.IndexSpec{
			Name:  cfg.Elasticsearch.IndexName,
			Model: embedder.Model(),
			Dims:  embedder.Dimensions(),
		}
		if err := es.InitES(ctx, cfg.Elasticsearch, spec); err != nil {
			return nil, fmt.Errorf("es 初始化失败: %w", err)
		}
		return repository.NewESVectorRepository(es.ESClient, spec), nil
	default:
		return nil, fmt.Errorf("未知的检索后端: %s", cfg.Retrieval.Backend)
	}
}

func buildIngestor(ctx context.Context, cfg config.Config) (*pipeline.Ingestor, error) {
	var source pipeline.Source
	switch cfg.Corpus.Source {
	case "minio":
		if err := storage.InitMinIO(ctx, cfg.MinIO); err != nil {
			return nil, err
		}
		source = &pipeline.MinIOSource{
			Client:     storage.MinioClient,
			Bucket:     cfg.MinIO.BucketName,
			Prefix:     cfg.MinIO.Prefix,
			Extensions: cfg.Corpus.Extensions,
		}
	case "", "local":
		source = &pipeline.LocalSource{Dir: cfg.Corpus.DataDir, Extensions: cfg.Corpus.Extensions}
	default:
		return nil, fmt.Errorf("未知的语料来源: %s", cfg.Corpus.Source)
	}

	extractor, err := pipeline.NewExtractor(cfg.Corpus.Extractor, tika.NewClient(cfg.Tika))
	if err != nil {
		return nil, err
	}
	metadata, err := pipeline.NewMetadataExtractor(cfg.Corpus.IDPattern, cfg.Corpus.DocIDPattern)
	if err != nil {
		return nil, err
	}
	return pipeline.NewIngestor(source, extractor, metadata, cfg.Corpus)
}
