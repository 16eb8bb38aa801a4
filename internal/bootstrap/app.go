package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"prayogai-rag/internal/ai"
	"prayogai-rag/internal/app"
	"prayogai-rag/internal/cache"
	"prayogai-rag/internal/config"
	"prayogai-rag/internal/model"
	"prayogai-rag/internal/pkg/extract"
	"prayogai-rag/internal/pkg/logger"
	"prayogai-rag/internal/pkg/retry"
	mysqlClient "prayogai-rag/internal/platform/mysql"
	rabbitmqClient "prayogai-rag/internal/platform/rabbitmq"
	redisClient "prayogai-rag/internal/platform/redis"
	sqliteClient "prayogai-rag/internal/platform/sqlite"
	"prayogai-rag/internal/repository"
	"prayogai-rag/internal/vectorindex"
	"prayogai-rag/internal/worker"
)

type Services struct {
	Auth   *app.AuthService
	Ingest *app.IngestService
	RAG    *app.RAGService
	Chat   *app.ChatService
	Bots   *app.BotService
}

type App struct {
	Config   *config.Config
	Logger   *zap.Logger
	DB       *gorm.DB
	Redis    *redis.Client
	MQConn   *amqp.Connection
	Index    vectorindex.Index
	Services Services

	transcriptWorker    *worker.TranscriptWorker
	transcriptPublisher *rabbitmqClient.TranscriptPublisher
	closers             []func() error

	StartedAt time.Time
}

func New(ctx context.Context) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config failed: %w", err)
	}

	log, err := logger.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, err
	}
	log = log.With(zap.String("app", cfg.App.Name), zap.String("env", cfg.App.Env))

	a := &App{Config: cfg, Logger: log, StartedAt: time.Now()}
	if err := a.init(ctx); err != nil {
		_ = a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) init(ctx context.Context) error {
	cfg := a.Config

	if err := extract.EnableDOCX(cfg.Extract.UniOfficeLicenseKey); err != nil {
		return err
	}
	if !extract.DOCXEnabled() {
		a.Logger.Warn("extract.unioffice_license_key is empty; .docx uploads are disabled")
	}

	db, err := openDB(ctx, cfg)
	if err != nil {
		return err
	}
	a.DB = db
	if err := db.AutoMigrate(model.All()...); err != nil {
		return fmt.Errorf("auto migrate tables failed: %w", err)
	}

	if a.Index, err = a.openIndex(); err != nil {
		return err
	}

	retrievalCache, err := a.openCache(ctx)
	if err != nil {
		return err
	}

	botRepo := repository.NewBotRepository(db)
	docRepo := repository.NewDocumentRepository(db)
	passageRepo := repository.NewPassageRepository(db)
	messageRepo := repository.NewMessageRepository(db)
	userRepo := repository.NewUserRepository(db)

	publisher, err := a.openTranscripts(ctx, messageRepo)
	if err != nil {
		return err
	}

	policy := retry.Policy{
		MaxAttempts: cfg.Retry.Attempts,
		BaseDelay:   cfg.Retry.Delay,
		MaxDelay:    cfg.Retry.MaxDelay,
	}
	llmClient := ai.NewOpenAICompatibleClient(ai.ClientConfig{
		BaseURL: cfg.LLM.BaseURL,
		APIKey:  cfg.LLM.APIKey,
		Timeout: cfg.LLM.Timeout,
	})
	embeddingClient := ai.NewOpenAICompatibleClient(ai.ClientConfig{
		BaseURL: cfg.Embedding.BaseURL,
		APIKey:  cfg.Embedding.APIKey,
		Timeout: cfg.Embedding.Timeout,
	})
	embedder := ai.NewBatchEmbedder(ai.NewOpenAIEmbedder(embeddingClient, cfg.Embedding.Model, policy), cfg.Embedding.BatchSize)
	completer := ai.NewOpenAICompleter(llmClient, cfg.LLM.Model, policy.WithAttempts(2))

	ragService := app.NewRAGService(botRepo, passageRepo, a.Index, embedder, completer, retrievalCache, policy, app.RAGConfig{
		TopK:          cfg.RAG.TopK,
		MinSimilarity: cfg.RAG.MinSimilarity,
	})
	a.Services = Services{
		Auth: app.NewAuthService(userRepo, cfg.Auth.JWTSecret, time.Duration(cfg.Auth.JWTExpireMinute)*time.Minute),
		Ingest: app.NewIngestService(botRepo, docRepo, passageRepo, a.Index, embedder, app.IngestConfig{
			ChunkTokens:   cfg.RAG.ChunkTokens,
			OverlapTokens: cfg.RAG.OverlapTokens,
			Concurrency:   cfg.RAG.IngestConcurrency,
			Timeout:       cfg.RAG.IngestTimeout,
			MaxFileBytes:  cfg.RAG.MaxUploadBytes,
			MaxFiles:      cfg.RAG.MaxFiles,
		}),
		RAG:  ragService,
		Chat: app.NewChatService(ragService, botRepo, messageRepo, publisher),
		Bots: app.NewBotService(botRepo, docRepo, passageRepo, messageRepo, a.Index, retrievalCache, cfg.App.PublicURL),
	}

	a.Logger.Info("application initialised",
		zap.String("database", cfg.Database.Driver),
		zap.String("vector_engine", cfg.Vector.Engine),
		zap.String("cache", cfg.Cache.Driver),
		zap.Bool("rabbitmq", cfg.RabbitMQ.Enabled),
		zap.Strings("upload_types", extract.Extensions()),
	)
	return nil
}

func openDB(ctx context.Context, cfg *config.Config) (*gorm.DB, error) {
	if cfg.Database.Driver == "sqlite" {
		if dir := filepath.Dir(cfg.SQLite.Path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create sqlite dir failed: %w", err)
			}
		}
		return sqliteClient.New(ctx, cfg.SQLite.Path)
	}
	return mysqlClient.New(ctx, cfg.MySQLDSN(), mysqlClient.PoolConfig{
		MaxIdleConns:    cfg.MySQL.MaxIdleConns,
		MaxOpenConns:    cfg.MySQL.MaxOpenConns,
		ConnMaxLifetime: cfg.MySQL.ConnMaxLifetime,
	})
}

func (a *App) openIndex() (vectorindex.Index, error) {
	switch a.Config.Vector.Engine {
	case "memory":
		a.Logger.Warn("using in-memory vector index; vectors are lost on restart")
		return vectorindex.NewMemoryIndex(), nil
	case "sql":
		return vectorindex.NewSQLIndex(a.DB)
	default:
		q := a.Config.Qdrant
		idx, err := vectorindex.NewQdrantIndex(vectorindex.QdrantConfig{
			Host:       q.Host,
			Port:       q.Port,
			APIKey:     q.APIKey,
			UseTLS:     q.UseTLS,
			Collection: q.Collection,
		})
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, idx.Close)
		return idx, nil
	}
}

func (a *App) openCache(ctx context.Context) (cache.RetrievalCache, error) {
	switch a.Config.Cache.Driver {
	case "none":
		return cache.NoopCache{}, nil
	case "memory":
		return cache.NewMemoryCache(a.Config.Cache.RetrievalTTL), nil
	default:
		client, err := redisClient.New(ctx, redisClient.Config{
			Addr:     a.Config.Redis.Addr,
			Password: a.Config.Redis.Password,
			DB:       a.Config.Redis.DB,
		})
		if err != nil {
			return nil, err
		}
		a.Redis = client
		return cache.NewRedisCache(client, a.Config.Cache.RetrievalTTL), nil
	}
}

// openTranscripts returns the publisher chat transcripts go through: the
// RabbitMQ queue with its consumer when enabled, otherwise direct writes.
func (a *App) openTranscripts(ctx context.Context, repo *repository.MessageRepository) (app.AsyncMessagePublisher, error) {
	mq := a.Config.RabbitMQ
	if !mq.Enabled {
		return app.NewDirectPublisher(repo), nil
	}

	conn, err := rabbitmqClient.New(ctx, mq.URL, mq.TranscriptQueue)
	if err != nil {
		return nil, err
	}
	a.MQConn = conn

	a.transcriptWorker = worker.NewTranscriptWorker(conn, repo, mq.TranscriptQueue, a.Logger)
	if err := a.transcriptWorker.Start(ctx); err != nil {
		return nil, fmt.Errorf("start transcript worker failed: %w", err)
	}
	a.transcriptPublisher = rabbitmqClient.NewTranscriptPublisher(conn, mq.TranscriptQueue)
	return a.transcriptPublisher, nil
}

// HealthChecks lists the dependencies reported by /healthz. Disabled
// dependencies map to nil.
func (a *App) HealthChecks() map[string]func(context.Context) error {
	checks := map[string]func(context.Context) error{
		"database": func(ctx context.Context) error {
			sqlDB, err := a.DB.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
		"vector_index": a.Index.Ping,
		"redis":        nil,
		"rabbitmq":     nil,
	}
	if a.Redis != nil {
		checks["redis"] = func(ctx context.Context) error { return a.Redis.Ping(ctx).Err() }
	}
	if a.MQConn != nil {
		checks["rabbitmq"] = func(context.Context) error { return rabbitmqClient.Ping(a.MQConn) }
	}
	return checks
}

// Close waits for background ingestion before releasing connections, so no
// bot is left half written by a shutdown.
func (a *App) Close() error {
	var errs []error
	if a.Services.Ingest != nil {
		a.Services.Ingest.Wait()
	}
	if a.transcriptPublisher != nil {
		errs = append(errs, a.transcriptPublisher.Close())
	}
	if a.transcriptWorker != nil {
		a.transcriptWorker.Close()
	}
	if a.MQConn != nil {
		errs = append(errs, a.MQConn.Close())
	}
	if a.Redis != nil {
		errs = append(errs, a.Redis.Close())
	}
	for _, closeFn := range a.closers {
		errs = append(errs, closeFn())
	}
	if a.DB != nil {
		if sqlDB, err := a.DB.DB(); err == nil {
			errs = append(errs, sqlDB.Close())
		}
	}
	if a.Logger != nil {
		_ = a.Logger.Sync()
	}
	return errors.Join(errs...)
}
