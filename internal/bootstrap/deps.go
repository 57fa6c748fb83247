// Package bootstrap wires configuration, infrastructure and services into
// runnable API and worker processes.
package bootstrap

import (
	"context"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/starkeranthonio-sudo/churn-predictor-backend/adapter/out/messaging"
	"github.com/starkeranthonio-sudo/churn-predictor-backend/adapter/out/mongodb"
	"github.com/starkeranthonio-sudo/churn-predictor-backend/adapter/out/persistence"
	"github.com/starkeranthonio-sudo/churn-predictor-backend/adapter/out/provider/gmail"
	"github.com/starkeranthonio-sudo/churn-predictor-backend/adapter/out/realtime"
	"github.com/starkeranthonio-sudo/churn-predictor-backend/adapter/out/scoring"
	"github.com/starkeranthonio-sudo/churn-predictor-backend/config"
	"github.com/starkeranthonio-sudo/churn-predictor-backend/core/domain"
	"github.com/starkeranthonio-sudo/churn-predictor-backend/core/port/out"
	"github.com/starkeranthonio-sudo/churn-predictor-backend/core/service/alerting"
	"github.com/starkeranthonio-sudo/churn-predictor-backend/core/service/analytics"
	"github.com/starkeranthonio-sudo/churn-predictor-backend/core/service/analyzer"
	"github.com/starkeranthonio-sudo/churn-predictor-backend/core/service/autoresponse"
	"github.com/starkeranthonio-sudo/churn-predictor-backend/core/service/history"
	"github.com/starkeranthonio-sudo/churn-predictor-backend/core/service/ingest"
	"github.com/starkeranthonio-sudo/churn-predictor-backend/core/service/pipeline"
	"github.com/starkeranthonio-sudo/churn-predictor-backend/infra/database"
	"github.com/starkeranthonio-sudo/churn-predictor-backend/pkg/cache"
	"github.com/starkeranthonio-sudo/churn-predictor-backend/pkg/logger"
)

type Dependencies struct {
	Config  *config.Config
	DB      *pgxpool.Pool
	Redis   *redis.Client
	MongoDB *mongo.Client

	// Repositories
	MessageRepo *mongodb.MessageAdapter
	AlertRepo   *mongodb.AlertAdapter
	ClientRepo  out.ClientRepository

	// Messaging
	Producer *messaging.RedisProducer

	// Mailbox
	Gmail *gmail.Adapter

	// Realtime
	MessageBuffer *history.MessageBuffer
	AlertBuffer   *history.AlertBuffer
	Engine        *analytics.Engine
	Hub           *realtime.Hub

	// Services
	IngestService   *ingest.Service
	Pipeline        *pipeline.Pipeline
	AnalyzerService *analyzer.Service
}

func NewDependencies(cfg *config.Config) (*Dependencies, func(), error) {
	deps := &Dependencies{Config: cfg}
	var cleanups []func()

	zlog := zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).
		With().Timestamp().Logger()

	// Redis (broker + realtime backbone, required)
	redisClient, err := database.NewRedis(cfg.RedisURL)
	if err != nil {
		return nil, nil, err
	}
	deps.Redis = redisClient
	cleanups = append(cleanups, func() { redisClient.Close() })
	logger.Info("Redis connected")

	// MongoDB (message documents, required)
	mongoClient, err := mongodb.NewClient(cfg.MongoDBURL)
	if err != nil {
		runCleanups(cleanups)
		return nil, nil, err
	}
	deps.MongoDB = mongoClient
	cleanups = append(cleanups, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		mongoClient.Disconnect(ctx)
	})
	logger.Info("MongoDB connected")

	mongoDB := mongoClient.Database(cfg.MongoDBName)
	deps.MessageRepo = mongodb.NewMessageAdapter(mongoDB)
	deps.AlertRepo = mongodb.NewAlertAdapter(mongoDB)

	{
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := deps.MessageRepo.EnsureIndexes(ctx); err != nil {
			logger.Warn("Failed to ensure message indexes: %v", err)
		}
		cancel()
	}

	// Postgres (client master data, optional)
	if cfg.DatabaseURL != "" {
		db, err := database.NewPostgres(cfg.DatabaseURL)
		if err != nil {
			runCleanups(cleanups)
			return nil, nil, err
		}
		deps.DB = db
		cleanups = append(cleanups, func() { db.Close() })
		deps.ClientRepo = persistence.NewCachedClientRepository(
			persistence.NewClientAdapter(db),
			cache.NewRedisCache(redisClient),
			time.Duration(cfg.ClientCacheTTLSec)*time.Second,
		)
		logger.Info("Postgres connected")
	} else {
		deps.ClientRepo = noClientRepo{}
		logger.Warn("DATABASE_URL not set, client profiles disabled")
	}

	// Messaging
	deps.Producer = messaging.NewRedisProducer(redisClient)

	// Gmail (optional)
	if cfg.GoogleClientID != "" && cfg.GmailRefreshToken != "" {
		deps.Gmail = gmail.NewAdapter(gmail.Config{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			RefreshToken: cfg.GmailRefreshToken,
		}, zlog)
		logger.Info("Gmail adapter configured")
	} else {
		logger.Warn("Gmail not configured, outbound mail disabled")
	}

	// Realtime view
	deps.MessageBuffer = history.NewMessageBuffer(history.DefaultMessageCapacity)
	deps.AlertBuffer = history.NewAlertBuffer(history.DefaultAlertCapacity)
	deps.Engine = analytics.NewEngine(cfg.AnalyticsWindowSize)

	// The hub replays history from the buffers, the pipeline broadcasts
	// through the hub. Feeding the hub from the buffers directly keeps the
	// construction order acyclic.
	deps.Hub = realtime.NewHub(bufferHistory{deps.MessageBuffer, deps.AlertBuffer}, zlog)
	deps.Pipeline = pipeline.New(
		deps.MessageRepo,
		deps.MessageBuffer,
		deps.AlertBuffer,
		deps.Engine,
		deps.Hub,
		zlog,
	)

	// Services
	deps.IngestService = ingest.New(deps.Producer)

	if len(cfg.OpenAIAPIKeys) > 0 {
		scorer, err := scoring.NewOpenAIScorer(scoring.Config{
			APIKeys:     cfg.OpenAIAPIKeys,
			Model:       cfg.LLMModel,
			MaxTokens:   cfg.LLMMaxTokens,
			Temperature: cfg.LLMTemperature,
		}, zlog)
		if err != nil {
			runCleanups(cleanups)
			return nil, nil, err
		}

		svc := analyzer.New(deps.MessageRepo, deps.ClientRepo, scorer, deps.Producer, analyzer.Config{
			BatchSize:    cfg.AnalyzerBatchSize,
			HistoryDepth: cfg.HistoryDepth,
		})

		// Post-scoring stages run as sinks in registration order.
		if deps.Gmail != nil {
			svc.AddSink(autoresponse.New(deps.ClientRepo, deps.MessageRepo, deps.Gmail))
		}
		var alertMailer out.Mailer
		if deps.Gmail != nil {
			alertMailer = deps.Gmail
		}
		svc.AddSink(alerting.New(deps.ClientRepo, deps.MessageRepo, deps.AlertRepo, deps.Producer, alertMailer, cfg.AdminEmail))

		deps.AnalyzerService = svc
	} else {
		logger.Warn("No OpenAI API keys configured, analyzer disabled")
	}

	cleanup := func() { runCleanups(cleanups) }
	return deps, cleanup, nil
}

func runCleanups(cleanups []func()) {
	for i := len(cleanups) - 1; i >= 0; i-- {
		cleanups[i]()
	}
}

// bufferHistory feeds new hub subscribers the same replay window the history
// endpoint serves.
type bufferHistory struct {
	messages *history.MessageBuffer
	alerts   *history.AlertBuffer
}

func (b bufferHistory) History() ([]domain.ScoredMessage, []domain.AlertEvent) {
	return b.messages.Snapshot(pipeline.ReplayMessages), b.alerts.Snapshot(pipeline.ReplayAlerts)
}

// noClientRepo serves deployments without a clients database. Every lookup is
// a soft miss.
type noClientRepo struct{}

func (noClientRepo) FindByID(ctx context.Context, clientID string) (*domain.ClientProfile, error) {
	return nil, nil
}
