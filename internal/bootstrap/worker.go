package bootstrap

import (
	"context"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/starkeranthonio-sudo/churn-predictor-backend/adapter/in/worker"
	"github.com/starkeranthonio-sudo/churn-predictor-backend/adapter/out/messaging"
	"github.com/starkeranthonio-sudo/churn-predictor-backend/config"
	"github.com/starkeranthonio-sudo/churn-predictor-backend/pkg/logger"
)

// Worker runs the consumer group and the periodic schedulers.
type Worker struct {
	consumer          *messaging.Consumer
	analyzerScheduler *worker.AnalyzerScheduler
	mailboxScheduler  *worker.MailboxScheduler
	deps              *Dependencies
	ctx               context.Context
	cancel            context.CancelFunc
	wg                sync.WaitGroup
	zlog              zerolog.Logger
}

func NewWorker(cfg *config.Config, deps *Dependencies) (*Worker, error) {
	zlog := zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).
		With().Timestamp().Str("component", "worker").Logger()

	ctx, cancel := context.WithCancel(context.Background())

	w := &Worker{
		deps:   deps,
		ctx:    ctx,
		cancel: cancel,
		zlog:   zlog,
	}

	streams := []string{
		messaging.StreamInbound,
		messaging.StreamScores,
		messaging.StreamAlerts,
	}
	w.consumer = messaging.NewConsumer(deps.Redis, &messaging.ConsumerConfig{
		Group:                "churn-workers",
		Consumer:             cfg.WorkerID,
		Streams:              streams,
		Handler:              &streamHandler{deps: deps},
		Logger:               zlog,
		BatchSize:            int64(cfg.ConsumerBatchSize),
		BlockTimeout:         time.Duration(cfg.ConsumerBlockMS) * time.Millisecond,
		PendingCheckInterval: time.Duration(cfg.ConsumerPendingCheckSec) * time.Second,
		MaxRetries:           cfg.ConsumerMaxRetries,
	})
	logger.Info("Redis Stream consumer configured for %d streams", len(streams))

	if deps.AnalyzerService != nil {
		w.analyzerScheduler = worker.NewAnalyzerScheduler(deps.AnalyzerService, cfg.AnalyzerInterval())
		logger.Info("Analyzer scheduler configured (interval %s)", cfg.AnalyzerInterval())
	} else {
		logger.Warn("Analyzer scheduler disabled, no scorer available")
	}

	if cfg.MailboxEnabled && deps.Gmail != nil {
		w.mailboxScheduler = worker.NewMailboxScheduler(deps.Gmail, deps.MessageRepo, cfg.MailboxInterval())
		logger.Info("Mailbox scheduler configured (interval %s)", cfg.MailboxInterval())
	}

	return w, nil
}

// streamHandler routes consumed records into the pipeline by stream name.
type streamHandler struct {
	deps *Dependencies
}

func (h *streamHandler) Handle(ctx context.Context, stream string, data []byte) error {
	switch stream {
	case messaging.StreamInbound:
		return h.deps.Pipeline.HandleInbound(ctx, data)
	case messaging.StreamScores:
		return h.deps.Pipeline.HandleScored(ctx, data)
	case messaging.StreamAlerts:
		return h.deps.Pipeline.HandleAlert(ctx, data)
	default:
		logger.Warn("[StreamHandler] Unroutable stream: %s", stream)
		return nil
	}
}

func (w *Worker) Start() {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.zlog.Info().Msg("Starting Redis Stream consumer...")
		if err := w.consumer.Run(w.ctx); err != nil && err != context.Canceled {
			w.zlog.Error().Err(err).Msg("Redis Stream consumer error")
		}
	}()

	if w.analyzerScheduler != nil {
		w.analyzerScheduler.Start()
		w.zlog.Info().Msg("Started analyzer scheduler")
	}
	if w.mailboxScheduler != nil {
		w.mailboxScheduler.Start()
		w.zlog.Info().Msg("Started mailbox scheduler")
	}

	<-w.ctx.Done()
}

func (w *Worker) Stop() {
	w.cancel()

	if w.analyzerScheduler != nil {
		w.analyzerScheduler.Stop()
	}
	if w.mailboxScheduler != nil {
		w.mailboxScheduler.Stop()
	}

	w.wg.Wait()
}

func (w *Worker) Dependencies() *Dependencies {
	return w.deps
}
