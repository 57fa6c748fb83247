package worker

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/starkeranthonio-sudo/churn-predictor-backend/core/service/analyzer"
	"github.com/starkeranthonio-sudo/churn-predictor-backend/pkg/logger"
)

// AnalyzerScheduler drives the deferred-analysis loop: every tick it asks the
// analyzer service to drain one batch of pending messages. A tick that fires
// while the previous batch is still running is skipped, so at most one batch
// is in flight.
type AnalyzerScheduler struct {
	service       *analyzer.Service
	checkInterval time.Duration
	running       int32
	ctx           context.Context
	cancel        context.CancelFunc
}

// NewAnalyzerScheduler creates a new analyzer scheduler.
func NewAnalyzerScheduler(service *analyzer.Service, interval time.Duration) *AnalyzerScheduler {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &AnalyzerScheduler{
		service:       service,
		checkInterval: interval,
		ctx:           ctx,
		cancel:        cancel,
	}
}

// Start starts the scheduler.
func (s *AnalyzerScheduler) Start() {
	logger.Info("[AnalyzerScheduler] Starting with interval %v", s.checkInterval)
	go s.run()
}

// Stop stops the scheduler.
func (s *AnalyzerScheduler) Stop() {
	logger.Info("[AnalyzerScheduler] Stopping...")
	s.cancel()
}

func (s *AnalyzerScheduler) run() {
	ticker := time.NewTicker(s.checkInterval)
	defer ticker.Stop()

	s.processBatch()

	for {
		select {
		case <-s.ctx.Done():
			logger.Info("[AnalyzerScheduler] Stopped")
			return
		case <-ticker.C:
			s.processBatch()
		}
	}
}

func (s *AnalyzerScheduler) processBatch() {
	if !atomic.CompareAndSwapInt32(&s.running, 0, 1) {
		logger.Debug("[AnalyzerScheduler] Previous batch still running, skipping tick")
		return
	}
	defer atomic.StoreInt32(&s.running, 0)

	ctx, cancel := context.WithTimeout(s.ctx, 2*time.Minute)
	defer cancel()

	processed, err := s.service.ProcessBatch(ctx)
	if err != nil {
		logger.Error("[AnalyzerScheduler] Batch failed: %v", err)
		return
	}
	if processed > 0 {
		logger.Info("[AnalyzerScheduler] Processed %d message(s)", processed)
	}
}

// SetCheckInterval sets the check interval (for testing).
func (s *AnalyzerScheduler) SetCheckInterval(interval time.Duration) {
	s.checkInterval = interval
}
