package worker

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/starkeranthonio-sudo/churn-predictor-backend/adapter/out/provider/gmail"
	"github.com/starkeranthonio-sudo/churn-predictor-backend/core/domain"
	"github.com/starkeranthonio-sudo/churn-predictor-backend/core/port/out"
	"github.com/starkeranthonio-sudo/churn-predictor-backend/pkg/logger"
)

const mailboxFetchLimit = 10

// MailboxScheduler polls the support mailbox for unread customer email and
// materializes each as a pending message for the analyzer. The sender address
// doubles as the client identifier; a message is marked read only after its
// pending document is stored, so a crash redelivers rather than loses mail.
type MailboxScheduler struct {
	provider      out.MailProvider
	messages      out.MessageRepository
	checkInterval time.Duration
	ctx           context.Context
	cancel        context.CancelFunc
}

// NewMailboxScheduler creates a new mailbox scheduler.
func NewMailboxScheduler(provider out.MailProvider, messages out.MessageRepository, interval time.Duration) *MailboxScheduler {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &MailboxScheduler{
		provider:      provider,
		messages:      messages,
		checkInterval: interval,
		ctx:           ctx,
		cancel:        cancel,
	}
}

// Start starts the scheduler.
func (s *MailboxScheduler) Start() {
	logger.Info("[MailboxScheduler] Starting with interval %v", s.checkInterval)
	go s.run()
}

// Stop stops the scheduler.
func (s *MailboxScheduler) Stop() {
	logger.Info("[MailboxScheduler] Stopping...")
	s.cancel()
}

func (s *MailboxScheduler) run() {
	ticker := time.NewTicker(s.checkInterval)
	defer ticker.Stop()

	s.checkNewMail()

	for {
		select {
		case <-s.ctx.Done():
			logger.Info("[MailboxScheduler] Stopped")
			return
		case <-ticker.C:
			s.checkNewMail()
		}
	}
}

func (s *MailboxScheduler) checkNewMail() {
	ctx, cancel := context.WithTimeout(s.ctx, 2*time.Minute)
	defer cancel()

	mails, err := s.provider.FetchUnread(ctx, mailboxFetchLimit)
	if err != nil {
		logger.Error("[MailboxScheduler] Failed to fetch unread mail: %v", err)
		return
	}
	if len(mails) == 0 {
		return
	}

	logger.Info("[MailboxScheduler] %d new email(s) detected", len(mails))

	for _, m := range mails {
		s.processMail(ctx, m)
	}
}

func (s *MailboxScheduler) processMail(ctx context.Context, m out.InboundMail) {
	_, senderEmail := gmail.ParseSender(m.From)

	pending := &domain.PendingMessage{
		ID:            uuid.NewString(),
		ClientID:      senderEmail,
		Text:          m.Body,
		Subject:       m.Subject,
		NeedsAnalysis: true,
		CreatedAt:     time.Now().UTC(),
	}

	if err := s.messages.SavePending(ctx, pending); err != nil {
		logger.Error("[MailboxScheduler] Failed to store mail %s: %v", m.ProviderID, err)
		return
	}

	if err := s.provider.MarkRead(ctx, m.ProviderID); err != nil {
		logger.Error("[MailboxScheduler] Failed to mark mail %s read: %v", m.ProviderID, err)
		return
	}

	logger.Info("[MailboxScheduler] Queued mail from %s for analysis", senderEmail)
}

// SetCheckInterval sets the check interval (for testing).
func (s *MailboxScheduler) SetCheckInterval(interval time.Duration) {
	s.checkInterval = interval
}
