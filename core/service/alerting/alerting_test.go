package alerting

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/starkeranthonio-sudo/churn-predictor-backend/core/domain"
)

type stubMessageRepo struct {
	alertSent map[string]bool
}

func newStubMessageRepo() *stubMessageRepo {
	return &stubMessageRepo{alertSent: make(map[string]bool)}
}

func (r *stubMessageRepo) SavePending(context.Context, *domain.PendingMessage) error { return nil }
func (r *stubMessageRepo) SaveScored(context.Context, *domain.ScoredMessage) error   { return nil }
func (r *stubMessageRepo) FindPendingBatch(context.Context, int) ([]domain.PendingMessage, error) {
	return nil, nil
}
func (r *stubMessageRepo) CompleteAnalysis(context.Context, string, *domain.AnalysisResult) error {
	return nil
}
func (r *stubMessageRepo) FailAnalysis(context.Context, string, string) error { return nil }
func (r *stubMessageRepo) RecentHistory(context.Context, string, int) ([]domain.HistoryEntry, error) {
	return nil, nil
}
func (r *stubMessageRepo) MarkResponseSent(context.Context, string, string, string) error {
	return nil
}
func (r *stubMessageRepo) MarkAlertSent(_ context.Context, id string) error {
	r.alertSent[id] = true
	return nil
}

type stubClientRepo struct {
	profile *domain.ClientProfile
}

func (r stubClientRepo) FindByID(context.Context, string) (*domain.ClientProfile, error) {
	return r.profile, nil
}

type recordingAlertRepo struct {
	saved []*domain.AlertEvent
}

func (r *recordingAlertRepo) SaveAlert(_ context.Context, alert *domain.AlertEvent) error {
	r.saved = append(r.saved, alert)
	return nil
}

type recordingProducer struct {
	alerts []*domain.AlertEvent
	err    error
}

func (p *recordingProducer) PublishInbound(context.Context, *domain.InboundMessage) error {
	return nil
}
func (p *recordingProducer) PublishScored(context.Context, *domain.ScoredMessage) error { return nil }
func (p *recordingProducer) PublishAlert(_ context.Context, alert *domain.AlertEvent) error {
	if p.err != nil {
		return p.err
	}
	p.alerts = append(p.alerts, alert)
	return nil
}

type recordingMailer struct {
	to      string
	subject string
	body    string
	sends   int
}

func (m *recordingMailer) Send(_ context.Context, to, subject, htmlBody string) error {
	m.sends++
	m.to = to
	m.subject = subject
	m.body = htmlBody
	return nil
}

func criticalMsg(score int) *domain.ScoredMessage {
	return &domain.ScoredMessage{
		ID:       "msg-1",
		ClientID: "client-1",
		Text:     "Cancel everything, I am moving to a competitor",
		Score:    score,
		Reasons:  []string{"explicit cancellation intent"},
		Action:   "call the client today",
	}
}

func TestBelowThresholdIsNoop(t *testing.T) {
	producer := &recordingProducer{}
	alerts := &recordingAlertRepo{}
	svc := New(stubClientRepo{}, newStubMessageRepo(), alerts, producer, nil, "")

	if err := svc.HandleResult(context.Background(), criticalMsg(domain.ScoreCritical-1)); err != nil {
		t.Fatalf("HandleResult() error = %v", err)
	}
	if len(producer.alerts) != 0 || len(alerts.saved) != 0 {
		t.Error("alert raised below the critical threshold")
	}
}

func TestCriticalRaisesAlert(t *testing.T) {
	repo := newStubMessageRepo()
	producer := &recordingProducer{}
	alerts := &recordingAlertRepo{}
	mailer := &recordingMailer{}
	clients := stubClientRepo{profile: &domain.ClientProfile{Name: "Acme", Email: "ops@acme.test"}}

	svc := New(clients, repo, alerts, producer, mailer, "admin@corp.test")

	if err := svc.HandleResult(context.Background(), criticalMsg(92)); err != nil {
		t.Fatalf("HandleResult() error = %v", err)
	}

	if len(producer.alerts) != 1 {
		t.Fatalf("published alerts = %d, want 1", len(producer.alerts))
	}
	alert := producer.alerts[0]
	if alert.ClientName != "Acme" || alert.ClientEmail != "ops@acme.test" {
		t.Errorf("alert profile = %q/%q, want the enriched client profile", alert.ClientName, alert.ClientEmail)
	}
	if alert.Score != 92 {
		t.Errorf("alert score = %d, want 92", alert.Score)
	}

	if len(alerts.saved) != 1 {
		t.Error("alert not persisted")
	}
	if !repo.alertSent["msg-1"] {
		t.Error("message not flagged as alerted")
	}

	if mailer.sends != 1 || mailer.to != "admin@corp.test" {
		t.Errorf("admin mail sends = %d to %q, want 1 to admin@corp.test", mailer.sends, mailer.to)
	}
	if !strings.Contains(mailer.subject, "92/100") {
		t.Errorf("subject = %q, want the score in it", mailer.subject)
	}
	if !strings.Contains(mailer.body, "explicit cancellation intent") {
		t.Error("alert body does not list the detected reasons")
	}
}

func TestPublishFailurePropagates(t *testing.T) {
	producer := &recordingProducer{err: errors.New("broker down")}
	svc := New(stubClientRepo{}, newStubMessageRepo(), &recordingAlertRepo{}, producer, nil, "")

	if err := svc.HandleResult(context.Background(), criticalMsg(95)); err == nil {
		t.Fatal("HandleResult() = nil, want publish error")
	}
}

func TestNoMailerStillPersists(t *testing.T) {
	repo := newStubMessageRepo()
	producer := &recordingProducer{}
	alerts := &recordingAlertRepo{}
	svc := New(stubClientRepo{}, repo, alerts, producer, nil, "")

	if err := svc.HandleResult(context.Background(), criticalMsg(85)); err != nil {
		t.Fatalf("HandleResult() error = %v", err)
	}
	if len(producer.alerts) != 1 || len(alerts.saved) != 1 || !repo.alertSent["msg-1"] {
		t.Error("alert path incomplete without a configured mailer")
	}
}
