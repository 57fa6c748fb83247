package autoresponse

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/starkeranthonio-sudo/churn-predictor-backend/core/domain"
)

type stubMessageRepo struct {
	responseSent map[string]string // message id -> tone
}

func newStubMessageRepo() *stubMessageRepo {
	return &stubMessageRepo{responseSent: make(map[string]string)}
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
func (r *stubMessageRepo) MarkResponseSent(_ context.Context, id string, tone, _ string) error {
	r.responseSent[id] = tone
	return nil
}
func (r *stubMessageRepo) MarkAlertSent(context.Context, string) error { return nil }

type stubClientRepo struct {
	profile *domain.ClientProfile
	err     error
}

func (r stubClientRepo) FindByID(context.Context, string) (*domain.ClientProfile, error) {
	return r.profile, r.err
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

func scoredMsg(score int) *domain.ScoredMessage {
	return &domain.ScoredMessage{
		ID:       "msg-1",
		ClientID: "client-1",
		Text:     "The export keeps failing",
		Subject:  "Export broken",
		Score:    score,
		SuggestedReplies: []domain.SuggestedReply{
			{Tone: "empathetic", Text: "We are sorry about the export trouble."},
			{Tone: "solution", Text: "Please retry with the new endpoint."},
		},
	}
}

func TestHighScoreRequiresValidation(t *testing.T) {
	mailer := &recordingMailer{}
	svc := New(stubClientRepo{profile: &domain.ClientProfile{Email: "a@b.test"}}, newStubMessageRepo(), mailer)

	if err := svc.HandleResult(context.Background(), scoredMsg(domain.ScoreAutoSend)); err != nil {
		t.Fatalf("HandleResult() error = %v", err)
	}
	if mailer.sends != 0 {
		t.Error("score at the auto-send threshold must not trigger a reply")
	}
}

func TestSendsFirstSuggestedReply(t *testing.T) {
	repo := newStubMessageRepo()
	mailer := &recordingMailer{}
	svc := New(stubClientRepo{profile: &domain.ClientProfile{Name: "Acme", Email: "ops@acme.test"}}, repo, mailer)

	if err := svc.HandleResult(context.Background(), scoredMsg(40)); err != nil {
		t.Fatalf("HandleResult() error = %v", err)
	}

	if mailer.sends != 1 {
		t.Fatalf("sends = %d, want 1", mailer.sends)
	}
	if mailer.to != "ops@acme.test" {
		t.Errorf("to = %q, want the client email", mailer.to)
	}
	if mailer.subject != "Re: Export broken" {
		t.Errorf("subject = %q, want the original subject prefixed", mailer.subject)
	}
	if !strings.Contains(mailer.body, "We are sorry about the export trouble.") {
		t.Error("body does not contain the first suggested reply")
	}
	if repo.responseSent["msg-1"] != "empathetic" {
		t.Errorf("recorded tone = %q, want empathetic", repo.responseSent["msg-1"])
	}
}

func TestNoSuggestedRepliesSkips(t *testing.T) {
	mailer := &recordingMailer{}
	svc := New(stubClientRepo{profile: &domain.ClientProfile{Email: "a@b.test"}}, newStubMessageRepo(), mailer)

	msg := scoredMsg(20)
	msg.SuggestedReplies = nil
	if err := svc.HandleResult(context.Background(), msg); err != nil {
		t.Fatalf("HandleResult() error = %v", err)
	}
	if mailer.sends != 0 {
		t.Error("reply sent despite having nothing to send")
	}
}

func TestUnknownClientSkips(t *testing.T) {
	mailer := &recordingMailer{}
	svc := New(stubClientRepo{}, newStubMessageRepo(), mailer)

	if err := svc.HandleResult(context.Background(), scoredMsg(20)); err != nil {
		t.Fatalf("HandleResult() error = %v", err)
	}
	if mailer.sends != 0 {
		t.Error("reply sent to a client with no known email")
	}
}

func TestClientLookupErrorPropagates(t *testing.T) {
	svc := New(stubClientRepo{err: errors.New("connection refused")}, newStubMessageRepo(), &recordingMailer{})

	if err := svc.HandleResult(context.Background(), scoredMsg(20)); err == nil {
		t.Fatal("HandleResult() = nil, want lookup error")
	}
}
