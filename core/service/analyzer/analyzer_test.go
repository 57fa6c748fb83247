package analyzer

import (
	"context"
	"errors"
	"testing"

	"github.com/starkeranthonio-sudo/churn-predictor-backend/core/domain"
)

// fakeMessageRepo keeps pending messages in memory and mimics the one-shot
// selection semantics of the document store.
type fakeMessageRepo struct {
	pending   map[string]*domain.PendingMessage
	completed map[string]*domain.AnalysisResult
	failed    map[string]string
	histErr   error
}

func newFakeMessageRepo() *fakeMessageRepo {
	return &fakeMessageRepo{
		pending:   make(map[string]*domain.PendingMessage),
		completed: make(map[string]*domain.AnalysisResult),
		failed:    make(map[string]string),
	}
}

func (r *fakeMessageRepo) SavePending(_ context.Context, msg *domain.PendingMessage) error {
	r.pending[msg.ID] = msg
	return nil
}

func (r *fakeMessageRepo) SaveScored(context.Context, *domain.ScoredMessage) error { return nil }

func (r *fakeMessageRepo) FindPendingBatch(_ context.Context, limit int) ([]domain.PendingMessage, error) {
	var out []domain.PendingMessage
	for _, m := range r.pending {
		if !m.NeedsAnalysis {
			continue
		}
		out = append(out, *m)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (r *fakeMessageRepo) CompleteAnalysis(_ context.Context, id string, result *domain.AnalysisResult) error {
	r.pending[id].NeedsAnalysis = false
	r.completed[id] = result
	return nil
}

func (r *fakeMessageRepo) FailAnalysis(_ context.Context, id string, cause string) error {
	r.pending[id].NeedsAnalysis = false
	r.pending[id].AnalysisError = cause
	r.failed[id] = cause
	return nil
}

func (r *fakeMessageRepo) RecentHistory(context.Context, string, int) ([]domain.HistoryEntry, error) {
	return nil, r.histErr
}

func (r *fakeMessageRepo) MarkResponseSent(context.Context, string, string, string) error { return nil }
func (r *fakeMessageRepo) MarkAlertSent(context.Context, string) error                    { return nil }

type fakeClientRepo struct{}

func (fakeClientRepo) FindByID(context.Context, string) (*domain.ClientProfile, error) {
	return &domain.ClientProfile{ID: "client-1", Name: "Acme", Email: "ops@acme.test"}, nil
}

type fakeScorer struct {
	result *domain.AnalysisResult
	err    error
	calls  int
}

func (s *fakeScorer) Score(context.Context, string, string, []domain.HistoryEntry, *domain.ClientProfile) (*domain.AnalysisResult, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

type fakeProducer struct {
	scored []*domain.ScoredMessage
	alerts []*domain.AlertEvent
	err    error
}

func (p *fakeProducer) PublishInbound(context.Context, *domain.InboundMessage) error { return nil }

func (p *fakeProducer) PublishScored(_ context.Context, msg *domain.ScoredMessage) error {
	if p.err != nil {
		return p.err
	}
	p.scored = append(p.scored, msg)
	return nil
}

func (p *fakeProducer) PublishAlert(_ context.Context, alert *domain.AlertEvent) error {
	p.alerts = append(p.alerts, alert)
	return nil
}

type recordingSink struct {
	name string
	seen []*domain.ScoredMessage
	err  error
}

func (s *recordingSink) Name() string { return s.name }

func (s *recordingSink) HandleResult(_ context.Context, msg *domain.ScoredMessage) error {
	s.seen = append(s.seen, msg)
	return s.err
}

func pendingMsg(id string) *domain.PendingMessage {
	return &domain.PendingMessage{
		ID:            id,
		ClientID:      "client-1",
		Text:          "I want to cancel my subscription",
		NeedsAnalysis: true,
	}
}

func TestProcessBatchSuccess(t *testing.T) {
	repo := newFakeMessageRepo()
	repo.SavePending(context.Background(), pendingMsg("msg-1"))

	scorer := &fakeScorer{result: &domain.AnalysisResult{
		Score:     72,
		Sentiment: domain.SentimentNegative,
		Keywords:  []string{"cancel"},
	}}
	producer := &fakeProducer{}
	sink := &recordingSink{name: "recorder"}

	svc := New(repo, fakeClientRepo{}, scorer, producer, Config{})
	svc.AddSink(sink)

	n, err := svc.ProcessBatch(context.Background())
	if err != nil {
		t.Fatalf("ProcessBatch() error = %v", err)
	}
	if n != 1 {
		t.Fatalf("processed = %d, want 1", n)
	}

	if _, ok := repo.completed["msg-1"]; !ok {
		t.Error("analysis result not written back")
	}
	if len(producer.scored) != 1 || producer.scored[0].Score != 72 {
		t.Errorf("published = %+v, want one message with score 72", producer.scored)
	}
	if len(sink.seen) != 1 {
		t.Errorf("sink saw %d messages, want 1", len(sink.seen))
	}
}

func TestScoringFailureIsTerminal(t *testing.T) {
	repo := newFakeMessageRepo()
	repo.SavePending(context.Background(), pendingMsg("msg-1"))

	scorer := &fakeScorer{err: errors.New("all scoring projects failed")}
	svc := New(repo, fakeClientRepo{}, scorer, &fakeProducer{}, Config{})

	if _, err := svc.ProcessBatch(context.Background()); err != nil {
		t.Fatalf("ProcessBatch() error = %v", err)
	}

	msg := repo.pending["msg-1"]
	if msg.NeedsAnalysis {
		t.Error("needsAnalysis still true after scoring failure")
	}
	if msg.AnalysisError == "" {
		t.Error("analysisError not recorded")
	}

	// The item must never be selected again.
	n, err := svc.ProcessBatch(context.Background())
	if err != nil {
		t.Fatalf("second ProcessBatch() error = %v", err)
	}
	if n != 0 {
		t.Errorf("second tick picked up %d items, want 0", n)
	}
	if scorer.calls != 1 {
		t.Errorf("scorer called %d times, want exactly 1", scorer.calls)
	}
}

func TestBatchIsolation(t *testing.T) {
	repo := newFakeMessageRepo()
	repo.SavePending(context.Background(), pendingMsg("msg-1"))
	repo.SavePending(context.Background(), pendingMsg("msg-2"))
	repo.SavePending(context.Background(), pendingMsg("msg-3"))

	// Fail every call: each item must still be attempted and terminally marked.
	scorer := &fakeScorer{err: errors.New("backend down")}
	svc := New(repo, fakeClientRepo{}, scorer, &fakeProducer{}, Config{})

	n, err := svc.ProcessBatch(context.Background())
	if err != nil {
		t.Fatalf("ProcessBatch() error = %v", err)
	}
	if n != 3 {
		t.Fatalf("processed = %d, want 3", n)
	}
	if scorer.calls != 3 {
		t.Errorf("scorer calls = %d, want 3 (one failure must not abort the batch)", scorer.calls)
	}
	if len(repo.failed) != 3 {
		t.Errorf("failed items = %d, want 3", len(repo.failed))
	}
}

func TestHistoryFailureLeavesItemPending(t *testing.T) {
	repo := newFakeMessageRepo()
	repo.SavePending(context.Background(), pendingMsg("msg-1"))
	repo.histErr = errors.New("storage timeout")

	scorer := &fakeScorer{result: &domain.AnalysisResult{Score: 10}}
	svc := New(repo, fakeClientRepo{}, scorer, &fakeProducer{}, Config{})

	if _, err := svc.ProcessBatch(context.Background()); err != nil {
		t.Fatalf("ProcessBatch() error = %v", err)
	}

	if scorer.calls != 0 {
		t.Error("scorer called despite transient history failure")
	}
	if !repo.pending["msg-1"].NeedsAnalysis {
		t.Error("transient failure must leave the item pending for the next tick")
	}

	// Next tick, storage recovered: the item goes through.
	repo.histErr = nil
	if _, err := svc.ProcessBatch(context.Background()); err != nil {
		t.Fatalf("second ProcessBatch() error = %v", err)
	}
	if _, ok := repo.completed["msg-1"]; !ok {
		t.Error("item not completed after storage recovery")
	}
}

func TestSinkErrorDoesNotAffectOtherSinks(t *testing.T) {
	repo := newFakeMessageRepo()
	repo.SavePending(context.Background(), pendingMsg("msg-1"))

	scorer := &fakeScorer{result: &domain.AnalysisResult{Score: 90}}
	failing := &recordingSink{name: "failing", err: errors.New("smtp down")}
	healthy := &recordingSink{name: "healthy"}

	svc := New(repo, fakeClientRepo{}, scorer, &fakeProducer{}, Config{})
	svc.AddSink(failing)
	svc.AddSink(healthy)

	if _, err := svc.ProcessBatch(context.Background()); err != nil {
		t.Fatalf("ProcessBatch() error = %v", err)
	}
	if len(healthy.seen) != 1 {
		t.Error("second sink not invoked after first sink failed")
	}
	if _, ok := repo.completed["msg-1"]; !ok {
		t.Error("sink failure must not undo the completed analysis")
	}
}
