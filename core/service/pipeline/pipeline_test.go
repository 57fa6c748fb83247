package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/starkeranthonio-sudo/churn-predictor-backend/core/domain"
	"github.com/starkeranthonio-sudo/churn-predictor-backend/core/port/out"
	"github.com/starkeranthonio-sudo/churn-predictor-backend/core/service/analytics"
	"github.com/starkeranthonio-sudo/churn-predictor-backend/core/service/history"
)

type fakeRepo struct {
	pending    []*domain.PendingMessage
	scored     []*domain.ScoredMessage
	pendingErr error
	scoredErr  error
}

func (r *fakeRepo) SavePending(_ context.Context, msg *domain.PendingMessage) error {
	if r.pendingErr != nil {
		return r.pendingErr
	}
	r.pending = append(r.pending, msg)
	return nil
}

func (r *fakeRepo) SaveScored(_ context.Context, msg *domain.ScoredMessage) error {
	if r.scoredErr != nil {
		return r.scoredErr
	}
	r.scored = append(r.scored, msg)
	return nil
}

func (r *fakeRepo) FindPendingBatch(context.Context, int) ([]domain.PendingMessage, error) {
	return nil, nil
}

func (r *fakeRepo) CompleteAnalysis(context.Context, string, *domain.AnalysisResult) error {
	return nil
}

func (r *fakeRepo) FailAnalysis(context.Context, string, string) error { return nil }

func (r *fakeRepo) RecentHistory(context.Context, string, int) ([]domain.HistoryEntry, error) {
	return nil, nil
}

func (r *fakeRepo) MarkResponseSent(context.Context, string, string, string) error { return nil }

func (r *fakeRepo) MarkAlertSent(context.Context, string) error { return nil }

type fakeRealtime struct {
	events []*domain.RealtimeEvent
}

func (f *fakeRealtime) Subscribe() *out.Subscription     { return nil }
func (f *fakeRealtime) Unsubscribe(*out.Subscription)    {}
func (f *fakeRealtime) Publish(ev *domain.RealtimeEvent) { f.events = append(f.events, ev) }
func (f *fakeRealtime) ConnectedCount() int              { return 0 }

func newPipeline(repo *fakeRepo, rt *fakeRealtime) (*Pipeline, *analytics.Engine) {
	engine := analytics.NewEngine(analytics.DefaultWindowCapacity)
	p := New(
		repo,
		history.NewMessageBuffer(history.DefaultMessageCapacity),
		history.NewAlertBuffer(history.DefaultAlertCapacity),
		engine,
		rt,
		zerolog.Nop(),
	)
	return p, engine
}

func TestHandleScoredPersistsBuffersAndBroadcasts(t *testing.T) {
	repo := &fakeRepo{}
	rt := &fakeRealtime{}
	p, engine := newPipeline(repo, rt)

	raw, _ := json.Marshal(domain.ScoredMessage{ID: "m1", ClientID: "c1", Text: "hi", Score: 72})
	if err := p.HandleScored(context.Background(), raw); err != nil {
		t.Fatalf("HandleScored: %v", err)
	}

	if len(repo.scored) != 1 || repo.scored[0].ID != "m1" {
		t.Fatalf("expected one persisted message, got %+v", repo.scored)
	}
	if engine.WindowLen() != 1 {
		t.Fatalf("expected score in analytics window, got %d", engine.WindowLen())
	}
	msgs, _ := p.History()
	if len(msgs) != 1 || msgs[0].ID != "m1" {
		t.Fatalf("expected message in replay buffer, got %+v", msgs)
	}
	if len(rt.events) != 2 {
		t.Fatalf("expected score + analytics events, got %d", len(rt.events))
	}
	if rt.events[0].Type != domain.EventChurnScore || rt.events[1].Type != domain.EventAnalyticsUpdate {
		t.Fatalf("unexpected event types %q, %q", rt.events[0].Type, rt.events[1].Type)
	}
}

func TestHandleScoredMalformedIsDropped(t *testing.T) {
	repo := &fakeRepo{}
	rt := &fakeRealtime{}
	p, engine := newPipeline(repo, rt)

	for _, raw := range [][]byte{
		[]byte("not json"),
		mustMarshal(t, domain.ScoredMessage{ID: "m1", Score: 50}),                  // no client
		mustMarshal(t, domain.ScoredMessage{ID: "m1", ClientID: "c1", Score: 140}), // out of range
	} {
		if err := p.HandleScored(context.Background(), raw); err != nil {
			t.Fatalf("malformed record must not error: %v", err)
		}
	}

	if len(repo.scored) != 0 || engine.WindowLen() != 0 || len(rt.events) != 0 {
		t.Fatal("malformed records must leave no trace")
	}
}

func TestHandleScoredStorageFailureStillBroadcasts(t *testing.T) {
	repo := &fakeRepo{scoredErr: errors.New("mongo down")}
	rt := &fakeRealtime{}
	p, engine := newPipeline(repo, rt)

	raw := mustMarshal(t, domain.ScoredMessage{ID: "m1", ClientID: "c1", Score: 40})
	if err := p.HandleScored(context.Background(), raw); err != nil {
		t.Fatalf("storage failure must not propagate: %v", err)
	}
	if engine.WindowLen() != 1 || len(rt.events) != 2 {
		t.Fatal("live view must survive a storage failure")
	}
}

func TestHandleAlertBuffersAndBroadcastsOnly(t *testing.T) {
	repo := &fakeRepo{}
	rt := &fakeRealtime{}
	p, engine := newPipeline(repo, rt)

	raw := mustMarshal(t, domain.AlertEvent{MessageID: "m1", ClientID: "c1", Score: 91})
	if err := p.HandleAlert(context.Background(), raw); err != nil {
		t.Fatalf("HandleAlert: %v", err)
	}

	_, alerts := p.History()
	if len(alerts) != 1 || alerts[0].MessageID != "m1" {
		t.Fatalf("expected alert in replay buffer, got %+v", alerts)
	}
	if engine.WindowLen() != 0 {
		t.Fatal("alerts must not feed the analytics window")
	}
	if len(repo.scored) != 0 {
		t.Fatal("alerts must not be persisted by the pipeline")
	}
	if len(rt.events) != 1 || rt.events[0].Type != domain.EventCriticalAlert {
		t.Fatalf("expected one critical-alert event, got %+v", rt.events)
	}
}

func TestHandleInboundCreatesPendingDocument(t *testing.T) {
	repo := &fakeRepo{}
	rt := &fakeRealtime{}
	p, _ := newPipeline(repo, rt)

	raw := mustMarshal(t, domain.InboundMessage{ClientID: "c1", Text: "thinking of leaving", Subject: "hi"})
	if err := p.HandleInbound(context.Background(), raw); err != nil {
		t.Fatalf("HandleInbound: %v", err)
	}

	if len(repo.pending) != 1 {
		t.Fatalf("expected one pending document, got %d", len(repo.pending))
	}
	got := repo.pending[0]
	if got.ID == "" || got.ClientID != "c1" || !got.NeedsAnalysis {
		t.Fatalf("pending document malformed: %+v", got)
	}
}

func TestHandleInboundStorageFailurePropagates(t *testing.T) {
	repo := &fakeRepo{pendingErr: errors.New("mongo down")}
	rt := &fakeRealtime{}
	p, _ := newPipeline(repo, rt)

	raw := mustMarshal(t, domain.InboundMessage{ClientID: "c1", Text: "hello"})
	if err := p.HandleInbound(context.Background(), raw); err == nil {
		t.Fatal("expected error so the record is redelivered")
	}
}

func mustMarshal(t *testing.T, v interface{}) []byte {
	t.Helper()
	raw, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return raw
}
