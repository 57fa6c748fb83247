package realtime

import (
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/starkeranthonio-sudo/churn-predictor-backend/core/domain"
)

type staticHistory struct {
	messages []domain.ScoredMessage
	alerts   []domain.AlertEvent
}

func (s *staticHistory) History() ([]domain.ScoredMessage, []domain.AlertEvent) {
	return s.messages, s.alerts
}

func recvFrame(t *testing.T, ch <-chan []byte) *domain.RealtimeEvent {
	t.Helper()
	select {
	case frame := <-ch:
		var ev domain.RealtimeEvent
		if err := json.Unmarshal(frame, &ev); err != nil {
			t.Fatalf("unmarshal frame: %v", err)
		}
		return &ev
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for frame")
		return nil
	}
}

func TestSubscribeReplaysHistoryFirst(t *testing.T) {
	hub := NewHub(&staticHistory{
		messages: []domain.ScoredMessage{{ID: "m1", ClientID: "c1", Score: 40}},
		alerts:   []domain.AlertEvent{{MessageID: "m0", ClientID: "c0", Score: 85}},
	}, zerolog.Nop())

	sub := hub.Subscribe()
	defer hub.Unsubscribe(sub)

	hub.Publish(domain.NewEvent(domain.EventChurnScore, map[string]int{"score": 55}))

	first := recvFrame(t, sub.Events)
	if first.Type != domain.EventHistory {
		t.Fatalf("first frame must be history, got %q", first.Type)
	}
	second := recvFrame(t, sub.Events)
	if second.Type != domain.EventChurnScore {
		t.Fatalf("expected churn-score after history, got %q", second.Type)
	}
	if second.Seq <= first.Seq {
		t.Fatalf("sequence must increase: %d then %d", first.Seq, second.Seq)
	}
}

func TestPublishReachesAllSubscribersInOrder(t *testing.T) {
	hub := NewHub(&staticHistory{}, zerolog.Nop())

	a := hub.Subscribe()
	b := hub.Subscribe()
	defer hub.Unsubscribe(a)
	defer hub.Unsubscribe(b)

	hub.Publish(domain.NewEvent(domain.EventChurnScore, 1))
	hub.Publish(domain.NewEvent(domain.EventAnalyticsUpdate, 2))

	for _, sub := range []<-chan []byte{a.Events, b.Events} {
		if ev := recvFrame(t, sub); ev.Type != domain.EventHistory {
			t.Fatalf("expected history first, got %q", ev.Type)
		}
		if ev := recvFrame(t, sub); ev.Type != domain.EventChurnScore {
			t.Fatalf("expected churn-score, got %q", ev.Type)
		}
		if ev := recvFrame(t, sub); ev.Type != domain.EventAnalyticsUpdate {
			t.Fatalf("expected analytics-update, got %q", ev.Type)
		}
	}
}

func TestSlowSubscriberIsEvicted(t *testing.T) {
	hub := NewHub(&staticHistory{}, zerolog.Nop())

	slow := hub.Subscribe()
	fast := hub.Subscribe()
	defer hub.Unsubscribe(fast)

	// Overflow the slow subscriber's channel without draining it.
	for i := 0; i < 100; i++ {
		hub.Publish(domain.NewEvent(domain.EventChurnScore, i))
		// Keep the fast subscriber drained.
		select {
		case <-fast.Events:
		default:
		}
	}

	if hub.ConnectedCount() != 1 {
		t.Fatalf("expected slow subscriber to be evicted, %d connections remain", hub.ConnectedCount())
	}
	if evicted := hub.GetMetrics().ClientsEvicted; evicted != 1 {
		t.Fatalf("expected 1 eviction, got %d", evicted)
	}

	// The evicted subscriber's channel is closed once its backlog drains.
	for {
		if _, ok := <-slow.Events; !ok {
			break
		}
	}

	hub.Publish(domain.NewEvent(domain.EventCriticalAlert, "last"))

	deadline := time.After(time.Second)
	for {
		select {
		case frame := <-fast.Events:
			var ev domain.RealtimeEvent
			if err := json.Unmarshal(frame, &ev); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if ev.Type == domain.EventCriticalAlert {
				return // fast subscriber still receives after the eviction
			}
		case <-deadline:
			t.Fatal("fast subscriber starved after slow peer eviction")
		}
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	hub := NewHub(&staticHistory{}, zerolog.Nop())

	sub := hub.Subscribe()
	if hub.ConnectedCount() != 1 {
		t.Fatalf("expected 1 connection, got %d", hub.ConnectedCount())
	}

	hub.Unsubscribe(sub)
	if hub.ConnectedCount() != 0 {
		t.Fatalf("expected 0 connections, got %d", hub.ConnectedCount())
	}

	// Drain the history frame, then expect close.
	for {
		if _, ok := <-sub.Events; !ok {
			return
		}
	}
}
