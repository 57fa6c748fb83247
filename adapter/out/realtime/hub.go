// Package realtime provides real-time communication adapters.
package realtime

import (
	"sync"
	"sync/atomic"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/starkeranthonio-sudo/churn-predictor-backend/core/domain"
	"github.com/starkeranthonio-sudo/churn-predictor-backend/core/port/out"
)

// HistorySource supplies the replay snapshot handed to every new subscriber.
type HistorySource interface {
	History() ([]domain.ScoredMessage, []domain.AlertEvent)
}

// Hub implements out.RealtimePort as a broadcast fan-out. Every subscriber
// receives the history replay frame before any event published after its
// Subscribe call; frames are serialized once per Publish and delivered in
// publish order per subscriber. A subscriber that cannot keep up is evicted
// rather than buffered.
type Hub struct {
	clients map[string]chan []byte // subscription ID -> frame channel
	mu      sync.RWMutex
	history HistorySource
	log     zerolog.Logger

	// Metrics
	framesSent     int64
	clientsEvicted int64
	seqCounter     int64
}

// NewHub creates a new broadcast hub.
func NewHub(history HistorySource, log zerolog.Logger) *Hub {
	return &Hub{
		clients: make(map[string]chan []byte),
		history: history,
		log:     log.With().Str("component", "realtime_hub").Logger(),
	}
}

// Subscribe registers a new subscriber. The history frame is queued on the
// subscriber channel before the hub lock is released, so no concurrently
// published event can precede it.
func (h *Hub) Subscribe() *out.Subscription {
	h.mu.Lock()
	defer h.mu.Unlock()

	ch := make(chan []byte, 64) // transit queue only; overflow evicts the subscriber

	messages, alerts := h.history.History()
	event := domain.NewHistoryEvent(messages, alerts)
	event.Seq = atomic.AddInt64(&h.seqCounter, 1)
	if frame, err := json.Marshal(event); err != nil {
		h.log.Error().Err(err).Msg("failed to serialize history frame")
	} else {
		ch <- frame // fresh buffered channel, never blocks
	}

	id := uuid.NewString()
	h.clients[id] = ch

	h.log.Debug().
		Str("subscription_id", id).
		Int("total_connections", len(h.clients)).
		Msg("client subscribed")

	return &out.Subscription{
		ID:     id,
		Events: ch,
		Done:   make(chan struct{}),
	}
}

// Unsubscribe removes a subscriber and closes its channel.
func (h *Hub) Unsubscribe(sub *out.Subscription) {
	if sub == nil {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if ch, ok := h.clients[sub.ID]; ok {
		delete(h.clients, sub.ID)
		close(ch)
	}

	h.log.Debug().
		Str("subscription_id", sub.ID).
		Int("total_connections", len(h.clients)).
		Msg("client unsubscribed")
}

// Publish broadcasts an event to all subscribers. The frame is serialized
// once; a subscriber whose channel is full is evicted so it never blocks or
// delays delivery to the rest.
func (h *Hub) Publish(event *domain.RealtimeEvent) {
	event.Seq = atomic.AddInt64(&h.seqCounter, 1)

	frame, err := json.Marshal(event)
	if err != nil {
		h.log.Error().Err(err).Str("event_type", string(event.Type)).Msg("failed to serialize event")
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	for id, ch := range h.clients {
		select {
		case ch <- frame:
			atomic.AddInt64(&h.framesSent, 1)
		default:
			delete(h.clients, id)
			close(ch)
			atomic.AddInt64(&h.clientsEvicted, 1)
			h.log.Warn().
				Str("subscription_id", id).
				Str("event_type", string(event.Type)).
				Int64("seq", event.Seq).
				Msg("evicted slow subscriber")
		}
	}
}

// ConnectedCount returns the number of live subscribers.
func (h *Hub) ConnectedCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// GetMetrics returns hub metrics.
func (h *Hub) GetMetrics() HubMetrics {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return HubMetrics{
		Connections:    len(h.clients),
		FramesSent:     atomic.LoadInt64(&h.framesSent),
		ClientsEvicted: atomic.LoadInt64(&h.clientsEvicted),
	}
}

// HubMetrics holds hub counters.
type HubMetrics struct {
	Connections    int   `json:"connections"`
	FramesSent     int64 `json:"frames_sent"`
	ClientsEvicted int64 `json:"clients_evicted"`
}

var _ out.RealtimePort = (*Hub)(nil)
