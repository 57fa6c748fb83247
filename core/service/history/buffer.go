// Package history holds the bounded in-memory buffers used to answer
// "what happened recently" queries. They back subscriber replay and the REST
// history endpoint and are never a source of truth.
package history

import (
	"sync"

	"github.com/starkeranthonio-sudo/churn-predictor-backend/core/domain"
)

// Default capacities.
const (
	DefaultMessageCapacity = 50
	DefaultAlertCapacity   = 20
)

// MessageBuffer is a fixed-capacity FIFO of the most recent scored messages.
// Safe for concurrent use.
type MessageBuffer struct {
	mu    sync.RWMutex
	items []domain.ScoredMessage
	cap   int
}

// NewMessageBuffer creates a message buffer. A non-positive capacity falls
// back to the default.
func NewMessageBuffer(capacity int) *MessageBuffer {
	if capacity <= 0 {
		capacity = DefaultMessageCapacity
	}
	return &MessageBuffer{
		items: make([]domain.ScoredMessage, 0, capacity),
		cap:   capacity,
	}
}

// Append pushes a message to the tail, evicting the oldest entry when the
// buffer is full.
func (b *MessageBuffer) Append(msg domain.ScoredMessage) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.items = append(b.items, msg)
	if len(b.items) > b.cap {
		b.items = b.items[1:]
	}
}

// Snapshot returns the most recent min(n, length) messages in arrival order.
func (b *MessageBuffer) Snapshot(n int) []domain.ScoredMessage {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if n > len(b.items) {
		n = len(b.items)
	}
	out := make([]domain.ScoredMessage, n)
	copy(out, b.items[len(b.items)-n:])
	return out
}

// Len returns the current number of buffered messages.
func (b *MessageBuffer) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.items)
}

// AlertBuffer is a fixed-capacity FIFO of the most recent critical alerts.
// Safe for concurrent use.
type AlertBuffer struct {
	mu    sync.RWMutex
	items []domain.AlertEvent
	cap   int
}

// NewAlertBuffer creates an alert buffer. A non-positive capacity falls back
// to the default.
func NewAlertBuffer(capacity int) *AlertBuffer {
	if capacity <= 0 {
		capacity = DefaultAlertCapacity
	}
	return &AlertBuffer{
		items: make([]domain.AlertEvent, 0, capacity),
		cap:   capacity,
	}
}

// Append pushes an alert to the tail, evicting the oldest entry when the
// buffer is full.
func (b *AlertBuffer) Append(alert domain.AlertEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.items = append(b.items, alert)
	if len(b.items) > b.cap {
		b.items = b.items[1:]
	}
}

// Snapshot returns the most recent min(n, length) alerts in arrival order.
func (b *AlertBuffer) Snapshot(n int) []domain.AlertEvent {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if n > len(b.items) {
		n = len(b.items)
	}
	out := make([]domain.AlertEvent, n)
	copy(out, b.items[len(b.items)-n:])
	return out
}

// Len returns the current number of buffered alerts.
func (b *AlertBuffer) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.items)
}
