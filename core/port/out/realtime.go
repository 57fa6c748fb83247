package out

import (
	"github.com/starkeranthonio-sudo/churn-predictor-backend/core/domain"
)

// RealtimePort fans events out to live subscribers. Subscribe replays the
// bounded history buffers before any later event; Publish never blocks on a
// slow subscriber, a subscriber that cannot keep up is removed and its
// channel closed.
type RealtimePort interface {
	Subscribe() *Subscription
	Unsubscribe(sub *Subscription)
	Publish(event *domain.RealtimeEvent)
	ConnectedCount() int
}

// Subscription is one live subscriber handle. Events carries serialized
// push-protocol frames; the channel is closed on removal.
type Subscription struct {
	ID     string
	Events <-chan []byte
	Done   chan struct{}
}
