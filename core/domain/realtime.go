package domain

import "time"

// EventType tags messages on the subscriber push protocol.
type EventType string

const (
	EventHistory         EventType = "history"
	EventChurnScore      EventType = "churn-score"
	EventCriticalAlert   EventType = "critical-alert"
	EventAnalyticsUpdate EventType = "analytics-update"
)

// RealtimeEvent is a single server-to-client push message.
type RealtimeEvent struct {
	Type      EventType   `json:"type"`
	Data      interface{} `json:"data,omitempty"`
	Messages  interface{} `json:"messages,omitempty"`
	Alerts    interface{} `json:"alerts,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	Seq       int64       `json:"seq,omitempty"`
}

// NewEvent builds a data-carrying push event.
func NewEvent(t EventType, data interface{}) *RealtimeEvent {
	return &RealtimeEvent{
		Type:      t,
		Data:      data,
		Timestamp: time.Now().UTC(),
	}
}

// NewHistoryEvent builds the initial replay event sent to a new subscriber.
func NewHistoryEvent(messages []ScoredMessage, alerts []AlertEvent) *RealtimeEvent {
	return &RealtimeEvent{
		Type:      EventHistory,
		Messages:  messages,
		Alerts:    alerts,
		Timestamp: time.Now().UTC(),
	}
}
