package domain

import "time"

// AlertEvent is raised when a scored message crosses the critical threshold.
// Consumed read-only by the realtime pipeline.
type AlertEvent struct {
	MessageID   string    `json:"messageId" bson:"message_id"`
	ClientID    string    `json:"clientId" bson:"client_id"`
	Score       int       `json:"score" bson:"score"`
	Text        string    `json:"text" bson:"text"`
	ClientName  string    `json:"clientName" bson:"client_name"`
	ClientEmail string    `json:"clientEmail" bson:"client_email"`
	Timestamp   time.Time `json:"timestamp" bson:"timestamp"`
}
