// Package mongodb implements MongoDB adapters for the application.
package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/starkeranthonio-sudo/churn-predictor-backend/core/domain"
	"github.com/starkeranthonio-sudo/churn-predictor-backend/core/port/out"
)

const (
	collectionMessages = "messages"
	collectionAlerts   = "alerts"
)

// MessageAdapter implements out.MessageRepository on a single messages
// collection. Pending and scored messages share the collection; the
// needs_analysis flag drives batch selection and is cleared exactly once
// per document.
type MessageAdapter struct {
	db         *mongo.Database
	collection *mongo.Collection
}

// NewMessageAdapter creates a new MongoDB message adapter.
func NewMessageAdapter(db *mongo.Database) *MessageAdapter {
	return &MessageAdapter{
		db:         db,
		collection: db.Collection(collectionMessages),
	}
}

// EnsureIndexes creates necessary indexes for the collection.
func (a *MessageAdapter) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "needs_analysis", Value: 1}, {Key: "created_at", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "client_id", Value: 1}, {Key: "timestamp", Value: -1}},
		},
	}

	_, err := a.collection.Indexes().CreateMany(ctx, indexes)
	return err
}

// messageDocument is the MongoDB document shape. It is a superset of both
// pending and scored messages; score fields only exist once analysis ran.
type messageDocument struct {
	ID            string    `bson:"_id"`
	ClientID      string    `bson:"client_id"`
	Text          string    `bson:"text"`
	Subject       string    `bson:"subject,omitempty"`
	NeedsAnalysis bool      `bson:"needs_analysis"`
	AnalysisError string    `bson:"analysis_error,omitempty"`
	CreatedAt     time.Time `bson:"created_at"`

	Score            *int                    `bson:"score,omitempty"`
	Sentiment        domain.Sentiment        `bson:"sentiment,omitempty"`
	Reasons          []string                `bson:"reasons,omitempty"`
	Action           string                  `bson:"action,omitempty"`
	Keywords         []string                `bson:"keywords,omitempty"`
	SuggestedReplies []domain.SuggestedReply `bson:"suggested_replies,omitempty"`
	Timestamp        time.Time               `bson:"timestamp,omitempty"`
	AnalyzedAt       *time.Time              `bson:"analyzed_at,omitempty"`

	ResponseSent   bool       `bson:"response_sent,omitempty"`
	ResponseTone   string     `bson:"response_tone,omitempty"`
	ResponseText   string     `bson:"response_text,omitempty"`
	ResponseSentAt *time.Time `bson:"response_sent_at,omitempty"`
	AlertSent      bool       `bson:"alert_sent,omitempty"`
	AlertSentAt    *time.Time `bson:"alert_sent_at,omitempty"`
}

// SavePending stores a raw message awaiting analysis.
func (a *MessageAdapter) SavePending(ctx context.Context, msg *domain.PendingMessage) error {
	doc := messageDocument{
		ID:            msg.ID,
		ClientID:      msg.ClientID,
		Text:          msg.Text,
		Subject:       msg.Subject,
		NeedsAnalysis: msg.NeedsAnalysis,
		CreatedAt:     msg.CreatedAt,
	}

	if _, err := a.collection.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("failed to save pending message: %w", err)
	}
	return nil
}

// SaveScored upserts a fully scored message keyed by its id. The upsert makes
// the write idempotent against the analyzer's own completion update.
func (a *MessageAdapter) SaveScored(ctx context.Context, msg *domain.ScoredMessage) error {
	score := msg.Score
	now := time.Now().UTC()
	doc := messageDocument{
		ID:               msg.ID,
		ClientID:         msg.ClientID,
		Text:             msg.Text,
		Subject:          msg.Subject,
		NeedsAnalysis:    false,
		CreatedAt:        msg.Timestamp,
		Score:            &score,
		Sentiment:        msg.Sentiment,
		Reasons:          msg.Reasons,
		Action:           msg.Action,
		Keywords:         msg.Keywords,
		SuggestedReplies: msg.SuggestedReplies,
		Timestamp:        msg.Timestamp,
		AnalyzedAt:       &now,
	}

	opts := options.Replace().SetUpsert(true)
	filter := bson.M{"_id": msg.ID}

	if _, err := a.collection.ReplaceOne(ctx, filter, doc, opts); err != nil {
		return fmt.Errorf("failed to save scored message: %w", err)
	}
	return nil
}

// FindPendingBatch returns up to limit messages still awaiting analysis,
// oldest first.
func (a *MessageAdapter) FindPendingBatch(ctx context.Context, limit int) ([]domain.PendingMessage, error) {
	filter := bson.M{"needs_analysis": true}
	opts := options.Find().
		SetLimit(int64(limit)).
		SetSort(bson.D{{Key: "created_at", Value: 1}})

	cursor, err := a.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find pending messages: %w", err)
	}
	defer cursor.Close(ctx)

	var batch []domain.PendingMessage
	for cursor.Next(ctx) {
		var doc messageDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode pending message: %w", err)
		}
		batch = append(batch, domain.PendingMessage{
			ID:            doc.ID,
			ClientID:      doc.ClientID,
			Text:          doc.Text,
			Subject:       doc.Subject,
			NeedsAnalysis: doc.NeedsAnalysis,
			CreatedAt:     doc.CreatedAt,
		})
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate pending messages: %w", err)
	}

	return batch, nil
}

// CompleteAnalysis writes the score fields back and clears the pending flag.
func (a *MessageAdapter) CompleteAnalysis(ctx context.Context, id string, result *domain.AnalysisResult) error {
	now := time.Now().UTC()
	filter := bson.M{"_id": id, "needs_analysis": true}
	update := bson.M{"$set": bson.M{
		"needs_analysis":    false,
		"score":             result.Score,
		"sentiment":         result.Sentiment,
		"reasons":           result.Reasons,
		"action":            result.Action,
		"keywords":          result.Keywords,
		"suggested_replies": result.SuggestedReplies,
		"timestamp":         now,
		"analyzed_at":       now,
	}}

	res, err := a.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to complete analysis: %w", err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("message %s not found or already analyzed", id)
	}
	return nil
}

// FailAnalysis clears the pending flag and records a terminal error so the
// message is never re-selected.
func (a *MessageAdapter) FailAnalysis(ctx context.Context, id string, cause string) error {
	now := time.Now().UTC()
	filter := bson.M{"_id": id}
	update := bson.M{"$set": bson.M{
		"needs_analysis": false,
		"analysis_error": cause,
		"analyzed_at":    now,
	}}

	if _, err := a.collection.UpdateOne(ctx, filter, update); err != nil {
		return fmt.Errorf("failed to record analysis failure: %w", err)
	}
	return nil
}

// RecentHistory returns the latest scored interactions for a client, newest
// first.
func (a *MessageAdapter) RecentHistory(ctx context.Context, clientID string, limit int) ([]domain.HistoryEntry, error) {
	filter := bson.M{
		"client_id": clientID,
		"score":     bson.M{"$exists": true},
	}
	opts := options.Find().
		SetLimit(int64(limit)).
		SetSort(bson.D{{Key: "timestamp", Value: -1}}).
		SetProjection(bson.M{"text": 1, "score": 1, "timestamp": 1})

	cursor, err := a.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to load client history: %w", err)
	}
	defer cursor.Close(ctx)

	var history []domain.HistoryEntry
	for cursor.Next(ctx) {
		var doc messageDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode history entry: %w", err)
		}
		score := 0
		if doc.Score != nil {
			score = *doc.Score
		}
		history = append(history, domain.HistoryEntry{
			Text:  doc.Text,
			Score: score,
			Date:  doc.Timestamp,
		})
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate client history: %w", err)
	}

	return history, nil
}

// MarkResponseSent records that an auto-reply went out for a message.
func (a *MessageAdapter) MarkResponseSent(ctx context.Context, id string, tone, text string) error {
	now := time.Now().UTC()
	update := bson.M{"$set": bson.M{
		"response_sent":    true,
		"response_tone":    tone,
		"response_text":    text,
		"response_sent_at": now,
	}}

	if _, err := a.collection.UpdateOne(ctx, bson.M{"_id": id}, update); err != nil {
		return fmt.Errorf("failed to mark response sent: %w", err)
	}
	return nil
}

// MarkAlertSent records that an admin alert went out for a message.
func (a *MessageAdapter) MarkAlertSent(ctx context.Context, id string) error {
	now := time.Now().UTC()
	update := bson.M{"$set": bson.M{
		"alert_sent":    true,
		"alert_sent_at": now,
	}}

	if _, err := a.collection.UpdateOne(ctx, bson.M{"_id": id}, update); err != nil {
		return fmt.Errorf("failed to mark alert sent: %w", err)
	}
	return nil
}

// AlertAdapter implements out.AlertRepository.
type AlertAdapter struct {
	collection *mongo.Collection
}

// NewAlertAdapter creates a new MongoDB alert adapter.
func NewAlertAdapter(db *mongo.Database) *AlertAdapter {
	return &AlertAdapter{collection: db.Collection(collectionAlerts)}
}

// SaveAlert stores one raised critical alert.
func (a *AlertAdapter) SaveAlert(ctx context.Context, alert *domain.AlertEvent) error {
	doc := bson.M{
		"message_id":   alert.MessageID,
		"client_id":    alert.ClientID,
		"score":        alert.Score,
		"text":         alert.Text,
		"client_name":  alert.ClientName,
		"client_email": alert.ClientEmail,
		"timestamp":    alert.Timestamp,
		"created_at":   time.Now().UTC(),
	}

	if _, err := a.collection.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("failed to save alert: %w", err)
	}
	return nil
}

var (
	_ out.MessageRepository = (*MessageAdapter)(nil)
	_ out.AlertRepository   = (*AlertAdapter)(nil)
)
