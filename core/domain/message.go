package domain

import (
	"time"
)

// Sentiment classifies the overall tone of a customer message.
type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNeutral  Sentiment = "neutral"
	SentimentNegative Sentiment = "negative"
)

// Churn score thresholds. Below ScorePositive the customer counts as
// satisfied; at or above ScoreAutoSend a first reply goes out automatically;
// at or above ScoreCritical the customer is at imminent risk of leaving.
const (
	ScorePositive = 35
	ScoreAutoSend = 60
	ScoreCritical = 80
)

// SuggestedReply is one AI-drafted response with its tone
// (empathetic, solution, compensation).
type SuggestedReply struct {
	Tone string `json:"tone" bson:"tone"`
	Text string `json:"text" bson:"text"`
}

// PendingMessage is a raw customer message awaiting analysis. Created by the
// ingestion gateway or the mailbox reader with NeedsAnalysis=true; the
// analyzer flips NeedsAnalysis exactly once, either promoting the document to
// a scored message or recording a terminal AnalysisError.
type PendingMessage struct {
	ID            string    `json:"id" bson:"_id"`
	ClientID      string    `json:"clientId" bson:"client_id"`
	Text          string    `json:"text" bson:"text"`
	Subject       string    `json:"subject,omitempty" bson:"subject,omitempty"`
	NeedsAnalysis bool      `json:"needsAnalysis" bson:"needs_analysis"`
	AnalysisError string    `json:"analysisError,omitempty" bson:"analysis_error,omitempty"`
	CreatedAt     time.Time `json:"createdAt" bson:"created_at"`
}

// ScoredMessage is a customer message enriched with a churn-risk score and
// AI-suggested responses. Immutable once produced.
type ScoredMessage struct {
	ID               string           `json:"id" bson:"_id"`
	ClientID         string           `json:"clientId" bson:"client_id"`
	Text             string           `json:"text" bson:"text"`
	Subject          string           `json:"subject,omitempty" bson:"subject,omitempty"`
	Score            int              `json:"score" bson:"score"`
	Sentiment        Sentiment        `json:"sentiment" bson:"sentiment"`
	Reasons          []string         `json:"reasons" bson:"reasons"`
	Action           string           `json:"action" bson:"action"`
	Keywords         []string         `json:"keywords" bson:"keywords"`
	SuggestedReplies []SuggestedReply `json:"suggestedReplies" bson:"suggested_replies"`
	Timestamp        time.Time        `json:"timestamp" bson:"timestamp"`
}

// IsCritical reports whether the message flags an at-risk customer.
func (m *ScoredMessage) IsCritical() bool {
	return m.Score >= ScoreCritical
}

// AnalysisResult is what the scoring backend returns for a single message.
type AnalysisResult struct {
	Score            int              `json:"score"`
	Sentiment        Sentiment        `json:"sentiment"`
	Reasons          []string         `json:"reasons"`
	Action           string           `json:"action"`
	Keywords         []string         `json:"keywords"`
	SuggestedReplies []SuggestedReply `json:"suggestedReplies"`
}

// InboundMessage is the wire contract of the inbound stream topic.
type InboundMessage struct {
	ClientID  string    `json:"clientId"`
	Text      string    `json:"text"`
	Subject   string    `json:"subject,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// HistoryEntry is one prior interaction handed to the scoring backend as
// conversation context.
type HistoryEntry struct {
	Text  string    `json:"text"`
	Score int       `json:"score"`
	Date  time.Time `json:"date"`
}
