package domain

import "time"

// Sample is one scored data point inside the analytics window.
type Sample struct {
	Timestamp time.Time `json:"timestamp"`
	Score     int       `json:"score"`
	Sentiment Sentiment `json:"sentiment"`
	Keywords  []string  `json:"keywords"`
	ClientID  string    `json:"clientId"`
}

// Stats are the rolling statistics over the analytics window.
type Stats struct {
	Total        int `json:"total"`
	MeanScore    int `json:"meanScore"`
	CriticalRate int `json:"criticalRate"`
	PositiveRate int `json:"positiveRate"`
	Trend        int `json:"trend"`
}

// PredictionDirection is the sign of the fitted regression slope.
type PredictionDirection string

const (
	DirectionUp   PredictionDirection = "up"
	DirectionDown PredictionDirection = "down"
)

// PredictionConfidence grades how stable the fitted slope is.
type PredictionConfidence string

const (
	ConfidenceHigh   PredictionConfidence = "high"
	ConfidenceMedium PredictionConfidence = "medium"
	ConfidenceLow    PredictionConfidence = "low"
)

// Prediction is the regression forecast for the next interaction.
type Prediction struct {
	Score      int                  `json:"score"`
	Direction  PredictionDirection  `json:"direction"`
	Confidence PredictionConfidence `json:"confidence"`
}

// AnomalyType identifies which detector fired.
type AnomalyType string

const (
	AnomalyTrendSpike       AnomalyType = "trend_spike"
	AnomalyCriticalOverload AnomalyType = "critical_overload"
	AnomalyRecurringKeyword AnomalyType = "recurring_keyword"
)

// AnomalySeverity ranks a finding.
type AnomalySeverity string

const (
	SeverityHigh   AnomalySeverity = "high"
	SeverityMedium AnomalySeverity = "medium"
)

// Anomaly is a single detector finding. Impact estimates the number of
// clients affected.
type Anomaly struct {
	Type        AnomalyType     `json:"type"`
	Severity    AnomalySeverity `json:"severity"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Impact      int             `json:"impact"`
}

// InsightType tags a human-readable insight.
type InsightType string

const (
	InsightPrediction InsightType = "prediction"
	InsightAlert      InsightType = "alert"
	InsightSuccess    InsightType = "success"
	InsightAnomaly    InsightType = "anomaly"
)

// Insight is one line of the rebuilt summary list.
type Insight struct {
	Type   InsightType `json:"type"`
	Title  string      `json:"title"`
	Value  string      `json:"value"`
	Detail string      `json:"detail"`
}

// ChartPoint is one entry of the score chart: the raw score plus a 5-point
// left-truncated moving average.
type ChartPoint struct {
	Index         int `json:"index"`
	Score         int `json:"score"`
	MovingAverage int `json:"movingAverage"`
}

// KeywordHeat is one cell of the recurring-keyword heatmap.
type KeywordHeat struct {
	Keyword    string `json:"keyword"`
	Frequency  int    `json:"frequency"`
	Percentage int    `json:"percentage"`
}

// AnalyticsSnapshot is the full derived state recomputed after every ingest.
// It is a pure function of the current sample window and is never persisted.
type AnalyticsSnapshot struct {
	Stats      Stats         `json:"stats"`
	Chart      []ChartPoint  `json:"chart"`
	Insights   []Insight     `json:"insights"`
	Prediction *Prediction   `json:"prediction"`
	Anomalies  []Anomaly     `json:"anomalies"`
	Heatmap    []KeywordHeat `json:"heatmap"`
}
