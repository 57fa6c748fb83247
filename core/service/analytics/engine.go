// Package analytics implements the rolling predictive analytics over the
// scored message stream: window statistics, trend, linear-regression
// forecast, anomaly detection and derived insights.
package analytics

import (
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/montanaflynn/stats"

	"github.com/starkeranthonio-sudo/churn-predictor-backend/core/domain"
)

// Thresholds driving anomaly detection and state insights.
const (
	DefaultWindowCapacity = 100

	meanCriticalThreshold = 60 // mean above this means the customer base is in trouble
	meanHealthyThreshold  = 35 // mean below this means things are fine
	criticalRateThreshold = 15 // percent of critical clients that raises an anomaly
	trendSpikeThreshold   = 20 // mean-score jump that raises an anomaly
	regressionSpan        = 20 // samples fed into the regression
	trendSpan             = 5  // samples per trend half
	minSamplesForAnomaly  = 10 // detectors stay silent below this
	minSamplesForForecast = 5  // regression stays silent below this
	chartSpan             = 30 // samples on the chart
	movingAverageSpan     = 5  // left-truncated moving average width
	keywordSpan           = 20 // samples scanned for recurring keywords
	keywordMinFrequency   = 3  // occurrences before a keyword counts as recurring
	keywordTopN           = 5  // heatmap size
)

// Engine consumes every scored message and maintains a bounded sample window
// plus the snapshot derived from it. All computations are pure functions of
// the window; the engine does no I/O.
type Engine struct {
	mu       sync.RWMutex
	window   []domain.Sample
	capacity int
	snapshot domain.AnalyticsSnapshot
}

// NewEngine creates an engine with the given window capacity. A non-positive
// capacity falls back to the default.
func NewEngine(capacity int) *Engine {
	if capacity <= 0 {
		capacity = DefaultWindowCapacity
	}
	return &Engine{
		window:   make([]domain.Sample, 0, capacity),
		capacity: capacity,
	}
}

// Ingest appends one scored message to the window, evicting the oldest sample
// on overflow, and recomputes the full snapshot.
func (e *Engine) Ingest(msg *domain.ScoredMessage) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.window = append(e.window, domain.Sample{
		Timestamp: msg.Timestamp,
		Score:     msg.Score,
		Sentiment: msg.Sentiment,
		Keywords:  msg.Keywords,
		ClientID:  msg.ClientID,
	})
	if len(e.window) > e.capacity {
		e.window = e.window[1:]
	}

	e.snapshot = compute(e.window)
}

// Snapshot returns the last computed analytics state.
func (e *Engine) Snapshot() domain.AnalyticsSnapshot {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.snapshot
}

// WindowLen returns the current number of samples.
func (e *Engine) WindowLen() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.window)
}

// compute derives the full snapshot from a window.
func compute(window []domain.Sample) domain.AnalyticsSnapshot {
	st := computeStats(window)
	pred := predictNextScore(window)
	anomalies := detectAnomalies(window, st)

	return domain.AnalyticsSnapshot{
		Stats:      st,
		Chart:      chartData(window),
		Insights:   buildInsights(st, pred, anomalies),
		Prediction: pred,
		Anomalies:  anomalies,
		Heatmap:    keywordHeatmap(window),
	}
}

func computeStats(window []domain.Sample) domain.Stats {
	if len(window) == 0 {
		return domain.Stats{}
	}

	scores := make(stats.Float64Data, len(window))
	criticals := 0
	positives := 0
	for i, s := range window {
		scores[i] = float64(s.Score)
		if s.Score >= domain.ScoreCritical {
			criticals++
		}
		if s.Score < domain.ScorePositive {
			positives++
		}
	}

	mean, _ := scores.Mean()
	n := float64(len(window))

	return domain.Stats{
		Total:        len(window),
		MeanScore:    round(mean),
		CriticalRate: round(float64(criticals) / n * 100),
		PositiveRate: round(float64(positives) / n * 100),
		Trend:        round(computeTrend(window)),
	}
}

// computeTrend is the difference between the mean of the last 5 samples and
// the mean of the 5 preceding them. Zero under 10 samples.
func computeTrend(window []domain.Sample) float64 {
	if len(window) < 2*trendSpan {
		return 0
	}

	last := make(stats.Float64Data, trendSpan)
	prev := make(stats.Float64Data, trendSpan)
	n := len(window)
	for i := 0; i < trendSpan; i++ {
		last[i] = float64(window[n-trendSpan+i].Score)
		prev[i] = float64(window[n-2*trendSpan+i].Score)
	}

	lastMean, _ := last.Mean()
	prevMean, _ := prev.Mean()
	return lastMean - prevMean
}

// fitRegression runs ordinary least squares over the last min(len, 20)
// samples with the sample index as x. Returns false when the window is too
// small or the denominator is degenerate.
func fitRegression(window []domain.Sample) (slope, intercept float64, ok bool) {
	if len(window) < minSamplesForForecast {
		return 0, 0, false
	}

	n := len(window)
	if n > regressionSpan {
		n = regressionSpan
	}
	data := window[len(window)-n:]

	var sumX, sumY, sumXY, sumX2 float64
	for i, s := range data {
		x := float64(i)
		y := float64(s.Score)
		sumX += x
		sumY += y
		sumXY += x * y
		sumX2 += x * x
	}

	denom := float64(n)*sumX2 - sumX*sumX
	if denom == 0 {
		return 0, 0, false
	}

	slope = (float64(n)*sumXY - sumX*sumY) / denom
	intercept = (sumY - slope*sumX) / float64(n)
	return slope, intercept, true
}

// predictNextScore extrapolates the regression at the full window length,
// one step past the most recent sample, and clamps to the score domain.
// The evaluation point outruns the fitted span once the window exceeds it.
func predictNextScore(window []domain.Sample) *domain.Prediction {
	slope, intercept, ok := fitRegression(window)
	if !ok {
		return nil
	}

	predicted := round(slope*float64(len(window)) + intercept)
	if predicted < 0 {
		predicted = 0
	}
	if predicted > 100 {
		predicted = 100
	}

	direction := domain.DirectionDown
	if slope > 0 {
		direction = domain.DirectionUp
	}

	return &domain.Prediction{
		Score:      predicted,
		Direction:  direction,
		Confidence: slopeConfidence(slope),
	}
}

// slopeConfidence grades the forecast by slope stability: a near-flat fit is
// a confident one.
func slopeConfidence(slope float64) domain.PredictionConfidence {
	abs := math.Abs(slope)
	switch {
	case abs < 0.5:
		return domain.ConfidenceHigh
	case abs < 2:
		return domain.ConfidenceMedium
	default:
		return domain.ConfidenceLow
	}
}

// detectAnomalies runs the three detectors. Each yields zero or one finding;
// they are independent of each other. Silent under 10 samples.
func detectAnomalies(window []domain.Sample, st domain.Stats) []domain.Anomaly {
	if len(window) < minSamplesForAnomaly {
		return nil
	}

	var anomalies []domain.Anomaly

	if st.Trend > trendSpikeThreshold {
		anomalies = append(anomalies, domain.Anomaly{
			Type:        domain.AnomalyTrendSpike,
			Severity:    domain.SeverityHigh,
			Title:       fmt.Sprintf("Mean score up %d points", st.Trend),
			Description: "Churn scores are rising fast",
			Impact:      trendImpact(window, st.Trend),
		})
	}

	if st.CriticalRate > criticalRateThreshold {
		anomalies = append(anomalies, domain.Anomaly{
			Type:        domain.AnomalyCriticalOverload,
			Severity:    domain.SeverityHigh,
			Title:       fmt.Sprintf("%d%% of clients at critical risk", st.CriticalRate),
			Description: "Abnormally high share of clients about to leave",
			Impact:      round(float64(st.CriticalRate) / 10),
		})
	}

	if recurring := recurringKeywords(window); len(recurring) > 0 {
		top := recurring[0]
		anomalies = append(anomalies, domain.Anomaly{
			Type:        domain.AnomalyRecurringKeyword,
			Severity:    domain.SeverityMedium,
			Title:       fmt.Sprintf("Recurring issue detected: %q", top.Keyword),
			Description: fmt.Sprintf("Mentioned %d times recently", top.Frequency),
			Impact:      top.Frequency,
		})
	}

	return anomalies
}

// trendImpact estimates how many borderline clients (score in [60,80)) could
// reach the critical zone if the trend continues.
func trendImpact(window []domain.Sample, trend int) int {
	borderline := 0
	for _, s := range window {
		if s.Score >= domain.ScoreAutoSend && s.Score < domain.ScoreCritical {
			borderline++
		}
	}
	return round(float64(borderline) * float64(trend) / trendSpikeThreshold)
}

type keywordCount struct {
	Keyword   string
	Frequency int
}

// recurringKeywords counts keyword frequency over the last 20 samples and
// keeps the top 5 with at least 3 occurrences, most frequent first.
func recurringKeywords(window []domain.Sample) []keywordCount {
	start := len(window) - keywordSpan
	if start < 0 {
		start = 0
	}

	counts := make(map[string]int)
	for _, s := range window[start:] {
		for _, kw := range s.Keywords {
			counts[kw]++
		}
	}

	var result []keywordCount
	for kw, freq := range counts {
		if freq >= keywordMinFrequency {
			result = append(result, keywordCount{Keyword: kw, Frequency: freq})
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].Frequency != result[j].Frequency {
			return result[i].Frequency > result[j].Frequency
		}
		return result[i].Keyword < result[j].Keyword
	})

	if len(result) > keywordTopN {
		result = result[:keywordTopN]
	}
	return result
}

// buildInsights rebuilds the summary list: forecast first, then the global
// state, then one line per anomaly in detection order.
func buildInsights(st domain.Stats, pred *domain.Prediction, anomalies []domain.Anomaly) []domain.Insight {
	var insights []domain.Insight

	if pred != nil {
		insights = append(insights, domain.Insight{
			Type:   domain.InsightPrediction,
			Title:  "Next interaction forecast",
			Value:  fmt.Sprintf("Predicted score: %d/100", pred.Score),
			Detail: fmt.Sprintf("Trend %s (%s confidence)", pred.Direction, pred.Confidence),
		})
	}

	if st.MeanScore > meanCriticalThreshold {
		insights = append(insights, domain.Insight{
			Type:   domain.InsightAlert,
			Title:  "Critical satisfaction level",
			Value:  fmt.Sprintf("Mean score: %d/100", st.MeanScore),
			Detail: fmt.Sprintf("%d%% of clients at imminent risk", st.CriticalRate),
		})
	} else if st.MeanScore < meanHealthyThreshold && st.Total > 0 {
		insights = append(insights, domain.Insight{
			Type:   domain.InsightSuccess,
			Title:  "Excellent customer satisfaction",
			Value:  fmt.Sprintf("Mean score: %d/100", st.MeanScore),
			Detail: fmt.Sprintf("%d%% of clients satisfied", st.PositiveRate),
		})
	}

	for _, a := range anomalies {
		insights = append(insights, domain.Insight{
			Type:   domain.InsightAnomaly,
			Title:  a.Title,
			Value:  a.Description,
			Detail: fmt.Sprintf("Estimated impact: %d clients", a.Impact),
		})
	}

	return insights
}

// chartData renders the last 30 samples with a 5-point left-truncated moving
// average.
func chartData(window []domain.Sample) []domain.ChartPoint {
	start := len(window) - chartSpan
	if start < 0 {
		start = 0
	}
	slice := window[start:]

	points := make([]domain.ChartPoint, len(slice))
	for i, s := range slice {
		maStart := i - movingAverageSpan + 1
		if maStart < 0 {
			maStart = 0
		}
		sum := 0
		for _, p := range slice[maStart : i+1] {
			sum += p.Score
		}
		points[i] = domain.ChartPoint{
			Index:         i + 1,
			Score:         s.Score,
			MovingAverage: round(float64(sum) / float64(i+1-maStart)),
		}
	}
	return points
}

// keywordHeatmap exposes the recurring keywords with their share of the full
// window.
func keywordHeatmap(window []domain.Sample) []domain.KeywordHeat {
	recurring := recurringKeywords(window)
	if len(recurring) == 0 {
		return nil
	}

	heat := make([]domain.KeywordHeat, len(recurring))
	for i, kc := range recurring {
		heat[i] = domain.KeywordHeat{
			Keyword:    kc.Keyword,
			Frequency:  kc.Frequency,
			Percentage: round(float64(kc.Frequency) / float64(len(window)) * 100),
		}
	}
	return heat
}

func round(v float64) int {
	return int(math.Round(v))
}
