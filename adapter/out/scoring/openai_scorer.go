// Package scoring implements the generative churn-scoring backend.
package scoring

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"
	"github.com/sony/gobreaker"

	"github.com/starkeranthonio-sudo/churn-predictor-backend/core/domain"
	"github.com/starkeranthonio-sudo/churn-predictor-backend/core/port/out"
	"github.com/starkeranthonio-sudo/churn-predictor-backend/pkg/metrics"
)

const (
	DefaultModel = "gpt-4o-mini"

	defaultMaxTokens   = 2048
	defaultTemperature = 0.7

	// History lines embedded in the prompt.
	promptHistoryLines = 5
	promptExcerptLen   = 100

	// Latency summary cadence.
	latencyWindow    = 200
	latencyLogEveryN = 20
)

// Config holds scorer configuration.
type Config struct {
	APIKeys     []string
	Model       string
	MaxTokens   int
	Temperature float64
}

// OpenAIScorer implements out.MessageScorer with automatic failover across
// API keys. The scorer sticks to the last key that worked; on failure it
// rotates through the remaining keys and only errors once every key failed.
type OpenAIScorer struct {
	clients     []*openai.Client
	model       string
	maxTokens   int
	temperature float32
	cb          *gobreaker.CircuitBreaker
	latency     *metrics.LatencyTracker
	log         zerolog.Logger

	mu      sync.Mutex
	current int
}

// NewOpenAIScorer creates the scorer. At least one API key is required.
func NewOpenAIScorer(cfg Config, log zerolog.Logger) (*OpenAIScorer, error) {
	if len(cfg.APIKeys) == 0 {
		return nil, fmt.Errorf("scoring: at least one API key is required")
	}

	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	maxTokens := cfg.MaxTokens
	if maxTokens == 0 {
		maxTokens = defaultMaxTokens
	}
	temperature := cfg.Temperature
	if temperature == 0 {
		temperature = defaultTemperature
	}

	clients := make([]*openai.Client, len(cfg.APIKeys))
	for i, key := range cfg.APIKeys {
		clients[i] = openai.NewClient(key)
	}

	cbSettings := gobreaker.Settings{
		Name:        "openai-scoring",
		MaxRequests: 3,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.ConsecutiveFailures > 5 ||
				(counts.Requests >= 10 && failureRatio >= 0.6)
		},
	}

	return &OpenAIScorer{
		clients:     clients,
		model:       model,
		maxTokens:   maxTokens,
		temperature: float32(temperature),
		cb:          gobreaker.NewCircuitBreaker(cbSettings),
		latency:     metrics.NewLatencyTracker(latencyWindow),
		log:         log.With().Str("component", "openai_scorer").Logger(),
	}, nil
}

// Score analyzes one message and returns the structured result.
func (s *OpenAIScorer) Score(ctx context.Context, text, clientID string, history []domain.HistoryEntry, client *domain.ClientProfile) (*domain.AnalysisResult, error) {
	prompt := buildPrompt(text, history, client)

	start := time.Now()
	result, err := s.cb.Execute(func() (interface{}, error) {
		return s.completeWithFailover(ctx, prompt)
	})
	if err != nil {
		return nil, fmt.Errorf("scoring failed for client %s: %w", clientID, err)
	}
	s.recordLatency(time.Since(start))

	parsed, err := parseResult(result.(string))
	if err != nil {
		return nil, fmt.Errorf("scoring produced unparseable output for client %s: %w", clientID, err)
	}

	s.log.Debug().
		Str("client_id", clientID).
		Int("score", parsed.Score).
		Str("sentiment", string(parsed.Sentiment)).
		Msg("message scored")

	return parsed, nil
}

// recordLatency tracks completion latency and logs a rolling summary.
func (s *OpenAIScorer) recordLatency(d time.Duration) {
	s.latency.Record(d)
	if s.latency.Count()%latencyLogEveryN == 0 {
		stats := s.latency.Stats()
		s.log.Info().
			Fields(stats.ToMap()).
			Msg("scoring latency summary")
	}
}

// completeWithFailover tries the current key first, then rotates through the
// rest. The key that succeeds becomes the new current.
func (s *OpenAIScorer) completeWithFailover(ctx context.Context, prompt string) (string, error) {
	s.mu.Lock()
	start := s.current
	s.mu.Unlock()

	var lastErr error
	for attempt := 0; attempt < len(s.clients); attempt++ {
		idx := (start + attempt) % len(s.clients)

		resp, err := s.clients[idx].CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model:       s.model,
			MaxTokens:   s.maxTokens,
			Temperature: s.temperature,
			Messages: []openai.ChatCompletionMessage{
				{
					Role:    openai.ChatMessageRoleUser,
					Content: prompt,
				},
			},
			ResponseFormat: &openai.ChatCompletionResponseFormat{
				Type: openai.ChatCompletionResponseFormatTypeJSONObject,
			},
		})
		if err != nil {
			lastErr = err
			s.log.Warn().Err(err).Int("key_index", idx).Msg("scoring key failed, rotating")
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			continue
		}
		if len(resp.Choices) == 0 {
			lastErr = fmt.Errorf("empty completion")
			continue
		}

		s.mu.Lock()
		s.current = idx
		s.mu.Unlock()

		return resp.Choices[0].Message.Content, nil
	}

	return "", fmt.Errorf("all %d scoring keys failed: %w", len(s.clients), lastErr)
}

// buildPrompt assembles the analysis prompt. The model answers in the
// customer's language and tailors suggested replies to the interaction count.
func buildPrompt(text string, history []domain.HistoryEntry, client *domain.ClientProfile) string {
	clientName := "Client"
	clientEmail := "unknown"
	if client != nil {
		if client.Name != "" {
			clientName = client.Name
		}
		if client.Email != "" {
			clientEmail = client.Email
		}
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, `You are an expert customer-service AI assistant.

CRITICAL RULES:
1. DETECT THE LANGUAGE of the message and ANSWER IN THE SAME LANGUAGE
2. PERSONALIZATION: this is interaction #%d with this customer
3. ADDRESS THE CUSTOMER'S ACTUAL CONCERN
4. SCORE: 0-30 satisfied, 30-60 neutral, 60-80 frustrated, 80-100 critical

CLIENT: %s
EMAIL: %s
HISTORY: %d prior message(s)
`, len(history)+1, clientName, clientEmail, len(history))

	if len(history) > 0 {
		sb.WriteString("\nRecent interactions:\n")
		for i, h := range history {
			if i >= promptHistoryLines {
				break
			}
			excerpt := h.Text
			if len(excerpt) > promptExcerptLen {
				excerpt = excerpt[:promptExcerptLen] + "..."
			}
			fmt.Fprintf(&sb, "%d. %q (score %d)\n", i+1, excerpt, h.Score)
		}
	}

	fmt.Fprintf(&sb, `
MESSAGE:
%q

Return a JSON object (no backticks):
{
  "score": <0-100>,
  "sentiment": "positive|neutral|negative",
  "reasons": ["reason 1", "reason 2"],
  "action": "recommended next action",
  "keywords": ["keyword1", "keyword2"],
  "suggestedReplies": [
    {"tone": "empathetic", "text": "personal reply addressing %s"},
    {"tone": "solution", "text": "concrete fix for the concern"},
    {"tone": "compensation", "text": "commercial gesture if score > 60"}
  ]
}`, text, clientName)

	return sb.String()
}

// parseResult decodes the model output, tolerating markdown code fences.
func parseResult(raw string) (*domain.AnalysisResult, error) {
	cleaned := strings.TrimSpace(raw)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	cleaned = strings.TrimSpace(cleaned)

	var result domain.AnalysisResult
	if err := json.Unmarshal([]byte(cleaned), &result); err != nil {
		return nil, err
	}
	if result.Score < 0 || result.Score > 100 {
		return nil, fmt.Errorf("score %d out of range", result.Score)
	}
	switch result.Sentiment {
	case domain.SentimentPositive, domain.SentimentNeutral, domain.SentimentNegative:
	default:
		result.Sentiment = domain.SentimentNeutral
	}

	return &result, nil
}

var _ out.MessageScorer = (*OpenAIScorer)(nil)
