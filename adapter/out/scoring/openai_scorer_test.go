package scoring

import (
	"strings"
	"testing"

	"github.com/starkeranthonio-sudo/churn-predictor-backend/core/domain"
)

func TestParseResultPlainJSON(t *testing.T) {
	raw := `{"score": 85, "sentiment": "negative", "reasons": ["billing issue"], "action": "escalate", "keywords": ["refund"], "suggestedReplies": [{"tone": "empathetic", "text": "We hear you"}]}`

	result, err := parseResult(raw)
	if err != nil {
		t.Fatalf("parseResult: %v", err)
	}
	if result.Score != 85 || result.Sentiment != domain.SentimentNegative {
		t.Fatalf("unexpected result: %+v", result)
	}
	if len(result.SuggestedReplies) != 1 || result.SuggestedReplies[0].Tone != "empathetic" {
		t.Fatalf("unexpected replies: %+v", result.SuggestedReplies)
	}
}

func TestParseResultStripsCodeFences(t *testing.T) {
	for _, raw := range []string{
		"```json\n{\"score\": 40, \"sentiment\": \"neutral\"}\n```",
		"```\n{\"score\": 40, \"sentiment\": \"neutral\"}\n```",
	} {
		result, err := parseResult(raw)
		if err != nil {
			t.Fatalf("parseResult(%q): %v", raw, err)
		}
		if result.Score != 40 {
			t.Fatalf("expected score 40, got %d", result.Score)
		}
	}
}

func TestParseResultRejectsBadOutput(t *testing.T) {
	if _, err := parseResult("the customer seems upset"); err == nil {
		t.Fatal("expected error for non-JSON output")
	}
	if _, err := parseResult(`{"score": 140, "sentiment": "negative"}`); err == nil {
		t.Fatal("expected error for out-of-range score")
	}
}

func TestParseResultDefaultsUnknownSentiment(t *testing.T) {
	result, err := parseResult(`{"score": 50, "sentiment": "confused"}`)
	if err != nil {
		t.Fatalf("parseResult: %v", err)
	}
	if result.Sentiment != domain.SentimentNeutral {
		t.Fatalf("expected neutral fallback, got %q", result.Sentiment)
	}
}

func TestBuildPromptIncludesHistoryAndProfile(t *testing.T) {
	history := []domain.HistoryEntry{
		{Text: "the app keeps crashing", Score: 70},
		{Text: "still broken", Score: 80},
	}
	client := &domain.ClientProfile{Name: "Marie Dubois", Email: "marie@example.com"}

	prompt := buildPrompt("I want to cancel", history, client)

	for _, want := range []string{
		"Marie Dubois",
		"marie@example.com",
		"interaction #3",
		"the app keeps crashing",
		"(score 80)",
		"I want to cancel",
	} {
		if !strings.Contains(prompt, want) {
			t.Fatalf("prompt missing %q:\n%s", want, prompt)
		}
	}
}

func TestBuildPromptHandlesUnknownClient(t *testing.T) {
	prompt := buildPrompt("hello", nil, nil)
	if !strings.Contains(prompt, "CLIENT: Client") || !strings.Contains(prompt, "interaction #1") {
		t.Fatalf("unexpected prompt for unknown client:\n%s", prompt)
	}
}
