package out

import (
	"context"

	"github.com/starkeranthonio-sudo/churn-predictor-backend/core/domain"
)

// MessageScorer is the generative scoring backend. Implementations own their
// failover and retry semantics; an error returned here is terminal for the
// message being analyzed.
type MessageScorer interface {
	Score(ctx context.Context, text, clientID string, history []domain.HistoryEntry, client *domain.ClientProfile) (*domain.AnalysisResult, error)
}
