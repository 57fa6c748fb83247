package out

import (
	"context"

	"github.com/starkeranthonio-sudo/churn-predictor-backend/core/domain"
)

// ClientRepository reads customer master data.
type ClientRepository interface {
	// FindByID returns the client profile, or nil when unknown.
	FindByID(ctx context.Context, clientID string) (*domain.ClientProfile, error)
}
