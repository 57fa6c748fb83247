// Package persistence provides database adapters implementing outbound ports.
package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/starkeranthonio-sudo/churn-predictor-backend/core/domain"
	"github.com/starkeranthonio-sudo/churn-predictor-backend/core/port/out"
)

// ClientAdapter implements out.ClientRepository on the clients table.
type ClientAdapter struct {
	pool *pgxpool.Pool
}

// NewClientAdapter creates a new ClientAdapter.
func NewClientAdapter(pool *pgxpool.Pool) *ClientAdapter {
	return &ClientAdapter{pool: pool}
}

// FindByID retrieves a client profile. Returns (nil, nil) when the client is
// unknown so callers can treat a missing profile as a soft miss.
func (a *ClientAdapter) FindByID(ctx context.Context, clientID string) (*domain.ClientProfile, error) {
	const query = `
		SELECT id, name, email, COALESCE(plan, ''), created_at
		FROM clients
		WHERE id = $1`

	var profile domain.ClientProfile
	err := a.pool.QueryRow(ctx, query, clientID).Scan(
		&profile.ID,
		&profile.Name,
		&profile.Email,
		&profile.Plan,
		&profile.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get client %s: %w", clientID, err)
	}

	return &profile, nil
}

var _ out.ClientRepository = (*ClientAdapter)(nil)
