package persistence

import (
	"context"
	"time"

	"github.com/starkeranthonio-sudo/churn-predictor-backend/core/domain"
	"github.com/starkeranthonio-sudo/churn-predictor-backend/core/port/out"
	"github.com/starkeranthonio-sudo/churn-predictor-backend/pkg/cache"
	"github.com/starkeranthonio-sudo/churn-predictor-backend/pkg/logger"
)

// CachedClientRepository decorates a ClientRepository with a Redis cache.
// Unknown clients are cached too so repeated lookups for the same missing
// profile do not hit the database.
type CachedClientRepository struct {
	inner out.ClientRepository
	cache *cache.RedisCache
	ttl   time.Duration
}

// cachedProfile is the cache envelope. Found distinguishes a cached miss
// from an absent cache entry.
type cachedProfile struct {
	Found   bool                  `json:"found"`
	Profile *domain.ClientProfile `json:"profile,omitempty"`
}

// NewCachedClientRepository wraps inner with a Redis profile cache.
func NewCachedClientRepository(inner out.ClientRepository, c *cache.RedisCache, ttl time.Duration) *CachedClientRepository {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &CachedClientRepository{
		inner: inner,
		cache: c,
		ttl:   ttl,
	}
}

// FindByID returns the client profile, or nil when unknown.
func (r *CachedClientRepository) FindByID(ctx context.Context, clientID string) (*domain.ClientProfile, error) {
	key := "client:profile:" + clientID

	var cached cachedProfile
	hit, err := r.cache.GetJSON(ctx, key, &cached)
	if err != nil {
		logger.Warn("Client cache read failed for %s: %v", clientID, err)
	} else if hit {
		if !cached.Found {
			return nil, nil
		}
		return cached.Profile, nil
	}

	profile, err := r.inner.FindByID(ctx, clientID)
	if err != nil {
		return nil, err
	}

	if err := r.cache.SetJSON(ctx, key, cachedProfile{Found: profile != nil, Profile: profile}, r.ttl); err != nil {
		logger.Warn("Client cache write failed for %s: %v", clientID, err)
	}

	return profile, nil
}

var _ out.ClientRepository = (*CachedClientRepository)(nil)
