package cache

import (
	"context"
	"time"

	"tillpoint/backend/internal/domain"
)

// CatalogCache holds product lookups keyed by the sorted set of scanned
// codes, so repeated baskets skip the store round trip.
type CatalogCache interface {
	Get(ctx context.Context, key string) (map[string]domain.Product, bool, error)
	Set(ctx context.Context, key string, value map[string]domain.Product, ttl time.Duration) error
}

type NoopCatalogCache struct{}

func (NoopCatalogCache) Get(_ context.Context, _ string) (map[string]domain.Product, bool, error) {
	return nil, false, nil
}

func (NoopCatalogCache) Set(_ context.Context, _ string, _ map[string]domain.Product, _ time.Duration) error {
	return nil
}
