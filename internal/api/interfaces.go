package api

import (
	"context"
	"time"

	"github.com/mvbarbosa/destino-api/internal/city"
	"github.com/mvbarbosa/destino-api/internal/history"
	"github.com/mvbarbosa/destino-api/internal/search"
)

// DestinationSearcher runs the aggregation pipeline for handlers.
type DestinationSearcher interface {
	Search(ctx context.Context, req search.Request) (*search.Response, error)
}

// CityLister lists cities by popularity for handlers.
type CityLister interface {
	ListPopular(ctx context.Context, limit int) ([]*city.City, error)
}

// CacheAdmin defines the cache maintenance operations needed by handlers.
type CacheAdmin interface {
	Delete(ctx context.Context, cityID string) error
	RefreshTTL(ctx context.Context, cityID string, ttl time.Duration) (bool, error)
}

// HistoryReader lists a user's past searches.
type HistoryReader interface {
	ListByUser(ctx context.Context, userID string, limit int) ([]*history.Record, error)
}
