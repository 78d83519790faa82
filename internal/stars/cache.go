package stars

import (
	"context"
	"log/slog"
	"slices"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"starmap/internal/model"
)

// CachedSource keeps ingestion results per username for a fixed TTL.
// Entries are dropped on expiry; there is no other invalidation.
type CachedSource struct {
	source Source
	cache  *expirable.LRU[string, []model.StarRecord]
	logger *slog.Logger
}

// WithCache wraps source in a CachedSource. A non-positive ttl disables
// caching and returns source unchanged.
func WithCache(source Source, size int, ttl time.Duration, logger *slog.Logger) Source {
	if ttl <= 0 {
		return source
	}
	if size <= 0 {
		size = 1
	}
	return &CachedSource{
		source: source,
		cache:  expirable.NewLRU[string, []model.StarRecord](size, nil, ttl),
		logger: logger,
	}
}

// ListStarred returns a copy of the cached set for username, ingesting on a miss.
// Failed ingestions are not cached.
func (c *CachedSource) ListStarred(ctx context.Context, username string) ([]model.StarRecord, error) {
	if records, ok := c.cache.Get(username); ok {
		c.logger.Debug("Star cache hit", "username", username, "count", len(records))
		return slices.Clone(records), nil
	}

	records, err := c.source.ListStarred(ctx, username)
	if err != nil {
		return nil, err
	}
	c.cache.Add(username, slices.Clone(records))
	return records, nil
}
