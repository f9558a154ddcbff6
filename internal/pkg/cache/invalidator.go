package cache

import (
	"context"
	"fmt"

	"github.com/gofiber/fiber/v2/log"
	"github.com/redis/go-redis/v9"
	"github.com/sportac/backoffice/internal/pkg/metrics"
)

// Invalidator drops read-through cache entries after a successful write.
// Best effort only: a failed invalidation leaves a stale entry that heals on
// its own TTL, so failures are logged and counted, never escalated.
type Invalidator struct {
	client *redis.Client
}

// NewInvalidator creates an invalidator on an explicit Redis client.
func NewInvalidator(client *redis.Client) *Invalidator {
	return &Invalidator{client: client}
}

// NewInvalidatorFromCache creates an invalidator on the shared cache client.
func NewInvalidatorFromCache() *Invalidator {
	return &Invalidator{client: GetClient()}
}

// Invalidate removes the given keys. Fire-and-forget semantics: the error is
// consumed here and only surfaces through logs and the failure counter.
func (i *Invalidator) Invalidate(ctx context.Context, keys ...string) {
	if len(keys) == 0 {
		return
	}
	if err := i.client.Del(ctx, keys...).Err(); err != nil {
		metrics.CacheInvalidationFailures.Inc()
		log.Warnf("[Cache] invalidation failed for %d key(s): %v", len(keys), err)
	}
}

// AthleteProfileKey is the read-through cache key for an athlete profile.
func AthleteProfileKey(athleteID string) string {
	return fmt.Sprintf("athlete:profile:%s", athleteID)
}

// EnrollmentRequestsKey is the read-through cache key for an athlete's
// enrollment request listing.
func EnrollmentRequestsKey(athleteID string) string {
	return fmt.Sprintf("enrollment:requests:%s", athleteID)
}
