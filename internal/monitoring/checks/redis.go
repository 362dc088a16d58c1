package checks

import (
	"context"
	"time"

	"github.com/charlesng35/tripmate/internal/monitoring"
)

// Pinger is satisfied by cache.RedisStore.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Cache probes the Redis cache. Reads fall back to the primary store when Redis
// is down, so the probe is optional. A nil pinger reports the database fallback.
func Cache(pinger Pinger) monitoring.Check {
	return monitoring.NewOptionalCheck("cache", func(ctx context.Context) monitoring.ProbeResult {
		start := time.Now()
		if pinger == nil {
			return monitoring.ProbeResult{Status: monitoring.StatusUp, Details: "redis disabled, using database store"}
		}
		return monitoring.ResultFromError(pinger.Ping(ctx), time.Since(start))
	})
}
