package checks

import (
	"context"
	"time"

	"github.com/sony/gobreaker"

	"github.com/charlesng35/catalog/internal/monitoring"
)

const defaultCacheTimeout = 2 * time.Second

// CachePinger is the minimal view of a cache backend needed for probing.
type CachePinger interface {
	Ping(ctx context.Context) error
}

type breakerState interface {
	State() gobreaker.State
}

// Cache returns a readiness probe for the cache backend. The cache is advisory, so a failing
// backend degrades readiness rather than taking the service down.
func Cache(backend string, store CachePinger, timeout time.Duration) monitoring.Check {
	return monitoring.NewCheck("cache", func(ctx context.Context) monitoring.ProbeResult {
		start := time.Now()
		if store == nil {
			return monitoring.ProbeResult{
				Status:   monitoring.StatusDegraded,
				Details:  "cache unavailable",
				Duration: time.Since(start),
			}
		}

		if b, ok := store.(breakerState); ok && b.State() == gobreaker.StateOpen {
			return monitoring.ProbeResult{
				Status:   monitoring.StatusDegraded,
				Details:  backend + ": circuit open",
				Duration: time.Since(start),
			}
		}

		probeCtx, cancel := context.WithTimeout(ctx, chooseTimeout(timeout, defaultCacheTimeout))
		defer cancel()

		if err := store.Ping(probeCtx); err != nil {
			return monitoring.ProbeResult{
				Status:   monitoring.StatusDegraded,
				Details:  backend + ": " + err.Error(),
				Duration: time.Since(start),
			}
		}

		return monitoring.ProbeResult{
			Status:   monitoring.StatusUp,
			Details:  backend,
			Duration: time.Since(start),
		}
	})
}
