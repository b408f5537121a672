package tools

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

const defaultCacheTTL = 5 * time.Minute

// CachedProber wraps a Prober to cache probe results with a TTL, so
// every import and export job does not re-run the version commands.
type CachedProber struct {
	prober Prober
	ttl    time.Duration
	logger *slog.Logger

	mu     sync.RWMutex
	cached *Capabilities
}

func NewCachedProber(prober Prober, logger *slog.Logger) *CachedProber {
	return &CachedProber{
		prober: prober,
		ttl:    defaultCacheTTL,
		logger: logger,
	}
}

// Get returns cached capabilities if fresh, otherwise re-probes.
func (c *CachedProber) Get(ctx context.Context) (*Capabilities, error) {
	c.mu.RLock()
	if c.cached != nil && time.Since(c.cached.ProbedAt) < c.ttl {
		caps := c.cached
		c.mu.RUnlock()
		return caps, nil
	}
	c.mu.RUnlock()

	return c.Refresh(ctx)
}

// Peek returns the cached capabilities without probing, or nil.
func (c *CachedProber) Peek() *Capabilities {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cached
}

// Refresh forces a new probe regardless of cache freshness.
func (c *CachedProber) Refresh(ctx context.Context) (*Capabilities, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	caps, err := c.prober.Probe(ctx)
	if err != nil {
		c.logger.Warn("tool probe failed", "error", err)
		if c.cached != nil {
			c.logger.Info("returning stale tool capabilities")
			return c.cached, nil
		}
		return nil, err
	}

	c.cached = caps
	return caps, nil
}

// Invalidate clears the cached capabilities.
func (c *CachedProber) Invalidate() {
	c.mu.Lock()
	c.cached = nil
	c.mu.Unlock()
}
