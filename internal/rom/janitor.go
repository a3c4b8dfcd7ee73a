package rom

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Janitor prunes stale cache entries on a cron schedule while a
// long-lived session (a flash or capture) is running.
type Janitor struct {
	cache  *Cache
	cron   *cron.Cron
	ttl    time.Duration
	logger *zap.Logger
}

// NewJanitor creates a janitor that sweeps the cache on the given cron
// schedule, removing entries older than ttl.
func NewJanitor(cache *Cache, schedule string, ttl time.Duration, logger *zap.Logger) (*Janitor, error) {
	j := &Janitor{
		cache:  cache,
		cron:   cron.New(),
		ttl:    ttl,
		logger: logger,
	}
	if _, err := j.cron.AddFunc(schedule, j.sweep); err != nil {
		return nil, fmt.Errorf("invalid cache prune schedule %q: %w", schedule, err)
	}
	return j, nil
}

// Start begins scheduled sweeps.
func (j *Janitor) Start() {
	j.cron.Start()
	j.logger.Debug("Cache janitor started", zap.Duration("ttl", j.ttl))
}

// Stop halts scheduled sweeps. Running sweeps finish first.
func (j *Janitor) Stop() {
	ctx := j.cron.Stop()
	<-ctx.Done()
}

func (j *Janitor) sweep() {
	removed, err := j.cache.Prune(j.ttl)
	if err != nil {
		j.logger.Error("Cache prune failed", zap.Error(err))
		return
	}
	if removed > 0 {
		j.logger.Info("Pruned stale cache entries", zap.Int("removed", removed))
	}
}
