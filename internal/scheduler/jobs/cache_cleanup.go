package jobs

import (
	"context"

	"github.com/alexboumb/SuperSimpleStocks2/internal/realtime/cache"
	"github.com/alexboumb/SuperSimpleStocks2/pkg/logger"
)

// CacheCleanupJob drops stale entries from the last-trade cache
type CacheCleanupJob struct {
	cache  *cache.TradeCache
	logger *logger.Logger
}

// NewCacheCleanupJob creates a new cache cleanup job
func NewCacheCleanupJob(tradeCache *cache.TradeCache, log *logger.Logger) *CacheCleanupJob {
	if log == nil {
		log = logger.Nop()
	}

	return &CacheCleanupJob{
		cache:  tradeCache,
		logger: log,
	}
}

// Name returns the job name
func (j *CacheCleanupJob) Name() string {
	return "cache_cleanup"
}

// Schedule returns the cron schedule (every 5 minutes)
func (j *CacheCleanupJob) Schedule() string {
	return "0 */5 * * * *"
}

// Run executes the cache cleanup
func (j *CacheCleanupJob) Run(ctx context.Context) error {
	j.logger.Debug("Starting scheduled cache cleanup")

	count := j.cache.CleanStale()

	if count > 0 {
		j.logger.WithField("removed", count).Info("Cache cleanup completed")
	}

	return nil
}
