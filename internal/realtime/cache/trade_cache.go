package cache

import (
	"sync"
	"time"

	"github.com/alexboumb/SuperSimpleStocks2/internal/ledger"
	"github.com/alexboumb/SuperSimpleStocks2/internal/realtime"
	"github.com/alexboumb/SuperSimpleStocks2/pkg/logger"
)

// TradeCache keeps the last trade per symbol
type TradeCache struct {
	mu     sync.RWMutex
	trades map[string]*realtime.TradeEvent
	ttl    time.Duration
	now    func() time.Time
	logger *logger.Logger
}

// NewTradeCache creates a new last-trade cache
func NewTradeCache(ttl time.Duration, log *logger.Logger) *TradeCache {
	if log == nil {
		log = logger.Nop()
	}

	return &TradeCache{
		trades: make(map[string]*realtime.TradeEvent),
		ttl:    ttl,
		now:    time.Now,
		logger: log,
	}
}

// Update stores event as the last trade of its symbol.
// Events older than the cached one are rejected.
func (c *TradeCache) Update(event *realtime.TradeEvent) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	existing, exists := c.trades[event.Symbol]
	if exists && event.Timestamp.Before(existing.Timestamp) {
		c.logger.WithFields(map[string]interface{}{
			"symbol":   event.Symbol,
			"new_time": event.Timestamp,
			"old_time": existing.Timestamp,
		}).Debug("Rejected older trade")
		return false
	}

	stored := *event
	stored.IsStale = c.isStale(&stored)
	c.trades[event.Symbol] = &stored

	c.logger.WithFields(map[string]interface{}{
		"symbol": event.Symbol,
		"price":  event.Price,
		"stale":  stored.IsStale,
	}).Debug("Updated trade cache")

	return true
}

// Observe is a valuation.TradeListener
func (c *TradeCache) Observe(trade ledger.Trade) {
	c.Update(realtime.NewTradeEvent(trade))
}

// Get returns a copy of the last trade of symbol
func (c *TradeCache) Get(symbol string) (*realtime.TradeEvent, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	event, exists := c.trades[symbol]
	if !exists {
		return nil, false
	}

	return c.snapshot(event), true
}

// GetAll returns copies of every cached trade
func (c *TradeCache) GetAll() map[string]*realtime.TradeEvent {
	c.mu.RLock()
	defer c.mu.RUnlock()

	result := make(map[string]*realtime.TradeEvent, len(c.trades))
	for symbol, event := range c.trades {
		result[symbol] = c.snapshot(event)
	}

	return result
}

// GetMany returns copies of the cached trades of symbols
func (c *TradeCache) GetMany(symbols []string) map[string]*realtime.TradeEvent {
	c.mu.RLock()
	defer c.mu.RUnlock()

	result := make(map[string]*realtime.TradeEvent, len(symbols))
	for _, symbol := range symbols {
		if event, exists := c.trades[symbol]; exists {
			result[symbol] = c.snapshot(event)
		}
	}

	return result
}

// Len returns the number of cached symbols
func (c *TradeCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.trades)
}

// CleanStale removes trades older than the TTL
func (c *TradeCache) CleanStale() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	count := 0
	for symbol, event := range c.trades {
		if c.isStale(event) {
			delete(c.trades, symbol)
			count++
		}
	}

	if count > 0 {
		c.logger.WithField("count", count).Info("Cleaned stale trades from cache")
	}

	return count
}

// Stats returns cache statistics
func (c *TradeCache) Stats() CacheStats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	stats := CacheStats{
		TotalCount: len(c.trades),
	}

	for _, event := range c.trades {
		if c.isStale(event) {
			stats.StaleCount++
		}
	}

	stats.FreshCount = stats.TotalCount - stats.StaleCount

	return stats
}

func (c *TradeCache) snapshot(event *realtime.TradeEvent) *realtime.TradeEvent {
	copied := *event
	copied.IsStale = c.isStale(event)
	return &copied
}

func (c *TradeCache) isStale(event *realtime.TradeEvent) bool {
	return c.now().Sub(event.Timestamp) > c.ttl
}

// CacheStats represents cache statistics
type CacheStats struct {
	TotalCount int `json:"total_count"`
	FreshCount int `json:"fresh_count"`
	StaleCount int `json:"stale_count"`
}
