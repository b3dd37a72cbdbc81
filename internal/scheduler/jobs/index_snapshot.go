package jobs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/alexboumb/SuperSimpleStocks2/pkg/logger"
)

// IndexSource is the part of the valuation engine the snapshot job reads
type IndexSource interface {
	AllShareIndex() (float64, error)
	TradedSymbols() []string
}

// IndexSnapshot is one sampled value of the all share index
type IndexSnapshot struct {
	Time         time.Time `json:"time"`
	Value        float64   `json:"value"`
	TradedStocks int       `json:"traded_stocks"`
}

// IndexHistory keeps the most recent snapshots, oldest first
type IndexHistory struct {
	mu        sync.RWMutex
	snapshots []IndexSnapshot
	size      int
}

// NewIndexHistory creates a history holding at most size snapshots
func NewIndexHistory(size int) *IndexHistory {
	if size <= 0 {
		size = 1
	}

	return &IndexHistory{
		snapshots: make([]IndexSnapshot, 0, size),
		size:      size,
	}
}

// Append adds a snapshot, evicting the oldest when full
func (h *IndexHistory) Append(snapshot IndexSnapshot) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.snapshots = append(h.snapshots, snapshot)
	if len(h.snapshots) > h.size {
		h.snapshots = h.snapshots[len(h.snapshots)-h.size:]
	}
}

// Snapshots returns a copy of the history
func (h *IndexHistory) Snapshots() []IndexSnapshot {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]IndexSnapshot, len(h.snapshots))
	copy(out, h.snapshots)
	return out
}

// Latest returns the newest snapshot
func (h *IndexHistory) Latest() (IndexSnapshot, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if len(h.snapshots) == 0 {
		return IndexSnapshot{}, false
	}
	return h.snapshots[len(h.snapshots)-1], true
}

// Len returns the number of stored snapshots
func (h *IndexHistory) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.snapshots)
}

// IndexSnapshotJob samples the all share index on a schedule
type IndexSnapshotJob struct {
	source   IndexSource
	history  *IndexHistory
	schedule string
	now      func() time.Time
	logger   *logger.Logger
}

// NewIndexSnapshotJob creates a new index snapshot job
func NewIndexSnapshotJob(source IndexSource, history *IndexHistory, schedule string, log *logger.Logger) *IndexSnapshotJob {
	if log == nil {
		log = logger.Nop()
	}

	return &IndexSnapshotJob{
		source:   source,
		history:  history,
		schedule: schedule,
		now:      time.Now,
		logger:   log,
	}
}

// Name returns the job name
func (j *IndexSnapshotJob) Name() string {
	return "index_snapshot"
}

// Schedule returns the configured cron schedule
func (j *IndexSnapshotJob) Schedule() string {
	return j.schedule
}

// Run computes the index and appends it to the history
func (j *IndexSnapshotJob) Run(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	value, err := j.source.AllShareIndex()
	if err != nil {
		return fmt.Errorf("failed to compute all share index: %w", err)
	}

	snapshot := IndexSnapshot{
		Time:         j.now(),
		Value:        value,
		TradedStocks: len(j.source.TradedSymbols()),
	}
	j.history.Append(snapshot)

	j.logger.WithFields(map[string]interface{}{
		"index":         snapshot.Value,
		"traded_stocks": snapshot.TradedStocks,
	}).Debug("Index snapshot taken")

	return nil
}
