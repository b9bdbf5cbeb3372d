package fingerprint

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gofrs/flock"
)

// lockRetryDelay paces lock acquisition attempts while another process holds
// the merge lock.
const lockRetryDelay = 100 * time.Millisecond

// Coordinator owns the single durable writer role. Worker caches accumulate
// pending records; the coordinator merges them into SQLite under a sidecar
// file lock so concurrent dupecull invocations sharing one database cannot
// interleave batch writes.
type Coordinator struct {
	store  *Store
	lock   *flock.Flock
	logger *slog.Logger
}

// NewCoordinator builds a coordinator for the store.
func NewCoordinator(store *Store, logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{
		store:  store,
		lock:   flock.New(store.Path() + ".lock"),
		logger: logger,
	}
}

// Merge writes the pending records from the provided caches into the durable
// store inside one locked batch. The memory layers stay authoritative for the
// rest of the run even if the merge fails.
func (c *Coordinator) Merge(ctx context.Context, caches ...*Cache) (int, error) {
	var records []Record
	for _, cache := range caches {
		if cache == nil {
			continue
		}
		records = append(records, cache.Pending()...)
	}
	if len(records) == 0 {
		return 0, nil
	}

	locked, err := c.lock.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return 0, fmt.Errorf("acquire store lock: %w", err)
	}
	if !locked {
		return 0, fmt.Errorf("store lock held by another process")
	}
	defer func() {
		if unlockErr := c.lock.Unlock(); unlockErr != nil {
			c.logger.Warn("release store lock", "error", unlockErr)
		}
	}()

	written, err := c.store.PutBatch(ctx, records)
	if err != nil {
		return 0, fmt.Errorf("merge pending fingerprints: %w", err)
	}
	c.logger.Info("merged worker fingerprints", "records", written)
	return written, nil
}
