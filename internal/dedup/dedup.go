// Package dedup guards against duplicate processing of redelivered webhook
// updates.
package dedup

import (
	"fmt"
	"time"

	"github.com/BTreeMap/SyncPost/internal/store"
)

// MarkerTTL is how long a processed-update marker lives. Long enough to
// absorb webhook retries, short enough not to accumulate unbounded state.
const MarkerTTL = 5 * time.Minute

const markerKeyPrefix = "proc_"

// Guard performs per-update idempotency checks via the key-value store.
type Guard struct {
	kv store.KV
}

// NewGuard creates a dedup guard over the given KV backend.
func NewGuard(kv store.KV) *Guard {
	return &Guard{kv: kv}
}

// ShouldProcess reports whether the update id has not been seen within the
// marker TTL, claiming it atomically when so. A store failure propagates to
// the caller rather than being swallowed.
func (g *Guard) ShouldProcess(updateID int) (bool, error) {
	key := fmt.Sprintf("%s%d", markerKeyPrefix, updateID)
	ok, err := g.kv.SetIfAbsent(key, "1", MarkerTTL)
	if err != nil {
		return false, fmt.Errorf("dedup check failed for update %d: %w", updateID, err)
	}
	return ok, nil
}
