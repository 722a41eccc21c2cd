package navigator

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"ratelens/internal/domain"
)

const fingerprintPrefix = "dataset_sel_"

// Fingerprint derives a stable cache key for a partition selection. Two
// requests that differ only in payer order or in blank optional filters
// produce the same key.
func Fingerprint(filters *domain.ResolvedFilters, maxRows, maxPartitions int) string {
	payload := struct {
		Filters       map[string][]string `json:"filters"`
		MaxRows       int                 `json:"max_rows"`
		MaxPartitions int                 `json:"max_partitions"`
	}{
		Filters:       filters.CanonicalMap(),
		MaxRows:       maxRows,
		MaxPartitions: maxPartitions,
	}

	// Map keys marshal in sorted order, so the encoding is canonical.
	encoded, err := json.Marshal(payload)
	if err != nil {
		// Only func/chan/complex values can fail to marshal; the payload
		// holds none. Fall back to a non-colliding key rather than panic.
		encoded = []byte(fmt.Sprintf("%#v", payload))
	}
	sum := md5.Sum(encoded)
	return fingerprintPrefix + hex.EncodeToString(sum[:])
}

type cacheEntry struct {
	meta      *domain.SelectionMetadata
	expiresAt time.Time
}

// SelectionTTLCache is an in-memory TTL cache over selection metadata. It
// stores descriptors and limits only, never fetched rows.
type SelectionTTLCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]cacheEntry

	// now is replaceable in tests.
	now func() time.Time
}

// NewSelectionTTLCache returns an empty cache whose entries expire after ttl.
func NewSelectionTTLCache(ttl time.Duration) *SelectionTTLCache {
	return &SelectionTTLCache{
		ttl:     ttl,
		entries: make(map[string]cacheEntry),
		now:     time.Now,
	}
}

// Get returns the live entry for key, lazily evicting it when expired.
func (c *SelectionTTLCache) Get(key string) (*domain.SelectionMetadata, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if c.now().After(entry.expiresAt) {
		delete(c.entries, key)
		return nil, false
	}
	return entry.meta, true
}

// Put stores meta under key, resetting its TTL.
func (c *SelectionTTLCache) Put(key string, meta *domain.SelectionMetadata) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = cacheEntry{meta: meta, expiresAt: c.now().Add(c.ttl)}
}

// Purge removes expired entries and reports how many were evicted.
func (c *SelectionTTLCache) Purge() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	evicted := 0
	for key, entry := range c.entries {
		if now.After(entry.expiresAt) {
			delete(c.entries, key)
			evicted++
		}
	}
	return evicted
}

// Len reports the number of stored entries, including any not yet purged.
func (c *SelectionTTLCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
