package gbif

import (
	"container/list"
	"encoding/json"
	"net/url"
	"strings"
	"sync"
	"time"
)

// CacheStats reports the cache's resident footprint.
type CacheStats struct {
	EntryCount     int   `json:"entryCount"`
	TotalSizeBytes int64 `json:"totalSizeBytes"`
}

// Cache memoizes successful GET responses by request fingerprint. Total
// resident size is bounded: inserting past the byte budget evicts the
// least-recently-read entries first. Entries expire passively after the TTL;
// a read refreshes both an entry's age and its recency.
type Cache struct {
	mu         sync.Mutex
	maxBytes   int64
	ttl        time.Duration
	entries    map[string]*list.Element
	lru        *list.List // front = most recently read
	totalBytes int64
}

type cacheEntry struct {
	key      string
	value    []byte
	size     int64
	storedAt time.Time
}

// NewCache creates a cache bounded by maxBytes total payload size, with
// per-entry time-to-live ttl.
func NewCache(maxBytes int64, ttl time.Duration) *Cache {
	return &Cache{
		maxBytes: maxBytes,
		ttl:      ttl,
		entries:  make(map[string]*list.Element),
		lru:      list.New(),
	}
}

// Get returns the cached payload for key, or false on a miss. An expired
// entry behaves as a miss and is dropped.
func (c *Cache) Get(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	entry := elem.Value.(*cacheEntry)

	if time.Since(entry.storedAt) >= c.ttl {
		c.removeLocked(elem)
		return nil, false
	}

	entry.storedAt = time.Now()
	c.lru.MoveToFront(elem)
	return entry.value, true
}

// Set stores value under key, evicting least-recently-read entries until the
// byte budget has room. A value larger than the whole budget is not stored.
func (c *Cache) Set(key string, value []byte) {
	size := int64(len(value))
	if size > c.maxBytes {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.entries[key]; ok {
		c.removeLocked(elem)
	}

	for c.totalBytes+size > c.maxBytes && c.lru.Len() > 0 {
		c.removeLocked(c.lru.Back())
	}

	entry := &cacheEntry{
		key:      key,
		value:    value,
		size:     size,
		storedAt: time.Now(),
	}
	c.entries[key] = c.lru.PushFront(entry)
	c.totalBytes += size
}

// Delete removes a single entry.
func (c *Cache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if elem, ok := c.entries[key]; ok {
		c.removeLocked(elem)
	}
}

// Clear removes all entries.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*list.Element)
	c.lru.Init()
	c.totalBytes = 0
}

// Stats returns the current entry count and resident byte size.
func (c *Cache) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return CacheStats{
		EntryCount:     len(c.entries),
		TotalSizeBytes: c.totalBytes,
	}
}

func (c *Cache) removeLocked(elem *list.Element) {
	entry := elem.Value.(*cacheEntry)
	c.lru.Remove(elem)
	delete(c.entries, entry.key)
	c.totalBytes -= entry.size
}

// CacheKey derives a deterministic fingerprint from method, path and query
// parameters. Parameters are serialized with sorted keys so that
// semantically identical requests share one cache slot regardless of
// parameter order. Multi-valued parameters are joined with commas.
func CacheKey(method, path string, params url.Values) string {
	flat := make(map[string]string, len(params))
	for k, vs := range params {
		flat[k] = strings.Join(vs, ",")
	}
	encoded, _ := json.Marshal(flat) // map keys are sorted by encoding/json
	return method + ":" + path + ":" + string(encoded)
}
