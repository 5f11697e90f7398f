package vision

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// fingerprintPrefix bounds how much of a frame feeds the cache key. Leading
// bytes plus options distinguish frames well enough without hashing megabytes.
const fingerprintPrefix = 100

// fingerprint derives the cache key from the frame's leading bytes and the
// recognition options.
func fingerprint(frame []byte, opts RecognizeOptions) string {
	prefix := frame
	if len(prefix) > fingerprintPrefix {
		prefix = prefix[:fingerprintPrefix]
	}

	languages := append([]string(nil), opts.Languages...)
	sort.Strings(languages)

	h := sha256.New()
	h.Write(prefix)
	fmt.Fprintf(h, "|%d|%s|%s|%g", len(frame), opts.RecognitionLevel, strings.Join(languages, ","), opts.MinTextHeight)
	return hex.EncodeToString(h.Sum(nil))
}

type cacheEntry struct {
	result     Result
	insertedAt time.Time
}

// resultCache is a TTL-bounded store with oldest-inserted-first eviction.
// Concurrent readers may race a writer into one duplicate computation, which
// is acceptable; entries themselves are never mutated after insertion.
type resultCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	maxSize int
	clock   func() time.Time

	entries map[string]cacheEntry
}

func newResultCache(ttl time.Duration, maxSize int, clock func() time.Time) *resultCache {
	if clock == nil {
		clock = time.Now
	}
	return &resultCache{
		ttl:     ttl,
		maxSize: maxSize,
		clock:   clock,
		entries: make(map[string]cacheEntry),
	}
}

// get returns a copy of the entry for key, treating expired entries as absent.
func (c *resultCache) get(key string) (Result, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return Result{}, false
	}
	if c.clock().Sub(entry.insertedAt) >= c.ttl {
		delete(c.entries, key)
		return Result{}, false
	}
	return entry.result.clone(), true
}

// put stores an error-free result, evicting the oldest insertion at capacity.
func (c *resultCache) put(key string, result Result) {
	if !result.OK() {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; !exists && len(c.entries) >= c.maxSize {
		c.evictOldestLocked()
	}
	c.entries[key] = cacheEntry{result: result.clone(), insertedAt: c.clock()}
}

// sweep drops every expired entry and reports how many were removed.
func (c *resultCache) sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock()
	removed := 0
	for key, entry := range c.entries {
		if now.Sub(entry.insertedAt) >= c.ttl {
			delete(c.entries, key)
			removed++
		}
	}
	return removed
}

func (c *resultCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *resultCache) evictOldestLocked() {
	var oldestKey string
	var oldestAt time.Time
	for key, entry := range c.entries {
		if oldestKey == "" || entry.insertedAt.Before(oldestAt) {
			oldestKey = key
			oldestAt = entry.insertedAt
		}
	}
	if oldestKey != "" {
		delete(c.entries, oldestKey)
	}
}
