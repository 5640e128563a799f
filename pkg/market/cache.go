// Package market fetches and summarizes per-server listing prices.
//
// Raw pricing responses are kept in a short-lived Cache keyed by
// (server, item). The Fetcher fills it from the pricing endpoint and the
// Aggregator fans a single item out across every configured server.
package market

import (
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

// DefaultExpiry is how long a pricing response stays valid.
const DefaultExpiry = 60 * time.Second

// Data is one raw pricing response body.
type Data struct {
	Raw []byte
}

type cacheKey struct {
	server int
	item   int
}

type cacheEntry struct {
	data      *Data
	fetchedAt time.Time
}

// Cache holds pricing responses for a fixed time after they were stored.
// Stale entries are evicted when read.
type Cache struct {
	mu      sync.Mutex
	expiry  time.Duration
	entries map[cacheKey]cacheEntry
	now     func() time.Time
}

// NewCache creates a cache whose entries live for expiry.
// A non-positive expiry uses DefaultExpiry.
func NewCache(expiry time.Duration) *Cache {
	if expiry <= 0 {
		expiry = DefaultExpiry
	}
	return &Cache{
		expiry:  expiry,
		entries: make(map[cacheKey]cacheEntry),
		now:     time.Now,
	}
}

// SetClock replaces the time source. Used by tests.
func (c *Cache) SetClock(now func() time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}

// Get returns the entry for (serverID, itemID) if it is younger than the
// expiry. An entry exactly expiry old is already stale.
func (c *Cache) Get(serverID, itemID int) (*Data, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := cacheKey{server: serverID, item: itemID}
	entry, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if c.now().Sub(entry.fetchedAt) >= c.expiry {
		delete(c.entries, key)
		log.Debugf("Market cache expired for server %d item %d", serverID, itemID)
		return nil, false
	}
	return entry.data, true
}

// Put stores data for (serverID, itemID) stamped with the current time.
func (c *Cache) Put(serverID, itemID int, data *Data) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[cacheKey{server: serverID, item: itemID}] = cacheEntry{
		data:      data,
		fetchedAt: c.now(),
	}
}

// Len returns the number of stored entries, stale ones included.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
