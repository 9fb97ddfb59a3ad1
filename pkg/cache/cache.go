package cache

import (
	"net/url"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// Cache is the process-wide response cache for read requests.
// Entries live for a fixed TTL and are only evicted when a lookup finds them stale.
type Cache struct {
	store *gocache.Cache
	ttl   time.Duration
	now   func() time.Time
}

type entry struct {
	payload  []byte
	storedAt time.Time
}

// New creates a cache whose entries stay valid for ttl.
func New(ttl time.Duration) *Cache {
	return &Cache{
		// Expiry is tracked per entry below; go-cache only provides the guarded map.
		store: gocache.New(gocache.NoExpiration, 0),
		ttl:   ttl,
		now:   time.Now,
	}
}

// TTL returns the configured time-to-live.
func (c *Cache) TTL() time.Duration {
	return c.ttl
}

// Get returns the payload stored under key if it has not expired.
// A stale entry is removed as part of the lookup.
func (c *Cache) Get(key string) ([]byte, bool) {
	raw, found := c.store.Get(key)
	if !found {
		return nil, false
	}

	ent := raw.(entry)
	if c.now().Sub(ent.storedAt) >= c.ttl {
		c.store.Delete(key)
		return nil, false
	}

	return ent.payload, true
}

// Set stores payload under key, replacing any previous entry and restarting its TTL.
func (c *Cache) Set(key string, payload []byte) {
	c.store.Set(key, entry{payload: payload, storedAt: c.now()}, gocache.NoExpiration)
}

// Clear drops every entry.
func (c *Cache) Clear() {
	c.store.Flush()
}

// Len reports the number of stored entries, including stale ones not yet looked up.
func (c *Cache) Len() int {
	return c.store.ItemCount()
}

// Key builds the cache key for a request. Query parameters are encoded in
// sorted key order so logically identical requests share a key.
func Key(method, endpoint string, params url.Values) string {
	var b strings.Builder
	b.WriteString(strings.ToUpper(method))
	b.WriteByte(' ')
	b.WriteString(endpoint)
	if encoded := params.Encode(); encoded != "" {
		b.WriteByte('?')
		b.WriteString(encoded)
	}
	return b.String()
}
