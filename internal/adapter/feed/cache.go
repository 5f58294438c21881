package feed

import "sync"

// ConditionalCache remembers the validators and body of the last successful
// download per URL so later requests can be made conditional.
type ConditionalCache struct {
	mu      sync.Mutex
	entries map[string]cachedFeed
}

type cachedFeed struct {
	etag         string
	lastModified string
	body         []byte
}

// NewConditionalCache creates an empty cache.
func NewConditionalCache() *ConditionalCache {
	return &ConditionalCache{entries: make(map[string]cachedFeed)}
}

func (c *ConditionalCache) get(url string) (cachedFeed, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[url]
	return e, ok
}

// put stores a download. Responses without any validator are not cached
// since they can never produce a 304.
func (c *ConditionalCache) put(url string, e cachedFeed) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e.etag == "" && e.lastModified == "" {
		delete(c.entries, url)
		return
	}
	c.entries[url] = e
}

// Len returns the number of cached URLs.
func (c *ConditionalCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
