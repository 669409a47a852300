package enrich

import (
	"fmt"
	"os"
	"sync"

	json "github.com/goccy/go-json"
)

// Cache is a persistent artwork lookup cache keyed by track id. Lookups that
// found nothing are cached too, so a miss is only retried after the cache
// file is removed.
type Cache struct {
	path string

	mu      sync.RWMutex
	entries map[string]Artwork
	dirty   bool
}

// OpenCache loads the cache file at path, starting empty if it is missing or
// unreadable.
func OpenCache(path string) *Cache {
	c := &Cache{path: path, entries: make(map[string]Artwork)}
	data, err := os.ReadFile(path)
	if err != nil {
		return c
	}
	var entries map[string]Artwork
	if err := json.Unmarshal(data, &entries); err == nil && entries != nil {
		c.entries = entries
	}
	return c
}

// Get returns the cached artwork for a track id.
func (c *Cache) Get(id string) (Artwork, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	art, ok := c.entries[id]
	return art, ok
}

// Put stores an entry. The cache is only written back by Save.
func (c *Cache) Put(id string, art Artwork) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[id] = art
	c.dirty = true
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Save writes the cache back to disk if anything changed.
func (c *Cache) Save() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.dirty {
		return nil
	}
	data, err := json.MarshalIndent(c.entries, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding enrich cache: %w", err)
	}
	tmp := c.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing enrich cache: %w", err)
	}
	if err := os.Rename(tmp, c.path); err != nil {
		return fmt.Errorf("replacing enrich cache: %w", err)
	}
	c.dirty = false
	return nil
}
