package services

import (
	"strings"
	"sync"
)

// Placeholder replaces a field whose ciphertext cannot be opened with the
// current key state. The record itself stays visible and editable.
const Placeholder = "•••"

// decryptCache memoizes decrypted field values so list renders do not redo
// AES-GCM per row. Entries belong to the key epoch they were decrypted
// under; a lock or unlock bumps the epoch and the whole cache is dropped.
type decryptCache struct {
	mu    sync.Mutex
	epoch uint64
	vals  map[string]string
}

func newDecryptCache() *decryptCache {
	return &decryptCache{vals: make(map[string]string)}
}

func (c *decryptCache) get(epoch uint64, key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if epoch != c.epoch {
		return "", false
	}
	v, ok := c.vals[key]
	return v, ok
}

func (c *decryptCache) put(epoch uint64, key, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if epoch != c.epoch {
		c.epoch = epoch
		c.vals = make(map[string]string)
	}
	c.vals[key] = value
}

// invalidateRecord drops every field of a record after a write so the next
// read re-decrypts.
func (c *decryptCache) invalidateRecord(recordID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	prefix := recordID + "/"
	for k := range c.vals {
		if strings.HasPrefix(k, prefix) {
			delete(c.vals, k)
		}
	}
}
