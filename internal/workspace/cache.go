package workspace

import (
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// Cache is a read-through cache of file contents and stat results keyed by
// absolute path. Entries never change once stored; Invalidate drops them.
// It is safe for concurrent use.
type Cache struct {
	mu    sync.RWMutex
	files map[string][]byte
	stats map[string]fs.FileInfo
}

func NewCache() *Cache {
	return &Cache{
		files: make(map[string][]byte),
		stats: make(map[string]fs.FileInfo),
	}
}

func key(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return filepath.Clean(path)
	}
	return abs
}

// ReadFile returns the contents of path, reading it from disk only once.
// Failed reads are not cached.
func (c *Cache) ReadFile(path string) ([]byte, error) {
	k := key(path)

	c.mu.RLock()
	data, ok := c.files[k]
	c.mu.RUnlock()
	if ok {
		return data, nil
	}

	data, err := os.ReadFile(k)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	if existing, ok := c.files[k]; ok {
		data = existing
	} else {
		c.files[k] = data
	}
	c.mu.Unlock()

	return data, nil
}

// Stat returns the file info of path. Only existing files are cached, so a
// file created later is found on the next call.
func (c *Cache) Stat(path string) (fs.FileInfo, error) {
	k := key(path)

	c.mu.RLock()
	info, ok := c.stats[k]
	c.mu.RUnlock()
	if ok {
		return info, nil
	}

	info, err := os.Stat(k)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.stats[k] = info
	c.mu.Unlock()

	return info, nil
}

// Invalidate forgets everything cached about path.
func (c *Cache) Invalidate(path string) {
	k := key(path)

	c.mu.Lock()
	delete(c.files, k)
	delete(c.stats, k)
	c.mu.Unlock()

	log.Debugf("invalidated %q", k)
}

// Purge empties the cache.
func (c *Cache) Purge() {
	c.mu.Lock()
	c.files = make(map[string][]byte)
	c.stats = make(map[string]fs.FileInfo)
	c.mu.Unlock()
}
