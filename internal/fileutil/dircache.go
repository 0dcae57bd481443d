package fileutil

import (
	"fmt"
	"os"

	lru "github.com/hashicorp/golang-lru/v2"
)

const defaultDirCacheSize = 1024

// DirCache remembers directories already known to exist so repeated
// create-if-absent calls skip the filesystem. Safe for concurrent use.
type DirCache struct {
	known *lru.Cache[string, struct{}]
}

// NewDirCache returns a cache holding up to size directories (0 = default).
func NewDirCache(size int) *DirCache {
	if size <= 0 {
		size = defaultDirCacheSize
	}
	known, err := lru.New[string, struct{}](size)
	if err != nil {
		// lru.New only fails on a non-positive size.
		panic(fmt.Sprintf("dir cache: %v", err))
	}
	return &DirCache{known: known}
}

// Ensure creates dir and any missing parents. A directory that already
// exists, including one created by a concurrent caller, is success.
func (c *DirCache) Ensure(dir string) error {
	if c.known.Contains(dir) {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		// MkdirAll can lose a race with a concurrent creator on some
		// platforms; accept the directory if it now exists.
		info, statErr := os.Stat(dir)
		if statErr != nil || !info.IsDir() {
			return err
		}
	}
	c.known.Add(dir, struct{}{})
	return nil
}

// Forget drops dir from the cache, e.g. after it was removed.
func (c *DirCache) Forget(dir string) {
	c.known.Remove(dir)
}
