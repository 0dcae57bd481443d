package walk

import (
	"sort"
	"sync"
)

// Collection is the shared, append-only set of discovered file paths.
type Collection struct {
	mu    sync.Mutex
	files []string
}

// Add appends path. Safe for concurrent use.
func (c *Collection) Add(path string) {
	c.mu.Lock()
	c.files = append(c.files, path)
	c.mu.Unlock()
}

// Len returns the number of discovered files.
func (c *Collection) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.files)
}

// Sorted returns a sorted copy of the discovered paths.
func (c *Collection) Sorted() []string {
	c.mu.Lock()
	out := make([]string, len(c.files))
	copy(out, c.files)
	c.mu.Unlock()
	sort.Strings(out)
	return out
}
