package observer

import "sync"

// nodeState is the cached shadow of a single watched node. The entry mutex
// serializes the read-diff-store cycle for that node; children is only
// touched while holding it.
type nodeState struct {
	mu       sync.Mutex
	children map[string]struct{}
}

// nodeCache maps node paths to their cached state. The structural RWMutex
// guards the map itself; content updates go through each entry's own lock.
type nodeCache struct {
	mu    sync.RWMutex
	nodes map[string]*nodeState
}

func newNodeCache() *nodeCache {
	return &nodeCache{nodes: make(map[string]*nodeState)}
}

// getOrCreate returns the unique state entry for path, creating it if absent.
// Concurrent first accesses to the same path observe the same entry.
func (c *nodeCache) getOrCreate(path string) *nodeState {
	c.mu.RLock()
	st := c.nodes[path]
	c.mu.RUnlock()
	if st != nil {
		return st
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if st := c.nodes[path]; st != nil {
		return st
	}
	st = &nodeState{children: make(map[string]struct{})}
	c.nodes[path] = st
	return st
}

// remove evicts the entry for path. Safe to call when the entry is absent.
func (c *nodeCache) remove(path string) {
	c.mu.Lock()
	delete(c.nodes, path)
	c.mu.Unlock()
}

func (c *nodeCache) len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.nodes)
}
