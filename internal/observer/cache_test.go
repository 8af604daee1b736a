package observer

import (
	"fmt"
	"sync"
	"testing"
)

func TestGetOrCreateReturnsSameEntry(t *testing.T) {
	c := newNodeCache()
	a := c.getOrCreate("/a")
	b := c.getOrCreate("/a")
	if a != b {
		t.Error("getOrCreate returned two different entries for one path")
	}
	if c.len() != 1 {
		t.Errorf("cache len = %d, want 1", c.len())
	}
}

func TestGetOrCreateConcurrent(t *testing.T) {
	c := newNodeCache()

	const goroutines = 32
	entries := make([]*nodeState, goroutines)
	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			// Every goroutine races the first access for the same paths.
			for j := 0; j < 8; j++ {
				c.getOrCreate(fmt.Sprintf("/node-%d", j))
			}
			entries[i] = c.getOrCreate("/shared")
		}(i)
	}
	wg.Wait()

	for i := 1; i < goroutines; i++ {
		if entries[i] != entries[0] {
			t.Fatal("concurrent first access produced distinct entries for /shared")
		}
	}
	if c.len() != 9 {
		t.Errorf("cache len = %d, want 9", c.len())
	}
}

func TestRemove(t *testing.T) {
	c := newNodeCache()
	st := c.getOrCreate("/a")
	st.children = map[string]struct{}{"x": {}}

	c.remove("/a")
	c.remove("/a") // absent: still safe
	if c.len() != 0 {
		t.Errorf("cache len = %d after remove, want 0", c.len())
	}

	fresh := c.getOrCreate("/a")
	if fresh == st {
		t.Error("getOrCreate after remove returned the evicted entry")
	}
	if len(fresh.children) != 0 {
		t.Errorf("fresh entry has children %v, want none", fresh.children)
	}
}
