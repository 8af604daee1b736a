package observer

import (
	"log"
	"sync"
)

// Registry holds the registered listeners. Membership changes are independent
// of dispatch: Dispatch iterates a snapshot taken under the read lock, so
// listeners may register or unregister concurrently with a fan-out.
type Registry struct {
	mu        sync.RWMutex
	listeners map[Listener]struct{}
}

func NewRegistry() *Registry {
	return &Registry{listeners: make(map[Listener]struct{})}
}

func (r *Registry) Add(l Listener) {
	r.mu.Lock()
	r.listeners[l] = struct{}{}
	r.mu.Unlock()
}

// Remove unregisters l, reporting whether it was present.
func (r *Registry) Remove(l Listener) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.listeners[l]; !ok {
		return false
	}
	delete(r.listeners, l)
	return true
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.listeners)
}

// Dispatch delivers msg to the given targets, or to every registered listener
// when targets is nil. Delivery is synchronous and unordered. A panicking
// listener does not affect delivery to the others.
func (r *Registry) Dispatch(msg Message, targets []Listener) {
	if targets == nil {
		r.mu.RLock()
		targets = make([]Listener, 0, len(r.listeners))
		for l := range r.listeners {
			targets = append(targets, l)
		}
		r.mu.RUnlock()
	}

	for _, l := range targets {
		deliver(l, msg)
	}
}

func deliver(l Listener, msg Message) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("listener panic on %s: %v", msg.Kind(), r)
		}
	}()
	l.Receive(msg)
}
