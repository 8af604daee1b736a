// Package observer maintains a local shadow of a ZooKeeper subtree and
// republishes structural and data changes as typed messages.
//
// Every read against the ensemble arms a one-shot watch, so reading and
// watching are interleaved per node; when a watch fires, the affected node is
// re-read (re-arming the watch) and the old and new children snapshots are
// diffed into create/delete messages. An expired session tears the connection
// down, reconnects, and replays the initial tree.
package observer

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"

	"github.com/go-zookeeper/zk"

	"github.com/liushun89/zooterrain/internal/zkc"
)

// ErrNotConnected is returned by operations that need a live session when
// the observer is stopped.
var ErrNotConnected = errors.New("observer: not connected")

// Dialer opens a connection whose events are delivered to sink.
type Dialer func(sink zkc.Sink) (zkc.Conn, error)

// Observer owns the connection lifecycle and the per-node shadow cache.
// There is at most one live connection at a time; each connection carries a
// generation stamp so callbacks from a torn-down session are discarded
// instead of mutating state on its behalf.
type Observer struct {
	dial  Dialer
	root  string
	depth int

	registry *Registry
	cache    *nodeCache

	mu   sync.Mutex // guards conn and gen
	conn zkc.Conn
	gen  uint64

	status atomic.Value // string, last session state label
}

func New(dial Dialer, root string, depth int) *Observer {
	if root == "" {
		root = "/"
	}
	o := &Observer{
		dial:     dial,
		root:     root,
		depth:    depth,
		registry: NewRegistry(),
		cache:    newNodeCache(),
	}
	o.status.Store("unknown")
	return o
}

// Register adds a listener to the fan-out set.
func (o *Observer) Register(l Listener) {
	o.registry.Add(l)
}

// Unregister removes a listener, reporting whether it was registered.
func (o *Observer) Unregister(l Listener) bool {
	return o.registry.Remove(l)
}

// Status returns the label of the most recent session state notification.
func (o *Observer) Status() string {
	return o.status.Load().(string)
}

// Conn returns the current connection handle, or nil when stopped.
func (o *Observer) Conn() zkc.Conn {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.conn
}

// Start opens a connection and walks the configured initial tree, emitting a
// NodeUpdated message for every discovered node. A connect failure is
// returned to the caller; there is no internal retry.
func (o *Observer) Start() error {
	o.mu.Lock()
	if o.conn != nil {
		o.mu.Unlock()
		return errors.New("observer: already started")
	}
	o.gen++
	gen := o.gen
	conn, err := o.dial(func(ev zk.Event) { o.handleEvent(gen, ev) })
	if err != nil {
		o.mu.Unlock()
		return fmt.Errorf("zk connect: %w", err)
	}
	o.conn = conn
	o.mu.Unlock()

	o.walk(conn, o.root, o.depth, nil)
	return nil
}

// Stop detaches the current connection and closes it. Detaching first (and
// bumping the generation) guarantees that in-flight callbacks from the old
// session observe no active handle rather than racing the teardown.
func (o *Observer) Stop() {
	o.mu.Lock()
	conn := o.conn
	o.conn = nil
	o.gen++
	o.mu.Unlock()

	if conn != nil {
		conn.Close()
	}
}

// connFor returns the live connection if gen still identifies it.
func (o *Observer) connFor(gen uint64) (zkc.Conn, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if gen != o.gen || o.conn == nil {
		return nil, false
	}
	return o.conn, true
}

func (o *Observer) currentGen(gen uint64) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return gen == o.gen
}

// handleEvent is the notification sink for the connection stamped with gen.
// It runs on the client's event delivery goroutine; everything it triggers
// must stay contained, so failures are logged and the branch abandoned.
func (o *Observer) handleEvent(gen uint64, ev zk.Event) {
	switch ev.Type {
	case zk.EventSession:
		o.handleSession(gen, ev.State)

	case zk.EventNodeCreated, zk.EventNodeDeleted:
		// Derived from parent children diffs instead; reporting them here
		// as well would announce the same structural change twice.

	case zk.EventNodeDataChanged:
		conn, ok := o.connFor(gen)
		if !ok {
			return
		}
		o.handleDataChanged(conn, ev.Path)
		// Children are re-validated on every data change as well, to stay
		// conservative about what might have moved under the node.
		o.handleChildrenChanged(conn, ev.Path)

	case zk.EventNodeChildrenChanged:
		conn, ok := o.connFor(gen)
		if !ok {
			return
		}
		o.handleChildrenChanged(conn, ev.Path)
	}
}

func (o *Observer) handleSession(gen uint64, state zk.State) {
	if !o.currentGen(gen) {
		return
	}
	log.Printf("[zk] session state: %s", state)

	if state == zk.StateExpired {
		log.Printf("[zk] session expired, reconnecting")
		o.Stop()
		if err := o.Start(); err != nil {
			log.Printf("[zk] reconnect failed: %v", err)
		}
		return
	}

	o.status.Store(state.String())
	o.registry.Dispatch(ConnectionState{State: state.String()}, nil)
}

// LoadInitialTree replays the subtree rooted at path, depth levels deep, to
// targets (every registered listener when targets is nil), emitting a
// NodeUpdated message per discovered node and arming watches along the way.
func (o *Observer) LoadInitialTree(path string, depth int, targets []Listener) error {
	o.mu.Lock()
	conn := o.conn
	o.mu.Unlock()
	if conn == nil {
		return ErrNotConnected
	}
	o.walk(conn, path, depth, targets)
	return nil
}

func (o *Observer) walk(conn zkc.Conn, path string, depth int, targets []Listener) {
	if depth <= 0 {
		return
	}

	st := o.cache.getOrCreate(path)
	st.mu.Lock()
	names, _, err := conn.Children(path)
	if err != nil {
		st.mu.Unlock()
		if zkc.IsNoNode(err) {
			o.cache.remove(path)
		} else {
			log.Printf("[zk] children read %s: %v", path, err)
		}
		return
	}
	children := toSet(names)
	st.children = children
	st.mu.Unlock()

	for name := range children {
		childPath := joinPath(path, name)
		ok, stat, err := conn.Exists(childPath)
		if err != nil {
			log.Printf("[zk] exists %s: %v", childPath, err)
			continue
		}
		if !ok {
			stat = nil
		}
		o.registry.Dispatch(NodeUpdated{Path: childPath, Stat: stat}, targets)
		o.walk(conn, childPath, depth-1, targets)
	}
}

func (o *Observer) handleDataChanged(conn zkc.Conn, path string) {
	ok, stat, err := conn.Exists(path)
	if err != nil {
		log.Printf("[zk] exists %s: %v", path, err)
	}
	if !ok {
		stat = nil
	}
	o.registry.Dispatch(NodeUpdated{Path: path, Stat: stat}, nil)
}

// handleChildrenChanged recomputes the children diff for path under the
// entry lock. The lock is held across read, diff, and store so that two
// notifications for the same node cannot interleave and diff against an
// overwritten baseline.
func (o *Observer) handleChildrenChanged(conn zkc.Conn, path string) {
	st := o.cache.getOrCreate(path)
	st.mu.Lock()
	defer st.mu.Unlock()

	prev := st.children
	names, _, err := conn.Children(path)
	if err != nil {
		if zkc.IsNoNode(err) {
			o.cache.remove(path)
		} else {
			log.Printf("[zk] children read %s: %v", path, err)
		}
		return
	}
	next := toSet(names)
	st.children = next

	for name := range prev {
		if _, ok := next[name]; ok {
			continue
		}
		o.registry.Dispatch(NodeDeleted{Path: joinPath(path, name)}, nil)
	}

	for name := range next {
		if _, ok := prev[name]; ok {
			continue
		}
		childPath := joinPath(path, name)
		ok, stat, err := conn.Exists(childPath)
		if err != nil {
			log.Printf("[zk] exists %s: %v", childPath, err)
			continue
		}
		if !ok {
			// Created and deleted again before the check; skip it and keep
			// processing the remaining additions.
			continue
		}
		o.registry.Dispatch(NodeCreated{Path: childPath, Stat: stat}, nil)
		// Prime a children watch on the new node so grandchild changes are
		// observed. No recursion: deeper levels surface through their own
		// notifications.
		if _, _, err := conn.Children(childPath); err != nil && !zkc.IsNoNode(err) {
			log.Printf("[zk] children watch %s: %v", childPath, err)
		}
	}
}

// FetchNodeData reads the data of path with a fresh watch, truncating the
// payload to DataCap bytes. Returns nil when the read fails or the observer
// is stopped.
func (o *Observer) FetchNodeData(path string) *DataPayload {
	o.mu.Lock()
	conn := o.conn
	o.mu.Unlock()
	if conn == nil {
		return nil
	}

	data, stat, err := conn.Data(path)
	if err != nil {
		log.Printf("[zk] data read %s: %v", path, err)
		return nil
	}
	if len(data) > DataCap {
		data = append([]byte(nil), data[:DataCap]...)
	}
	return &DataPayload{Path: path, Data: data, Stat: stat}
}

func joinPath(parent, name string) string {
	if parent == "/" {
		return "/" + name
	}
	return parent + "/" + name
}

func toSet(names []string) map[string]struct{} {
	set := make(map[string]struct{}, len(names))
	for _, name := range names {
		set[name] = struct{}{}
	}
	return set
}
