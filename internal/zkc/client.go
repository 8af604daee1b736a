// Package zkc wraps the ZooKeeper client behind the small read-and-watch
// surface the observer needs. Every read arms a fresh one-shot watch on the
// node it touches; the resulting notifications (and all session state
// transitions) are funneled into a single sink function instead of the
// per-call channels the underlying library hands back.
package zkc

import (
	"errors"
	"time"

	"github.com/go-zookeeper/zk"
)

// Conn is the coordination-service connection the observer operates on.
// Implementations must arm a one-shot watch as part of each read.
//
// Children and Data report a missing node as zk.ErrNoNode (check with
// IsNoNode); Exists reports it as ok=false with a nil error.
type Conn interface {
	// Children returns the child names of path and watches for the next
	// children change.
	Children(path string) ([]string, *zk.Stat, error)

	// Exists reports whether path exists, returning its stat when it does,
	// and watches for the next create/delete/data change.
	Exists(path string) (bool, *zk.Stat, error)

	// Data returns the payload and stat of path and watches for the next
	// data change.
	Data(path string) ([]byte, *zk.Stat, error)

	// Close tears the session down. Errors closing an already-broken
	// connection are swallowed.
	Close()
}

// Sink receives every event the connection delivers: session state
// transitions and fired node watches alike.
type Sink func(ev zk.Event)

// Client is the production Conn, backed by github.com/go-zookeeper/zk.
type Client struct {
	conn *zk.Conn
}

// Dial connects to the ensemble and registers sink as the global event
// callback. The watch channels returned by the underlying *W calls are left
// unconsumed; the callback sees every event before channel dispatch, which
// keeps all notification handling on one path.
func Dial(servers []string, sessionTimeout time.Duration, sink Sink) (*Client, error) {
	conn, _, err := zk.Connect(servers, sessionTimeout,
		zk.WithEventCallback(zk.EventCallback(sink)),
		zk.WithLogInfo(false))
	if err != nil {
		return nil, err
	}
	return &Client{conn: conn}, nil
}

func (c *Client) Children(path string) ([]string, *zk.Stat, error) {
	children, stat, _, err := c.conn.ChildrenW(path)
	return children, stat, err
}

func (c *Client) Exists(path string) (bool, *zk.Stat, error) {
	ok, stat, _, err := c.conn.ExistsW(path)
	if !ok {
		stat = nil
	}
	return ok, stat, err
}

func (c *Client) Data(path string) ([]byte, *zk.Stat, error) {
	data, stat, _, err := c.conn.GetW(path)
	return data, stat, err
}

func (c *Client) Close() {
	c.conn.Close()
}

// IsNoNode reports whether err means the node does not exist.
func IsNoNode(err error) bool {
	return errors.Is(err, zk.ErrNoNode)
}
