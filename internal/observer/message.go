package observer

import (
	"github.com/go-zookeeper/zk"
)

// MessageKind tags the concrete change message type on the wire.
type MessageKind string

const (
	KindNodeUpdated     MessageKind = "node_updated"
	KindNodeCreated     MessageKind = "node_created"
	KindNodeDeleted     MessageKind = "node_deleted"
	KindConnectionState MessageKind = "connection_state"
	KindData            MessageKind = "data"
)

// Message is a typed change event delivered to listeners.
type Message interface {
	Kind() MessageKind
}

// NodeUpdated reports a data change or a structural confirmation for a node
// discovered during a walk. Stat is nil when the node vanished between the
// notification and the re-read.
type NodeUpdated struct {
	Path string   `json:"path"`
	Stat *zk.Stat `json:"stat,omitempty"`
}

func (NodeUpdated) Kind() MessageKind { return KindNodeUpdated }

// NodeCreated reports a child that appeared since the previous children
// snapshot of its parent.
type NodeCreated struct {
	Path string   `json:"path"`
	Stat *zk.Stat `json:"stat"`
}

func (NodeCreated) Kind() MessageKind { return KindNodeCreated }

// NodeDeleted reports a child that disappeared since the previous children
// snapshot of its parent.
type NodeDeleted struct {
	Path string `json:"path"`
}

func (NodeDeleted) Kind() MessageKind { return KindNodeDeleted }

// ConnectionState reports a session state transition, e.g. "StateConnected".
type ConnectionState struct {
	State string `json:"state"`
}

func (ConnectionState) Kind() MessageKind { return KindConnectionState }

// DataCap bounds the payload carried by a DataPayload message. Longer node
// data is truncated, never rejected.
const DataCap = 500

// DataPayload carries the (capped) data of a node read on request.
type DataPayload struct {
	Path string   `json:"path"`
	Data []byte   `json:"data"`
	Stat *zk.Stat `json:"stat"`
}

func (DataPayload) Kind() MessageKind { return KindData }

// Listener receives change messages. Receive is invoked synchronously from
// notification processing; implementations that block slow the observer down.
type Listener interface {
	Receive(msg Message)
}
