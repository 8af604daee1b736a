package ws

import (
	"encoding/json"
	"log"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/liushun89/zooterrain/internal/observer"
)

// client couples a websocket connection with a buffered outbound queue. It
// implements observer.Listener, so live change messages and targeted replays
// arrive through the same path.
type client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
	once sync.Once
	done chan struct{}
}

func (c *client) close() {
	c.once.Do(func() {
		close(c.done)
		c.conn.Close()
	})
}

func (c *client) writePump() {
	defer c.conn.Close()
	for {
		select {
		case msg := <-c.send:
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				c.hub.RemoveClient(c)
				return
			}
		case <-c.done:
			return
		}
	}
}

// Receive queues msg for delivery. A client whose buffer is full cannot keep
// up and is disconnected rather than allowed to stall dispatch.
func (c *client) Receive(msg observer.Message) {
	data, err := json.Marshal(frameFor(msg))
	if err != nil {
		log.Printf("ws marshal error: %v", err)
		return
	}
	c.enqueue(data)
}

func (c *client) enqueue(data []byte) {
	select {
	case <-c.done:
	case c.send <- data:
	default:
		log.Printf("ws client too slow, disconnecting")
		c.hub.RemoveClient(c)
	}
}

func (c *client) sendError(message string) {
	data, err := json.Marshal(Frame{Type: frameError, Payload: ErrorPayload{Message: message}})
	if err != nil {
		return
	}
	c.enqueue(data)
}

// Hub tracks connected websocket clients and registers each one as an
// observer listener. New clients get a private replay of the current tree
// before live messages start making sense to them.
type Hub struct {
	obs     *observer.Observer
	root    string
	depth   int
	sendBuf int

	mu      sync.RWMutex
	clients map[*client]bool
}

func NewHub(obs *observer.Observer, root string, depth, sendBuf int) *Hub {
	return &Hub{
		obs:     obs,
		root:    root,
		depth:   depth,
		sendBuf: sendBuf,
		clients: make(map[*client]bool),
	}
}

func (h *Hub) AddClient(conn *websocket.Conn) *client {
	c := &client{
		hub:  h,
		conn: conn,
		send: make(chan []byte, h.sendBuf),
		done: make(chan struct{}),
	}
	go c.writePump()

	h.mu.Lock()
	h.clients[c] = true
	h.mu.Unlock()

	h.obs.Register(c)

	// Replay the current tree to this client alone; the walk issues network
	// reads, so it must not block the HTTP handler.
	go func() {
		if err := h.obs.LoadInitialTree(h.root, h.depth, []observer.Listener{c}); err != nil {
			log.Printf("ws initial tree replay: %v", err)
		}
	}()

	return c
}

func (h *Hub) RemoveClient(c *client) {
	h.mu.Lock()
	_, ok := h.clients[c]
	if ok {
		delete(h.clients, c)
	}
	h.mu.Unlock()
	if !ok {
		return
	}

	h.obs.Unregister(c)
	c.close()
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
