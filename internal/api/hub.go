// WebSocket hub for state synchronization. Every client receives a full
// snapshot on join, then sequence-numbered tick deltas. A client that
// cannot keep up is not fed stale deltas; it is flagged and receives a
// fresh snapshot instead, so its view is always either current or
// reconstructible.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/talgya/railworld/internal/engine"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 8192
	sendBuffer     = 64
)

// Envelope is the JSON frame for all hub traffic.
type Envelope struct {
	Type string          `json:"type"` // "snapshot", "delta", "command", "result", "error", "resync"
	Seq  uint64          `json:"seq,omitempty"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Client is one connected sync peer.
type Client struct {
	id   string
	hub  *Hub
	conn *websocket.Conn
	send chan []byte

	// limiter bounds command submissions per connection.
	limiter *rate.Limiter

	// needResync is set when the send buffer overflowed. The next
	// broadcast replaces deltas with a snapshot for this client.
	needResync bool
	lastSeq    uint64
}

// Hub maintains the set of active clients and broadcasts deltas.
type Hub struct {
	Eng *engine.Engine

	clients    map[*Client]bool
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	resync     chan *Client
	count      chan chan int
}

// NewHub creates a hub over an engine.
func NewHub(eng *engine.Engine) *Hub {
	return &Hub{
		Eng:        eng,
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte, 16),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		resync:     make(chan *Client, 16),
		count:      make(chan chan int),
	}
}

// BroadcastDelta queues a sealed tick delta for all clients. Wired as the
// engine's OnDelta callback; drops the frame when the hub is saturated
// rather than stalling the tick loop.
func (h *Hub) BroadcastDelta(d *engine.TickDelta) {
	raw, err := json.Marshal(d)
	if err != nil {
		slog.Error("delta marshal failed", "tick", d.Tick, "error", err)
		return
	}
	frame, _ := json.Marshal(Envelope{Type: "delta", Seq: d.Seq, Data: raw})
	select {
	case h.broadcast <- frame:
	default:
		slog.Warn("hub broadcast queue full, dropping delta", "seq", d.Seq)
	}
}

// Run dispatches registrations and broadcasts until the process exits.
func (h *Hub) Run() {
	for {
		select {
		case c := <-h.register:
			h.clients[c] = true
			h.sendSnapshot(c)
			slog.Info("sync client joined", "client", c.id, "clients", len(h.clients))
		case c := <-h.unregister:
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
				slog.Info("sync client left", "client", c.id, "clients", len(h.clients))
			}
		case frame := <-h.broadcast:
			for c := range h.clients {
				if c.needResync {
					h.sendSnapshot(c)
					continue
				}
				select {
				case c.send <- frame:
				default:
					// Slow consumer. Flag for a snapshot instead of
					// letting it fall behind the delta stream.
					c.needResync = true
				}
			}
		case c := <-h.resync:
			if h.clients[c] {
				h.sendSnapshot(c)
			}
		case reply := <-h.count:
			reply <- len(h.clients)
		}
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	reply := make(chan int, 1)
	h.count <- reply
	return <-reply
}

// sendSnapshot ships the full world state to one client.
func (h *Hub) sendSnapshot(c *Client) {
	raw, err := h.Eng.SnapshotJSON()
	if err != nil {
		slog.Error("snapshot marshal failed", "client", c.id, "error", err)
		return
	}
	seq := h.Eng.Seq()
	frame, _ := json.Marshal(Envelope{Type: "snapshot", Seq: seq, Data: raw})
	select {
	case c.send <- frame:
		c.needResync = false
		c.lastSeq = seq
	default:
		// Still saturated; retry on the next broadcast.
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// ServeWS upgrades an HTTP request to a sync connection.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("websocket upgrade failed", "error", err)
		return
	}
	c := &Client{
		id:      uuid.NewString(),
		hub:     h,
		conn:    conn,
		send:    make(chan []byte, sendBuffer),
		limiter: rate.NewLimiter(rate.Limit(10), 20),
	}
	h.register <- c

	go c.writePump()
	go c.readPump()
}

// readPump consumes client frames: commands and resync requests.
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Warn("websocket read error", "client", c.id, "error", err)
			}
			return
		}

		var env Envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			c.sendError("malformed frame")
			continue
		}

		switch env.Type {
		case "command":
			if !c.limiter.Allow() {
				c.sendError("command rate limit exceeded")
				continue
			}
			var cmd engine.Command
			if err := json.Unmarshal(env.Data, &cmd); err != nil {
				c.sendError("malformed command")
				continue
			}
			if err := c.hub.Eng.Submit(cmd); err != nil {
				c.sendError(err.Error())
			}
		case "resync":
			select {
			case c.hub.resync <- c:
			default:
			}
		default:
			c.sendError("unknown frame type")
		}
	}
}

// sendError queues an error frame, dropping it if the client is saturated.
func (c *Client) sendError(msg string) {
	data, _ := json.Marshal(map[string]string{"message": msg})
	frame, _ := json.Marshal(Envelope{Type: "error", Data: data})
	select {
	case c.send <- frame:
	default:
	}
}

// writePump ships queued frames and keeps the connection alive with pings.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case frame, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
