package web

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/slidegate-dev/slidegate/pkg/banner"
	"github.com/slidegate-dev/slidegate/pkg/convert"
)

const (
	// writeWait bounds a single frame write.
	writeWait = 10 * time.Second

	// pongWait is how long a client may stay silent before its
	// connection is dropped; pings go out at pingPeriod.
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10

	// sendBuffer is the per-client outbound queue. A client that falls
	// this far behind is disconnected rather than blocking the others.
	sendBuffer = 16
)

// event is the envelope pushed to connected pages.
type event struct {
	Type string `json:"type"`

	// Banner fields.
	Class   string `json:"class,omitempty"`
	Level   string `json:"level,omitempty"`
	Message string `json:"message,omitempty"`
	Cleared bool   `json:"cleared,omitempty"`

	// Progress fields.
	Stage   string `json:"stage,omitempty"`
	Percent int    `json:"percent,omitempty"`
}

// hub fans banner and progress events out to connected pages over
// WebSocket. Writes are serialized per client by its send queue.
type hub struct {
	log      *slog.Logger
	upgrader websocket.Upgrader
	onCount  func(delta int)

	mu      sync.Mutex
	clients map[*feedClient]struct{}
}

type feedClient struct {
	conn *websocket.Conn
	send chan []byte
}

func newHub(log *slog.Logger, onCount func(delta int)) *hub {
	return &hub{
		log: log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		onCount: onCount,
		clients: make(map[*feedClient]struct{}),
	}
}

// ServeHTTP upgrades the connection and keeps it registered until the
// page goes away.
func (h *hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("event feed upgrade failed", "error", err)
		return
	}

	c := &feedClient{conn: conn, send: make(chan []byte, sendBuffer)}

	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	if h.onCount != nil {
		h.onCount(1)
	}

	go h.writePump(c)
	h.readPump(c)
}

// NotifyBanner forwards a banner transition. It matches
// banner.Notifier.
func (h *hub) NotifyBanner(class banner.Class, b *banner.Banner) {
	ev := event{Type: "toast", Class: string(class)}
	if b == nil {
		ev.Cleared = true
	} else {
		ev.Level = string(b.Level)
		ev.Message = b.Message
	}
	h.broadcast(ev)
}

// NotifyProgress forwards a progress checkpoint.
func (h *hub) NotifyProgress(s convert.Stage) {
	h.broadcast(event{Type: "progress", Stage: s.Name, Percent: s.Percent})
}

func (h *hub) broadcast(ev event) {
	data, err := json.Marshal(ev)
	if err != nil {
		h.log.Error("event marshal failed", "error", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			// Slow consumer; drop it.
			h.removeLocked(c)
		}
	}
}

// Close disconnects all clients.
func (h *hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		h.removeLocked(c)
	}
}

func (h *hub) remove(c *feedClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(c)
}

func (h *hub) removeLocked(c *feedClient) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	close(c.send)
	if h.onCount != nil {
		h.onCount(-1)
	}
}

// readPump discards inbound messages; the feed is one-way. It exists
// to notice the close handshake and pong replies.
func (h *hub) readPump(c *feedClient) {
	defer func() {
		h.remove(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *hub) writePump(c *feedClient) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
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
