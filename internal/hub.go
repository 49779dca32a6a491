package internal

import (
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// HubWriteTimeout bounds each websocket write.
var HubWriteTimeout = 5 * time.Second

// HubSendBuffer is how many messages may queue for one client before it is
// considered stalled and dropped.
var HubSendBuffer = 64

// hubClient owns one connection; only its writePump writes to conn.
type hubClient struct {
	id   string
	conn *websocket.Conn
	send chan hubMessage
}

// Hub fans node updates out to every open dashboard page.
type Hub struct {
	mu      sync.Mutex
	clients map[*websocket.Conn]*hubClient
}

func NewHub() *Hub {
	return &Hub{clients: make(map[*websocket.Conn]*hubClient)}
}

type hubMessage struct {
	Type    string       `json:"type"`
	Updates []NodeUpdate `json:"updates"`
}

func getWebSocketUpgrader() *websocket.Upgrader {
	return &websocket.Upgrader{
		CheckOrigin:      checkSameOrigin,
		HandshakeTimeout: 10 * time.Second,
	}
}

// checkSameOrigin accepts only browser connections from the page's own host.
func checkSameOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		DashLog(WARN, "Hub", "websocket rejected: missing Origin header")
		return false
	}
	u, err := url.Parse(origin)
	if err != nil || u.Host != r.Host {
		DashLog(WARN, "Hub", "websocket rejected from origin %q", origin)
		return false
	}
	return true
}

// AddClient registers conn, queues the snapshot first and starts its writer.
func (h *Hub) AddClient(conn *websocket.Conn, snapshot []NodeUpdate) string {
	c := &hubClient{id: uuid.NewString(), conn: conn, send: make(chan hubMessage, HubSendBuffer)}
	if len(snapshot) > 0 {
		c.send <- hubMessage{Type: "snapshot", Updates: snapshot}
	}
	h.mu.Lock()
	h.clients[conn] = c
	UpdateClients.Set(float64(len(h.clients)))
	h.mu.Unlock()
	go h.writePump(c)
	DashLog(DEBUG, "Hub", "Client %s connected", c.id)
	return c.id
}

// RemoveClient unregisters conn and closes it. Safe to call more than once.
func (h *Hub) RemoveClient(conn *websocket.Conn) {
	h.mu.Lock()
	c, ok := h.clients[conn]
	delete(h.clients, conn)
	UpdateClients.Set(float64(len(h.clients)))
	if ok {
		close(c.send)
	}
	h.mu.Unlock()
	if ok {
		DashLog(DEBUG, "Hub", "Client %s disconnected", c.id)
	}
	_ = conn.Close()
}

// Broadcast queues one update for every client without waiting on any of
// them. A client whose queue is full is dropped.
func (h *Hub) Broadcast(update NodeUpdate) {
	msg := hubMessage{Type: "update", Updates: []NodeUpdate{update}}
	var stalled []*websocket.Conn
	h.mu.Lock()
	count := 0
	for conn, c := range h.clients {
		select {
		case c.send <- msg:
			count++
		default:
			DashLog(DEBUG, "Hub", "Client %s is not keeping up; dropping", c.id)
			stalled = append(stalled, conn)
		}
	}
	h.mu.Unlock()
	for _, conn := range stalled {
		h.RemoveClient(conn)
	}
	DashLog(DEBUG, "Hub", "Broadcast %s/%s=%s to %d clients", update.Entity, update.ID, update.Status, count)
}

// ClientCount reports the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *Hub) writePump(c *hubClient) {
	for msg := range c.send {
		data, err := json.Marshal(msg)
		if err != nil {
			DashLog(ERROR, "Hub", "Failed to encode message: %v", err)
			continue
		}
		_ = c.conn.SetWriteDeadline(time.Now().Add(HubWriteTimeout))
		if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			DashLog(DEBUG, "Hub", "Failed to write to client %s: %v", c.id, err)
			h.RemoveClient(c.conn)
			// Drain so RemoveClient's close ends the loop.
			for range c.send {
			}
			return
		}
	}
}

// Serve upgrades the request and keeps the client registered until it goes away.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, snapshot []NodeUpdate) {
	conn, err := getWebSocketUpgrader().Upgrade(w, r, nil)
	if err != nil {
		DashLog(WARN, "Hub", "websocket upgrade failed: %v", err)
		return
	}
	h.AddClient(conn, snapshot)
	defer h.RemoveClient(conn)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
