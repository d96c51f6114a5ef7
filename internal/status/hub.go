// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package status

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
)

const wsWriteTimeout = time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // local status page only
	},
}

const clientQueue = 8

// Hub is an Indicator that pushes every status change to connected
// websocket clients and serves the latest snapshot over HTTP. Show and
// SetColor never wait on a client: each client has its own queue and writer,
// and updates for a client whose queue is full are dropped.
type Hub struct {
	mu      sync.Mutex
	snap    Snapshot
	clients map[*hubClient]struct{}
	now     func() time.Time
}

type hubClient struct {
	conn *websocket.Conn
	send chan Snapshot
}

// NewHub returns an empty hub.
func NewHub() *Hub {
	return &Hub{
		snap:    Snapshot{Color: Off.String()},
		clients: make(map[*hubClient]struct{}),
		now:     time.Now,
	}
}

func (h *Hub) Show(headline, detail string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.snap.Headline == headline && h.snap.Detail == detail {
		return
	}
	h.snap.Headline, h.snap.Detail = headline, detail
	h.broadcastLocked()
}

func (h *Hub) SetColor(c Color) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.snap.Color == c.String() {
		return
	}
	h.snap.Color = c.String()
	h.broadcastLocked()
}

// Snapshot returns the latest status.
func (h *Hub) Snapshot() Snapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.snap
}

func (h *Hub) broadcastLocked() {
	h.snap.Time = h.now()
	for c := range h.clients {
		select {
		case c.send <- h.snap:
		default:
			log.Debug("status: websocket client behind, update dropped")
		}
	}
}

func (h *Hub) register(c *hubClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	c.send <- h.snap
	h.clients[c] = struct{}{}
}

func (h *Hub) unregister(c *hubClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

// writePump sends queued snapshots until the queue is closed. After a write
// error it closes the connection and only drains.
func (c *hubClient) writePump() {
	for snap := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
		if err := c.conn.WriteJSON(snap); err != nil {
			log.Printf("status: websocket write error: %v", err)
			c.conn.Close()
			for range c.send {
			}
			return
		}
	}
	c.conn.Close()
}

// ServeWS upgrades the request, queues the current snapshot and keeps the
// client registered until it disconnects.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("status: websocket upgrade error: %v", err)
		return
	}

	c := &hubClient{conn: conn, send: make(chan Snapshot, clientQueue)}
	h.register(c)
	go c.writePump()

	// Drain reads so close frames are processed.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("status: websocket error: %v", err)
			}
			break
		}
	}
	h.unregister(c)
}

// ServeStatus writes the latest snapshot as JSON.
func (h *Hub) ServeStatus(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(h.Snapshot()); err != nil {
		log.Printf("status: json encode error: %v", err)
	}
}

// Handler returns a mux serving /api/status and /ws/status.
func (h *Hub) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/status", h.ServeStatus)
	mux.HandleFunc("/ws/status", h.ServeWS)
	return mux
}
