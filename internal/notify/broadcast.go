package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pumpwatch/engine/internal/store"
)

// Heartbeat and buffering constants for broadcast clients
const (
	WriteTimeout = 10 * time.Second
	PongTimeout  = 60 * time.Second
	PingInterval = (PongTimeout * 9) / 10

	clientBuffer = 16
)

// AlertMessage is the JSON frame pushed to WebSocket clients.
type AlertMessage struct {
	Type            string    `json:"type"`
	Network         string    `json:"network"`
	PoolID          string    `json:"pool_id"`
	Name            string    `json:"name"`
	VolumeChangePct float64   `json:"volume_change_pct"`
	PriceChangePct  float64   `json:"price_change_pct"`
	ChartURL        string    `json:"chart_url"`
	DetectedAt      time.Time `json:"detected_at"`
}

// NewAlertMessage converts an alert into its wire form.
func NewAlertMessage(alert store.Alert) AlertMessage {
	return AlertMessage{
		Type:            alert.SignalType,
		Network:         alert.Network,
		PoolID:          alert.Pool.ID,
		Name:            alert.Pool.Name,
		VolumeChangePct: alert.VolumeChange,
		PriceChangePct:  alert.PriceChange,
		ChartURL:        alert.ChartURL,
		DetectedAt:      alert.DetectedAt.UTC(),
	}
}

// Broadcaster pushes alerts to every connected WebSocket client.
type Broadcaster struct {
	upgrader websocket.Upgrader

	mu      sync.RWMutex
	clients map[*wsClient]struct{}
}

type wsClient struct {
	conn *websocket.Conn
	send chan []byte
	once sync.Once
}

// NewBroadcaster creates a new Broadcaster.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		clients: make(map[*wsClient]struct{}),
	}
}

// ServeHTTP upgrades the request and keeps the client until it disconnects.
func (b *Broadcaster) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := b.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("ws_upgrade_failed", "remote", r.RemoteAddr, "error", err)
		return
	}

	c := &wsClient{conn: conn, send: make(chan []byte, clientBuffer)}
	b.register(c)
	slog.Info("ws_client_connected", "remote", r.RemoteAddr, "clients", b.ClientCount())

	go b.writePump(c)
	b.readPump(c)

	b.unregister(c)
	slog.Info("ws_client_disconnected", "remote", r.RemoteAddr, "clients", b.ClientCount())
}

// Notify sends the alert to all clients. Clients whose buffer is full are dropped.
func (b *Broadcaster) Notify(_ context.Context, alert store.Alert) error {
	payload, err := json.Marshal(NewAlertMessage(alert))
	if err != nil {
		return sendError("websocket", fmt.Errorf("encode failed: %w", err))
	}

	b.mu.RLock()
	var slow []*wsClient
	for c := range b.clients {
		select {
		case c.send <- payload:
		default:
			slow = append(slow, c)
		}
	}
	b.mu.RUnlock()

	for _, c := range slow {
		slog.Warn("ws_client_too_slow", "remote", c.conn.RemoteAddr().String())
		b.unregister(c)
	}

	return nil
}

// ClientCount returns the number of connected clients.
func (b *Broadcaster) ClientCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.clients)
}

// Close disconnects every client.
func (b *Broadcaster) Close() {
	b.mu.RLock()
	clients := make([]*wsClient, 0, len(b.clients))
	for c := range b.clients {
		clients = append(clients, c)
	}
	b.mu.RUnlock()

	for _, c := range clients {
		b.unregister(c)
	}
}

func (b *Broadcaster) register(c *wsClient) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.clients[c] = struct{}{}
}

// unregister removes the client and closes its send channel exactly once.
func (b *Broadcaster) unregister(c *wsClient) {
	b.mu.Lock()
	delete(b.clients, c)
	b.mu.Unlock()

	c.once.Do(func() {
		close(c.send)
	})
}

// readPump discards inbound frames and tracks pongs until the connection fails.
func (b *Broadcaster) readPump(c *wsClient) {
	c.conn.SetReadLimit(512)
	_ = c.conn.SetReadDeadline(time.Now().Add(PongTimeout))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(PongTimeout))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

// writePump delivers queued frames and pings the client.
func (b *Broadcaster) writePump(c *wsClient) {
	ticker := time.NewTicker(PingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(WriteTimeout))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(WriteTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
