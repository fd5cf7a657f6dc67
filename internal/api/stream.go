package api

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// PredictionEvent describes websocket payloads emitted as predictions are
// served.
type PredictionEvent struct {
	Type             string    `json:"type"`
	PredictedCountry string    `json:"predicted_country,omitempty"`
	Confidence       float64   `json:"confidence,omitempty"`
	Variety          string    `json:"variety,omitempty"`
	ModelVersion     string    `json:"model_version,omitempty"`
	LatencyMs        int64     `json:"latency_ms,omitempty"`
	Message          string    `json:"message,omitempty"`
	Timestamp        time.Time `json:"timestamp"`
}

// wsClient wraps a websocket connection with write locking.
type wsClient struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

// PredictionNotifier keeps track of active websocket clients and broadcasts
// prediction events.
type PredictionNotifier struct {
	mu        sync.Mutex
	clients   map[*wsClient]struct{}
	lastEvent *PredictionEvent
}

// NewPredictionNotifier constructs a notifier instance.
func NewPredictionNotifier() *PredictionNotifier {
	return &PredictionNotifier{clients: make(map[*wsClient]struct{})}
}

// Register attaches a websocket connection and returns a client handle. The
// most recent event is replayed so late subscribers see current state.
func (n *PredictionNotifier) Register(conn *websocket.Conn) *wsClient {
	client := &wsClient{conn: conn}
	n.mu.Lock()
	n.clients[client] = struct{}{}
	last := n.lastEvent
	n.mu.Unlock()

	if last != nil {
		_ = client.writeJSON(*last)
	}
	return client
}

// Unregister removes the websocket client from the notifier and closes the
// socket.
func (n *PredictionNotifier) Unregister(client *wsClient) {
	if client == nil {
		return
	}
	n.mu.Lock()
	delete(n.clients, client)
	n.mu.Unlock()
	_ = client.conn.Close()
}

// Broadcast sends the supplied event to all registered websocket clients.
func (n *PredictionNotifier) Broadcast(event PredictionEvent) {
	event.Timestamp = time.Now().UTC()

	n.mu.Lock()
	if event.Type == "prediction" {
		snapshot := event
		n.lastEvent = &snapshot
	}
	for client := range n.clients {
		if err := client.writeJSON(event); err != nil {
			delete(n.clients, client)
			_ = client.conn.Close()
		}
	}
	n.mu.Unlock()
}

// LastEvent returns a copy of the most recent prediction event, if any.
func (n *PredictionNotifier) LastEvent() *PredictionEvent {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.lastEvent == nil {
		return nil
	}
	copy := *n.lastEvent
	return &copy
}

func (c *wsClient) writeJSON(payload interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil
	}
	c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return c.conn.WriteJSON(payload)
}
