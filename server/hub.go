package server

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	pingInterval   = 10 * time.Second
	writeWait      = 10 * time.Second
	sendBufferSize = 32
)

// wsClient is one connected UI. Typing payloads are personalized per uid, so
// the uid rides on the client.
type wsClient struct {
	ID   string
	UID  string
	Conn *websocket.Conn
	Send chan []byte

	closeOnce sync.Once
}

func (c *wsClient) close() {
	c.closeOnce.Do(func() {
		close(c.Send)
		if c.Conn != nil {
			c.Conn.Close()
		}
	})
}

// Hub fans live conversation updates out to every connected UI.
type Hub struct {
	logger     *zap.SugaredLogger
	register   chan *wsClient
	unregister chan *wsClient
	broadcast  chan []byte
	direct     chan renderJob

	mu      sync.Mutex
	clients map[string]*wsClient
}

// renderJob produces a per-client payload; nil means skip that client.
type renderJob func(uid string) []byte

func NewHub(logger *zap.SugaredLogger) *Hub {
	return &Hub{
		logger:     logger,
		register:   make(chan *wsClient),
		unregister: make(chan *wsClient),
		broadcast:  make(chan []byte, sendBufferSize),
		direct:     make(chan renderJob, sendBufferSize),
		clients:    make(map[string]*wsClient),
	}
}

func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for _, client := range h.clients {
				client.close()
			}
			h.clients = make(map[string]*wsClient)
			h.mu.Unlock()
			return
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.ID] = client
			h.mu.Unlock()
			h.logger.Debugf("ws client %s registered for %s", client.ID, client.UID)
		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client.ID]; ok {
				delete(h.clients, client.ID)
				client.close()
			}
			h.mu.Unlock()
		case payload := <-h.broadcast:
			h.each(func(client *wsClient) []byte { return payload })
		case render := <-h.direct:
			h.each(func(client *wsClient) []byte { return render(client.UID) })
		}
	}
}

func (h *Hub) each(payloadFor func(*wsClient) []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, client := range h.clients {
		payload := payloadFor(client)
		if payload == nil {
			continue
		}
		select {
		case client.Send <- payload:
		default:
			// Slow consumer: drop it rather than stall the fanout.
			h.logger.Warnf("ws client %s send buffer full, dropping connection", id)
			delete(h.clients, id)
			client.close()
		}
	}
}

// Broadcast sends one payload to every connected client.
func (h *Hub) Broadcast(payload []byte) {
	h.broadcast <- payload
}

// Notify sends a personalized payload to each client.
func (h *Hub) Notify(render renderJob) {
	h.direct <- render
}

func (h *Hub) writePump(client *wsClient) {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		client.Conn.Close()
	}()

	for {
		select {
		case payload, ok := <-client.Send:
			client.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				client.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := client.Conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			client.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := client.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump discards inbound frames (the UI talks over REST) but keeps the
// connection's read side alive for pong handling and close detection.
func (h *Hub) readPump(client *wsClient) {
	defer func() {
		h.unregister <- client
	}()
	client.Conn.SetPongHandler(func(string) error { return nil })
	for {
		if _, _, err := client.Conn.ReadMessage(); err != nil {
			return
		}
	}
}
