package server

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/png"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"DevAmp/core/keys"
	"DevAmp/logger"
	"DevAmp/model"
)

// MessageType names the JSON messages exchanged over /ws.
type MessageType string

const (
	MsgTypeState MessageType = "state" // server -> UI snapshot
	MsgTypeKey   MessageType = "key"   // UI -> server key press
	MsgTypePing  MessageType = "ping"
	MsgTypePong  MessageType = "pong"
	MsgTypeError MessageType = "error"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 30 * time.Second
	maxMessageSize = 4096
	sendBuffer     = 32
)

// WSMessage is the envelope of every text message on /ws. Visualizer frames
// travel separately as binary PNG messages.
type WSMessage struct {
	Type      MessageType     `json:"type"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp int64           `json:"timestamp"`
}

type outbound struct {
	kind int // websocket.TextMessage or websocket.BinaryMessage
	data []byte
}

// Client is one connected UI.
type Client struct {
	ID   string
	Hub  *Hub
	Conn *websocket.Conn
	Send chan outbound

	mu     sync.Mutex
	closed bool
}

// enqueue reports false when the buffer is full or the client is gone.
func (c *Client) enqueue(msg outbound) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.Send <- msg:
		return true
	default:
		return false
	}
}

func (c *Client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.Send)
	}
}

// Hub fans state snapshots and visualizer frames out to every connected UI.
type Hub struct {
	clients map[*Client]bool

	register   chan *Client
	unregister chan *Client
	broadcast  chan outbound

	mu    sync.RWMutex
	done  chan struct{}
	once  sync.Once
	count int

	pngEnc png.Encoder
	pngBuf bytes.Buffer
	pngMu  sync.Mutex
}

// NewHub creates a hub. Call Run to start it.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan outbound, 256),
		done:       make(chan struct{}),
		pngEnc:     png.Encoder{CompressionLevel: png.BestSpeed},
	}
}

// Run is the hub's main loop.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case msg := <-h.broadcast:
			h.broadcastAll(msg)

		case <-h.done:
			h.cleanup()
			return
		}
	}
}

// Stop closes every connection and ends Run.
func (h *Hub) Stop() {
	h.once.Do(func() { close(h.done) })
}

func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.clients[client] = true
	h.count = len(h.clients)
	logger.Info("ui client connected", logger.String("client", client.ID))
}

func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.removeClient(client)
}

// removeClient must be called with mu held.
func (h *Hub) removeClient(client *Client) {
	if _, ok := h.clients[client]; !ok {
		return
	}
	delete(h.clients, client)
	client.close()
	h.count = len(h.clients)
	logger.Info("ui client disconnected", logger.String("client", client.ID))
}

func (h *Hub) broadcastAll(msg outbound) {
	h.mu.RLock()
	clientList := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clientList = append(clientList, client)
	}
	h.mu.RUnlock()

	for _, client := range clientList {
		if !client.enqueue(msg) {
			// slow reader
			h.mu.Lock()
			h.removeClient(client)
			h.mu.Unlock()
		}
	}
}

func (h *Hub) cleanup() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.clients {
		client.close()
	}
	h.clients = make(map[*Client]bool)
	h.count = 0
}

// ClientCount returns the number of connected UIs.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.count
}

// Register adds a client. It returns false once the hub has stopped.
func (h *Hub) Register(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

// Unregister removes a client.
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

func (h *Hub) send(msg outbound) {
	select {
	case h.broadcast <- msg:
	case <-h.done:
	default:
		logger.Debug("hub broadcast queue full, dropping message")
	}
}

// PublishState broadcasts a snapshot to every client.
func (h *Hub) PublishState(snap model.Snapshot) {
	data, err := encodeMessage(MsgTypeState, snap)
	if err != nil {
		logger.Error("encode state", logger.ErrorField(err))
		return
	}
	h.send(outbound{kind: websocket.TextMessage, data: data})
}

// PublishFrame encodes img as PNG and broadcasts it. Frames are dropped
// while no client is connected.
func (h *Hub) PublishFrame(img *image.RGBA) {
	if h.ClientCount() == 0 {
		return
	}
	h.pngMu.Lock()
	h.pngBuf.Reset()
	err := h.pngEnc.Encode(&h.pngBuf, img)
	data := bytes.Clone(h.pngBuf.Bytes())
	h.pngMu.Unlock()
	if err != nil {
		logger.Error("encode frame", logger.ErrorField(err))
		return
	}
	h.send(outbound{kind: websocket.BinaryMessage, data: data})
}

// FollowState forwards snapshots until ctx is done or snaps closes.
func (h *Hub) FollowState(ctx context.Context, snaps <-chan model.Snapshot) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-h.done:
			return
		case snap, ok := <-snaps:
			if !ok {
				return
			}
			h.PublishState(snap)
		}
	}
}

func encodeMessage(t MessageType, v any) ([]byte, error) {
	msg := WSMessage{Type: t, Timestamp: time.Now().UnixMilli()}
	if v != nil {
		data, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		msg.Data = data
	}
	return json.Marshal(msg)
}

// NewClient wraps an upgraded connection.
func NewClient(h *Hub, conn *websocket.Conn) *Client {
	return &Client{
		ID:   uuid.NewString(),
		Hub:  h,
		Conn: conn,
		Send: make(chan outbound, sendBuffer),
	}
}

// SendMessage queues a text message for this client only. It drops the
// message when the buffer is full.
func (c *Client) SendMessage(t MessageType, v any) error {
	data, err := encodeMessage(t, v)
	if err != nil {
		return err
	}
	c.enqueue(outbound{kind: websocket.TextMessage, data: data})
	return nil
}

// ReadPump reads key presses and pings from the UI until the connection
// drops. Key presses go to t.
func (c *Client) ReadPump(t keys.Transport) {
	defer func() {
		c.Hub.Unregister(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Warn("websocket read error",
					logger.ErrorField(err),
					logger.String("client", c.ID))
			}
			return
		}

		var msg WSMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			logger.Warn("invalid message format", logger.ErrorField(err), logger.String("client", c.ID))
			c.SendMessage(MsgTypeError, map[string]string{"error": "invalid message"})
			continue
		}

		switch msg.Type {
		case MsgTypePing:
			c.SendMessage(MsgTypePong, nil)
		case MsgTypeKey:
			var ev keys.Event
			if err := json.Unmarshal(msg.Data, &ev); err != nil {
				c.SendMessage(MsgTypeError, map[string]string{"error": "invalid key event"})
				continue
			}
			keys.Handle(t, ev)
		default:
			logger.Debug("ignoring ws message", logger.String("type", string(msg.Type)))
		}
	}
}

// WritePump writes queued messages and keeps the connection alive with pings.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(msg.kind, msg.data); err != nil {
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
