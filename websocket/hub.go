package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
	sendBuffer = 64

	// room for the JSON envelope around a base64 recording
	messageOverhead       = 64 * 1024
	defaultMaxMessageSize = 32 * 1024 * 1024
)

// Event types pushed to clients
const (
	EventJournalCreated = "journal_created"
	EventJournalDeleted = "journal_deleted"
	EventPong           = "pong"
	EventError          = "error"
)

// Hub tracks connected clients per user and fans events out to them
type Hub struct {
	clients    map[string]map[*Client]bool
	register   chan *Client
	unregister chan *Client
	notify     chan delivery
	done       chan struct{}
	mu         sync.RWMutex

	maxMessageSize int64
}

type delivery struct {
	userID  string
	payload []byte
}

type Client struct {
	Hub            *Hub
	Conn           *websocket.Conn
	Send           chan []byte
	ID             string
	UserID         string
	MessageHandler func(*Client, Message) // runs on its own goroutine per message

	sendMu sync.Mutex
	closed bool
}

// Message is what clients send: "ping" or "audio"
type Message struct {
	Type            string `json:"type"`
	Title           string `json:"title,omitempty"`
	Filename        string `json:"filename,omitempty"`
	AudioDataBase64 string `json:"audio_data_base64,omitempty"`
}

// Event is what the server sends
type Event struct {
	Type      string      `json:"type"`
	Content   string      `json:"content,omitempty"`
	Journal   interface{} `json:"journal,omitempty"`
	JournalID string      `json:"journal_id,omitempty"`
}

// MessageSizeFor is the read limit that admits an audio message carrying maxAudioBytes of audio
func MessageSizeFor(maxAudioBytes int64) int64 {
	if maxAudioBytes <= 0 {
		return defaultMaxMessageSize
	}
	return (maxAudioBytes+2)/3*4 + messageOverhead
}

// NewHub builds a hub whose clients may send frames up to maxMessageSize bytes
func NewHub(maxMessageSize int64) *Hub {
	if maxMessageSize <= 0 {
		maxMessageSize = defaultMaxMessageSize
	}
	return &Hub{
		clients:        make(map[string]map[*Client]bool),
		register:       make(chan *Client),
		unregister:     make(chan *Client),
		notify:         make(chan delivery, 64),
		done:           make(chan struct{}),
		maxMessageSize: maxMessageSize,
	}
}

// MaxMessageSize reports the read limit applied to each connection
func (h *Hub) MaxMessageSize() int64 {
	return h.maxMessageSize
}

// Run serves registrations and deliveries until ctx is cancelled, then closes every client
func (h *Hub) Run(ctx context.Context) {
	defer func() {
		h.mu.Lock()
		for _, set := range h.clients {
			for client := range set {
				client.closeSend()
			}
		}
		h.clients = make(map[string]map[*Client]bool)
		h.mu.Unlock()
		close(h.done)
		slog.Info("WebSocket hub stopped")
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case client := <-h.register:
			h.mu.Lock()
			if h.clients[client.UserID] == nil {
				h.clients[client.UserID] = make(map[*Client]bool)
			}
			h.clients[client.UserID][client] = true
			h.mu.Unlock()
			slog.Info("Client registered", "user_id", client.UserID, "client_id", client.ID)

		case client := <-h.unregister:
			h.mu.Lock()
			h.removeLocked(client)
			h.mu.Unlock()
			slog.Info("Client unregistered", "user_id", client.UserID, "client_id", client.ID)

		case d := <-h.notify:
			h.mu.Lock()
			for client := range h.clients[d.userID] {
				select {
				case client.Send <- d.payload:
				default:
					slog.Warn("Dropping slow client", "user_id", client.UserID, "client_id", client.ID)
					h.removeLocked(client)
				}
			}
			h.mu.Unlock()
		}
	}
}

func (h *Hub) removeLocked(client *Client) {
	set, ok := h.clients[client.UserID]
	if !ok || !set[client] {
		return
	}
	delete(set, client)
	client.closeSend()
	if len(set) == 0 {
		delete(h.clients, client.UserID)
	}
}

// RegisterClient adds a connection for userID; it returns nil once the hub has stopped
func (h *Hub) RegisterClient(conn *websocket.Conn, userID string) *Client {
	client := &Client{
		Hub:    h,
		Conn:   conn,
		Send:   make(chan []byte, sendBuffer),
		ID:     uuid.New().String(),
		UserID: userID,
	}

	select {
	case h.register <- client:
		return client
	case <-h.done:
		return nil
	}
}

func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// NotifyUser queues event for every connection of userID
func (h *Hub) NotifyUser(userID string, event Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		slog.Error("Failed to marshal event", "error", err, "type", event.Type)
		return
	}

	select {
	case h.notify <- delivery{userID: userID, payload: payload}:
	case <-h.done:
	}
}

// ClientCount reports how many connections userID currently holds
func (h *Hub) ClientCount(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}

// SendEvent writes directly to this client, dropping the event if it has gone away
func (c *Client) SendEvent(event Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		slog.Error("Failed to marshal event", "error", err, "type", event.Type)
		return
	}

	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.Send <- payload:
	default:
		slog.Warn("Client send buffer full", "client_id", c.ID)
	}
}

func (c *Client) closeSend() {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.Send)
	}
}

func (c *Client) ReadPump() {
	defer func() {
		c.Hub.Unregister(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(c.Hub.maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, messageBytes, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				slog.Error("WebSocket error", "error", err)
			}
			break
		}

		var msg Message
		if err := json.Unmarshal(messageBytes, &msg); err != nil {
			slog.Error("Failed to unmarshal message", "error", err)
			c.SendEvent(Event{Type: EventError, Content: "Invalid message format"})
			continue
		}

		slog.Info("Message received", "type", msg.Type, "client_id", c.ID, "user_id", c.UserID)

		if c.MessageHandler != nil {
			go c.MessageHandler(c, msg)
		} else {
			slog.Warn("No message handler for client", "client_id", c.ID)
		}
	}
}

func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			// One JSON event per frame
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
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
