package websockets

import (
	"time"

	"github.com/Larry-Schultz/FFTBViewerV3/internal/events"
	"github.com/Larry-Schultz/FFTBViewerV3/internal/logger"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

const (
	MESSAGE_TYPE_PING      = "ping"
	MESSAGE_TYPE_PONG      = "pong"
	MESSAGE_TYPE_CONNECTED = "connected"
	PING_INTERVAL          = 30 * time.Second
	PONG_TIMEOUT           = 60 * time.Second
	WRITE_TIMEOUT          = 10 * time.Second
	MAX_MESSAGE_SIZE       = 4 * 1024
	SEND_CHANNEL_SIZE      = 64
	BROADCAST_BUFFER_SIZE  = 256
	// Channels
	BROADCAST_CHANNEL = "broadcast"
	SYSTEM_CHANNEL    = "system"
)

type Message struct {
	ID        string         `json:"id"`
	Type      string         `json:"type"`
	Channel   string         `json:"channel,omitempty"`
	Data      map[string]any `json:"data,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// Client is one browser connection. The stream is server to client; the only
// client message honoured is an application level ping.
type Client struct {
	ID         string
	Connection *websocket.Conn
	Manager    *Manager
	send       chan Message
	pings      chan struct{}
}

type Manager struct {
	hub      *Hub
	log      logger.Logger
	eventBus *events.EventBus
	done     chan struct{}
}

func New(eventBus *events.EventBus) (*Manager, error) {
	log := logger.New("websockets")

	manager := &Manager{
		hub: &Hub{
			broadcast:  make(chan Message, BROADCAST_BUFFER_SIZE),
			register:   make(chan *Client),
			unregister: make(chan *Client),
			clients:    make(map[string]*Client),
		},
		log:      log,
		eventBus: eventBus,
		done:     make(chan struct{}),
	}

	log.Function("New").Info("Starting websocket hub")
	go manager.hub.run(manager)

	if err := manager.subscribeToBroadcastEvents(); err != nil {
		manager.Close()
		return nil, err
	}

	return manager, nil
}

func newClient(m *Manager, conn *websocket.Conn) *Client {
	return &Client{
		ID:         uuid.New().String(),
		Connection: conn,
		Manager:    m,
		send:       make(chan Message, SEND_CHANNEL_SIZE),
		pings:      make(chan struct{}, 1),
	}
}

func (m *Manager) HandleWebSocket(c *websocket.Conn) {
	log := m.log.Function("HandleWebSocket")

	client := newClient(m, c)
	client.send <- Message{
		ID:        uuid.New().String(),
		Type:      MESSAGE_TYPE_CONNECTED,
		Channel:   SYSTEM_CHANNEL,
		Data:      map[string]any{"clientId": client.ID},
		Timestamp: time.Now().UTC(),
	}

	if !m.registerClientAsync(client) {
		_ = c.Close()
		return
	}
	defer func() {
		log.Debug("Client disconnected", "clientID", client.ID)
		m.unregisterClientAsync(client)
		if err := c.Close(); err != nil {
			log.Debug("failed to close connection", "error", err)
		}
	}()

	go client.readPump()
	client.writePump()
}

func (m *Manager) registerClientAsync(client *Client) bool {
	select {
	case m.hub.register <- client:
		return true
	case <-m.done:
		return false
	}
}

func (m *Manager) unregisterClientAsync(client *Client) {
	select {
	case m.hub.unregister <- client:
	case <-m.done:
	}
}

// BroadcastMessage queues a message for every connected client. It never
// blocks; a full queue drops the message.
func (m *Manager) BroadcastMessage(message Message) {
	select {
	case m.hub.broadcast <- message:
	case <-m.done:
	default:
		m.log.Function("BroadcastMessage").Warn("Broadcast queue is full, dropping message", "messageID", message.ID)
	}
}

func (m *Manager) ClientCount() int {
	m.hub.mutex.RLock()
	defer m.hub.mutex.RUnlock()
	return len(m.hub.clients)
}

// Close stops the hub. Connected clients are dropped when their pumps exit.
func (m *Manager) Close() {
	select {
	case <-m.done:
	default:
		close(m.done)
	}
}

func (c *Client) readPump() {
	log := c.Manager.log.Function("readPump")
	defer func() {
		c.Manager.unregisterClientAsync(c)
		_ = c.Connection.Close()
	}()

	c.Connection.SetReadLimit(MAX_MESSAGE_SIZE)
	if err := c.Connection.SetReadDeadline(time.Now().Add(PONG_TIMEOUT)); err != nil {
		log.Er("failed to set read deadline", err, "clientID", c.ID)
	}
	c.Connection.SetPongHandler(func(string) error {
		if err := c.Connection.SetReadDeadline(time.Now().Add(PONG_TIMEOUT)); err != nil {
			log.Er("failed to set read deadline in pong handler", err, "clientID", c.ID)
		}
		return nil
	})

	for {
		var message Message
		if err := c.Connection.ReadJSON(&message); err != nil {
			if websocket.IsUnexpectedCloseError(
				err,
				websocket.CloseGoingAway,
				websocket.CloseNormalClosure,
			) {
				log.Er("Unexpected close error", err, "clientID", c.ID)
			}
			return
		}

		c.route(message)
	}
}

func (c *Client) route(message Message) {
	if message.Type != MESSAGE_TYPE_PING {
		c.Manager.log.Function("route").Debug("Ignoring client message", "clientID", c.ID, "type", message.Type)
		return
	}

	select {
	case c.pings <- struct{}{}:
	default:
	}
}

func (c *Client) writePump() {
	log := c.Manager.log.Function("writePump")

	ticker := time.NewTicker(PING_INTERVAL)
	defer func() {
		ticker.Stop()
		_ = c.Connection.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			if err := c.Connection.SetWriteDeadline(time.Now().Add(WRITE_TIMEOUT)); err != nil {
				log.Er("failed to set write deadline", err, "clientID", c.ID)
			}
			if !ok {
				_ = c.Connection.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.Connection.WriteJSON(message); err != nil {
				log.Er("WebSocket write error", err, "clientID", c.ID, "messageID", message.ID)
				return
			}

		case <-c.pings:
			if err := c.Connection.SetWriteDeadline(time.Now().Add(WRITE_TIMEOUT)); err != nil {
				log.Er("failed to set write deadline for pong", err, "clientID", c.ID)
			}
			pong := Message{
				ID:        uuid.New().String(),
				Type:      MESSAGE_TYPE_PONG,
				Channel:   SYSTEM_CHANNEL,
				Timestamp: time.Now().UTC(),
			}
			if err := c.Connection.WriteJSON(pong); err != nil {
				return
			}

		case <-ticker.C:
			if err := c.Connection.SetWriteDeadline(time.Now().Add(WRITE_TIMEOUT)); err != nil {
				log.Er("failed to set write deadline for ping", err, "clientID", c.ID)
			}
			if err := c.Connection.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (m *Manager) subscribeToBroadcastEvents() error {
	log := m.log.Function("subscribeToBroadcastEvents")

	err := m.eventBus.Subscribe(events.BROADCAST_CHANNEL, func(event events.Event) error {
		log.Debug("Received broadcast event", "eventID", event.ID, "eventType", event.Type)

		m.BroadcastMessage(Message{
			ID:        event.ID,
			Type:      string(event.Type),
			Channel:   BROADCAST_CHANNEL,
			Data:      event.Data,
			Timestamp: event.Timestamp,
		})
		return nil
	})
	if err != nil {
		return log.Err("Failed to subscribe to broadcast events", err)
	}
	return nil
}
