package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/abrezinsky/jackpot/internal/logger"
	"github.com/abrezinsky/jackpot/internal/lottery"
	"github.com/abrezinsky/jackpot/internal/models"
	"github.com/abrezinsky/jackpot/internal/services"
)

// Message types pushed to clients
const (
	MsgStatus    = "status"
	MsgEntry     = "entry"
	MsgDraw      = "draw"
	MsgRollover  = "rollover"
	MsgPayout    = "payout"
	MsgCountdown = "countdown"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
	sendBuffer = 256
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // the feed is public and read-only
	},
}

// StatusSource provides the snapshot sent to newly connected clients
type StatusSource interface {
	Status(ctx context.Context) (*services.Status, error)
}

// Hub maintains the set of active clients and broadcasts messages to the clients
type Hub struct {
	log        logger.Logger
	clients    map[*Client]bool
	broadcast  chan models.WSMessage
	register   chan *Client
	unregister chan *Client
	mutex      sync.RWMutex
	status     StatusSource
	done       chan struct{}
	stopOnce   sync.Once
}

// Client is a middleman between the websocket connection and the hub
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan models.WSMessage
}

// New creates a new Hub instance with injected dependencies
func New(log logger.Logger, status StatusSource) *Hub {
	return &Hub{
		log:        log,
		clients:    make(map[*Client]bool),
		broadcast:  make(chan models.WSMessage, sendBuffer),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		status:     status,
		done:       make(chan struct{}),
	}
}

// Run handles client registration/unregistration and message broadcasting
// until ctx is done
func (h *Hub) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			h.stopOnce.Do(func() { close(h.done) })
			h.closeAll()
			return nil

		case client := <-h.register:
			h.mutex.Lock()
			h.clients[client] = true
			n := len(h.clients)
			h.mutex.Unlock()
			h.log.Debug("Client connected", "total_clients", n)
			go h.greet(client)

		case client := <-h.unregister:
			h.mutex.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			n := len(h.clients)
			h.mutex.Unlock()
			h.log.Debug("Client disconnected", "total_clients", n)

		case message := <-h.broadcast:
			h.mutex.RLock()
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					// Client's send channel is full, unregister
					go func(c *Client) {
						select {
						case h.unregister <- c:
						case <-h.done:
						}
					}(client)
				}
			}
			h.mutex.RUnlock()
		}
	}
}

func (h *Hub) closeAll() {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	for client := range h.clients {
		delete(h.clients, client)
		close(client.send)
	}
}

// greet sends the current status to a new client
func (h *Hub) greet(client *Client) {
	if h.status == nil {
		return
	}
	st, err := h.status.Status(context.Background())
	if err != nil {
		h.log.Debug("Status unavailable for new client", "error", err)
		return
	}

	h.mutex.RLock()
	defer h.mutex.RUnlock()
	if h.clients[client] {
		select {
		case client.send <- models.WSMessage{Type: MsgStatus, Payload: st}:
		default:
		}
	}
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients)
}

// BroadcastMessage queues a message for all connected clients. It never
// blocks the caller; a full queue drops the message.
func (h *Hub) BroadcastMessage(msgType string, payload interface{}) {
	select {
	case h.broadcast <- models.WSMessage{Type: msgType, Payload: payload}:
	default:
		h.log.Warn("Broadcast queue full, dropping message", "type", msgType)
	}
}

// BroadcastEntry implements services.Broadcaster
func (h *Hub) BroadcastEntry(res lottery.EntryResult) {
	h.BroadcastMessage(MsgEntry, res)
}

// BroadcastDraw implements services.Broadcaster
func (h *Hub) BroadcastDraw(d models.DrawRecord) {
	msgType := MsgDraw
	if d.Outcome == lottery.OutcomeRollover.String() {
		msgType = MsgRollover
	}
	h.BroadcastMessage(msgType, d)
}

// BroadcastPayout implements services.Broadcaster
func (h *Hub) BroadcastPayout(p models.PayoutRecord) {
	h.BroadcastMessage(MsgPayout, p)
}

// BroadcastStatus implements services.Broadcaster
func (h *Hub) BroadcastStatus(st *services.Status) {
	h.BroadcastMessage(MsgStatus, st)
}

// BroadcastCountdown publishes the seconds left until the draw interval opens
func (h *Hub) BroadcastCountdown(secondsRemaining int64, nextDrawAt time.Time) {
	h.BroadcastMessage(MsgCountdown, map[string]interface{}{
		"seconds_remaining": secondsRemaining,
		"next_draw_at":      nextDrawAt,
	})
}

// readPump pumps messages from the websocket connection to the hub
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.log.Debug("WebSocket error", "error", err)
			}
			break
		}

		// the feed is one-way; client messages are only logged
		var msg models.WSMessage
		if err := json.Unmarshal(message, &msg); err == nil {
			c.hub.log.Debug("Received message", "type", msg.Type)
		}
	}
}

// writePump pumps messages from the hub to the websocket connection
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(message); err != nil {
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

// ServeWs handles websocket requests from clients
func (h *Hub) ServeWs(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Error("WebSocket upgrade error", "error", err)
		return
	}

	client := &Client{
		hub:  h,
		conn: conn,
		send: make(chan models.WSMessage, sendBuffer),
	}
	select {
	case h.register <- client:
	case <-h.done:
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}
