package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/pixeldungeon/turnengine/internal/game"
	"github.com/pixeldungeon/turnengine/internal/game/rules"
)

const (
	writeWait      = 10 * time.Second
	clientBuffer   = 256
	broadcastDepth = 1024
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// EventMessage is one dispatched event as streamed to clients.
type EventMessage struct {
	Type     string          `json:"type"`
	Kind     rules.EventKind `json:"kind"`
	Category string          `json:"category"`
	Phase    string          `json:"phase"`
	Payload  rules.Event     `json:"payload"`
}

// Command is a client request read from the socket.
type Command struct {
	Type      string `json:"type"`
	Action    string `json:"action,omitempty"`
	Direction string `json:"direction,omitempty"`
	Target    uint64 `json:"target,omitempty"`
	ItemSlot  int    `json:"item_slot,omitempty"`
}

// Reply answers a Command.
type Reply struct {
	Type     string `json:"type"`
	ActionID string `json:"action_id,omitempty"`
	Error    string `json:"error,omitempty"`
}

// Controller is the part of the engine clients can drive.
type Controller interface {
	Submit(action game.PlayerAction) (game.ActionID, error)
	Pause()
	Resume()
}

// Client is one websocket subscriber.
type Client struct {
	hub  *Hub
	conn *websocket.Conn

	mu     sync.Mutex
	send   chan []byte
	closed bool
}

// trySend queues msg without blocking. It reports false when the buffer is
// full or the client is closed.
func (c *Client) trySend(msg []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- msg:
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
		close(c.send)
	}
}

// Hub fans bus events out to websocket clients. It is a bus handler that
// runs last in every phase; slow clients lose messages instead of stalling
// dispatch.
type Hub struct {
	logger     *zap.Logger
	metrics    *Metrics
	controller Controller
	phase      func() rules.TurnPhase

	clients    map[*Client]bool
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	closeOnce  sync.Once
}

// NewHub creates a hub. phase reports the bus phase for outgoing messages
// and may be nil.
func NewHub(controller Controller, phase func() rules.TurnPhase, metrics *Metrics, logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		logger:     logger,
		metrics:    metrics,
		controller: controller,
		phase:      phase,
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte, broadcastDepth),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
}

// Run services registrations and broadcasts until ctx is done, then closes
// every client.
func (h *Hub) Run(ctx context.Context) {
	defer h.closeOnce.Do(func() { close(h.done) })
	for {
		select {
		case <-ctx.Done():
			for client := range h.clients {
				h.drop(client)
			}
			return

		case client := <-h.register:
			h.clients[client] = true
			h.metrics.clientsConnected.Inc()
			h.logger.Debug("client registered", zap.String("remote", client.conn.RemoteAddr().String()))

		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				h.drop(client)
				h.logger.Debug("client unregistered", zap.String("remote", client.conn.RemoteAddr().String()))
			}

		case message := <-h.broadcast:
			for client := range h.clients {
				if !client.trySend(message) {
					h.metrics.messagesDropped.Inc()
					h.drop(client)
				}
			}
		}
	}
}

func (h *Hub) drop(client *Client) {
	delete(h.clients, client)
	client.close()
	h.metrics.clientsConnected.Dec()
}

// Handle implements rules.Handler.
func (h *Hub) Handle(event rules.Event) {
	phase := rules.PhaseAny
	if h.phase != nil {
		phase = h.phase()
	}
	data, err := json.Marshal(EventMessage{
		Type:     "event",
		Kind:     event.Kind(),
		Category: rules.Category(event).String(),
		Phase:    phase.String(),
		Payload:  event,
	})
	if err != nil {
		h.logger.Warn("failed to encode event", zap.String("kind", string(event.Kind())), zap.Error(err))
		return
	}
	select {
	case h.broadcast <- data:
		h.metrics.messagesBroadcast.Inc()
	default:
		h.metrics.messagesDropped.Inc()
	}
}

// Name implements rules.Handler.
func (h *Hub) Name() string { return "websocket-hub" }

// Priority implements rules.Handler.
func (h *Hub) Priority() rules.Priority { return rules.PriorityLowest }

// ShouldHandle implements rules.Handler.
func (h *Hub) ShouldHandle(rules.Event) bool { return true }

// RunInPhases implements rules.Handler.
func (h *Hub) RunInPhases() rules.PhaseSet { return rules.NewPhaseSet() }

// ServeHTTP upgrades the request and attaches a client.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Debug("websocket upgrade failed", zap.Error(err))
		return
	}
	client := &Client{hub: h, conn: conn, send: make(chan []byte, clientBuffer)}

	select {
	case h.register <- client:
	case <-h.done:
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}

func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	for {
		var cmd Command
		if err := c.conn.ReadJSON(&cmd); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Debug("websocket read failed", zap.Error(err))
			}
			return
		}
		c.reply(c.hub.execute(cmd))
	}
}

func (c *Client) writePump() {
	defer c.conn.Close()

	for message := range c.send {
		if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
			return
		}
		if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
			return
		}
	}
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
}

func (c *Client) reply(r Reply) {
	data, err := json.Marshal(r)
	if err != nil {
		return
	}
	c.trySend(data)
}

func (h *Hub) execute(cmd Command) Reply {
	if h.controller == nil {
		return Reply{Type: "error", Error: "read-only stream"}
	}
	switch cmd.Type {
	case "submit":
		action, err := parseAction(cmd)
		if err != nil {
			return Reply{Type: "error", Error: err.Error()}
		}
		id, err := h.controller.Submit(action)
		if err != nil {
			return Reply{Type: "error", Error: err.Error()}
		}
		return Reply{Type: "accepted", ActionID: id.String()}
	case "pause":
		h.controller.Pause()
		return Reply{Type: "paused"}
	case "resume":
		h.controller.Resume()
		return Reply{Type: "resumed"}
	default:
		return Reply{Type: "error", Error: fmt.Sprintf("unknown command %q", cmd.Type)}
	}
}

func parseAction(cmd Command) (game.PlayerAction, error) {
	actionType, ok := game.ParsePlayerActionType(cmd.Action)
	if !ok {
		return game.PlayerAction{}, fmt.Errorf("unknown action %q", cmd.Action)
	}
	dir, ok := game.ParseDirection(cmd.Direction)
	if !ok {
		return game.PlayerAction{}, fmt.Errorf("unknown direction %q", cmd.Direction)
	}
	return game.PlayerAction{
		Type:      actionType,
		Direction: dir,
		Target:    game.ActorID(cmd.Target),
		ItemSlot:  cmd.ItemSlot,
	}, nil
}
