package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/wricardo/hazardrun/game/service"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 4096

	sendBuffer = 256
)

var ErrHubStopped = errors.New("hub stopped")

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Envelope is the wire frame for every message in both directions
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Handler consumes connection traffic. Every call happens on the hub's
// event loop, one at a time.
type Handler interface {
	HandleMessage(connID, event string, payload json.RawMessage)
	HandleDisconnect(connID string)
	HandleTimer(sessionID string, gen uint64)
}

// ConnectionObserver is told when connections open and close
type ConnectionObserver interface {
	ConnectionOpened()
	ConnectionClosed()
}

// Client is one websocket connection
type Client struct {
	id      string
	hub     *Hub
	conn    *websocket.Conn
	send    chan []byte
	closing bool // loop-only
}

// ID returns the connection identifier
func (c *Client) ID() string {
	return c.id
}

type inbound struct {
	client *Client
	data   []byte
}

// Hub owns every connection and room and serializes all handler calls
// through a single event loop.
type Hub struct {
	clients map[string]*Client
	rooms   map[string]map[string]*Client
	timers  map[string]*time.Timer

	register   chan *Client
	unregister chan *Client
	incoming   chan inbound
	tasks      chan func()
	done       chan struct{}

	handler  Handler
	observer ConnectionObserver
	logger   zerolog.Logger
}

// Option configures a Hub
type Option func(*Hub)

func WithLogger(logger zerolog.Logger) Option {
	return func(h *Hub) {
		h.logger = logger
	}
}

func WithObserver(o ConnectionObserver) Option {
	return func(h *Hub) {
		h.observer = o
	}
}

// NewHub creates a new WebSocket hub
func NewHub(opts ...Option) *Hub {
	h := &Hub{
		clients:    make(map[string]*Client),
		rooms:      make(map[string]map[string]*Client),
		timers:     make(map[string]*time.Timer),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		incoming:   make(chan inbound, 64),
		tasks:      make(chan func(), 16),
		done:       make(chan struct{}),
		logger:     log.Logger.With().Str("component", "hub").Logger(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// SetHandler installs the message handler. Call it before Run.
func (h *Hub) SetHandler(handler Handler) {
	h.handler = handler
}

// Run starts the hub's event loop and blocks until ctx is done
func (h *Hub) Run(ctx context.Context) {
	defer h.shutdown()
	for {
		select {
		case <-ctx.Done():
			return

		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case msg := <-h.incoming:
			h.dispatch(msg)

		case task := <-h.tasks:
			task()
		}
	}
}

// Done is closed once the event loop has stopped
func (h *Hub) Done() <-chan struct{} {
	return h.done
}

// Query runs fn on the event loop and waits for it to finish
func (h *Hub) Query(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	task := func() {
		defer close(finished)
		fn()
	}

	select {
	case h.tasks <- task:
	case <-h.done:
		return ErrHubStopped
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case <-finished:
		return nil
	case <-h.done:
		return ErrHubStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ScheduleDraw arms the draw timer for sessionID, stopping any pending one.
// The callback runs on the loop. Loop-only.
func (h *Hub) ScheduleDraw(sessionID string, gen uint64, delay time.Duration) {
	h.CancelDraw(sessionID)

	var timer *time.Timer
	timer = time.AfterFunc(delay, func() {
		task := func() {
			if h.timers[sessionID] == timer {
				delete(h.timers, sessionID)
			}
			if h.handler != nil {
				h.handler.HandleTimer(sessionID, gen)
			}
		}
		select {
		case h.tasks <- task:
		case <-h.done:
		}
	})
	h.timers[sessionID] = timer
}

// CancelDraw stops the pending draw timer for sessionID. Loop-only.
func (h *Hub) CancelDraw(sessionID string) {
	if t, ok := h.timers[sessionID]; ok {
		t.Stop()
		delete(h.timers, sessionID)
	}
}

// ServeWS upgrades the request and attaches the connection to the hub
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	client := &Client{
		id:   uuid.NewString(),
		hub:  h,
		conn: conn,
		send: make(chan []byte, sendBuffer),
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

// Join adds a connection to a room. Loop-only, like every Broadcaster method.
func (h *Hub) Join(connID, room string) {
	c, ok := h.clients[connID]
	if !ok {
		return
	}
	if h.rooms[room] == nil {
		h.rooms[room] = make(map[string]*Client)
	}
	h.rooms[room][connID] = c
}

// Leave removes a connection from a room
func (h *Hub) Leave(connID, room string) {
	members, ok := h.rooms[room]
	if !ok {
		return
	}
	delete(members, connID)
	if len(members) == 0 {
		delete(h.rooms, room)
	}
}

// SendTo delivers an event to a single connection
func (h *Hub) SendTo(connID string, ev service.Event) {
	c, ok := h.clients[connID]
	if !ok {
		return
	}
	data, err := encode(ev)
	if err != nil {
		h.logger.Error().Err(err).Str("event", ev.EventName()).Msg("failed to encode event")
		return
	}
	h.deliver(c, data)
}

// SendRoom delivers an event to every connection in a room
func (h *Hub) SendRoom(room string, ev service.Event) {
	members := h.rooms[room]
	if len(members) == 0 {
		return
	}
	data, err := encode(ev)
	if err != nil {
		h.logger.Error().Err(err).Str("event", ev.EventName()).Msg("failed to encode event")
		return
	}
	for _, c := range members {
		h.deliver(c, data)
	}
}

// deliver queues data for c. A client whose buffer is full is closed; its
// read pump then unregisters it through the loop.
func (h *Hub) deliver(c *Client, data []byte) {
	if c.closing {
		return
	}
	select {
	case c.send <- data:
	default:
		h.logger.Warn().Str("conn_id", c.id).Msg("client send buffer full, closing")
		c.closing = true
		if c.conn != nil {
			c.conn.Close()
		}
	}
}

func encode(ev service.Event) ([]byte, error) {
	payload, err := json.Marshal(ev)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Type: ev.EventName(), Payload: payload})
}

func (h *Hub) registerClient(c *Client) {
	h.clients[c.id] = c
	if h.observer != nil {
		h.observer.ConnectionOpened()
	}
	h.logger.Debug().Str("conn_id", c.id).Int("clients", len(h.clients)).Msg("client registered")
}

func (h *Hub) unregisterClient(c *Client) {
	if _, ok := h.clients[c.id]; !ok {
		return
	}
	delete(h.clients, c.id)
	for room, members := range h.rooms {
		delete(members, c.id)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
	close(c.send)
	if h.observer != nil {
		h.observer.ConnectionClosed()
	}
	h.logger.Debug().Str("conn_id", c.id).Int("clients", len(h.clients)).Msg("client unregistered")

	if h.handler != nil {
		h.handler.HandleDisconnect(c.id)
	}
}

func (h *Hub) dispatch(msg inbound) {
	if _, ok := h.clients[msg.client.id]; !ok {
		return
	}
	var env Envelope
	if err := json.Unmarshal(msg.data, &env); err != nil || env.Type == "" {
		h.SendTo(msg.client.id, service.Error{Message: "malformed message"})
		return
	}
	if h.handler != nil {
		h.handler.HandleMessage(msg.client.id, env.Type, env.Payload)
	}
}

// shutdown closes every connection once the loop exits
func (h *Hub) shutdown() {
	close(h.done)
	for id, c := range h.clients {
		delete(h.clients, id)
		close(c.send)
		if h.observer != nil {
			h.observer.ConnectionClosed()
		}
	}
	h.rooms = make(map[string]map[string]*Client)
	for id, t := range h.timers {
		t.Stop()
		delete(h.timers, id)
	}
	h.logger.Info().Msg("hub stopped")
}

// readPump pumps messages from the WebSocket connection to the hub
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.Debug().Err(err).Str("conn_id", c.id).Msg("websocket read error")
			}
			return
		}
		select {
		case c.hub.incoming <- inbound{client: c, data: data}:
		case <-c.hub.done:
			return
		}
	}
}

// writePump pumps messages from the hub to the WebSocket connection.
// Each event goes out as its own text frame.
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
				// The hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
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
