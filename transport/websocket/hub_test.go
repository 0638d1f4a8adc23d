package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/wricardo/hazardrun/game/service"
	"github.com/wricardo/hazardrun/game/session"
)

// recordingHandler captures handler calls made from the loop
type recordingHandler struct {
	mu          sync.Mutex
	messages    []string
	disconnects chan string
	timers      chan timerCall
}

type timerCall struct {
	sessionID string
	gen       uint64
}

func newRecordingHandler() *recordingHandler {
	return &recordingHandler{
		disconnects: make(chan string, 8),
		timers:      make(chan timerCall, 8),
	}
}

func (r *recordingHandler) HandleMessage(connID, event string, _ json.RawMessage) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, event)
}

func (r *recordingHandler) HandleDisconnect(connID string) { r.disconnects <- connID }
func (r *recordingHandler) HandleTimer(sessionID string, gen uint64) {
	r.timers <- timerCall{sessionID, gen}
}

type countingObserver struct {
	mu     sync.Mutex
	open   int
	closed int
}

func (c *countingObserver) ConnectionOpened() { c.mu.Lock(); c.open++; c.mu.Unlock() }
func (c *countingObserver) ConnectionClosed() { c.mu.Lock(); c.closed++; c.mu.Unlock() }

func startHub(t *testing.T, handler Handler, opts ...Option) (*Hub, *httptest.Server) {
	t.Helper()
	hub := NewHub(append([]Option{WithLogger(zerolog.Nop())}, opts...)...)
	hub.SetHandler(handler)

	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	srv := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	t.Cleanup(func() {
		srv.Close()
		cancel()
		<-hub.Done()
	})
	return hub, srv
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, event string, payload interface{}) {
	t.Helper()
	raw, err := json.Marshal(payload)
	if err != nil {
		t.Fatal(err)
	}
	if err := conn.WriteJSON(Envelope{Type: event, Payload: raw}); err != nil {
		t.Fatalf("write failed: %v", err)
	}
}

// readUntil reads envelopes until one of the wanted type arrives
func readUntil(t *testing.T, conn *websocket.Conn, want string) Envelope {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		var env Envelope
		if err := conn.ReadJSON(&env); err != nil {
			t.Fatalf("waiting for %s: %v", want, err)
		}
		if env.Type == want {
			return env
		}
	}
}

func TestHub_SessionOverWebsocket(t *testing.T) {
	manager := session.NewManager()
	hub := NewHub(WithLogger(zerolog.Nop()))
	hub.SetHandler(service.NewRouter(manager, hub, service.WithLogger(zerolog.Nop())))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	srv := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	defer srv.Close()

	alice := dial(t, srv)
	send(t, alice, service.EventCreateSession, map[string]string{"playerName": "alice"})

	env := readUntil(t, alice, service.EventSessionCreated)
	var created service.SessionCreated
	if err := json.Unmarshal(env.Payload, &created); err != nil {
		t.Fatal(err)
	}
	if len(created.ID) != session.DefaultIDLength {
		t.Fatalf("unexpected session id %q", created.ID)
	}

	bob := dial(t, srv)
	send(t, bob, service.EventJoinSession, map[string]string{"id": strings.ToLower(created.ID), "playerName": "bob"})
	readUntil(t, bob, service.EventPlayerSnapshot)

	// alice sees the roster grow
	for {
		env = readUntil(t, alice, service.EventRoster)
		var roster service.Roster
		if err := json.Unmarshal(env.Payload, &roster); err != nil {
			t.Fatal(err)
		}
		if len(roster.Players) == 2 {
			if roster.Players[1].Name != "bob" {
				t.Errorf("second player = %q", roster.Players[1].Name)
			}
			break
		}
	}

	send(t, alice, service.EventStartSession, map[string]string{"id": created.ID})
	env = readUntil(t, bob, service.EventSessionState)
	var state service.SessionState
	if err := json.Unmarshal(env.Payload, &state); err != nil {
		t.Fatal(err)
	}
	for !state.Started {
		env = readUntil(t, bob, service.EventSessionState)
		if err := json.Unmarshal(env.Payload, &state); err != nil {
			t.Fatal(err)
		}
	}
	if !state.WaitingForNextCard || state.DeckCount != 18 {
		t.Errorf("unexpected state after start: %+v", state.StateView)
	}

	// bob leaving is noticed by alice
	bob.Close()
	for {
		env = readUntil(t, alice, service.EventRoster)
		var roster service.Roster
		if err := json.Unmarshal(env.Payload, &roster); err != nil {
			t.Fatal(err)
		}
		if len(roster.Players) == 1 {
			break
		}
	}
}

func TestHub_MalformedEnvelope(t *testing.T) {
	handler := newRecordingHandler()
	_, srv := startHub(t, handler)
	conn := dial(t, srv)

	if err := conn.WriteMessage(websocket.TextMessage, []byte("not json")); err != nil {
		t.Fatal(err)
	}
	env := readUntil(t, conn, service.EventError)

	var msg service.Error
	if err := json.Unmarshal(env.Payload, &msg); err != nil {
		t.Fatal(err)
	}
	if msg.Message != "malformed message" {
		t.Errorf("message = %q", msg.Message)
	}

	handler.mu.Lock()
	defer handler.mu.Unlock()
	if len(handler.messages) != 0 {
		t.Errorf("handler received %v", handler.messages)
	}
}

func TestHub_DisconnectNotifiesHandler(t *testing.T) {
	handler := newRecordingHandler()
	observer := &countingObserver{}
	hub, srv := startHub(t, handler, WithObserver(observer))
	conn := dial(t, srv)

	var connID string
	deadline := time.Now().Add(2 * time.Second)
	for connID == "" && time.Now().Before(deadline) {
		if err := hub.Query(context.Background(), func() {
			for id := range hub.clients {
				connID = id
			}
		}); err != nil {
			t.Fatal(err)
		}
	}
	if connID == "" {
		t.Fatal("client never registered")
	}

	conn.Close()
	select {
	case got := <-handler.disconnects:
		if got != connID {
			t.Errorf("disconnect for %q, want %q", got, connID)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("handler was not told about the disconnect")
	}

	observer.mu.Lock()
	defer observer.mu.Unlock()
	if observer.open != 1 || observer.closed != 1 {
		t.Errorf("observer open=%d closed=%d", observer.open, observer.closed)
	}
}

func TestHub_RoomsAndDelivery(t *testing.T) {
	hub := NewHub(WithLogger(zerolog.Nop()))
	a := &Client{id: "a", hub: hub, send: make(chan []byte, 2)}
	b := &Client{id: "b", hub: hub, send: make(chan []byte, 2)}
	hub.registerClient(a)
	hub.registerClient(b)

	hub.Join("a", "ROOM")
	hub.Join("b", "ROOM")
	hub.Join("ghost", "ROOM")
	if len(hub.rooms["ROOM"]) != 2 {
		t.Fatalf("room has %d members, want 2", len(hub.rooms["ROOM"]))
	}

	hub.SendRoom("ROOM", service.HostStatus{IsHost: true})
	hub.SendTo("a", service.Error{Message: "boom"})
	hub.SendTo("ghost", service.Error{Message: "lost"})

	if len(a.send) != 2 || len(b.send) != 1 {
		t.Fatalf("queued a=%d b=%d", len(a.send), len(b.send))
	}

	var env Envelope
	if err := json.Unmarshal(<-b.send, &env); err != nil {
		t.Fatal(err)
	}
	if env.Type != service.EventHostStatus || string(env.Payload) != `{"isHost":true}` {
		t.Errorf("unexpected envelope %s %s", env.Type, env.Payload)
	}

	// a's buffer is full now; further sends mark it closing and drop
	hub.SendTo("a", service.Error{Message: "overflow"})
	if !a.closing {
		t.Error("expected slow client to be closing")
	}

	hub.Leave("b", "ROOM")
	hub.unregisterClient(a)
	if _, ok := hub.rooms["ROOM"]; ok {
		t.Error("empty room should be removed")
	}
}

func TestHub_ScheduleDraw(t *testing.T) {
	handler := newRecordingHandler()
	hub, _ := startHub(t, handler)

	onLoop := func(t *testing.T, fn func()) {
		t.Helper()
		if err := hub.Query(context.Background(), fn); err != nil {
			t.Fatal(err)
		}
	}

	onLoop(t, func() { hub.ScheduleDraw("ROOM", 1, 10*time.Millisecond) })
	select {
	case got := <-handler.timers:
		if got != (timerCall{"ROOM", 1}) {
			t.Errorf("timer %+v", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timer never fired")
	}

	t.Run("rescheduling replaces the pending timer", func(t *testing.T) {
		onLoop(t, func() {
			hub.ScheduleDraw("ROOM", 2, 50*time.Millisecond)
			hub.ScheduleDraw("ROOM", 3, 10*time.Millisecond)
		})
		select {
		case got := <-handler.timers:
			if got.gen != 3 {
				t.Errorf("expected gen 3, got %+v", got)
			}
		case <-time.After(2 * time.Second):
			t.Fatal("timer never fired")
		}
		select {
		case got := <-handler.timers:
			t.Errorf("superseded timer fired: %+v", got)
		case <-time.After(100 * time.Millisecond):
		}
	})

	t.Run("cancel stops the timer", func(t *testing.T) {
		onLoop(t, func() {
			hub.ScheduleDraw("ROOM", 4, 20*time.Millisecond)
			hub.CancelDraw("ROOM")
		})
		select {
		case got := <-handler.timers:
			t.Errorf("cancelled timer fired: %+v", got)
		case <-time.After(100 * time.Millisecond):
		}
		onLoop(t, func() {
			if len(hub.timers) != 0 {
				t.Errorf("expected no pending timers, got %d", len(hub.timers))
			}
		})
	})
}

func TestHub_QueryAfterStop(t *testing.T) {
	hub := NewHub(WithLogger(zerolog.Nop()))
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	ran := false
	if err := hub.Query(context.Background(), func() { ran = true }); err != nil {
		t.Fatal(err)
	}
	if !ran {
		t.Error("query did not run")
	}

	cancel()
	<-hub.Done()
	if err := hub.Query(context.Background(), func() {}); !errors.Is(err, ErrHubStopped) {
		t.Errorf("err = %v, want ErrHubStopped", err)
	}
}

