package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"

	"github.com/wricardo/hazardrun/game/engine"
	"github.com/wricardo/hazardrun/game/session"
)

// inlineHub runs queries on the caller's goroutine
type inlineHub struct {
	stopped bool
	served  int
}

func (h *inlineHub) ServeWS(w http.ResponseWriter, r *http.Request) {
	h.served++
	w.WriteHeader(http.StatusOK)
}

func (h *inlineHub) Query(ctx context.Context, fn func()) error {
	if h.stopped {
		return errors.New("hub stopped")
	}
	fn()
	return nil
}

func newTestServer(t *testing.T, opts ...Option) (*Server, *session.Manager, *inlineHub) {
	t.Helper()
	manager := session.NewManager()
	hub := &inlineHub{}
	opts = append([]Option{WithLogger(zerolog.Nop()), WithVersion("test")}, opts...)
	return NewServer(manager, hub, opts...), manager, hub
}

func createSession(t *testing.T, m *session.Manager, id string, players ...string) *engine.Session {
	t.Helper()
	res, err := m.Create(session.CreateRequest{RequestedID: id, PlayerName: players[0], ConnectionID: players[0] + "-conn"})
	if err != nil {
		t.Fatalf("create %s: %v", id, err)
	}
	for _, name := range players[1:] {
		if _, _, err := res.Session.AddPlayer(name, name+"-conn", false); err != nil {
			t.Fatalf("add %s: %v", name, err)
		}
	}
	return res.Session
}

func get(t *testing.T, s *Server, path string, out interface{}) int {
	t.Helper()
	req := httptest.NewRequest("GET", path, nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	if out != nil && rec.Code < 300 {
		if err := json.NewDecoder(rec.Body).Decode(out); err != nil {
			t.Fatalf("decode %s: %v", path, err)
		}
	}
	return rec.Code
}

func TestHandleHealth(t *testing.T) {
	s, m, _ := newTestServer(t)
	createSession(t, m, "ROOM", "alice")

	var health Health
	if code := get(t, s, "/api/health", &health); code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if health.Status != "ok" || health.Sessions != 1 || health.Version != "test" {
		t.Errorf("unexpected health %+v", health)
	}
}

func TestHandleRules(t *testing.T) {
	s, _, _ := newTestServer(t)

	var rules Rules
	if code := get(t, s, "/api/rules", &rules); code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if rules.MinPlayers != 2 || rules.MaxPlayers != 8 || rules.Rounds != 3 {
		t.Errorf("unexpected rules %+v", rules)
	}
	if len(rules.ToolValues) != 7 || rules.ToolValues[0] != 2 || rules.ToolValues[6] != 8 {
		t.Errorf("tool values = %v", rules.ToolValues)
	}
	if len(rules.Decks) != 7 || rules.Decks[0].Size != 18 || rules.Decks[6].Size != 50 {
		t.Errorf("decks = %+v", rules.Decks)
	}
}

func TestHandleListSessions(t *testing.T) {
	s, m, _ := newTestServer(t)
	createSession(t, m, "AAAA", "alice", "bob")
	started := createSession(t, m, "BBBB", "carol", "dave")
	if err := started.Start("carol-conn"); err != nil {
		t.Fatal(err)
	}

	var resp struct {
		Count    int              `json:"count"`
		Total    int              `json:"total"`
		Sessions []SessionSummary `json:"sessions"`
	}
	if code := get(t, s, "/api/sessions?sort=created&order=asc", &resp); code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if resp.Count != 2 || resp.Total != 2 {
		t.Fatalf("count=%d total=%d", resp.Count, resp.Total)
	}
	if resp.Sessions[0].ID != "AAAA" || resp.Sessions[0].Host != "alice" || resp.Sessions[0].Players != 2 {
		t.Errorf("first summary = %+v", resp.Sessions[0])
	}

	resp.Sessions = nil
	get(t, s, "/api/sessions?phase=round_active", &resp)
	if len(resp.Sessions) != 1 || resp.Sessions[0].ID != "BBBB" {
		t.Errorf("phase filter returned %+v", resp.Sessions)
	}

	resp.Sessions = nil
	get(t, s, "/api/sessions?limit=1", &resp)
	if resp.Count != 1 || resp.Total != 2 {
		t.Errorf("limit: count=%d total=%d", resp.Count, resp.Total)
	}
}

func TestHandleListSessions_Empty(t *testing.T) {
	s, _, _ := newTestServer(t)
	req := httptest.NewRequest("GET", "/api/sessions", nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	var resp map[string]interface{}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if sessions, ok := resp["sessions"].([]interface{}); !ok || len(sessions) != 0 {
		t.Errorf("sessions = %#v, want empty array", resp["sessions"])
	}
}

func TestHandleGetSession(t *testing.T) {
	s, m, _ := newTestServer(t)
	createSession(t, m, "ROOM", "alice", "bob")

	var detail SessionDetail
	if code := get(t, s, "/api/sessions/room", &detail); code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if detail.State.ID != "ROOM" || detail.State.Phase != engine.PhaseLobby {
		t.Errorf("state = %+v", detail.State)
	}
	if len(detail.Roster) != 2 || !detail.Roster[0].IsHost {
		t.Errorf("roster = %+v", detail.Roster)
	}

	if code := get(t, s, "/api/sessions/NOPE", nil); code != http.StatusNotFound {
		t.Errorf("missing session status = %d", code)
	}
}

func TestHubStopped(t *testing.T) {
	s, _, hub := newTestServer(t)
	hub.stopped = true
	if code := get(t, s, "/api/sessions", nil); code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", code)
	}
}

func TestOptionalEndpoints(t *testing.T) {
	s, _, hub := newTestServer(t)
	if code := get(t, s, "/metrics", nil); code != http.StatusNotFound {
		t.Errorf("metrics without recorder: %d", code)
	}
	get(t, s, "/ws", nil)
	if hub.served != 1 {
		t.Errorf("ws not routed to hub")
	}

	metrics := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("hazardrun_connections 0\n"))
	})
	mcp := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	})
	s, _, _ = newTestServer(t, WithMetrics(metrics), WithMCP(mcp))

	if code := get(t, s, "/metrics", nil); code != http.StatusOK {
		t.Errorf("metrics status = %d", code)
	}
	req := httptest.NewRequest("POST", "/mcp", nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	if rec.Code != http.StatusAccepted {
		t.Errorf("mcp status = %d", rec.Code)
	}
}
