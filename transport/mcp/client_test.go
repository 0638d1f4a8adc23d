package mcp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/rs/zerolog"

	"github.com/wricardo/hazardrun/api"
	"github.com/wricardo/hazardrun/game/session"
	"github.com/wricardo/hazardrun/transport/websocket"
)

func callTool(t *testing.T, handler func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error), name string, args map[string]interface{}) (string, bool) {
	t.Helper()
	request := mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	}
	result, err := handler(context.Background(), request)
	if err != nil {
		t.Fatalf("%s failed: %v", name, err)
	}
	if result == nil || len(result.Content) == 0 {
		t.Fatalf("%s returned no content", name)
	}
	text, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("%s: expected text content", name)
	}
	return text.Text, result.IsError
}

// liveServer runs the real API over a running hub
func liveServer(t *testing.T) (*httptest.Server, *session.Manager) {
	t.Helper()
	manager := session.NewManager()
	hub := websocket.NewHub(websocket.WithLogger(zerolog.Nop()))

	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	srv := httptest.NewServer(api.NewServer(manager, hub, api.WithLogger(zerolog.Nop()), api.WithVersion("1.2.3")))
	t.Cleanup(func() {
		srv.Close()
		cancel()
		<-hub.Done()
	})
	return srv, manager
}

func TestNewClient(t *testing.T) {
	client := NewClient("http://localhost:8080/", "1.0.0")

	if client.baseURL != "http://localhost:8080" {
		t.Errorf("Expected trimmed baseURL, got %s", client.baseURL)
	}
	if client.httpClient == nil {
		t.Error("Expected HTTP client to be initialized")
	}
	if client.GetMCPServer() == nil {
		t.Error("Expected MCP server to be initialized")
	}
}

func TestClient_Tools(t *testing.T) {
	srv, manager := liveServer(t)
	res, err := manager.Create(session.CreateRequest{RequestedID: "ROOM", PlayerName: "alice", ConnectionID: "c1"})
	if err != nil {
		t.Fatal(err)
	}
	if _, _, err := res.Session.AddPlayer("bob", "c2", false); err != nil {
		t.Fatal(err)
	}
	client := NewClient(srv.URL, "1.2.3")

	t.Run("list_sessions", func(t *testing.T) {
		text, isErr := callTool(t, client.handleListSessions, "list_sessions", map[string]interface{}{})
		if isErr {
			t.Fatalf("unexpected error: %s", text)
		}
		for _, want := range []string{"Live Sessions (1 of 1)", "ROOM: lobby", "2 players", "host alice"} {
			if !strings.Contains(text, want) {
				t.Errorf("expected %q in %s", want, text)
			}
		}
	})

	t.Run("list_sessions with phase filter", func(t *testing.T) {
		text, _ := callTool(t, client.handleListSessions, "list_sessions", map[string]interface{}{"phase": "game_over"})
		if !strings.Contains(text, "(0 of 0)") {
			t.Errorf("expected empty listing, got %s", text)
		}
	})

	t.Run("get_session", func(t *testing.T) {
		text, isErr := callTool(t, client.handleGetSession, "get_session", map[string]interface{}{"session_id": "room"})
		if isErr {
			t.Fatalf("unexpected error: %s", text)
		}
		for _, want := range []string{"Session ROOM", "Phase: lobby", "- alice [host]: 0 points", "- bob: 0 points"} {
			if !strings.Contains(text, want) {
				t.Errorf("expected %q in %s", want, text)
			}
		}
	})

	t.Run("get_session missing", func(t *testing.T) {
		text, isErr := callTool(t, client.handleGetSession, "get_session", map[string]interface{}{"session_id": "NOPE"})
		if !isErr || !strings.Contains(text, "session not found") {
			t.Errorf("expected not found error, got %q", text)
		}
	})

	t.Run("get_session without id", func(t *testing.T) {
		_, isErr := callTool(t, client.handleGetSession, "get_session", nil)
		if !isErr {
			t.Error("expected error result")
		}
	})

	t.Run("server_health", func(t *testing.T) {
		text, _ := callTool(t, client.handleServerHealth, "server_health", nil)
		if !strings.Contains(text, "Status: ok") || !strings.Contains(text, "Live sessions: 1") || !strings.Contains(text, "1.2.3") {
			t.Errorf("unexpected health text %s", text)
		}
	})

	t.Run("game_rules", func(t *testing.T) {
		text, _ := callTool(t, client.handleGameRules, "game_rules", nil)
		for _, want := range []string{"ROSTER: 2-8 players", "TOOLS: [2 3 4 5 6 7 8]", "2 players: 18 cards", "8 players: 50 cards"} {
			if !strings.Contains(text, want) {
				t.Errorf("expected %q in rules", want)
			}
		}
	})
}

func TestClient_apiGet_HTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := NewClient(server.URL, "1.0.0")
	err := client.apiGet(context.Background(), "/api/health", nil)
	if err == nil || !strings.Contains(err.Error(), "502") {
		t.Errorf("expected status error, got %v", err)
	}
}

func TestClient_apiGet_Unreachable(t *testing.T) {
	client := NewClient("http://127.0.0.1:1", "1.0.0")
	text, isErr := callTool(t, client.handleServerHealth, "server_health", nil)
	if !isErr {
		t.Errorf("expected error result, got %s", text)
	}
}

func TestClient_HTTPHandler(t *testing.T) {
	client := NewClient("http://localhost:8080", "1.0.0")
	handler := client.HTTPHandler()

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/mcp", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET status = %d", rec.Code)
	}

	body := `{"jsonrpc":"2.0","id":1,"method":"tools/list","params":{}}`
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("POST", "/mcp", strings.NewReader(body)))
	if rec.Code != http.StatusOK {
		t.Fatalf("POST status = %d", rec.Code)
	}

	var resp struct {
		Result struct {
			Tools []struct {
				Name string `json:"name"`
			} `json:"tools"`
		} `json:"result"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	names := map[string]bool{}
	for _, tool := range resp.Result.Tools {
		names[tool.Name] = true
	}
	for _, want := range []string{"list_sessions", "get_session", "server_health", "game_rules"} {
		if !names[want] {
			t.Errorf("tool %s not registered", want)
		}
	}
}
