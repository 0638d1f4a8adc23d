package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/wricardo/hazardrun/api"
	"github.com/wricardo/hazardrun/game/engine"
)

// Client is a thin MCP client that proxies to the REST API
type Client struct {
	baseURL    string
	version    string
	httpClient *http.Client
	mcpServer  *server.MCPServer
}

// NewClient creates a new MCP client that calls the REST API
func NewClient(baseURL, version string) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		version: version,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}

	c.initMCPServer()
	return c
}

// initMCPServer initializes the MCP server with all tools
func (c *Client) initMCPServer() {
	c.mcpServer = server.NewMCPServer(
		"Hazard Run",
		c.version,
		server.WithToolCapabilities(true),
		server.WithInstructions(`Hazard Run - MCP Interface

This is a read-only operator view that proxies to the REST API server.
Game play itself happens over the websocket at /ws.

AVAILABLE TOOLS:
- list_sessions: List live sessions, optionally filtered by phase
- get_session: Full state and roster of one session
- server_health: Liveness and live session count
- game_rules: Rules of play and deck sizes per roster`),
	)

	c.registerTools()
}

// registerTools registers all MCP tools
func (c *Client) registerTools() {
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_sessions",
		Description: "List live game sessions",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"phase": map[string]interface{}{
					"type":        "string",
					"enum":        []string{"lobby", "round_active", "round_boundary", "game_over"},
					"description": "Only list sessions in this phase (optional)",
				},
				"limit": map[string]interface{}{
					"type":        "number",
					"description": "Maximum number of sessions to return (optional)",
				},
			},
		},
	}, c.handleListSessions)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "get_session",
		Description: "Get the state and roster of a specific session",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": map[string]interface{}{
					"type":        "string",
					"description": "Session ID to retrieve",
				},
			},
			Required: []string{"session_id"},
		},
	}, c.handleGetSession)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "server_health",
		Description: "Check server liveness",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleServerHealth)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "game_rules",
		Description: "Get the rules of play and deck composition per roster size",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleGameRules)
}

// GetMCPServer returns the underlying MCP server
func (c *Client) GetMCPServer() *server.MCPServer {
	return c.mcpServer
}

// HTTPHandler serves MCP JSON-RPC messages over POST
func (c *Client) HTTPHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "Failed to read request", http.StatusBadRequest)
			return
		}
		defer r.Body.Close()

		response := c.mcpServer.HandleMessage(r.Context(), body)

		w.Header().Set("Content-Type", "application/json")
		responseData, err := json.Marshal(response)
		if err != nil {
			http.Error(w, "Failed to marshal response", http.StatusInternalServerError)
			return
		}
		w.Write(responseData)
	})
}

// Helper methods for API calls

func (c *Client) apiGet(ctx context.Context, path string, result interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errResp map[string]string
		json.NewDecoder(resp.Body).Decode(&errResp)
		if msg, ok := errResp["error"]; ok {
			return fmt.Errorf("%s", msg)
		}
		return fmt.Errorf("API error: %d", resp.StatusCode)
	}

	if result != nil {
		return json.NewDecoder(resp.Body).Decode(result)
	}
	return nil
}

func arguments(request mcp.CallToolRequest) map[string]interface{} {
	args, _ := request.Params.Arguments.(map[string]interface{})
	if args == nil {
		return map[string]interface{}{}
	}
	return args
}

// Tool handlers

func (c *Client) handleListSessions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	params := url.Values{}
	if phase, _ := args["phase"].(string); phase != "" {
		params.Set("phase", phase)
	}
	if limit, ok := args["limit"].(float64); ok && limit > 0 {
		params.Set("limit", fmt.Sprintf("%d", int(limit)))
	}
	path := "/api/sessions"
	if len(params) > 0 {
		path += "?" + params.Encode()
	}

	var response struct {
		Count    int                  `json:"count"`
		Total    int                  `json:"total"`
		Sessions []api.SessionSummary `json:"sessions"`
	}
	if err := c.apiGet(ctx, path, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Live Sessions (%d of %d):\n\n", response.Count, response.Total)
	for _, s := range response.Sessions {
		fmt.Fprintf(&b, "- %s: %s, round %d, %d players, host %s (active %s)\n",
			s.ID, s.Phase, s.Round, s.Players, orDash(s.Host), s.LastActivityAt.Format("15:04:05"))
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (c *Client) handleGetSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, _ := arguments(request)["session_id"].(string)
	if strings.TrimSpace(sessionID) == "" {
		return mcp.NewToolResultError("session_id is required"), nil
	}

	var detail api.SessionDetail
	if err := c.apiGet(ctx, "/api/sessions/"+url.PathEscape(sessionID), &detail); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatSessionDetail(&detail)), nil
}

func (c *Client) handleServerHealth(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var health api.Health
	if err := c.apiGet(ctx, "/api/health", &health); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	result := fmt.Sprintf("Status: %s\nVersion: %s\nLive sessions: %d\nUptime: %s\n",
		health.Status, orDash(health.Version), health.Sessions, health.Uptime)
	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleGameRules(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var rules api.Rules
	if err := c.apiGet(ctx, "/api/rules", &rules); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatRules(&rules)), nil
}

func formatSessionDetail(d *api.SessionDetail) string {
	st := d.State
	var b strings.Builder
	fmt.Fprintf(&b, "Session %s\n", st.ID)
	fmt.Fprintf(&b, "Phase: %s (round %d of %d)\n", st.Phase, st.Round, engine.TotalRounds)
	fmt.Fprintf(&b, "Deck: %d cards, discard: %d\n", st.DeckCount, st.DiscardCount)

	switch {
	case st.GameOver:
		b.WriteString("Game over\n")
	case st.WaitingForNextRound:
		b.WriteString("Waiting for the host to start the next round\n")
	case st.WaitingForNextCard:
		b.WriteString("Waiting for the next hazard\n")
	case st.CurrentHazard != nil:
		fmt.Fprintf(&b, "Exposed hazard: %s\n", st.CurrentHazard)
	}

	b.WriteString("\nPlayers:\n")
	for _, p := range d.Roster {
		host := ""
		if p.IsHost {
			host = " [host]"
		}
		fmt.Fprintf(&b, "- %s%s: %d points, %d cards in hand", p.Name, host, p.Score, p.HandSize)
		if rounds, ok := st.RoundScores[p.Name]; ok {
			fmt.Fprintf(&b, " (rounds %d/%d/%d)", rounds[0], rounds[1], rounds[2])
		}
		b.WriteString("\n")
	}
	return b.String()
}

func formatRules(r *api.Rules) string {
	var b strings.Builder
	b.WriteString(`Hazard Run - Rules

OBJECTIVE:
Score the most points over three rounds by answering hazards with tool cards.

EACH ROUND:
• Every player starts with a fresh hand of tools
• The hazard deck is rebuilt and shuffled for the current roster
• Any player may draw the next hazard once the table is clear
• The first valid play against the exposed hazard resolves it

PLAYING A TOOL:
• Choose a side: A (high) or B (low)
• The side must match a scoring hazard's color or the play is ignored
• Round 1: the tool must be at least the hazard's value
• Round 2: the tool must be at most the hazard's value
• Round 3: side A needs at least, side B needs at most
• A successful play scores the hazard's value
• Decoys are traps: the tool is lost and nobody scores

A ROUND ENDS when every hand is empty or the deck runs out.
After round 3 the game is over.
`)
	fmt.Fprintf(&b, "\nROSTER: %d-%d players, names up to %d characters\n", r.MinPlayers, r.MaxPlayers, r.MaxNameLength)
	fmt.Fprintf(&b, "TOOLS: %v\n", r.ToolValues)
	b.WriteString("\nDECKS:\n")
	for _, d := range r.Decks {
		fmt.Fprintf(&b, "• %d players: %d cards (%d scoring, %d decoys)\n", d.Players, d.Size, d.Scoring, d.Decoys)
	}
	return b.String()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
