// Package mcp exposes the hazard run server to Model Context Protocol
// clients.
//
// The Client is a thin proxy over the REST API: every tool is a GET
// against /api and its result is rendered as text for the agent.
//
// MCP Tools:
//   - list_sessions: Live sessions, optional phase filter and limit
//   - get_session: State, scores and public roster of one session
//   - server_health: Liveness, version and live session count
//   - game_rules: Rules of play and deck size per roster
//
// Transport Modes:
//   - Stdio: server.ServeStdio(client.GetMCPServer())
//   - HTTP: client.HTTPHandler() mounted at /mcp
//
// Usage:
//
//	client := mcp.NewClient("http://localhost:8080", version)
//	server.ServeStdio(client.GetMCPServer())
package mcp
