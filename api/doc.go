// Package api provides the HTTP surface of the hazard run game server.
//
// Game play happens over the websocket mounted at /ws. The REST endpoints
// are read-only inspection for operators and tooling:
//
//   - GET /api/health - Liveness, version, live session count
//   - GET /api/rules - Roster limits, rounds, tool values, deck sizes
//   - GET /api/sessions - List sessions (?phase=lobby&sort=created&order=asc&limit=10)
//   - GET /api/sessions/{id} - Full state and public roster of one session
//   - GET /metrics - Prometheus exposition, when configured
//   - POST /mcp - MCP JSON-RPC endpoint, when configured
//
// Session reads run on the hub's event loop through Hub.Query, so a
// response always reflects a state between two game events.
//
// Usage:
//
//	srv := api.NewServer(manager, hub,
//		api.WithMetrics(recorder.Handler()),
//		api.WithMCP(mcpClient.HTTPHandler()),
//	)
//	http.ListenAndServe(addr, srv)
//
// Error Handling:
//
// Errors are returned as JSON with an appropriate HTTP status code:
//
//	{"error": "session not found"}
package api
