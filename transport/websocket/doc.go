// Package websocket provides the WebSocket transport for the hazard run
// game server.
//
// Architecture:
//
// A central Hub owns every connection and every room (one room per session
// id). Each connection runs a read pump and a write pump; neither touches
// shared state. Inbound frames, connection lifecycle changes, timer
// callbacks and inspection queries are all serialized through Hub.Run, so
// the installed Handler never sees two calls at once.
//
// Message Protocol:
//
// Every frame in both directions is a JSON envelope:
//
//	{"type": "joinSession", "payload": {"id": "K7QPD", "playerName": "ana"}}
//	{"type": "sessionState", "payload": {...}}
//
// Frames that are not a valid envelope are answered with an error event.
// Outbound events are written one per text frame.
//
// Usage:
//
//	hub := websocket.NewHub(websocket.WithLogger(logger))
//	router := service.NewRouter(manager, hub, service.WithScheduler(hub, delay))
//	hub.SetHandler(router)
//	go hub.Run(ctx)
//
//	r.HandleFunc("/ws", hub.ServeWS)
//
// Connection Lifecycle:
//
// 1. Client connects and receives a fresh connection id
// 2. Connection registered with hub
// 3. Client sends requests, receives events for the rooms it joined
// 4. Disconnection removes it from every room and notifies the handler
//
// A client that cannot keep up with its send buffer is closed.
package websocket
