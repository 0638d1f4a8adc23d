// Package service provides the event router for the Hazard Run game.
//
// The service package implements:
//   - A closed set of typed inbound requests and outbound events
//   - Boundary decoding and validation of request payloads
//   - Handlers that resolve a session through the registry and mutate it
//   - Fan-out of the resulting view state to rooms and single connections
//   - Disconnect handling with host migration announcements
//   - Optional server-owned draw scheduling
//
// Core Interfaces:
//
// Broadcaster delivers events to one connection or to every connection in a
// session room. Scheduler re-enters the event loop after a delay to draw the
// next hazard. Recorder receives metrics; Notifier receives lifecycle events.
//
// Concurrency:
//
// Router is not safe for concurrent use. The transport runs every call on a
// single event-loop goroutine, so each request is validated, applied and
// broadcast before the next one is looked at.
//
// Error Taxonomy:
//
// Validation failures (bad name, unknown or duplicate id, full session, wrong
// phase, not host) produce an error event for the requester only. Stale or
// malformed play and draw requests are dropped silently. Neither mutates state.
//
// Usage:
//
//	manager := session.NewManager()
//	hub := websocket.NewHub()
//	router := service.NewRouter(manager, hub, service.WithLogger(logger))
//	hub.SetHandler(router)
//	go hub.Run(ctx)
package service
