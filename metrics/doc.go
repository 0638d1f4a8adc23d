// Package metrics exports game server measurements to Prometheus.
//
// Recorder implements the router's Recorder and the hub's connection
// observer. It owns its registry, so tests and multiple servers in one
// process never collide on the default one.
//
// Metrics:
//   - hazardrun_events_total{event,result}: handled requests by outcome
//   - hazardrun_active_sessions: live sessions in the registry
//   - hazardrun_games_started_total: games moved out of the lobby
//   - hazardrun_games_completed_total: games that reached game over
//   - hazardrun_connections: open websocket connections
//
// Handler serves the registry in the Prometheus text format, together with
// the Go runtime and process collectors.
package metrics
