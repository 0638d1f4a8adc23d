// Package engine provides the core game logic for the Hazard Run game.
//
// The engine package implements the session state including:
//   - The lifecycle state machine (lobby, round active, round boundary, game over)
//   - Card play resolution with round-specific success rules
//   - Hazard draws and round/game-over transitions
//   - Roster management, reconnect reattachment and host migration
//   - View models sent to clients
//
// Core Types:
//
// Session owns one game's full state. Player is a roster entry keyed by
// display name. Phase is the single lifecycle tag; the legacy flags
// (started, waitingForNextCard, waitingForNextRound, gameOver) are derived
// from it and never stored, so no contradictory combination can exist.
//
// Concurrency:
//
// A Session is not safe for concurrent use. All mutation is expected to happen
// on one goroutine (the transport event loop); every precondition is checked
// against the current state inside the mutating call, so a stale request from
// a lagging client degrades to a no-op.
//
// Usage:
//
//	sess := engine.NewSession("ABCDE", engine.DefaultRules(), rng)
//	host, _, err := sess.AddPlayer("alice", "conn-1", true)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	sess.AddPlayer("bob", "conn-2", false)
//	if err := sess.Start("conn-1"); err != nil {
//		log.Fatal(err)
//	}
//
//	sess.Draw()
//	result := sess.Play("conn-1", "alice", 6, "high")
package engine
