// Package session provides the session registry for the Hazard Run game.
//
// The session package implements:
//   - Canonical, case-insensitive session identifiers
//   - Random short id generation with collision retry
//   - Session creation with the creator seated as host
//   - Forced overwrite of a live session
//   - Removal of sessions whose roster becomes empty
//
// Core Types:
//
// Manager is the registry. It is constructed once at process start and
// injected into the event router; tests build independent managers.
//
// Session Identifiers:
//
// Identifiers are trimmed and upper-cased before every insert and lookup, so
// " abcde" and "ABCDE" name the same session. Generated ids use an alphabet
// without look-alike characters (no 0/O, 1/I).
//
// Usage:
//
//	manager := session.NewManager()
//
//	result, err := manager.Create(session.CreateRequest{
//		PlayerName:   "alice",
//		ConnectionID: connID,
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	sess, err := manager.Get(result.Session.ID)
//
// Concurrency:
//
// The registry map is guarded by a lock. The sessions it hands out are not;
// they are mutated only from the transport event loop.
package session
