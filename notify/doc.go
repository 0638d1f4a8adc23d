// Package notify publishes session lifecycle events to NATS.
//
// Each event is JSON encoded and published to "<subject>.<type>", for
// example hazardrun.events.game.over. Publishing never blocks the game: a
// failed publish is logged and dropped, and the connection reconnects in
// the background.
//
// Usage:
//
//	pub, err := notify.Connect("nats://localhost:4222", "hazardrun.events", logger)
//	if err != nil {
//		return err
//	}
//	defer pub.Close()
//	router := service.NewRouter(sessions, hub, service.WithNotifier(pub))
package notify
