package service

import (
	"time"
)

// Broadcaster delivers outbound events. Implementations are called from the
// event loop only and must not block.
type Broadcaster interface {
	Join(connID, room string)
	Leave(connID, room string)
	SendTo(connID string, ev Event)
	SendRoom(room string, ev Event)
}

// Scheduler arranges for Router.HandleTimer(sessionID, gen) to run on the
// event loop after delay. Scheduling a session again replaces its pending
// timer; CancelDraw drops it.
type Scheduler interface {
	ScheduleDraw(sessionID string, gen uint64, delay time.Duration)
	CancelDraw(sessionID string)
}

// Request outcome labels passed to Recorder
const (
	ResultOK       = "ok"
	ResultRejected = "rejected"
	ResultIgnored  = "ignored"
)

// Recorder receives operational measurements
type Recorder interface {
	EventHandled(event, result string)
	SessionsActive(n int)
	GameStarted()
	GameCompleted()
}

// Lifecycle event types
const (
	LifecycleSessionCreated = "session.created"
	LifecycleGameStarted    = "game.started"
	LifecycleRoundStarted   = "round.started"
	LifecycleRoundEnded     = "round.ended"
	LifecycleGameOver       = "game.over"
	LifecycleSessionRemoved = "session.removed"
)

// Lifecycle describes a session milestone for external consumers
type Lifecycle struct {
	Type      string         `json:"type"`
	SessionID string         `json:"session_id"`
	Round     int            `json:"round"`
	Players   int            `json:"players"`
	Scores    map[string]int `json:"scores,omitempty"`
	At        time.Time      `json:"at"`
}

// Notifier publishes lifecycle events. Implementations must not block the
// event loop.
type Notifier interface {
	Publish(ev Lifecycle)
}

type nopRecorder struct{}

func (nopRecorder) EventHandled(string, string) {}
func (nopRecorder) SessionsActive(int)          {}
func (nopRecorder) GameStarted()                {}
func (nopRecorder) GameCompleted()              {}

type nopNotifier struct{}

func (nopNotifier) Publish(Lifecycle) {}
