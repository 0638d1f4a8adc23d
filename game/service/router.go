package service

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/wricardo/hazardrun/game/engine"
	"github.com/wricardo/hazardrun/game/session"
)

const replacedMessage = "session was replaced"

// Option configures a Router
type Option func(*Router)

// WithScheduler enables server-owned draws after delay. A zero delay leaves
// draws to the clients.
func WithScheduler(s Scheduler, delay time.Duration) Option {
	return func(r *Router) {
		r.scheduler = s
		r.drawDelay = delay
	}
}

func WithRecorder(rec Recorder) Option {
	return func(r *Router) {
		if rec != nil {
			r.recorder = rec
		}
	}
}

func WithNotifier(n Notifier) Option {
	return func(r *Router) {
		if n != nil {
			r.notifier = n
		}
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(r *Router) {
		r.logger = logger
	}
}

// Router dispatches inbound requests to handlers that mutate sessions
type Router struct {
	sessions  *session.Manager
	out       Broadcaster
	scheduler Scheduler
	drawDelay time.Duration
	recorder  Recorder
	notifier  Notifier
	logger    zerolog.Logger

	// drawGen numbers every armed timer; pending holds the live one per session
	drawGen uint64
	pending map[string]uint64
}

// NewRouter creates a router over a registry and a broadcaster
func NewRouter(sessions *session.Manager, out Broadcaster, opts ...Option) *Router {
	r := &Router{
		sessions: sessions,
		out:      out,
		recorder: nopRecorder{},
		notifier: nopNotifier{},
		logger:   log.Logger.With().Str("component", "router").Logger(),
		pending:  make(map[string]uint64),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// HandleMessage decodes a raw inbound message and dispatches it
func (r *Router) HandleMessage(connID, event string, payload json.RawMessage) {
	req, err := DecodeRequest(event, payload)
	if err != nil {
		r.handleMalformed(connID, event, err)
		return
	}
	r.Dispatch(connID, req)
}

// handleMalformed reports decode failures, except for play and draw requests
// which are dropped silently.
func (r *Router) handleMalformed(connID, event string, err error) {
	switch event {
	case EventPlayCard, EventDrawNextHazard:
		r.ignore(connID, event, "", err.Error())
	default:
		r.reject(connID, event, "", err)
	}
}

// Dispatch runs the handler for a typed request
func (r *Router) Dispatch(connID string, req Request) {
	switch req := req.(type) {
	case CreateSessionRequest:
		r.createSession(connID, req)
	case CheckSessionRequest:
		r.checkSession(connID, req)
	case JoinSessionRequest:
		r.joinSession(connID, req)
	case StartSessionRequest:
		r.startSession(connID, req)
	case PlayCardRequest:
		r.playCard(connID, req)
	case DrawNextHazardRequest:
		r.drawNextHazard(connID, req)
	default:
		r.reject(connID, req.EventName(), "", ErrUnknownEvent)
	}
}

// HandleDisconnect removes the closing connection from every session it
// belongs to.
func (r *Router) HandleDisconnect(connID string) {
	results := r.sessions.Disconnect(connID)
	for _, res := range results {
		sess := res.Session
		r.out.Leave(connID, sess.ID)

		if res.Removed {
			r.cancelDraw(sess.ID)
			r.logger.Info().Str("session_id", sess.ID).Msg("session removed")
			r.notify(LifecycleSessionRemoved, sess)
			continue
		}

		if p := res.Departure.PromotedHost; p != nil {
			r.logger.Info().Str("session_id", sess.ID).Str("player", p.Name).Msg("host promoted")
			r.out.SendTo(p.ConnectionID, HostStatus{IsHost: true})
		}
		if res.Departure.Repaired {
			r.logger.Warn().Str("session_id", sess.ID).Msg("host invariant repaired")
		}
		r.broadcastSession(sess)
		r.afterTransition(sess, res.Departure.Transition)
	}

	if len(results) > 0 {
		r.recorder.SessionsActive(r.sessions.Count())
	}
	r.recorder.EventHandled(EventDisconnect, ResultOK)
}

// HandleTimer performs a server-owned draw. Timers superseded by a later
// schedule, a client draw or the session's removal are ignored.
func (r *Router) HandleTimer(sessionID string, gen uint64) {
	if live, ok := r.pending[sessionID]; !ok || live != gen {
		r.logger.Debug().Str("session_id", sessionID).Uint64("gen", gen).Msg("stale draw timer")
		return
	}
	delete(r.pending, sessionID)

	sess, err := r.sessions.Get(sessionID)
	if err != nil {
		return
	}
	r.draw("", sess)
}

func (r *Router) createSession(connID string, req CreateSessionRequest) {
	res, err := r.sessions.Create(session.CreateRequest{
		RequestedID:  req.RequestedID,
		Force:        req.ForceCreate,
		PlayerName:   req.PlayerName,
		ConnectionID: connID,
	})
	if err != nil {
		r.reject(connID, req.EventName(), session.CanonicalID(req.RequestedID), err)
		return
	}
	if res.Replaced != nil {
		r.evict(res.Replaced)
	}

	sess := res.Session
	r.out.Join(connID, sess.ID)
	r.out.SendTo(connID, SessionCreated{ID: sess.ID})
	r.out.SendTo(connID, HostStatus{IsHost: true})
	r.out.SendTo(connID, PlayerSnapshot{sess.Snapshot(res.Host)})
	r.broadcastSession(sess)

	r.logger.Info().Str("session_id", sess.ID).Str("conn_id", connID).Msg("session created")
	r.recorder.SessionsActive(r.sessions.Count())
	r.notify(LifecycleSessionCreated, sess)
	r.ok(connID, req.EventName(), sess.ID)
}

// evict detaches every connection of a session overwritten by a forced create
func (r *Router) evict(old *engine.Session) {
	r.cancelDraw(old.ID)
	for _, p := range old.Players {
		r.out.SendTo(p.ConnectionID, Error{Message: replacedMessage})
		r.out.Leave(p.ConnectionID, old.ID)
	}
	r.logger.Info().Str("session_id", old.ID).Int("players", len(old.Players)).Msg("session replaced")
}

func (r *Router) checkSession(connID string, req CheckSessionRequest) {
	sess, err := r.sessions.Get(req.ID)
	if err != nil {
		r.out.SendTo(connID, SessionExists{Exists: false})
		r.ok(connID, req.EventName(), session.CanonicalID(req.ID))
		return
	}
	if sess.Started() {
		r.reject(connID, req.EventName(), sess.ID, engine.ErrAlreadyStarted)
		return
	}
	r.out.SendTo(connID, SessionExists{Exists: true, ID: sess.ID})
	r.ok(connID, req.EventName(), sess.ID)
}

func (r *Router) joinSession(connID string, req JoinSessionRequest) {
	sess, err := r.sessions.Get(req.ID)
	if err != nil {
		r.reject(connID, req.EventName(), session.CanonicalID(req.ID), err)
		return
	}

	p, reattached, err := sess.AddPlayer(req.PlayerName, connID, req.IsCreator)
	if err != nil {
		r.reject(connID, req.EventName(), sess.ID, err)
		return
	}

	r.out.Join(connID, sess.ID)
	r.out.SendTo(connID, HostStatus{IsHost: p.IsHost})
	r.out.SendTo(connID, PlayerSnapshot{sess.Snapshot(p)})
	r.broadcastSession(sess)

	r.logger.Debug().
		Str("session_id", sess.ID).
		Str("player", p.Name).
		Bool("reattached", reattached).
		Msg("player joined")
	r.ok(connID, req.EventName(), sess.ID)
}

func (r *Router) startSession(connID string, req StartSessionRequest) {
	sess, err := r.sessions.Get(req.ID)
	if err != nil {
		r.reject(connID, req.EventName(), session.CanonicalID(req.ID), err)
		return
	}

	fromLobby := !sess.Started()
	if err := sess.Start(connID); err != nil {
		r.reject(connID, req.EventName(), sess.ID, err)
		return
	}

	for _, p := range sess.Players {
		r.out.SendTo(p.ConnectionID, PlayerSnapshot{sess.Snapshot(p)})
	}
	r.broadcastSession(sess)

	r.logger.Info().Str("session_id", sess.ID).Int("round", sess.Round).Int("players", len(sess.Players)).Msg("round started")
	if fromLobby {
		r.recorder.GameStarted()
		r.notify(LifecycleGameStarted, sess)
	}
	r.notify(LifecycleRoundStarted, sess)
	r.scheduleDraw(sess)
	r.ok(connID, req.EventName(), sess.ID)
}

func (r *Router) playCard(connID string, req PlayCardRequest) {
	sess, err := r.sessions.Get(req.ID)
	if err != nil {
		r.ignore(connID, req.EventName(), session.CanonicalID(req.ID), "session not found")
		return
	}

	res := sess.Play(connID, req.PlayerName, req.CardIndex, req.Side)
	if !res.Applied {
		r.ignore(connID, req.EventName(), sess.ID, res.Reason)
		return
	}

	r.out.SendTo(connID, PlayerSnapshot{sess.Snapshot(res.Player)})
	r.broadcastSession(sess)

	r.logger.Debug().
		Str("session_id", sess.ID).
		Str("player", res.Player.Name).
		Str("hazard", res.Hazard.String()).
		Int("tool", res.Tool.Value).
		Bool("trap", res.Trap).
		Bool("success", res.Success).
		Int("points", res.Points).
		Msg("card played")

	r.afterTransition(sess, res.Transition)
	r.scheduleDraw(sess)
	r.ok(connID, req.EventName(), sess.ID)
}

func (r *Router) drawNextHazard(connID string, req DrawNextHazardRequest) {
	sess, err := r.sessions.Get(req.ID)
	if err != nil {
		r.ignore(connID, req.EventName(), session.CanonicalID(req.ID), "session not found")
		return
	}
	if !sess.HasConnection(connID) {
		r.ignore(connID, req.EventName(), sess.ID, "connection not seated")
		return
	}
	r.draw(connID, sess)
}

// draw exposes the next hazard. connID is empty for timer draws.
func (r *Router) draw(connID string, sess *engine.Session) {
	res := sess.Draw()
	if !res.Applied {
		r.ignore(connID, EventDrawNextHazard, sess.ID, res.Reason)
		return
	}

	r.cancelDraw(sess.ID)
	r.out.SendRoom(sess.ID, SessionState{sess.State()})
	if res.Card != nil {
		r.logger.Debug().Str("session_id", sess.ID).Str("hazard", res.Card.String()).Int("deck", len(sess.HazardDeck)).Msg("hazard drawn")
	}
	r.afterTransition(sess, res.Transition)
	r.ok(connID, EventDrawNextHazard, sess.ID)
}

func (r *Router) afterTransition(sess *engine.Session, t engine.Transition) {
	if t == engine.RoundEnded || t == engine.GameEnded {
		r.cancelDraw(sess.ID)
	}
	switch t {
	case engine.RoundEnded:
		r.logger.Info().Str("session_id", sess.ID).Int("round", sess.Round).Msg("round ended")
		r.notify(LifecycleRoundEnded, sess)
	case engine.GameEnded:
		r.logger.Info().Str("session_id", sess.ID).Interface("scores", sess.Scores()).Msg("game over")
		r.recorder.GameCompleted()
		r.notify(LifecycleGameOver, sess)
	}
}

// scheduleDraw arms the session's draw timer, superseding any earlier one
func (r *Router) scheduleDraw(sess *engine.Session) {
	if r.scheduler == nil || r.drawDelay <= 0 || !sess.WaitingForNextCard() {
		return
	}
	r.drawGen++
	r.pending[sess.ID] = r.drawGen
	r.scheduler.ScheduleDraw(sess.ID, r.drawGen, r.drawDelay)
}

func (r *Router) cancelDraw(sessionID string) {
	if _, ok := r.pending[sessionID]; !ok {
		return
	}
	delete(r.pending, sessionID)
	r.scheduler.CancelDraw(sessionID)
}

// broadcastSession sends the roster and the full state to the room
func (r *Router) broadcastSession(sess *engine.Session) {
	r.out.SendRoom(sess.ID, Roster{SessionID: sess.ID, Players: sess.Roster()})
	r.out.SendRoom(sess.ID, SessionState{sess.State()})
}

func (r *Router) notify(kind string, sess *engine.Session) {
	r.notifier.Publish(Lifecycle{
		Type:      kind,
		SessionID: sess.ID,
		Round:     sess.Round,
		Players:   len(sess.Players),
		Scores:    sess.Scores(),
		At:        time.Now().UTC(),
	})
}

func (r *Router) ok(connID, event, sessionID string) {
	r.recorder.EventHandled(event, ResultOK)
	r.logger.Debug().Str("event", event).Str("conn_id", connID).Str("session_id", sessionID).Msg("handled")
}

// reject sends a single-shot error to the requester
func (r *Router) reject(connID, event, sessionID string, err error) {
	r.recorder.EventHandled(event, ResultRejected)
	r.logger.Debug().Err(err).Str("event", event).Str("conn_id", connID).Str("session_id", sessionID).Msg("rejected")
	if connID != "" {
		r.out.SendTo(connID, Error{Message: errorMessage(err)})
	}
}

// ignore records a silent no-op
func (r *Router) ignore(connID, event, sessionID, reason string) {
	r.recorder.EventHandled(event, ResultIgnored)
	r.logger.Debug().Str("event", event).Str("conn_id", connID).Str("session_id", sessionID).Str("reason", reason).Msg("ignored")
}

func errorMessage(err error) string {
	switch {
	case errors.Is(err, session.ErrSessionNotFound):
		return "session not found"
	case err == nil:
		return "request failed"
	}
	return err.Error()
}
