package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/wricardo/hazardrun/game/cards"
	"github.com/wricardo/hazardrun/game/engine"
	"github.com/wricardo/hazardrun/game/service"
)

const readTimeout = 30 * time.Second

var ErrReplaced = errors.New("session was replaced")

type envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Bot is one automated player on its own websocket connection
type Bot struct {
	Name string

	conn   *websocket.Conn
	think  time.Duration
	racy   bool
	logger zerolog.Logger

	sessionID string
	isHost    bool
	hand      []cards.ToolCard
	state     engine.StateView
	players   int

	startedRound int
	drewAt       string
	playedAt     string
	Wins         int
	Plays        int
}

// Dial connects a bot to the game websocket
func Dial(ctx context.Context, url, name string, think time.Duration, logger zerolog.Logger) (*Bot, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	return &Bot{
		Name:   name,
		conn:   conn,
		think:  think,
		logger: logger.With().Str("bot", name).Logger(),
	}, nil
}

// Close closes the connection
func (b *Bot) Close() error {
	return b.conn.Close()
}

func (b *Bot) send(event string, payload interface{}) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	b.conn.SetWriteDeadline(time.Now().Add(readTimeout))
	return b.conn.WriteJSON(envelope{Type: event, Payload: raw})
}

func (b *Bot) read() (envelope, error) {
	var env envelope
	b.conn.SetReadDeadline(time.Now().Add(readTimeout))
	err := b.conn.ReadJSON(&env)
	return env, err
}

// Create opens a new session and returns its id
func (b *Bot) Create(requestedID string) (string, error) {
	if err := b.send(service.EventCreateSession, service.CreateSessionRequest{
		PlayerName:  b.Name,
		RequestedID: requestedID,
	}); err != nil {
		return "", err
	}
	for {
		env, err := b.read()
		if err != nil {
			return "", err
		}
		if err := b.apply(env); err != nil {
			return "", err
		}
		if env.Type == service.EventSessionCreated {
			return b.sessionID, nil
		}
	}
}

// Join takes a seat in an existing session
func (b *Bot) Join(id string) error {
	b.sessionID = id
	return b.send(service.EventJoinSession, service.JoinSessionRequest{ID: id, PlayerName: b.Name})
}

// Play runs the bot until the game is over. The host starts once players
// are seated.
func (b *Bot) Play(ctx context.Context, players int) (engine.StateView, error) {
	for {
		if err := ctx.Err(); err != nil {
			return b.state, err
		}
		env, err := b.read()
		if err != nil {
			return b.state, err
		}
		if err := b.apply(env); err != nil {
			return b.state, err
		}
		if b.state.GameOver {
			return b.state, nil
		}
		if err := b.act(players); err != nil {
			return b.state, err
		}
	}
}

// apply folds one server event into the bot's view
func (b *Bot) apply(env envelope) error {
	switch env.Type {
	case service.EventSessionCreated:
		var ev service.SessionCreated
		if err := json.Unmarshal(env.Payload, &ev); err != nil {
			return err
		}
		b.sessionID = ev.ID
	case service.EventHostStatus:
		var ev service.HostStatus
		if err := json.Unmarshal(env.Payload, &ev); err != nil {
			return err
		}
		b.isHost = ev.IsHost
	case service.EventPlayerSnapshot:
		var ev service.PlayerSnapshot
		if err := json.Unmarshal(env.Payload, &ev); err != nil {
			return err
		}
		b.hand = ev.Hand
	case service.EventRoster:
		var ev service.Roster
		if err := json.Unmarshal(env.Payload, &ev); err != nil {
			return err
		}
		b.players = len(ev.Players)
	case service.EventSessionState:
		var ev service.SessionState
		if err := json.Unmarshal(env.Payload, &ev); err != nil {
			return err
		}
		b.state = ev.StateView
	case service.EventError:
		var ev service.Error
		if err := json.Unmarshal(env.Payload, &ev); err != nil {
			return err
		}
		if ev.Message == ErrReplaced.Error() {
			return ErrReplaced
		}
		b.logger.Debug().Str("message", ev.Message).Msg("server error")
	}
	return nil
}

// act sends at most one request based on the current view
func (b *Bot) act(players int) error {
	st := b.state
	key := fmt.Sprintf("%d/%d/%d", st.Round, st.DeckCount, st.DiscardCount)

	switch {
	case b.isHost && st.Phase == engine.PhaseLobby && b.players >= players && b.startedRound == 0:
		b.startedRound = 1
		return b.send(service.EventStartSession, service.StartSessionRequest{ID: b.sessionID})

	case b.isHost && st.WaitingForNextRound && b.startedRound == st.Round:
		b.startedRound = st.Round + 1
		return b.send(service.EventStartSession, service.StartSessionRequest{ID: b.sessionID})

	case st.WaitingForNextCard && (b.isHost || b.racy) && b.drewAt != key:
		b.drewAt = key
		return b.send(service.EventDrawNextHazard, service.DrawNextHazardRequest{ID: b.sessionID})

	case st.CurrentHazard != nil && b.playedAt != key:
		move, ok := Choose(st.Round, b.hand, *st.CurrentHazard)
		if !ok {
			return nil
		}
		b.playedAt = key
		if b.think > 0 {
			time.Sleep(b.think)
		}
		b.Plays++
		if move.Wins {
			b.Wins++
		}
		b.logger.Debug().
			Str("hazard", st.CurrentHazard.String()).
			Int("tool", b.hand[move.Index].Value).
			Bool("wins", move.Wins).
			Msg("playing")
		return b.send(service.EventPlayCard, service.PlayCardRequest{
			ID:         b.sessionID,
			PlayerName: b.Name,
			CardIndex:  move.Index,
			Side:       string(move.Side),
		})
	}
	return nil
}
