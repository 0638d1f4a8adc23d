package service

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/wricardo/hazardrun/game/engine"
)

var (
	ErrUnknownEvent     = errors.New("unknown event")
	ErrMalformedPayload = errors.New("malformed payload")
)

// Inbound event names
const (
	EventCreateSession  = "createSession"
	EventCheckSession   = "checkSession"
	EventJoinSession    = "joinSession"
	EventStartSession   = "startSession"
	EventPlayCard       = "playCard"
	EventDrawNextHazard = "drawNextHazard"
	EventDisconnect     = "disconnect"
)

// Outbound event names
const (
	EventSessionCreated = "sessionCreated"
	EventSessionExists  = "sessionExists"
	EventPlayerSnapshot = "playerSnapshot"
	EventHostStatus     = "hostStatus"
	EventRoster         = "roster"
	EventSessionState   = "sessionState"
	EventError          = "error"
)

// Request is a decoded, validated inbound message
type Request interface {
	EventName() string
	validate() error
}

type CreateSessionRequest struct {
	PlayerName  string `json:"playerName"`
	RequestedID string `json:"requestedId,omitempty"`
	ForceCreate bool   `json:"forceCreate,omitempty"`
}

type CheckSessionRequest struct {
	ID string `json:"id"`
}

type JoinSessionRequest struct {
	ID         string `json:"id"`
	PlayerName string `json:"playerName"`
	IsCreator  bool   `json:"isCreator,omitempty"`
}

type StartSessionRequest struct {
	ID string `json:"id"`
}

type PlayCardRequest struct {
	ID         string `json:"id"`
	PlayerName string `json:"playerName"`
	CardIndex  int    `json:"cardIndex"`
	Side       string `json:"side"`
}

type DrawNextHazardRequest struct {
	ID string `json:"id"`
}

func (CreateSessionRequest) EventName() string  { return EventCreateSession }
func (CheckSessionRequest) EventName() string   { return EventCheckSession }
func (JoinSessionRequest) EventName() string    { return EventJoinSession }
func (StartSessionRequest) EventName() string   { return EventStartSession }
func (PlayCardRequest) EventName() string       { return EventPlayCard }
func (DrawNextHazardRequest) EventName() string { return EventDrawNextHazard }

func requireField(name, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%w: %s is required", ErrMalformedPayload, name)
	}
	return nil
}

func (r CreateSessionRequest) validate() error { return requireField("playerName", r.PlayerName) }
func (r CheckSessionRequest) validate() error  { return requireField("id", r.ID) }
func (r StartSessionRequest) validate() error  { return requireField("id", r.ID) }

func (r DrawNextHazardRequest) validate() error { return requireField("id", r.ID) }

func (r JoinSessionRequest) validate() error {
	if err := requireField("id", r.ID); err != nil {
		return err
	}
	return requireField("playerName", r.PlayerName)
}

func (r PlayCardRequest) validate() error {
	if err := requireField("id", r.ID); err != nil {
		return err
	}
	if err := requireField("playerName", r.PlayerName); err != nil {
		return err
	}
	return requireField("side", r.Side)
}

// DecodeRequest turns an event name and raw payload into a typed request.
// Unknown names fail with ErrUnknownEvent, bad payloads with ErrMalformedPayload.
func DecodeRequest(event string, payload json.RawMessage) (Request, error) {
	var req Request
	switch event {
	case EventCreateSession:
		req = &CreateSessionRequest{}
	case EventCheckSession:
		req = &CheckSessionRequest{}
	case EventJoinSession:
		req = &JoinSessionRequest{}
	case EventStartSession:
		req = &StartSessionRequest{}
	case EventPlayCard:
		req = &PlayCardRequest{}
	case EventDrawNextHazard:
		req = &DrawNextHazardRequest{}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEvent, event)
	}

	if len(payload) == 0 || string(payload) == "null" {
		payload = json.RawMessage("{}")
	}
	if err := json.Unmarshal(payload, req); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if err := req.validate(); err != nil {
		return nil, err
	}

	// Hand out values so handlers never share the decode buffer
	switch r := req.(type) {
	case *CreateSessionRequest:
		return *r, nil
	case *CheckSessionRequest:
		return *r, nil
	case *JoinSessionRequest:
		return *r, nil
	case *StartSessionRequest:
		return *r, nil
	case *PlayCardRequest:
		return *r, nil
	case *DrawNextHazardRequest:
		return *r, nil
	}
	return req, nil
}

// Event is an outbound message
type Event interface {
	EventName() string
}

type SessionCreated struct {
	ID string `json:"id"`
}

type SessionExists struct {
	Exists bool   `json:"exists"`
	ID     string `json:"id,omitempty"`
}

type PlayerSnapshot struct {
	engine.PlayerSnapshot
}

type HostStatus struct {
	IsHost bool `json:"isHost"`
}

type Roster struct {
	SessionID string               `json:"sessionId"`
	Players   []engine.RosterEntry `json:"players"`
}

// SessionState is the authoritative, complete view; clients replace their
// local state with it wholesale.
type SessionState struct {
	engine.StateView
}

type Error struct {
	Message string `json:"message"`
}

func (SessionCreated) EventName() string { return EventSessionCreated }
func (SessionExists) EventName() string  { return EventSessionExists }
func (PlayerSnapshot) EventName() string { return EventPlayerSnapshot }
func (HostStatus) EventName() string     { return EventHostStatus }
func (Roster) EventName() string         { return EventRoster }
func (SessionState) EventName() string   { return EventSessionState }
func (Error) EventName() string          { return EventError }
