package session

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	mrand "math/rand/v2"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/wricardo/hazardrun/game/engine"
)

var (
	ErrSessionNotFound  = errors.New("session not found")
	ErrIDCollision      = errors.New("session ID already exists")
	ErrInvalidSessionID = errors.New("invalid session ID")
)

const (
	DefaultIDLength = 5
	MaxIDLength     = 32

	idAlphabet     = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	maxGenAttempts = 100
)

var validID = regexp.MustCompile(`^[A-Z0-9_-]+$`)

// CanonicalID trims and upper-cases a session identifier
func CanonicalID(id string) string {
	return strings.ToUpper(strings.TrimSpace(id))
}

// CreateRequest describes a new session and its creator
type CreateRequest struct {
	RequestedID  string
	Force        bool
	PlayerName   string
	ConnectionID string
}

// CreateResult is the outcome of a successful Create
type CreateResult struct {
	Session *engine.Session
	Host    *engine.Player

	// Replaced is the live session a forced create overwrote, if any
	Replaced *engine.Session
}

// DisconnectResult is the effect of a closing connection on one session
type DisconnectResult struct {
	Session   *engine.Session
	Departure engine.Departure

	// Removed is true when the roster emptied and the session was deleted
	Removed bool
}

// Option configures a Manager
type Option func(*Manager)

// WithRules sets the rules new sessions are created with
func WithRules(rules engine.Rules) Option {
	return func(m *Manager) {
		m.rules = rules
	}
}

// WithIDLength sets the length of generated session ids
func WithIDLength(n int) Option {
	return func(m *Manager) {
		if n > 0 {
			m.idLength = n
		}
	}
}

// WithRandSource sets the generator factory handed to each new session.
// Tests use it for deterministic decks.
func WithRandSource(fn func() *mrand.Rand) Option {
	return func(m *Manager) {
		m.newRNG = fn
	}
}

// Manager is the process-wide registry of sessions
type Manager struct {
	sessions map[string]*engine.Session
	rules    engine.Rules
	idLength int
	newRNG   func() *mrand.Rand
	mu       sync.RWMutex
}

// NewManager creates a new session registry
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		sessions: make(map[string]*engine.Session),
		rules:    engine.DefaultRules(),
		idLength: DefaultIDLength,
		newRNG: func() *mrand.Rand {
			return nil
		},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Rules returns the rules applied to new sessions
func (m *Manager) Rules() engine.Rules {
	return m.rules
}

// Create builds a new session with the requester as sole player and host.
// A requested id that maps to a live session fails with ErrIDCollision
// unless Force is set, in which case the old session is replaced.
func (m *Manager) Create(req CreateRequest) (*CreateResult, error) {
	if _, err := engine.NormalizeName(req.PlayerName, m.rules.MaxNameLength); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	var id string
	var replaced *engine.Session
	if strings.TrimSpace(req.RequestedID) != "" {
		id = CanonicalID(req.RequestedID)
		if len(id) > MaxIDLength || !validID.MatchString(id) {
			return nil, fmt.Errorf("%w: %q", ErrInvalidSessionID, req.RequestedID)
		}
		if existing, exists := m.sessions[id]; exists {
			if !req.Force {
				return nil, fmt.Errorf("%w: %s", ErrIDCollision, id)
			}
			replaced = existing
		}
	} else {
		generated, err := m.generateSessionID()
		if err != nil {
			return nil, err
		}
		id = generated
	}

	sess := engine.NewSession(id, m.rules, m.newRNG())
	host, _, err := sess.AddPlayer(req.PlayerName, req.ConnectionID, true)
	if err != nil {
		return nil, fmt.Errorf("failed to seat creator: %w", err)
	}

	m.sessions[id] = sess
	return &CreateResult{
		Session:  sess,
		Host:     host,
		Replaced: replaced,
	}, nil
}

// Get retrieves a session by id, case- and whitespace-insensitive
func (m *Manager) Get(id string) (*engine.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sess, exists := m.sessions[CanonicalID(id)]
	if !exists {
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

// Exists reports whether a live session maps to id
func (m *Manager) Exists(id string) bool {
	_, err := m.Get(id)
	return err == nil
}

// Remove deletes a session
func (m *Manager) Remove(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := CanonicalID(id)
	if _, exists := m.sessions[key]; !exists {
		return ErrSessionNotFound
	}
	delete(m.sessions, key)
	return nil
}

// List returns every live session ordered by id
func (m *Manager) List() []*engine.Session {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*engine.Session, 0, len(m.sessions))
	for _, sess := range m.sessions {
		result = append(result, sess)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].ID < result[j].ID
	})
	return result
}

// Count returns the number of live sessions
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// FindByConnection returns every session seating a player owned by connID
func (m *Manager) FindByConnection(connID string) []*engine.Session {
	var found []*engine.Session
	for _, sess := range m.List() {
		if sess.HasConnection(connID) {
			found = append(found, sess)
		}
	}
	return found
}

// Disconnect removes connID's players from every session it belongs to and
// deletes the sessions left empty.
func (m *Manager) Disconnect(connID string) []DisconnectResult {
	var results []DisconnectResult
	for _, sess := range m.FindByConnection(connID) {
		dep := sess.RemoveConnection(connID)
		res := DisconnectResult{Session: sess, Departure: dep}
		if len(sess.Players) == 0 {
			m.mu.Lock()
			// A forced create may have replaced this session already
			if m.sessions[sess.ID] == sess {
				delete(m.sessions, sess.ID)
			}
			m.mu.Unlock()
			res.Removed = true
		}
		results = append(results, res)
	}
	return results
}

// generateSessionID returns an unused random id. Caller holds the lock.
func (m *Manager) generateSessionID() (string, error) {
	limit := big.NewInt(int64(len(idAlphabet)))
	for attempt := 0; attempt < maxGenAttempts; attempt++ {
		code := make([]byte, m.idLength)
		for i := range code {
			n, err := rand.Int(rand.Reader, limit)
			if err != nil {
				return "", fmt.Errorf("failed to generate session ID: %w", err)
			}
			code[i] = idAlphabet[n.Int64()]
		}
		id := string(code)
		if _, exists := m.sessions[id]; !exists {
			return id, nil
		}
	}
	return "", fmt.Errorf("failed to generate a free session ID after %d attempts", maxGenAttempts)
}
