package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/wricardo/hazardrun/game/cards"
	"github.com/wricardo/hazardrun/game/engine"
	"github.com/wricardo/hazardrun/game/session"
)

const queryTimeout = 5 * time.Second

// Hub is the transport the server mounts at /ws. Query runs fn on the
// transport's event loop so reads never race game mutations.
type Hub interface {
	ServeWS(w http.ResponseWriter, r *http.Request)
	Query(ctx context.Context, fn func()) error
}

// SessionSummary is one entry of the session listing
type SessionSummary struct {
	ID             string       `json:"id"`
	Phase          engine.Phase `json:"phase"`
	Round          int          `json:"round"`
	Players        int          `json:"players"`
	Host           string       `json:"host,omitempty"`
	CreatedAt      time.Time    `json:"created_at"`
	LastActivityAt time.Time    `json:"last_activity_at"`
}

// SessionDetail is the inspection view of one session. Hands stay private.
type SessionDetail struct {
	State  engine.StateView     `json:"state"`
	Roster []engine.RosterEntry `json:"roster"`
}

// Health reports server liveness
type Health struct {
	Status   string `json:"status"`
	Version  string `json:"version,omitempty"`
	Sessions int    `json:"sessions"`
	Uptime   string `json:"uptime"`
}

// Rules describes the game parameters exposed at /api/rules
type Rules struct {
	MinPlayers    int                     `json:"min_players"`
	MaxPlayers    int                     `json:"max_players"`
	MaxNameLength int                     `json:"max_name_length"`
	Rounds        int                     `json:"rounds"`
	ToolValues    []int                   `json:"tool_values"`
	Decks         []cards.DeckComposition `json:"decks"`
}

// Option configures a Server
type Option func(*Server)

// WithMetrics mounts h at /metrics
func WithMetrics(h http.Handler) Option {
	return func(s *Server) {
		s.metrics = h
	}
}

// WithMCP mounts h at /mcp
func WithMCP(h http.Handler) Option {
	return func(s *Server) {
		s.mcp = h
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

func WithVersion(v string) Option {
	return func(s *Server) {
		s.version = v
	}
}

// Server represents the HTTP surface: websocket upgrade, REST inspection
// and optional metrics and MCP endpoints.
type Server struct {
	sessions *session.Manager
	hub      Hub
	router   *mux.Router
	metrics  http.Handler
	mcp      http.Handler
	logger   zerolog.Logger
	version  string
	started  time.Time
}

// NewServer creates a new API server
func NewServer(sessions *session.Manager, hub Hub, opts ...Option) *Server {
	s := &Server{
		sessions: sessions,
		hub:      hub,
		router:   mux.NewRouter(),
		logger:   log.Logger.With().Str("component", "api").Logger(),
		started:  time.Now(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures all API routes
func (s *Server) setupRoutes() {
	s.router.Use(s.logRequests)

	api := s.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/health", s.handleHealth).Methods("GET")
	api.HandleFunc("/rules", s.handleRules).Methods("GET")
	api.HandleFunc("/sessions", s.handleListSessions).Methods("GET")
	api.HandleFunc("/sessions/{id}", s.handleGetSession).Methods("GET")

	s.router.HandleFunc("/ws", s.hub.ServeWS)

	if s.metrics != nil {
		s.router.Handle("/metrics", s.metrics).Methods("GET")
	}
	if s.mcp != nil {
		s.router.Handle("/mcp", s.mcp)
	}
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Dur("elapsed", time.Since(start)).
			Msg("http request")
	})
}

// Response helpers
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// query runs fn on the hub loop with a bounded wait
func (s *Server) query(r *http.Request, fn func()) error {
	ctx, cancel := context.WithTimeout(r.Context(), queryTimeout)
	defer cancel()
	return s.hub.Query(ctx, fn)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, Health{
		Status:   "ok",
		Version:  s.version,
		Sessions: s.sessions.Count(),
		Uptime:   time.Since(s.started).Round(time.Second).String(),
	})
}

func (s *Server) handleRules(w http.ResponseWriter, r *http.Request) {
	rules := s.sessions.Rules()
	resp := Rules{
		MinPlayers:    rules.MinPlayers,
		MaxPlayers:    rules.MaxPlayers,
		MaxNameLength: rules.MaxNameLength,
		Rounds:        engine.TotalRounds,
	}
	for _, tool := range cards.NewToolHand() {
		resp.ToolValues = append(resp.ToolValues, tool.Value)
	}
	for n := rules.MinPlayers; n <= rules.MaxPlayers; n++ {
		comp, err := cards.Composition(n)
		if err != nil {
			continue
		}
		resp.Decks = append(resp.Decks, comp)
	}
	respondJSON(w, http.StatusOK, resp)
}

// handleListSessions supports ?phase=, ?sort=created|activity, ?order=asc|desc
// and ?limit=N.
func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	phase := engine.Phase(strings.ToLower(query.Get("phase")))

	var summaries []SessionSummary
	err := s.query(r, func() {
		for _, sess := range s.sessions.List() {
			if phase != "" && sess.Phase != phase {
				continue
			}
			summaries = append(summaries, summarize(sess))
		}
	})
	if err != nil {
		respondError(w, http.StatusServiceUnavailable, err.Error())
		return
	}

	sortBy := query.Get("sort")
	order := query.Get("order")
	if sortBy == "" {
		sortBy = "activity"
	}
	if order == "" {
		order = "desc"
	}
	sort.SliceStable(summaries, func(i, j int) bool {
		ti, tj := summaries[i].LastActivityAt, summaries[j].LastActivityAt
		if sortBy == "created" {
			ti, tj = summaries[i].CreatedAt, summaries[j].CreatedAt
		}
		if order == "asc" {
			return ti.Before(tj)
		}
		return ti.After(tj)
	})

	total := len(summaries)
	if l, err := strconv.Atoi(query.Get("limit")); err == nil && l > 0 && l < len(summaries) {
		summaries = summaries[:l]
	}
	if summaries == nil {
		summaries = []SessionSummary{}
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count":    len(summaries),
		"total":    total,
		"sessions": summaries,
		"sort":     sortBy,
		"order":    order,
	})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var detail *SessionDetail
	var lookupErr error
	err := s.query(r, func() {
		sess, err := s.sessions.Get(id)
		if err != nil {
			lookupErr = err
			return
		}
		detail = &SessionDetail{State: sess.State(), Roster: sess.Roster()}
	})
	if err != nil {
		respondError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	if errors.Is(lookupErr, session.ErrSessionNotFound) {
		respondError(w, http.StatusNotFound, lookupErr.Error())
		return
	}
	if lookupErr != nil {
		respondError(w, http.StatusInternalServerError, lookupErr.Error())
		return
	}

	respondJSON(w, http.StatusOK, detail)
}

func summarize(sess *engine.Session) SessionSummary {
	sum := SessionSummary{
		ID:             sess.ID,
		Phase:          sess.Phase,
		Round:          sess.Round,
		Players:        len(sess.Players),
		CreatedAt:      sess.CreatedAt,
		LastActivityAt: sess.LastActivityAt,
	}
	if host := sess.Host(); host != nil {
		sum.Host = host.Name
	}
	return sum
}
