package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wricardo/hazardrun/game/engine"
	"github.com/wricardo/hazardrun/game/service"
	"github.com/wricardo/hazardrun/game/session"
	"github.com/wricardo/hazardrun/transport/websocket"
)

// startServer runs the real registry, router and hub behind httptest
func startServer(t *testing.T, drawDelay time.Duration) string {
	t.Helper()
	manager := session.NewManager()
	hub := websocket.NewHub(websocket.WithLogger(zerolog.Nop()))
	hub.SetHandler(service.NewRouter(manager, hub,
		service.WithLogger(zerolog.Nop()),
		service.WithScheduler(hub, drawDelay),
	))

	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	srv := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	t.Cleanup(func() {
		srv.Close()
		cancel()
		<-hub.Done()
	})
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
}

func testOptions(url string, players int) TableOptions {
	return TableOptions{URL: url, Players: players}
}

func TestPlayTable_HostDraws(t *testing.T) {
	url := startServer(t, 0)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	res, err := PlayTable(ctx, testOptions(url, 3), zerolog.Nop())
	require.NoError(t, err)

	assert.True(t, res.State.GameOver)
	assert.Equal(t, engine.PhaseGameOver, res.State.Phase)
	assert.Len(t, res.State.Scores, 3)
	for _, b := range res.Bots {
		assert.Contains(t, res.State.Scores, b.Name)
		assert.Positive(t, b.Plays, "%s never played", b.Name)
	}
}

func TestPlayTable_ServerDraws(t *testing.T) {
	url := startServer(t, 5*time.Millisecond)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	opts := testOptions(url, 2)
	opts.Session = "bots"
	res, err := PlayTable(ctx, opts, zerolog.Nop())
	require.NoError(t, err)

	assert.Equal(t, "BOTS", res.SessionID)
	assert.True(t, res.State.GameOver)
	assert.Len(t, res.State.Scores, 2)
}

func TestRunGames(t *testing.T) {
	url := startServer(t, 0)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	var out bytes.Buffer
	require.NoError(t, runGames(ctx, &out, testOptions(url, 2), 2, zerolog.Nop()))

	assert.Equal(t, 2, strings.Count(out.String(), "Session "))
	assert.Contains(t, out.String(), "bot-1")
	assert.Contains(t, out.String(), "bot-2")
}

func TestRunGames_PlayerBounds(t *testing.T) {
	var out bytes.Buffer
	err := runGames(context.Background(), &out, testOptions("ws://unused", 1), 1, zerolog.Nop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "players must be")

	err = runGames(context.Background(), &out, testOptions("ws://unused", 9), 1, zerolog.Nop())
	require.Error(t, err)
}

func TestBot_ReplacedSession(t *testing.T) {
	url := startServer(t, 0)
	ctx := context.Background()

	first, err := Dial(ctx, url, "first", 0, zerolog.Nop())
	require.NoError(t, err)
	defer first.Close()
	_, err = first.Create("TAKEN")
	require.NoError(t, err)

	second, err := Dial(ctx, url, "second", 0, zerolog.Nop())
	require.NoError(t, err)
	defer second.Close()
	require.NoError(t, second.send(service.EventCreateSession, service.CreateSessionRequest{
		PlayerName:  "second",
		RequestedID: "TAKEN",
		ForceCreate: true,
	}))

	_, err = first.Play(ctx, 2)
	assert.ErrorIs(t, err, ErrReplaced)
}
