// Command bot plays complete hazard run games against a running server. It
// seats a table of automated players on separate websocket connections, lets
// the first one host, and prints the final scores. Useful as a smoke test and
// as a load generator.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"

	"github.com/wricardo/hazardrun/game/cards"
	"github.com/wricardo/hazardrun/game/engine"
)

// TableOptions configures one automated game
type TableOptions struct {
	URL     string
	Players int
	Think   time.Duration
	Racy    bool
	Session string
}

// Result is a finished game
type Result struct {
	SessionID string
	State     engine.StateView
	Bots      []*Bot
}

func main() {
	cmd := &cli.Command{
		Name:  "bot",
		Usage: "play automated games against a hazard run server",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "url", Value: "ws://localhost:8080/ws", Usage: "game websocket", Sources: cli.EnvVars("HAZARDRUN_WS_URL")},
			&cli.IntFlag{Name: "players", Value: 3, Usage: "bots per table"},
			&cli.IntFlag{Name: "games", Value: 1, Usage: "tables to run concurrently"},
			&cli.DurationFlag{Name: "think", Value: 100 * time.Millisecond, Usage: "delay before each play"},
			&cli.BoolFlag{Name: "racy", Usage: "every bot requests draws, not only the host"},
			&cli.BoolFlag{Name: "debug", Usage: "log every play"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			level := zerolog.InfoLevel
			if cmd.Bool("debug") {
				level = zerolog.DebugLevel
			}
			logger := log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).Level(level)

			opts := TableOptions{
				URL:     cmd.String("url"),
				Players: int(cmd.Int("players")),
				Think:   cmd.Duration("think"),
				Racy:    cmd.Bool("racy"),
			}
			return runGames(ctx, os.Stdout, opts, int(cmd.Int("games")), logger)
		},
	}
	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runGames(ctx context.Context, w io.Writer, opts TableOptions, games int, logger zerolog.Logger) error {
	if opts.Players < cards.MinPlayers || opts.Players > cards.MaxPlayers {
		return fmt.Errorf("players must be %d-%d, got %d", cards.MinPlayers, cards.MaxPlayers, opts.Players)
	}

	results := make([]*Result, games)
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < games; i++ {
		i := i
		g.Go(func() error {
			res, err := PlayTable(gctx, opts, logger.With().Int("table", i+1).Logger())
			results[i] = res
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for _, res := range results {
		printResult(w, res)
	}
	return nil
}

// PlayTable seats opts.Players bots in a fresh session and plays one game
func PlayTable(ctx context.Context, opts TableOptions, logger zerolog.Logger) (*Result, error) {
	bots := make([]*Bot, 0, opts.Players)
	defer func() {
		for _, b := range bots {
			b.Close()
		}
	}()

	for i := 0; i < opts.Players; i++ {
		b, err := Dial(ctx, opts.URL, fmt.Sprintf("bot-%d", i+1), opts.Think, logger)
		if err != nil {
			return nil, err
		}
		b.racy = opts.Racy
		bots = append(bots, b)
	}

	id, err := bots[0].Create(opts.Session)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	for _, b := range bots[1:] {
		if err := b.Join(id); err != nil {
			return nil, fmt.Errorf("join %s: %w", id, err)
		}
	}
	logger.Info().Str("session_id", id).Int("players", opts.Players).Msg("table seated")

	res := &Result{SessionID: id, Bots: bots}
	g, gctx := errgroup.WithContext(ctx)
	for i, b := range bots {
		i, b := i, b
		g.Go(func() error {
			state, err := b.Play(gctx, opts.Players)
			if err != nil {
				return fmt.Errorf("%s: %w", b.Name, err)
			}
			if i == 0 {
				res.State = state
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	logger.Info().Str("session_id", id).Interface("scores", res.State.Scores).Msg("game over")
	return res, nil
}

func printResult(w io.Writer, res *Result) {
	fmt.Fprintf(w, "Session %s\n", res.SessionID)

	names := make([]string, 0, len(res.State.Scores))
	for name := range res.State.Scores {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		si, sj := res.State.Scores[names[i]], res.State.Scores[names[j]]
		if si != sj {
			return si > sj
		}
		return names[i] < names[j]
	})

	byName := map[string]*Bot{}
	for _, b := range res.Bots {
		byName[b.Name] = b
	}
	for _, name := range names {
		rounds := res.State.RoundScores[name]
		fmt.Fprintf(w, "  %-8s %3d  (%d/%d/%d)", name, res.State.Scores[name], rounds[0], rounds[1], rounds[2])
		if b, ok := byName[name]; ok {
			fmt.Fprintf(w, "  %d plays, %d aimed to win", b.Plays, b.Wins)
		}
		fmt.Fprintln(w)
	}
}
