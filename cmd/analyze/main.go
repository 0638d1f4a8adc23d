// Command analyze prints quick, human-readable statistics about the hazard
// deck: its composition for every supported roster size, the value spread of
// sampled shuffles, and how often each tool resolves a scoring hazard in each
// round.
package main

import (
	"context"
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"sort"

	"github.com/urfave/cli/v3"

	"github.com/wricardo/hazardrun/game/cards"
	"github.com/wricardo/hazardrun/game/engine"
)

// DeckStats summarizes sampled decks for one roster size
type DeckStats struct {
	Composition cards.DeckComposition
	Samples     int
	ValueCounts map[int]int
	ColorCounts map[cards.Color]int
	DecoyCounts map[cards.DecoySubtype]int
}

func main() {
	cmd := &cli.Command{
		Name:  "analyze",
		Usage: "print hazard deck statistics",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "samples", Value: 1000, Usage: "decks to sample per roster size"},
			&cli.IntFlag{Name: "seed", Value: 1, Usage: "shuffle seed"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return run(os.Stdout, int(cmd.Int("samples")), uint64(cmd.Int("seed")))
		},
	}
	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(w io.Writer, samples int, seed uint64) error {
	if samples <= 0 {
		return fmt.Errorf("samples must be positive, got %d", samples)
	}
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))

	fmt.Fprintln(w, "=== Deck composition ===")
	for n := cards.MinPlayers; n <= cards.MaxPlayers; n++ {
		stats, err := sampleDecks(n, samples, rng)
		if err != nil {
			return err
		}
		printStats(w, stats)
	}

	fmt.Fprintln(w, "\n=== Tool success odds against a uniform scoring hazard ===")
	printOdds(w)
	return nil
}

func sampleDecks(players, samples int, rng *rand.Rand) (*DeckStats, error) {
	comp, err := cards.Composition(players)
	if err != nil {
		return nil, err
	}
	stats := &DeckStats{
		Composition: comp,
		Samples:     samples,
		ValueCounts: make(map[int]int),
		ColorCounts: make(map[cards.Color]int),
		DecoyCounts: make(map[cards.DecoySubtype]int),
	}
	for i := 0; i < samples; i++ {
		deck, err := cards.BuildHazardDeck(players, rng)
		if err != nil {
			return nil, err
		}
		for _, h := range deck {
			if h.IsDecoy() {
				stats.DecoyCounts[h.Subtype]++
				continue
			}
			stats.ValueCounts[h.Value]++
			stats.ColorCounts[h.Color]++
		}
	}
	return stats, nil
}

func printStats(w io.Writer, s *DeckStats) {
	c := s.Composition
	fmt.Fprintf(w, "\n%d players: %d cards (%d scoring, %d decoys)\n", c.Players, c.Size, c.Scoring, c.Decoys)

	if s.Samples == 0 || c.Scoring == 0 {
		return
	}
	per := float64(s.Samples)
	fmt.Fprintf(w, "  colors per deck: A %.2f  B %.2f\n",
		float64(s.ColorCounts[cards.ColorA])/per, float64(s.ColorCounts[cards.ColorB])/per)

	values := make([]int, 0, len(s.ValueCounts))
	for v := range s.ValueCounts {
		values = append(values, v)
	}
	sort.Ints(values)
	fmt.Fprint(w, "  values per deck:")
	for _, v := range values {
		fmt.Fprintf(w, " %d:%.2f", v, float64(s.ValueCounts[v])/per)
	}
	fmt.Fprintln(w)

	if c.Decoys > 0 {
		fmt.Fprint(w, "  decoys per deck:")
		for _, d := range cards.DecoySubtypes {
			fmt.Fprintf(w, " %s:%.2f", d, float64(s.DecoyCounts[d])/per)
		}
		fmt.Fprintln(w)
	}
}

// successRate is the share of hazard values 1-9 a tool resolves
func successRate(round int, side cards.Color, tool int) float64 {
	wins := 0
	total := 0
	for v := cards.MinHazardValue; v <= cards.MaxHazardValue; v++ {
		total++
		if engine.Resolves(round, side, tool, v) {
			wins++
		}
	}
	return float64(wins) / float64(total)
}

func printOdds(w io.Writer) {
	fmt.Fprintf(w, "%-6s", "tool")
	for round := 1; round <= engine.TotalRounds; round++ {
		fmt.Fprintf(w, "  r%d/A  r%d/B", round, round)
	}
	fmt.Fprintln(w)

	for _, tool := range cards.NewToolHand() {
		fmt.Fprintf(w, "%-6d", tool.Value)
		for round := 1; round <= engine.TotalRounds; round++ {
			fmt.Fprintf(w, "  %4.0f%%  %4.0f%%",
				100*successRate(round, cards.ColorA, tool.Value),
				100*successRate(round, cards.ColorB, tool.Value))
		}
		fmt.Fprintln(w)
	}
}
