package main

import (
	"github.com/wricardo/hazardrun/game/cards"
	"github.com/wricardo/hazardrun/game/engine"
)

// Move is a chosen play
type Move struct {
	Index int
	Side  cards.Color
	Wins  bool
}

// Choose picks the cheapest winning tool against h, or the least useful tool
// when nothing wins. Decoys always get the least useful tool.
func Choose(round int, hand []cards.ToolCard, h cards.HazardCard) (Move, bool) {
	if len(hand) == 0 {
		return Move{}, false
	}

	if h.IsDecoy() {
		return Move{Index: leastUseful(round, hand), Side: cards.ColorA}, true
	}

	best := -1
	for i, tool := range hand {
		if !engine.Resolves(round, h.Color, tool.Value, h.Value) {
			continue
		}
		if best < 0 || cost(round, h.Color, tool.Value) < cost(round, h.Color, hand[best].Value) {
			best = i
		}
	}
	if best >= 0 {
		return Move{Index: best, Side: h.Color, Wins: true}, true
	}
	return Move{Index: leastUseful(round, hand), Side: h.Color}, true
}

// cost ranks winning tools so the one closest to the threshold goes first.
// High tools are worth keeping when a round favors them, low tools otherwise.
func cost(round int, side cards.Color, tool int) int {
	if favorsHigh(round, side) {
		return tool
	}
	return -tool
}

func favorsHigh(round int, side cards.Color) bool {
	switch round {
	case 1:
		return true
	case 2:
		return false
	default:
		return side == cards.ColorA
	}
}

// leastUseful returns the tool least likely to win later in the round. In
// round 3 the extremes are both useful, so the middle card goes.
func leastUseful(round int, hand []cards.ToolCard) int {
	pick := 0
	for i, tool := range hand {
		v, cur := tool.Value, hand[pick].Value
		switch round {
		case 1:
			if v < cur {
				pick = i
			}
		case 2:
			if v > cur {
				pick = i
			}
		default:
			if distanceToMiddle(v) < distanceToMiddle(cur) {
				pick = i
			}
		}
	}
	return pick
}

func distanceToMiddle(v int) int {
	mid := (cards.MinToolValue + cards.MaxToolValue) / 2
	if v > mid {
		return v - mid
	}
	return mid - v
}
