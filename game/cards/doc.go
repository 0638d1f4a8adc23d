// Package cards provides the card factory for the Hazard Run game.
//
// The cards package implements:
//   - Hazard cards (scoring and decoy variants)
//   - Tool cards with ascending values
//   - Deck size table keyed by roster size
//   - Shuffled hazard deck construction
//   - The shared discard pile
//
// Hazard Cards:
//
// A scoring hazard carries a color (A or B) and a value from 1 to 9. A decoy
// hazard carries one of five flavors and never scores. Cards are values and
// never change once built.
//
// Usage:
//
//	rng := rand.New(rand.NewPCG(1, 2))
//	deck, err := cards.BuildHazardDeck(4, rng)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	hand := cards.NewToolHand()
package cards
