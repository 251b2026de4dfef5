// Package game implements the rules of a single-player blackjack round.
//
// The main type is Round, which owns the player's and the dealer's hands and
// moves through three phases:
//
//	PlayerTurn -> DealerTurn -> Resolved
//
// # Basic Usage
//
//	dealer := deck.NewRandomDealer(randutil.New(42))
//	r := game.NewRound(dealer)
//	if err := r.Hit(dealer); err != nil {
//	    // hitting is only allowed during the player's turn
//	}
//	if !r.IsResolved() {
//	    _ = r.Stand(dealer)
//	}
//	outcome, _ := r.Outcome()
//
// # Deterministic Testing
//
// Any deck.Dealer can drive a round. deck.StackedDealer deals a fixed card
// sequence:
//
//	d := deck.NewStackedDealer(deck.MustParseCards("10s 6h 10d 6c 5s")...)
//	r := game.NewRound(d)
//
// # Scoring
//
// Score returns the best total not exceeding 21 reachable by counting each
// Ace as 11 or 1, or the all-low total when the hand is bust. Resolve turns
// two final scores into an Outcome.
//
// A Round holds no locks. It belongs to exactly one session, and the caller
// is responsible for loading and storing it between requests.
package game
