package game

import (
	"strings"

	"github.com/lox/blackjack/internal/deck"
)

const (
	// BlackjackTotal is the highest total that does not bust.
	BlackjackTotal = 21

	// DealerStandsOn is the total at which the dealer stops drawing.
	DealerStandsOn = 17

	// HiddenCard is shown in place of any dealer card that is not yet revealed.
	HiddenCard = "?"

	aceReduction = 10
)

// Hand is an ordered, append-only list of cards. The first two cards are the
// opening deal.
type Hand []deck.Card

// Score returns the hand's blackjack total
func (h Hand) Score() int {
	return Score(h)
}

// IsBust reports whether the hand's total exceeds 21
func (h Hand) IsBust() bool {
	return Score(h) > BlackjackTotal
}

// Strings renders every card in the hand
func (h Hand) Strings() []string {
	out := make([]string, len(h))
	for i, c := range h {
		out[i] = c.String()
	}
	return out
}

// String renders the hand as space separated cards
func (h Hand) String() string {
	return strings.Join(h.Strings(), " ")
}

// Score sums the hand with every Ace counted as 11, then counts Aces as 1
// one at a time while the total is over 21. The result does not depend on
// card order.
func Score(cards []deck.Card) int {
	total := 0
	softAces := 0
	for _, c := range cards {
		total += c.Value()
		if c.IsAce() {
			softAces++
		}
	}

	for i := 0; i < softAces && total > BlackjackTotal; i++ {
		total -= aceReduction
	}
	return total
}
