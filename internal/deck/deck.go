package deck

import (
	rand "math/rand/v2"
	"sync"
)

// shoe is the rank multiset every draw is taken from. Ten appears three
// times to stand in for 10, J, Q and K.
var shoe = [...]Rank{Two, Three, Four, Five, Six, Seven, Eight, Nine, Ten, Ten, Ten, Ace}

// Dealer produces cards for a round.
type Dealer interface {
	Deal() Card
}

// RandomDealer draws cards independently and with replacement. There is no
// finite deck, so a draw never depends on earlier draws.
type RandomDealer struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewRandomDealer creates a dealer backed by rng. The dealer is safe for
// concurrent use.
func NewRandomDealer(rng *rand.Rand) *RandomDealer {
	return &RandomDealer{rng: rng}
}

// Deal returns the next card
func (d *RandomDealer) Deal() Card {
	d.mu.Lock()
	defer d.mu.Unlock()

	rank := shoe[d.rng.IntN(len(shoe))]
	suit := Suits[d.rng.IntN(len(Suits))]
	return NewCard(rank, suit)
}

// StackedDealer deals a fixed sequence of cards, wrapping around when the
// sequence is exhausted. Used for deterministic rounds.
type StackedDealer struct {
	mu    sync.Mutex
	cards []Card
	next  int
}

// NewStackedDealer creates a dealer that deals cards in order
func NewStackedDealer(cards ...Card) *StackedDealer {
	if len(cards) == 0 {
		panic("deck: stacked dealer needs at least one card")
	}
	return &StackedDealer{cards: cards}
}

// Deal returns the next card in the stack
func (d *StackedDealer) Deal() Card {
	d.mu.Lock()
	defer d.mu.Unlock()

	card := d.cards[d.next%len(d.cards)]
	d.next++
	return card
}

// Dealt returns the number of cards dealt so far
func (d *StackedDealer) Dealt() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.next
}
