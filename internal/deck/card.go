package deck

import (
	"fmt"
	"strings"
)

// Suit represents a card suit. Suits carry no weight in blackjack scoring.
type Suit int

const (
	Spades Suit = iota
	Hearts
	Diamonds
	Clubs
)

// Suits lists every suit in dealing order.
var Suits = [...]Suit{Spades, Hearts, Diamonds, Clubs}

// String returns the string representation of a suit
func (s Suit) String() string {
	switch s {
	case Spades:
		return "♠"
	case Hearts:
		return "♥"
	case Diamonds:
		return "♦"
	case Clubs:
		return "♣"
	default:
		return "?"
	}
}

// IsRed returns true if the suit is red (Hearts or Diamonds)
func (s Suit) IsRed() bool {
	return s == Hearts || s == Diamonds
}

// Rank is the blackjack value of a card. Ten, Jack, Queen and King all share
// the value Ten; an Ace is dealt as 11 and may be counted as 1 when scoring.
type Rank int

const (
	Two Rank = iota + 2
	Three
	Four
	Five
	Six
	Seven
	Eight
	Nine
	Ten
	Ace
)

// String returns the string representation of a rank
func (r Rank) String() string {
	switch {
	case r == Ace:
		return "A"
	case r >= Two && r <= Ten:
		return fmt.Sprintf("%d", int(r))
	default:
		return "?"
	}
}

// Valid reports whether r is a rank the dealer can produce.
func (r Rank) Valid() bool {
	return r >= Two && r <= Ace
}

// Card represents a dealt card
type Card struct {
	Rank Rank
	Suit Suit
}

// NewCard creates a new card
func NewCard(rank Rank, suit Suit) Card {
	return Card{Rank: rank, Suit: suit}
}

// String returns the string representation of a card (e.g., "A♠", "10♥")
func (c Card) String() string {
	return c.Rank.String() + c.Suit.String()
}

// IsRed returns true if the card is red
func (c Card) IsRed() bool {
	return c.Suit.IsRed()
}

// Value returns the card's high value (an Ace is 11)
func (c Card) Value() int {
	return int(c.Rank)
}

// IsAce returns true if the card is an Ace
func (c Card) IsAce() bool {
	return c.Rank == Ace
}

// ParseCard parses a single card such as "As", "10h", "Kd" or "7♣".
// Face cards parse to Ten.
func ParseCard(s string) (Card, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Card{}, fmt.Errorf("empty card")
	}

	suit, rankPart, err := splitSuit(s)
	if err != nil {
		return Card{}, err
	}

	var rank Rank
	switch strings.ToUpper(rankPart) {
	case "A":
		rank = Ace
	case "K", "Q", "J", "T", "10":
		rank = Ten
	case "2", "3", "4", "5", "6", "7", "8", "9":
		rank = Rank(rankPart[0] - '0')
	default:
		return Card{}, fmt.Errorf("invalid rank %q in card %q", rankPart, s)
	}

	return Card{Rank: rank, Suit: suit}, nil
}

func splitSuit(s string) (Suit, string, error) {
	for _, suit := range Suits {
		if sym := suit.String(); strings.HasSuffix(s, sym) {
			return suit, strings.TrimSuffix(s, sym), nil
		}
	}

	last := s[len(s)-1]
	rest := s[:len(s)-1]
	switch last {
	case 's', 'S':
		return Spades, rest, nil
	case 'h', 'H':
		return Hearts, rest, nil
	case 'd', 'D':
		return Diamonds, rest, nil
	case 'c', 'C':
		return Clubs, rest, nil
	}
	return 0, "", fmt.Errorf("invalid suit in card %q", s)
}

// ParseCards parses a whitespace separated list of cards.
func ParseCards(s string) ([]Card, error) {
	fields := strings.Fields(s)
	cards := make([]Card, 0, len(fields))
	for _, f := range fields {
		c, err := ParseCard(f)
		if err != nil {
			return nil, err
		}
		cards = append(cards, c)
	}
	return cards, nil
}

// MustParseCards is like ParseCards but panics on error. Intended for tests
// and fixed fixtures.
func MustParseCards(s string) []Card {
	cards, err := ParseCards(s)
	if err != nil {
		panic(err)
	}
	return cards
}
