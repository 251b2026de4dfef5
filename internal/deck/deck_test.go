package deck

import (
	"math"
	"testing"

	"github.com/lox/blackjack/internal/randutil"
)

func TestRandomDealerDistribution(t *testing.T) {
	t.Parallel()

	const draws = 240000
	d := NewRandomDealer(randutil.New(42))

	ranks := make(map[Rank]int)
	suits := make(map[Suit]int)
	for i := 0; i < draws; i++ {
		c := d.Deal()
		if !c.Rank.Valid() {
			t.Fatalf("dealt invalid rank %d", c.Rank)
		}
		ranks[c.Rank]++
		suits[c.Suit]++
	}

	if len(ranks) != 10 {
		t.Fatalf("expected 10 distinct ranks, got %d", len(ranks))
	}

	const tolerance = 0.01
	for rank, n := range ranks {
		want := 1.0 / 12
		if rank == Ten {
			want = 3.0 / 12
		}
		got := float64(n) / draws
		if math.Abs(got-want) > tolerance {
			t.Errorf("rank %s: expected probability %.4f, got %.4f", rank, want, got)
		}
	}

	for _, suit := range Suits {
		got := float64(suits[suit]) / draws
		if math.Abs(got-0.25) > tolerance {
			t.Errorf("suit %s: expected probability 0.25, got %.4f", suit, got)
		}
	}
}

func TestRandomDealerSeeded(t *testing.T) {
	t.Parallel()

	a := NewRandomDealer(randutil.New(7))
	b := NewRandomDealer(randutil.New(7))
	for i := 0; i < 50; i++ {
		if ca, cb := a.Deal(), b.Deal(); ca != cb {
			t.Fatalf("draw %d differs with same seed: %v vs %v", i, ca, cb)
		}
	}
}

func TestStackedDealer(t *testing.T) {
	t.Parallel()

	cards := MustParseCards("As 5h")
	d := NewStackedDealer(cards...)

	seq := []Card{d.Deal(), d.Deal(), d.Deal()}
	if seq[0] != cards[0] || seq[1] != cards[1] || seq[2] != cards[0] {
		t.Errorf("unexpected sequence %v", seq)
	}
	if d.Dealt() != 3 {
		t.Errorf("expected 3 cards dealt, got %d", d.Dealt())
	}
}
