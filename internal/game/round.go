package game

import (
	"errors"
	"fmt"

	"github.com/lox/blackjack/internal/deck"
)

var (
	// ErrRoundResolved is returned for any action after the round has ended.
	// The round is left untouched.
	ErrRoundResolved = errors.New("round already resolved")

	// ErrNotPlayerTurn is returned when the player acts outside their turn.
	ErrNotPlayerTurn = errors.New("not the player's turn")
)

// Phase is the stage a round is in
type Phase int

const (
	PlayerTurn Phase = iota
	DealerTurn
	Resolved
)

// String returns the string representation of a phase
func (p Phase) String() string {
	switch p {
	case PlayerTurn:
		return "player_turn"
	case DealerTurn:
		return "dealer_turn"
	case Resolved:
		return "resolved"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler
func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (p *Phase) UnmarshalText(text []byte) error {
	switch string(text) {
	case "player_turn":
		*p = PlayerTurn
	case "dealer_turn":
		*p = DealerTurn
	case "resolved":
		*p = Resolved
	default:
		return fmt.Errorf("unknown phase %q", text)
	}
	return nil
}

// Round is one deal of blackjack between the player and the dealer
type Round struct {
	player  Hand
	dealer  Hand
	phase   Phase
	outcome Outcome
}

// NewRound deals two cards to the player, then two to the dealer, and
// starts the player's turn.
func NewRound(d deck.Dealer) *Round {
	r := &Round{
		player: make(Hand, 0, 4),
		dealer: make(Hand, 0, 4),
		phase:  PlayerTurn,
	}
	r.player = append(r.player, d.Deal(), d.Deal())
	r.dealer = append(r.dealer, d.Deal(), d.Deal())
	return r
}

// Phase returns the current phase
func (r *Round) Phase() Phase {
	return r.phase
}

// IsResolved reports whether the round has ended
func (r *Round) IsResolved() bool {
	return r.phase == Resolved
}

// PlayerHand returns a copy of the player's cards
func (r *Round) PlayerHand() Hand {
	return append(Hand(nil), r.player...)
}

// DealerHand returns a copy of the dealer's cards, including the hole card
func (r *Round) DealerHand() Hand {
	return append(Hand(nil), r.dealer...)
}

// PlayerScore returns the player's current total
func (r *Round) PlayerScore() int {
	return Score(r.player)
}

// DealerScore returns the dealer's current total, including the hole card
func (r *Round) DealerScore() int {
	return Score(r.dealer)
}

// Outcome returns the result once the round is resolved
func (r *Round) Outcome() (Outcome, bool) {
	if r.phase != Resolved {
		return Lose, false
	}
	return r.outcome, true
}

func (r *Round) checkPlayerTurn() error {
	switch r.phase {
	case PlayerTurn:
		return nil
	case Resolved:
		return ErrRoundResolved
	default:
		return ErrNotPlayerTurn
	}
}

// Hit deals one card to the player. A bust ends the round as a loss without
// the dealer playing.
func (r *Round) Hit(d deck.Dealer) error {
	if err := r.checkPlayerTurn(); err != nil {
		return err
	}

	r.player = append(r.player, d.Deal())
	if r.player.IsBust() {
		r.resolve()
	}
	return nil
}

// Stand ends the player's turn and plays out the dealer's hand. The dealer
// draws while under 17, then the round is resolved.
func (r *Round) Stand(d deck.Dealer) error {
	if err := r.checkPlayerTurn(); err != nil {
		return err
	}

	r.phase = DealerTurn
	for Score(r.dealer) < DealerStandsOn {
		r.dealer = append(r.dealer, d.Deal())
	}
	r.resolve()
	return nil
}

func (r *Round) resolve() {
	r.outcome = Resolve(Score(r.player), Score(r.dealer))
	r.phase = Resolved
}

// View is what the player may see of a round. Until the round is resolved
// only the dealer's first card is shown.
type View struct {
	Phase       Phase    `json:"phase"`
	PlayerHand  []string `json:"playerHand"`
	DealerHand  []string `json:"dealerHand"`
	PlayerScore int      `json:"playerScore"`
}

// View renders the round for the player
func (r *Round) View() View {
	dealer := make([]string, len(r.dealer))
	for i, c := range r.dealer {
		if i == 0 || r.phase == Resolved {
			dealer[i] = c.String()
		} else {
			dealer[i] = HiddenCard
		}
	}

	return View{
		Phase:       r.phase,
		PlayerHand:  r.player.Strings(),
		DealerHand:  dealer,
		PlayerScore: Score(r.player),
	}
}

// Result is a resolved round with both hands revealed
type Result struct {
	PlayerHand  []string `json:"playerHand"`
	DealerHand  []string `json:"dealerHand"`
	PlayerScore int      `json:"playerScore"`
	DealerScore int      `json:"dealerScore"`
	Outcome     Outcome  `json:"outcome"`
	Message     string   `json:"message"`
}

// Result returns the revealed round. ok is false until the round is resolved.
func (r *Round) Result() (Result, bool) {
	outcome, ok := r.Outcome()
	if !ok {
		return Result{}, false
	}
	return Result{
		PlayerHand:  r.player.Strings(),
		DealerHand:  r.dealer.Strings(),
		PlayerScore: Score(r.player),
		DealerScore: Score(r.dealer),
		Outcome:     outcome,
		Message:     outcome.Message(),
	}, true
}
