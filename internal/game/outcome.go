package game

import "fmt"

// Outcome is the player's result for a finished round
type Outcome int

const (
	Lose Outcome = iota
	Win
	Draw
)

// String returns the string representation of an outcome
func (o Outcome) String() string {
	switch o {
	case Win:
		return "win"
	case Lose:
		return "lose"
	case Draw:
		return "draw"
	default:
		return "unknown"
	}
}

// Message returns the banner shown to the player
func (o Outcome) Message() string {
	switch o {
	case Win:
		return "You win!"
	case Draw:
		return "It's a draw!"
	default:
		return "You lose!"
	}
}

// MarshalText implements encoding.TextMarshaler
func (o Outcome) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (o *Outcome) UnmarshalText(text []byte) error {
	parsed, err := ParseOutcome(string(text))
	if err != nil {
		return err
	}
	*o = parsed
	return nil
}

// ParseOutcome parses "win", "lose" or "draw"
func ParseOutcome(s string) (Outcome, error) {
	switch s {
	case "win":
		return Win, nil
	case "lose", "loss":
		return Lose, nil
	case "draw":
		return Draw, nil
	default:
		return Lose, fmt.Errorf("unknown outcome %q", s)
	}
}

// Resolve compares two final scores. A player bust loses even when the
// dealer also busts.
func Resolve(playerScore, dealerScore int) Outcome {
	switch {
	case playerScore > BlackjackTotal:
		return Lose
	case dealerScore > BlackjackTotal:
		return Win
	case playerScore > dealerScore:
		return Win
	case playerScore == dealerScore:
		return Draw
	default:
		return Lose
	}
}
