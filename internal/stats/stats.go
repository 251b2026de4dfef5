// Package stats keeps per-user win/loss/draw counters.
//
// Durable backends (SQLiteStore, MongoStore, MemoryStore) implement
// Repository. Ephemeral holds counters for one session only. Fallback
// combines the two so that a durable outage degrades to session-only
// counters instead of failing the round.
package stats

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/lox/blackjack/internal/game"
)

// DefaultTimeout bounds every durable store call.
const DefaultTimeout = 3 * time.Second

var (
	// ErrUnreachable classifies connection and timeout failures talking to a
	// durable store. Callers may recover from it by falling back.
	ErrUnreachable = errors.New("stats store unreachable")

	// ErrNotFound indicates no record exists for a user.
	ErrNotFound = errors.New("record not found")
)

// Unreachable wraps err so that errors.Is(err, ErrUnreachable) holds
func Unreachable(err error) error {
	if err == nil || errors.Is(err, ErrUnreachable) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrUnreachable, err)
}

// IsUnreachable reports whether err is a connectivity failure
func IsUnreachable(err error) bool {
	return errors.Is(err, ErrUnreachable)
}

// Record is the set of counters for one user
type Record struct {
	User string `json:"user"`
	Win  uint64 `json:"win"`
	Loss uint64 `json:"loss"`
	Draw uint64 `json:"draw"`
}

// NewRecord returns an empty record for user
func NewRecord(user string) Record {
	return Record{User: user}
}

// Total returns the number of rounds recorded
func (r Record) Total() uint64 {
	return r.Win + r.Loss + r.Draw
}

// Add bumps the counter matching outcome by one
func (r *Record) Add(outcome game.Outcome) {
	switch outcome {
	case game.Win:
		r.Win++
	case game.Draw:
		r.Draw++
	default:
		r.Loss++
	}
}

// delta returns the per-counter increments for outcome
func delta(outcome game.Outcome) (win, loss, draw uint64) {
	var r Record
	r.Add(outcome)
	return r.Win, r.Loss, r.Draw
}

// Store is the contract the round resolution flow needs.
type Store interface {
	// Get returns the user's record, or a zero record when none exists.
	Get(ctx context.Context, user string) (Record, error)
	// Increment bumps the counter for outcome and returns the updated record.
	Increment(ctx context.Context, user string, outcome game.Outcome) (Record, error)
	// Delete removes the user's record. ErrNotFound when there was none.
	Delete(ctx context.Context, user string) error
}

// Repository is a durable Store with the extra operations used by record
// management and health checks.
type Repository interface {
	Store
	// Find returns the user's record or ErrNotFound.
	Find(ctx context.Context, user string) (Record, error)
	// Put replaces the user's record, creating it if needed.
	Put(ctx context.Context, record Record) error
	// Count returns the number of stored records.
	Count(ctx context.Context) (int64, error)
	// Ping checks connectivity.
	Ping(ctx context.Context) error
	Close() error
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		d = DefaultTimeout
	}
	return context.WithTimeout(ctx, d)
}
