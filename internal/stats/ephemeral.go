package stats

import (
	"context"

	"github.com/lox/blackjack/internal/game"
)

// Ephemeral holds counters in the caller's session. It is never shared
// between sessions and never written back to a durable store, so it needs
// no locking.
type Ephemeral struct {
	records map[string]Record
}

// Lookup returns the session's copy for user, if any
func (e *Ephemeral) Lookup(user string) (Record, bool) {
	r, ok := e.records[user]
	return r, ok
}

// Set replaces the session's copy for user
func (e *Ephemeral) Set(r Record) {
	if e.records == nil {
		e.records = make(map[string]Record)
	}
	e.records[r.User] = r
}

// Get returns the session's copy or a zero record
func (e *Ephemeral) Get(_ context.Context, user string) (Record, error) {
	if r, ok := e.Lookup(user); ok {
		return r, nil
	}
	return NewRecord(user), nil
}

// Increment bumps the session's copy, starting from zero if there is none
func (e *Ephemeral) Increment(ctx context.Context, user string, outcome game.Outcome) (Record, error) {
	r, _ := e.Get(ctx, user)
	r.Add(outcome)
	e.Set(r)
	return r, nil
}

// Delete drops the session's copy
func (e *Ephemeral) Delete(_ context.Context, user string) error {
	if _, ok := e.records[user]; !ok {
		return ErrNotFound
	}
	delete(e.records, user)
	return nil
}
