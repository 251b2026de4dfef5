package stats

import (
	"context"
	"errors"

	"github.com/charmbracelet/log"

	"github.com/lox/blackjack/internal/game"
)

// Fallback tries the durable store first and falls back to the session's
// ephemeral counters when the durable store is unreachable. Ephemeral
// updates are never copied back into the durable store.
type Fallback struct {
	durable   Store
	ephemeral *Ephemeral
	logger    *log.Logger

	// OnFallback, if set, is called each time an update lands only in the
	// ephemeral counters.
	OnFallback func(user string, err error)
}

// NewFallback composes durable with a session's ephemeral counters
func NewFallback(durable Store, ephemeral *Ephemeral, logger *log.Logger) *Fallback {
	return &Fallback{
		durable:   durable,
		ephemeral: ephemeral,
		logger:    logger.WithPrefix("stats"),
	}
}

// Get returns the durable record when the store is reachable. Otherwise it
// returns the session's last known record, or a zero record. It never fails.
func (f *Fallback) Get(ctx context.Context, user string) (Record, error) {
	r, err := f.durable.Get(ctx, user)
	if err == nil {
		return r, nil
	}

	if IsUnreachable(err) {
		f.logger.Warn("Stats store unreachable, using session stats", "user", user, "error", err)
	} else {
		f.logger.Error("Failed to read stats", "user", user, "error", err)
	}
	return f.ephemeral.Get(ctx, user)
}

// Increment records outcome durably and remembers the result in the
// session. If the durable store is unreachable the session copy is bumped
// instead and returned.
func (f *Fallback) Increment(ctx context.Context, user string, outcome game.Outcome) (Record, error) {
	r, err := f.durable.Increment(ctx, user, outcome)
	if err == nil {
		f.ephemeral.Set(r)
		return r, nil
	}
	if !IsUnreachable(err) {
		return Record{}, err
	}

	f.logger.Warn("Failed to update stats, keeping session stats", "user", user, "outcome", outcome, "error", err)
	if f.OnFallback != nil {
		f.OnFallback(user, err)
	}
	return f.ephemeral.Increment(ctx, user, outcome)
}

// Delete removes the durable record when reachable and always clears the
// session copy. A missing record is not an error.
func (f *Fallback) Delete(ctx context.Context, user string) error {
	_ = f.ephemeral.Delete(ctx, user)

	err := f.durable.Delete(ctx, user)
	switch {
	case err == nil, errors.Is(err, ErrNotFound):
		return nil
	case IsUnreachable(err):
		f.logger.Warn("Stats store unreachable, cleared session stats only", "user", user, "error", err)
		return nil
	default:
		return err
	}
}
