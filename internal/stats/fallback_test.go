package stats

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/blackjack/internal/game"
)

func testLogger() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{})
}

func TestFallbackIncrementDurable(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	durable := NewMemoryStore()
	session := &Ephemeral{}
	f := NewFallback(durable, session, testLogger())

	r, err := f.Increment(ctx, "alice", game.Win)
	require.NoError(t, err)
	assert.Equal(t, Record{User: "alice", Win: 1}, r)

	got, err := f.Get(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, Record{User: "alice", Win: 1}, got)

	shadow, ok := session.Lookup("alice")
	require.True(t, ok, "session should remember the last durable record")
	assert.Equal(t, r, shadow)
}

func TestFallbackSequentialIncrements(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	f := NewFallback(NewMemoryStore(), &Ephemeral{}, testLogger())
	for _, o := range []game.Outcome{game.Win, game.Lose, game.Draw} {
		_, err := f.Increment(ctx, "bob", o)
		require.NoError(t, err)
	}

	got, err := f.Get(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, Record{User: "bob", Win: 1, Loss: 1, Draw: 1}, got)
}

func TestFallbackWhenUnreachable(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	durable := NewMemoryStore()
	session := &Ephemeral{}
	f := NewFallback(durable, session, testLogger())

	var fallbacks int
	f.OnFallback = func(string, error) { fallbacks++ }

	first, err := f.Increment(ctx, "carol", game.Win)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), first.Win)

	durable.SetOffline(true)

	second, err := f.Increment(ctx, "carol", game.Win)
	require.NoError(t, err, "increment must not fail when the store is down")
	assert.Equal(t, first.Win+1, second.Win, "bump is relative to the previous result in this session")

	third, err := f.Increment(ctx, "carol", game.Lose)
	require.NoError(t, err)
	assert.Equal(t, Record{User: "carol", Win: 2, Loss: 1}, third)
	assert.Equal(t, 2, fallbacks)

	got, err := f.Get(ctx, "carol")
	require.NoError(t, err)
	assert.Equal(t, third, got, "session stats are reported while the store is down")

	// no reconciliation once the store is back
	durable.SetOffline(false)
	got, err = f.Get(ctx, "carol")
	require.NoError(t, err)
	assert.Equal(t, Record{User: "carol", Win: 1}, got)
}

func TestFallbackGetUnreachableWithoutSessionStats(t *testing.T) {
	t.Parallel()

	durable := NewMemoryStore()
	durable.SetOffline(true)
	f := NewFallback(durable, &Ephemeral{}, testLogger())

	got, err := f.Get(context.Background(), "dave")
	require.NoError(t, err)
	assert.Equal(t, NewRecord("dave"), got)
}

func TestFallbackDelete(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	durable := NewMemoryStore()
	session := &Ephemeral{}
	f := NewFallback(durable, session, testLogger())

	_, err := f.Increment(ctx, "erin", game.Draw)
	require.NoError(t, err)

	require.NoError(t, f.Delete(ctx, "erin"))
	_, err = durable.Find(ctx, "erin")
	assert.ErrorIs(t, err, ErrNotFound)
	_, ok := session.Lookup("erin")
	assert.False(t, ok)

	// deleting again is fine
	require.NoError(t, f.Delete(ctx, "erin"))

	// offline delete still clears the session
	_, err = f.Increment(ctx, "erin", game.Win)
	require.NoError(t, err)
	durable.SetOffline(true)
	require.NoError(t, f.Delete(ctx, "erin"))
	_, ok = session.Lookup("erin")
	assert.False(t, ok)

	durable.SetOffline(false)
	r, err := durable.Find(ctx, "erin")
	require.NoError(t, err, "durable record survives an offline delete")
	assert.Equal(t, uint64(1), r.Win)
}

type failingStore struct {
	MemoryStore
	err error
}

func (s *failingStore) Increment(context.Context, string, game.Outcome) (Record, error) {
	return Record{}, s.err
}

func TestFallbackPropagatesUnclassifiedErrors(t *testing.T) {
	t.Parallel()

	boom := errors.New("constraint violated")
	session := &Ephemeral{}
	f := NewFallback(&failingStore{err: boom}, session, testLogger())

	_, err := f.Increment(context.Background(), "frank", game.Win)
	require.ErrorIs(t, err, boom)
	_, ok := session.Lookup("frank")
	assert.False(t, ok, "only connectivity failures fall back")
}

func TestUnreachableWrapping(t *testing.T) {
	t.Parallel()

	base := errors.New("dial tcp: connection refused")
	err := Unreachable(base)
	assert.True(t, IsUnreachable(err))
	assert.ErrorIs(t, err, base)
	assert.Equal(t, err, Unreachable(err))
	assert.Nil(t, Unreachable(nil))
}
