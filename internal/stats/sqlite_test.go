package stats

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/blackjack/internal/game"
)

func openTempSQLite(t *testing.T) *SQLiteStore {
	t.Helper()

	store, err := OpenSQLite(filepath.Join(t.TempDir(), "stats.db"), 0)
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, store.Close())
	})
	return store
}

func TestOpenSQLiteRequiresPath(t *testing.T) {
	t.Parallel()

	_, err := OpenSQLite("  ", 0)
	require.Error(t, err)
}

func TestSQLiteIncrementAndGet(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := openTempSQLite(t)

	got, err := store.Get(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, NewRecord("alice"), got, "missing users read as zero")

	r, err := store.Increment(ctx, "alice", game.Win)
	require.NoError(t, err)
	assert.Equal(t, Record{User: "alice", Win: 1}, r)

	got, err = store.Get(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, Record{User: "alice", Win: 1}, got)

	_, err = store.Increment(ctx, "alice", game.Lose)
	require.NoError(t, err)
	r, err = store.Increment(ctx, "alice", game.Draw)
	require.NoError(t, err)
	assert.Equal(t, Record{User: "alice", Win: 1, Loss: 1, Draw: 1}, r)
}

func TestSQLiteConcurrentIncrements(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := openTempSQLite(t)

	const n = 20
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.Increment(ctx, "racer", game.Win)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	got, err := store.Find(ctx, "racer")
	require.NoError(t, err)
	assert.Equal(t, uint64(n), got.Win)
}

func TestSQLiteRecordCRUD(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := openTempSQLite(t)

	_, err := store.Find(ctx, "bob")
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.Put(ctx, Record{User: "bob", Win: 4, Loss: 5, Draw: 6}))
	require.NoError(t, store.Put(ctx, Record{User: "carol"}))

	got, err := store.Find(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, Record{User: "bob", Win: 4, Loss: 5, Draw: 6}, got)

	require.NoError(t, store.Put(ctx, Record{User: "bob", Win: 1}))
	got, err = store.Find(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, Record{User: "bob", Win: 1}, got, "put replaces the counters")

	n, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	require.NoError(t, store.Delete(ctx, "bob"))
	require.ErrorIs(t, store.Delete(ctx, "bob"), ErrNotFound)

	n, err = store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	require.NoError(t, store.Ping(ctx))
}

func TestSQLiteReopenKeepsData(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "stats.db")

	store, err := OpenSQLite(path, 0)
	require.NoError(t, err)
	_, err = store.Increment(ctx, "dave", game.Draw)
	require.NoError(t, err)
	require.NoError(t, store.Close())

	store, err = OpenSQLite(path, 0)
	require.NoError(t, err)
	defer store.Close()

	got, err := store.Find(ctx, "dave")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), got.Draw)
}

func TestSQLiteCanceledContextIsUnreachable(t *testing.T) {
	t.Parallel()
	store := openTempSQLite(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := store.Increment(ctx, "erin", game.Win)
	require.Error(t, err)
	assert.True(t, IsUnreachable(err), "expected unreachable, got %v", err)
}

func TestMigrationVersion(t *testing.T) {
	t.Parallel()

	v, err := migrationVersion("migrations/0001_user_stats.sql")
	require.NoError(t, err)
	assert.Equal(t, 1, v)

	_, err = migrationVersion("user_stats.sql")
	assert.Error(t, err)
}
