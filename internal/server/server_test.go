package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/blackjack/internal/game"
	"github.com/lox/blackjack/internal/stats"
)

type testServer struct {
	*fixture
	server *Server
	http   *httptest.Server
	client *http.Client
}

func newTestServer(t *testing.T, cards string) *testServer {
	t.Helper()

	f := newFixture(t, cards)
	srv := NewServer("127.0.0.1:0", f.game, f.sessions, testLogger())
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		ts.Close()
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	})

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)

	return &testServer{
		fixture: f,
		server:  srv,
		http:    ts,
		client:  &http.Client{Jar: jar, Timeout: 5 * time.Second},
	}
}

func (ts *testServer) do(t *testing.T, method, path, body string) (int, []byte) {
	t.Helper()

	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, ts.http.URL+path, r)
	require.NoError(t, err)

	resp, err := ts.client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, b
}

func (ts *testServer) getJSON(t *testing.T, path string, v any) int {
	t.Helper()
	status, body := ts.do(t, http.MethodGet, path, "")
	require.NoError(t, json.Unmarshal(body, v), "body: %s", body)
	return status
}

func TestIndexStartsAndResumesRound(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t, "10s 6h 9d 8c")

	var view RoundView
	require.Equal(t, http.StatusOK, ts.getJSON(t, "/", &view))
	assert.Equal(t, game.PlayerTurn, view.Phase)
	assert.Equal(t, []string{"10♠", "6♥"}, view.PlayerHand)
	assert.Equal(t, []string{"9♦", "?"}, view.DealerHand)
	assert.Equal(t, "default", view.Stats.User)

	var again RoundView
	require.Equal(t, http.StatusOK, ts.getJSON(t, "/", &again))
	assert.Equal(t, view, again)
	assert.Equal(t, 1, ts.sessions.Len(), "cookie keeps the same session")
}

func TestSessionCookieIsSet(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t, "")

	resp, err := http.Get(ts.http.URL + "/")
	require.NoError(t, err)
	defer resp.Body.Close()

	var found bool
	for _, c := range resp.Cookies() {
		if c.Name == SessionCookie {
			found = true
			assert.True(t, c.HttpOnly)
			assert.Len(t, c.Value, 26)
		}
	}
	assert.True(t, found, "session cookie missing")
}

func TestStandRoute(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t, "10s 10h 9d 8c")

	var view RoundView
	ts.getJSON(t, "/?user=alice", &view)

	var outcome RoundOutcome
	require.Equal(t, http.StatusOK, ts.getJSON(t, "/stand?user=alice", &outcome))
	assert.Equal(t, game.Win, outcome.Outcome)
	assert.Equal(t, "You win!", outcome.Message)
	assert.Equal(t, []string{"9♦", "8♣"}, outcome.DealerHand)
	assert.Equal(t, stats.Record{User: "alice", Win: 1}, outcome.Stats)

	r, err := ts.store.Find(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), r.Win)

	var errBody errorBody
	assert.Equal(t, http.StatusConflict, ts.getJSON(t, "/stand?user=alice", &errBody))
	assert.NotEmpty(t, errBody.Error)
}

func TestHitRoute(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t, "10s 6h 9d 8c 10h")

	var errBody errorBody
	assert.Equal(t, http.StatusConflict, ts.getJSON(t, "/hit", &errBody), "no round yet")

	var view RoundView
	ts.getJSON(t, "/", &view)

	var outcome RoundOutcome
	require.Equal(t, http.StatusOK, ts.getJSON(t, "/hit", &outcome))
	assert.Equal(t, game.Lose, outcome.Outcome)
	assert.Equal(t, 26, outcome.PlayerScore)
}

func TestUserHeader(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t, "10s 10h 9d 8c")

	for _, path := range []string{"/", "/stand"} {
		req, err := http.NewRequest(http.MethodGet, ts.http.URL+path, nil)
		require.NoError(t, err)
		req.Header.Set(UserHeader, "carol")
		resp, err := ts.client.Do(req)
		require.NoError(t, err)
		resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)
	}

	r, err := ts.store.Find(context.Background(), "carol")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), r.Win)
}

func TestResetRoutes(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t, "10s 10h 9d 8c")

	var view RoundView
	ts.getJSON(t, "/", &view)
	var outcome RoundOutcome
	ts.getJSON(t, "/stand", &outcome)
	require.Equal(t, uint64(1), outcome.Stats.Win)

	require.Equal(t, http.StatusOK, ts.getJSON(t, "/reset", &view))
	assert.Equal(t, game.PlayerTurn, view.Phase)
	assert.Equal(t, uint64(1), view.Stats.Win)

	require.Equal(t, http.StatusOK, ts.getJSON(t, "/reset_stats", &view))
	assert.Equal(t, uint64(0), view.Stats.Win)
	_, err := ts.store.Find(context.Background(), "default")
	assert.ErrorIs(t, err, stats.ErrNotFound)
}

func TestStandWhileStoreOffline(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t, "10s 10h 9d 8c")
	ts.store.SetOffline(true)

	var view RoundView
	require.Equal(t, http.StatusOK, ts.getJSON(t, "/", &view))

	var outcome RoundOutcome
	require.Equal(t, http.StatusOK, ts.getJSON(t, "/stand", &outcome))
	assert.Equal(t, uint64(1), outcome.Stats.Win)

	require.Equal(t, http.StatusOK, ts.getJSON(t, "/", &view))
	assert.Equal(t, uint64(1), view.Stats.Win, "session keeps its fallback stats")
}

func TestHealthRoute(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t, "")

	var h Health
	require.Equal(t, http.StatusOK, ts.getJSON(t, "/health", &h))
	assert.Equal(t, HealthOK, h.Status)
	assert.True(t, h.StoreReachable)
	assert.Nil(t, h.DefaultRecord)

	ts.store.SetOffline(true)
	h = Health{}
	require.Equal(t, http.StatusInternalServerError, ts.getJSON(t, "/health", &h))
	assert.Equal(t, HealthDBError, h.Status)
	assert.NotEmpty(t, h.Error)
}

func TestEchoRoute(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t, "")

	status, body := ts.do(t, http.MethodPost, "/echo", `{"hello": ["world", 1]}`)
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"received": {"hello": ["world", 1]}}`, string(body))

	status, body = ts.do(t, http.MethodPost, "/echo", `{"hello": `)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, string(body), "error")

	status, _ = ts.do(t, http.MethodGet, "/echo", "")
	assert.Equal(t, http.StatusMethodNotAllowed, status)
}

func TestPersonRoutes(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t, "")

	status, body := ts.do(t, http.MethodGet, "/person/bob", "")
	assert.Equal(t, http.StatusNotFound, status)
	assert.JSONEq(t, `{"error": "User not found"}`, string(body))

	status, _ = ts.do(t, http.MethodPut, "/person/bob", `[1, 2]`)
	assert.Equal(t, http.StatusBadRequest, status)

	status, body = ts.do(t, http.MethodPut, "/person/bob", `{"win": 4, "loss": 2, "draw": 1}`)
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"user": "bob", "stats": {"win": 4, "loss": 2, "draw": 1}, "message": "Stats updated"}`, string(body))

	status, body = ts.do(t, http.MethodGet, "/person/bob", "")
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"user": "bob", "stats": {"win": 4, "loss": 2, "draw": 1}}`, string(body))

	status, _ = ts.do(t, http.MethodDelete, "/person/bob", "")
	assert.Equal(t, http.StatusOK, status)
	status, _ = ts.do(t, http.MethodDelete, "/person/bob", "")
	assert.Equal(t, http.StatusNotFound, status)
}

func TestPersonRoutesStoreOffline(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t, "")
	ts.store.SetOffline(true)

	for _, method := range []string{http.MethodGet, http.MethodDelete} {
		status, body := ts.do(t, method, "/person/bob", "")
		assert.Equal(t, http.StatusServiceUnavailable, status, method)
		assert.JSONEq(t, `{"error": "Database not available"}`, string(body))
	}
	status, _ := ts.do(t, http.MethodPut, "/person/bob", `{"win": 1}`)
	assert.Equal(t, http.StatusServiceUnavailable, status)
}

func TestStatsRoute(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t, "10s 10h 9d 8c")

	var view RoundView
	ts.getJSON(t, "/", &view)
	var outcome RoundOutcome
	ts.getJSON(t, "/stand", &outcome)

	status, body := ts.do(t, http.MethodGet, "/stats", "")
	require.Equal(t, http.StatusOK, status)
	text := string(body)
	assert.Contains(t, text, "rounds_started 1\n")
	assert.Contains(t, text, "rounds_finished 1\n")
	assert.Contains(t, text, "wins 1\n")
	assert.Contains(t, text, "win_rate 100.0\n")
	assert.Contains(t, text, "sessions 1\n")
}

func TestWaitForHealthy(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t, "")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, WaitForHealthy(ctx, ts.http.URL))

	ts.store.SetOffline(true)
	ctx, cancel = context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, WaitForHealthy(ctx, ts.http.URL), context.DeadlineExceeded)
}
