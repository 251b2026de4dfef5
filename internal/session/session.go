// Package session holds per-client state between requests: the round in
// progress and the client's ephemeral stats.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"

	"github.com/lox/blackjack/internal/game"
	"github.com/lox/blackjack/internal/sessionid"
	"github.com/lox/blackjack/internal/stats"
)

// DefaultTTL is how long an idle session is kept
const DefaultTTL = 30 * time.Minute

// Session is one client's state. Callers hold the embedded mutex while
// reading or changing Round and Stats.
type Session struct {
	sync.Mutex

	ID    string
	User  string
	Round *game.Round
	Stats stats.Ephemeral

	lastSeen time.Time
}

// ClearRound discards the round in progress, if any
func (s *Session) ClearRound() {
	s.Round = nil
}

// Store keeps sessions in memory and expires them after a period of
// inactivity.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*Session
	ids      *sessionid.Generator
	clock    quartz.Clock
	ttl      time.Duration
	logger   *log.Logger
}

// NewStore creates a session store. A nil clock uses the real clock.
func NewStore(clock quartz.Clock, ttl time.Duration, logger *log.Logger) *Store {
	if clock == nil {
		clock = quartz.NewReal()
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{
		sessions: make(map[string]*Session),
		ids:      sessionid.NewGenerator(clock, nil),
		clock:    clock,
		ttl:      ttl,
		logger:   logger.WithPrefix("session"),
	}
}

// New creates and registers an empty session for user
func (s *Store) New(user string) (*Session, error) {
	id, err := s.ids.Generate()
	if err != nil {
		return nil, err
	}

	sess := &Session{ID: id, User: user, lastSeen: s.clock.Now()}

	s.mu.Lock()
	s.sessions[id] = sess
	s.mu.Unlock()

	s.logger.Debug("Session created", "id", id, "user", user)
	return sess, nil
}

// Get returns the live session with id and marks it as used. Expired
// sessions are dropped and reported as missing.
func (s *Store) Get(id string) (*Session, bool) {
	if sessionid.Validate(id) != nil {
		return nil, false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return nil, false
	}
	now := s.clock.Now()
	if now.Sub(sess.lastSeen) > s.ttl {
		delete(s.sessions, id)
		return nil, false
	}
	sess.lastSeen = now
	return sess, true
}

// Load returns the session with id, or a new one for user when id is
// unknown or expired. created reports which happened.
func (s *Store) Load(id, user string) (sess *Session, created bool, err error) {
	if sess, ok := s.Get(id); ok {
		return sess, false, nil
	}
	sess, err = s.New(user)
	return sess, true, err
}

// Delete drops the session with id
func (s *Store) Delete(id string) {
	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()
}

// Len returns the number of sessions held, including expired ones not yet
// reaped.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Reap removes expired sessions and returns how many were removed
func (s *Store) Reap() int {
	now := s.clock.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, sess := range s.sessions {
		if now.Sub(sess.lastSeen) > s.ttl {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}

// Run reaps expired sessions every half TTL until ctx is done
func (s *Store) Run(ctx context.Context) error {
	s.logger.Info("Session reaper started", "ttl", s.ttl)

	w := s.clock.TickerFunc(ctx, s.ttl/2, func() error {
		if n := s.Reap(); n > 0 {
			s.logger.Debug("Reaped sessions", "count", n, "remaining", s.Len())
		}
		return nil
	}, "session", "reaper")

	err := w.Wait()
	if ctx.Err() != nil {
		return nil
	}
	return err
}
