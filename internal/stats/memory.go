package stats

import (
	"context"
	"errors"
	"sync"

	"github.com/lox/blackjack/internal/game"
)

var errOffline = errors.New("memory store offline")

// MemoryStore is an in-process Repository. It backs the "memory" stats
// backend and can be switched offline to rehearse store outages.
type MemoryStore struct {
	mu      sync.Mutex
	records map[string]Record
	offline bool
}

// NewMemoryStore creates an empty store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]Record)}
}

// SetOffline makes every call fail with ErrUnreachable until switched back
func (m *MemoryStore) SetOffline(offline bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.offline = offline
}

func (m *MemoryStore) check(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return Unreachable(err)
	}
	if m.offline {
		return Unreachable(errOffline)
	}
	return nil
}

func (m *MemoryStore) Get(ctx context.Context, user string) (Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check(ctx); err != nil {
		return NewRecord(user), err
	}
	if r, ok := m.records[user]; ok {
		return r, nil
	}
	return NewRecord(user), nil
}

func (m *MemoryStore) Increment(ctx context.Context, user string, outcome game.Outcome) (Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check(ctx); err != nil {
		return Record{}, err
	}
	r, ok := m.records[user]
	if !ok {
		r = NewRecord(user)
	}
	r.Add(outcome)
	m.records[user] = r
	return r, nil
}

func (m *MemoryStore) Delete(ctx context.Context, user string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check(ctx); err != nil {
		return err
	}
	if _, ok := m.records[user]; !ok {
		return ErrNotFound
	}
	delete(m.records, user)
	return nil
}

func (m *MemoryStore) Find(ctx context.Context, user string) (Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check(ctx); err != nil {
		return Record{}, err
	}
	r, ok := m.records[user]
	if !ok {
		return Record{}, ErrNotFound
	}
	return r, nil
}

func (m *MemoryStore) Put(ctx context.Context, record Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check(ctx); err != nil {
		return err
	}
	m.records[record.User] = record
	return nil
}

func (m *MemoryStore) Count(ctx context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check(ctx); err != nil {
		return 0, err
	}
	return int64(len(m.records)), nil
}

func (m *MemoryStore) Ping(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.check(ctx)
}

func (m *MemoryStore) Close() error {
	return nil
}
