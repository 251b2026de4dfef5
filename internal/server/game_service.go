package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/lox/blackjack/internal/deck"
	"github.com/lox/blackjack/internal/game"
	"github.com/lox/blackjack/internal/session"
	"github.com/lox/blackjack/internal/stats"
)

var (
	// ErrNoRound is returned by Hit and Stand when the session has no round
	ErrNoRound = errors.New("no round in progress")

	// ErrInvalidPayload rejects a malformed record body
	ErrInvalidPayload = errors.New("invalid payload")
)

// Health statuses
const (
	HealthOK      = "ok"
	HealthDBError = "db_error"
)

// RoundView is an in-progress round with the player's current stats
type RoundView struct {
	game.View
	Stats stats.Record `json:"stats"`
}

// RoundOutcome is a resolved round with the stats after recording it
type RoundOutcome struct {
	game.Result
	Stats stats.Record `json:"stats"`
}

// Health reports whether the durable stats store is usable
type Health struct {
	Status         string        `json:"status"`
	StoreReachable bool          `json:"storeReachable"`
	RecordCount    int64         `json:"recordCount"`
	DefaultRecord  *stats.Record `json:"defaultRecord"`
	Error          string        `json:"error,omitempty"`
}

// GameService plays rounds for sessions and manages stats records. Session
// methods expect the caller to hold the session lock.
type GameService struct {
	dealer      deck.Dealer
	repo        stats.Repository
	defaultUser string
	logger      *log.Logger
	counters    *Counters
}

// NewGameService creates a game service dealing from dealer and recording
// outcomes in repo
func NewGameService(dealer deck.Dealer, repo stats.Repository, defaultUser string, logger *log.Logger) *GameService {
	return &GameService{
		dealer:      dealer,
		repo:        repo,
		defaultUser: defaultUser,
		logger:      logger.WithPrefix("game"),
		counters:    &Counters{},
	}
}

// Counters returns the service's activity counters
func (g *GameService) Counters() *Counters {
	return g.counters
}

// DefaultUser is the stats key used when a request names no user
func (g *GameService) DefaultUser() string {
	return g.defaultUser
}

func (g *GameService) statsFor(sess *session.Session) *stats.Fallback {
	f := stats.NewFallback(g.repo, &sess.Stats, g.logger)
	f.OnFallback = func(string, error) {
		g.counters.Fallbacks.Add(1)
	}
	return f
}

// SessionStats returns the stats shown to the session's user
func (g *GameService) SessionStats(ctx context.Context, sess *session.Session) stats.Record {
	r, _ := g.statsFor(sess).Get(ctx, sess.User)
	return r
}

// StartOrResumeRound deals a new round if the session has none, and
// returns the round as the player sees it.
func (g *GameService) StartOrResumeRound(ctx context.Context, sess *session.Session) RoundView {
	if sess.Round == nil {
		sess.Round = game.NewRound(g.dealer)
		g.counters.RoundsStarted.Add(1)
		g.logger.Info("New round started", "session", sess.ID, "user", sess.User, "playerScore", sess.Round.PlayerScore())
	}

	return RoundView{
		View:  sess.Round.View(),
		Stats: g.SessionStats(ctx, sess),
	}
}

// Hit deals the player a card. When the card busts the player the round is
// resolved and recorded, and the outcome is returned instead of a view.
func (g *GameService) Hit(ctx context.Context, sess *session.Session) (RoundView, *RoundOutcome, error) {
	if sess.Round == nil {
		return RoundView{}, nil, ErrNoRound
	}
	if err := sess.Round.Hit(g.dealer); err != nil {
		return RoundView{}, nil, err
	}

	g.logger.Info("Player hits", "session", sess.ID, "playerScore", sess.Round.PlayerScore())

	if sess.Round.IsResolved() {
		g.logger.Info("Player busts", "session", sess.ID, "playerScore", sess.Round.PlayerScore())
		outcome := g.finish(ctx, sess)
		return RoundView{}, &outcome, nil
	}

	return RoundView{
		View:  sess.Round.View(),
		Stats: g.SessionStats(ctx, sess),
	}, nil, nil
}

// Stand plays out the dealer's hand, resolves the round and records the
// outcome once.
func (g *GameService) Stand(ctx context.Context, sess *session.Session) (RoundOutcome, error) {
	if sess.Round == nil {
		return RoundOutcome{}, ErrNoRound
	}
	if err := sess.Round.Stand(g.dealer); err != nil {
		return RoundOutcome{}, err
	}

	g.logger.Info("Player stands", "session", sess.ID, "dealerScore", sess.Round.DealerScore())
	return g.finish(ctx, sess), nil
}

// finish records a resolved round and clears it from the session
func (g *GameService) finish(ctx context.Context, sess *session.Session) RoundOutcome {
	result, _ := sess.Round.Result()
	sess.ClearRound()

	record, err := g.statsFor(sess).Increment(ctx, sess.User, result.Outcome)
	if err != nil {
		// the round still counts in the session copy
		g.logger.Error("Failed to update stats", "session", sess.ID, "user", sess.User, "error", err)
		record, _ = sess.Stats.Increment(ctx, sess.User, result.Outcome)
	}
	g.counters.RecordOutcome(result.Outcome)

	g.logger.Info("Round result",
		"session", sess.ID,
		"user", sess.User,
		"playerScore", result.PlayerScore,
		"dealerScore", result.DealerScore,
		"outcome", result.Outcome,
		"win", record.Win,
		"loss", record.Loss,
		"draw", record.Draw,
	)

	return RoundOutcome{Result: result, Stats: record}
}

// ResetRound discards the session's round, if any
func (g *GameService) ResetRound(sess *session.Session) {
	sess.ClearRound()
	g.logger.Info("Round reset", "session", sess.ID)
}

// ResetStats deletes the user's durable record and the session's copy
func (g *GameService) ResetStats(ctx context.Context, sess *session.Session) error {
	if err := g.statsFor(sess).Delete(ctx, sess.User); err != nil {
		return fmt.Errorf("reset stats for %s: %w", sess.User, err)
	}
	g.logger.Info("Stats reset", "session", sess.ID, "user", sess.User)
	return nil
}

// GetRecord returns the durable record for user or stats.ErrNotFound
func (g *GameService) GetRecord(ctx context.Context, user string) (stats.Record, error) {
	r, err := g.repo.Find(ctx, user)
	if err != nil {
		g.logRecordError("Record lookup failed", user, err)
		return stats.Record{}, err
	}
	g.logger.Info("Record fetched", "user", user)
	return r, nil
}

// PutRecord replaces the record for user with the counters in payload. The
// payload must be a non-empty JSON object holding only win, loss and draw.
func (g *GameService) PutRecord(ctx context.Context, user string, payload json.RawMessage) (stats.Record, error) {
	r, err := decodeRecord(user, payload)
	if err != nil {
		g.logger.Warn("Rejected record update", "user", user, "error", err)
		return stats.Record{}, err
	}
	if err := g.repo.Put(ctx, r); err != nil {
		g.logRecordError("Record update failed", user, err)
		return stats.Record{}, err
	}
	g.logger.Info("Record updated", "user", user)
	return r, nil
}

// DeleteRecord removes the durable record for user or returns
// stats.ErrNotFound
func (g *GameService) DeleteRecord(ctx context.Context, user string) error {
	if err := g.repo.Delete(ctx, user); err != nil {
		g.logRecordError("Record delete failed", user, err)
		return err
	}
	g.logger.Info("Record deleted", "user", user)
	return nil
}

func (g *GameService) logRecordError(msg, user string, err error) {
	if errors.Is(err, stats.ErrNotFound) {
		g.logger.Warn(msg, "user", user, "error", err)
		return
	}
	g.logger.Error(msg, "user", user, "error", err)
}

// HealthCheck probes the durable store. Failures, including panics from the
// store, are reported in the returned status.
func (g *GameService) HealthCheck(ctx context.Context) (h Health) {
	defer func() {
		if r := recover(); r != nil {
			h = Health{Status: HealthDBError, Error: fmt.Sprint(r)}
			g.logger.Error("Health check failed", "error", h.Error)
		}
	}()

	fail := func(err error) Health {
		g.logger.Error("Health check failed", "error", err)
		return Health{Status: HealthDBError, Error: err.Error()}
	}

	if err := g.repo.Ping(ctx); err != nil {
		return fail(err)
	}
	count, err := g.repo.Count(ctx)
	if err != nil {
		return fail(err)
	}

	h = Health{Status: HealthOK, StoreReachable: true, RecordCount: count}
	r, err := g.repo.Find(ctx, g.defaultUser)
	switch {
	case err == nil:
		h.DefaultRecord = &r
	case errors.Is(err, stats.ErrNotFound):
	default:
		return fail(err)
	}

	g.logger.Info("Health check", "status", h.Status, "records", count)
	return h
}

type recordPayload struct {
	Win  *uint64 `json:"win"`
	Loss *uint64 `json:"loss"`
	Draw *uint64 `json:"draw"`
}

func decodeRecord(user string, payload json.RawMessage) (stats.Record, error) {
	if strings.TrimSpace(user) == "" {
		return stats.Record{}, fmt.Errorf("%w: user is required", ErrInvalidPayload)
	}

	body := bytes.TrimSpace(payload)
	if len(body) == 0 || body[0] != '{' {
		return stats.Record{}, fmt.Errorf("%w: expected a JSON object", ErrInvalidPayload)
	}

	var p recordPayload
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&p); err != nil {
		return stats.Record{}, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return stats.Record{}, fmt.Errorf("%w: unexpected data after object", ErrInvalidPayload)
	}
	if p.Win == nil && p.Loss == nil && p.Draw == nil {
		return stats.Record{}, fmt.Errorf("%w: no counters given", ErrInvalidPayload)
	}

	r := stats.NewRecord(user)
	if p.Win != nil {
		r.Win = *p.Win
	}
	if p.Loss != nil {
		r.Loss = *p.Loss
	}
	if p.Draw != nil {
		r.Draw = *p.Draw
	}
	return r, nil
}
