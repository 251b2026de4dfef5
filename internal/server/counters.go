package server

import (
	"fmt"
	"io"
	"sync/atomic"

	"github.com/lox/blackjack/internal/game"
)

// Counters tracks server activity since start
type Counters struct {
	RoundsStarted atomic.Uint64
	Wins          atomic.Uint64
	Losses        atomic.Uint64
	Draws         atomic.Uint64
	Fallbacks     atomic.Uint64
	Connections   atomic.Int64
}

// RecordOutcome counts a finished round
func (c *Counters) RecordOutcome(o game.Outcome) {
	switch o {
	case game.Win:
		c.Wins.Add(1)
	case game.Draw:
		c.Draws.Add(1)
	default:
		c.Losses.Add(1)
	}
}

// RoundsFinished returns the number of resolved rounds
func (c *Counters) RoundsFinished() uint64 {
	return c.Wins.Load() + c.Losses.Load() + c.Draws.Load()
}

// WriteText writes the counters as "name value" lines
func (c *Counters) WriteText(w io.Writer, sessions int) error {
	finished := c.RoundsFinished()
	winRate := 0.0
	if finished > 0 {
		winRate = float64(c.Wins.Load()) / float64(finished) * 100
	}

	_, err := fmt.Fprintf(w,
		"rounds_started %d\nrounds_finished %d\nwins %d\nlosses %d\ndraws %d\nwin_rate %.1f\nstats_fallbacks %d\nsessions %d\nconnections %d\n",
		c.RoundsStarted.Load(),
		finished,
		c.Wins.Load(),
		c.Losses.Load(),
		c.Draws.Load(),
		winRate,
		c.Fallbacks.Load(),
		sessions,
		c.Connections.Load(),
	)
	return err
}
