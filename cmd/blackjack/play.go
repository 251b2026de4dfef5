package main

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/lox/blackjack/internal/client"
	"github.com/lox/blackjack/internal/tui"
)

// PlayCmd connects to a server and plays in the terminal
type PlayCmd struct {
	Server string `kong:"default='http://localhost:5000',env='BLACKJACK_SERVER',help='Server URL (http, https, ws or wss)'"`
	Name   string `kong:"default='',help='Player name used for stats (defaults to $USER)'"`
	Debug  bool   `kong:"help='Enable debug logging'"`
}

func (c *PlayCmd) Run() error {
	logger := stderrLogger(c.Debug)

	name := strings.TrimSpace(c.Name)
	if name == "" {
		name = os.Getenv("USER")
	}
	if name == "" {
		name = "player"
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	cl := client.New(strings.TrimSpace(c.Server), logger)
	if err := cl.Connect(ctx); err != nil {
		return err
	}
	defer cl.Close()

	if err := cl.Auth(name); err != nil {
		return err
	}

	return tui.Run(cl, name, logger)
}
