package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/lox/blackjack/internal/client"
	"github.com/lox/blackjack/internal/server"
)

// HealthCmd prints the health report of a running server
type HealthCmd struct {
	Server  string        `kong:"default='http://localhost:5000',env='BLACKJACK_SERVER',help='Server URL'"`
	Timeout time.Duration `kong:"default='5s',help='Request timeout'"`
	Wait    bool          `kong:"help='Wait until the server reports healthy'"`
}

func (c *HealthCmd) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), c.Timeout)
	defer cancel()

	if c.Wait {
		if err := server.WaitForHealthy(ctx, c.Server); err != nil {
			return err
		}
	}

	health, err := client.FetchHealth(ctx, c.Server)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(health); err != nil {
		return err
	}

	if health.Status != server.HealthOK {
		return fmt.Errorf("server unhealthy: %s", health.Status)
	}
	return nil
}
