package main

import (
	"fmt"
	"os"

	"github.com/lox/blackjack/internal/config"
)

// ConfigCmd groups configuration file commands
type ConfigCmd struct {
	Init ConfigInitCmd `cmd:"" help:"Write the default configuration file"`
	Show ConfigShowCmd `cmd:"" help:"Print the effective configuration"`
}

// ConfigInitCmd writes the defaults to a new file
type ConfigInitCmd struct {
	Path  string `arg:"" optional:"" default:"blackjack.hcl" help:"File to write"`
	Force bool   `short:"f" help:"Overwrite an existing file"`
}

func (c *ConfigInitCmd) Run() error {
	if !c.Force {
		if _, err := os.Stat(c.Path); err == nil {
			return fmt.Errorf("%s already exists (use --force to overwrite)", c.Path)
		}
	}
	if err := config.Default().Save(c.Path); err != nil {
		return err
	}
	fmt.Printf("Wrote %s\n", c.Path)
	return nil
}

// ConfigShowCmd prints a file merged with the defaults
type ConfigShowCmd struct {
	Path string `arg:"" optional:"" default:"blackjack.hcl" help:"File to read"`
}

func (c *ConfigShowCmd) Run() error {
	cfg, err := config.Load(c.Path)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	_, err = os.Stdout.Write(cfg.Encode())
	return err
}
