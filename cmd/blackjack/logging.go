package main

import (
	"io"
	"os"

	"github.com/charmbracelet/log"
)

// newLogger builds the root logger from a level and format name
func newLogger(w io.Writer, level, format string) *log.Logger {
	logger := log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
	})

	if lvl, err := log.ParseLevel(level); err == nil {
		logger.SetLevel(lvl)
	} else {
		logger.SetLevel(log.InfoLevel)
	}

	if format == "json" {
		logger.SetFormatter(log.JSONFormatter)
	}
	return logger
}

func stderrLogger(debug bool) *log.Logger {
	level := "warn"
	if debug {
		level = "debug"
	}
	return newLogger(os.Stderr, level, "text")
}
