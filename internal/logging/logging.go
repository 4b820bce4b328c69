// Package logging wraps hashicorp/go-hclog the way the teacher's
// internal/command/views JSONView does: a named, optionally-JSON logger
// constructed once and threaded through as an injectable rather than used
// as global state (spec §4.4 "injectables (clock, scheduler, state, engine
// api, logger)").
package logging

import (
	"io"
	"os"

	"github.com/hashicorp/go-hclog"
)

// Options controls how the engine's root logger is constructed.
type Options struct {
	Name   string
	Output io.Writer
	JSON   bool
	Level  hclog.Level
}

// New builds a new engine logger. A zero Options gives a human-readable
// logger at Info level writing to stderr, matching hclog's own defaults.
func New(opts Options) hclog.Logger {
	if opts.Output == nil {
		opts.Output = os.Stderr
	}
	if opts.Level == hclog.NoLevel {
		opts.Level = hclog.Info
	}
	if opts.Name == "" {
		opts.Name = "hgraph"
	}
	return hclog.New(&hclog.LoggerOptions{
		Name:       opts.Name,
		Output:     opts.Output,
		Level:      opts.Level,
		JSONFormat: opts.JSON,
	})
}

// Discard is a logger that drops everything, used as the default
// injectable for nodes and tests that don't care about log output.
func Discard() hclog.Logger {
	return hclog.NewNullLogger()
}
