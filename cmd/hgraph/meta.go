package main

import (
	"flag"
	"io"

	"github.com/mitchellh/cli"
)

// Meta holds the state shared across every subcommand, trimmed down from
// the teacher's internal/command.Meta to the one thing this CLI's
// subcommands actually share: where to write output.
type Meta struct {
	Ui cli.Ui
}

// flagSet returns a FlagSet pre-wired to report errors through m.Ui the
// way Meta.defaultFlagSet does for the teacher's commands.
func (m *Meta) flagSet(name string) *flag.FlagSet {
	f := flag.NewFlagSet(name, flag.ContinueOnError)
	f.SetOutput(io.Discard)
	f.Usage = func() {}
	return f
}
