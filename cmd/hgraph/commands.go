package main

import (
	"github.com/mitchellh/cli"
)

// initCommands registers every subcommand, the same shape as cmd/tofu's
// own commands.go.
func initCommands(ui cli.Ui) map[string]cli.CommandFactory {
	meta := Meta{Ui: ui}

	return map[string]cli.CommandFactory{
		"run": func() (cli.Command, error) {
			return &RunCommand{Meta: meta}, nil
		},
		"evaluate": func() (cli.Command, error) {
			return &EvaluateCommand{Meta: meta}, nil
		},
	}
}
