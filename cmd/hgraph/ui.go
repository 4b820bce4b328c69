package main

import (
	"fmt"
	"os"

	"github.com/mitchellh/cli"
	"github.com/mitchellh/colorstring"
)

// colorizeUi colors Error/Warn output the way the teacher's
// internal/command.ColorizeUi colors its own Ui, trimmed to what this CLI
// actually exercises: there is no interactive Ask prompt or colored
// Output/Info here, only error and warning diagnostics worth highlighting.
type colorizeUi struct {
	colorize   *colorstring.Colorize
	errorColor string
	warnColor  string
	ui         cli.Ui
}

func (u *colorizeUi) Ask(query string) (string, error)       { return u.ui.Ask(query) }
func (u *colorizeUi) AskSecret(query string) (string, error) { return u.ui.AskSecret(query) }
func (u *colorizeUi) Output(message string)                  { u.ui.Output(message) }
func (u *colorizeUi) Info(message string)                    { u.ui.Info(message) }
func (u *colorizeUi) Error(message string)                   { u.ui.Error(u.color(message, u.errorColor)) }
func (u *colorizeUi) Warn(message string)                    { u.ui.Warn(u.color(message, u.warnColor)) }

func (u *colorizeUi) color(message, color string) string {
	if color == "" {
		return message
	}
	return u.colorize.Color(fmt.Sprintf("%s%s[reset]", color, message))
}

// newUi builds the CLI's primary Ui, matching cmd/tofu/main.go's own
// colorstring.Colorize construction.
func newUi() cli.Ui {
	return &colorizeUi{
		colorize: &colorstring.Colorize{
			Colors: colorstring.DefaultColors,
			Reset:  true,
		},
		errorColor: "[red]",
		warnColor:  "[yellow]",
		ui: &cli.BasicUi{
			Writer:      os.Stdout,
			ErrorWriter: os.Stderr,
			Reader:      os.Stdin,
		},
	}
}
