// Command hgraph is a small CLI over the evaluation engine's run_graph and
// evaluate_graph entry points (spec §6.2), driving a fixed registry of
// named demo graphs since the engine core itself has no graph-description
// DSL to parse (wiring a graph is a caller's own Go code, per plan.go's
// package doc). Structured the way cmd/tofu/main.go structures its own
// CLI: a mitchellh/cli.CLI over a commands map.
package main

import (
	"fmt"
	"os"

	"github.com/mitchellh/cli"
)

func main() {
	os.Exit(realMain())
}

func realMain() int {
	ui := newUi()

	c := cli.NewCLI("hgraph", Version)
	c.Args = os.Args[1:]
	c.Commands = initCommands(ui)
	c.HelpFunc = cli.BasicHelpFunc("hgraph")

	exitCode, err := c.Run()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return exitCode
}
