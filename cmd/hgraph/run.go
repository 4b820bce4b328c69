package main

import (
	"fmt"
	"strings"

	"github.com/hhenson/hgraph-go/internal/demo"
	"github.com/hhenson/hgraph-go/internal/engine/etime"
	"github.com/hhenson/hgraph-go/internal/engine/runtime"
)

// RunCommand drives a named demo graph to completion for side effect only,
// the CLI surface for runtime.RunGraph (spec §6.2 run_graph).
type RunCommand struct {
	Meta
}

func (c *RunCommand) Help() string {
	return `Usage: hgraph run [options] <program>

  Runs a named demo graph to completion.

  Available programs: ` + strings.Join(demo.Names(), ", ") + `

Options:

  -ticks=N     Number of source ticks to drive (default 5)
  -trace       Log every node start/eval/stop/tick at trace level
`
}

func (c *RunCommand) Synopsis() string {
	return "Run a demo graph to completion"
}

func (c *RunCommand) Run(args []string) int {
	var ticks int
	var trace bool

	f := c.flagSet("run")
	f.IntVar(&ticks, "ticks", 5, "number of source ticks to drive")
	f.BoolVar(&trace, "trace", false, "trace node lifecycle events")
	if err := f.Parse(args); err != nil {
		c.Ui.Error(err.Error())
		return 1
	}

	rest := f.Args()
	if len(rest) != 1 {
		c.Ui.Error("exactly one <program> argument is required")
		c.Ui.Output(c.Help())
		return 1
	}

	build, ok := demo.Registry[rest[0]]
	if !ok {
		c.Ui.Error(fmt.Sprintf("unknown program %q. Available: %s", rest[0], strings.Join(demo.Names(), ", ")))
		return 1
	}

	g := build(ticks)
	cfg := runtime.DefaultConfiguration()
	cfg.EndTime = etime.MinST.Add(etime.Delta(ticks+1) * 10)
	cfg.Wire = g.Wire
	cfg.Trace = trace
	cfg.Logger = loggerFor(trace)

	diags := runtime.RunGraph(g.Nodes, cfg)
	if diags.HasErrors() {
		c.Ui.Error(diags.Err().Error())
		return 1
	}

	c.Ui.Output(fmt.Sprintf("%s: final output = %v", rest[0], g.Output.Value()))
	return 0
}
