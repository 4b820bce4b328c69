package main

import (
	"github.com/hashicorp/go-hclog"

	"github.com/hhenson/hgraph-go/internal/logging"
)

// loggerFor returns a stderr logger at Trace level when trace is requested,
// and a discard logger otherwise, so -trace is the only thing that turns on
// log output for a demo run.
func loggerFor(trace bool) hclog.Logger {
	if !trace {
		return logging.Discard()
	}
	return logging.New(logging.Options{Name: "hgraph", Level: hclog.Trace})
}
