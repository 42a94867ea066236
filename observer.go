package remesh

import (
	"log"
	"time"
)

// Stage identifies one of the steps of a remeshing iteration.
type Stage int

const (
	StageSplit Stage = iota
	StageCollapse
	StageEqualize
	StageRelax
	StageProject
)

func (s Stage) String() string {
	switch s {
	case StageSplit:
		return "split"
	case StageCollapse:
		return "collapse"
	case StageEqualize:
		return "equalize"
	case StageRelax:
		return "relax"
	case StageProject:
		return "project"
	}
	return "unknown stage"
}

// StageReport summarizes a finished stage.
type StageReport struct {
	Stage     Stage
	Iteration int
	// Edits is the number of splits, collapses, flips, relaxed vertices or
	// projected vertices performed by the stage.
	Edits int
	// Skipped counts local operations refused by the link condition,
	// constraints or the geometric checks.
	Skipped int
	Elapsed time.Duration
}

// Observer is notified at stage boundaries.
type Observer interface {
	StageDone(StageReport)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(StageReport)

func (f ObserverFunc) StageDone(r StageReport) { f(r) }

// LogObserver writes a line per stage to Logger, or to the standard
// logger if Logger is nil.
type LogObserver struct {
	Logger *log.Logger
}

func (o LogObserver) StageDone(r StageReport) {
	logf := log.Printf
	if o.Logger != nil {
		logf = o.Logger.Printf
	}
	logf("iteration %d: %-8s edits=%-6d skipped=%-6d %v", r.Iteration, r.Stage, r.Edits, r.Skipped, r.Elapsed)
}
