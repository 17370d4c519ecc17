package pipeline

import (
	"time"

	"github.com/cheminova/sdmbatch/internal/discover"
	"github.com/cheminova/sdmbatch/internal/layout"
	"github.com/cheminova/sdmbatch/internal/results"
)

// Outcome is the per-experiment result returned by ProcessExperiment.
type Outcome struct {
	Experiment discover.Experiment
	InputDir   string // Standardized input set used (found or built).
	State      State  // Last state reached.
	Status     Status
	Err        error // Non-nil for StatusSkipped and StatusFailed.
	Built      bool  // The standardized input set was (re)built this run.
	Verify     layout.Report
	Moved      results.Moved
	Duration   time.Duration
}

// Kind classifies o.Err.
func (o Outcome) Kind() Kind { return Classify(o.Err) }

// RunStats tracks aggregate counters across a batch run.
type RunStats struct {
	Total      int
	Current    int
	Done       int
	Built      int
	Skipped    int
	Failed     int
	BytesMoved int64
}

func (s *RunStats) add(o Outcome) {
	switch o.Status {
	case StatusDone:
		s.Done++
	case StatusSkipped:
		s.Skipped++
	case StatusFailed:
		s.Failed++
	}
	if o.Built {
		s.Built++
	}
	s.BytesMoved += o.Moved.Bytes
}

// Batch is everything a run produced.
type Batch struct {
	Stats    RunStats
	Outcomes []Outcome
	Started  time.Time
	Finished time.Time
}
