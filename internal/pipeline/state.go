package pipeline

// State is how far an experiment got through the per-experiment sequence.
type State int

const (
	StateDiscovered State = iota
	StateLayoutLocated
	StateVerified
	StateStage1Complete
	StateStage2Complete
	StateRelocated
	StateCleanedUp
)

var stateNames = [...]string{
	StateDiscovered:     "discovered",
	StateLayoutLocated:  "layout-located",
	StateVerified:       "verified",
	StateStage1Complete: "stage1-complete",
	StateStage2Complete: "stage2-complete",
	StateRelocated:      "relocated",
	StateCleanedUp:      "cleaned-up",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// Status is the terminal result of one experiment.
type Status int

const (
	StatusDone    Status = iota // Reached the last state this run mode asks for.
	StatusSkipped               // Nothing to process (no layout, no source frames).
	StatusFailed                // A transition failed; see Outcome.Err.
)

func (s Status) String() string {
	switch s {
	case StatusDone:
		return "done"
	case StatusSkipped:
		return "skipped"
	case StatusFailed:
		return "failed"
	}
	return "unknown"
}
