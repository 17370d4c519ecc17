package stage

import "fmt"

// ExternalStageError reports a stage process that did not exit 0. ExitCode
// is -1 when the process could not be started or was killed by a signal.
type ExternalStageError struct {
	Stage    ID
	ExitCode int
	Err      error
}

func (e *ExternalStageError) Error() string {
	if e.ExitCode < 0 {
		return fmt.Sprintf("%s stage failed: %v", e.Stage, e.Err)
	}
	return fmt.Sprintf("%s stage exited with status %d", e.Stage, e.ExitCode)
}

func (e *ExternalStageError) Unwrap() error { return e.Err }
