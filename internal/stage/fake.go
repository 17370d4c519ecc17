package stage

import (
	"context"
	"sync"
)

// FakeRunner records invocations instead of starting processes. Hook, when
// set, runs for every invocation and its error is returned; tests use it to
// materialize result files or to fail a chosen stage.
type FakeRunner struct {
	mu    sync.Mutex
	calls []Invocation
	Hook  func(Invocation) error
}

// Run records inv and returns the hook's result.
func (f *FakeRunner) Run(_ context.Context, inv Invocation) error {
	f.mu.Lock()
	f.calls = append(f.calls, inv)
	hook := f.Hook
	f.mu.Unlock()
	if hook == nil {
		return nil
	}
	return hook(inv)
}

// Calls returns a copy of the recorded invocations in call order.
func (f *FakeRunner) Calls() []Invocation {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Invocation, len(f.calls))
	copy(out, f.calls)
	return out
}

// Sessions returns the --session_name of every recorded inference call.
func (f *FakeRunner) Sessions() []string {
	var out []string
	for _, inv := range f.Calls() {
		if inv.Stage != Inference {
			continue
		}
		if s, ok := inv.Arg("--session_name"); ok {
			out = append(out, s)
		}
	}
	return out
}

// ExitWith is a convenience for hooks simulating a failed process.
func ExitWith(id ID, code int) error {
	return &ExternalStageError{Stage: id, ExitCode: code}
}
