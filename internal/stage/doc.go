// Package stage runs the two external SDM-UniPS stages as blocking
// subprocesses.
//
// Stage 1 (inference, sdm_unips/main.py) reads a standardized input set and
// writes into <workRoot>/<session>/results/SDM_in.data. Stage 2
// (relighting, sdm_unips/relighting.py) reads that directory. Both run with
// the repository as working directory; their stdout and stderr pass
// straight through. A non-zero exit is an *ExternalStageError and is never
// retried.
//
// [Runner] is the seam the orchestrator depends on: [ExecRunner] starts real
// processes, [FakeRunner] records invocations for tests.
package stage
