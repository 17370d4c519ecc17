// Package pipeline orchestrates the batch: discover experiments, then for
// each one locate or build its standardized input set, verify it, run the
// inference and relighting stages, relocate the results and clean up the
// session workspace.
//
// Experiments are processed one at a time in natural order. Each one ends
// in an [Outcome]; a failure is logged with the experiment name and cause
// and the batch moves on. Nothing but the read-only configuration is shared
// between iterations.
package pipeline
