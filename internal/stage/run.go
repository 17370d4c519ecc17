package stage

import (
	"path/filepath"
	"strings"

	"github.com/cheminova/sdmbatch/internal/config"
)

// ID names an external stage.
type ID string

const (
	Inference ID = "inference"
	Relight   ID = "relighting"
)

// PipelineRun holds the per-experiment parameters both stages derive their
// arguments from. It is built fresh for each experiment.
type PipelineRun struct {
	Session    string // Experiment directory name.
	TestDir    string // Absolute parent of the standardized input set.
	Checkpoint string // Absolute, shared read-only across the batch.
	WorkRoot   string // Stage working directory; sessions are created under it.
}

// NewPipelineRun derives a PipelineRun for the experiment whose
// standardized input set is inputDir.
func NewPipelineRun(cfg *config.Config, session, inputDir string) PipelineRun {
	return PipelineRun{
		Session:    session,
		TestDir:    filepath.Dir(inputDir),
		Checkpoint: cfg.Checkpoint,
		WorkRoot:   cfg.RepoDir,
	}
}

// Workspace is the session's transient directory, <workRoot>/<session>.
func (r PipelineRun) Workspace() string {
	return filepath.Join(r.WorkRoot, r.Session)
}

// ResultsDir is where stage 1 writes and stage 2 reads:
// <workRoot>/<session>/results/SDM_in.data.
func (r PipelineRun) ResultsDir() string {
	return filepath.Join(r.Workspace(), config.ResultsDirName, config.InputDirName)
}

// OutputDir is the durable location beside the standardized input set.
func (r PipelineRun) OutputDir() string {
	return filepath.Join(r.TestDir, config.OutputDirName)
}

// Invocation is one fully specified external process.
type Invocation struct {
	Stage   ID
	Program string   // Interpreter.
	Args    []string // Script path followed by its named arguments.
	Dir     string   // Working directory.
}

// CommandLine renders the invocation for logs, quoting arguments with spaces.
func (inv Invocation) CommandLine() string {
	parts := make([]string, 0, len(inv.Args)+1)
	for _, a := range append([]string{inv.Program}, inv.Args...) {
		if strings.ContainsAny(a, " \t") {
			a = "\"" + a + "\""
		}
		parts = append(parts, a)
	}
	return strings.Join(parts, " ")
}

// Arg returns the value following flag in Args.
func (inv Invocation) Arg(flag string) (string, bool) {
	for i := 0; i+1 < len(inv.Args); i++ {
		if inv.Args[i] == flag {
			return inv.Args[i+1], true
		}
	}
	return "", false
}

// HasFlag reports whether the bare flag appears in Args.
func (inv Invocation) HasFlag(flag string) bool {
	for _, a := range inv.Args {
		if a == flag {
			return true
		}
	}
	return false
}

// InferenceInvocation builds the stage 1 command:
//
//	<python> sdm_unips/main.py --session_name <s> --test_dir <dir> --checkpoint <ckpt> [--scalable]
func InferenceInvocation(cfg *config.Config, r PipelineRun) Invocation {
	args := []string{
		cfg.InferenceScript,
		"--session_name", r.Session,
		"--test_dir", r.TestDir,
		"--checkpoint", r.Checkpoint,
	}
	if cfg.Scalable {
		args = append(args, "--scalable")
	}
	return Invocation{Stage: Inference, Program: cfg.Python, Args: args, Dir: r.WorkRoot}
}

// RelightInvocation builds the stage 2 command:
//
//	<python> sdm_unips/relighting.py --datadir <results dir> --format <fmt>
func RelightInvocation(cfg *config.Config, r PipelineRun) Invocation {
	args := []string{
		cfg.RelightScript,
		"--datadir", r.ResultsDir(),
		"--format", cfg.RelightFormat,
	}
	return Invocation{Stage: Relight, Program: cfg.Python, Args: args, Dir: r.WorkRoot}
}
