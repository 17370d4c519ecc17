package stage

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/cheminova/sdmbatch/internal/config"
)

func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.RepoDir = "/repos/sdm"
	cfg.Checkpoint = "/repos/sdm/checkpoint"
	cfg.Python = "/repos/sdm/.venv/bin/python"
	return &cfg
}

func TestPipelineRun_Paths(t *testing.T) {
	cfg := testConfig()
	input := filepath.Join("/data", "head cs", "exp_2", "rti", "SDM_in.data")
	r := NewPipelineRun(cfg, "exp_2", input)

	if want := filepath.Join("/data", "head cs", "exp_2", "rti"); r.TestDir != want {
		t.Errorf("TestDir = %q, want %q", r.TestDir, want)
	}
	if want := filepath.Join("/repos/sdm", "exp_2"); r.Workspace() != want {
		t.Errorf("Workspace = %q, want %q", r.Workspace(), want)
	}
	if want := filepath.Join("/repos/sdm", "exp_2", "results", "SDM_in.data"); r.ResultsDir() != want {
		t.Errorf("ResultsDir = %q, want %q", r.ResultsDir(), want)
	}
	if want := filepath.Join(r.TestDir, "SDM_out"); r.OutputDir() != want {
		t.Errorf("OutputDir = %q, want %q", r.OutputDir(), want)
	}
}

func TestInferenceInvocation(t *testing.T) {
	cfg := testConfig()
	r := NewPipelineRun(cfg, "exp_2", "/data/exp_2/rti/SDM_in.data")
	inv := InferenceInvocation(cfg, r)

	want := []string{
		filepath.Join("sdm_unips", "main.py"),
		"--session_name", "exp_2",
		"--test_dir", "/data/exp_2/rti",
		"--checkpoint", "/repos/sdm/checkpoint",
		"--scalable",
	}
	if !reflect.DeepEqual(inv.Args, want) {
		t.Errorf("Args = %v, want %v", inv.Args, want)
	}
	if inv.Program != cfg.Python || inv.Dir != cfg.RepoDir || inv.Stage != Inference {
		t.Errorf("Invocation = %+v", inv)
	}

	cfg.Scalable = false
	if InferenceInvocation(cfg, r).HasFlag("--scalable") {
		t.Error("--scalable passed with Scalable=false")
	}
}

func TestRelightInvocation(t *testing.T) {
	cfg := testConfig()
	r := NewPipelineRun(cfg, "exp_2", "/data/exp_2/rti/SDM_in.data")
	inv := RelightInvocation(cfg, r)

	if got, _ := inv.Arg("--datadir"); got != r.ResultsDir() {
		t.Errorf("--datadir = %q, want %q", got, r.ResultsDir())
	}
	if got, _ := inv.Arg("--format"); got != "avi" {
		t.Errorf("--format = %q, want avi", got)
	}
	if inv.Args[0] != filepath.Join("sdm_unips", "relighting.py") || inv.Stage != Relight {
		t.Errorf("Invocation = %+v", inv)
	}
}

func TestCommandLine_Quotes(t *testing.T) {
	inv := Invocation{Program: "python", Args: []string{"main.py", "--test_dir", "/data/head cs"}}
	if got := inv.CommandLine(); got != `python main.py --test_dir "/data/head cs"` {
		t.Errorf("CommandLine = %s", got)
	}
}

func TestExternalStageError(t *testing.T) {
	err := error(&ExternalStageError{Stage: Inference, ExitCode: 2})
	if !strings.Contains(err.Error(), "status 2") {
		t.Errorf("Error() = %q", err.Error())
	}
	var se *ExternalStageError
	if !errors.As(ExitWith(Relight, 1), &se) || se.Stage != Relight {
		t.Errorf("ExitWith did not produce an ExternalStageError: %v", se)
	}
}

func TestFakeRunner(t *testing.T) {
	cfg := testConfig()
	f := &FakeRunner{Hook: func(inv Invocation) error {
		if inv.Stage == Relight {
			return ExitWith(Relight, 4)
		}
		return nil
	}}
	r := NewPipelineRun(cfg, "exp_1", "/data/exp_1/SDM_in.data")
	if err := f.Run(context.Background(), InferenceInvocation(cfg, r)); err != nil {
		t.Fatal(err)
	}
	if err := f.Run(context.Background(), RelightInvocation(cfg, r)); err == nil {
		t.Fatal("hook error not returned")
	}
	if len(f.Calls()) != 2 {
		t.Errorf("Calls = %d, want 2", len(f.Calls()))
	}
	if got := f.Sessions(); !reflect.DeepEqual(got, []string{"exp_1"}) {
		t.Errorf("Sessions = %v", got)
	}
}

// --- ExecRunner tests (need a POSIX shell) ---

func requireShell(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
}

func TestExecRunner_PassesOutputThrough(t *testing.T) {
	requireShell(t)
	var out, errOut bytes.Buffer
	r := &ExecRunner{Stdout: &out, Stderr: &errOut}
	inv := Invocation{Stage: Inference, Program: "sh", Args: []string{"-c", "echo hello; echo oops >&2; pwd"}, Dir: t.TempDir()}

	if err := r.Run(context.Background(), inv); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !strings.HasPrefix(out.String(), "hello\n") {
		t.Errorf("stdout = %q", out.String())
	}
	if strings.TrimSpace(errOut.String()) != "oops" {
		t.Errorf("stderr = %q", errOut.String())
	}
}

func TestExecRunner_NonZeroExit(t *testing.T) {
	requireShell(t)
	r := &ExecRunner{Stdout: &bytes.Buffer{}, Stderr: &bytes.Buffer{}}
	err := r.Run(context.Background(), Invocation{Stage: Relight, Program: "sh", Args: []string{"-c", "exit 3"}})

	var se *ExternalStageError
	if !errors.As(err, &se) {
		t.Fatalf("Run error = %v, want *ExternalStageError", err)
	}
	if se.ExitCode != 3 || se.Stage != Relight {
		t.Errorf("ExternalStageError = %+v", se)
	}
}

func TestExecRunner_MissingProgram(t *testing.T) {
	r := &ExecRunner{}
	err := r.Run(context.Background(), Invocation{Stage: Inference, Program: "sdmbatch-no-such-python"})
	var se *ExternalStageError
	if !errors.As(err, &se) || se.ExitCode != -1 {
		t.Errorf("Run error = %v, want start failure with exit code -1", err)
	}
}
