package check

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/cheminova/sdmbatch/internal/config"
)

type recordLogger struct {
	errors, successes []string
}

func (l *recordLogger) Info(string, ...interface{})        {}
func (l *recordLogger) Warn(string, ...interface{})        {}
func (l *recordLogger) Debug(bool, string, ...interface{}) {}
func (l *recordLogger) Success(f string, a ...interface{}) {
	l.successes = append(l.successes, fmt.Sprintf(f, a...))
}
func (l *recordLogger) Error(f string, a ...interface{}) {
	l.errors = append(l.errors, fmt.Sprintf(f, a...))
}

// fakeRepo lays out a complete SDM-UniPS checkout and returns a config
// pointing at it. The interpreter is "sh", which any test host has.
func fakeRepo(t *testing.T) config.Config {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
	repo := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.RepoDir = repo
	cfg.Checkpoint = filepath.Join(repo, "checkpoint")
	cfg.Python = "sh"

	for _, dir := range []string{filepath.Join(repo, "sdm_unips"), cfg.Checkpoint} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatal(err)
		}
	}
	for _, f := range []string{cfg.InferenceScript, cfg.RelightScript, filepath.Join("checkpoint", "model.pytmodel")} {
		if err := os.WriteFile(filepath.Join(repo, f), nil, 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return cfg
}

func TestCheckDeps(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(cfg *config.Config)
		want   error
	}{
		{"complete", func(*config.Config) {}, nil},
		{"no repo", func(c *config.Config) { c.RepoDir = filepath.Join(c.RepoDir, "missing") }, ErrRepoMissing},
		{"no python", func(c *config.Config) { c.Python = "definitely-not-a-python-binary" }, ErrPythonNotFound},
		{"no inference script", func(c *config.Config) { os.Remove(filepath.Join(c.RepoDir, c.InferenceScript)) }, ErrInferenceScriptMissing},
		{"no relight script", func(c *config.Config) { os.Remove(filepath.Join(c.RepoDir, c.RelightScript)) }, ErrRelightScriptMissing},
		{"no checkpoint", func(c *config.Config) { os.RemoveAll(c.Checkpoint) }, ErrCheckpointMissing},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := fakeRepo(t)
			tt.mutate(&cfg)
			err := CheckDeps(&cfg)
			if tt.want == nil {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestRunCheck(t *testing.T) {
	cfg := fakeRepo(t)
	log := &recordLogger{}
	if !RunCheck(&cfg, log) {
		t.Fatalf("RunCheck failed: %v", log.errors)
	}
	if len(log.errors) != 0 {
		t.Errorf("errors = %v", log.errors)
	}

	os.Remove(filepath.Join(cfg.RepoDir, cfg.RelightScript))
	os.RemoveAll(cfg.Checkpoint)
	log = &recordLogger{}
	if RunCheck(&cfg, log) {
		t.Error("RunCheck should fail with missing prerequisites")
	}
	// Every missing prerequisite is reported, not just the first.
	if len(log.errors) != 2 {
		t.Errorf("errors = %v, want 2", log.errors)
	}
}

func TestScriptPath(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.RepoDir = "/opt/SDM-UniPS"
	if got := scriptPath(&cfg, "sdm_unips/main.py"); got != filepath.Join("/opt/SDM-UniPS", "sdm_unips", "main.py") {
		t.Errorf("relative: %s", got)
	}
	if got := scriptPath(&cfg, "/abs/main.py"); got != "/abs/main.py" {
		t.Errorf("absolute: %s", got)
	}
}
