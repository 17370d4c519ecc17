// Package check provides system diagnostics (--check mode) and pre-pipeline
// dependency validation (CheckDeps) for the python interpreter, the two
// SDM-UniPS stage scripts, and the model checkpoint.
package check

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/cheminova/sdmbatch/internal/config"
)

// Sentinel errors returned by CheckDeps when a stage prerequisite is missing.
var (
	ErrPythonNotFound         = errors.New("python interpreter not found")
	ErrInferenceScriptMissing = errors.New("inference script not found in repository")
	ErrRelightScriptMissing   = errors.New("relighting script not found in repository")
	ErrCheckpointMissing      = errors.New("checkpoint directory not found")
	ErrRepoMissing            = errors.New("repository directory not found")
)

// Logger is the minimal logging interface needed by RunCheck.
type Logger interface {
	Info(string, ...interface{})
	Success(string, ...interface{})
	Warn(string, ...interface{})
	Error(string, ...interface{})
	Debug(bool, string, ...interface{})
}

// versionTimeout bounds "python --version" so a broken interpreter cannot
// hang the diagnostics.
const versionTimeout = 10 * time.Second

// RunCheck runs the interactive --check flow and reports every
// prerequisite. It returns false if any required one is missing.
func RunCheck(cfg *config.Config, log Logger) bool {
	log.Info("=== System Check ===")
	log.Info("Repository: %s", cfg.RepoDir)

	ok := true
	ok = checkRepo(cfg, log) && ok
	ok = checkPython(cfg, log) && ok
	ok = checkScript(log, "Inference script", scriptPath(cfg, cfg.InferenceScript)) && ok
	ok = checkScript(log, "Relighting script", scriptPath(cfg, cfg.RelightScript)) && ok
	ok = checkCheckpoint(cfg, log) && ok

	if ok {
		log.Success("All stage prerequisites found")
	}
	return ok
}

func checkRepo(cfg *config.Config, log Logger) bool {
	if !isDir(cfg.RepoDir) {
		log.Error("Repository not found: %s", cfg.RepoDir)
		return false
	}
	return true
}

// checkPython resolves the interpreter and logs its version string.
func checkPython(cfg *config.Config, log Logger) bool {
	path, err := exec.LookPath(cfg.Python)
	if err != nil {
		log.Error("Python not found: %s", cfg.Python)
		return false
	}
	ctx, cancel := context.WithTimeout(context.Background(), versionTimeout)
	defer cancel()
	out, err := exec.CommandContext(ctx, path, "--version").CombinedOutput()
	if err != nil {
		log.Warn("%s found but --version failed: %v", path, err)
		return true
	}
	log.Success("Python: %s (%s)", strings.TrimSpace(string(out)), path)
	return true
}

func checkScript(log Logger, label, path string) bool {
	if !isFile(path) {
		log.Error("%s not found: %s", label, path)
		return false
	}
	log.Success("%s: %s", label, path)
	return true
}

func checkCheckpoint(cfg *config.Config, log Logger) bool {
	if !isDir(cfg.Checkpoint) {
		log.Error("Checkpoint not found: %s", cfg.Checkpoint)
		return false
	}
	entries, err := os.ReadDir(cfg.Checkpoint)
	if err != nil {
		log.Warn("Checkpoint unreadable: %v", err)
		return true
	}
	if len(entries) == 0 {
		log.Warn("Checkpoint directory is empty: %s", cfg.Checkpoint)
	} else {
		log.Success("Checkpoint: %s (%d entries)", cfg.Checkpoint, len(entries))
	}
	return true
}

// CheckDeps is the pre-pipeline validation: it verifies the repository,
// interpreter, both stage scripts, and the checkpoint exist. Returns a
// wrapped sentinel error for the first one that does not.
func CheckDeps(cfg *config.Config) error {
	if !isDir(cfg.RepoDir) {
		return fmt.Errorf("%w: %s", ErrRepoMissing, cfg.RepoDir)
	}
	if _, err := exec.LookPath(cfg.Python); err != nil {
		return fmt.Errorf("%w: %s", ErrPythonNotFound, cfg.Python)
	}
	if p := scriptPath(cfg, cfg.InferenceScript); !isFile(p) {
		return fmt.Errorf("%w: %s", ErrInferenceScriptMissing, p)
	}
	if p := scriptPath(cfg, cfg.RelightScript); !isFile(p) {
		return fmt.Errorf("%w: %s", ErrRelightScriptMissing, p)
	}
	if !isDir(cfg.Checkpoint) {
		return fmt.Errorf("%w: %s", ErrCheckpointMissing, cfg.Checkpoint)
	}
	return nil
}

// --- internal helpers ---

// scriptPath resolves a stage script the way the stage process will see
// it: relative paths are relative to the repository (its working dir).
func scriptPath(cfg *config.Config, script string) string {
	if filepath.IsAbs(script) {
		return script
	}
	return filepath.Join(cfg.RepoDir, script)
}

func isDir(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && fi.IsDir()
}

func isFile(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && fi.Mode().IsRegular()
}
