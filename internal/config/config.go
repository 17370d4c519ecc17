// Package config holds runtime configuration: defaults, CLI flag parsing,
// dataset profiles, and validation. Every path the pipeline touches is an
// explicit field here; packages never derive paths from the working
// directory on their own.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// Fixed directory names shared with the external SDM-UniPS stages.
const (
	InputDirName   = "SDM_in.data" // Standardized input set (marker searched for in each experiment).
	OutputDirName  = "SDM_out"     // Durable results, created beside InputDirName.
	ResultsDirName = "results"     // <workRoot>/<session>/results/<InputDirName>
)

// --- Enum types for validated string fields ---

// RunMode selects which half of the workflow runs.
type RunMode string

const (
	ModeAll      RunMode = "all"      // Organize missing layouts, then run both stages (default).
	ModeOrganize RunMode = "organize" // Curate standardized inputs only.
	ModeRun      RunMode = "run"      // Run stages only; never build layouts.
)

// VerifyPolicy selects how strictly a standardized input set is checked.
type VerifyPolicy string

const (
	VerifyExact   VerifyPolicy = "exact"    // L (1)..L (N) required; extras warned about (default).
	VerifyAtLeast VerifyPolicy = "at-least" // L (1)..L (N) required; extras only noted.
)

// ColorMode controls ANSI color output.
type ColorMode string

const (
	ColorAuto   ColorMode = "auto"   // Enable colors when stdout is a TTY (default).
	ColorAlways ColorMode = "always" // Force colors on.
	ColorNever  ColorMode = "never"  // Disable colors entirely.
)

// Config holds all runtime settings. It is populated by [DefaultConfig] and
// then mutated by [ParseFlags] before being passed (by pointer) to packages
// that need it.
type Config struct {
	// Paths. InputDir comes from the positional arg; the rest default
	// relative to RepoDir and are made absolute by ResolvePaths.
	InputDir   string
	RepoDir    string // SDM-UniPS checkout; stage working directory and transient working root.
	Checkpoint string // Default: <RepoDir>/checkpoint.
	Python     string // Default: <RepoDir>/.venv interpreter if present, else "python3".

	// Dataset convention.
	Profile   ProfileName // Default: "rti".
	NumImages int         // Default: 10.
	Verify    VerifyPolicy

	// External stages.
	InferenceScript string // Fixed default: "sdm_unips/main.py".
	RelightScript   string // Fixed default: "sdm_unips/relighting.py".
	Scalable        bool   // Default: true. Cleared by --no-scalable.
	RelightFormat   string // Default: "avi".

	// Behavior flags.
	Mode    RunMode
	Rebuild bool // Rebuild layouts even when SDM_in.data already exists.
	DryRun  bool

	// Display and logging.
	Verbose    bool
	ColorMode  ColorMode
	LogFile    string // Optional log file path.
	ReportFile string // Optional JSON run report path.
	CheckOnly  bool   // Run --check diagnostics and exit.
}

// DefaultConfig returns a Config with the defaults used by the original
// batch scripts (10 frames, JPG rti datasets, avi relighting output).
func DefaultConfig() Config {
	return Config{
		RepoDir:         ".",
		Profile:         ProfileRTI,
		NumImages:       10,
		Verify:          VerifyExact,
		InferenceScript: filepath.Join("sdm_unips", "main.py"),
		RelightScript:   filepath.Join("sdm_unips", "relighting.py"),
		Scalable:        true,
		RelightFormat:   "avi",
		Mode:            ModeAll,
		ColorMode:       ColorAuto,
	}
}

// NormalizeDirArg strips trailing slashes from a directory path.
// The filesystem root "/" is returned unchanged so we don't produce an empty string.
func NormalizeDirArg(path string) string {
	if path == "/" {
		return "/"
	}
	return strings.TrimRight(path, "/")
}

// Validate checks enum fields and numeric ranges. When not in CheckOnly
// mode it also requires the input directory.
func (c *Config) Validate() error {
	switch c.Mode {
	case ModeAll, ModeOrganize, ModeRun:
		// valid
	default:
		return errors.New("invalid mode (use 'all', 'organize' or 'run')")
	}

	switch c.Verify {
	case VerifyExact, VerifyAtLeast:
		// valid
	default:
		return errors.New("invalid verify policy (use 'exact' or 'at-least')")
	}

	if _, ok := LookupProfile(c.Profile); !ok {
		return fmt.Errorf("invalid profile %q (use %s)", c.Profile, profileChoices())
	}

	if c.NumImages <= 0 {
		return fmt.Errorf("num-images must be positive (got %d)", c.NumImages)
	}

	c.RelightFormat = strings.ToLower(strings.TrimSpace(c.RelightFormat))
	if c.RelightFormat == "" {
		return errors.New("relight format must not be empty")
	}

	if c.CheckOnly {
		return nil
	}
	if c.InputDir == "" {
		return errors.New("need exactly input_dir")
	}
	return nil
}

// ActiveProfile returns the profile selected by c.Profile. It falls back to
// the rti profile for an unknown name; Validate rejects those earlier.
func (c *Config) ActiveProfile() Profile {
	p, ok := LookupProfile(c.Profile)
	if !ok {
		p, _ = LookupProfile(ProfileRTI)
	}
	return p
}

// RunsStages reports whether the external stages are part of this run.
func (c *Config) RunsStages() bool {
	return c.Mode != ModeOrganize
}

// BuildsLayouts reports whether missing layouts may be built from source.
func (c *Config) BuildsLayouts() bool {
	return c.Mode != ModeRun
}

// PreflightAborts reports whether a missing stage prerequisite should end
// the run before any experiment is touched. Only in run mode are the stages
// the first step; in all mode layouts are still organized and each stage
// failure is recorded per experiment.
func (c *Config) PreflightAborts() bool {
	return c.Mode == ModeRun
}

// ResolvePaths makes InputDir, RepoDir and Checkpoint absolute and fills
// in the derived defaults for Checkpoint and Python.
func (c *Config) ResolvePaths() error {
	var err error
	if c.InputDir != "" {
		if c.InputDir, err = filepath.Abs(c.InputDir); err != nil {
			return fmt.Errorf("resolve input dir: %w", err)
		}
	}
	if c.RepoDir, err = filepath.Abs(c.RepoDir); err != nil {
		return fmt.Errorf("resolve repo dir: %w", err)
	}
	if c.Checkpoint == "" {
		c.Checkpoint = filepath.Join(c.RepoDir, "checkpoint")
	}
	if c.Checkpoint, err = filepath.Abs(c.Checkpoint); err != nil {
		return fmt.Errorf("resolve checkpoint: %w", err)
	}
	if c.Python == "" {
		c.Python = DefaultPython(c.RepoDir)
	}
	return nil
}

// DefaultPython returns the interpreter inside repoDir's virtualenv when one
// exists, and "python3" from PATH otherwise.
func DefaultPython(repoDir string) string {
	venv := filepath.Join(repoDir, ".venv", "bin", "python")
	if runtime.GOOS == "windows" {
		venv = filepath.Join(repoDir, ".venv", "Scripts", "python.exe")
	}
	if fi, err := os.Stat(venv); err == nil && !fi.IsDir() {
		return venv
	}
	return "python3"
}

// ValidatePaths ensures the resolved repository (the transient working
// root) is not inside the input root. Otherwise session workspaces would be
// discovered as experiments. Both arguments must be absolute.
func (c *Config) ValidatePaths(inputAbs, repoAbs string) error {
	sep := string(filepath.Separator)
	if repoAbs == inputAbs || strings.HasPrefix(repoAbs+sep, inputAbs+sep) {
		return errors.New("repository directory must not be inside input directory")
	}
	return nil
}
