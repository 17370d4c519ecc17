package config

// This file implements CLI flag parsing and help text.
// Flags are grouped into dataset, stages, behavior, display, and utility.
// Negated flags (e.g. --no-scalable) are applied after Parse so Config defaults hold unless set.

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
)

// ParseFlags parses os.Args into cfg. On --help or --version it prints and exits.
// On error it returns non-nil (e.g. unknown flag, missing positional arg).
func ParseFlags(cfg *Config, version string) error {
	fs, n := newFlagSet(cfg, version)
	if err := fs.Parse(os.Args[1:]); err != nil {
		return err
	}

	applyNegatedFlags(cfg, n)

	if n.showHelp {
		printUsage(os.Stderr, version)
		os.Exit(0)
	}
	if n.showVersion {
		fmt.Fprintln(os.Stdout, "sdmbatch v"+version)
		os.Exit(0)
	}

	return parsePositionalArgs(fs, cfg)
}

// parseArgs is ParseFlags without the exit paths, for tests.
func parseArgs(cfg *Config, args []string) error {
	fs, n := newFlagSet(cfg, "test")
	fs.SetOutput(io.Discard)
	if err := fs.Parse(args); err != nil {
		return err
	}
	applyNegatedFlags(cfg, n)
	return parsePositionalArgs(fs, cfg)
}

func newFlagSet(cfg *Config, version string) (*flag.FlagSet, *negatedFlags) {
	fs := flag.NewFlagSet("sdmbatch", flag.ContinueOnError)
	fs.Usage = func() { printUsage(os.Stderr, version) }

	n := &negatedFlags{}
	defineDatasetFlags(fs, cfg)
	defineStageFlags(fs, cfg, n)
	defineBehaviorFlags(fs, cfg)
	defineDisplayFlags(fs, cfg, n)
	defineUtilityFlags(fs, n)
	return fs, n
}

// negatedFlags holds boolean flags that are applied after Parse.
type negatedFlags struct {
	noScalable  bool
	forceColor  bool
	noColor     bool
	showVersion bool
	showHelp    bool
}

// defineDatasetFlags registers --profile, -n/--num-images, --verify.
func defineDatasetFlags(fs *flag.FlagSet, cfg *Config) {
	fs.Var(&profileValue{&cfg.Profile}, "profile", "Dataset profile: rti | diligent-mv")
	fs.IntVar(&cfg.NumImages, "num-images", cfg.NumImages, "Frames per standardized input set")
	fs.IntVar(&cfg.NumImages, "n", cfg.NumImages, "Same as --num-images")
	fs.Var(&verifyPolicyValue{&cfg.Verify}, "verify", "Verification policy: exact | at-least")
}

// defineStageFlags registers --repo, --checkpoint, --python, --format, --no-scalable.
func defineStageFlags(fs *flag.FlagSet, cfg *Config, n *negatedFlags) {
	fs.StringVar(&cfg.RepoDir, "repo", cfg.RepoDir, "SDM-UniPS repository (stage working directory)")
	fs.StringVar(&cfg.Checkpoint, "checkpoint", "", "Checkpoint directory (default: <repo>/checkpoint)")
	fs.StringVar(&cfg.Python, "python", "", "Python interpreter (default: <repo>/.venv or python3)")
	fs.StringVar(&cfg.RelightFormat, "format", cfg.RelightFormat, "Relighting output format")
	fs.BoolVar(&n.noScalable, "no-scalable", false, "Do not pass --scalable to the inference stage")
}

// defineBehaviorFlags registers -m/--mode, --rebuild, -d/--dry-run.
func defineBehaviorFlags(fs *flag.FlagSet, cfg *Config) {
	fs.Var(&runModeValue{&cfg.Mode}, "mode", "Run mode: all | organize | run")
	fs.Var(&runModeValue{&cfg.Mode}, "m", "Same as --mode")
	fs.BoolVar(&cfg.Rebuild, "rebuild", false, "Rebuild standardized inputs even if present")
	fs.BoolVar(&cfg.DryRun, "dry-run", false, "Preview only; do not copy, run or move anything")
	fs.BoolVar(&cfg.DryRun, "d", false, "Same as --dry-run")
}

// defineDisplayFlags registers --color, --no-color, verbose, --check, --log, --report.
func defineDisplayFlags(fs *flag.FlagSet, cfg *Config, n *negatedFlags) {
	fs.BoolVar(&n.forceColor, "color", false, "Force colored logs")
	fs.BoolVar(&n.noColor, "no-color", false, "Disable colored logs")
	fs.BoolVar(&cfg.Verbose, "verbose", false, "Verbose output")
	fs.BoolVar(&cfg.Verbose, "v", false, "Same as --verbose")
	fs.BoolVar(&cfg.CheckOnly, "check", false, "Run system diagnostics and exit")
	fs.BoolVar(&cfg.CheckOnly, "c", false, "Same as --check")
	fs.StringVar(&cfg.LogFile, "log", "", "Append logs to file")
	fs.StringVar(&cfg.LogFile, "l", "", "Same as --log")
	fs.StringVar(&cfg.ReportFile, "report", "", "Write a JSON run report to file")
}

// defineUtilityFlags registers --version and --help (exit after printing).
func defineUtilityFlags(fs *flag.FlagSet, n *negatedFlags) {
	fs.BoolVar(&n.showVersion, "version", false, "Print version and exit")
	fs.BoolVar(&n.showVersion, "V", false, "Same as --version")
	fs.BoolVar(&n.showHelp, "help", false, "Show this help and exit")
	fs.BoolVar(&n.showHelp, "h", false, "Same as --help")
}

func applyNegatedFlags(cfg *Config, n *negatedFlags) {
	if n.noScalable {
		cfg.Scalable = false
	}
	if n.noColor {
		cfg.ColorMode = ColorNever
	} else if n.forceColor {
		cfg.ColorMode = ColorAlways
	}
}

// parsePositionalArgs sets InputDir from the single positional arg when not in CheckOnly mode.
func parsePositionalArgs(fs *flag.FlagSet, cfg *Config) error {
	args := fs.Args()
	if cfg.CheckOnly {
		return nil
	}
	if len(args) != 1 {
		return fmt.Errorf("need exactly input_dir")
	}
	cfg.InputDir = NormalizeDirArg(args[0])
	return nil
}

// printUsage writes the help text to w. Column-aligned for readability.
func printUsage(w io.Writer, version string) {
	const col1 = 30
	lines := []struct {
		flags string
		desc  string
	}{
		{"", "sdmbatch v" + version + " - SDM-UniPS multi-folder batch runner"},
		{"", ""},
		{"  sdmbatch [OPTIONS] <input_dir>", ""},
		{"", ""},
		{"Dataset", ""},
		{"  --profile <rti|diligent-mv>", "Dataset convention (default: rti)"},
		{"  -n, --num-images <n>", "Frames per input set (default: 10)"},
		{"  --verify <exact|at-least>", "Verification policy (default: exact)"},
		{"", ""},
		{"Stages", ""},
		{"  --repo <path>", "SDM-UniPS repository (default: .)"},
		{"  --checkpoint <path>", "Checkpoint dir (default: <repo>/checkpoint)"},
		{"  --python <path>", "Interpreter (default: <repo>/.venv or python3)"},
		{"  --format <fmt>", "Relighting output format (default: avi)"},
		{"  --no-scalable", "Do not pass --scalable to inference"},
		{"", ""},
		{"Behavior", ""},
		{"  -m, --mode <all|organize|run>", "What to do (default: all)"},
		{"  --rebuild", "Rebuild SDM_in.data even if present"},
		{"  -d, --dry-run", "Preview only; change nothing"},
		{"", ""},
		{"Display", ""},
		{"  --color", "Force colored logs"},
		{"  --no-color", "Disable colored logs"},
		{"  -v, --verbose", "Verbose output"},
		{"", ""},
		{"Utility", ""},
		{"  -l, --log <path>", "Append logs to file"},
		{"  --report <path>", "Write JSON run report"},
		{"  -c, --check", "System diagnostics (python, scripts, checkpoint)"},
		{"  -V, --version", "Print version and exit"},
		{"  -h, --help", "Show this help and exit"},
	}

	for _, l := range lines {
		if l.flags == "" && l.desc == "" {
			fmt.Fprintln(w)
			continue
		}
		if l.desc == "" {
			fmt.Fprintln(w, l.flags)
			continue
		}
		if l.flags == "" {
			fmt.Fprintln(w, l.desc)
			continue
		}
		padding := col1 - len(l.flags)
		if padding < 1 {
			padding = 1
		}
		fmt.Fprintf(w, "%s%*s%s\n", l.flags, padding, "", l.desc)
	}
}

// flag.Value adapters so we can use enum types with flag.Var.

type runModeValue struct{ p *RunMode }

func (m *runModeValue) String() string { return string(*m.p) }
func (m *runModeValue) Set(s string) error {
	switch strings.ToLower(s) {
	case "all":
		*m.p = ModeAll
	case "organize":
		*m.p = ModeOrganize
	case "run":
		*m.p = ModeRun
	default:
		return fmt.Errorf("invalid mode %q (use 'all', 'organize' or 'run')", s)
	}
	return nil
}

type verifyPolicyValue struct{ p *VerifyPolicy }

func (v *verifyPolicyValue) String() string { return string(*v.p) }
func (v *verifyPolicyValue) Set(s string) error {
	switch strings.ToLower(s) {
	case "exact":
		*v.p = VerifyExact
	case "at-least", "atleast":
		*v.p = VerifyAtLeast
	default:
		return fmt.Errorf("invalid verify policy %q (use 'exact' or 'at-least')", s)
	}
	return nil
}

type profileValue struct{ p *ProfileName }

func (v *profileValue) String() string { return string(*v.p) }
func (v *profileValue) Set(s string) error {
	name := ProfileName(strings.ToLower(s))
	if _, ok := LookupProfile(name); !ok {
		return fmt.Errorf("invalid profile %q (use %s)", s, profileChoices())
	}
	*v.p = name
	return nil
}
