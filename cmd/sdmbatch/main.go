// Command sdmbatch is the CLI entrypoint for the SDM-UniPS batch runner.
//
// It parses flags, validates configuration and paths, and either runs
// system diagnostics (--check) or the organize/inference/relighting
// pipeline over every experiment under the input directory.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/cheminova/sdmbatch/internal/check"
	"github.com/cheminova/sdmbatch/internal/config"
	"github.com/cheminova/sdmbatch/internal/display"
	"github.com/cheminova/sdmbatch/internal/logging"
	"github.com/cheminova/sdmbatch/internal/pipeline"
	"github.com/cheminova/sdmbatch/internal/report"
	"github.com/cheminova/sdmbatch/internal/stage"
)

// version and commit are injected at build time via -ldflags.
var (
	version = "1.0.0"
	commit  = "unknown"
)

func main() {
	os.Exit(run())
}

func run() int {
	// Phase 1: Bootstrap. The logger doesn't exist yet, so errors go
	// directly to stderr via fmt.
	cfg := config.DefaultConfig()
	if err := config.ParseFlags(&cfg, version); err != nil {
		fmt.Fprintf(os.Stderr, "sdmbatch: %v\n", err)
		return 1
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "sdmbatch: %v\n", err)
		return 1
	}
	if err := cfg.ResolvePaths(); err != nil {
		fmt.Fprintf(os.Stderr, "sdmbatch: %v\n", err)
		return 1
	}

	log, err := logging.NewLogger(&cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "sdmbatch: %v\n", err)
		return 1
	}
	defer log.Close()

	// Phase 2: Logger available.
	display.PrintBanner(os.Stdout)

	if cfg.CheckOnly {
		if !check.RunCheck(&cfg, log) {
			return 1
		}
		return 0
	}

	// The input root must exist, and the working root must not be inside
	// it or session workspaces would be discovered as experiments.
	inputAbs, err := absPath(cfg.InputDir)
	if err != nil {
		log.Error("Input not found: %s", cfg.InputDir)
		return 1
	}
	repoAbs := cfg.RepoDir
	if resolved, err := absPath(cfg.RepoDir); err == nil {
		repoAbs = resolved
	}
	if err := cfg.ValidatePaths(inputAbs, repoAbs); err != nil {
		log.Error("%v", err)
		log.Error("Choose a repository path outside: %s", cfg.InputDir)
		return 1
	}

	log.Info("=== sdmbatch v%s (%s) ===", version, commit)
	log.Info("In:   %s", cfg.InputDir)
	if cfg.DryRun {
		log.Warn("DRY RUN: no files will be written and no stage will run")
	}
	log.Blank()

	// Check the interpreter, scripts and checkpoint up front. In run mode a
	// miss ends the run; in all mode layouts are still organized.
	if cfg.RunsStages() && !cfg.DryRun {
		if err := check.CheckDeps(&cfg); err != nil {
			if cfg.PreflightAborts() {
				log.Error("%v", err)
				log.Error("Run with --check for details")
				return 1
			}
			log.Warn("%v: layouts will be organized, stages are expected to fail (see --check)", err)
		}
	}

	// Phase 3: Signal handling. Cancel on SIGINT/SIGTERM; the running stage
	// is killed and no further experiment is started.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Warn("Received interrupt, stopping the running stage…")
		cancel()
	}()

	// Phase 4: Run pipeline (discover, organize, verify, stages, relocate).
	runner := &stage.ExecRunner{Stdout: log.Stdout(), Stderr: log.Stderr()}
	batch := pipeline.Run(ctx, &cfg, log, runner)

	if cfg.ReportFile != "" {
		r := report.New(&cfg, batch)
		if err := report.Save(cfg.ReportFile, r); err != nil {
			log.Error("Writing report: %v", err)
		} else {
			log.Info("Report %s written to %s", r.RunID, cfg.ReportFile)
		}
	}

	if batch.Stats.Failed > 0 {
		return 1
	}
	return 0
}

// absPath returns the absolute, symlink-resolved path for safe comparison
// of the input and repository hierarchies.
func absPath(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	return filepath.EvalSymlinks(abs)
}
