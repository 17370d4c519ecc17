package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cheminova/sdmbatch/internal/config"
	"github.com/cheminova/sdmbatch/internal/discover"
	"github.com/cheminova/sdmbatch/internal/display"
	"github.com/cheminova/sdmbatch/internal/frames"
	"github.com/cheminova/sdmbatch/internal/layout"
	"github.com/cheminova/sdmbatch/internal/logging"
	"github.com/cheminova/sdmbatch/internal/results"
	"github.com/cheminova/sdmbatch/internal/stage"
)

// Pipeline carries the collaborators shared by every experiment of a run.
// All of them are read-only once Run starts.
type Pipeline struct {
	cfg       *config.Config
	log       *logging.Logger
	runner    stage.Runner
	profile   config.Profile
	disc      *discover.Discoverer
	builder   *layout.Builder
	relocator *results.Relocator
}

// New wires a Pipeline for cfg. runner executes the external stages;
// production passes a *stage.ExecRunner, tests a *stage.FakeRunner.
func New(cfg *config.Config, log *logging.Logger, runner stage.Runner) *Pipeline {
	profile := cfg.ActiveProfile()
	return &Pipeline{
		cfg:     cfg,
		log:     log,
		runner:  runner,
		profile: profile,
		disc:    &discover.Discoverer{Profile: profile},
		builder: &layout.Builder{
			FrameExt: profile.FrameExt,
			MaskName: profile.MaskName,
			Verbose:  cfg.Verbose,
			Log:      log,
		},
		relocator: &results.Relocator{Log: log, Verbose: cfg.Verbose},
	}
}

// Run is the top-level batch entry point: discover, then process each
// experiment in order. It never aborts on a per-experiment failure; only an
// exhausted worklist or a cancelled ctx ends the loop.
func Run(ctx context.Context, cfg *config.Config, log *logging.Logger, runner stage.Runner) Batch {
	return New(cfg, log, runner).Run(ctx)
}

// Run processes every discovered experiment. See the package-level Run.
func (p *Pipeline) Run(ctx context.Context) Batch {
	b := Batch{Started: time.Now()}

	exps, err := p.disc.Discover(p.cfg.InputDir)
	if err != nil {
		p.log.Error("Experiment discovery failed: %v", err)
		b.Finished = time.Now()
		return b
	}
	b.Stats.Total = len(exps)
	p.logBatchHeader(&b.Stats)

	for i, exp := range exps {
		if ctx.Err() != nil {
			p.log.Warn("Interrupted, %d experiment(s) not attempted", len(exps)-i)
			break
		}
		b.Stats.Current = i + 1
		p.log.Info("[%d/%d] %s", b.Stats.Current, b.Stats.Total, exp.Name)

		o := p.ProcessExperiment(ctx, exp)
		b.Stats.add(o)
		b.Outcomes = append(b.Outcomes, o)
		p.log.Blank()
	}

	b.Finished = time.Now()
	p.logSummary(&b)
	return b
}

// ProcessExperiment drives one experiment through
// located -> verified -> stage 1 -> stage 2 -> relocated -> cleaned up,
// stopping at the first failed transition. It always returns an Outcome;
// errors never escape it.
func (p *Pipeline) ProcessExperiment(ctx context.Context, exp discover.Experiment) (o Outcome) {
	start := time.Now()
	o = Outcome{Experiment: exp, State: StateDiscovered}
	defer func() { o.Duration = time.Since(start) }()

	// --- Locate (or build) the standardized input set ---
	inputDir, built, err := p.locateLayout(exp)
	if err != nil {
		if Classify(err) == KindDiscoveryMiss {
			return p.skip(o, err)
		}
		return p.fail(o, "build", err)
	}
	o.InputDir = inputDir
	o.Built = built && !p.cfg.DryRun
	o.State = StateLayoutLocated

	if p.cfg.DryRun && built {
		// Nothing was written, so there is nothing to verify yet.
		p.logPlannedStages(exp, inputDir)
		return p.done(o)
	}

	// --- Verify ---
	rep, err := layout.VerifyDir(inputDir, p.profile.FrameExt, p.cfg.NumImages)
	o.Verify = rep
	if err != nil {
		return p.fail(o, "verify", err)
	}
	p.logExtras(rep)
	p.log.Info("  Verified images in %s", inputDir)
	o.State = StateVerified

	if !p.cfg.RunsStages() {
		return p.done(o)
	}
	if p.cfg.DryRun {
		p.logPlannedStages(exp, inputDir)
		return p.done(o)
	}

	// --- External stages ---
	run := stage.NewPipelineRun(p.cfg, exp.Name, inputDir)
	if _, err := os.Stat(run.Workspace()); err == nil {
		p.log.Warn("  Session workspace %s already exists (left by an earlier run?)", run.Workspace())
	}

	if err := p.runStage(ctx, stage.InferenceInvocation(p.cfg, run)); err != nil {
		return p.fail(o, "inference", err)
	}
	p.log.Info("  Completed %s for %s", p.cfg.InferenceScript, run.Session)
	o.State = StateStage1Complete

	if err := p.runStage(ctx, stage.RelightInvocation(p.cfg, run)); err != nil {
		return p.fail(o, "relighting", err)
	}
	p.log.Info("  Completed %s for %s", p.cfg.RelightScript, run.Session)
	o.State = StateStage2Complete

	// --- Relocate and clean up ---
	moved, err := p.relocator.Relocate(run.ResultsDir(), run.OutputDir())
	o.Moved = moved
	if err != nil {
		return p.fail(o, "relocate", err)
	}
	p.log.Info("  Moved %d file(s) (%s) to %s", len(moved.Names), display.FormatBytes(moved.Bytes), run.OutputDir())
	o.State = StateRelocated

	if err := results.Cleanup(run.Workspace()); err != nil {
		return p.fail(o, "cleanup", err)
	}
	p.log.Info("  Cleaned up %s", run.Workspace())
	o.State = StateCleanedUp

	return p.done(o)
}

// locateLayout returns the standardized input set to use, building it from
// the experiment's source frames when it is missing (or --rebuild is set)
// and the run mode allows building.
func (p *Pipeline) locateLayout(exp discover.Experiment) (dir string, built bool, err error) {
	if !exp.Processable(p.cfg.BuildsLayouts()) {
		return "", false, fmt.Errorf("%w in %s", ErrNoLayout, exp.Dir)
	}
	wantBuild := p.cfg.BuildsLayouts() && exp.SourceDir != "" && (!exp.HasLayout() || p.cfg.Rebuild)
	if !wantBuild {
		p.log.Debug(p.cfg.Verbose, "  Found %s", exp.InputDir)
		return exp.InputDir, false, nil
	}

	dir, err = p.buildLayout(exp)
	if errors.Is(err, ErrNoFrames) && exp.HasLayout() {
		p.log.Warn("  No source frames in %s, keeping existing %s", exp.SourceDir, exp.InputDir)
		return exp.InputDir, false, nil
	}
	if err != nil {
		return "", false, err
	}
	return dir, true, nil
}

// buildLayout selects NumImages equally spaced frames from the source
// folder and copies them into <source>/SDM_in.data.
func (p *Pipeline) buildLayout(exp discover.Experiment) (string, error) {
	assets, err := frames.List(exp.SourceDir, p.profile.SourceExt, p.profile.MaskName)
	if err != nil {
		return "", err
	}
	if len(assets) == 0 {
		return "", fmt.Errorf("%w in %s (*%s)", ErrNoFrames, exp.SourceDir, p.profile.SourceExt)
	}
	if len(assets) < p.cfg.NumImages {
		p.log.Warn("  Found only %d images, but %d were requested in %s", len(assets), p.cfg.NumImages, exp.SourceDir)
	}

	selection := frames.Select(assets, p.cfg.NumImages)
	dest := filepath.Join(exp.SourceDir, config.InputDirName)

	if p.cfg.DryRun {
		p.log.Success("  [DRY] Would build %s from %d of %d frames", dest, len(selection), len(assets))
		for i, a := range selection {
			p.log.Debug(p.cfg.Verbose, "  [DRY] %s -> %s", a.Name, layout.FrameName(i+1, p.profile.FrameExt))
		}
		return dest, nil
	}

	res, err := p.builder.Build(exp.SourceDir, selection, dest)
	if err != nil {
		return "", err
	}
	maskNote := ""
	if res.Mask != "" {
		maskNote = " + " + res.Mask
	}
	p.log.Info("  Built %s (%d of %d frames%s)", dest, len(res.Frames), len(assets), maskNote)
	if len(res.Pruned) > 0 {
		p.log.Info("  Removed %d stale frame(s): %s", len(res.Pruned), strings.Join(res.Pruned, ", "))
	}
	return dest, nil
}

// runStage blocks until the stage process exits. If ctx was cancelled
// meanwhile, the stage error is reported as an interruption.
func (p *Pipeline) runStage(ctx context.Context, inv stage.Invocation) error {
	p.log.Info("  Running %s stage", inv.Stage)
	p.log.Debug(p.cfg.Verbose, "  $ %s", inv.CommandLine())
	err := p.runner.Run(ctx, inv)
	if err != nil && ctx.Err() != nil {
		return fmt.Errorf("%w: %w", ctx.Err(), err)
	}
	return err
}

// logExtras reports template frames past N. The stage reads every frame in
// the folder, so under the exact policy they are worth a warning.
func (p *Pipeline) logExtras(rep layout.Report) {
	if len(rep.Extra) == 0 {
		return
	}
	msg := fmt.Sprintf("  %d frame(s) beyond %d in %s: %s", len(rep.Extra), p.cfg.NumImages, rep.Dir, strings.Join(rep.Extra, ", "))
	if p.cfg.Verify == config.VerifyExact {
		p.log.Warn("%s (use --rebuild to trim)", msg)
		return
	}
	p.log.Info("%s", msg)
}

func (p *Pipeline) logPlannedStages(exp discover.Experiment, inputDir string) {
	if !p.cfg.RunsStages() {
		return
	}
	run := stage.NewPipelineRun(p.cfg, exp.Name, inputDir)
	p.log.Success("  [DRY] Would run: %s", stage.InferenceInvocation(p.cfg, run).CommandLine())
	p.log.Success("  [DRY] Would run: %s", stage.RelightInvocation(p.cfg, run).CommandLine())
	p.log.Success("  [DRY] Would move %s -> %s", run.ResultsDir(), run.OutputDir())
}

// --- Outcome helpers ---

func (p *Pipeline) done(o Outcome) Outcome {
	o.Status = StatusDone
	p.log.Success("%s: %s", o.Experiment.Name, o.State)
	return o
}

func (p *Pipeline) skip(o Outcome, err error) Outcome {
	o.Status = StatusSkipped
	o.Err = err
	p.log.Skip("%s: %v, skipping...", o.Experiment.Name, err)
	return o
}

// fail records a failed transition. Transient state is left in place for
// inspection.
func (p *Pipeline) fail(o Outcome, step string, err error) Outcome {
	o.Status = StatusFailed
	o.Err = fmt.Errorf("%s: %w", step, err)
	p.log.Error("Error processing %s (%s, after %s): %v", o.Experiment.Name, Classify(err), o.State, o.Err)
	return o
}

// --- Logging helpers ---

func (p *Pipeline) logBatchHeader(stats *RunStats) {
	p.log.Info("Found %d experiment(s) in %s", stats.Total, p.cfg.InputDir)
	p.log.Info("Profile: %s (L (n).%s, mask %s), %d frames, verify %s",
		p.profile.Name, p.profile.FrameExt, p.profile.MaskName, p.cfg.NumImages, p.cfg.Verify)
	p.log.Info("Mode: %s", p.cfg.Mode)
	if p.cfg.RunsStages() {
		p.log.Info("Repository: %s", p.cfg.RepoDir)
		p.log.Info("Checkpoint: %s", p.cfg.Checkpoint)
		p.log.Info("Python: %s", p.cfg.Python)
		p.log.Info("Relighting format: %s, scalable: %v", p.cfg.RelightFormat, p.cfg.Scalable)
	}
	if p.cfg.Rebuild {
		p.log.Info("Rebuilding existing %s folders", config.InputDirName)
	}
	p.log.Blank()
}

func (p *Pipeline) logSummary(b *Batch) {
	s := b.Stats
	p.log.Info("==============================")
	p.log.Info("Done: %d completed, %d skipped, %d failed (%d layouts built)", s.Done, s.Skipped, s.Failed, s.Built)
	p.log.Info("  Experiments attempted: %d of %d", s.Current, s.Total)
	p.log.Info("  Elapsed: %s", display.FormatDuration(b.Finished.Sub(b.Started)))
	if s.BytesMoved > 0 {
		p.log.Info("  Results moved: %s", display.FormatBytes(s.BytesMoved))
	}
	for _, o := range b.Outcomes {
		if o.Status == StatusFailed {
			p.log.Error("  %s: %v", o.Experiment.Name, o.Err)
		}
	}
}
