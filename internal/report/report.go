// Package report writes a machine-readable JSON summary of one batch run.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/cheminova/sdmbatch/internal/config"
	"github.com/cheminova/sdmbatch/internal/pipeline"
)

// Report is the on-disk run summary.
type Report struct {
	Version     int          `json:"version"`
	RunID       string       `json:"run_id"`
	InputDir    string       `json:"input_dir"`
	RepoDir     string       `json:"repo_dir"`
	Profile     string       `json:"profile"`
	Mode        string       `json:"mode"`
	NumImages   int          `json:"num_images"`
	DryRun      bool         `json:"dry_run,omitempty"`
	StartedAt   time.Time    `json:"started_at"`
	CompletedAt time.Time    `json:"completed_at"`
	Totals      Totals       `json:"totals"`
	Experiments []Experiment `json:"experiments"`
}

// Totals mirrors pipeline.RunStats.
type Totals struct {
	Discovered int   `json:"discovered"`
	Attempted  int   `json:"attempted"`
	Done       int   `json:"done"`
	Skipped    int   `json:"skipped"`
	Failed     int   `json:"failed"`
	Built      int   `json:"built"`
	BytesMoved int64 `json:"bytes_moved"`
}

// Experiment is one experiment's record.
type Experiment struct {
	Name       string   `json:"name"`
	Dir        string   `json:"dir"`
	InputDir   string   `json:"input_dir,omitempty"`
	Status     string   `json:"status"`
	State      string   `json:"state"`
	Kind       string   `json:"kind,omitempty"`
	Error      string   `json:"error,omitempty"`
	Built      bool     `json:"built,omitempty"`
	Missing    []string `json:"missing,omitempty"`
	Extra      []string `json:"extra,omitempty"`
	Moved      []string `json:"moved,omitempty"`
	DurationMS int64    `json:"duration_ms"`
}

// New builds a report for b with a fresh run ID.
func New(cfg *config.Config, b pipeline.Batch) *Report {
	r := &Report{
		Version:     1,
		RunID:       uuid.New().String(),
		InputDir:    cfg.InputDir,
		RepoDir:     cfg.RepoDir,
		Profile:     string(cfg.Profile),
		Mode:        string(cfg.Mode),
		NumImages:   cfg.NumImages,
		DryRun:      cfg.DryRun,
		StartedAt:   b.Started,
		CompletedAt: b.Finished,
		Totals: Totals{
			Discovered: b.Stats.Total,
			Attempted:  b.Stats.Current,
			Done:       b.Stats.Done,
			Skipped:    b.Stats.Skipped,
			Failed:     b.Stats.Failed,
			Built:      b.Stats.Built,
			BytesMoved: b.Stats.BytesMoved,
		},
		Experiments: make([]Experiment, 0, len(b.Outcomes)),
	}
	for _, o := range b.Outcomes {
		r.Experiments = append(r.Experiments, record(o))
	}
	return r
}

func record(o pipeline.Outcome) Experiment {
	e := Experiment{
		Name:       o.Experiment.Name,
		Dir:        o.Experiment.Dir,
		InputDir:   o.InputDir,
		Status:     o.Status.String(),
		State:      o.State.String(),
		Kind:       string(o.Kind()),
		Built:      o.Built,
		Missing:    o.Verify.Missing,
		Extra:      o.Verify.Extra,
		Moved:      o.Moved.Names,
		DurationMS: o.Duration.Milliseconds(),
	}
	if o.Err != nil {
		e.Error = o.Err.Error()
	}
	return e
}

// Save writes r to path as indented JSON via a temp file and rename, so a
// reader never sees a partial report.
func Save(path string, r *Report) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating report directory: %w", err)
	}

	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling report: %w", err)
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("writing report: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming report: %w", err)
	}
	return nil
}

// Load reads a report written by Save.
func Load(path string) (*Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading report: %w", err)
	}
	var r Report
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("parsing report: %w", err)
	}
	return &r, nil
}
