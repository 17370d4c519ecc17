// Package discover finds the experiments under an input root and locates
// each one's standardized input set and raw capture folder.
package discover

import (
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/maruel/natural"

	"github.com/cheminova/sdmbatch/internal/config"
)

// DefaultMaxDepth bounds the marker search below an experiment directory.
const DefaultMaxDepth = 16

// Experiment is one acquisition dataset directory.
type Experiment struct {
	Name      string // Directory name; also the stage session name.
	Dir       string // Absolute experiment directory.
	InputDir  string // SDM_in.data location, "" when none was found.
	SourceDir string // Raw capture folder, "" when none was found.
}

// HasLayout reports whether a standardized input set was found.
func (e Experiment) HasLayout() bool { return e.InputDir != "" }

// Processable reports whether anything can be done with e: it either has a
// standardized input set or, when building is allowed, a source to build one.
func (e Experiment) Processable(canBuild bool) bool {
	return e.HasLayout() || (canBuild && e.SourceDir != "")
}

// Discoverer walks an input root using one dataset profile.
type Discoverer struct {
	Profile  config.Profile
	MaxDepth int // <= 0 means DefaultMaxDepth.
}

// Discover lists the experiments under root in natural order and locates
// their directories. A failed search inside one experiment leaves its paths
// empty rather than aborting discovery of the rest.
func (d *Discoverer) Discover(root string) ([]Experiment, error) {
	names, err := d.ListExperiments(root)
	if err != nil {
		return nil, err
	}

	exps := make([]Experiment, 0, len(names))
	for _, name := range names {
		dir := filepath.Join(root, name)
		exp := Experiment{Name: name, Dir: dir}
		fsys := os.DirFS(dir)

		if rel, ok := FindDir(fsys, config.InputDirName, d.maxDepth()); ok {
			exp.InputDir = filepath.Join(dir, filepath.FromSlash(rel))
		}
		exp.SourceDir = d.sourceDir(fsys, dir, exp.InputDir)
		exps = append(exps, exp)
	}
	return exps, nil
}

// sourceDir locates the raw capture folder. When the standardized input set
// already exists, its parent is preferred: that is where it was built from.
func (d *Discoverer) sourceDir(fsys fs.FS, dir, inputDir string) string {
	if d.Profile.SourceDirName == "" {
		return dir
	}
	if inputDir != "" {
		parent := filepath.Dir(inputDir)
		if filepath.Base(parent) == d.Profile.SourceDirName {
			return parent
		}
	}
	if rel, ok := FindDir(fsys, d.Profile.SourceDirName, d.maxDepth()); ok {
		return filepath.Join(dir, filepath.FromSlash(rel))
	}
	return ""
}

func (d *Discoverer) maxDepth() int {
	if d.MaxDepth <= 0 {
		return DefaultMaxDepth
	}
	return d.MaxDepth
}

// ListExperiments returns the names of root's immediate subdirectories that
// carry the profile's experiment prefix, in natural order (exp_2 before
// exp_10).
func (d *Discoverer) ListExperiments(root string) ([]string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("list experiments in %s: %w", root, err)
	}
	var names []string
	for _, e := range entries {
		if !isDir(root, e) {
			continue
		}
		if !strings.HasPrefix(e.Name(), d.Profile.ExperimentPrefix) {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Sort(natural.StringSlice(names))
	return names, nil
}

// isDir follows a symlinked experiment directory.
func isDir(root string, e fs.DirEntry) bool {
	if e.IsDir() {
		return true
	}
	if e.Type()&fs.ModeSymlink == 0 {
		return false
	}
	fi, err := os.Stat(filepath.Join(root, e.Name()))
	return err == nil && fi.IsDir()
}

// FindDir searches fsys top-down for a directory called name and returns
// its slash-separated path relative to the fsys root. At every level the
// immediate children are checked before descending, children are visited in
// lexical order, and the first match wins. The root itself never matches.
// Search stops maxDepth levels below the root; unreadable directories are
// skipped.
func FindDir(fsys fs.FS, name string, maxDepth int) (string, bool) {
	return findDir(fsys, ".", name, 1, maxDepth)
}

func findDir(fsys fs.FS, dir, name string, depth, maxDepth int) (string, bool) {
	if depth > maxDepth {
		return "", false
	}
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return "", false
	}
	for _, e := range entries {
		if e.IsDir() && e.Name() == name {
			return path.Join(dir, e.Name()), true
		}
	}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if found, ok := findDir(fsys, path.Join(dir, e.Name()), name, depth+1, maxDepth); ok {
			return found, true
		}
	}
	return "", false
}
