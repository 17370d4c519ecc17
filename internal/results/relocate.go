// Package results moves stage output out of the transient session
// workspace into the experiment's durable output directory and removes the
// workspace afterwards.
package results

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"syscall"
)

// Logger is the subset of logging.Logger the relocator writes to.
type Logger interface {
	Warn(string, ...interface{})
	Debug(bool, string, ...interface{})
}

// Relocator moves result files. The zero value is usable and silent.
type Relocator struct {
	Log     Logger
	Verbose bool
}

// Moved summarizes one relocation.
type Moved struct {
	Names []string // Entry names moved, in directory order.
	Bytes int64    // Total size of moved regular files.
}

// Relocate ensures destDir exists and moves every entry directly under
// resultsDir into it, then removes the emptied resultsDir. Subdirectories
// move as a unit and are not merged: an entry already present in destDir
// under the same name is replaced, with a warning.
func (r *Relocator) Relocate(resultsDir, destDir string) (Moved, error) {
	var m Moved
	entries, err := os.ReadDir(resultsDir)
	if err != nil {
		return m, fmt.Errorf("read results %s: %w", resultsDir, err)
	}
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return m, fmt.Errorf("create %s: %w", destDir, err)
	}

	for _, e := range entries {
		src := filepath.Join(resultsDir, e.Name())
		dst := filepath.Join(destDir, e.Name())

		size := treeSize(src)
		if _, err := os.Lstat(dst); err == nil {
			r.warn("Overwriting existing %s", dst)
			if err := replace(src, dst); err != nil {
				return m, err
			}
		} else if err := move(src, dst); err != nil {
			return m, err
		}
		m.Names = append(m.Names, e.Name())
		m.Bytes += size
		if r.Log != nil {
			r.Log.Debug(r.Verbose, "Moved %s -> %s", src, dst)
		}
	}

	if err := os.Remove(resultsDir); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return m, fmt.Errorf("remove %s: %w", resultsDir, err)
	}
	return m, nil
}

func (r *Relocator) warn(format string, args ...interface{}) {
	if r.Log != nil {
		r.Log.Warn(format, args...)
	}
}

// Cleanup recursively deletes a session workspace. It refuses paths that
// are empty or a filesystem root.
func Cleanup(workspace string) error {
	clean := filepath.Clean(workspace)
	if workspace == "" || clean == "." || clean == filepath.Dir(clean) {
		return fmt.Errorf("refusing to remove workspace %q", workspace)
	}
	if err := os.RemoveAll(clean); err != nil {
		return fmt.Errorf("remove workspace %s: %w", clean, err)
	}
	return nil
}

// Suffixes of the sibling names replace stages through.
const (
	incomingSuffix = ".sdmbatch-new"
	previousSuffix = ".sdmbatch-old"
)

// replace moves src over the existing entry dst. The new entry is first
// moved next to dst and only then swapped in, so until the swap succeeds
// the old dst is intact, and a failed swap restores it.
func replace(src, dst string) error {
	staged := dst + incomingSuffix
	if err := os.RemoveAll(staged); err != nil {
		return fmt.Errorf("replace %s: %w", dst, err)
	}
	if err := move(src, staged); err != nil {
		return err
	}

	old := dst + previousSuffix
	if err := os.RemoveAll(old); err != nil {
		return fmt.Errorf("replace %s (new result kept at %s): %w", dst, staged, err)
	}
	if err := os.Rename(dst, old); err != nil {
		return fmt.Errorf("replace %s (new result kept at %s): %w", dst, staged, err)
	}
	if err := os.Rename(staged, dst); err != nil {
		if rerr := os.Rename(old, dst); rerr != nil {
			return fmt.Errorf("replace %s: %w (previous entry left at %s)", dst, err, old)
		}
		return fmt.Errorf("replace %s (new result kept at %s): %w", dst, staged, err)
	}
	if err := os.RemoveAll(old); err != nil {
		return fmt.Errorf("replace %s: remove previous entry: %w", dst, err)
	}
	return nil
}

// move renames src to dst, falling back to copy-then-delete only when the
// two live on different filesystems. Any other rename failure is returned
// as is.
func move(src, dst string) error {
	err := os.Rename(src, dst)
	if err == nil {
		return nil
	}
	if !errors.Is(err, syscall.EXDEV) {
		return fmt.Errorf("move %s: %w", src, err)
	}
	if err := copyTree(src, dst); err != nil {
		os.RemoveAll(dst)
		return fmt.Errorf("move %s -> %s: %w", src, dst, err)
	}
	if err := os.RemoveAll(src); err != nil {
		return fmt.Errorf("move %s: remove source: %w", src, err)
	}
	return nil
}

func copyTree(src, dst string) error {
	return filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if d.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		return copyFile(path, target)
	})
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	fi, err := in.Stat()
	if err != nil {
		return err
	}
	out, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, fi.Mode().Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

func treeSize(path string) int64 {
	var total int64
	_ = filepath.WalkDir(path, func(_ string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.Type().IsRegular() {
			if fi, err := d.Info(); err == nil {
				total += fi.Size()
			}
		}
		return nil
	})
	return total
}
