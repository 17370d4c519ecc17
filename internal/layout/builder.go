package layout

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/cheminova/sdmbatch/internal/frames"
)

// Logger is the subset of logging.Logger the builder writes to.
type Logger interface {
	Info(string, ...interface{})
	Debug(bool, string, ...interface{})
}

// Builder materializes standardized input sets for one dataset profile.
type Builder struct {
	FrameExt string // Template extension, e.g. "JPG".
	MaskName string // Copied unrenamed when present in the source dir.
	Verbose  bool
	Log      Logger
}

// BuildResult lists what Build wrote into the destination.
type BuildResult struct {
	Frames []string // Destination frame names in index order.
	Mask   string   // Mask name, or "" when the source had none.
	Pruned []string // Stale frames beyond the selection that were removed.
}

// Build ensures destDir exists and copies the i-th selected asset to
// destDir/"L (i).<FrameExt>". If sourceDir holds the profile mask it is
// copied under its own name; a missing mask is only noted. Existing frames
// are overwritten, and template frames numbered past the selection (left by
// an earlier build with more images) are removed, so the set always holds
// exactly len(selection) frames. Other files in destDir are never touched.
func (b *Builder) Build(sourceDir string, selection []frames.ImageAsset, destDir string) (BuildResult, error) {
	var res BuildResult
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return res, fmt.Errorf("create %s: %w", destDir, err)
	}

	pruned, err := b.pruneBeyond(destDir, len(selection))
	res.Pruned = pruned
	if err != nil {
		return res, err
	}

	for i, asset := range selection {
		name := FrameName(i+1, b.FrameExt)
		dst := filepath.Join(destDir, name)
		if err := copyFile(asset.Path(), dst); err != nil {
			return res, err
		}
		res.Frames = append(res.Frames, name)
		b.debug("Copied and renamed: %s -> %s", asset.Path(), dst)
	}

	mask, ok := frames.FindMask(sourceDir, b.MaskName)
	if !ok {
		if b.Log != nil && b.MaskName != "" {
			b.Log.Info("  No %s in %s (continuing without mask)", b.MaskName, sourceDir)
		}
		return res, nil
	}
	dst := filepath.Join(destDir, mask.Name)
	if err := copyFile(mask.Path(), dst); err != nil {
		return res, err
	}
	res.Mask = mask.Name
	b.debug("Copied mask: %s -> %s", mask.Path(), dst)
	return res, nil
}

// pruneBeyond removes template frames with an index above n from destDir.
func (b *Builder) pruneBeyond(destDir string, n int) ([]string, error) {
	entries, err := os.ReadDir(destDir)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", destDir, err)
	}
	var pruned []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		idx, ok := ParseFrameName(e.Name(), b.FrameExt)
		if !ok || idx <= n {
			continue
		}
		if err := os.Remove(filepath.Join(destDir, e.Name())); err != nil {
			return pruned, fmt.Errorf("remove stale frame: %w", err)
		}
		pruned = append(pruned, e.Name())
		b.debug("Removed stale frame: %s", e.Name())
	}
	return pruned, nil
}

func (b *Builder) debug(format string, args ...interface{}) {
	if b.Log != nil {
		b.Log.Debug(b.Verbose, format, args...)
	}
}

// copyFile copies src to dst through a temp file in dst's directory and a
// rename, so an interrupted copy never leaves a truncated frame behind.
func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("copy %s: %w", src, err)
	}
	defer in.Close()

	tmp, err := os.CreateTemp(filepath.Dir(dst), ".sdmbatch-*")
	if err != nil {
		return fmt.Errorf("copy %s: %w", src, err)
	}
	tmpPath := tmp.Name()
	if _, err := io.Copy(tmp, in); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("copy %s -> %s: %w", src, dst, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("copy %s -> %s: %w", src, dst, err)
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("copy %s -> %s: %w", src, dst, err)
	}
	if err := os.Rename(tmpPath, dst); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("copy %s -> %s: %w", src, dst, err)
	}
	return nil
}
