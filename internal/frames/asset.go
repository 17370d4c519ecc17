package frames

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/maruel/natural"
)

// Kind distinguishes primary captures from the auxiliary mask.
type Kind int

const (
	KindFrame Kind = iota
	KindMask
)

func (k Kind) String() string {
	if k == KindMask {
		return "mask"
	}
	return "frame"
}

// ImageAsset is one image file discovered on disk.
type ImageAsset struct {
	Name string // Base filename.
	Dir  string // Parent directory.
	Kind Kind
}

// Path returns the asset's full path.
func (a ImageAsset) Path() string { return filepath.Join(a.Dir, a.Name) }

// List returns the regular files directly inside dir whose extension
// matches ext (case-insensitive, with leading dot), in natural order. Names
// in exclude (compared case-insensitively) are left out, which keeps a mask
// sharing the frame extension out of the candidate set.
func List(dir, ext string, exclude ...string) ([]ImageAsset, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("list frames in %s: %w", dir, err)
	}

	skip := make(map[string]bool, len(exclude))
	for _, name := range exclude {
		skip[strings.ToLower(name)] = true
	}

	var names []string
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		name := e.Name()
		if skip[strings.ToLower(name)] {
			continue
		}
		if !strings.EqualFold(filepath.Ext(name), ext) {
			continue
		}
		names = append(names, name)
	}
	sort.Sort(natural.StringSlice(names))

	assets := make([]ImageAsset, len(names))
	for i, name := range names {
		assets[i] = ImageAsset{Name: name, Dir: dir, Kind: KindFrame}
	}
	return assets, nil
}

// FindMask returns the mask asset named name inside dir, if it exists as a
// regular file.
func FindMask(dir, name string) (ImageAsset, bool) {
	if name == "" {
		return ImageAsset{}, false
	}
	fi, err := os.Stat(filepath.Join(dir, name))
	if err != nil || !fi.Mode().IsRegular() {
		return ImageAsset{}, false
	}
	return ImageAsset{Name: name, Dir: dir, Kind: KindMask}, true
}
