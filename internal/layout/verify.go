package layout

import (
	"fmt"
	"io/fs"
	"os"
	"sort"
)

// Report is the outcome of checking one standardized input set.
type Report struct {
	Dir     string
	Present []string // Expected frames found, in index order.
	Missing []string // Expected frames absent, in index order.
	Extra   []string // Template matches with index > N, in index order.
}

// VerifyDir checks the standardized input set at dir. See [Verify].
func VerifyDir(dir, ext string, n int) (Report, error) {
	return Verify(os.DirFS(dir), dir, ext, n)
}

// Verify checks that fsys (rooted at the standardized directory; dir is only
// used in messages) holds "L (1).<ext>" through "L (n).<ext>".
//
// Any absent expected frame fails with a *MissingFramesError listing all of
// them. Template matches beyond n never fail verification; they are listed
// in Report.Extra for the caller to report. Files that do not match the
// template (the mask, stray files) are ignored.
func Verify(fsys fs.FS, dir, ext string, n int) (Report, error) {
	r := Report{Dir: dir}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return r, fmt.Errorf("read standardized input %s: %w", dir, err)
	}

	files := make(map[string]bool, len(entries))
	extra := map[int]string{}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		files[e.Name()] = true
		if idx, ok := ParseFrameName(e.Name(), ext); ok && idx > n {
			extra[idx] = e.Name()
		}
	}

	for _, name := range ExpectedNames(n, ext) {
		if files[name] {
			r.Present = append(r.Present, name)
		} else {
			r.Missing = append(r.Missing, name)
		}
	}

	idxs := make([]int, 0, len(extra))
	for idx := range extra {
		idxs = append(idxs, idx)
	}
	sort.Ints(idxs)
	for _, idx := range idxs {
		r.Extra = append(r.Extra, extra[idx])
	}

	if len(r.Missing) > 0 {
		return r, &MissingFramesError{Dir: dir, Missing: r.Missing}
	}
	return r, nil
}
