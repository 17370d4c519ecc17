package layout

import (
	"fmt"
	"regexp"
	"strconv"
)

// FrameName returns the standardized filename for 1-based index i, e.g.
// FrameName(3, "JPG") == "L (3).JPG". No zero padding.
func FrameName(i int, ext string) string {
	return fmt.Sprintf("L (%d).%s", i, ext)
}

// ExpectedNames returns FrameName(1, ext) through FrameName(n, ext).
func ExpectedNames(n int, ext string) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = FrameName(i+1, ext)
	}
	return out
}

// ParseFrameName returns the index encoded in name when it matches the
// template for ext exactly (same case, no padding, index >= 1).
func ParseFrameName(name, ext string) (int, bool) {
	m := templateRE(ext).FindStringSubmatch(name)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil || n < 1 {
		return 0, false
	}
	return n, true
}

func templateRE(ext string) *regexp.Regexp {
	return regexp.MustCompile(`^L \(([1-9][0-9]*)\)\.` + regexp.QuoteMeta(ext) + `$`)
}
