package layout

import (
	"fmt"
	"strings"
)

// MissingFramesError reports every expected frame absent from a
// standardized input set.
type MissingFramesError struct {
	Dir     string
	Missing []string
}

func (e *MissingFramesError) Error() string {
	return fmt.Sprintf("missing %d frame(s) in %s: %s", len(e.Missing), e.Dir, quoteAll(e.Missing))
}

func quoteAll(names []string) string {
	q := make([]string, len(names))
	for i, n := range names {
		q[i] = "\"" + n + "\""
	}
	return strings.Join(q, ", ")
}
