package frames

import "fmt"

// Select returns k equally spaced elements of seq. When len(seq) <= k the
// input is returned unchanged. Otherwise step = len(seq)/k (integer
// division) and the result holds seq[0], seq[step], ..., seq[(k-1)*step];
// the tail past (k-1)*step is never sampled.
//
// k <= 0 is a configuration error the caller must rule out; Select panics.
func Select[T any](seq []T, k int) []T {
	idx := Indices(len(seq), k)
	if len(idx) == len(seq) {
		return seq
	}
	out := make([]T, len(idx))
	for i, j := range idx {
		out[i] = seq[j]
	}
	return out
}

// Indices returns the positions Select would pick from a sequence of
// length n.
func Indices(n, k int) []int {
	if k <= 0 {
		panic(fmt.Sprintf("frames: select count must be positive, got %d", k))
	}
	if n <= k {
		idx := make([]int, n)
		for i := range idx {
			idx[i] = i
		}
		return idx
	}
	step := n / k
	idx := make([]int, k)
	for i := range idx {
		idx[i] = i * step
	}
	return idx
}
