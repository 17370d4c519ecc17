// Package layout builds and verifies standardized input sets: a directory
// of frames renamed "L (1).<EXT>" through "L (N).<EXT>" plus an optional
// mask, which is the layout the inference stage reads.
//
// Building only ever copies; sources are never moved or deleted. Verifying
// only looks at names; file content is never read.
package layout
