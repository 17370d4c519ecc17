// Package frames lists the captured images of one acquisition and picks the
// equally spaced subset that becomes a standardized input set.
//
// Ordering is natural (IMG_9 before IMG_10) and selection is a fixed-step
// decimation, so re-running on an unchanged directory always yields the same
// frames.
package frames
