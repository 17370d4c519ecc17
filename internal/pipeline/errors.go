package pipeline

import (
	"context"
	"errors"

	"github.com/cheminova/sdmbatch/internal/config"
	"github.com/cheminova/sdmbatch/internal/layout"
	"github.com/cheminova/sdmbatch/internal/stage"
)

// Sentinel errors for experiments that have nothing to process.
var (
	ErrNoLayout = errors.New("no " + config.InputDirName + " folder found")
	ErrNoFrames = errors.New("no source frames found")
)

// Kind classifies why an experiment did not complete.
type Kind string

const (
	KindNone          Kind = ""
	KindDiscoveryMiss Kind = "discovery-miss"
	KindMissingFrames Kind = "missing-frames"
	KindExternalStage Kind = "external-stage"
	KindFilesystem    Kind = "filesystem"
	KindInterrupted   Kind = "interrupted"
)

// Classify maps an experiment error onto the failure taxonomy. Anything
// not recognized is a filesystem error: copy, move, create and delete
// failures are the only other source of errors.
func Classify(err error) Kind {
	var (
		missing  *layout.MissingFramesError
		stageErr *stage.ExternalStageError
	)
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return KindInterrupted
	case errors.Is(err, ErrNoLayout), errors.Is(err, ErrNoFrames):
		return KindDiscoveryMiss
	case errors.As(err, &missing):
		return KindMissingFrames
	case errors.As(err, &stageErr):
		return KindExternalStage
	default:
		return KindFilesystem
	}
}
