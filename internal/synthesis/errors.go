package synthesis

import (
	"errors"
	"fmt"

	"github.com/newsloom/source-manager/internal/models"
)

// Stage names the pipeline stage at which a synthesis failed.
type Stage string

const (
	StageAnalysis   Stage = "analysis"
	StageGeneration Stage = "generation"
	StageValidation Stage = "validation"
)

// SynthesisError is the single terminal failure surfaced to callers. It
// carries the identifier and the failing stage for diagnostics and unwraps to
// the underlying cause.
type SynthesisError struct {
	Identifier string
	Stage      Stage
	Err        error
}

func (e *SynthesisError) Error() string {
	return fmt.Sprintf("synthesis of %q failed at %s stage: %v", e.Identifier, e.Stage, e.Err)
}

func (e *SynthesisError) Unwrap() error {
	return e.Err
}

// failureStage classifies a generative-stage error: structurally invalid
// output is a validation failure, everything else a generation failure.
func failureStage(err error) Stage {
	if errors.Is(err, models.ErrMissingPlatform) ||
		errors.Is(err, models.ErrMissingCommon) ||
		errors.Is(err, models.ErrPlatformMismatch) {
		return StageValidation
	}
	return StageGeneration
}
