package pipeline

import "fmt"

// Stage identifies the pipeline stage where a cycle error occurred.
type Stage string

const (
	StageCapture  Stage = "capture"
	StageExtract  Stage = "extract"
	StageClassify Stage = "classify"
	StageDispatch Stage = "dispatch"
)

// CycleError wraps a recoverable error from a single pipeline cycle. The
// controller logs it, records it, and moves on to the next frame; only
// configuration errors caught at Start are fatal.
type CycleError struct {
	Stage Stage
	Err   error
}

// Error implements the error interface.
func (e *CycleError) Error() string {
	return fmt.Sprintf("pipeline %s: %v", e.Stage, e.Err)
}

// Unwrap returns the underlying stage error.
func (e *CycleError) Unwrap() error {
	return e.Err
}
