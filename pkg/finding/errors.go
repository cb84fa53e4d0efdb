package finding

import "errors"

// Sentinel errors for common scan failure modes.
// Callers should use errors.Is() to check for these.
var (
	// ErrTimeout indicates an external tool did not finish within the
	// configured deadline.
	ErrTimeout = errors.New("finding: timeout")

	// ErrToolMissing indicates a required scanner binary was not found
	// on PATH or at its configured location.
	ErrToolMissing = errors.New("finding: scanner binary missing")

	// ErrToolFailed indicates the scanner process exited nonzero.
	ErrToolFailed = errors.New("finding: scanner failed")

	// ErrInterpretation indicates the AI interpretation call failed for
	// a single finding. Non-fatal: callers substitute a placeholder.
	ErrInterpretation = errors.New("finding: interpretation failed")
)
