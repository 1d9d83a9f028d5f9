package pipeline

import "fmt"

// The capability contract errors below are unrecoverable within a run:
// the schema itself is presumed sound, so retrying malformed output only
// wastes attempts. They are surfaced, never retried.

// ExtractionFormatError reports a perception response that violates the
// extraction schema.
type ExtractionFormatError struct {
	Err error
}

func (e *ExtractionFormatError) Error() string {
	return "extraction response violates schema: " + e.Err.Error()
}
func (e *ExtractionFormatError) Unwrap() error { return e.Err }

// GenerationFormatError reports a generation response that violates the
// code-artifact schema.
type GenerationFormatError struct {
	Err error
}

func (e *GenerationFormatError) Error() string {
	return "generation response violates schema: " + e.Err.Error()
}
func (e *GenerationFormatError) Unwrap() error { return e.Err }

// CorrectionFormatError reports a correction response that violates the
// code-artifact schema.
type CorrectionFormatError struct {
	Err error
}

func (e *CorrectionFormatError) Error() string {
	return "correction response violates schema: " + e.Err.Error()
}
func (e *CorrectionFormatError) Unwrap() error { return e.Err }

// VerificationTransportError reports that the compile service was
// unreachable or answered with something other than a structured result.
// Distinct from a Failed verdict: there is no usable diagnostic log, so
// it must not consume a correction attempt.
type VerificationTransportError struct {
	Err error
}

func (e *VerificationTransportError) Error() string {
	return fmt.Sprintf("compile service unavailable: %v", e.Err)
}
func (e *VerificationTransportError) Unwrap() error { return e.Err }
