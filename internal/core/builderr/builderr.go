// Package builderr defines the error classes a build can fail with.
// The pipeline is deterministic, so none of these are retryable: rerunning
// with the same inputs reproduces the same failure. The only recovery is to
// fix the input and rebuild.
package builderr

import "fmt"

// OracleUnavailableError reports that no canonical timestamp could be derived
// for the source tree. Substituting the current wall-clock time here would
// silently produce irreproducible archives, which is the exact defect the
// timestamp oracle exists to prevent, so this error is always fatal.
type OracleUnavailableError struct {
	Reason string
	Err    error
}

func (e *OracleUnavailableError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("timestamp oracle unavailable: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("timestamp oracle unavailable: %s", e.Reason)
}

func (e *OracleUnavailableError) Unwrap() error { return e.Err }

// StagingFailedError reports an I/O failure while assembling or normalizing
// the scratch tree.
type StagingFailedError struct {
	Reason string
	Err    error
}

func (e *StagingFailedError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("staging failed: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("staging failed: %s", e.Reason)
}

func (e *StagingFailedError) Unwrap() error { return e.Err }

// CompilationFailedError reports that the bytecode toolchain rejected a
// source file. Path is relative to the staged tree root so the message names
// the file the user actually wrote, not a scratch-directory artifact.
type CompilationFailedError struct {
	Path string
	Err  error
}

func (e *CompilationFailedError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("compilation failed for %s: %v", e.Path, e.Err)
	}
	return fmt.Sprintf("compilation failed for %s", e.Path)
}

func (e *CompilationFailedError) Unwrap() error { return e.Err }

// PackingFailedError reports an I/O failure while serializing or publishing
// the archive.
type PackingFailedError struct {
	Reason string
	Err    error
}

func (e *PackingFailedError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("packing failed: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("packing failed: %s", e.Reason)
}

func (e *PackingFailedError) Unwrap() error { return e.Err }
