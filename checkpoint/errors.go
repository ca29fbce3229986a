package checkpoint

import (
	"errors"
	"fmt"
)

// Checkpoint errors
var (
	ErrNoCheckpointsFound = errors.New("no checkpoints found")
	ErrEmptySet           = errors.New("refusing to write an empty checkpoint set")
	ErrTimeRegression     = errors.New("checkpoint timestamps must not decrease with height")
	ErrInvalidInterval    = errors.New("checkpoint interval must be positive")
	ErrMalformedFile      = errors.New("malformed checkpoints file")
	ErrIntegrityMismatch  = errors.New("checkpoints file does not match what was written")
	ErrNoCheckpointBefore = errors.New("no checkpoint at or before timestamp")
	ErrAlreadySigned      = errors.New("checkpoints file already carries signatures")
	ErrSignatureCount     = errors.New("signature count out of range")
	ErrSignatureSize      = errors.New("signature has wrong size")
)

// Reasons carried by MalformedFileError
const (
	ReasonBadMagic           = "bad magic"
	ReasonSignatureCount     = "signature count out of range"
	ReasonTruncatedSignature = "truncated signature"
	ReasonTruncatedCount     = "truncated record count"
	ReasonTruncatedRecord    = "truncated record"
	ReasonNonMonotonic       = "non-monotonic height"
	ReasonTimeRegression     = "non-monotonic timestamp"
	ReasonCountMismatch      = "count mismatch"
)

// MalformedFileError reports the structural invariant a checkpoints file violated.
type MalformedFileError struct {
	Reason string
	Offset int64
	Detail string
}

func (e *MalformedFileError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("malformed checkpoints file: %s at offset %d", e.Reason, e.Offset)
	}
	return fmt.Sprintf("malformed checkpoints file: %s at offset %d: %s", e.Reason, e.Offset, e.Detail)
}

// Is lets errors.Is(err, ErrMalformedFile) match any reason.
func (e *MalformedFileError) Is(target error) bool {
	return target == ErrMalformedFile
}

// IOError wraps a failure of the underlying reader, writer or filesystem.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("checkpoints %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("checkpoints %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}
