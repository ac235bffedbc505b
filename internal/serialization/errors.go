package serialization

import (
	"errors"
	"fmt"
)

var (
	ErrChecksumMismatch   = errors.New("checksum mismatch: file may be corrupted")
	ErrInvalidMagic       = errors.New("invalid magic bytes")
	ErrUnsupportedVersion = errors.New("unsupported format version")
	ErrHeaderTooLarge     = errors.New("header exceeds maximum size")
	ErrOutOfBounds        = errors.New("tensor extends beyond data section")

	// Writer-side failures.
	ErrNilTensor     = errors.New("nil tensor in state dict")
	ErrNonContiguous = errors.New("tensor is not contiguous")
	ErrClosed        = errors.New("file is closed")
)

// Problem classifies a header validation failure.
type Problem string

const (
	ProblemTooManyTensors Problem = "too_many_tensors"
	ProblemNameTooLong    Problem = "name_too_long"
	ProblemInvalidName    Problem = "invalid_name"
	ProblemDuplicateName  Problem = "duplicate_name"
	ProblemNegative       Problem = "negative_offset"
	ProblemOutOfBounds    Problem = "out_of_bounds"
	ProblemOverlap        Problem = "offset_overlap"
)

// ValidationError reports a malformed header entry. Tensors lists the
// entries involved: one for most problems, two for an overlap.
type ValidationError struct {
	Problem Problem
	Tensors []string
	Details string
}

func invalid(p Problem, details string, tensors ...string) *ValidationError {
	return &ValidationError{Problem: p, Tensors: tensors, Details: details}
}

func (e *ValidationError) Error() string {
	switch len(e.Tensors) {
	case 0:
		return fmt.Sprintf("%s: %s", e.Problem, e.Details)
	case 1:
		return fmt.Sprintf("%s: tensor %q: %s", e.Problem, e.Tensors[0], e.Details)
	default:
		return fmt.Sprintf("%s: tensors %q: %s", e.Problem, e.Tensors, e.Details)
	}
}

// Unwrap lets out-of-bounds entries match ErrOutOfBounds.
func (e *ValidationError) Unwrap() error {
	if e.Problem == ProblemOutOfBounds {
		return ErrOutOfBounds
	}
	return nil
}

// Is matches a bare &ValidationError{Problem: p} target, so callers can
// test for a class of failure with errors.Is.
func (e *ValidationError) Is(target error) bool {
	other, ok := target.(*ValidationError)
	return ok && len(other.Tensors) == 0 && other.Problem == e.Problem
}
