package serialization

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
)

// Limits applied to untrusted files.
const (
	MaxHeaderSize    = 100 << 20
	MaxTensorCount   = 100_000
	MaxTensorNameLen = 4096
)

// ValidationLevel controls the strictness of validation.
type ValidationLevel int

const (
	ValidationStrict ValidationLevel = iota // names and offsets (default)
	ValidationNormal                        // names only
	ValidationNone                          // trusted input
)

// ParseValidationLevel converts "strict", "normal" or "none" to a ValidationLevel.
func ParseValidationLevel(s string) (ValidationLevel, error) {
	switch strings.ToLower(s) {
	case "strict", "":
		return ValidationStrict, nil
	case "normal":
		return ValidationNormal, nil
	case "none":
		return ValidationNone, nil
	default:
		return ValidationStrict, fmt.Errorf("unknown validation level %q", s)
	}
}

// String returns the level name accepted by ParseValidationLevel.
func (l ValidationLevel) String() string {
	switch l {
	case ValidationStrict:
		return "strict"
	case ValidationNormal:
		return "normal"
	case ValidationNone:
		return "none"
	default:
		return fmt.Sprintf("ValidationLevel(%d)", int(l))
	}
}

// ValidateTensorOffsets checks that every entry lies inside a data section
// of dataSize bytes and that no two non-empty entries share a byte.
func ValidateTensorOffsets(tensors []TensorMeta, dataSize int64) error {
	if len(tensors) > MaxTensorCount {
		return invalid(ProblemTooManyTensors, fmt.Sprintf("got %d, max %d", len(tensors), MaxTensorCount))
	}

	byOffset := slices.Clone(tensors)
	slices.SortFunc(byOffset, func(a, b TensorMeta) int {
		return cmp.Or(cmp.Compare(a.Offset, b.Offset), cmp.Compare(a.Size, b.Size))
	})

	var prev *TensorMeta
	for i := range byOffset {
		t := &byOffset[i]
		switch {
		case t.Offset < 0 || t.Size < 0:
			return invalid(ProblemNegative, fmt.Sprintf("offset=%d, size=%d", t.Offset, t.Size), t.Name)
		case t.Offset > dataSize || t.Size > dataSize-t.Offset:
			return invalid(ProblemOutOfBounds, fmt.Sprintf("ends at %d, data section holds %d bytes", t.End(), dataSize), t.Name)
		case t.Size == 0:
			continue
		case prev != nil && prev.End() > t.Offset:
			return invalid(ProblemOverlap,
				fmt.Sprintf("[%d,%d) and [%d,%d)", prev.Offset, prev.End(), t.Offset, t.End()),
				prev.Name, t.Name)
		}
		prev = t
	}
	return nil
}

// ValidateTensorName rejects names that are too long or could be read as
// a path: "..", either separator, or a NUL byte.
func ValidateTensorName(name string) error {
	if len(name) > MaxTensorNameLen {
		return invalid(ProblemNameTooLong, fmt.Sprintf("length %d > max %d", len(name), MaxTensorNameLen), name)
	}
	for _, bad := range []string{"..", "/", "\\", "\x00"} {
		if strings.Contains(name, bad) {
			return invalid(ProblemInvalidName, fmt.Sprintf("contains %q", bad), name)
		}
	}
	return nil
}

// ValidateHeader checks the header's tensor table at the given level.
// Names are checked from ValidationNormal up; offsets only at ValidationStrict.
func ValidateHeader(h *Header, dataSize int64, level ValidationLevel) error {
	if level == ValidationNone {
		return nil
	}
	if len(h.Tensors) > MaxTensorCount {
		return invalid(ProblemTooManyTensors, fmt.Sprintf("got %d, max %d", len(h.Tensors), MaxTensorCount))
	}

	seen := make(map[string]struct{}, len(h.Tensors))
	for _, t := range h.Tensors {
		if err := ValidateTensorName(t.Name); err != nil {
			return err
		}
		if _, dup := seen[t.Name]; dup {
			return invalid(ProblemDuplicateName, "listed more than once", t.Name)
		}
		seen[t.Name] = struct{}{}
	}

	if level == ValidationStrict {
		return ValidateTensorOffsets(h.Tensors, dataSize)
	}
	return nil
}
