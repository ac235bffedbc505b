package tensor

import (
	"fmt"
	"strconv"
	"strings"
)

// PrintEdgeItems is the number of leading and trailing entries printed per
// dimension before the middle is elided with "...".
const PrintEdgeItems = 3

// String returns the default human-readable form of the tensor.
func (r *RawTensor) String() string {
	return fmt.Sprintf("Tensor[%s]%v on %s\n%s", r.dtype, r.shape, r.device, r.formatValues())
}

func (r *RawTensor) formatValues() string {
	if r.NumElements() == 0 {
		return "[]"
	}
	if len(r.shape) == 0 {
		return r.elementString(0)
	}
	var sb strings.Builder
	r.formatDim(&sb, 0, 0)
	return sb.String()
}

func (r *RawTensor) formatDim(sb *strings.Builder, dim, base int) {
	size := r.shape[dim]
	last := dim == len(r.shape)-1
	sep := " "
	if !last {
		sep = "\n" + strings.Repeat(" ", dim+1)
	}

	sb.WriteByte('[')
	for i := 0; i < size; i++ {
		if i > 0 {
			sb.WriteString(sep)
		}
		if size > 2*PrintEdgeItems && i == PrintEdgeItems {
			sb.WriteString("...")
			sb.WriteString(sep)
			i = size - PrintEdgeItems
		}
		idx := base + i*r.stride[dim]
		if last {
			sb.WriteString(r.elementString(idx))
		} else {
			r.formatDim(sb, dim+1, idx)
		}
	}
	sb.WriteByte(']')
}

func (r *RawTensor) elementString(idx int) string {
	switch r.dtype {
	case Float32:
		return strconv.FormatFloat(float64(r.AsFloat32()[idx]), 'g', 6, 32)
	case Float64:
		return strconv.FormatFloat(r.AsFloat64()[idx], 'g', 6, 64)
	case Int32:
		return strconv.FormatInt(int64(r.AsInt32()[idx]), 10)
	case Int64:
		return strconv.FormatInt(r.AsInt64()[idx], 10)
	case Uint8:
		return strconv.FormatUint(uint64(r.AsUint8()[idx]), 10)
	case Bool:
		return strconv.FormatBool(r.AsBool()[idx])
	default:
		return "?"
	}
}
