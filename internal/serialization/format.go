package serialization

import (
	"fmt"
	"time"

	"github.com/born-ml/param/internal/tensor"
)

const (
	MagicBytes        = "BORN"
	LibraryVersion    = "0.1.0"
	FormatVersion     = 1
	FormatVersionV2   = 2
	HeaderAlignment   = 64
	FixedHeaderSizeV1 = 20
	FixedHeaderSizeV2 = 64
	ChecksumSize      = 32
	ChecksumOffsetV2  = 0x20
)

// Header flags. Bit 0 is reserved.
const (
	FlagHasOptimizer uint32 = 1 << 1
	FlagHasMetadata  uint32 = 1 << 2
	FlagHasGradFlags uint32 = 1 << 3
)

// Header is the JSON header of a .born file.
type Header struct {
	FormatVersion  int               `json:"format_version"`
	BornVersion    string            `json:"born_version"`
	ModelType      string            `json:"model_type"`
	CreatedAt      time.Time         `json:"created_at"`
	Tensors        []TensorMeta      `json:"tensors"`
	Metadata       map[string]string `json:"metadata"`
	CheckpointMeta *CheckpointMeta   `json:"checkpoint,omitempty"`
}

// Tensor looks up a header entry by name.
func (h *Header) Tensor(name string) (TensorMeta, bool) {
	for _, meta := range h.Tensors {
		if meta.Name == name {
			return meta, true
		}
	}
	return TensorMeta{}, false
}

// IsCheckpoint reports whether the header carries training state.
func (h *Header) IsCheckpoint() bool {
	return h.CheckpointMeta != nil && h.CheckpointMeta.IsCheckpoint
}

// Flags derives the fixed-header flag word from the header contents.
func (h *Header) Flags() uint32 {
	var flags uint32
	if len(h.Metadata) > 0 {
		flags |= FlagHasMetadata
	}
	if h.IsCheckpoint() {
		flags |= FlagHasOptimizer
	}
	for _, meta := range h.Tensors {
		if meta.RequiresGrad != nil {
			flags |= FlagHasGradFlags
			break
		}
	}
	return flags
}

// CheckpointMeta is the training state stored alongside a checkpoint.
// Optimizer buffers themselves live in the tensor table.
type CheckpointMeta struct {
	IsCheckpoint    bool           `json:"is_checkpoint"`
	Epoch           int            `json:"epoch"`
	Step            int64          `json:"step"`
	Loss            float64        `json:"loss"`
	OptimizerType   string         `json:"optimizer_type"`
	OptimizerConfig map[string]any `json:"optimizer_config"`
	TrainingMeta    map[string]any `json:"training_meta"`
}

// TensorMeta describes one tensor of the data section. Offset is relative
// to the start of the section.
//
// RequiresGrad is set for parameters and nil for buffers. Parameter tags
// have no representation in the format.
type TensorMeta struct {
	Name         string `json:"name"`
	DType        string `json:"dtype"`
	Shape        []int  `json:"shape"`
	Offset       int64  `json:"offset"`
	Size         int64  `json:"size"`
	RequiresGrad *bool  `json:"requires_grad,omitempty"`
}

// End returns the first byte past the tensor.
func (m TensorMeta) End() int64 {
	return m.Offset + m.Size
}

func (m TensorMeta) within(dataSize int64) bool {
	return m.Offset >= 0 && m.Size >= 0 && m.Offset <= dataSize && m.Size <= dataSize-m.Offset
}

// DataType parses the dtype name written by tensor.DataType.String.
func (m TensorMeta) DataType() (tensor.DataType, error) {
	dt, ok := tensor.ParseDataType(m.DType)
	if !ok {
		return 0, fmt.Errorf("tensor %s: unsupported dtype %q", m.Name, m.DType)
	}
	return dt, nil
}

// IsParameter reports whether the entry was written with a grad flag.
func (m TensorMeta) IsParameter() bool {
	return m.RequiresGrad != nil
}
