// Package cpu implements the host-memory backend.
package cpu

import "github.com/born-ml/param/internal/tensor"

// CPUBackend places tensors in host memory. It holds no state, so the zero
// value and a nil pointer are both usable.
type CPUBackend struct{}

var _ tensor.Backend = (*CPUBackend)(nil)

// New returns a CPU backend.
func New() *CPUBackend { return &CPUBackend{} }

func (*CPUBackend) Name() string          { return "CPU" }
func (*CPUBackend) Device() tensor.Device { return tensor.CPU }
