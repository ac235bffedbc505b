package tensor

// Backend identifies where a tensor's storage lives. Kernels belong to the
// backend; the tensor package only asks for the device.
type Backend interface {
	Name() string
	Device() Device
}

var _ Backend = (*MockBackend)(nil)

// MockBackend is a storage-only backend for tests. The zero value is on
// the CPU.
type MockBackend struct {
	device Device
}

// NewMockBackend returns a CPU MockBackend.
func NewMockBackend() *MockBackend {
	return &MockBackend{}
}

// NewMockBackendOn returns a MockBackend that reports device d.
func NewMockBackendOn(d Device) *MockBackend {
	return &MockBackend{device: d}
}

func (m *MockBackend) Name() string {
	return "mock"
}

func (m *MockBackend) Device() Device {
	return m.device
}
