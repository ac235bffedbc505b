// Package tensor holds the typed tensor wrapper and the refcounted raw
// storage underneath it.
package tensor

// DType constrains the Go element types a Tensor can hold.
type DType interface {
	~float32 | ~float64 | ~int32 | ~int64 | ~uint8 | ~bool
}

// DataType is the runtime tag of a tensor's element type.
type DataType int

const (
	Float32 DataType = iota
	Float64
	Int32
	Int64
	Uint8
	Bool
)

var dataTypes = [...]struct {
	name  string
	size  int
	float bool
}{
	Float32: {"float32", 4, true},
	Float64: {"float64", 8, true},
	Int32:   {"int32", 4, false},
	Int64:   {"int64", 8, false},
	Uint8:   {"uint8", 1, false},
	Bool:    {"bool", 1, false},
}

func (dt DataType) valid() bool {
	return dt >= 0 && int(dt) < len(dataTypes)
}

// Size returns the element size in bytes. It panics on an unknown DataType.
func (dt DataType) Size() int {
	if !dt.valid() {
		panic("unknown data type")
	}
	return dataTypes[dt].size
}

// IsFloat reports whether dt is a floating point type.
func (dt DataType) IsFloat() bool {
	return dt.valid() && dataTypes[dt].float
}

// String returns the lower-case Go name of the element type, e.g. "float32".
func (dt DataType) String() string {
	if !dt.valid() {
		return "unknown"
	}
	return dataTypes[dt].name
}

// ParseDataType is the inverse of DataType.String.
func ParseDataType(s string) (DataType, bool) {
	for dt := range dataTypes {
		if dataTypes[dt].name == s {
			return DataType(dt), true
		}
	}
	return 0, false
}

// dataTypeOf returns the DataType of T.
func dataTypeOf[T DType]() DataType {
	var zero T
	switch any(zero).(type) {
	case float32:
		return Float32
	case float64:
		return Float64
	case int32:
		return Int32
	case int64:
		return Int64
	case uint8:
		return Uint8
	case bool:
		return Bool
	default:
		panic("unsupported type")
	}
}
