package tensor

// DataType identifies the element type stored in a RawTensor.
type DataType uint8

const (
	Float32 DataType = iota
	Int32
)

// Size returns the size of one element in bytes.
func (d DataType) Size() int {
	switch d {
	case Float32, Int32:
		return 4
	default:
		panic("tensor: unknown data type")
	}
}

func (d DataType) String() string {
	switch d {
	case Float32:
		return "float32"
	case Int32:
		return "int32"
	default:
		return "unknown"
	}
}

// ParseDataType maps a serialized dtype name back to a DataType.
func ParseDataType(name string) (DataType, bool) {
	switch name {
	case "float32":
		return Float32, true
	case "int32":
		return Int32, true
	default:
		return 0, false
	}
}

// Device identifies where tensor memory lives and which backend
// produced it.
type Device uint8

const (
	CPU Device = iota
	WebGPU
)

func (d Device) String() string {
	switch d {
	case CPU:
		return "cpu"
	case WebGPU:
		return "webgpu"
	default:
		return "unknown"
	}
}

// DType constrains the element types a typed Tensor may carry.
type DType interface {
	float32 | int32
}

func inferDataType(v any) DataType {
	switch v.(type) {
	case float32:
		return Float32
	case int32:
		return Int32
	default:
		panic("tensor: unsupported element type")
	}
}
