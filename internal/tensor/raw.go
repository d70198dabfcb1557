package tensor

import (
	"fmt"
	"unsafe"
)

// RawTensor is the untyped storage behind every Tensor: a flat byte
// buffer plus shape, dtype and device. Backends operate on RawTensors;
// the typed Tensor wrapper restores compile-time element types on top.
type RawTensor struct {
	shape  Shape
	dtype  DataType
	device Device
	data   []byte
}

// NewRaw allocates a zeroed RawTensor.
func NewRaw(shape Shape, dtype DataType, device Device) (*RawTensor, error) {
	if !shape.Valid() {
		return nil, fmt.Errorf("tensor: invalid shape %v", shape)
	}
	return &RawTensor{
		shape:  shape.Clone(),
		dtype:  dtype,
		device: device,
		data:   make([]byte, shape.NumElements()*dtype.Size()),
	}, nil
}

// Shape returns the tensor's shape. Callers must not mutate it.
func (r *RawTensor) Shape() Shape { return r.shape }

// DType returns the element type.
func (r *RawTensor) DType() DataType { return r.dtype }

// Device returns the device the tensor belongs to.
func (r *RawTensor) Device() Device { return r.device }

// NumElements returns the total element count.
func (r *RawTensor) NumElements() int { return r.shape.NumElements() }

// ByteSize returns the size of the underlying buffer in bytes.
func (r *RawTensor) ByteSize() int { return len(r.data) }

// Data exposes the underlying byte buffer.
func (r *RawTensor) Data() []byte { return r.data }

// AsFloat32 views the buffer as a float32 slice. Panics if the dtype
// is not Float32.
func (r *RawTensor) AsFloat32() []float32 {
	if r.dtype != Float32 {
		panic(fmt.Sprintf("tensor: AsFloat32 on %s tensor", r.dtype))
	}
	if len(r.data) == 0 {
		return nil
	}
	return unsafe.Slice((*float32)(unsafe.Pointer(&r.data[0])), r.NumElements())
}

// AsInt32 views the buffer as an int32 slice. Panics if the dtype is
// not Int32.
func (r *RawTensor) AsInt32() []int32 {
	if r.dtype != Int32 {
		panic(fmt.Sprintf("tensor: AsInt32 on %s tensor", r.dtype))
	}
	if len(r.data) == 0 {
		return nil
	}
	return unsafe.Slice((*int32)(unsafe.Pointer(&r.data[0])), r.NumElements())
}

// Clone returns a deep copy on the same device.
func (r *RawTensor) Clone() *RawTensor {
	out := &RawTensor{
		shape:  r.shape.Clone(),
		dtype:  r.dtype,
		device: r.device,
		data:   make([]byte, len(r.data)),
	}
	copy(out.data, r.data)
	return out
}

// WithShape returns a view-copy of the tensor reinterpreted under a
// new shape with the same number of elements.
func (r *RawTensor) WithShape(shape Shape) (*RawTensor, error) {
	if shape.NumElements() != r.NumElements() {
		return nil, fmt.Errorf("tensor: cannot view %v as %v", r.shape, shape)
	}
	out := r.Clone()
	out.shape = shape.Clone()
	return out, nil
}
