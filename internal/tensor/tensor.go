package tensor

import "fmt"

// Tensor pairs a RawTensor with the backend that computes on it and a
// compile-time element type.
//
// Example:
//
//	backend := cpu.New()
//	a := tensor.Zeros[float32](tensor.Shape{3, 4}, backend)
//	b := tensor.Ones[float32](tensor.Shape{3, 4}, backend)
//	c := a.Add(b)
type Tensor[T DType, B Backend] struct {
	raw     *RawTensor
	backend B
}

// New wraps an existing RawTensor.
func New[T DType, B Backend](raw *RawTensor, b B) *Tensor[T, B] {
	return &Tensor[T, B]{raw: raw, backend: b}
}

// FromSlice copies a Go slice into a new tensor of the given shape.
func FromSlice[T DType, B Backend](data []T, shape Shape, b B) (*Tensor[T, B], error) {
	if shape.NumElements() != len(data) {
		return nil, fmt.Errorf("tensor: shape %v needs %d elements, got %d",
			shape, shape.NumElements(), len(data))
	}
	var zero T
	raw, err := NewRaw(shape, inferDataType(zero), b.Device())
	if err != nil {
		return nil, err
	}
	t := New[T, B](raw, b)
	copy(t.Data(), data)
	return t, nil
}

// Shape returns the tensor's shape.
func (t *Tensor[T, B]) Shape() Shape { return t.raw.Shape() }

// DType returns the element type.
func (t *Tensor[T, B]) DType() DataType { return t.raw.DType() }

// NumElements returns the total element count.
func (t *Tensor[T, B]) NumElements() int { return t.raw.NumElements() }

// Raw returns the underlying RawTensor.
func (t *Tensor[T, B]) Raw() *RawTensor { return t.raw }

// Backend returns the backend this tensor computes on.
func (t *Tensor[T, B]) Backend() B { return t.backend }

// Data views the underlying buffer as a typed slice.
func (t *Tensor[T, B]) Data() []T {
	var zero T
	switch any(zero).(type) {
	case float32:
		return any(t.raw.AsFloat32()).([]T)
	case int32:
		return any(t.raw.AsInt32()).([]T)
	default:
		panic("tensor: unsupported element type")
	}
}

// Item returns the single element of a one-element tensor.
func (t *Tensor[T, B]) Item() T {
	if t.NumElements() != 1 {
		panic(fmt.Sprintf("tensor: Item on tensor with %d elements", t.NumElements()))
	}
	return t.Data()[0]
}

func (t *Tensor[T, B]) wrap(raw *RawTensor) *Tensor[T, B] {
	return New[T, B](raw, t.backend)
}

// Add returns t + other (trailing-dim broadcast allowed, see Backend).
func (t *Tensor[T, B]) Add(other *Tensor[T, B]) *Tensor[T, B] {
	return t.wrap(t.backend.Add(t.raw, other.raw))
}

// Sub returns t - other.
func (t *Tensor[T, B]) Sub(other *Tensor[T, B]) *Tensor[T, B] {
	return t.wrap(t.backend.Sub(t.raw, other.raw))
}

// Mul returns the element-wise product.
func (t *Tensor[T, B]) Mul(other *Tensor[T, B]) *Tensor[T, B] {
	return t.wrap(t.backend.Mul(t.raw, other.raw))
}

// Div returns the element-wise quotient.
func (t *Tensor[T, B]) Div(other *Tensor[T, B]) *Tensor[T, B] {
	return t.wrap(t.backend.Div(t.raw, other.raw))
}

// MatMul returns the matrix product of two 2D tensors.
func (t *Tensor[T, B]) MatMul(other *Tensor[T, B]) *Tensor[T, B] {
	return t.wrap(t.backend.MatMul(t.raw, other.raw))
}

// AddScalar returns t + s.
func (t *Tensor[T, B]) AddScalar(s float32) *Tensor[T, B] {
	return t.wrap(t.backend.AddScalar(t.raw, s))
}

// MulScalar returns t * s.
func (t *Tensor[T, B]) MulScalar(s float32) *Tensor[T, B] {
	return t.wrap(t.backend.MulScalar(t.raw, s))
}

// Sum reduces the tensor to a single-element tensor.
func (t *Tensor[T, B]) Sum() *Tensor[T, B] {
	return t.wrap(t.backend.Sum(t.raw))
}

// Reshape returns the tensor viewed under a new shape.
func (t *Tensor[T, B]) Reshape(dims ...int) *Tensor[T, B] {
	return t.wrap(t.backend.Reshape(t.raw, Shape(dims)))
}

// Transpose returns the transpose of a 2D tensor.
func (t *Tensor[T, B]) Transpose() *Tensor[T, B] {
	return t.wrap(t.backend.Transpose(t.raw))
}
