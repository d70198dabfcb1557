// Copyright 2026 Lumo ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package tensor provides the public API for tensor values and the
// backends that compute on them.
//
// The package defines:
//   - Tensor[T, B]: generic tensor with a compile-time element type
//   - RawTensor: untyped storage backends operate on
//   - Backend: the contract compute devices implement
//   - Shape, DataType, Device: core definitions
//
// Example:
//
//	backend := cpu.New()
//	x := tensor.Zeros[float32](tensor.Shape{2, 3}, backend)
//	y := tensor.Ones[float32](tensor.Shape{2, 3}, backend)
//	z := x.Add(y)
package tensor

import (
	"github.com/lumo-ml/lumo/internal/tensor"
)

// DType is the constraint for tensor element types: float32 or int32.
type DType = tensor.DType

// DataType identifies the element type of a RawTensor at runtime.
type DataType = tensor.DataType

// Data type constants.
const (
	Float32 DataType = tensor.Float32
	Int32   DataType = tensor.Int32
)

// ParseDataType maps a name like "float32" to its DataType.
func ParseDataType(name string) (DataType, bool) {
	return tensor.ParseDataType(name)
}

// Device identifies where tensor data lives.
type Device = tensor.Device

// Device constants.
const (
	CPU    Device = tensor.CPU
	WebGPU Device = tensor.WebGPU
)

// Shape holds the dimensions of a tensor.
// Example: Shape{2, 3, 4} is a 3D tensor of 24 elements.
type Shape = tensor.Shape

// RawTensor is the untyped storage behind every Tensor.
type RawTensor = tensor.RawTensor

// NewRaw allocates a zeroed RawTensor.
func NewRaw(shape Shape, dtype DataType, device Device) (*RawTensor, error) {
	return tensor.NewRaw(shape, dtype, device)
}

// Tensor is a generic tensor bound to a backend.
//
// T is the element type (float32 or int32), B the backend the tensor
// computes on. Wrapping the backend in autodiff makes every method
// differentiable without changing call sites.
type Tensor[T DType, B Backend] = tensor.Tensor[T, B]

// New wraps an existing RawTensor.
func New[T DType, B Backend](raw *RawTensor, b B) *Tensor[T, B] {
	return tensor.New[T, B](raw, b)
}

// FromSlice copies a Go slice into a new tensor of the given shape.
func FromSlice[T DType, B Backend](data []T, shape Shape, b B) (*Tensor[T, B], error) {
	return tensor.FromSlice[T, B](data, shape, b)
}

// Zeros creates a tensor filled with zeros.
func Zeros[T DType, B Backend](shape Shape, b B) *Tensor[T, B] {
	return tensor.Zeros[T, B](shape, b)
}

// Ones creates a tensor filled with ones.
func Ones[T DType, B Backend](shape Shape, b B) *Tensor[T, B] {
	return tensor.Ones[T, B](shape, b)
}

// Full creates a tensor filled with value.
func Full[T DType, B Backend](shape Shape, value T, b B) *Tensor[T, B] {
	return tensor.Full[T, B](shape, value, b)
}

// Randn creates a float32 tensor sampled from N(0, 1).
func Randn[B Backend](shape Shape, b B) *Tensor[float32, B] {
	return tensor.Randn[B](shape, b)
}

// RandnSeeded is Randn with a fixed seed, for reproducible runs.
func RandnSeeded[B Backend](shape Shape, seed int64, b B) *Tensor[float32, B] {
	return tensor.RandnSeeded[B](shape, seed, b)
}
