package tensor

import "math/rand"

func mustRaw[T DType](shape Shape, device Device) *RawTensor {
	var zero T
	raw, err := NewRaw(shape, inferDataType(zero), device)
	if err != nil {
		panic(err)
	}
	return raw
}

// Zeros returns a tensor filled with zeros.
func Zeros[T DType, B Backend](shape Shape, b B) *Tensor[T, B] {
	return New[T, B](mustRaw[T](shape, b.Device()), b)
}

// Ones returns a tensor filled with ones.
func Ones[T DType, B Backend](shape Shape, b B) *Tensor[T, B] {
	return Full[T, B](shape, 1, b)
}

// Full returns a tensor filled with a constant.
func Full[T DType, B Backend](shape Shape, value T, b B) *Tensor[T, B] {
	t := New[T, B](mustRaw[T](shape, b.Device()), b)
	data := t.Data()
	for i := range data {
		data[i] = value
	}
	return t
}

// Randn returns a float32 tensor with elements drawn from N(0, 1).
func Randn[B Backend](shape Shape, b B) *Tensor[float32, B] {
	t := New[float32, B](mustRaw[float32](shape, b.Device()), b)
	data := t.Data()
	for i := range data {
		data[i] = float32(rand.NormFloat64())
	}
	return t
}

// RandnSeeded returns a float32 tensor with elements drawn from
// N(0, 1) using a private seeded source, for reproducible init.
func RandnSeeded[B Backend](shape Shape, seed int64, b B) *Tensor[float32, B] {
	rng := rand.New(rand.NewSource(seed))
	t := New[float32, B](mustRaw[float32](shape, b.Device()), b)
	data := t.Data()
	for i := range data {
		data[i] = float32(rng.NormFloat64())
	}
	return t
}
