package nn

import (
	"math"

	"github.com/lumo-ml/lumo/internal/tensor"
)

// Xavier returns a tensor initialized with Glorot-scaled normal
// values: N(0, 2/(fanIn+fanOut)).
func Xavier[B tensor.Backend](fanIn, fanOut int, shape tensor.Shape, backend B) *tensor.Tensor[float32, B] {
	scale := float32(math.Sqrt(2.0 / float64(fanIn+fanOut)))
	return tensor.Randn(shape, backend).MulScalar(scale)
}

// Zeros returns a zero-filled float32 tensor (bias init).
func Zeros[B tensor.Backend](shape tensor.Shape, backend B) *tensor.Tensor[float32, B] {
	return tensor.Zeros[float32](shape, backend)
}

// Ones returns a one-filled float32 tensor.
func Ones[B tensor.Backend](shape tensor.Shape, backend B) *tensor.Tensor[float32, B] {
	return tensor.Ones[float32](shape, backend)
}

// Randn returns a float32 tensor drawn from N(0, 1).
func Randn[B tensor.Backend](shape tensor.Shape, backend B) *tensor.Tensor[float32, B] {
	return tensor.Randn(shape, backend)
}
