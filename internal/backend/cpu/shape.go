package cpu

import (
	"fmt"

	"github.com/lumo-ml/lumo/internal/tensor"
)

// Reshape returns a copy of x viewed under a new shape with the same
// element count.
func (b *CPUBackend) Reshape(x *tensor.RawTensor, shape tensor.Shape) *tensor.RawTensor {
	out, err := x.WithShape(shape)
	if err != nil {
		panic(err)
	}
	return out
}

// Transpose returns the transpose of a 2D tensor.
func (b *CPUBackend) Transpose(x *tensor.RawTensor) *tensor.RawTensor {
	if len(x.Shape()) != 2 {
		panic(fmt.Sprintf("cpu: transpose needs a 2D tensor, got %v", x.Shape()))
	}
	rows, cols := x.Shape()[0], x.Shape()[1]
	out := b.newLike(x, tensor.Shape{cols, rows})
	xs, dst := x.AsFloat32(), out.AsFloat32()
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			dst[c*rows+r] = xs[r*cols+c]
		}
	}
	return out
}
