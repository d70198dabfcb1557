package cpu

import (
	"fmt"
	"math"

	"github.com/lumo-ml/lumo/internal/parallel"
	"github.com/lumo-ml/lumo/internal/tensor"
)

// broadcastable reports whether small's shape matches the trailing
// dimensions of big's shape (row broadcast, used for bias addition).
func broadcastable(big, small tensor.Shape) bool {
	if len(small) > len(big) {
		return false
	}
	offset := len(big) - len(small)
	for i, dim := range small {
		if big[offset+i] != dim {
			return false
		}
	}
	return true
}

func (b *CPUBackend) binaryOp(a, other *tensor.RawTensor, op func(x, y float32) float32) *tensor.RawTensor {
	if a.DType() != tensor.Float32 || other.DType() != tensor.Float32 {
		panic(fmt.Sprintf("cpu: binary op needs float32 operands, got %s and %s", a.DType(), other.DType()))
	}

	switch {
	case a.Shape().Equal(other.Shape()):
		out := b.newLike(a, a.Shape())
		xs, ys, dst := a.AsFloat32(), other.AsFloat32(), out.AsFloat32()
		parallel.For(len(dst), func(i int) {
			dst[i] = op(xs[i], ys[i])
		}, b.cfg)
		return out

	case broadcastable(a.Shape(), other.Shape()):
		// other repeats over the leading dimensions of a.
		out := b.newLike(a, a.Shape())
		xs, ys, dst := a.AsFloat32(), other.AsFloat32(), out.AsFloat32()
		n := len(ys)
		parallel.For(len(dst), func(i int) {
			dst[i] = op(xs[i], ys[i%n])
		}, b.cfg)
		return out

	case broadcastable(other.Shape(), a.Shape()):
		out := b.newLike(other, other.Shape())
		xs, ys, dst := a.AsFloat32(), other.AsFloat32(), out.AsFloat32()
		n := len(xs)
		parallel.For(len(dst), func(i int) {
			dst[i] = op(xs[i%n], ys[i])
		}, b.cfg)
		return out

	default:
		panic(fmt.Sprintf("cpu: shape mismatch %v vs %v", a.Shape(), other.Shape()))
	}
}

// Add returns a + b with trailing-dimension broadcast.
func (b *CPUBackend) Add(a, other *tensor.RawTensor) *tensor.RawTensor {
	return b.binaryOp(a, other, func(x, y float32) float32 { return x + y })
}

// Sub returns a - b.
func (b *CPUBackend) Sub(a, other *tensor.RawTensor) *tensor.RawTensor {
	return b.binaryOp(a, other, func(x, y float32) float32 { return x - y })
}

// Mul returns the element-wise product.
func (b *CPUBackend) Mul(a, other *tensor.RawTensor) *tensor.RawTensor {
	return b.binaryOp(a, other, func(x, y float32) float32 { return x * y })
}

// Div returns the element-wise quotient.
func (b *CPUBackend) Div(a, other *tensor.RawTensor) *tensor.RawTensor {
	return b.binaryOp(a, other, func(x, y float32) float32 { return x / y })
}

func (b *CPUBackend) unaryOp(x *tensor.RawTensor, op func(v float32) float32) *tensor.RawTensor {
	if x.DType() != tensor.Float32 {
		panic(fmt.Sprintf("cpu: unary op needs float32 operand, got %s", x.DType()))
	}
	out := b.newLike(x, x.Shape())
	xs, dst := x.AsFloat32(), out.AsFloat32()
	parallel.For(len(dst), func(i int) {
		dst[i] = op(xs[i])
	}, b.cfg)
	return out
}

// AddScalar returns x + s.
func (b *CPUBackend) AddScalar(x *tensor.RawTensor, s float32) *tensor.RawTensor {
	return b.unaryOp(x, func(v float32) float32 { return v + s })
}

// MulScalar returns x * s.
func (b *CPUBackend) MulScalar(x *tensor.RawTensor, s float32) *tensor.RawTensor {
	return b.unaryOp(x, func(v float32) float32 { return v * s })
}

// Exp returns e^x element-wise.
func (b *CPUBackend) Exp(x *tensor.RawTensor) *tensor.RawTensor {
	return b.unaryOp(x, func(v float32) float32 { return float32(math.Exp(float64(v))) })
}

// Log returns ln(x) element-wise.
func (b *CPUBackend) Log(x *tensor.RawTensor) *tensor.RawTensor {
	return b.unaryOp(x, func(v float32) float32 { return float32(math.Log(float64(v))) })
}

// ReLU returns max(0, x) element-wise.
func (b *CPUBackend) ReLU(x *tensor.RawTensor) *tensor.RawTensor {
	return b.unaryOp(x, func(v float32) float32 {
		if v > 0 {
			return v
		}
		return 0
	})
}
