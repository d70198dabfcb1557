package autodiff

import (
	"github.com/lumo-ml/lumo/internal/tensor"
)

// Backend decorates an inner compute backend with gradient recording.
// It satisfies tensor.Backend itself, so models and layers are
// oblivious to whether they run under autodiff.
type Backend[B tensor.Backend] struct {
	inner B
	tape  *Tape
}

// New wraps a compute backend with a fresh tape.
func New[B tensor.Backend](inner B) *Backend[B] {
	return &Backend[B]{inner: inner, tape: &Tape{}}
}

// Inner returns the wrapped compute backend.
func (b *Backend[B]) Inner() B { return b.inner }

// Tape returns the gradient tape.
func (b *Backend[B]) Tape() *Tape { return b.tape }

// Name returns the decorated backend name.
func (b *Backend[B]) Name() string { return "autodiff(" + b.inner.Name() + ")" }

// Device returns the inner backend's device.
func (b *Backend[B]) Device() tensor.Device { return b.inner.Device() }

// reduceTo sums grad down to shape when the forward op broadcast a
// smaller operand. Broadcast is trailing-dimension only, so the
// reduction is a sum over the leading block.
func (b *Backend[B]) reduceTo(grad *tensor.RawTensor, shape tensor.Shape) *tensor.RawTensor {
	if grad.Shape().Equal(shape) {
		return grad
	}
	inner := shape.NumElements()
	outer := grad.NumElements() / inner
	flat := b.inner.Reshape(grad, tensor.Shape{outer, inner})
	summed := b.inner.SumDim(flat, 0, false)
	return b.inner.Reshape(summed, shape)
}

// Add records gradA = g (reduced to a's shape), gradB = g (reduced).
func (b *Backend[B]) Add(a, other *tensor.RawTensor) *tensor.RawTensor {
	out := b.inner.Add(a, other)
	aShape, otherShape := a.Shape().Clone(), other.Shape().Clone()
	b.tape.record(out, func(grad *tensor.RawTensor, acc accumulator) {
		acc(a, b.reduceTo(grad, aShape))
		acc(other, b.reduceTo(grad, otherShape))
	})
	return out
}

// Sub records gradA = g, gradB = -g.
func (b *Backend[B]) Sub(a, other *tensor.RawTensor) *tensor.RawTensor {
	out := b.inner.Sub(a, other)
	aShape, otherShape := a.Shape().Clone(), other.Shape().Clone()
	b.tape.record(out, func(grad *tensor.RawTensor, acc accumulator) {
		acc(a, b.reduceTo(grad, aShape))
		acc(other, b.reduceTo(b.inner.MulScalar(grad, -1), otherShape))
	})
	return out
}

// Mul records gradA = g*b, gradB = g*a.
func (b *Backend[B]) Mul(a, other *tensor.RawTensor) *tensor.RawTensor {
	out := b.inner.Mul(a, other)
	aShape, otherShape := a.Shape().Clone(), other.Shape().Clone()
	b.tape.record(out, func(grad *tensor.RawTensor, acc accumulator) {
		acc(a, b.reduceTo(b.inner.Mul(grad, other), aShape))
		acc(other, b.reduceTo(b.inner.Mul(grad, a), otherShape))
	})
	return out
}

// Div records gradA = g/b, gradB = -g*a/b^2.
func (b *Backend[B]) Div(a, other *tensor.RawTensor) *tensor.RawTensor {
	out := b.inner.Div(a, other)
	aShape, otherShape := a.Shape().Clone(), other.Shape().Clone()
	b.tape.record(out, func(grad *tensor.RawTensor, acc accumulator) {
		acc(a, b.reduceTo(b.inner.Div(grad, other), aShape))
		gb := b.inner.MulScalar(b.inner.Div(b.inner.Mul(grad, a), b.inner.Mul(other, other)), -1)
		acc(other, b.reduceTo(gb, otherShape))
	})
	return out
}

// MatMul records gradA = g @ b^T, gradB = a^T @ g.
func (b *Backend[B]) MatMul(a, other *tensor.RawTensor) *tensor.RawTensor {
	out := b.inner.MatMul(a, other)
	b.tape.record(out, func(grad *tensor.RawTensor, acc accumulator) {
		acc(a, b.inner.MatMul(grad, b.inner.Transpose(other)))
		acc(other, b.inner.MatMul(b.inner.Transpose(a), grad))
	})
	return out
}

// AddScalar records gradX = g.
func (b *Backend[B]) AddScalar(x *tensor.RawTensor, s float32) *tensor.RawTensor {
	out := b.inner.AddScalar(x, s)
	b.tape.record(out, func(grad *tensor.RawTensor, acc accumulator) {
		acc(x, grad)
	})
	return out
}

// MulScalar records gradX = g*s.
func (b *Backend[B]) MulScalar(x *tensor.RawTensor, s float32) *tensor.RawTensor {
	out := b.inner.MulScalar(x, s)
	b.tape.record(out, func(grad *tensor.RawTensor, acc accumulator) {
		acc(x, b.inner.MulScalar(grad, s))
	})
	return out
}

// Exp records gradX = g * exp(x), reusing the forward output.
func (b *Backend[B]) Exp(x *tensor.RawTensor) *tensor.RawTensor {
	out := b.inner.Exp(x)
	b.tape.record(out, func(grad *tensor.RawTensor, acc accumulator) {
		acc(x, b.inner.Mul(grad, out))
	})
	return out
}

// Log records gradX = g / x.
func (b *Backend[B]) Log(x *tensor.RawTensor) *tensor.RawTensor {
	out := b.inner.Log(x)
	b.tape.record(out, func(grad *tensor.RawTensor, acc accumulator) {
		acc(x, b.inner.Div(grad, x))
	})
	return out
}

// ReLU records gradX = g masked to the positive inputs.
func (b *Backend[B]) ReLU(x *tensor.RawTensor) *tensor.RawTensor {
	out := b.inner.ReLU(x)
	b.tape.record(out, func(grad *tensor.RawTensor, acc accumulator) {
		masked := grad.Clone()
		xs, gs := x.AsFloat32(), masked.AsFloat32()
		for i, v := range xs {
			if v <= 0 {
				gs[i] = 0
			}
		}
		acc(x, masked)
	})
	return out
}

// Softmax is not recorded; training losses use the fused
// cross-entropy gradient via Tape.RecordCustom instead.
func (b *Backend[B]) Softmax(x *tensor.RawTensor) *tensor.RawTensor {
	return b.inner.Softmax(x)
}

// Sum records gradX = g broadcast over every element.
func (b *Backend[B]) Sum(x *tensor.RawTensor) *tensor.RawTensor {
	out := b.inner.Sum(x)
	shape := x.Shape().Clone()
	b.tape.record(out, func(grad *tensor.RawTensor, acc accumulator) {
		g := grad.AsFloat32()[0]
		full, err := tensor.NewRaw(shape, tensor.Float32, b.inner.Device())
		if err != nil {
			panic(err)
		}
		data := full.AsFloat32()
		for i := range data {
			data[i] = g
		}
		acc(x, full)
	})
	return out
}

// SumDim delegates without recording; the trainer only differentiates
// through whole-tensor Sum.
func (b *Backend[B]) SumDim(x *tensor.RawTensor, dim int, keepDim bool) *tensor.RawTensor {
	return b.inner.SumDim(x, dim, keepDim)
}

// Argmax is integer-valued and has no gradient.
func (b *Backend[B]) Argmax(x *tensor.RawTensor, dim int) *tensor.RawTensor {
	return b.inner.Argmax(x, dim)
}

// Reshape records gradX = g viewed under x's shape.
func (b *Backend[B]) Reshape(x *tensor.RawTensor, shape tensor.Shape) *tensor.RawTensor {
	out := b.inner.Reshape(x, shape)
	orig := x.Shape().Clone()
	b.tape.record(out, func(grad *tensor.RawTensor, acc accumulator) {
		acc(x, b.inner.Reshape(grad, orig))
	})
	return out
}

// Transpose records gradX = g^T.
func (b *Backend[B]) Transpose(x *tensor.RawTensor) *tensor.RawTensor {
	out := b.inner.Transpose(x)
	b.tape.record(out, func(grad *tensor.RawTensor, acc accumulator) {
		acc(x, b.inner.Transpose(grad))
	})
	return out
}
