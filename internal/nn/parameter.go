package nn

import (
	"github.com/lumo-ml/lumo/internal/tensor"
)

// Parameter is a named trainable tensor.
type Parameter[B tensor.Backend] struct {
	name   string
	tensor *tensor.Tensor[float32, B]
	grad   *tensor.Tensor[float32, B]
}

// NewParameter creates a parameter wrapping a tensor.
func NewParameter[B tensor.Backend](name string, t *tensor.Tensor[float32, B]) *Parameter[B] {
	return &Parameter[B]{name: name, tensor: t}
}

// Name returns the parameter name (e.g. "fc1.weight").
func (p *Parameter[B]) Name() string { return p.name }

// Tensor returns the parameter's value tensor.
func (p *Parameter[B]) Tensor() *tensor.Tensor[float32, B] { return p.tensor }

// Grad returns the last gradient set on this parameter, or nil.
func (p *Parameter[B]) Grad() *tensor.Tensor[float32, B] { return p.grad }

// SetGrad stores a gradient on the parameter.
func (p *Parameter[B]) SetGrad(g *tensor.Tensor[float32, B]) { p.grad = g }

// ZeroGrad clears the stored gradient.
func (p *Parameter[B]) ZeroGrad() { p.grad = nil }
