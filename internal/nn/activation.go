package nn

import (
	"github.com/lumo-ml/lumo/internal/tensor"
)

// ReLU applies max(0, x) element-wise. Parameter-free.
type ReLU[B tensor.Backend] struct{}

// NewReLU creates a ReLU activation module.
func NewReLU[B tensor.Backend]() *ReLU[B] { return &ReLU[B]{} }

// Forward applies the activation.
func (r *ReLU[B]) Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	return tensor.New[float32, B](input.Backend().ReLU(input.Raw()), input.Backend())
}

// Parameters returns an empty slice.
func (r *ReLU[B]) Parameters() []*Parameter[B] { return []*Parameter[B]{} }

// StateDict returns an empty map.
func (r *ReLU[B]) StateDict() map[string]*tensor.RawTensor {
	return map[string]*tensor.RawTensor{}
}

// LoadStateDict is a no-op.
func (r *ReLU[B]) LoadStateDict(map[string]*tensor.RawTensor) error { return nil }

// ReLUFunc applies ReLU without constructing a module.
func ReLUFunc[B tensor.Backend](x *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	return tensor.New[float32, B](x.Backend().ReLU(x.Raw()), x.Backend())
}
