package nn

import (
	"fmt"

	"github.com/lumo-ml/lumo/internal/tensor"
)

// Linear is a fully connected layer: y = x @ W + b, with W stored as
// [inFeatures, outFeatures] and b as [outFeatures].
type Linear[B tensor.Backend] struct {
	weight *Parameter[B]
	bias   *Parameter[B]

	inFeatures  int
	outFeatures int
}

// NewLinear creates a linear layer with Xavier-initialized weights
// and zero bias.
func NewLinear[B tensor.Backend](inFeatures, outFeatures int, backend B) *Linear[B] {
	w := Xavier(inFeatures, outFeatures, tensor.Shape{inFeatures, outFeatures}, backend)
	b := Zeros[B](tensor.Shape{outFeatures}, backend)
	return &Linear[B]{
		weight:      NewParameter("weight", w),
		bias:        NewParameter("bias", b),
		inFeatures:  inFeatures,
		outFeatures: outFeatures,
	}
}

// Forward expects input of shape [batch, inFeatures].
func (l *Linear[B]) Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	return input.MatMul(l.weight.Tensor()).Add(l.bias.Tensor())
}

// Parameters returns the weight and bias.
func (l *Linear[B]) Parameters() []*Parameter[B] {
	return []*Parameter[B]{l.weight, l.bias}
}

// StateDict exports "weight" and "bias".
func (l *Linear[B]) StateDict() map[string]*tensor.RawTensor {
	return map[string]*tensor.RawTensor{
		"weight": l.weight.Tensor().Raw(),
		"bias":   l.bias.Tensor().Raw(),
	}
}

// LoadStateDict imports "weight" and "bias" by copy.
func (l *Linear[B]) LoadStateDict(stateDict map[string]*tensor.RawTensor) error {
	for name, param := range map[string]*Parameter[B]{
		"weight": l.weight,
		"bias":   l.bias,
	} {
		raw, ok := stateDict[name]
		if !ok {
			return fmt.Errorf("nn: missing parameter %q", name)
		}
		dst := param.Tensor().Raw()
		if !raw.Shape().Equal(dst.Shape()) {
			return fmt.Errorf("nn: parameter %q shape mismatch: have %v, want %v",
				name, raw.Shape(), dst.Shape())
		}
		copy(dst.Data(), raw.Data())
	}
	return nil
}
