// Package nn provides the neural-network building blocks: the Module
// contract, parameters, layers, losses and initialization.
package nn

import (
	"github.com/lumo-ml/lumo/internal/tensor"
)

// Module is the base contract for every network component.
//
// Modules compose:
//
//	model := nn.NewSequential[B](
//	    nn.NewLinear(784, 128, backend),
//	    nn.NewReLU[B](),
//	    nn.NewLinear(128, 10, backend),
//	)
type Module[B tensor.Backend] interface {
	// Forward computes the module's output for an input tensor.
	Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B]

	// Parameters returns all trainable parameters, including those of
	// nested modules. Parameter-free modules return an empty slice.
	Parameters() []*Parameter[B]

	// StateDict exports parameter names to raw tensors for
	// serialization.
	StateDict() map[string]*tensor.RawTensor

	// LoadStateDict imports parameters by name. Returns an error if a
	// required parameter is missing or has the wrong shape.
	LoadStateDict(stateDict map[string]*tensor.RawTensor) error
}
