package nn

import (
	"fmt"
	"strings"

	"github.com/lumo-ml/lumo/internal/tensor"
)

// Sequential chains modules, feeding each output into the next.
type Sequential[B tensor.Backend] struct {
	modules []Module[B]
}

// NewSequential builds a sequential container.
func NewSequential[B tensor.Backend](modules ...Module[B]) *Sequential[B] {
	return &Sequential[B]{modules: modules}
}

// Forward runs the chain.
func (s *Sequential[B]) Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	x := input
	for _, m := range s.modules {
		x = m.Forward(x)
	}
	return x
}

// Parameters concatenates child parameters in order.
func (s *Sequential[B]) Parameters() []*Parameter[B] {
	var params []*Parameter[B]
	for _, m := range s.modules {
		params = append(params, m.Parameters()...)
	}
	return params
}

// StateDict prefixes each child's keys with its index ("0.weight").
func (s *Sequential[B]) StateDict() map[string]*tensor.RawTensor {
	out := make(map[string]*tensor.RawTensor)
	for i, m := range s.modules {
		for name, raw := range m.StateDict() {
			out[fmt.Sprintf("%d.%s", i, name)] = raw
		}
	}
	return out
}

// LoadStateDict routes prefixed keys back to the children.
func (s *Sequential[B]) LoadStateDict(stateDict map[string]*tensor.RawTensor) error {
	for i, m := range s.modules {
		prefix := fmt.Sprintf("%d.", i)
		child := make(map[string]*tensor.RawTensor)
		for name, raw := range stateDict {
			if strings.HasPrefix(name, prefix) {
				child[strings.TrimPrefix(name, prefix)] = raw
			}
		}
		if err := m.LoadStateDict(child); err != nil {
			return fmt.Errorf("nn: module %d: %w", i, err)
		}
	}
	return nil
}
