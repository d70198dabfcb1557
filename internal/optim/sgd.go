package optim

import (
	"fmt"

	"github.com/lumo-ml/lumo/internal/nn"
	"github.com/lumo-ml/lumo/internal/tensor"
)

// SGD is stochastic gradient descent with optional momentum:
//
//	v = momentum*v + g
//	p = p - lr*v
type SGD[B tensor.Backend] struct {
	params     []*nn.Parameter[B]
	lr         float32
	momentum   float32
	velocities map[*nn.Parameter[B]][]float32
}

// SGDConfig configures SGD.
type SGDConfig struct {
	LR       float32 // default 0.01
	Momentum float32 // [0, 1), default 0
}

// NewSGD creates an SGD optimizer over the given parameters.
func NewSGD[B tensor.Backend](params []*nn.Parameter[B], config SGDConfig) *SGD[B] {
	if config.LR == 0 {
		config.LR = 0.01
	}
	return &SGD[B]{
		params:     params,
		lr:         config.LR,
		momentum:   config.Momentum,
		velocities: make(map[*nn.Parameter[B]][]float32),
	}
}

// Step applies one update in place.
func (s *SGD[B]) Step(grads map[*tensor.RawTensor]*tensor.RawTensor) {
	for _, param := range s.params {
		grad := gradFor(param, grads)
		if grad == nil {
			continue
		}
		data := param.Tensor().Data()

		if s.momentum == 0 {
			for i, g := range grad {
				data[i] -= s.lr * g
			}
			continue
		}

		v, ok := s.velocities[param]
		if !ok {
			v = make([]float32, len(data))
			s.velocities[param] = v
		}
		for i, g := range grad {
			v[i] = s.momentum*v[i] + g
			data[i] -= s.lr * v[i]
		}
	}
}

// ZeroGrad clears per-parameter gradients.
func (s *SGD[B]) ZeroGrad() {
	for _, p := range s.params {
		p.ZeroGrad()
	}
}

// GetLR returns the learning rate.
func (s *SGD[B]) GetLR() float32 { return s.lr }

// SetLR updates the learning rate (for scheduling).
func (s *SGD[B]) SetLR(lr float32) { s.lr = lr }

// Name identifies the optimizer type in checkpoints.
func (s *SGD[B]) Name() string { return "SGD" }

// StateDict exports momentum velocities keyed "velocity.{i}". Empty
// without momentum.
func (s *SGD[B]) StateDict() map[string]*tensor.RawTensor {
	out := make(map[string]*tensor.RawTensor)
	if s.momentum == 0 {
		return out
	}
	for i, param := range s.params {
		v, ok := s.velocities[param]
		if !ok {
			continue
		}
		raw, err := tensor.NewRaw(param.Tensor().Shape(), tensor.Float32, tensor.CPU)
		if err != nil {
			panic(err)
		}
		copy(raw.AsFloat32(), v)
		out[fmt.Sprintf("velocity.%d", i)] = raw
	}
	return out
}

// LoadStateDict restores momentum velocities. Missing entries are
// re-initialized lazily on the next Step.
func (s *SGD[B]) LoadStateDict(stateDict map[string]*tensor.RawTensor) error {
	if s.momentum == 0 {
		return nil
	}
	s.velocities = make(map[*nn.Parameter[B]][]float32)
	for i, param := range s.params {
		raw, ok := stateDict[fmt.Sprintf("velocity.%d", i)]
		if !ok {
			continue
		}
		if !raw.Shape().Equal(param.Tensor().Shape()) {
			return fmt.Errorf("optim: velocity %d shape mismatch: have %v, want %v",
				i, raw.Shape(), param.Tensor().Shape())
		}
		v := make([]float32, raw.NumElements())
		copy(v, raw.AsFloat32())
		s.velocities[param] = v
	}
	return nil
}
