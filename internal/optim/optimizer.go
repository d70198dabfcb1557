// Package optim implements parameter-update algorithms.
//
// Usage:
//
//	optimizer := optim.NewSGD(model.Parameters(), optim.SGDConfig{LR: 0.01, Momentum: 0.9})
//	grads, _ := autodiff.Backward(loss.Raw(), backend)
//	optimizer.Step(grads)
//	optimizer.ZeroGrad()
package optim

import (
	"github.com/lumo-ml/lumo/internal/nn"
	"github.com/lumo-ml/lumo/internal/tensor"
)

// Optimizer updates parameters from a gradient map.
type Optimizer interface {
	// Step applies one update. The map comes from autodiff.Backward
	// and is keyed by the parameter's RawTensor; parameters absent
	// from the map (they did not feed the loss) are skipped.
	Step(grads map[*tensor.RawTensor]*tensor.RawTensor)

	// ZeroGrad clears per-parameter gradients before the next pass.
	ZeroGrad()

	// GetLR returns the current learning rate.
	GetLR() float32
}

func gradFor[B tensor.Backend](p *nn.Parameter[B], grads map[*tensor.RawTensor]*tensor.RawTensor) []float32 {
	raw, ok := grads[p.Tensor().Raw()]
	if !ok {
		return nil
	}
	return raw.AsFloat32()
}
