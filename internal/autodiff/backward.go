package autodiff

import (
	"fmt"

	"github.com/lumo-ml/lumo/internal/tensor"
)

// Recorder is satisfied by backends that carry a gradient tape. The
// trainer only requires this much of its backend.
type Recorder interface {
	Tape() *Tape
}

// Gradients maps a forward-pass tensor to the gradient of the loss
// with respect to it.
type Gradients = map[*tensor.RawTensor]*tensor.RawTensor

// Backward runs reverse-mode accumulation from loss, which must be a
// single-element tensor produced while the tape was recording.
// Returns the gradient map; entries exist only for tensors that
// participated in the forward pass.
func Backward[B tensor.Backend](loss *tensor.RawTensor, b *Backend[B]) (Gradients, error) {
	if loss.NumElements() != 1 {
		return nil, fmt.Errorf("autodiff: backward needs a scalar loss, got shape %v", loss.Shape())
	}

	grads := make(Gradients)

	seed, err := tensor.NewRaw(loss.Shape(), tensor.Float32, b.inner.Device())
	if err != nil {
		return nil, err
	}
	seed.AsFloat32()[0] = 1
	grads[loss] = seed

	acc := func(input, grad *tensor.RawTensor) {
		if existing, ok := grads[input]; ok {
			grads[input] = b.inner.Add(existing, grad)
			return
		}
		grads[input] = grad
	}

	entries := b.tape.snapshot()
	for i := len(entries) - 1; i >= 0; i-- {
		e := entries[i]
		grad, ok := grads[e.output]
		if !ok {
			// This op's output did not feed the loss.
			continue
		}
		e.backward(grad, acc)
	}

	return grads, nil
}
