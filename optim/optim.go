// Copyright 2026 Lumo ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package optim provides parameter-update algorithms.
//
// Optimizers are built over a module's parameters and driven by the
// trainer; user code only picks one in ConfigureOptimizers:
//
//	func (m *LitModel) ConfigureOptimizers() optim.Optimizer {
//	    return optim.NewAdam(m.net.Parameters(), optim.AdamConfig{LR: 1e-3})
//	}
package optim

import (
	"github.com/lumo-ml/lumo/internal/optim"
	"github.com/lumo-ml/lumo/nn"
	"github.com/lumo-ml/lumo/tensor"
)

// Optimizer updates parameters from a gradient map.
type Optimizer = optim.Optimizer

// SGD is stochastic gradient descent with optional momentum.
type SGD[B tensor.Backend] = optim.SGD[B]

// SGDConfig configures SGD.
type SGDConfig = optim.SGDConfig

// NewSGD creates an SGD optimizer over the given parameters.
func NewSGD[B tensor.Backend](params []*nn.Parameter[B], config SGDConfig) *SGD[B] {
	return optim.NewSGD(params, config)
}

// Adam is the Adam optimizer with bias-corrected moment estimates.
type Adam[B tensor.Backend] = optim.Adam[B]

// AdamConfig configures Adam. Zero values take the usual defaults
// (beta1 0.9, beta2 0.999, epsilon 1e-8).
type AdamConfig = optim.AdamConfig

// NewAdam creates an Adam optimizer over the given parameters.
func NewAdam[B tensor.Backend](params []*nn.Parameter[B], config AdamConfig) *Adam[B] {
	return optim.NewAdam(params, config)
}
