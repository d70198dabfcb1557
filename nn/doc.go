// Copyright 2026 Lumo ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package nn provides neural network layers and building blocks.
//
// # Overview
//
// This package contains:
//   - Layers: Linear
//   - Activations: ReLU
//   - Loss functions: CrossEntropyLoss, MSELoss
//   - Utilities: Sequential, Module interface, Parameter
//   - Initialization: Xavier, Zeros, Ones, Randn
//
// # Basic Usage
//
//	import (
//	    "github.com/lumo-ml/lumo/nn"
//	    "github.com/lumo-ml/lumo/backend/cpu"
//	)
//
//	backend := cpu.New()
//
//	model := nn.NewSequential(
//	    nn.NewLinear(784, 128, backend),
//	    nn.NewReLU[*cpu.CPUBackend](),
//	    nn.NewLinear(128, 10, backend),
//	)
//
//	output := model.Forward(input)
//
// # Loss Functions
//
// CrossEntropyLoss for classification (numerically stable, fused
// gradient when the backend records):
//
//	criterion := nn.NewCrossEntropyLoss(backend)
//	loss := criterion.Forward(logits, labels)
//
// MSELoss for regression:
//
//	criterion := nn.NewMSELoss(backend)
//	loss := criterion.Forward(predictions, targets)
//
// # Parameter Management
//
// Access model parameters for optimization:
//
//	for _, p := range model.Parameters() {
//	    fmt.Println(p.Name(), p.Tensor().Shape())
//	}
package nn
