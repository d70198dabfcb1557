// Copyright 2026 Lumo ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package tensor

import (
	"github.com/lumo-ml/lumo/internal/tensor"
)

// Backend is the contract every compute device implements. Operations
// take and return RawTensors; shape or dtype misuse panics.
//
// Implementations:
//   - backend/cpu: pure Go with goroutine fan-out
//   - backend/webgpu: WGSL compute kernels
//   - the autodiff decorator the Trainer wraps around either
type Backend = tensor.Backend
