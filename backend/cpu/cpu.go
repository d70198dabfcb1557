// Copyright 2026 Lumo ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package cpu provides the pure-Go CPU compute backend.
package cpu

import (
	internalcpu "github.com/lumo-ml/lumo/internal/backend/cpu"
	"github.com/lumo-ml/lumo/tensor"
)

// Backend is the CPU backend. Large operations fan out across
// goroutines with chunk sizes tuned to the detected CPU features.
type Backend = internalcpu.CPUBackend

// Compile-time check that Backend implements tensor.Backend.
var _ tensor.Backend = (*Backend)(nil)

// New creates a CPU backend with parallel execution enabled.
//
// Example:
//
//	backend := cpu.New()
//	x := tensor.Zeros[float32](tensor.Shape{2, 3}, backend)
func New() *Backend {
	return internalcpu.New()
}

// NewSequential creates a single-goroutine CPU backend, useful for
// deterministic debugging and benchmarking baselines.
func NewSequential() *Backend {
	return internalcpu.NewSequential()
}
