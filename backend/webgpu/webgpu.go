// Copyright 2026 Lumo ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package webgpu provides the GPU compute backend on WebGPU.
package webgpu

import (
	internalwebgpu "github.com/lumo-ml/lumo/internal/backend/webgpu"
	"github.com/lumo-ml/lumo/tensor"
)

// Backend is the WebGPU backend. Element-wise math and matmul run as
// WGSL compute kernels; remaining operations fall back to the CPU.
type Backend = internalwebgpu.Backend

// Compile-time check that Backend implements tensor.Backend.
var _ tensor.Backend = (*Backend)(nil)

// New initializes the WebGPU device. Returns an error when no adapter
// or native library is available; callers usually fall back to cpu:
//
//	backend, err := webgpu.New()
//	if err != nil {
//	    log.Printf("webgpu unavailable, using cpu: %v", err)
//	}
func New() (*Backend, error) {
	return internalwebgpu.New()
}

// IsAvailable reports whether a WebGPU adapter can be acquired.
func IsAvailable() bool {
	return internalwebgpu.IsAvailable()
}
