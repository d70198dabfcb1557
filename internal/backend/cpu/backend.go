// Package cpu implements the pure-Go compute backend.
//
// Operations fan out across goroutines via internal/parallel; chunk
// sizes are tuned from CPU feature detection so wide-vector machines
// get larger per-goroutine slices.
package cpu

import (
	"github.com/klauspost/cpuid/v2"

	"github.com/lumo-ml/lumo/internal/parallel"
	"github.com/lumo-ml/lumo/internal/tensor"
)

// CPUBackend implements tensor.Backend in pure Go.
type CPUBackend struct {
	cfg parallel.Config
}

// New creates a CPU backend with parallelism derived from the host.
func New() *CPUBackend {
	cfg := parallel.DefaultConfig()
	// Wider SIMD units chew through a chunk faster, so hand each
	// goroutine more work before the fan-out pays off.
	switch {
	case cpuid.CPU.Supports(cpuid.AVX512F):
		cfg.MinChunkSize = 512
	case cpuid.CPU.Supports(cpuid.AVX2):
		cfg.MinChunkSize = 256
	}
	return &CPUBackend{cfg: cfg}
}

// NewSequential creates a CPU backend with fan-out disabled. Used in
// tests and inside data-parallel shards that are already goroutines.
func NewSequential() *CPUBackend {
	cfg := parallel.DefaultConfig()
	cfg.Enabled = false
	return &CPUBackend{cfg: cfg}
}

// Name returns the backend name.
func (b *CPUBackend) Name() string { return "cpu" }

// Device returns tensor.CPU.
func (b *CPUBackend) Device() tensor.Device { return tensor.CPU }

func (b *CPUBackend) newLike(x *tensor.RawTensor, shape tensor.Shape) *tensor.RawTensor {
	out, err := tensor.NewRaw(shape, x.DType(), tensor.CPU)
	if err != nil {
		panic(err)
	}
	return out
}
