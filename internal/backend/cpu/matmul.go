package cpu

import (
	"fmt"

	"github.com/lumo-ml/lumo/internal/parallel"
	"github.com/lumo-ml/lumo/internal/tensor"
)

// MatMul multiplies [M, K] by [K, N] into [M, N], parallelized over
// output rows with an ikj loop order for cache-friendly access.
func (b *CPUBackend) MatMul(a, other *tensor.RawTensor) *tensor.RawTensor {
	if a.DType() != tensor.Float32 || other.DType() != tensor.Float32 {
		panic(fmt.Sprintf("cpu: matmul needs float32 operands, got %s and %s", a.DType(), other.DType()))
	}
	if len(a.Shape()) != 2 || len(other.Shape()) != 2 {
		panic(fmt.Sprintf("cpu: matmul needs 2D operands, got %v and %v", a.Shape(), other.Shape()))
	}

	m, k := a.Shape()[0], a.Shape()[1]
	k2, n := other.Shape()[0], other.Shape()[1]
	if k != k2 {
		panic(fmt.Sprintf("cpu: matmul inner dims differ: %v @ %v", a.Shape(), other.Shape()))
	}

	out := b.newLike(a, tensor.Shape{m, n})
	xs, ys, dst := a.AsFloat32(), other.AsFloat32(), out.AsFloat32()

	rowCfg := b.cfg
	rowCfg.MinChunkSize = 1 // rows are heavy, fan out even for small M
	parallel.For(m, func(i int) {
		rowA := xs[i*k : (i+1)*k]
		rowC := dst[i*n : (i+1)*n]
		for p, av := range rowA {
			if av == 0 {
				continue
			}
			rowB := ys[p*n : (p+1)*n]
			for j, bv := range rowB {
				rowC[j] += av * bv
			}
		}
	}, rowCfg)

	return out
}
