package cpu

import (
	"fmt"
	"math"

	"github.com/lumo-ml/lumo/internal/parallel"
	"github.com/lumo-ml/lumo/internal/tensor"
)

// Sum reduces the whole tensor to a single-element tensor.
func (b *CPUBackend) Sum(x *tensor.RawTensor) *tensor.RawTensor {
	if x.DType() != tensor.Float32 {
		panic(fmt.Sprintf("cpu: sum needs float32 operand, got %s", x.DType()))
	}
	out := b.newLike(x, tensor.Shape{1})
	var total float64
	for _, v := range x.AsFloat32() {
		total += float64(v)
	}
	out.AsFloat32()[0] = float32(total)
	return out
}

// SumDim sums along one dimension, optionally keeping it as size 1.
func (b *CPUBackend) SumDim(x *tensor.RawTensor, dim int, keepDim bool) *tensor.RawTensor {
	shape := x.Shape()
	if dim < 0 {
		dim += len(shape)
	}
	if dim < 0 || dim >= len(shape) {
		panic(fmt.Sprintf("cpu: sumdim dim %d out of range for %v", dim, shape))
	}

	outer := 1
	for _, d := range shape[:dim] {
		outer *= d
	}
	reduced := shape[dim]
	inner := 1
	for _, d := range shape[dim+1:] {
		inner *= d
	}

	outShape := tensor.Shape{}
	for i, d := range shape {
		switch {
		case i != dim:
			outShape = append(outShape, d)
		case keepDim:
			outShape = append(outShape, 1)
		}
	}
	if len(outShape) == 0 {
		outShape = tensor.Shape{1}
	}

	out := b.newLike(x, outShape)
	xs, dst := x.AsFloat32(), out.AsFloat32()
	parallel.ForBatch(outer, inner, func(o, i int) {
		var total float64
		base := o*reduced*inner + i
		for r := 0; r < reduced; r++ {
			total += float64(xs[base+r*inner])
		}
		dst[o*inner+i] = float32(total)
	}, b.cfg)

	return out
}

// Argmax returns int32 indices of the maximum along dim.
func (b *CPUBackend) Argmax(x *tensor.RawTensor, dim int) *tensor.RawTensor {
	shape := x.Shape()
	if dim < 0 {
		dim += len(shape)
	}
	if dim < 0 || dim >= len(shape) {
		panic(fmt.Sprintf("cpu: argmax dim %d out of range for %v", dim, shape))
	}

	outer := 1
	for _, d := range shape[:dim] {
		outer *= d
	}
	reduced := shape[dim]
	inner := 1
	for _, d := range shape[dim+1:] {
		inner *= d
	}

	outShape := tensor.Shape{}
	for i, d := range shape {
		if i != dim {
			outShape = append(outShape, d)
		}
	}
	if len(outShape) == 0 {
		outShape = tensor.Shape{1}
	}

	out, err := tensor.NewRaw(outShape, tensor.Int32, tensor.CPU)
	if err != nil {
		panic(err)
	}
	xs, dst := x.AsFloat32(), out.AsInt32()
	parallel.ForBatch(outer, inner, func(o, i int) {
		base := o*reduced*inner + i
		best, bestIdx := xs[base], 0
		for r := 1; r < reduced; r++ {
			if v := xs[base+r*inner]; v > best {
				best, bestIdx = v, r
			}
		}
		dst[o*inner+i] = int32(bestIdx)
	}, b.cfg)

	return out
}

// Softmax applies a numerically stable softmax along the last
// dimension.
func (b *CPUBackend) Softmax(x *tensor.RawTensor) *tensor.RawTensor {
	shape := x.Shape()
	cols := shape[len(shape)-1]
	rows := x.NumElements() / cols

	out := b.newLike(x, shape)
	xs, dst := x.AsFloat32(), out.AsFloat32()
	rowCfg := b.cfg
	rowCfg.MinChunkSize = 1
	parallel.For(rows, func(r int) {
		row := xs[r*cols : (r+1)*cols]
		dstRow := dst[r*cols : (r+1)*cols]

		maxv := row[0]
		for _, v := range row[1:] {
			if v > maxv {
				maxv = v
			}
		}
		var total float64
		for i, v := range row {
			e := math.Exp(float64(v - maxv))
			dstRow[i] = float32(e)
			total += e
		}
		inv := float32(1 / total)
		for i := range dstRow {
			dstRow[i] *= inv
		}
	}, rowCfg)

	return out
}
