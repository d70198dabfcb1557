package webgpu

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/go-webgpu/webgpu/wgpu"

	"github.com/lumo-ml/lumo/internal/tensor"
)

// runElementwise dispatches a 1D kernel over the inputs and reads the
// result back. All inputs share the output's element count.
func (b *Backend) runElementwise(name, code string, shape tensor.Shape, params []byte, inputs ...*tensor.RawTensor) (*tensor.RawTensor, error) {
	pipeline := b.pipelineFor(name, code)

	out, err := tensor.NewRaw(shape, tensor.Float32, tensor.WebGPU)
	if err != nil {
		return nil, err
	}
	outSize := uint64(out.ByteSize())

	buffers := make([]*wgpu.Buffer, 0, len(inputs))
	for _, in := range inputs {
		buf := b.createStorageBuffer(in.Data())
		defer buf.Release()
		buffers = append(buffers, buf)
	}

	result := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Usage: wgpu.BufferUsageStorage | wgpu.BufferUsageCopySrc | wgpu.BufferUsageCopyDst,
		Size:  outSize,
	})
	defer result.Release()

	uniform := b.createUniformBuffer(params)
	defer uniform.Release()

	entries := make([]wgpu.BindGroupEntry, 0, len(buffers)+2)
	for i, buf := range buffers {
		entries = append(entries, wgpu.BufferBindingEntry(uint32(i), buf, 0, uint64(inputs[i].ByteSize())))
	}
	entries = append(entries,
		wgpu.BufferBindingEntry(uint32(len(buffers)), result, 0, outSize),
		wgpu.BufferBindingEntry(uint32(len(buffers)+1), uniform, 0, 16),
	)

	bindGroup := b.device.CreateBindGroupSimple(pipeline.GetBindGroupLayout(0), entries)
	defer bindGroup.Release()

	encoder := b.device.CreateCommandEncoder(nil)
	pass := encoder.BeginComputePass(nil)
	pass.SetPipeline(pipeline)
	pass.SetBindGroup(0, bindGroup, nil)
	n := out.NumElements()
	pass.DispatchWorkgroups(uint32((n+workgroupSize-1)/workgroupSize), 1, 1)
	pass.End()
	b.queue.Submit(encoder.Finish(nil))

	data, err := b.readBuffer(result, outSize)
	if err != nil {
		return nil, err
	}
	copy(out.Data(), data)
	return out, nil
}

func sizeParams(n int) []byte {
	params := make([]byte, 16)
	binary.LittleEndian.PutUint32(params[0:4], uint32(n))
	return params
}

func scalarParams(n int, s float32) []byte {
	params := make([]byte, 16)
	binary.LittleEndian.PutUint32(params[0:4], uint32(n))
	binary.LittleEndian.PutUint32(params[4:8], math.Float32bits(s))
	return params
}

func (b *Backend) binaryOp(op, code string, x, y *tensor.RawTensor) *tensor.RawTensor {
	if x.DType() != tensor.Float32 || y.DType() != tensor.Float32 {
		panic(fmt.Sprintf("webgpu: %s needs float32 operands, got %s and %s", op, x.DType(), y.DType()))
	}
	out, err := b.runElementwise(op, code, x.Shape(), sizeParams(x.NumElements()), x, y)
	if err != nil {
		panic("webgpu: " + op + ": " + err.Error())
	}
	return out
}

func (b *Backend) unaryOp(op, code string, x *tensor.RawTensor) *tensor.RawTensor {
	if x.DType() != tensor.Float32 {
		panic(fmt.Sprintf("webgpu: %s needs a float32 operand, got %s", op, x.DType()))
	}
	out, err := b.runElementwise(op, code, x.Shape(), sizeParams(x.NumElements()), x)
	if err != nil {
		panic("webgpu: " + op + ": " + err.Error())
	}
	return out
}

// Add returns a + b. The trailing-dimension broadcast case has no
// kernel and runs on the fallback.
func (b *Backend) Add(x, y *tensor.RawTensor) *tensor.RawTensor {
	if !x.Shape().Equal(y.Shape()) {
		return b.onDevice(b.fallback.Add(x, y))
	}
	return b.binaryOp("add", addShader, x, y)
}

// Sub returns a - b.
func (b *Backend) Sub(x, y *tensor.RawTensor) *tensor.RawTensor {
	if !x.Shape().Equal(y.Shape()) {
		return b.onDevice(b.fallback.Sub(x, y))
	}
	return b.binaryOp("sub", subShader, x, y)
}

// Mul returns the element-wise product.
func (b *Backend) Mul(x, y *tensor.RawTensor) *tensor.RawTensor {
	if !x.Shape().Equal(y.Shape()) {
		return b.onDevice(b.fallback.Mul(x, y))
	}
	return b.binaryOp("mul", mulShader, x, y)
}

// Div returns the element-wise quotient.
func (b *Backend) Div(x, y *tensor.RawTensor) *tensor.RawTensor {
	if !x.Shape().Equal(y.Shape()) {
		return b.onDevice(b.fallback.Div(x, y))
	}
	return b.binaryOp("div", divShader, x, y)
}

// MatMul multiplies [M, K] by [K, N] on a 2D kernel grid.
func (b *Backend) MatMul(x, y *tensor.RawTensor) *tensor.RawTensor {
	xs, ys := x.Shape(), y.Shape()
	if len(xs) != 2 || len(ys) != 2 || xs[1] != ys[0] {
		panic(fmt.Sprintf("webgpu: MatMul shapes %v and %v are incompatible", xs, ys))
	}
	if x.DType() != tensor.Float32 || y.DType() != tensor.Float32 {
		panic("webgpu: MatMul needs float32 operands")
	}
	m, k, n := xs[0], xs[1], ys[1]

	params := make([]byte, 16)
	binary.LittleEndian.PutUint32(params[0:4], uint32(m))
	binary.LittleEndian.PutUint32(params[4:8], uint32(k))
	binary.LittleEndian.PutUint32(params[8:12], uint32(n))

	out, err := b.runMatMul(x, y, tensor.Shape{m, n}, params)
	if err != nil {
		panic("webgpu: MatMul: " + err.Error())
	}
	return out
}

func (b *Backend) runMatMul(x, y *tensor.RawTensor, outShape tensor.Shape, params []byte) (*tensor.RawTensor, error) {
	pipeline := b.pipelineFor("matmul", matmulShader)

	out, err := tensor.NewRaw(outShape, tensor.Float32, tensor.WebGPU)
	if err != nil {
		return nil, err
	}
	outSize := uint64(out.ByteSize())

	bufX := b.createStorageBuffer(x.Data())
	defer bufX.Release()
	bufY := b.createStorageBuffer(y.Data())
	defer bufY.Release()

	result := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Usage: wgpu.BufferUsageStorage | wgpu.BufferUsageCopySrc | wgpu.BufferUsageCopyDst,
		Size:  outSize,
	})
	defer result.Release()

	uniform := b.createUniformBuffer(params)
	defer uniform.Release()

	bindGroup := b.device.CreateBindGroupSimple(pipeline.GetBindGroupLayout(0), []wgpu.BindGroupEntry{
		wgpu.BufferBindingEntry(0, bufX, 0, uint64(x.ByteSize())),
		wgpu.BufferBindingEntry(1, bufY, 0, uint64(y.ByteSize())),
		wgpu.BufferBindingEntry(2, result, 0, outSize),
		wgpu.BufferBindingEntry(3, uniform, 0, 16),
	})
	defer bindGroup.Release()

	encoder := b.device.CreateCommandEncoder(nil)
	pass := encoder.BeginComputePass(nil)
	pass.SetPipeline(pipeline)
	pass.SetBindGroup(0, bindGroup, nil)
	cols, rows := outShape[1], outShape[0]
	pass.DispatchWorkgroups(
		uint32((cols+matmulTile-1)/matmulTile),
		uint32((rows+matmulTile-1)/matmulTile),
		1,
	)
	pass.End()
	b.queue.Submit(encoder.Finish(nil))

	data, err := b.readBuffer(result, outSize)
	if err != nil {
		return nil, err
	}
	copy(out.Data(), data)
	return out, nil
}

// AddScalar returns x + s.
func (b *Backend) AddScalar(x *tensor.RawTensor, s float32) *tensor.RawTensor {
	if x.DType() != tensor.Float32 {
		panic("webgpu: AddScalar needs a float32 operand")
	}
	out, err := b.runElementwise("add_scalar", addScalarShader, x.Shape(), scalarParams(x.NumElements(), s), x)
	if err != nil {
		panic("webgpu: AddScalar: " + err.Error())
	}
	return out
}

// MulScalar returns x * s.
func (b *Backend) MulScalar(x *tensor.RawTensor, s float32) *tensor.RawTensor {
	if x.DType() != tensor.Float32 {
		panic("webgpu: MulScalar needs a float32 operand")
	}
	out, err := b.runElementwise("mul_scalar", mulScalarShader, x.Shape(), scalarParams(x.NumElements(), s), x)
	if err != nil {
		panic("webgpu: MulScalar: " + err.Error())
	}
	return out
}

// Exp returns e^x element-wise.
func (b *Backend) Exp(x *tensor.RawTensor) *tensor.RawTensor {
	return b.unaryOp("exp", expShader, x)
}

// Log returns ln(x) element-wise.
func (b *Backend) Log(x *tensor.RawTensor) *tensor.RawTensor {
	return b.unaryOp("log", logShader, x)
}

// ReLU returns max(x, 0) element-wise.
func (b *Backend) ReLU(x *tensor.RawTensor) *tensor.RawTensor {
	return b.unaryOp("relu", reluShader, x)
}

// Softmax runs on the fallback.
func (b *Backend) Softmax(x *tensor.RawTensor) *tensor.RawTensor {
	return b.onDevice(b.fallback.Softmax(x))
}

// Sum runs on the fallback.
func (b *Backend) Sum(x *tensor.RawTensor) *tensor.RawTensor {
	return b.onDevice(b.fallback.Sum(x))
}

// SumDim runs on the fallback.
func (b *Backend) SumDim(x *tensor.RawTensor, dim int, keepDim bool) *tensor.RawTensor {
	return b.onDevice(b.fallback.SumDim(x, dim, keepDim))
}

// Argmax runs on the fallback.
func (b *Backend) Argmax(x *tensor.RawTensor, dim int) *tensor.RawTensor {
	return b.onDevice(b.fallback.Argmax(x, dim))
}

// Reshape is a metadata change; no kernel needed.
func (b *Backend) Reshape(x *tensor.RawTensor, shape tensor.Shape) *tensor.RawTensor {
	return b.onDevice(b.fallback.Reshape(x, shape))
}

// Transpose runs on the fallback.
func (b *Backend) Transpose(x *tensor.RawTensor) *tensor.RawTensor {
	return b.onDevice(b.fallback.Transpose(x))
}
