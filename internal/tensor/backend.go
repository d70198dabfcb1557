package tensor

// Backend is the contract every compute device implements. Operations
// take and return RawTensors; shape or dtype misuse panics, matching
// the rest of the math layer (these are programming errors, not
// runtime conditions).
//
// Implementations:
//   - cpu: pure Go, goroutine fan-out
//   - webgpu: WGSL compute kernels with CPU fallback
//   - autodiff: decorator recording operations onto a tape
type Backend interface {
	// Element-wise binary operations. Add supports trailing-dimension
	// row broadcast (e.g. [N] against [B, N]) for bias addition.
	Add(a, b *RawTensor) *RawTensor
	Sub(a, b *RawTensor) *RawTensor
	Mul(a, b *RawTensor) *RawTensor
	Div(a, b *RawTensor) *RawTensor

	// MatMul multiplies [M, K] by [K, N] into [M, N].
	MatMul(a, b *RawTensor) *RawTensor

	// Scalar operations.
	AddScalar(x *RawTensor, s float32) *RawTensor
	MulScalar(x *RawTensor, s float32) *RawTensor

	// Element-wise math.
	Exp(x *RawTensor) *RawTensor
	Log(x *RawTensor) *RawTensor
	ReLU(x *RawTensor) *RawTensor

	// Softmax along the last dimension.
	Softmax(x *RawTensor) *RawTensor

	// Reductions.
	Sum(x *RawTensor) *RawTensor
	SumDim(x *RawTensor, dim int, keepDim bool) *RawTensor
	Argmax(x *RawTensor, dim int) *RawTensor

	// Shape operations.
	Reshape(x *RawTensor, shape Shape) *RawTensor
	Transpose(x *RawTensor) *RawTensor

	// Metadata.
	Name() string
	Device() Device
}
