package nn

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumo-ml/lumo/internal/autodiff"
	"github.com/lumo-ml/lumo/internal/backend/cpu"
	"github.com/lumo-ml/lumo/internal/tensor"
)

type Backend = *autodiff.Backend[*cpu.CPUBackend]

func newBackend() Backend {
	return autodiff.New(cpu.New())
}

func fromSlice(t *testing.T, b Backend, data []float32, shape tensor.Shape) *tensor.Tensor[float32, Backend] {
	t.Helper()
	out, err := tensor.FromSlice(data, shape, b)
	require.NoError(t, err)
	return out
}

func rawFromSlice(t *testing.T, data []float32, shape tensor.Shape) *tensor.RawTensor {
	t.Helper()
	raw, err := tensor.NewRaw(shape, tensor.Float32, tensor.CPU)
	require.NoError(t, err)
	copy(raw.AsFloat32(), data)
	return raw
}

func TestLinearForward(t *testing.T) {
	b := newBackend()
	layer := NewLinear[Backend](2, 3, b)

	// Overwrite the random init with known values.
	err := layer.LoadStateDict(map[string]*tensor.RawTensor{
		"weight": rawFromSlice(t, []float32{1, 2, 3, 4, 5, 6}, tensor.Shape{2, 3}),
		"bias":   rawFromSlice(t, []float32{10, 20, 30}, tensor.Shape{3}),
	})
	require.NoError(t, err)

	x := fromSlice(t, b, []float32{1, 1}, tensor.Shape{1, 2})
	y := layer.Forward(x)

	require.True(t, y.Shape().Equal(tensor.Shape{1, 3}))
	assert.Equal(t, []float32{15, 27, 39}, y.Data())
}

func TestLinearLoadStateDictValidation(t *testing.T) {
	b := newBackend()
	layer := NewLinear[Backend](2, 3, b)

	err := layer.LoadStateDict(map[string]*tensor.RawTensor{
		"weight": rawFromSlice(t, []float32{1, 2, 3, 4, 5, 6}, tensor.Shape{2, 3}),
	})
	require.Error(t, err, "missing bias")

	err = layer.LoadStateDict(map[string]*tensor.RawTensor{
		"weight": rawFromSlice(t, []float32{1, 2}, tensor.Shape{1, 2}),
		"bias":   rawFromSlice(t, []float32{0, 0, 0}, tensor.Shape{3}),
	})
	require.Error(t, err, "wrong weight shape")
}

func TestLinearParameterNames(t *testing.T) {
	b := newBackend()
	layer := NewLinear[Backend](4, 2, b)

	params := layer.Parameters()
	require.Len(t, params, 2)
	assert.Equal(t, "weight", params[0].Name())
	assert.Equal(t, "bias", params[1].Name())
	assert.True(t, params[0].Tensor().Shape().Equal(tensor.Shape{4, 2}))
	assert.True(t, params[1].Tensor().Shape().Equal(tensor.Shape{2}))
}

func TestReLUModule(t *testing.T) {
	b := newBackend()
	relu := NewReLU[Backend]()

	x := fromSlice(t, b, []float32{-1, 0, 2}, tensor.Shape{3})
	assert.Equal(t, []float32{0, 0, 2}, relu.Forward(x).Data())
	assert.Empty(t, relu.Parameters())
}

func TestSequentialStateDict(t *testing.T) {
	b := newBackend()
	model := NewSequential[Backend](
		NewLinear[Backend](4, 3, b),
		NewReLU[Backend](),
		NewLinear[Backend](3, 2, b),
	)

	sd := model.StateDict()
	for _, key := range []string{"0.weight", "0.bias", "2.weight", "2.bias"} {
		assert.Contains(t, sd, key)
	}
	assert.Len(t, sd, 4)
	assert.Len(t, model.Parameters(), 4)
}

func TestSequentialLoadRoundtrip(t *testing.T) {
	b := newBackend()
	src := NewSequential[Backend](NewLinear[Backend](3, 2, b))
	dst := NewSequential[Backend](NewLinear[Backend](3, 2, b))

	require.NoError(t, dst.LoadStateDict(src.StateDict()))

	x := fromSlice(t, b, []float32{1, -2, 3}, tensor.Shape{1, 3})
	srcOut, dstOut := src.Forward(x), dst.Forward(x)
	for i := range srcOut.Data() {
		assert.InDelta(t, srcOut.Data()[i], dstOut.Data()[i], 1e-6)
	}
}

func TestCrossEntropyUniformLogits(t *testing.T) {
	b := newBackend()
	criterion := NewCrossEntropyLoss[Backend](b)

	logits := fromSlice(t, b, []float32{0, 0, 0, 0}, tensor.Shape{2, 2})
	targets, err := tensor.FromSlice([]int32{0, 1}, tensor.Shape{2}, b)
	require.NoError(t, err)

	loss := criterion.Forward(logits, targets)
	assert.InDelta(t, math.Log(2), float64(loss.Item()), 1e-5)
}

func TestCrossEntropyPrefersCorrectClass(t *testing.T) {
	b := newBackend()
	criterion := NewCrossEntropyLoss[Backend](b)

	confident := fromSlice(t, b, []float32{10, -10}, tensor.Shape{1, 2})
	wrong := fromSlice(t, b, []float32{-10, 10}, tensor.Shape{1, 2})
	targets, err := tensor.FromSlice([]int32{0}, tensor.Shape{1}, b)
	require.NoError(t, err)

	lossGood := criterion.Forward(confident, targets).Item()
	lossBad := criterion.Forward(wrong, targets).Item()
	assert.Less(t, lossGood, float32(0.01))
	assert.Greater(t, lossBad, float32(5))
}

func TestCrossEntropyFusedGradient(t *testing.T) {
	b := newBackend()
	b.Tape().StartRecording()
	criterion := NewCrossEntropyLoss[Backend](b)

	logits := fromSlice(t, b, []float32{0, 0}, tensor.Shape{1, 2})
	targets, err := tensor.FromSlice([]int32{0}, tensor.Shape{1}, b)
	require.NoError(t, err)

	loss := criterion.Forward(logits, targets)
	grads, err := autodiff.Backward(loss.Raw(), b)
	require.NoError(t, err)

	// (softmax - onehot) / batch = ([0.5, 0.5] - [1, 0]) / 1.
	g := grads[logits.Raw()]
	require.NotNil(t, g)
	assert.InDelta(t, -0.5, g.AsFloat32()[0], 1e-5)
	assert.InDelta(t, 0.5, g.AsFloat32()[1], 1e-5)
}

func TestMSELoss(t *testing.T) {
	b := newBackend()
	criterion := NewMSELoss[Backend](b)

	pred := fromSlice(t, b, []float32{1, 2}, tensor.Shape{2})
	target := fromSlice(t, b, []float32{3, 2}, tensor.Shape{2})

	// ((1-3)^2 + 0) / 2 = 2.
	loss := criterion.Forward(pred, target)
	assert.InDelta(t, 2, float64(loss.Item()), 1e-6)
}

func TestMSELossGradient(t *testing.T) {
	b := newBackend()
	b.Tape().StartRecording()
	criterion := NewMSELoss[Backend](b)

	pred := fromSlice(t, b, []float32{1, 2}, tensor.Shape{2})
	target := fromSlice(t, b, []float32{3, 2}, tensor.Shape{2})

	loss := criterion.Forward(pred, target)
	grads, err := autodiff.Backward(loss.Raw(), b)
	require.NoError(t, err)

	// d/dpred mean((p-t)^2) = 2(p-t)/n = [-2, 0].
	g := grads[pred.Raw()]
	require.NotNil(t, g)
	assert.InDelta(t, -2, g.AsFloat32()[0], 1e-5)
	assert.InDelta(t, 0, g.AsFloat32()[1], 1e-5)
}

func TestAccuracy(t *testing.T) {
	b := newBackend()
	logits := fromSlice(t, b, []float32{
		9, 1, 0,
		0, 8, 2,
		5, 1, 3,
	}, tensor.Shape{3, 3})
	targets, err := tensor.FromSlice([]int32{0, 1, 2}, tensor.Shape{3}, b)
	require.NoError(t, err)

	assert.InDelta(t, 2.0/3.0, Accuracy(logits, targets), 1e-6)
}

func TestXavierScale(t *testing.T) {
	b := newBackend()
	w := Xavier(100, 100, tensor.Shape{100, 100}, b)

	var sumSq float64
	for _, v := range w.Data() {
		sumSq += float64(v) * float64(v)
	}
	variance := sumSq / float64(len(w.Data()))
	// Target variance 2/(fanIn+fanOut) = 0.01.
	assert.InDelta(t, 0.01, variance, 0.005)
}
