package nn

import (
	"fmt"
	"math"

	"github.com/lumo-ml/lumo/internal/autodiff"
	"github.com/lumo-ml/lumo/internal/tensor"
)

// CrossEntropyLoss fuses softmax and negative log-likelihood over a
// batch of logits. Numerically stable; the gradient is recorded as a
// single fused entry (softmax(logits) - onehot) / batch when the
// backend carries a tape.
type CrossEntropyLoss[B tensor.Backend] struct {
	backend B
}

// NewCrossEntropyLoss creates the loss.
func NewCrossEntropyLoss[B tensor.Backend](backend B) *CrossEntropyLoss[B] {
	return &CrossEntropyLoss[B]{backend: backend}
}

// Forward computes mean cross-entropy for logits [batch, classes] and
// int32 class targets [batch]. Returns a single-element tensor.
func (l *CrossEntropyLoss[B]) Forward(
	logits *tensor.Tensor[float32, B],
	targets *tensor.Tensor[int32, B],
) *tensor.Tensor[float32, B] {
	shape := logits.Shape()
	if len(shape) != 2 {
		panic(fmt.Sprintf("nn: cross entropy needs [batch, classes] logits, got %v", shape))
	}
	batch, classes := shape[0], shape[1]
	if targets.NumElements() != batch {
		panic(fmt.Sprintf("nn: cross entropy got %d targets for batch %d", targets.NumElements(), batch))
	}

	probs := l.backend.Softmax(logits.Raw())
	probData := probs.AsFloat32()
	targetData := targets.Data()

	var total float64
	for i := 0; i < batch; i++ {
		p := probData[i*classes+int(targetData[i])]
		// Clamp so a zero probability stays finite.
		total += -math.Log(math.Max(float64(p), 1e-12))
	}

	lossRaw, err := tensor.NewRaw(tensor.Shape{1}, tensor.Float32, l.backend.Device())
	if err != nil {
		panic(err)
	}
	lossRaw.AsFloat32()[0] = float32(total / float64(batch))

	if rec, ok := any(l.backend).(autodiff.Recorder); ok {
		logitsRaw := logits.Raw()
		rec.Tape().RecordCustom(lossRaw, func(grad *tensor.RawTensor, acc func(input, grad *tensor.RawTensor)) {
			g := grad.AsFloat32()[0] / float32(batch)
			gradRaw, err := tensor.NewRaw(logitsRaw.Shape(), tensor.Float32, logitsRaw.Device())
			if err != nil {
				panic(err)
			}
			gradData := gradRaw.AsFloat32()
			for i := 0; i < batch; i++ {
				for c := 0; c < classes; c++ {
					v := probData[i*classes+c]
					if int32(c) == targetData[i] {
						v -= 1
					}
					gradData[i*classes+c] = v * g
				}
			}
			acc(logitsRaw, gradRaw)
		})
	}

	return tensor.New[float32, B](lossRaw, l.backend)
}

// MSELoss is the mean squared error. Built from recorded primitive
// ops, so it differentiates through the tape without a fused entry.
type MSELoss[B tensor.Backend] struct {
	backend B
}

// NewMSELoss creates the loss.
func NewMSELoss[B tensor.Backend](backend B) *MSELoss[B] {
	return &MSELoss[B]{backend: backend}
}

// Forward computes mean((pred - target)^2) as a single-element tensor.
func (l *MSELoss[B]) Forward(pred, target *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	if !pred.Shape().Equal(target.Shape()) {
		panic(fmt.Sprintf("nn: mse shape mismatch %v vs %v", pred.Shape(), target.Shape()))
	}
	diff := pred.Sub(target)
	return diff.Mul(diff).Sum().MulScalar(1 / float32(pred.NumElements()))
}

// Accuracy returns the fraction of rows whose argmax matches the
// target class.
func Accuracy[B tensor.Backend](
	logits *tensor.Tensor[float32, B],
	targets *tensor.Tensor[int32, B],
) float32 {
	pred := logits.Backend().Argmax(logits.Raw(), -1)
	predData := pred.AsInt32()
	targetData := targets.Data()
	if len(predData) == 0 {
		return 0
	}
	correct := 0
	for i, p := range predData {
		if p == targetData[i] {
			correct++
		}
	}
	return float32(correct) / float32(len(predData))
}
