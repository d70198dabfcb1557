// Copyright 2026 Lumo ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package train_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumo-ml/lumo/backend/cpu"
	"github.com/lumo-ml/lumo/data"
	"github.com/lumo-ml/lumo/nn"
	"github.com/lumo-ml/lumo/optim"
	"github.com/lumo-ml/lumo/tensor"
	"github.com/lumo-ml/lumo/train"
)

type B = train.Backend[*cpu.Backend]

// twoClassModel is the smallest organized module: a linear classifier
// over a separable synthetic dataset, built entirely on the public
// API.
type twoClassModel struct {
	backend   B
	net       *nn.Sequential[B]
	criterion *nn.CrossEntropyLoss[B]
	ds        *data.InMemory
	loader    func() (*data.Loader[B], error)

	epochLosses []float64
}

func newTwoClassModel(b B) *twoClassModel {
	features := make([][]float32, 32)
	labels := make([]int32, 32)
	for i := range features {
		if i%2 == 0 {
			features[i], labels[i] = []float32{2, 0}, 0
		} else {
			features[i], labels[i] = []float32{0, 2}, 1
		}
	}
	m := &twoClassModel{
		backend:   b,
		net:       nn.NewSequential[B](nn.NewLinear[B](2, 2, b)),
		criterion: nn.NewCrossEntropyLoss[B](b),
		ds:        &data.InMemory{Features: features, Labels: labels, Shape: tensor.Shape{2}},
	}
	m.loader = train.LoadersOnce(func() (*data.Loader[B], error) {
		return data.NewLoader(m.ds, b, data.LoaderConfig{BatchSize: 8})
	})
	return m
}

func (m *twoClassModel) Forward(x *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	return m.net.Forward(x)
}
func (m *twoClassModel) Parameters() []*nn.Parameter[B] { return m.net.Parameters() }
func (m *twoClassModel) StateDict() map[string]*tensor.RawTensor {
	return m.net.StateDict()
}
func (m *twoClassModel) LoadStateDict(sd map[string]*tensor.RawTensor) error {
	return m.net.LoadStateDict(sd)
}

func (m *twoClassModel) TrainingStep(batch data.Batch[B], batchIdx int) train.StepResult[B] {
	logits := m.net.Forward(batch.Inputs)
	return train.StepResult[B]{
		Loss:    m.criterion.Forward(logits, batch.Targets),
		Metrics: train.Metrics{"acc": float64(nn.Accuracy(logits, batch.Targets))},
	}
}

func (m *twoClassModel) ConfigureOptimizers() optim.Optimizer {
	return optim.NewSGD(m.net.Parameters(), optim.SGDConfig{LR: 0.5})
}

func (m *twoClassModel) TrainLoader() (*data.Loader[B], error) { return m.loader() }

func (m *twoClassModel) TrainingEpochEnd(outputs []train.StepResult[B]) train.Metrics {
	var total float64
	for _, out := range outputs {
		total += float64(out.Loss.Item())
	}
	m.epochLosses = append(m.epochLosses, total/float64(len(outputs)))
	return nil
}

func TestFitThroughPublicAPI(t *testing.T) {
	trainer, err := train.NewTrainer(cpu.New(), train.Config{MaxEpochs: 6})
	require.NoError(t, err)

	m := newTwoClassModel(trainer.Backend())
	require.NoError(t, trainer.Fit(context.Background(), m))

	require.Len(t, m.epochLosses, 6)
	assert.Less(t, m.epochLosses[5], m.epochLosses[0])
}

func TestTestWithoutHooksErrs(t *testing.T) {
	trainer, err := train.NewTrainer(cpu.New(), train.Config{})
	require.NoError(t, err)

	m := newTwoClassModel(trainer.Backend())
	_, err = trainer.Test(context.Background(), m)
	assert.ErrorIs(t, err, train.ErrNoTestHooks)
}
