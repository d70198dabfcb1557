package train

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumo-ml/lumo/internal/autodiff"
	"github.com/lumo-ml/lumo/internal/backend/cpu"
	"github.com/lumo-ml/lumo/internal/data"
	"github.com/lumo-ml/lumo/internal/nn"
	"github.com/lumo-ml/lumo/internal/optim"
	"github.com/lumo-ml/lumo/internal/tensor"
)

type B = Backend[*cpu.CPUBackend]

// litModel is a tiny two-class linear classifier implementing the
// required contract plus PrepareData and TrainingEpochEnd. It records
// every hook invocation so tests can assert lifecycle behavior.
type litModel struct {
	backend   B
	net       *nn.Sequential[B]
	criterion *nn.CrossEntropyLoss[B]
	ds        *data.InMemory
	batch     int
	lr        float32

	mu           sync.Mutex
	calls        []string
	prepareCalls int
	stepCalls    int
	shardSizes   []int
	epochLosses  []float64
}

func newLitModel(b B, samples, batch int, lr float32) *litModel {
	features := make([][]float32, samples)
	labels := make([]int32, samples)
	for i := range features {
		if i%2 == 0 {
			features[i], labels[i] = []float32{2, 0}, 0
		} else {
			features[i], labels[i] = []float32{0, 2}, 1
		}
	}
	return &litModel{
		backend:   b,
		net:       nn.NewSequential[B](nn.NewLinear[B](2, 2, b)),
		criterion: nn.NewCrossEntropyLoss[B](b),
		ds:        &data.InMemory{Features: features, Labels: labels, Shape: tensor.Shape{2}},
		batch:     batch,
		lr:        lr,
	}
}

func (m *litModel) record(name string) {
	m.mu.Lock()
	m.calls = append(m.calls, name)
	m.mu.Unlock()
}

func (m *litModel) Forward(x *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	return m.net.Forward(x)
}
func (m *litModel) Parameters() []*nn.Parameter[B] { return m.net.Parameters() }
func (m *litModel) StateDict() map[string]*tensor.RawTensor {
	return m.net.StateDict()
}
func (m *litModel) LoadStateDict(sd map[string]*tensor.RawTensor) error {
	return m.net.LoadStateDict(sd)
}

func (m *litModel) PrepareData() error {
	m.record("PrepareData")
	m.mu.Lock()
	m.prepareCalls++
	m.mu.Unlock()
	return nil
}

func (m *litModel) ConfigureOptimizers() optim.Optimizer {
	m.record("ConfigureOptimizers")
	return optim.NewSGD(m.net.Parameters(), optim.SGDConfig{LR: m.lr})
}

func (m *litModel) TrainLoader() (*data.Loader[B], error) {
	m.record("TrainLoader")
	return data.NewLoader(m.ds, m.backend, data.LoaderConfig{BatchSize: m.batch})
}

func (m *litModel) TrainingStep(batch data.Batch[B], batchIdx int) StepResult[B] {
	m.record("TrainingStep")
	m.mu.Lock()
	m.stepCalls++
	m.shardSizes = append(m.shardSizes, batch.Size)
	m.mu.Unlock()

	logits := m.net.Forward(batch.Inputs)
	loss := m.criterion.Forward(logits, batch.Targets)
	return StepResult[B]{
		Loss:    loss,
		Metrics: Metrics{"acc": float64(nn.Accuracy(logits, batch.Targets))},
	}
}

func (m *litModel) TrainingEpochEnd(outputs []StepResult[B]) Metrics {
	m.record("TrainingEpochEnd")
	m.epochLosses = append(m.epochLosses, meanLoss(outputs))
	return nil
}

// valTestModel adds the full optional surface on top of litModel.
type valTestModel struct {
	*litModel
}

func (m *valTestModel) ValLoader() (*data.Loader[B], error) {
	m.record("ValLoader")
	return data.NewLoader(m.ds, m.backend, data.LoaderConfig{BatchSize: m.batch})
}

func (m *valTestModel) ValidationStep(batch data.Batch[B], batchIdx int) StepResult[B] {
	m.record("ValidationStep")
	loss := m.criterion.Forward(m.net.Forward(batch.Inputs), batch.Targets)
	return StepResult[B]{Loss: loss}
}

func (m *valTestModel) ValidationEpochEnd(outputs []StepResult[B]) Metrics {
	m.record("ValidationEpochEnd")
	return Metrics{"val_loss": meanLoss(outputs)}
}

func (m *valTestModel) TestLoader() (*data.Loader[B], error) {
	m.record("TestLoader")
	return data.NewLoader(m.ds, m.backend, data.LoaderConfig{BatchSize: m.batch})
}

func (m *valTestModel) TestStep(batch data.Batch[B], batchIdx int) StepResult[B] {
	m.record("TestStep")
	logits := m.net.Forward(batch.Inputs)
	return StepResult[B]{
		Loss:    m.criterion.Forward(logits, batch.Targets),
		Metrics: Metrics{"test_acc": float64(nn.Accuracy(logits, batch.Targets))},
	}
}

// plainTestModel has test hooks but no TestEpochEnd, exercising the
// default metric aggregation.
type plainTestModel struct {
	*litModel
}

func (m *plainTestModel) TestLoader() (*data.Loader[B], error) {
	return data.NewLoader(m.ds, m.backend, data.LoaderConfig{BatchSize: m.batch})
}

func (m *plainTestModel) TestStep(batch data.Batch[B], batchIdx int) StepResult[B] {
	logits := m.net.Forward(batch.Inputs)
	return StepResult[B]{
		Loss:    m.criterion.Forward(logits, batch.Targets),
		Metrics: Metrics{"test_acc": float64(nn.Accuracy(logits, batch.Targets))},
	}
}

// stepEndModel combines shard outputs itself, summing the shard
// losses instead of averaging them.
type stepEndModel struct {
	*litModel

	partCounts []int
	combined   []float64
}

func (m *stepEndModel) TrainingStepEnd(parts []StepResult[B]) StepResult[B] {
	loss := parts[0].Loss
	for _, p := range parts[1:] {
		loss = loss.Add(p.Loss)
	}
	m.partCounts = append(m.partCounts, len(parts))
	m.combined = append(m.combined, float64(loss.Item()))
	return StepResult[B]{Loss: loss}
}

func newTestTrainer(t *testing.T, cfg Config) *Trainer[*cpu.CPUBackend] {
	t.Helper()
	trainer, err := NewTrainer(cpu.New(), cfg)
	require.NoError(t, err)
	return trainer
}

func indexOf(calls []string, name string) int {
	for i, c := range calls {
		if c == name {
			return i
		}
	}
	return -1
}

func TestFitLifecycleOrder(t *testing.T) {
	trainer := newTestTrainer(t, Config{MaxEpochs: 1})
	m := &valTestModel{newLitModel(trainer.Backend(), 8, 4, 0.1)}

	require.NoError(t, trainer.Fit(context.Background(), m))

	order := []string{
		"PrepareData", "ConfigureOptimizers", "TrainLoader", "ValLoader",
		"TrainingStep", "TrainingEpochEnd", "ValidationStep", "ValidationEpochEnd",
	}
	prev := -1
	for _, name := range order {
		idx := indexOf(m.calls, name)
		require.GreaterOrEqual(t, idx, 0, "hook %s never ran", name)
		assert.Greater(t, idx, prev, "hook %s ran out of order", name)
		prev = idx
	}

	// Test hooks must never run from Fit.
	assert.NotContains(t, m.calls, "TestLoader")
	assert.NotContains(t, m.calls, "TestStep")
}

func TestFitReducesLoss(t *testing.T) {
	trainer := newTestTrainer(t, Config{MaxEpochs: 8})
	m := newLitModel(trainer.Backend(), 32, 8, 0.5)

	require.NoError(t, trainer.Fit(context.Background(), m))

	require.Len(t, m.epochLosses, 8)
	assert.Less(t, m.epochLosses[7], m.epochLosses[0])
	assert.EqualValues(t, 8*4, trainer.GlobalStep())
}

func TestFitDefaultsToOneEpoch(t *testing.T) {
	trainer := newTestTrainer(t, Config{})
	m := newLitModel(trainer.Backend(), 8, 4, 0.1)

	require.NoError(t, trainer.Fit(context.Background(), m))
	assert.Len(t, m.epochLosses, 1)
}

func TestPrepareDataRunsOnce(t *testing.T) {
	trainer := newTestTrainer(t, Config{MaxEpochs: 1})
	m := &valTestModel{newLitModel(trainer.Backend(), 8, 4, 0.1)}

	require.NoError(t, trainer.Fit(context.Background(), m))
	require.NoError(t, trainer.Fit(context.Background(), m))
	_, err := trainer.Test(context.Background(), m)
	require.NoError(t, err)

	assert.Equal(t, 1, m.prepareCalls)
}

func TestFitCanceledContext(t *testing.T) {
	trainer := newTestTrainer(t, Config{MaxEpochs: 1})
	m := newLitModel(trainer.Backend(), 8, 4, 0.1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.Error(t, trainer.Fit(ctx, m))
}

func TestTestRequiresHooks(t *testing.T) {
	trainer := newTestTrainer(t, Config{})
	m := newLitModel(trainer.Backend(), 8, 4, 0.1)

	_, err := trainer.Test(context.Background(), m)
	assert.ErrorIs(t, err, ErrNoTestHooks)
}

func TestTestReportsMetrics(t *testing.T) {
	trainer := newTestTrainer(t, Config{MaxEpochs: 2})
	m := &valTestModel{newLitModel(trainer.Backend(), 32, 8, 0.5)}

	require.NoError(t, trainer.Fit(context.Background(), m))
	metrics, err := trainer.Test(context.Background(), m)
	require.NoError(t, err)

	assert.Contains(t, metrics, "test_loss")
	assert.Contains(t, metrics, "test_acc")
	assert.Greater(t, metrics["test_acc"], 0.5)
}

func TestTestDefaultAggregation(t *testing.T) {
	trainer := newTestTrainer(t, Config{})
	m := &plainTestModel{newLitModel(trainer.Backend(), 8, 4, 0.1)}

	metrics, err := trainer.Test(context.Background(), m)
	require.NoError(t, err)

	// Without TestEpochEnd the loop averages each reported metric and
	// adds the mean loss under "test_loss".
	assert.Contains(t, metrics, "test_loss")
	assert.Contains(t, metrics, "test_acc")
}

func TestDataParallelShardsEveryBatch(t *testing.T) {
	trainer := newTestTrainer(t, Config{MaxEpochs: 1, DataParallel: 2})
	m := newLitModel(trainer.Backend(), 16, 8, 0.1)

	require.NoError(t, trainer.Fit(context.Background(), m))

	// Two batches of 8, each split across two goroutines.
	assert.Equal(t, 4, m.stepCalls)
	for _, size := range m.shardSizes {
		assert.Equal(t, 4, size)
	}
	// One optimizer step per batch, not per shard.
	assert.EqualValues(t, 2, trainer.GlobalStep())
}

func TestDataParallelTrainingStepEnd(t *testing.T) {
	trainer := newTestTrainer(t, Config{MaxEpochs: 1, DataParallel: 2})
	m := &stepEndModel{litModel: newLitModel(trainer.Backend(), 16, 8, 0.1)}

	require.NoError(t, trainer.Fit(context.Background(), m))

	// Two batches of 8, the hook received both shard outputs each time.
	assert.Equal(t, []int{2, 2}, m.partCounts)
	assert.Equal(t, 4, m.stepCalls)
	// One optimizer step per combined batch.
	assert.EqualValues(t, 2, trainer.GlobalStep())

	// The hook's summed loss, not the shard average, is what flows on
	// to the epoch aggregation (and to backward).
	require.Len(t, m.epochLosses, 1)
	var want float64
	for _, v := range m.combined {
		want += v
	}
	want /= float64(len(m.combined))
	assert.InDelta(t, want, m.epochLosses[0], 1e-6)
}

func TestSplitBatch(t *testing.T) {
	b := autodiff.New(cpu.New())
	inputs, err := tensor.FromSlice([]float32{
		0, 0, 1, 1, 2, 2, 3, 3, 4, 4,
	}, tensor.Shape{5, 2}, b)
	require.NoError(t, err)
	targets, err := tensor.FromSlice([]int32{0, 1, 2, 3, 4}, tensor.Shape{5}, b)
	require.NoError(t, err)
	batch := data.Batch[B]{Inputs: inputs, Targets: targets, Size: 5}

	shards := splitBatch(batch, 2)
	require.Len(t, shards, 2)

	assert.Equal(t, 3, shards[0].Size)
	assert.Equal(t, 2, shards[1].Size)
	assert.Equal(t, []float32{0, 0, 1, 1, 2, 2}, shards[0].Inputs.Data())
	assert.Equal(t, []int32{0, 1, 2}, shards[0].Targets.Data())
	assert.Equal(t, []float32{3, 3, 4, 4}, shards[1].Inputs.Data())
	assert.Equal(t, []int32{3, 4}, shards[1].Targets.Data())

	// Shards own their memory.
	shards[0].Inputs.Data()[0] = 99
	assert.Equal(t, float32(0), inputs.Data()[0])
}

func TestAverageParts(t *testing.T) {
	b := autodiff.New(cpu.New())
	lossOf := func(v float32) *tensor.Tensor[float32, B] {
		out, err := tensor.FromSlice([]float32{v}, tensor.Shape{1}, b)
		require.NoError(t, err)
		return out
	}

	combined := averageParts([]StepResult[B]{
		{Loss: lossOf(2), Metrics: Metrics{"acc": 0.5}},
		{Loss: lossOf(4), Metrics: Metrics{"acc": 1.0}},
	})

	assert.InDelta(t, 3, float64(combined.Loss.Item()), 1e-6)
	assert.InDelta(t, 0.75, combined.Metrics["acc"], 1e-9)
}

func TestLoadersOnce(t *testing.T) {
	b := autodiff.New(cpu.New())
	ds := &data.InMemory{
		Features: [][]float32{{1}},
		Labels:   []int32{0},
		Shape:    tensor.Shape{1},
	}

	calls := 0
	build := LoadersOnce(func() (*data.Loader[B], error) {
		calls++
		return data.NewLoader(ds, b, data.LoaderConfig{BatchSize: 1})
	})

	first, err := build()
	require.NoError(t, err)
	second, err := build()
	require.NoError(t, err)

	assert.Equal(t, 1, calls)
	assert.Same(t, first, second)
}

func TestNewTrainerValidation(t *testing.T) {
	_, err := NewTrainer(cpu.New(), Config{MaxEpochs: -1})
	assert.Error(t, err)
	_, err = NewTrainer(cpu.New(), Config{DataParallel: -1})
	assert.Error(t, err)
	_, err = NewTrainer(cpu.New(), Config{LogEvery: -2})
	assert.Error(t, err)
}
