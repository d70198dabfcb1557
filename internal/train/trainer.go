package train

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/lumo-ml/lumo/internal/autodiff"
	"github.com/lumo-ml/lumo/internal/ctxlog"
	"github.com/lumo-ml/lumo/internal/data"
	"github.com/lumo-ml/lumo/internal/optim"
	"github.com/lumo-ml/lumo/internal/parallel"
	"github.com/lumo-ml/lumo/internal/tensor"
)

// Backend is the gradient-recording backend modules train on. The
// Trainer wraps a plain compute backend in autodiff itself, so user
// code never touches tapes or backward passes.
type Backend[B tensor.Backend] = *autodiff.Backend[B]

// ErrNoTestHooks is returned by Test when the module defines no test
// loop.
var ErrNoTestHooks = errors.New("train: module defines no test hooks (TestStep and TestLoader)")

// Trainer drives a module through the training lifecycle. B is the
// underlying compute backend (cpu, webgpu); modules see it wrapped
// as Backend[B].
type Trainer[B tensor.Backend] struct {
	backend Backend[B]
	cfg     Config
	run     *Run

	globalStep int64

	mu       sync.Mutex
	prepared map[DataPreparer]bool
}

// NewTrainer wraps a compute backend and validates the config.
func NewTrainer[B tensor.Backend](compute B, cfg Config) (*Trainer[B], error) {
	cfg = cfg.withDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &Trainer[B]{
		backend:  autodiff.New(compute),
		cfg:      cfg,
		prepared: make(map[DataPreparer]bool),
	}, nil
}

// Backend returns the gradient-recording backend to build modules on.
func (t *Trainer[B]) Backend() Backend[B] { return t.backend }

// GlobalStep returns the number of optimizer steps taken so far.
func (t *Trainer[B]) GlobalStep() int64 { return t.globalStep }

// Run returns the current run, or nil before checkpointing starts.
func (t *Trainer[B]) Run() *Run { return t.run }

// prepareData invokes PrepareData exactly once per module, no matter
// how many Fit/Test calls or data-parallel workers follow.
func (t *Trainer[B]) prepareData(m any) error {
	dp, ok := m.(DataPreparer)
	if !ok {
		return nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.prepared[dp] {
		return nil
	}
	if err := dp.PrepareData(); err != nil {
		return fmt.Errorf("train: prepare data: %w", err)
	}
	t.prepared[dp] = true
	return nil
}

// Fit trains the module for the configured number of epochs.
//
// Hook order: PrepareData (once), ConfigureOptimizers, TrainLoader,
// then ValLoader if the module defines the validation loop. Each
// epoch runs TrainingStep per batch (per shard under data-parallel
// splitting, combined by TrainingStepEnd), then TrainingEpochEnd,
// then the validation loop. TestLoader is never called here.
func (t *Trainer[B]) Fit(ctx context.Context, m Module[Backend[B]]) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	logger := ctxlog.FromContext(ctx)

	if err := t.prepareData(m); err != nil {
		return err
	}

	optimizer := m.ConfigureOptimizers()
	if optimizer == nil {
		return errors.New("train: ConfigureOptimizers returned nil")
	}

	trainLoader, err := m.TrainLoader()
	if err != nil {
		return fmt.Errorf("train: train loader: %w", err)
	}

	var (
		valHooks  ValidationHooks[Backend[B]]
		valLoader *data.Loader[Backend[B]]
	)
	if vh, ok := m.(ValidationHooks[Backend[B]]); ok {
		valHooks = vh
		if valLoader, err = vh.ValLoader(); err != nil {
			return fmt.Errorf("train: val loader: %w", err)
		}
	}

	startEpoch := 0
	if t.cfg.ResumeFrom != "" {
		state, ok := optimizer.(OptimizerState)
		if !ok {
			logger.Debug("optimizer has no state dict, resuming weights only")
		}
		ckpt, err := LoadCheckpoint(t.cfg.ResumeFrom, m, state)
		if err != nil {
			return err
		}
		startEpoch = ckpt.Epoch + 1
		t.globalStep = ckpt.GlobalStep
		logger.Info("resumed", "path", t.cfg.ResumeFrom, "epoch", ckpt.Epoch, "step", ckpt.GlobalStep)
	}

	if t.cfg.CheckpointDir != "" && t.run == nil {
		if t.run, err = NewRun(t.cfg.CheckpointDir); err != nil {
			return err
		}
		logger.Info("run started", "id", t.run.ID, "dir", t.run.Dir)
	}

	tape := t.backend.Tape()
	tape.StartRecording()
	defer tape.StopRecording()
	defer tape.Reset()

	for epoch := startEpoch; epoch < t.cfg.MaxEpochs; epoch++ {
		var outputs []StepResult[Backend[B]]
		batchIdx := 0
		for batch := range trainLoader.Iter(ctx) {
			res, err := t.trainingBatch(m, optimizer, batch, batchIdx)
			if err != nil {
				return err
			}
			outputs = append(outputs, res)
			t.globalStep++
			if t.cfg.LogEvery > 0 && batchIdx%t.cfg.LogEvery == 0 {
				logger.Info("train",
					"epoch", epoch, "batch", batchIdx,
					"step", t.globalStep, "loss", float64(res.Loss.Item()))
			}
			batchIdx++
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		epochMetrics := Metrics{"loss": meanLoss(outputs)}
		if ee, ok := m.(TrainingEpochEnder[Backend[B]]); ok {
			mergeMetrics(epochMetrics, ee.TrainingEpochEnd(outputs))
		}

		if valHooks != nil {
			valMetrics, err := t.evalLoop(ctx, valLoader, valHooks.ValidationStep,
				func(outs []StepResult[Backend[B]]) (Metrics, bool) {
					if ve, ok := m.(ValidationEpochEnder[Backend[B]]); ok {
						return ve.ValidationEpochEnd(outs), true
					}
					return nil, false
				}, "val_loss")
			if err != nil {
				return err
			}
			mergeMetrics(epochMetrics, valMetrics)
		}

		logger.Info("epoch", append([]any{"epoch", epoch}, metricArgs(epochMetrics)...)...)

		if t.run != nil {
			ckpt := &Checkpoint[Backend[B]]{
				Model:      m,
				Epoch:      epoch,
				GlobalStep: t.globalStep,
				Loss:       epochMetrics["loss"],
				RunID:      t.run.ID,
				CreatedAt:  time.Now().UTC(),
			}
			if state, ok := optimizer.(OptimizerState); ok {
				ckpt.Optimizer = state
			}
			if err := ckpt.Save(t.run.CheckpointPath(epoch)); err != nil {
				return err
			}
		}
	}
	return nil
}

// trainingBatch runs one optimizer step: the step hook (sharded when
// data-parallel splitting is on), backward, update, tape reset.
func (t *Trainer[B]) trainingBatch(
	m Module[Backend[B]],
	optimizer optim.Optimizer,
	batch data.Batch[Backend[B]],
	batchIdx int,
) (StepResult[Backend[B]], error) {
	var combined StepResult[Backend[B]]

	if n := t.cfg.DataParallel; n > 1 && batch.Size >= n {
		shards := splitBatch(batch, n)
		parts := make([]StepResult[Backend[B]], len(shards))
		parallel.Each(len(shards), func(i int) {
			parts[i] = m.TrainingStep(shards[i], batchIdx)
		})
		if se, ok := m.(TrainingStepEnder[Backend[B]]); ok {
			combined = se.TrainingStepEnd(parts)
		} else {
			combined = averageParts(parts)
		}
	} else {
		combined = m.TrainingStep(batch, batchIdx)
	}

	if combined.Loss == nil {
		return StepResult[Backend[B]]{}, errors.New("train: training step returned no loss")
	}

	grads, err := autodiff.Backward(combined.Loss.Raw(), t.backend)
	if err != nil {
		return StepResult[Backend[B]]{}, err
	}
	optimizer.Step(grads)
	optimizer.ZeroGrad()
	t.backend.Tape().Reset()

	return combined, nil
}

// Test runs the test loop. It is never invoked from Fit, so held-out
// data cannot be consumed by accident; modules without test hooks get
// ErrNoTestHooks.
func (t *Trainer[B]) Test(ctx context.Context, m Module[Backend[B]]) (Metrics, error) {
	th, ok := m.(TestHooks[Backend[B]])
	if !ok {
		return nil, ErrNoTestHooks
	}

	if err := t.prepareData(m); err != nil {
		return nil, err
	}

	loader, err := th.TestLoader()
	if err != nil {
		return nil, fmt.Errorf("train: test loader: %w", err)
	}

	metrics, err := t.evalLoop(ctx, loader, th.TestStep,
		func(outs []StepResult[Backend[B]]) (Metrics, bool) {
			if te, ok := m.(TestEpochEnder[Backend[B]]); ok {
				return te.TestEpochEnd(outs), true
			}
			return nil, false
		}, "test_loss")
	if err != nil {
		return nil, err
	}

	ctxlog.FromContext(ctx).Info("test", metricArgs(metrics)...)
	return metrics, nil
}

// evalLoop runs a validation- or test-style pass with gradient
// recording off, then aggregates: the module's epoch-end hook when
// present, otherwise the mean of every reported metric with the mean
// loss under lossKey.
func (t *Trainer[B]) evalLoop(
	ctx context.Context,
	loader *data.Loader[Backend[B]],
	step func(data.Batch[Backend[B]], int) StepResult[Backend[B]],
	epochEnd func([]StepResult[Backend[B]]) (Metrics, bool),
	lossKey string,
) (Metrics, error) {
	tape := t.backend.Tape()
	wasRecording := tape.Recording()
	tape.StopRecording()
	if wasRecording {
		defer tape.StartRecording()
	}

	evalCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var outputs []StepResult[Backend[B]]
	idx := 0
	for batch := range loader.Iter(evalCtx) {
		outputs = append(outputs, step(batch, idx))
		idx++
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if metrics, ok := epochEnd(outputs); ok {
		return metrics, nil
	}

	metrics := Metrics{lossKey: meanLoss(outputs)}
	sums := Metrics{}
	counts := map[string]int{}
	for _, out := range outputs {
		for name, v := range out.Metrics {
			sums[name] += v
			counts[name]++
		}
	}
	for name, total := range sums {
		metrics[name] = total / float64(counts[name])
	}
	return metrics, nil
}

// averageParts combines data-parallel shard outputs when the module
// has no TrainingStepEnd: losses are averaged through recorded ops so
// backward reaches every shard, metrics are averaged numerically.
func averageParts[B tensor.Backend](parts []StepResult[B]) StepResult[B] {
	loss := parts[0].Loss
	for _, p := range parts[1:] {
		loss = loss.Add(p.Loss)
	}
	loss = loss.MulScalar(1 / float32(len(parts)))

	sums := Metrics{}
	counts := map[string]int{}
	for _, p := range parts {
		for name, v := range p.Metrics {
			sums[name] += v
			counts[name]++
		}
	}
	metrics := Metrics{}
	for name, total := range sums {
		metrics[name] = total / float64(counts[name])
	}
	return StepResult[B]{Loss: loss, Metrics: metrics}
}

func meanLoss[B tensor.Backend](outputs []StepResult[B]) float64 {
	if len(outputs) == 0 {
		return 0
	}
	var total float64
	for _, out := range outputs {
		total += float64(out.Loss.Item())
	}
	return total / float64(len(outputs))
}

func mergeMetrics(dst, src Metrics) {
	for name, v := range src {
		dst[name] = v
	}
}

// metricArgs flattens metrics into sorted slog key/value pairs.
func metricArgs(m Metrics) []any {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	args := make([]any, 0, 2*len(names))
	for _, name := range names {
		args = append(args, name, m[name])
	}
	return args
}
