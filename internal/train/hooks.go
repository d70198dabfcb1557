// Package train implements the training-organization layer: the
// module contract users implement to structure model code, and the
// Trainer that drives it.
//
// A module declares WHAT to compute (the forward pass, the loss for
// one batch, which optimizer, which data); the Trainer owns HOW: the
// epoch and batch loops, gradient recording and backward, optimizer
// stepping, validation scheduling, data-parallel batch splitting and
// checkpointing.
package train

import (
	"github.com/lumo-ml/lumo/internal/data"
	"github.com/lumo-ml/lumo/internal/nn"
	"github.com/lumo-ml/lumo/internal/optim"
	"github.com/lumo-ml/lumo/internal/tensor"
)

// Metrics is a bag of named scalar results for one step or epoch.
type Metrics map[string]float64

// StepResult is what a step hook returns: the loss tensor the
// trainer differentiates, plus any extra scalars to aggregate and
// log.
type StepResult[B tensor.Backend] struct {
	Loss    *tensor.Tensor[float32, B]
	Metrics Metrics
}

// Module is the required contract. Implementing it organizes model
// code into the pieces the Trainer knows how to drive:
//
//	type LitModel struct{ ... }
//
//	func (m *LitModel) TrainingStep(batch data.Batch[B], batchIdx int) train.StepResult[B] { ... }
//	func (m *LitModel) ConfigureOptimizers() optim.Optimizer { ... }
//	func (m *LitModel) TrainLoader() (*data.Loader[B], error) { ... }
//
// plus the nn.Module methods for the forward pass and serialization.
// Everything else — device placement, the loops, backward — is the
// Trainer's job, not the module's.
type Module[B tensor.Backend] interface {
	nn.Module[B]

	// TrainingStep computes the loss for one batch. Under
	// data-parallel execution the batch is a shard of the full batch.
	TrainingStep(batch data.Batch[B], batchIdx int) StepResult[B]

	// ConfigureOptimizers builds the optimizer over the module's
	// parameters. Called once per Fit, after data preparation.
	ConfigureOptimizers() optim.Optimizer

	// TrainLoader builds the training loader. Wrap the constructor
	// with LoadersOnce when building it is expensive.
	TrainLoader() (*data.Loader[B], error)
}

// DataPreparer is implemented by modules that need one-time work
// before any loader is built: downloading, tokenizing, splitting,
// writing to disk. The Trainer calls it exactly once per module,
// never once per epoch or per worker.
type DataPreparer interface {
	PrepareData() error
}

// ValidationHooks adds the validation loop. When implemented, the
// Trainer runs it at the end of every training epoch with gradient
// recording off.
type ValidationHooks[B tensor.Backend] interface {
	ValidationStep(batch data.Batch[B], batchIdx int) StepResult[B]
	ValLoader() (*data.Loader[B], error)
}

// ValidationEpochEnder aggregates the epoch's validation outputs.
// Without it the Trainer averages each metric and reports the mean
// loss as "val_loss".
type ValidationEpochEnder[B tensor.Backend] interface {
	ValidationEpochEnd(outputs []StepResult[B]) Metrics
}

// TestHooks adds the test loop. The Trainer never runs it from Fit;
// only an explicit Trainer.Test call does, so test data cannot leak
// into training by accident.
type TestHooks[B tensor.Backend] interface {
	TestStep(batch data.Batch[B], batchIdx int) StepResult[B]
	TestLoader() (*data.Loader[B], error)
}

// TestEpochEnder aggregates test outputs, like ValidationEpochEnder.
type TestEpochEnder[B tensor.Backend] interface {
	TestEpochEnd(outputs []StepResult[B]) Metrics
}

// TrainingStepEnder combines the per-shard outputs of one batch when
// data-parallel splitting is on. Implement it for losses that need
// the whole batch at once (e.g. a softmax over all samples); without
// it the Trainer averages the shard losses.
type TrainingStepEnder[B tensor.Backend] interface {
	TrainingStepEnd(parts []StepResult[B]) StepResult[B]
}

// TrainingEpochEnder aggregates the epoch's training outputs.
type TrainingEpochEnder[B tensor.Backend] interface {
	TrainingEpochEnd(outputs []StepResult[B]) Metrics
}
