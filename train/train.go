// Copyright 2026 Lumo ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package train

import (
	"context"
	"log/slog"

	"github.com/lumo-ml/lumo/data"
	"github.com/lumo-ml/lumo/internal/ctxlog"
	"github.com/lumo-ml/lumo/internal/train"
	"github.com/lumo-ml/lumo/nn"
	"github.com/lumo-ml/lumo/tensor"
)

// Module is the required contract: TrainingStep, ConfigureOptimizers
// and TrainLoader on top of nn.Module.
type Module[B tensor.Backend] = train.Module[B]

// Backend is the gradient-recording backend modules train on; the
// Trainer builds it by wrapping a compute backend.
type Backend[B tensor.Backend] = train.Backend[B]

// Metrics is a bag of named scalar results for one step or epoch.
type Metrics = train.Metrics

// StepResult is a step hook's output: the loss plus extra metrics.
type StepResult[B tensor.Backend] = train.StepResult[B]

// Optional lifecycle hooks, discovered by type assertion.
type (
	// DataPreparer runs one-time work before any loader is built.
	DataPreparer = train.DataPreparer

	// ValidationHooks adds the validation loop to every epoch.
	ValidationHooks[B tensor.Backend] = train.ValidationHooks[B]

	// ValidationEpochEnder aggregates validation outputs.
	ValidationEpochEnder[B tensor.Backend] = train.ValidationEpochEnder[B]

	// TestHooks adds the test loop, run only by Trainer.Test.
	TestHooks[B tensor.Backend] = train.TestHooks[B]

	// TestEpochEnder aggregates test outputs.
	TestEpochEnder[B tensor.Backend] = train.TestEpochEnder[B]

	// TrainingStepEnder combines per-shard outputs of one batch under
	// data-parallel splitting.
	TrainingStepEnder[B tensor.Backend] = train.TrainingStepEnder[B]

	// TrainingEpochEnder aggregates the epoch's training outputs.
	TrainingEpochEnder[B tensor.Backend] = train.TrainingEpochEnder[B]
)

// Trainer drives a module through the training lifecycle.
type Trainer[B tensor.Backend] = train.Trainer[B]

// NewTrainer wraps a compute backend and validates the config.
func NewTrainer[B tensor.Backend](compute B, cfg Config) (*Trainer[B], error) {
	return train.NewTrainer(compute, cfg)
}

// ErrNoTestHooks is returned by Trainer.Test for modules without a
// test loop.
var ErrNoTestHooks = train.ErrNoTestHooks

// Config configures a Trainer. The zero value trains one epoch on a
// single shard without checkpointing.
type Config = train.Config

// LoadConfig reads a Config from a YAML file.
func LoadConfig(path string) (Config, error) {
	return train.LoadConfig(path)
}

// LoadersOnce memoizes a loader constructor so it runs a single time.
func LoadersOnce[B tensor.Backend](fn func() (*data.Loader[B], error)) func() (*data.Loader[B], error) {
	return train.LoadersOnce(fn)
}

// WithLogger returns a context whose Fit and Test calls log through
// the given logger instead of slog.Default.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return ctxlog.WithLogger(ctx, logger)
}

// Run is one training run's identity on disk.
type Run = train.Run

// Checkpoint is a full training snapshot written as one .lumo file.
type Checkpoint[B tensor.Backend] = train.Checkpoint[B]

// OptimizerState is the slice of an optimizer a checkpoint records.
type OptimizerState = train.OptimizerState

// LoadCheckpoint restores a checkpoint into a pre-constructed model
// and optimizer.
func LoadCheckpoint[B tensor.Backend](path string, model nn.Module[B], optimizer OptimizerState) (*Checkpoint[B], error) {
	return train.LoadCheckpoint(path, model, optimizer)
}

// LoadFromCheckpoint restores model weights only.
func LoadFromCheckpoint[B tensor.Backend](path string, model nn.Module[B]) error {
	return train.LoadFromCheckpoint(path, model)
}
