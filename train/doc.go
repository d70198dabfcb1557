// Copyright 2026 Lumo ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package train is the public surface of the training-organization
// layer: the Module contract models implement and the Trainer that
// drives them.
//
// # A Module organizes, it does not loop
//
// Research code goes in the module: the network, the loss for one
// batch, which optimizer, which data. Engineering code stays in the
// Trainer: epoch and batch loops, gradient recording and backward,
// optimizer stepping, validation scheduling, data-parallel splitting,
// checkpointing. A minimal module implements three methods on top of
// nn.Module:
//
//	func (m *LitModel) TrainingStep(batch data.Batch[B], batchIdx int) train.StepResult[B] {
//	    logits := m.net.Forward(batch.Inputs)
//	    return train.StepResult[B]{Loss: m.criterion.Forward(logits, batch.Targets)}
//	}
//
//	func (m *LitModel) ConfigureOptimizers() optim.Optimizer {
//	    return optim.NewAdam(m.net.Parameters(), optim.AdamConfig{LR: 1e-3})
//	}
//
//	func (m *LitModel) TrainLoader() (*data.Loader[B], error) { ... }
//
// and hands itself to the Trainer:
//
//	trainer, err := train.NewTrainer(cpu.New(), train.Config{MaxEpochs: 10})
//	if err != nil { ... }
//	err = trainer.Fit(ctx, model)
//
// # Lifecycle
//
// Fit drives the hooks in a fixed order:
//
//	PrepareData            (once per module, if implemented)
//	ConfigureOptimizers
//	TrainLoader
//	ValLoader              (if the validation loop is implemented)
//	for each epoch:
//	    for each batch:
//	        TrainingStep   (per shard under data-parallel splitting)
//	        TrainingStepEnd
//	        backward, optimizer step
//	    TrainingEpochEnd
//	    ValidationStep ... ValidationEpochEnd
//
// Optional hooks are plain interfaces discovered by type assertion;
// implementing one opts in, omitting it costs nothing. The test loop
// is never part of Fit: only an explicit Trainer.Test call runs
// TestStep over TestLoader, so held-out data cannot leak into
// training by accident.
//
// # Loaders built once
//
// Loader hooks may be called more than once across Fit and Test. Wrap
// expensive constructions with LoadersOnce so the work runs a single
// time:
//
//	type LitModel struct {
//	    trainOnce func() (*data.Loader[B], error)
//	}
//
//	m.trainOnce = train.LoadersOnce(m.buildTrainLoader)
//
//	func (m *LitModel) TrainLoader() (*data.Loader[B], error) { return m.trainOnce() }
package train
