// Copyright 2026 Lumo ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package data provides datasets and the batch loaders that feed the
// trainer.
//
// A Dataset is random access over (features, label) samples; a Loader
// turns one into shuffled, batched tensors:
//
//	loader, err := data.NewLoader(ds, backend, data.LoaderConfig{
//	    BatchSize: 64,
//	    Shuffle:   true,
//	})
//	for batch := range loader.Iter(ctx) {
//	    // batch.Inputs, batch.Targets
//	}
package data

import (
	"github.com/lumo-ml/lumo/internal/data"
	"github.com/lumo-ml/lumo/tensor"
)

// Dataset is a random-access collection of (features, label) pairs.
type Dataset = data.Dataset

// Subset views a dataset through an index list.
type Subset = data.Subset

// NewSubset creates a subset over explicit indices.
func NewSubset(ds Dataset, indices []int) *Subset {
	return data.NewSubset(ds, indices)
}

// Split randomly partitions a dataset into train and validation
// subsets with a reproducible permutation.
func Split(ds Dataset, valFraction float64, seed int64) (train, val *Subset, err error) {
	return data.Split(ds, valFraction, seed)
}

// InMemory is a Dataset over parallel feature/label slices.
type InMemory = data.InMemory

// Batch is one loader step: stacked inputs, class targets and the
// number of samples.
type Batch[B tensor.Backend] = data.Batch[B]

// LoaderConfig configures batching. The zero value means batch size
// 32, no shuffling.
type LoaderConfig = data.LoaderConfig

// Loader assembles dataset samples into batched tensors.
type Loader[B tensor.Backend] = data.Loader[B]

// NewLoader creates a loader over a dataset.
func NewLoader[B tensor.Backend](ds Dataset, backend B, cfg LoaderConfig) (*Loader[B], error) {
	return data.NewLoader(ds, backend, cfg)
}

// TextDataset tokenizes text with a tiktoken encoding and serves
// sliding context windows for next-token prediction.
type TextDataset = data.TextDataset

// NewTextDataset tokenizes text in memory.
func NewTextDataset(text, encodingName string, contextSize int) (*TextDataset, error) {
	return data.NewTextDataset(text, encodingName, contextSize)
}

// NewTextDatasetFromFile tokenizes the contents of a file.
func NewTextDatasetFromFile(path, encodingName string, contextSize int) (*TextDataset, error) {
	return data.NewTextDatasetFromFile(path, encodingName, contextSize)
}
