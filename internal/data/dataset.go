// Package data provides datasets and batch loaders feeding the
// trainer.
package data

import (
	"fmt"
	"math/rand"

	"github.com/lumo-ml/lumo/internal/tensor"
)

// Dataset is a random-access collection of (features, label) pairs.
// Features are float32 and labels are int32 class indices.
type Dataset interface {
	// Len returns the number of samples.
	Len() int

	// SampleShape returns the shape of one sample's features.
	SampleShape() tensor.Shape

	// At writes sample i's features into dst (len SampleShape's
	// element count) and returns its label.
	At(i int, dst []float32) int32
}

// Subset views a dataset through an index list.
type Subset struct {
	ds      Dataset
	indices []int
}

// NewSubset creates a subset over explicit indices.
func NewSubset(ds Dataset, indices []int) *Subset {
	return &Subset{ds: ds, indices: indices}
}

// Len returns the subset size.
func (s *Subset) Len() int { return len(s.indices) }

// SampleShape returns the parent's sample shape.
func (s *Subset) SampleShape() tensor.Shape { return s.ds.SampleShape() }

// At delegates through the index list.
func (s *Subset) At(i int, dst []float32) int32 { return s.ds.At(s.indices[i], dst) }

// Split randomly partitions a dataset into train and validation
// subsets. valFraction is the validation share in (0, 1); the seed
// makes the permutation reproducible.
func Split(ds Dataset, valFraction float64, seed int64) (train, val *Subset, err error) {
	if valFraction <= 0 || valFraction >= 1 {
		return nil, nil, fmt.Errorf("data: valFraction %v outside (0, 1)", valFraction)
	}
	n := ds.Len()
	perm := rand.New(rand.NewSource(seed)).Perm(n)
	nVal := int(float64(n) * valFraction)
	if nVal == 0 || nVal == n {
		return nil, nil, fmt.Errorf("data: split of %d samples at %v leaves an empty side", n, valFraction)
	}
	return NewSubset(ds, perm[nVal:]), NewSubset(ds, perm[:nVal]), nil
}

// InMemory is a Dataset over parallel feature/label slices. Used by
// tests and small examples.
type InMemory struct {
	Features [][]float32
	Labels   []int32
	Shape    tensor.Shape
}

// Len returns the number of samples.
func (m *InMemory) Len() int { return len(m.Features) }

// SampleShape returns the configured per-sample shape.
func (m *InMemory) SampleShape() tensor.Shape { return m.Shape }

// At copies the stored features.
func (m *InMemory) At(i int, dst []float32) int32 {
	copy(dst, m.Features[i])
	return m.Labels[i]
}
