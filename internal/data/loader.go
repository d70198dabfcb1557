package data

import (
	"context"
	"fmt"
	"math/rand"
	"sync/atomic"

	"github.com/lumo-ml/lumo/internal/tensor"
)

// Batch is one step's worth of samples on a backend.
type Batch[B tensor.Backend] struct {
	Inputs  *tensor.Tensor[float32, B] // [size, sampleShape...]
	Targets *tensor.Tensor[int32, B]   // [size]
	Size    int
}

// LoaderConfig controls batching.
type LoaderConfig struct {
	BatchSize int   // default 32
	Shuffle   bool  // reshuffle each epoch
	DropLast  bool  // drop a trailing short batch
	Seed      int64 // shuffle seed; epoch number is mixed in
}

// Loader assembles dataset samples into batches on a backend. One
// background goroutine prefetches batches ahead of the consumer.
type Loader[B tensor.Backend] struct {
	ds      Dataset
	backend B
	cfg     LoaderConfig
	epoch   atomic.Int64
}

// NewLoader creates a loader.
func NewLoader[B tensor.Backend](ds Dataset, backend B, cfg LoaderConfig) (*Loader[B], error) {
	if cfg.BatchSize == 0 {
		cfg.BatchSize = 32
	}
	if cfg.BatchSize < 0 {
		return nil, fmt.Errorf("data: batch size %d", cfg.BatchSize)
	}
	if ds.Len() == 0 {
		return nil, fmt.Errorf("data: empty dataset")
	}
	return &Loader[B]{ds: ds, backend: backend, cfg: cfg}, nil
}

// BatchSize returns the configured batch size.
func (l *Loader[B]) BatchSize() int { return l.cfg.BatchSize }

// NumBatches returns the number of batches one pass yields.
func (l *Loader[B]) NumBatches() int {
	n := l.ds.Len() / l.cfg.BatchSize
	if !l.cfg.DropLast && l.ds.Len()%l.cfg.BatchSize != 0 {
		n++
	}
	return n
}

// Iter starts one pass over the dataset. Batches arrive on the
// returned channel, which closes when the pass finishes or the
// context is canceled. Each call counts as a new epoch for
// shuffling purposes.
func (l *Loader[B]) Iter(ctx context.Context) <-chan Batch[B] {
	epoch := l.epoch.Add(1)

	order := make([]int, l.ds.Len())
	for i := range order {
		order[i] = i
	}
	if l.cfg.Shuffle {
		rng := rand.New(rand.NewSource(l.cfg.Seed + epoch))
		rng.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })
	}

	out := make(chan Batch[B], 2)
	go func() {
		defer close(out)
		sampleShape := l.ds.SampleShape()
		sampleLen := sampleShape.NumElements()

		for start := 0; start < len(order); start += l.cfg.BatchSize {
			end := min(start+l.cfg.BatchSize, len(order))
			size := end - start
			if size < l.cfg.BatchSize && l.cfg.DropLast {
				return
			}

			batchShape := append(tensor.Shape{size}, sampleShape...)
			inputs := tensor.Zeros[float32](batchShape, l.backend)
			targets := tensor.Zeros[int32](tensor.Shape{size}, l.backend)
			inputData, targetData := inputs.Data(), targets.Data()
			for i := 0; i < size; i++ {
				targetData[i] = l.ds.At(order[start+i], inputData[i*sampleLen:(i+1)*sampleLen])
			}

			select {
			case out <- Batch[B]{Inputs: inputs, Targets: targets, Size: size}:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}
