// Package autodiff implements tape-based reverse-mode automatic
// differentiation as a decorator over any tensor.Backend.
//
// While recording is on, every differentiable operation appends an
// entry holding its inputs and a backward closure. Backward walks the
// tape in reverse, feeding each closure the gradient of its output
// and accumulating per-input gradients into a map keyed by RawTensor.
package autodiff

import (
	"sync"

	"github.com/lumo-ml/lumo/internal/tensor"
)

// accumulator adds a gradient contribution for one input tensor.
type accumulator func(input, grad *tensor.RawTensor)

type entry struct {
	output   *tensor.RawTensor
	backward func(grad *tensor.RawTensor, acc accumulator)
}

// Tape records the operations of a forward pass. Safe for concurrent
// recording: data-parallel shards share one tape.
type Tape struct {
	mu        sync.Mutex
	recording bool
	entries   []entry
}

// StartRecording turns recording on. Must be called before the
// forward pass whose gradients are wanted.
func (t *Tape) StartRecording() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.recording = true
}

// StopRecording turns recording off. Forward passes while stopped
// (validation, test, inference) cost nothing.
func (t *Tape) StopRecording() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.recording = false
}

// Recording reports whether the tape is currently recording.
func (t *Tape) Recording() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.recording
}

// Reset discards all recorded entries. Call after each optimizer step
// so the graph from the previous batch does not leak.
func (t *Tape) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries = t.entries[:0]
}

// Len returns the number of recorded entries.
func (t *Tape) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}

// RecordCustom appends an entry with a caller-supplied backward
// closure. Used for fused operations (e.g. softmax cross-entropy)
// whose gradient is cheaper computed as one piece.
func (t *Tape) RecordCustom(output *tensor.RawTensor, backward func(grad *tensor.RawTensor, acc func(input, grad *tensor.RawTensor))) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.recording {
		return
	}
	t.entries = append(t.entries, entry{
		output: output,
		backward: func(grad *tensor.RawTensor, acc accumulator) {
			backward(grad, acc)
		},
	})
}

func (t *Tape) record(output *tensor.RawTensor, backward func(grad *tensor.RawTensor, acc accumulator)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.recording {
		return
	}
	t.entries = append(t.entries, entry{output: output, backward: backward})
}

// snapshot returns the recorded entries in order.
func (t *Tape) snapshot() []entry {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]entry, len(t.entries))
	copy(out, t.entries)
	return out
}
