package data

import (
	"fmt"
	"os"

	"github.com/pkoukk/tiktoken-go"

	"github.com/lumo-ml/lumo/internal/tensor"
)

// TextDataset turns a tokenized corpus into next-token prediction
// samples: features are a sliding window of contextSize token IDs
// scaled into [0, 1) by the vocabulary size, the label is the token
// that follows the window.
//
// Tokenization happens once at construction, which is why text
// corpora belong in the data-preparation hook rather than a loader
// hook.
type TextDataset struct {
	tokens      []int32
	contextSize int
	vocabSize   int
}

// NewTextDataset tokenizes text with the named tiktoken encoding
// ("cl100k_base", "p50k_base", ...).
func NewTextDataset(text, encodingName string, contextSize int) (*TextDataset, error) {
	if contextSize <= 0 {
		return nil, fmt.Errorf("data: context size %d", contextSize)
	}
	enc, err := tiktoken.GetEncoding(encodingName)
	if err != nil {
		return nil, fmt.Errorf("data: load encoding %q: %w", encodingName, err)
	}

	ids := enc.Encode(text, nil, nil)
	if len(ids) <= contextSize {
		return nil, fmt.Errorf("data: corpus has %d tokens, need more than %d", len(ids), contextSize)
	}

	tokens := make([]int32, len(ids))
	vocab := 0
	for i, id := range ids {
		tokens[i] = int32(id)
		if id >= vocab {
			vocab = id + 1
		}
	}

	return &TextDataset{tokens: tokens, contextSize: contextSize, vocabSize: vocab}, nil
}

// NewTextDatasetFromFile reads a corpus file and tokenizes it.
func NewTextDatasetFromFile(path, encodingName string, contextSize int) (*TextDataset, error) {
	text, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("data: read corpus %s: %w", path, err)
	}
	return NewTextDataset(string(text), encodingName, contextSize)
}

// Len returns the number of context windows.
func (d *TextDataset) Len() int { return len(d.tokens) - d.contextSize }

// SampleShape returns [contextSize].
func (d *TextDataset) SampleShape() tensor.Shape { return tensor.Shape{d.contextSize} }

// VocabSize returns one past the highest token ID seen in the corpus.
func (d *TextDataset) VocabSize() int { return d.vocabSize }

// At fills the scaled context window ending before token
// i+contextSize and returns that token as the label.
func (d *TextDataset) At(i int, dst []float32) int32 {
	scale := 1 / float32(d.vocabSize)
	for j := 0; j < d.contextSize; j++ {
		dst[j] = float32(d.tokens[i+j]) * scale
	}
	return d.tokens[i+d.contextSize]
}
