package train

import (
	"fmt"
	"strings"
	"time"

	"github.com/lumo-ml/lumo/internal/nn"
	"github.com/lumo-ml/lumo/internal/serialization"
	"github.com/lumo-ml/lumo/internal/tensor"
)

// OptimizerState is the slice of an optimizer a checkpoint needs.
// The optim package's optimizers satisfy it; the interface lives
// here to avoid an optim -> train dependency.
type OptimizerState interface {
	StateDict() map[string]*tensor.RawTensor
	LoadStateDict(stateDict map[string]*tensor.RawTensor) error
	GetLR() float32
	Name() string
}

const optimizerPrefix = "optimizer."

// Checkpoint is a full training snapshot: model weights, optimizer
// state and progress counters, written as one .lumo file so a run
// can resume exactly where it stopped.
type Checkpoint[B tensor.Backend] struct {
	Model      nn.Module[B]
	Optimizer  OptimizerState // nil saves weights only
	Epoch      int
	GlobalStep int64
	Loss       float64
	RunID      string
	Metadata   map[string]any
	CreatedAt  time.Time
}

// Save writes the checkpoint. Optimizer entries share the model's
// state dict under an "optimizer." prefix.
func (c *Checkpoint[B]) Save(path string) error {
	combined := make(serialization.StateDict)
	for name, raw := range c.Model.StateDict() {
		combined[name] = raw
	}

	optimizerType := ""
	if c.Optimizer != nil {
		optimizerType = c.Optimizer.Name()
		for name, raw := range c.Optimizer.StateDict() {
			combined[optimizerPrefix+name] = raw
		}
	}

	writer, err := serialization.NewWriter(path)
	if err != nil {
		return err
	}
	defer writer.Close()

	header := serialization.Header{
		ModelType: "Checkpoint",
		CreatedAt: c.CreatedAt,
		CheckpointMeta: &serialization.CheckpointMeta{
			Epoch:         c.Epoch,
			GlobalStep:    c.GlobalStep,
			Loss:          c.Loss,
			OptimizerType: optimizerType,
			RunID:         c.RunID,
			TrainingMeta:  c.Metadata,
		},
	}
	if err := writer.WriteStateDictWithHeader(combined, header); err != nil {
		return fmt.Errorf("train: write checkpoint %s: %w", path, err)
	}
	return nil
}

// LoadCheckpoint restores a checkpoint into a pre-constructed model
// and (optionally nil) optimizer with the same architecture and
// configuration as when it was saved.
func LoadCheckpoint[B tensor.Backend](path string, model nn.Module[B], optimizer OptimizerState) (*Checkpoint[B], error) {
	reader, err := serialization.NewReader(path)
	if err != nil {
		return nil, err
	}

	stateDict, err := reader.ReadStateDict()
	if err != nil {
		return nil, err
	}

	modelState := make(serialization.StateDict)
	optimizerState := make(serialization.StateDict)
	for name, raw := range stateDict {
		if rest, ok := strings.CutPrefix(name, optimizerPrefix); ok {
			optimizerState[rest] = raw
			continue
		}
		modelState[name] = raw
	}

	if err := model.LoadStateDict(modelState); err != nil {
		return nil, fmt.Errorf("train: load model state from %s: %w", path, err)
	}
	if optimizer != nil {
		if err := optimizer.LoadStateDict(optimizerState); err != nil {
			return nil, fmt.Errorf("train: load optimizer state from %s: %w", path, err)
		}
	}

	ckpt := &Checkpoint[B]{
		Model:     model,
		Optimizer: optimizer,
		CreatedAt: reader.Header().CreatedAt,
	}
	if meta := reader.Header().CheckpointMeta; meta != nil {
		ckpt.Epoch = meta.Epoch
		ckpt.GlobalStep = meta.GlobalStep
		ckpt.Loss = meta.Loss
		ckpt.RunID = meta.RunID
		ckpt.Metadata = meta.TrainingMeta
	}
	return ckpt, nil
}

// LoadFromCheckpoint restores model weights only, for inference or
// fine-tuning from a finished run.
func LoadFromCheckpoint[B tensor.Backend](path string, model nn.Module[B]) error {
	_, err := LoadCheckpoint(path, model, nil)
	return err
}
