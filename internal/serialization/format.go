// Package serialization implements the .lumo container used for
// model weights and training checkpoints.
//
// Layout:
//
//	[0:4]   magic "LUMO"
//	[4:8]   format version (uint32 LE)
//	[8:16]  header length (uint64 LE)
//	[16:]   JSON header, then the data section
//
// The data section holds tensor blobs, each aligned to 64 bytes from
// the section start; per-tensor offsets live in the header. The
// header also carries the SHA-256 of the whole data section, so a
// reader can detect truncation or corruption before loading weights.
package serialization

import (
	"time"

	"github.com/lumo-ml/lumo/internal/tensor"
)

const (
	Magic         = "LUMO"
	FormatVersion = 1
	DataAlignment = 64
)

// Header is the JSON header of a .lumo file.
type Header struct {
	FormatVersion  int               `json:"format_version"`
	LumoVersion    string            `json:"lumo_version"`
	ModelType      string            `json:"model_type"`
	CreatedAt      time.Time         `json:"created_at"`
	Tensors        []TensorMeta      `json:"tensors"`
	Metadata       map[string]string `json:"metadata,omitempty"`
	Checksum       string            `json:"checksum"` // hex SHA-256 of the data section
	CheckpointMeta *CheckpointMeta   `json:"checkpoint,omitempty"`
}

// TensorMeta locates one tensor inside the data section.
type TensorMeta struct {
	Name   string `json:"name"`
	DType  string `json:"dtype"`
	Shape  []int  `json:"shape"`
	Offset uint64 `json:"offset"` // from the start of the data section
	Size   uint64 `json:"size"`   // bytes
}

// CheckpointMeta carries training state for checkpoint files.
type CheckpointMeta struct {
	Epoch         int            `json:"epoch"`
	GlobalStep    int64          `json:"global_step"`
	Loss          float64        `json:"loss"`
	OptimizerType string         `json:"optimizer_type"`
	RunID         string         `json:"run_id,omitempty"`
	TrainingMeta  map[string]any `json:"training_meta,omitempty"`
}

// StateDict maps parameter names to raw tensors.
type StateDict = map[string]*tensor.RawTensor

func dtypeName(d tensor.DataType) string { return d.String() }
