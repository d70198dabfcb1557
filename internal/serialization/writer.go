package serialization

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"time"
)

// Version is stamped into every written header.
const Version = "0.1.0"

// Writer writes one .lumo file.
type Writer struct {
	path string
	f    *os.File
}

// NewWriter creates the target file.
func NewWriter(path string) (*Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("serialization: create %s: %w", path, err)
	}
	return &Writer{path: path, f: f}, nil
}

// Close closes the underlying file.
func (w *Writer) Close() error { return w.f.Close() }

// WriteStateDict writes a state dictionary with a default header.
func (w *Writer) WriteStateDict(stateDict StateDict, modelType string, metadata map[string]string) error {
	return w.WriteStateDictWithHeader(stateDict, Header{
		ModelType: modelType,
		Metadata:  metadata,
	})
}

// WriteStateDictWithHeader writes a state dictionary under a caller-
// prepared header. Format version, library version, timestamp, tensor
// metas and checksum are filled in here; tensors are laid out in
// sorted-name order so output is deterministic.
func (w *Writer) WriteStateDictWithHeader(stateDict StateDict, header Header) error {
	names := make([]string, 0, len(stateDict))
	for name := range stateDict {
		names = append(names, name)
	}
	sort.Strings(names)

	var data []byte
	header.Tensors = header.Tensors[:0]
	for _, name := range names {
		raw := stateDict[name]
		if pad := (DataAlignment - len(data)%DataAlignment) % DataAlignment; pad != 0 {
			data = append(data, make([]byte, pad)...)
		}
		header.Tensors = append(header.Tensors, TensorMeta{
			Name:   name,
			DType:  dtypeName(raw.DType()),
			Shape:  raw.Shape(),
			Offset: uint64(len(data)),
			Size:   uint64(raw.ByteSize()),
		})
		data = append(data, raw.Data()...)
	}

	sum := sha256.Sum256(data)
	header.Checksum = hex.EncodeToString(sum[:])
	header.FormatVersion = FormatVersion
	header.LumoVersion = Version
	if header.CreatedAt.IsZero() {
		header.CreatedAt = time.Now().UTC()
	}

	headerJSON, err := json.Marshal(header)
	if err != nil {
		return fmt.Errorf("serialization: marshal header: %w", err)
	}

	var fixed [16]byte
	copy(fixed[0:4], Magic)
	binary.LittleEndian.PutUint32(fixed[4:8], FormatVersion)
	binary.LittleEndian.PutUint64(fixed[8:16], uint64(len(headerJSON)))

	for _, chunk := range [][]byte{fixed[:], headerJSON, data} {
		if _, err := w.f.Write(chunk); err != nil {
			return fmt.Errorf("serialization: write %s: %w", w.path, err)
		}
	}
	return nil
}
