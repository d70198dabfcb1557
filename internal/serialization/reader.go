package serialization

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"

	"github.com/lumo-ml/lumo/internal/tensor"
)

// Reader reads one .lumo file. The whole file is loaded and the data
// checksum verified up front, so ReadStateDict cannot observe a
// corrupt payload.
type Reader struct {
	header Header
	data   []byte
}

// NewReader opens and validates a .lumo file.
func NewReader(path string) (*Reader, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("serialization: read %s: %w", path, err)
	}
	if len(buf) < 16 {
		return nil, ErrTruncated
	}
	if string(buf[0:4]) != Magic {
		return nil, ErrBadMagic
	}
	if v := binary.LittleEndian.Uint32(buf[4:8]); v > FormatVersion {
		return nil, fmt.Errorf("%w: %d", ErrVersion, v)
	}

	// Compare against the remaining length rather than 16+headerLen,
	// which wraps for a corrupt length field.
	headerLen := binary.LittleEndian.Uint64(buf[8:16])
	if headerLen > uint64(len(buf))-16 {
		return nil, ErrTruncated
	}

	var header Header
	if err := json.Unmarshal(buf[16:16+headerLen], &header); err != nil {
		return nil, fmt.Errorf("serialization: decode header: %w", err)
	}

	data := buf[16+headerLen:]
	sum := sha256.Sum256(data)
	if hex.EncodeToString(sum[:]) != header.Checksum {
		return nil, ErrChecksum
	}

	return &Reader{header: header, data: data}, nil
}

// Header returns the decoded file header.
func (r *Reader) Header() Header { return r.header }

// ReadStateDict materializes every tensor as a CPU RawTensor.
func (r *Reader) ReadStateDict() (StateDict, error) {
	out := make(StateDict, len(r.header.Tensors))
	for _, meta := range r.header.Tensors {
		dtype, ok := tensor.ParseDataType(meta.DType)
		if !ok {
			return nil, fmt.Errorf("serialization: tensor %q: unknown dtype %q", meta.Name, meta.DType)
		}
		if meta.Offset > uint64(len(r.data)) || meta.Size > uint64(len(r.data))-meta.Offset {
			return nil, fmt.Errorf("serialization: tensor %q: %w", meta.Name, ErrTruncated)
		}
		end := meta.Offset + meta.Size
		raw, err := tensor.NewRaw(meta.Shape, dtype, tensor.CPU)
		if err != nil {
			return nil, fmt.Errorf("serialization: tensor %q: %w", meta.Name, err)
		}
		if raw.ByteSize() != int(meta.Size) {
			return nil, fmt.Errorf("serialization: tensor %q: size %d does not match shape %v",
				meta.Name, meta.Size, meta.Shape)
		}
		copy(raw.Data(), r.data[meta.Offset:end])
		out[meta.Name] = raw
	}
	return out, nil
}
