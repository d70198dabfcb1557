package serialization

import (
	"encoding/binary"
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumo-ml/lumo/internal/tensor"
)

func rawFromSlice(t *testing.T, data []float32, shape tensor.Shape) *tensor.RawTensor {
	t.Helper()
	raw, err := tensor.NewRaw(shape, tensor.Float32, tensor.CPU)
	require.NoError(t, err)
	copy(raw.AsFloat32(), data)
	return raw
}

func writeFile(t *testing.T, stateDict StateDict) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "model.lumo")
	w, err := NewWriter(path)
	require.NoError(t, err)
	require.NoError(t, w.WriteStateDict(stateDict, "test", map[string]string{"k": "v"}))
	require.NoError(t, w.Close())
	return path
}

func TestRoundtrip(t *testing.T) {
	intRaw, err := tensor.NewRaw(tensor.Shape{3}, tensor.Int32, tensor.CPU)
	require.NoError(t, err)
	copy(intRaw.AsInt32(), []int32{7, 8, 9})

	stateDict := StateDict{
		"weight": rawFromSlice(t, []float32{1, 2, 3, 4, 5, 6}, tensor.Shape{2, 3}),
		"bias":   rawFromSlice(t, []float32{-1, 0.5}, tensor.Shape{2}),
		"steps":  intRaw,
	}
	path := writeFile(t, stateDict)

	r, err := NewReader(path)
	require.NoError(t, err)

	header := r.Header()
	assert.Equal(t, FormatVersion, header.FormatVersion)
	assert.Equal(t, Version, header.LumoVersion)
	assert.Equal(t, "test", header.ModelType)
	assert.Equal(t, "v", header.Metadata["k"])
	assert.False(t, header.CreatedAt.IsZero())

	loaded, err := r.ReadStateDict()
	require.NoError(t, err)
	require.Len(t, loaded, 3)

	assert.Equal(t, []float32{1, 2, 3, 4, 5, 6}, loaded["weight"].AsFloat32())
	assert.True(t, loaded["weight"].Shape().Equal(tensor.Shape{2, 3}))
	assert.Equal(t, []float32{-1, 0.5}, loaded["bias"].AsFloat32())
	assert.Equal(t, []int32{7, 8, 9}, loaded["steps"].AsInt32())
}

func TestTensorAlignment(t *testing.T) {
	stateDict := StateDict{
		"a": rawFromSlice(t, []float32{1}, tensor.Shape{1}),
		"b": rawFromSlice(t, []float32{2}, tensor.Shape{1}),
	}
	path := writeFile(t, stateDict)

	r, err := NewReader(path)
	require.NoError(t, err)
	for _, meta := range r.Header().Tensors {
		assert.Zero(t, meta.Offset%DataAlignment, "tensor %q offset %d", meta.Name, meta.Offset)
	}
}

func TestDeterministicOutput(t *testing.T) {
	stateDict := StateDict{
		"z": rawFromSlice(t, []float32{1}, tensor.Shape{1}),
		"a": rawFromSlice(t, []float32{2}, tensor.Shape{1}),
	}
	path := writeFile(t, stateDict)

	r, err := NewReader(path)
	require.NoError(t, err)
	metas := r.Header().Tensors
	require.Len(t, metas, 2)
	// Sorted by name regardless of map order.
	assert.Equal(t, "a", metas[0].Name)
	assert.Equal(t, "z", metas[1].Name)
}

func TestBadMagic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.lumo")
	require.NoError(t, os.WriteFile(path, []byte("NOPExxxxxxxxxxxxxxxx"), 0o644))

	_, err := NewReader(path)
	assert.ErrorIs(t, err, ErrBadMagic)
}

func TestTruncatedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "short.lumo")
	require.NoError(t, os.WriteFile(path, []byte("LU"), 0o644))

	_, err := NewReader(path)
	assert.ErrorIs(t, err, ErrTruncated)
}

func TestChecksumDetectsCorruption(t *testing.T) {
	path := writeFile(t, StateDict{
		"weight": rawFromSlice(t, []float32{1, 2, 3, 4}, tensor.Shape{4}),
	})

	buf, err := os.ReadFile(path)
	require.NoError(t, err)
	// Flip a bit in the last byte, inside the data section.
	buf[len(buf)-1] ^= 0xFF
	require.NoError(t, os.WriteFile(path, buf, 0o644))

	_, err = NewReader(path)
	assert.ErrorIs(t, err, ErrChecksum)
}

func TestHeaderLengthOverflowRejected(t *testing.T) {
	// A header length near 2^64 makes 16+headerLen wrap; the reader
	// must report truncation, not index past the buffer.
	for _, headerLen := range []uint64{math.MaxUint64 - 15, math.MaxUint64, 1 << 60} {
		buf := make([]byte, 16)
		copy(buf, Magic)
		binary.LittleEndian.PutUint32(buf[4:8], FormatVersion)
		binary.LittleEndian.PutUint64(buf[8:16], headerLen)

		path := filepath.Join(t.TempDir(), "overflow.lumo")
		require.NoError(t, os.WriteFile(path, buf, 0o644))

		_, err := NewReader(path)
		assert.ErrorIs(t, err, ErrTruncated, "headerLen %d", headerLen)
	}
}

func TestTensorOffsetOverflowRejected(t *testing.T) {
	path := writeFile(t, StateDict{
		"weight": rawFromSlice(t, []float32{1, 2, 3, 4}, tensor.Shape{4}),
	})

	// Rewrite the header with a tensor offset near 2^64 so offset+size
	// wraps. The data section is untouched, so the checksum still
	// passes and the bounds check alone must catch it.
	buf, err := os.ReadFile(path)
	require.NoError(t, err)
	headerLen := binary.LittleEndian.Uint64(buf[8:16])

	var header Header
	require.NoError(t, json.Unmarshal(buf[16:16+headerLen], &header))
	require.Len(t, header.Tensors, 1)
	header.Tensors[0].Offset = math.MaxUint64 - 8

	newHeader, err := json.Marshal(header)
	require.NoError(t, err)
	out := append([]byte{}, buf[:8]...)
	out = binary.LittleEndian.AppendUint64(out, uint64(len(newHeader)))
	out = append(out, newHeader...)
	out = append(out, buf[16+headerLen:]...)
	require.NoError(t, os.WriteFile(path, out, 0o644))

	r, err := NewReader(path)
	require.NoError(t, err)
	_, err = r.ReadStateDict()
	assert.ErrorIs(t, err, ErrTruncated)
}

func TestFutureVersionRejected(t *testing.T) {
	path := writeFile(t, StateDict{
		"weight": rawFromSlice(t, []float32{1}, tensor.Shape{1}),
	})

	buf, err := os.ReadFile(path)
	require.NoError(t, err)
	buf[4] = 0xFF // bump the format version far past anything supported
	require.NoError(t, os.WriteFile(path, buf, 0o644))

	_, err = NewReader(path)
	assert.ErrorIs(t, err, ErrVersion)
}
