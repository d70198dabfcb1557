package parallel

import (
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestForCoversAllIndices(t *testing.T) {
	cfgs := map[string]Config{
		"sequential": {Enabled: false},
		"parallel":   {Enabled: true, NumWorkers: 4, MinChunkSize: 8},
		"tiny chunk": {Enabled: true, NumWorkers: 3, MinChunkSize: 1},
	}

	for name, cfg := range cfgs {
		t.Run(name, func(t *testing.T) {
			const n = 100
			var hits [n]int32
			For(n, func(i int) {
				atomic.AddInt32(&hits[i], 1)
			}, cfg)
			for i, h := range hits {
				assert.Equal(t, int32(1), h, "index %d", i)
			}
		})
	}
}

func TestForZero(t *testing.T) {
	called := false
	For(0, func(int) { called = true }, DefaultConfig())
	assert.False(t, called)
}

func TestForBatchDecomposition(t *testing.T) {
	const batch, inner = 4, 5
	var hits [batch][inner]int32
	ForBatch(batch, inner, func(b, i int) {
		atomic.AddInt32(&hits[b][i], 1)
	}, Config{Enabled: true, NumWorkers: 2, MinChunkSize: 1})

	for b := 0; b < batch; b++ {
		for i := 0; i < inner; i++ {
			assert.Equal(t, int32(1), hits[b][i], "pair (%d,%d)", b, i)
		}
	}
}

func TestEach(t *testing.T) {
	var total atomic.Int64
	Each(8, func(i int) {
		total.Add(int64(i))
	})
	assert.Equal(t, int64(28), total.Load())
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Positive(t, cfg.NumWorkers)
	assert.Positive(t, cfg.MinChunkSize)
}
