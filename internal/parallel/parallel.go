// Package parallel provides goroutine fan-out helpers shared by the
// CPU backend and the trainer.
package parallel

import (
	"runtime"
	"sync"
)

// Config controls fan-out behavior.
type Config struct {
	Enabled      bool // whether fan-out is enabled at all
	NumWorkers   int  // goroutines to use
	MinChunkSize int  // minimum items per goroutine to amortize overhead
}

// DefaultConfig returns defaults derived from the CPU count.
func DefaultConfig() Config {
	n := runtime.NumCPU()
	return Config{
		Enabled:      n > 1,
		NumWorkers:   n,
		MinChunkSize: 64,
	}
}

// For executes f(i) for i in [0, n), fanning out across workers when
// the config allows and n is large enough. f must be safe to call
// concurrently for distinct i.
func For(n int, f func(i int), cfg Config) {
	if !cfg.Enabled || n < cfg.MinChunkSize {
		for i := 0; i < n; i++ {
			f(i)
		}
		return
	}

	chunk := max((n+cfg.NumWorkers-1)/cfg.NumWorkers, cfg.MinChunkSize)

	var wg sync.WaitGroup
	for start := 0; start < n; start += chunk {
		end := min(start+chunk, n)
		wg.Add(1)
		go func(s, e int) {
			defer wg.Done()
			for i := s; i < e; i++ {
				f(i)
			}
		}(start, end)
	}
	wg.Wait()
}

// ForBatch iterates a batch*inner index space, handing f the
// decomposed pair. Common for per-sample work inside a batch.
func ForBatch(batch, inner int, f func(b, i int), cfg Config) {
	For(batch*inner, func(k int) {
		f(k/inner, k%inner)
	}, cfg)
}

// Each runs f(i) for every i in [0, n) on its own goroutine and waits
// for all of them. Used for coarse-grained work such as data-parallel
// batch shards, where n is small and each call is heavy.
func Each(n int, f func(i int)) {
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer wg.Done()
			f(i)
		}(i)
	}
	wg.Wait()
}
