// Package parallel splits row-wise loops across goroutines.
package parallel

import (
	"sync"

	"github.com/born-ml/param/internal/envconfig"
)

// Config controls how a loop is split.
type Config struct {
	Workers int // Maximum goroutines; 1 or less runs inline.
	MinWork int // Minimum work units per goroutine.
}

// DefaultConfig uses BORN_NUM_THREADS workers.
func DefaultConfig() Config {
	return Config{
		Workers: envconfig.NumThreads(),
		MinWork: 1 << 14,
	}
}

// chunks returns how many ranges [0, n) is split into.
func (c Config) chunks(n, rowCost int) int {
	if n <= 0 || c.Workers <= 1 {
		return 1
	}
	rowCost = max(rowCost, 1)
	byWork := max(n*rowCost/max(c.MinWork, 1), 1)
	return min(c.Workers, byWork, n)
}

// Rows calls f on disjoint ranges that together cover [0, n) and returns
// when every call has finished. rowCost is the work of one row and decides
// how many goroutines are worth starting.
func Rows(n, rowCost int, cfg Config, f func(start, end int)) {
	if n <= 0 {
		return
	}
	k := cfg.chunks(n, rowCost)
	if k == 1 {
		f(0, n)
		return
	}

	size := (n + k - 1) / k
	var wg sync.WaitGroup
	for start := 0; start < n; start += size {
		end := min(start+size, n)
		wg.Add(1)
		go func() {
			defer wg.Done()
			f(start, end)
		}()
	}
	wg.Wait()
}
