package batch

import "runtime"

// maxAuto caps the automatically chosen worker count
const maxAuto = 32

// OptimalConcurrency picks a worker count for I/O bound scraping: a few
// workers per CPU, bounded so the per-host rate limiter is not starved.
func OptimalConcurrency() int {
	n := runtime.NumCPU() * 3
	if n > maxAuto {
		n = maxAuto
	}
	if n < 1 {
		n = 1
	}
	return n
}
