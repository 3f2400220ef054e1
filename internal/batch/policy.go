package batch

import "runtime"

// Policy derives a worker count from the available parallelism:
// clamp(available/Divisor, Min, Max).
type Policy struct {
	Divisor int
	Min     int
	Max     int
}

var (
	// TransferPolicy sizes download and extraction batches.
	TransferPolicy = Policy{Divisor: 4, Min: 2, Max: 8}

	// CorePolicy sizes the core count handed to each processing step.
	CorePolicy = Policy{Divisor: 2, Min: 1, Max: 8}
)

// Size returns the worker count for the given available parallelism.
func (p Policy) Size(available int) int {
	divisor := p.Divisor
	if divisor <= 0 {
		divisor = 1
	}
	lo := p.Min
	if lo < 1 {
		lo = 1
	}
	hi := p.Max
	if hi < lo {
		hi = lo
	}

	n := available / divisor
	if n < lo {
		n = lo
	}
	if n > hi {
		n = hi
	}
	return n
}

// Workers returns override when it is positive and otherwise sizes the pool
// from runtime.NumCPU.
func (p Policy) Workers(override int) int {
	if override > 0 {
		return override
	}
	return p.Size(runtime.NumCPU())
}
