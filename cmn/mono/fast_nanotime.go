//go:build mono

// Package mono provides low-level monotonic time used by the profiler
// to measure per-tick latency immune to wall-clock adjustment.
package mono

import (
	_ "unsafe" // for go:linkname
)

// https://pkg.go.dev/runtime#nanotime
//
//go:linkname NanoTime runtime.nanotime
func NanoTime() int64
