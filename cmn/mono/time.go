//go:build !mono

// Package mono provides low-level monotonic time used by the profiler
// to measure per-tick latency immune to wall-clock adjustment.
package mono

import "time"

// NanoTime returns a monotonic nanosecond counter. On the default build
// (no "mono" tag) this rides on time.Now()'s monotonic reading, which
// Go guarantees is included and subtraction-safe as of Go 1.9: the
// value is the time elapsed since package init, measured by time.Since.
func NanoTime() int64 { return int64(time.Since(epoch)) }

var epoch = time.Now()
