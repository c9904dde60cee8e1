// Package sys provides host sizing used to size the executor's
// Background thread pool (CPU count minus the hot threads).
package sys

import (
	"os"
	"runtime"

	"github.com/horus-robotics/horus/cmn/nlog"
)

const maxProcsEnvVar = "GOMAXPROCS"

var numCPU = runtime.NumCPU()

func NumCPU() int { return numCPU }

// SetMaxProcs sets GOMAXPROCS = NumCPU unless already overridden via the
// Go environment.
func SetMaxProcs() {
	if val, exists := os.LookupEnv(maxProcsEnvVar); exists {
		nlog.Warningf("GOMAXPROCS is set via Go environment %q: %q", maxProcsEnvVar, val)
		return
	}
	maxprocs := runtime.GOMAXPROCS(0)
	if maxprocs > numCPU {
		nlog.Warningf("reducing GOMAXPROCS (%d) to %d (num CPUs)", maxprocs, numCPU)
		runtime.GOMAXPROCS(numCPU)
	}
}

// BackgroundPoolSize returns the Background tier's thread-pool size:
// CPU count minus the two cooperative hot threads (UltraFast, Fast),
// floored at 1.
func BackgroundPoolSize() int {
	if n := numCPU - 2; n > 0 {
		return n
	}
	return 1
}
