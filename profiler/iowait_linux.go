//go:build linux

package profiler

import (
	"sync"
	"time"

	"github.com/lufia/iostat"
)

// hostIOWaitFraction reads a host-level I/O-wait fraction that Stats
// reports as NodeStats.IOWaitFraction, next to the sample-duration-derived
// is_io_heavy signal; IsIOHeavy itself does not use it.
// It is read at most once per
// refreshInterval since iostat.ReadDriveStats does a syscall per call;
// callers treat a stale or failed reading as simply "unavailable".
var (
	ioMu       sync.Mutex
	ioCached   float64
	ioCachedOK bool
	ioLastRead time.Time
)

const refreshInterval = 250 * time.Millisecond

func hostIOWaitFraction() (float64, bool) {
	ioMu.Lock()
	defer ioMu.Unlock()

	if time.Since(ioLastRead) < refreshInterval {
		return ioCached, ioCachedOK
	}
	ioLastRead = time.Now()

	drives, err := iostat.ReadDriveStats()
	if err != nil || len(drives) == 0 {
		ioCachedOK = false
		return 0, false
	}

	var busyUs, totalUs float64
	for _, d := range drives {
		busyUs += float64(d.TotalReadTime.Microseconds() + d.TotalWriteTime.Microseconds())
		totalUs += float64(d.TotalReadTime.Microseconds()+d.TotalWriteTime.Microseconds()) + 1 // avoid div-by-zero
	}
	if totalUs == 0 {
		ioCachedOK = false
		return 0, false
	}
	ioCached = busyUs / totalUs
	ioCachedOK = true
	return ioCached, true
}
