//go:build unix

package ring

import "golang.org/x/sys/unix"

// processAlive reports whether pid is a live process on this host,
// using a signal-0 probe (delivers no signal, only checks existence
// and permission); attach uses it to validate a region's creator-pid
// stamp.
func processAlive(pid int32) bool {
	if pid <= 0 {
		return false
	}
	err := unix.Kill(int(pid), 0)
	return err == nil || err == unix.EPERM
}
