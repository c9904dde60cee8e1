//go:build !linux

package ring

// newSharedStorage falls back to a heap-backed region on platforms
// without /dev/shm; the region is then usable only within one process
// (multiple Links/Hubs in the same process still share it correctly).
func newSharedStorage(_ string, size int) (storage, error) {
	return newHeapStorage(size), nil
}
