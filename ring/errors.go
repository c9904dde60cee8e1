package ring

import "errors"

var (
	errInterfaceType = errors.New("T must be a concrete type, not an interface")
	errNotPowerOfTwo = errors.New("capacity must be a power of two")
	errNoCursorSlots = errors.New("reader cursor table is full")
	errCorruptHeader = errors.New("region header in an unrecognized state")
)
