// Package ring implements the shared ring buffer primitive underneath
// Link and Hub: a fixed-capacity, power-of-two circular buffer placed
// in a region of memory that may be mapped into more than one process,
// with a monotonic write index and either a single reader cursor (Link)
// or a per-reader cursor table (Hub).
//
// Layout is header-then-cells and process-position-independent: the
// header carries only plain integer fields (no absolute pointers), and
// every field is read and written through sync/atomic directly on the
// mapped bytes -- a language-level lock can't be shared across an
// address-space boundary.
package ring

import (
	"os"
	"sync/atomic"
	"time"
	"unsafe"

	"github.com/horus-robotics/horus/cmn/cos"
)

const (
	magic   uint32 = 0xB055A17E
	version uint32 = 1
)

// Header lifecycle states, CAS-gated in attach() below.
const (
	stateUninit       uint32 = 0
	stateInitializing uint32 = 1
	stateReady        uint32 = 2
	stateResetting    uint32 = 3
)

// regionHeader is the region's fixed-size POD metadata block, mapped
// directly onto the first headerSize bytes of the region's storage --
// the same bytes whether that storage is a /dev/shm mmap shared by
// several processes or a single process's heap fallback. A process
// other than the creator observes this struct's fields by mapping the
// same file and reading through the same atomic operations; there is
// no process-local shadow copy.
type regionHeader struct {
	Magic      uint32
	Version    uint32
	Capacity   uint32
	CellSize   uint32
	MaxReaders uint32
	State      uint32 // stateUninit/Initializing/Ready/Resetting
	Generation uint32
	CreatorPID int32

	Head int64 // monotonic write index; atomic access only

	ProducerTaken uint32 // Link role enforcement, 0/1
	ConsumerTaken uint32
	ProducerPID   int32 // role owners, validated when a role claim is contested
	ConsumerPID   int32
}

const headerSize = int(unsafe.Sizeof(regionHeader{}))

// cursorSlot is one entry of the per-reader cursor table, stored
// immediately after the header in the region's byte layout.
type cursorSlot struct {
	InUse  uint32
	_      uint32
	Cursor int64
	Pid    int32
	_      uint32
}

const cursorSlotSize = int(unsafe.Sizeof(cursorSlot{}))

func headerPtr(buf []byte) *regionHeader {
	return (*regionHeader)(unsafe.Pointer(&buf[0]))
}

func cursorPtr(buf []byte, i int) *cursorSlot {
	off := headerSize + i*cursorSlotSize
	return (*cursorSlot)(unsafe.Pointer(&buf[off]))
}

func cellsOffset(maxReaders int) int { return headerSize + maxReaders*cursorSlotSize }

func regionSize(capacity, cellSize, maxReaders int) int {
	return cellsOffset(maxReaders) + capacity*cellSize
}

// attach claims or joins the region at h/cursors. A freshly zeroed
// region (State == stateUninit, the case right after mmap of a
// brand-new /dev/shm file) is initialized by whichever caller -- in
// this process or another -- wins the CAS on State. A region already
// in stateReady is joined as-is if its recorded creator process is
// still alive; if the pid stamp shows the creator has crashed, the
// region is reset (bumping Generation) by whichever caller wins a
// second CAS, so a stale region left behind by a dead process is
// reclaimed by the next opener instead of leaking forever.
func attach(h *regionHeader, cursors []*cursorSlot, capacity, cellSize, maxReaders int) error {
	for {
		switch atomic.LoadUint32(&h.State) {
		case stateUninit:
			if atomic.CompareAndSwapUint32(&h.State, stateUninit, stateInitializing) {
				initRegion(h, cursors, capacity, cellSize, maxReaders, 1)
				return nil
			}
		case stateInitializing, stateResetting:
			time.Sleep(time.Millisecond)
		case stateReady:
			if err := matchesCapacity(h, capacity, cellSize); err != nil {
				return err
			}
			if processAlive(atomic.LoadInt32(&h.CreatorPID)) {
				return nil
			}
			if atomic.CompareAndSwapUint32(&h.State, stateReady, stateResetting) {
				gen := atomic.LoadUint32(&h.Generation) + 1
				initRegion(h, cursors, capacity, cellSize, maxReaders, gen)
				return nil
			}
		default:
			return cos.WrapIO("ring.attach", errCorruptHeader)
		}
	}
}

// initRegion (re)initializes a region that this caller has exclusive
// rights to populate (a fresh region, or one whose dead creator it just
// claimed via the stateResetting CAS). The final atomic store of
// h.State publishes every preceding plain-field write: per the Go
// memory model, an atomic Load that observes this Store happens-after
// everything sequenced before it, so another process's attach() call
// never observes Capacity/CellSize/CreatorPID mid-write.
func initRegion(h *regionHeader, cursors []*cursorSlot, capacity, cellSize, maxReaders int, generation uint32) {
	atomic.StoreInt64(&h.Head, 0)
	for _, c := range cursors {
		atomic.StoreUint32(&c.InUse, 0)
		atomic.StoreInt64(&c.Cursor, 0)
		atomic.StoreInt32(&c.Pid, 0)
	}
	atomic.StoreUint32(&h.ProducerTaken, 0)
	atomic.StoreUint32(&h.ConsumerTaken, 0)
	atomic.StoreInt32(&h.ProducerPID, 0)
	atomic.StoreInt32(&h.ConsumerPID, 0)
	h.Capacity = uint32(capacity)
	h.CellSize = uint32(cellSize)
	h.MaxReaders = uint32(maxReaders)
	h.Version = version
	atomic.StoreInt32(&h.CreatorPID, int32(os.Getpid()))
	atomic.StoreUint32(&h.Generation, generation)
	atomic.StoreUint32(&h.Magic, magic)
	atomic.StoreUint32(&h.State, stateReady)
}

// matchesCapacity implements create_or_open's "subsequent callers that
// disagree fail with CapacityMismatch" rule.
func matchesCapacity(h *regionHeader, capacity, cellSize int) error {
	if int(h.Capacity) != capacity || int(h.CellSize) != cellSize {
		return &cos.ErrCapacityMismatch{
			Want: capacity, WantCell: cellSize,
			Have: int(h.Capacity), HaveCell: int(h.CellSize),
		}
	}
	return nil
}
