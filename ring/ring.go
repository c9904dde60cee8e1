package ring

import (
	"os"
	"reflect"
	"unsafe"

	"github.com/horus-robotics/horus/cmn/cos"
	"github.com/horus-robotics/horus/cmn/debug"
)

// Ring is the generic primitive shared by link.Producer/Consumer (a
// single cursor, no overwrite: Full instead of clobbering unread data)
// and hub.Hub (an N-slot cursor table, overwrite-on-overflow with
// Lagged reporting). It never reasons about topic semantics -- only
// about capacity, cursors, and publication order.
type Ring[T any] struct {
	reg       *region
	capacity  int64
	cellSize  int
	overwrite bool
	topic     string
}

// Create implements create_or_open for a topic typed as T. capacity
// must be a power of two; maxReaders sizes the cursor table (1 for a
// Link, the configured fan-out for a Hub).
func Create[T any](topic string, capacity, maxReaders int, overwrite bool) (*Ring[T], error) {
	var zero T
	t := reflect.TypeOf(zero)
	if t == nil {
		return nil, cos.WrapIO("ring.Create", errInterfaceType)
	}
	if err := checkTriviallyCopyable(t); err != nil {
		return nil, err
	}
	cellSize := int(t.Size())
	if cellSize == 0 {
		cellSize = 1 // avoid a zero-stride region for empty structs
	}
	if capacity <= 0 || capacity&(capacity-1) != 0 {
		return nil, cos.WrapIO("ring.Create", errNotPowerOfTwo)
	}
	reg, err := createOrOpen(topic, capacity, cellSize, maxReaders)
	if err != nil {
		return nil, err
	}
	return &Ring[T]{
		reg:       reg,
		capacity:  int64(capacity),
		cellSize:  cellSize,
		overwrite: overwrite,
		topic:     topic,
	}, nil
}

func (r *Ring[T]) Topic() string  { return r.topic }
func (r *Ring[T]) Capacity() int  { return int(r.capacity) }
func (r *Ring[T]) Overwrite() bool { return r.overwrite }

func (r *Ring[T]) cell(index int64) []byte {
	slot := index & (r.capacity - 1)
	off := r.reg.cellsOff + int(slot)*r.cellSize
	return r.reg.buf[off : off+r.cellSize]
}

// RegisterReader allocates a cursor slot starting either at 0 (a Link
// consumer, which drains whatever the producer buffered before it
// attached) or at the current head (a Hub subscriber, which never sees
// history).
func (r *Ring[T]) RegisterReader(fromHead bool) (int, error) {
	start := int64(0)
	if fromHead {
		start = r.reg.headLoad()
	}
	idx := r.reg.registerCursor(start, int32(os.Getpid()))
	if idx < 0 {
		r.reg.reapDeadCursors()
		idx = r.reg.registerCursor(start, int32(os.Getpid()))
	}
	if idx < 0 {
		return -1, cos.WrapIO("ring.RegisterReader", errNoCursorSlots)
	}
	return idx, nil
}

func (r *Ring[T]) UnregisterReader(idx int) { r.reg.unregisterCursor(idx) }

// AcquireProducer/AcquireConsumer/Release* expose Link's single-role
// enforcement to the link package.
func (r *Ring[T]) AcquireProducer() bool { return r.reg.acquireProducer() }
func (r *Ring[T]) ReleaseProducer()      { r.reg.releaseProducer() }
func (r *Ring[T]) AcquireConsumer() bool { return r.reg.acquireConsumer() }
func (r *Ring[T]) ReleaseConsumer()      { r.reg.releaseConsumer() }

// Reserve returns the next write index for a zero-copy loan (link's
// Loan/Sample API), or ErrFull under the non-overwrite policy if no
// reader has made room. A successful Reserve must be paired with
// exactly one Publish; an abandoned reservation is harmless since Head
// hasn't moved to claim it yet.
func (r *Ring[T]) Reserve() (int64, error) {
	head := r.reg.headLoad()
	if !r.overwrite && head-r.reg.slowestCursor() >= r.capacity {
		// before reporting Full, make sure the gating cursor isn't a
		// leftover of a crashed reader
		r.reg.reapDeadCursors()
		if head-r.reg.slowestCursor() >= r.capacity {
			return 0, &cos.ErrFull{Topic: r.topic}
		}
	}
	return head, nil
}

// CellPtr returns a pointer to the cell at index for in-place
// initialization by a loan holder, before Publish makes it visible to
// readers.
func (r *Ring[T]) CellPtr(index int64) *T {
	cell := r.cell(index)
	return (*T)(unsafe.Pointer(&cell[0]))
}

// Publish advances Head past index (release), making that cell's
// current contents visible to readers.
func (r *Ring[T]) Publish(index int64) {
	r.reg.headStore(index + 1)
}

// TryPush writes value into the next cell and publishes it by
// advancing Head. With overwrite disabled (Link) it returns ErrFull
// instead of clobbering a cell the single reader hasn't consumed yet.
func (r *Ring[T]) TryPush(value T) error {
	index, err := r.Reserve()
	if err != nil {
		return err
	}
	*r.CellPtr(index) = value // publish payload first, index second (release)
	r.Publish(index)
	return nil
}

// TryPop reads the next value for the given reader cursor. Returns
// ErrEmpty if the reader has caught up to the writer, or ErrLagged if
// the writer overwrote cells before this cursor reached them (Hub
// overwrite policy only; never happens for a Link).
func (r *Ring[T]) TryPop(cursorIdx int) (T, error) {
	var zero T
	cur := r.reg.cursorLoad(cursorIdx)
	head := r.reg.headLoad()
	if cur >= head {
		return zero, &cos.ErrEmpty{Topic: r.topic}
	}
	if head-cur > r.capacity {
		debug.Assert(r.overwrite, "a non-overwriting ring must never let a cursor fall behind capacity")
		skipped := head - cur - r.capacity
		cur = head - r.capacity
		r.reg.cursorStore(cursorIdx, cur)
		return zero, &cos.ErrLagged{Topic: r.topic, Skipped: skipped}
	}
	cell := r.cell(cur)
	val := *(*T)(unsafe.Pointer(&cell[0]))
	r.reg.cursorStore(cursorIdx, cur+1)
	return val, nil
}

// Close releases this handle's reference to the shared region. The
// last holder's Close tears down the backing storage.
func (r *Ring[T]) Close() error { release(r.topic); return nil }
