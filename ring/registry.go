package ring

import (
	"os"
	"sync"
	"sync/atomic"
)

// region bundles a topic's shared header+cursor-table+cell bytes
// (header/cursors are pointers into storage.Bytes(), not process-local
// copies) with this process's own reference count for Ring[T] handles
// that share one mmap.
type region struct {
	storage    storage
	buf        []byte
	header     *regionHeader
	cursors    []*cursorSlot
	cellsOff   int
	capacity   int
	cellSize   int
	maxReaders int
	topic      string
	refs       int
}

var (
	registryMu sync.Mutex
	registry   = map[string]*region{}
)

// createOrOpen is the create-or-open entry point for a topic. Within one
// process, a second caller for the same topic reuses the already-mmap'd
// region (refcounted here via the registry map). Across processes there
// is no shared registry -- each process independently mmaps the same
// /dev/shm file, and it is the region's own header, living inside those
// mapped bytes, that a second process actually observes: attach()
// either claims a fresh region or joins/reclaims an existing one by
// reading that header directly, never by trusting this process's local
// state.
func createOrOpen(topic string, capacity, cellSize, maxReaders int) (*region, error) {
	registryMu.Lock()
	defer registryMu.Unlock()

	if r, ok := registry[topic]; ok {
		if err := matchesCapacity(r.header, capacity, cellSize); err != nil {
			return nil, err
		}
		r.refs++
		return r, nil
	}

	st, err := newSharedStorage(topic, regionSize(capacity, cellSize, maxReaders))
	if err != nil {
		return nil, err
	}
	buf := st.Bytes()
	h := headerPtr(buf)
	cursors := make([]*cursorSlot, maxReaders)
	for i := range cursors {
		cursors[i] = cursorPtr(buf, i)
	}
	if err := attach(h, cursors, capacity, cellSize, maxReaders); err != nil {
		st.Close()
		return nil, err
	}

	r := &region{
		storage:    st,
		buf:        buf,
		header:     h,
		cursors:    cursors,
		cellsOff:   cellsOffset(maxReaders),
		capacity:   capacity,
		cellSize:   cellSize,
		maxReaders: maxReaders,
		topic:      topic,
		refs:       1,
	}
	registry[topic] = r
	return r, nil
}

// release drops this process's reference; the last local holder's
// Close unmaps this process's view of the shared region. The region's
// own lifecycle -- reclaimed by the next opener of the same topic once
// every endpoint is gone -- is decided by attach()'s pid-liveness check
// the next time any process calls createOrOpen, not by this refcount:
// a refcount kept in one process's memory can't know whether a peer
// process is still attached.
func release(topic string) {
	registryMu.Lock()
	defer registryMu.Unlock()
	r, ok := registry[topic]
	if !ok {
		return
	}
	r.refs--
	if r.refs <= 0 {
		delete(registry, topic)
		r.storage.Close()
	}
}

func (r *region) headLoad() int64   { return atomic.LoadInt64(&r.header.Head) }
func (r *region) headStore(v int64) { atomic.StoreInt64(&r.header.Head, v) }

// acquireProducer/acquireConsumer implement Link's exclusive-role
// enforcement: opening a topic whose role is already owned is an
// error. Because ProducerTaken/ConsumerTaken live in the
// shared header, this CAS is exclusive across processes too, not just
// goroutines in one. A contested role whose recorded owner pid is no
// longer alive is taken over, so a crashed endpoint doesn't wedge its
// topic until the whole region is reclaimed.
func (r *region) acquireProducer() bool {
	return acquireRole(&r.header.ProducerTaken, &r.header.ProducerPID)
}
func (r *region) releaseProducer() { releaseRole(&r.header.ProducerTaken, &r.header.ProducerPID) }
func (r *region) acquireConsumer() bool {
	return acquireRole(&r.header.ConsumerTaken, &r.header.ConsumerPID)
}
func (r *region) releaseConsumer() { releaseRole(&r.header.ConsumerTaken, &r.header.ConsumerPID) }

func acquireRole(taken *uint32, owner *int32) bool {
	self := int32(os.Getpid())
	if atomic.CompareAndSwapUint32(taken, 0, 1) {
		atomic.StoreInt32(owner, self)
		return true
	}
	if pid := atomic.LoadInt32(owner); pid != 0 && pid != self && !processAlive(pid) {
		return atomic.CompareAndSwapInt32(owner, pid, self)
	}
	return false
}

func releaseRole(taken *uint32, owner *int32) {
	atomic.StoreInt32(owner, 0)
	atomic.StoreUint32(taken, 0)
}

// registerCursor allocates a cursor slot for a new Hub/Link reader,
// initialized at `start` (current head for Hub late-subscribers, 0 for
// a fresh Link consumer). Returns -1 if the reader table is full. The
// CAS on InUse is the actual cross-process claim; no mutex is needed or
// possible here since a mutex can't be shared across address spaces.
func (r *region) registerCursor(start int64, pid int32) int {
	for i, c := range r.cursors {
		if atomic.CompareAndSwapUint32(&c.InUse, 0, 1) {
			atomic.StoreInt64(&c.Cursor, start)
			atomic.StoreInt32(&c.Pid, pid)
			return i
		}
	}
	return -1
}

// reapDeadCursors releases cursor slots whose owning process has
// exited without unregistering, so a crashed reader neither exhausts
// the cursor table nor permanently gates a non-overwriting writer.
// Called only on the slow paths (table full, writer about to report
// Full); the liveness probe is a syscall per in-use slot.
func (r *region) reapDeadCursors() {
	for _, c := range r.cursors {
		if atomic.LoadUint32(&c.InUse) != 1 {
			continue
		}
		if pid := atomic.LoadInt32(&c.Pid); pid != 0 && !processAlive(pid) {
			atomic.StoreUint32(&c.InUse, 0)
		}
	}
}

// unregisterCursor releases a cursor slot on consumer/Hub-handle drop.
func (r *region) unregisterCursor(idx int) {
	if idx < 0 || idx >= len(r.cursors) {
		return
	}
	atomic.StoreUint32(&r.cursors[idx].InUse, 0)
}

func (r *region) cursorLoad(idx int) int64    { return atomic.LoadInt64(&r.cursors[idx].Cursor) }
func (r *region) cursorStore(idx int, v int64) { atomic.StoreInt64(&r.cursors[idx].Cursor, v) }

// slowestCursor returns the minimum cursor among in-use slots, and head
// if there are none (an empty cursor table never gates the writer).
func (r *region) slowestCursor() int64 {
	head := r.headLoad()
	slowest := head
	for _, c := range r.cursors {
		if atomic.LoadUint32(&c.InUse) == 1 {
			if cur := atomic.LoadInt64(&c.Cursor); cur < slowest {
				slowest = cur
			}
		}
	}
	return slowest
}
