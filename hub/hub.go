// Package hub implements HORUS's broadcast primitive:
// many producers, many independent readers, each with its own cursor
// into a shared ring.Ring[T] configured with the overwrite policy. A
// reader that falls more than Capacity messages behind is told how
// many it lost (cos.ErrLagged) rather than blocking the writers.
package hub

import (
	"sync"
	"time"

	"github.com/horus-robotics/horus/cmn"
	"github.com/horus-robotics/horus/cmn/cos"
	"github.com/horus-robotics/horus/ring"
)

// Hub is a typed handle onto a broadcast topic. Any number of Hub
// handles may be created for the same topic from the same or different
// producer/consumer roles; there is no role exclusivity, unlike Link.
type Hub[T any] struct {
	r    *ring.Ring[T]
	mu   sync.Mutex
	done bool
}

// Handle is a registered reader cursor obtained from Subscribe. Each
// goroutine/consumer that wants its own independent read position
// needs its own Handle.
type Handle[T any] struct {
	hub    *Hub[T]
	cursor int
	mu     sync.Mutex
	closed bool
}

// Open creates or joins the named Hub topic with the configured default
// capacity.
func Open[T any](topic string) (*Hub[T], error) {
	return OpenWithCapacity[T](topic, cmn.Rom.RingCapacity())
}

// OpenWithCapacity creates or joins the named Hub topic. The first join
// fixes the ring's capacity; a later join that disagrees fails with
// cos.ErrCapacityMismatch.
func OpenWithCapacity[T any](topic string, capacity int) (*Hub[T], error) {
	r, err := ring.Create[T](cos.SanitizeTopic(topic), capacity, cmn.Rom.MaxReaders(), true)
	if err != nil {
		return nil, err
	}
	return &Hub[T]{r: r}, nil
}

// Publish broadcasts value to every current and future Subscribe'd
// Handle. The overwrite policy means Publish itself never fails with
// Full; a slow reader instead observes ErrLagged on its next Recv.
func (h *Hub[T]) Publish(value T) error {
	return h.r.TryPush(value)
}

// Subscribe registers a new independent reader cursor, starting at the
// ring's current write position: a subscriber never replays messages
// published before it joined. There is no opt-in replay -- an
// application wanting history must keep its own log.
func (h *Hub[T]) Subscribe() (*Handle[T], error) {
	idx, err := h.r.RegisterReader(true)
	if err != nil {
		return nil, err
	}
	return &Handle[T]{hub: h, cursor: idx}, nil
}

// Recv returns the next broadcast value for this Handle's cursor, or
// cos.ErrEmpty if nothing new has been published, or cos.ErrLagged if
// the writer(s) overwrote messages before this Handle observed them.
func (hd *Handle[T]) Recv() (T, error) {
	v, err := hd.hub.r.TryPop(hd.cursor)
	if n, ok := cos.AsErrLagged(err); ok {
		laggedMessages.WithLabelValues(hd.hub.r.Topic()).Add(float64(n))
	}
	return v, err
}

// RecvWait polls Recv until a value (or Lagged) surfaces or timeout
// elapses; a non-positive timeout is one non-blocking attempt. The
// underlying ring never blocks, so waiting is a poll loop rather than a
// parked goroutine -- callers on the hot tiers should stick to Recv.
func (hd *Handle[T]) RecvWait(timeout time.Duration) (T, error) {
	deadline := time.Now().Add(timeout)
	for {
		v, err := hd.Recv()
		if !cos.IsErrEmpty(err) {
			return v, err
		}
		if timeout <= 0 || !time.Now().Before(deadline) {
			return v, err
		}
		time.Sleep(pollInterval)
	}
}

const pollInterval = 100 * time.Microsecond

// Close deregisters this Handle's cursor. Other Handles on the same
// Hub are unaffected.
func (hd *Handle[T]) Close() {
	hd.mu.Lock()
	defer hd.mu.Unlock()
	if hd.closed {
		return
	}
	hd.closed = true
	hd.hub.r.UnregisterReader(hd.cursor)
}

// Close releases this Hub handle's reference to the shared region. Any
// outstanding Handles obtained from it become invalid.
func (h *Hub[T]) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.done {
		return nil
	}
	h.done = true
	return h.r.Close()
}
