// Package link implements HORUS's point-to-point primitive: a single
// producer and a single consumer exchanging strictly
// FIFO, lossless samples of one fixed type T over a ring.Ring[T]
// configured without the overwrite policy, so a full ring reports Full
// rather than discarding unread data.
package link

import (
	"time"

	"github.com/horus-robotics/horus/cmn"
	"github.com/horus-robotics/horus/cmn/cos"
	"github.com/horus-robotics/horus/ring"
)

const pollInterval = 100 * time.Microsecond

// Producer is the single writer side of a Link topic.
type Producer[T any] struct {
	r    *ring.Ring[T]
	done bool
}

// Consumer is the single reader side of a Link topic.
type Consumer[T any] struct {
	r      *ring.Ring[T]
	cursor int
	done   bool
}

// NewProducer opens (creating if necessary) the named Link topic for
// writing. A second producer on the same topic gets ErrTopicRoleConflict.
func NewProducer[T any](topic string) (*Producer[T], error) {
	r, err := ring.Create[T](cos.SanitizeTopic(topic), cmn.Rom.RingCapacity(), 1, false)
	if err != nil {
		return nil, err
	}
	if !r.AcquireProducer() {
		r.Close()
		return nil, &cos.ErrTopicRoleConflict{Topic: topic, Role: "producer"}
	}
	return &Producer[T]{r: r}, nil
}

// NewConsumer opens (creating if necessary) the named Link topic for
// reading. A second consumer on the same topic gets ErrTopicRoleConflict.
func NewConsumer[T any](topic string) (*Consumer[T], error) {
	r, err := ring.Create[T](cos.SanitizeTopic(topic), cmn.Rom.RingCapacity(), 1, false)
	if err != nil {
		return nil, err
	}
	if !r.AcquireConsumer() {
		r.Close()
		return nil, &cos.ErrTopicRoleConflict{Topic: topic, Role: "consumer"}
	}
	idx, err := r.RegisterReader(false)
	if err != nil {
		r.ReleaseConsumer()
		r.Close()
		return nil, err
	}
	return &Consumer[T]{r: r, cursor: idx}, nil
}

// Send publishes value. Returns cos.ErrFull if the consumer has not
// drained enough of the ring to make room -- it never overwrites
// unread data and never blocks.
func (p *Producer[T]) Send(value T) error {
	return p.r.TryPush(value)
}

// SendWait retries Send until the consumer makes room or timeout
// elapses; a non-positive timeout is one non-blocking attempt. Waiting
// is a poll loop over the non-blocking ring -- not for use on the
// UltraFast/Fast hot thread.
func (p *Producer[T]) SendWait(value T, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		err := p.Send(value)
		if err == nil || !cos.IsErrFull(err) {
			return err
		}
		if timeout <= 0 || !time.Now().Before(deadline) {
			return err
		}
		time.Sleep(pollInterval)
	}
}

// Recv returns the next value in FIFO order, or cos.ErrEmpty if the
// producer hasn't published anything new.
func (c *Consumer[T]) Recv() (T, error) {
	return c.r.TryPop(c.cursor)
}

// RecvWait polls Recv until a value arrives or timeout elapses; a
// non-positive timeout is one non-blocking attempt.
func (c *Consumer[T]) RecvWait(timeout time.Duration) (T, error) {
	deadline := time.Now().Add(timeout)
	for {
		v, err := c.Recv()
		if !cos.IsErrEmpty(err) {
			return v, err
		}
		if timeout <= 0 || !time.Now().Before(deadline) {
			return v, err
		}
		time.Sleep(pollInterval)
	}
}

// Close releases this handle's role and its region reference. A
// Producer/Consumer must not be used after Close.
func (p *Producer[T]) Close() error {
	if p.done {
		return nil
	}
	p.done = true
	p.r.ReleaseProducer()
	return p.r.Close()
}

func (c *Consumer[T]) Close() error {
	if c.done {
		return nil
	}
	c.done = true
	c.r.UnregisterReader(c.cursor)
	c.r.ReleaseConsumer()
	return c.r.Close()
}
