package router

import (
	"context"
	"net"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// outboundQueueCapacity bounds how far a subscriber's forward queue may
// lag before it's treated as a slow consumer; forwarding is best
// effort and never blocks the other subscribers.
const outboundQueueCapacity = 256

// conn is the broker's per-connection state, cycling Accepted ->
// Handshaked (if encrypted) -> Active -> Closed.
// A dedicated writer goroutine drains outbound so a
// slow reader on one connection never blocks the forward loop serving
// every other subscriber.
type conn struct {
	id       string
	nc       net.Conn
	outbound chan []byte
	limiter  *rate.Limiter

	mu       sync.Mutex
	closed   bool
	clientID string // self-reported by RouterSubscribe's control payload, empty until then
}

func newConn(id string, nc net.Conn) *conn {
	return &conn{
		id:       id,
		nc:       nc,
		outbound: make(chan []byte, outboundQueueCapacity),
		limiter:  rate.NewLimiter(rate.Limit(8192), 512), // frames/sec, generous burst
	}
}

// enqueue attempts a non-blocking handoff to the writer goroutine.
// Returns false if the queue is saturated or the connection is already
// closing, signaling the caller (the broker's forward loop) to treat
// this subscriber as a slow consumer.
func (c *conn) enqueue(frame []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.outbound <- frame:
		return true
	default:
		return false
	}
}

func (c *conn) writeLoop() {
	ctx := context.Background()
	for frame := range c.outbound {
		if err := c.limiter.Wait(ctx); err != nil {
			return
		}
		if err := writeFrame(c.nc, frame); err != nil {
			c.close()
			return
		}
	}
}

func (c *conn) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.outbound)
	c.nc.Close()
}

// setClientID records the self-reported ClientID from a RouterSubscribe
// control payload, surfaced read-only via clientIDSnapshot for the
// admin endpoint.
func (c *conn) setClientID(id string) {
	c.mu.Lock()
	c.clientID = id
	c.mu.Unlock()
}

func (c *conn) clientIDSnapshot() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.clientID
}

func (c *conn) setIdleDeadline(d time.Duration) {
	if d > 0 {
		c.nc.SetReadDeadline(time.Now().Add(d))
	}
}
