package router

import (
	"crypto/tls"
	"net"
	"sync"

	"github.com/horus-robotics/horus/cmn"
	"github.com/horus-robotics/horus/cmn/cos"
	"github.com/horus-robotics/horus/wire"
)

// clientRecvQueueCapacity bounds how many received packets a Client
// buffers before it starts dropping the oldest -- the same drop-oldest
// policy udp.Direct applies, so a slow local consumer degrades to
// losing the stalest data rather than unbounded memory growth.
const clientRecvQueueCapacity = 1024

// Client is the router package's counterpart to a broker connection:
// it dials a broker, subscribes/publishes by topic, and exposes
// received packets through Recv/RecvWait.
type Client struct {
	nc       net.Conn
	maxFrame int

	mu     sync.Mutex
	seq    uint32
	recvCh chan *wire.Packet
	errCh  chan error
}

// Dial connects to a plaintext broker at addr.
func Dial(addr string) (*Client, error) {
	nc, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, cos.WrapIO("dial", err)
	}
	return newClient(nc), nil
}

// DialEncrypted connects to a broker configured with Router.Encrypt and
// completes the ephemeral-key handshake before any frame is exchanged.
func DialEncrypted(addr string) (*Client, error) {
	nc, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, cos.WrapIO("dial", err)
	}
	transport, err := ClientHandshake(nc)
	if err != nil {
		nc.Close()
		return nil, err
	}
	return newClient(transport), nil
}

// DialTLS connects using TLS instead of the ephemeral-key handshake,
// for brokers configured with Router.TLSEnabled.
func DialTLS(addr string, conf *tls.Config) (*Client, error) {
	nc, err := tls.Dial("tcp", addr, conf)
	if err != nil {
		return nil, cos.WrapIO("dial tls", err)
	}
	return newClient(nc), nil
}

func newClient(nc net.Conn) *Client {
	c := &Client{
		nc:       nc,
		maxFrame: cmn.Rom.Get().Router.MaxFrame,
		recvCh:   make(chan *wire.Packet, clientRecvQueueCapacity),
		errCh:    make(chan error, 1),
	}
	go c.recvLoop()
	return c
}

func (c *Client) nextSeq() uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	return c.seq
}

func (c *Client) send(pkt *wire.Packet) error {
	frame := wire.Encode(pkt, nil)
	return writeFrame(c.nc, frame)
}

// Subscribe registers interest in topic with the broker.
func (c *Client) Subscribe(topic, clientID string) error {
	return c.send(&wire.Packet{
		Topic:    topic,
		MsgType:  wire.MsgRouterSubscribe,
		Sequence: c.nextSeq(),
		Payload:  encodeControl(controlPayload{ClientID: clientID}),
	})
}

// Unsubscribe withdraws interest in topic.
func (c *Client) Unsubscribe(topic, clientID string) error {
	return c.send(&wire.Packet{
		Topic:    topic,
		MsgType:  wire.MsgRouterUnsubscribe,
		Sequence: c.nextSeq(),
		Payload:  encodeControl(controlPayload{ClientID: clientID}),
	})
}

// Publish sends payload on topic for the broker to fan out to every
// other subscriber.
func (c *Client) Publish(topic string, payload []byte) error {
	return c.send(&wire.Packet{
		Topic:    topic,
		MsgType:  wire.MsgRouterPublish,
		Sequence: c.nextSeq(),
		Payload:  payload,
	})
}

func (c *Client) recvLoop() {
	for {
		frame, err := readFrame(c.nc, c.maxFrame)
		if err != nil {
			select {
			case c.errCh <- err:
			default:
			}
			close(c.recvCh)
			return
		}
		pkt, err := wire.Decode(frame)
		if err != nil {
			continue
		}
		select {
		case c.recvCh <- pkt:
		default:
			// Drop the oldest buffered packet to make room, matching
			// udp.Direct's overflow policy.
			select {
			case <-c.recvCh:
			default:
			}
			select {
			case c.recvCh <- pkt:
			default:
			}
		}
	}
}

// Recv returns the next received packet without blocking, or false if
// none is currently buffered.
func (c *Client) Recv() (*wire.Packet, bool) {
	select {
	case pkt, ok := <-c.recvCh:
		return pkt, ok
	default:
		return nil, false
	}
}

// RecvWait blocks until a packet arrives or the connection closes.
func (c *Client) RecvWait() (*wire.Packet, bool) {
	pkt, ok := <-c.recvCh
	return pkt, ok
}

// Close shuts down the underlying connection.
func (c *Client) Close() error {
	return c.nc.Close()
}
