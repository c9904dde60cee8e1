// Package udp implements the direct host-to-host transport: a
// point-to-point bridge for exactly one topic between two known
// endpoints, over connectionless, non-blocking datagram sockets.
package udp

import (
	"context"
	"net"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/horus-robotics/horus/cmn"
	"github.com/horus-robotics/horus/cmn/cos"
	"github.com/horus-robotics/horus/cmn/nlog"
	"github.com/horus-robotics/horus/wire"
)

const recvQueueCapacity = 128

// Direct is the UDP direct transport handle for one topic.
type Direct[T any] struct {
	topic   string
	conn    *net.UDPConn
	codec   wire.Codec[T]
	fm      *wire.FragmentManager
	limiter *rate.Limiter

	queueMu sync.Mutex
	queue   []T

	seqMu       sync.Mutex
	nextSeq     uint32
	lastRecvSeq uint32
	haveRecvSeq bool
	dropped     int64

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New binds an ephemeral local socket, connects it to remote_host:remote_port
// (fixing the datagram's peer so reads only ever see that peer's
// traffic), and spawns the receiver goroutine.
func New[T any](topic, remoteHost string, remotePort int, codec wire.Codec[T]) (*Direct[T], error) {
	raddr, err := net.ResolveUDPAddr("udp", net.JoinHostPort(remoteHost, strconv.Itoa(remotePort)))
	if err != nil {
		return nil, cos.WrapIO("resolve remote addr", err)
	}
	conn, err := net.DialUDP("udp", nil, raddr)
	if err != nil {
		return nil, cos.WrapIO("dial udp", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	d := &Direct[T]{
		topic:   cos.SanitizeTopic(topic),
		conn:    conn,
		codec:   codec,
		fm:      wire.NewFragmentManager(topic),
		limiter: rate.NewLimiter(rate.Limit(4096), 256), // datagrams/sec, generous default burst
		cancel:  cancel,
	}
	d.wg.Add(1)
	go d.recvLoop(ctx)
	return d, nil
}

// LocalAddr returns the ephemeral local socket's address, mainly
// useful for tests that dial two Direct handles back at each other on
// loopback.
func (d *Direct[T]) LocalAddr() *net.UDPAddr { return d.conn.LocalAddr().(*net.UDPAddr) }

// Send serializes, fragments if needed, encodes, and writes one
// datagram per fragment.
func (d *Direct[T]) Send(value T) error {
	payload, err := d.codec.Encode(value)
	if err != nil {
		return cos.WrapIO("encode payload", err)
	}
	frags := wire.Fragment(payload, cmn.Rom.MTU(), nextFragmentID())

	d.seqMu.Lock()
	seq := d.nextSeq
	d.nextSeq++
	d.seqMu.Unlock()

	if len(frags) == 1 && frags[0].Total == 1 {
		p := &wire.Packet{Topic: d.topic, MsgType: wire.MsgData, Sequence: seq, Payload: frags[0].Data}
		return d.writeDatagram(p)
	}
	for _, f := range frags {
		p := &wire.Packet{Topic: d.topic, MsgType: wire.MsgFragment, Sequence: seq, Payload: wire.EncodeFragment(f)}
		if err := d.writeDatagram(p); err != nil {
			return err
		}
	}
	return nil
}

func (d *Direct[T]) writeDatagram(p *wire.Packet) error {
	if err := d.limiter.Wait(context.Background()); err != nil {
		return cos.WrapIO("rate limit wait", err)
	}
	buf := wire.Encode(p, nil)
	_, err := d.conn.Write(buf)
	if err != nil {
		return cos.WrapIO("udp write", err)
	}
	return nil
}

// Recv pops the oldest value off the internal bounded queue, or
// reports cos.ErrEmpty if nothing has arrived.
func (d *Direct[T]) Recv() (T, error) {
	var zero T
	d.queueMu.Lock()
	defer d.queueMu.Unlock()
	if len(d.queue) == 0 {
		return zero, &cos.ErrEmpty{Topic: d.topic}
	}
	v := d.queue[0]
	d.queue = d.queue[1:]
	return v, nil
}

func (d *Direct[T]) enqueue(v T) {
	d.queueMu.Lock()
	defer d.queueMu.Unlock()
	if len(d.queue) >= recvQueueCapacity {
		d.queue = d.queue[1:] // drop oldest
	}
	d.queue = append(d.queue, v)
}

func (d *Direct[T]) recvLoop(ctx context.Context) {
	defer d.wg.Done()
	buf := make([]byte, 65536)
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		d.conn.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
		n, err := d.conn.Read(buf)
		if err != nil {
			continue // deadline or transient error; loop checks ctx again
		}
		p, err := wire.Decode(buf[:n])
		if err != nil {
			nlog.Warningf("udp[%s]: dropping malformed datagram: %v", d.topic, err)
			continue
		}
		if p.Topic != d.topic {
			continue
		}
		d.noteRecvSeq(p.Sequence)
		switch p.MsgType {
		case wire.MsgData:
			v, err := d.codec.Decode(p.Payload)
			if err != nil {
				nlog.Warningf("udp[%s]: dropping undecodable payload: %v", d.topic, err)
				continue
			}
			d.enqueue(v)
		case wire.MsgFragment:
			fh, err := wire.DecodeFragment(p.Payload)
			if err != nil {
				nlog.Warningf("udp[%s]: dropping malformed fragment: %v", d.topic, err)
				continue
			}
			full, done := d.fm.Reassemble(d.topic, fh)
			if !done {
				continue
			}
			v, err := d.codec.Decode(full)
			if err != nil {
				nlog.Warningf("udp[%s]: dropping undecodable reassembled payload: %v", d.topic, err)
				continue
			}
			d.enqueue(v)
		default:
			// other message types are ignored on a direct bridge
		}
	}
}

// noteRecvSeq tracks gaps in the peer's sequence numbers; sequences
// detect drops, they never order across topics. Fragments of one
// message share a sequence, so only a jump of more than one counts.
func (d *Direct[T]) noteRecvSeq(seq uint32) {
	d.seqMu.Lock()
	defer d.seqMu.Unlock()
	if d.haveRecvSeq {
		if delta := seq - d.lastRecvSeq; delta > 1 {
			d.dropped += int64(delta - 1)
		}
	}
	d.haveRecvSeq = true
	d.lastRecvSeq = seq
}

// Dropped reports how many of the peer's datagram sequences were never
// observed, a best-effort loss diagnostic.
func (d *Direct[T]) Dropped() int64 {
	d.seqMu.Lock()
	defer d.seqMu.Unlock()
	return d.dropped
}

// Close stops the receiver goroutine and releases the socket.
func (d *Direct[T]) Close() error {
	d.cancel()
	d.wg.Wait()
	d.fm.Close()
	return d.conn.Close()
}

var fragmentIDSeed atomic.Uint32

func nextFragmentID() uint32 { return fragmentIDSeed.Add(1) }
