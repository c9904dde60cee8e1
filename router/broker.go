package router

import (
	"crypto/tls"
	"net"
	"sync"

	"github.com/google/uuid"

	"github.com/horus-robotics/horus/cmn"
	"github.com/horus-robotics/horus/cmn/cos"
	"github.com/horus-robotics/horus/cmn/nlog"
	"github.com/horus-robotics/horus/wire"
)

// Broker is the router process's core: it accepts TCP connections,
// runs each through the Accepted -> Handshaked -> Active state
// machine, and fans out every published packet to the live subscribers
// of its topic. Forwarding is best effort -- a subscriber whose
// outbound queue is full misses that packet (logged and counted), and
// one whose socket write fails is closed and removed; neither stalls
// delivery to the rest of the group.
type Broker struct {
	sub      *subtable
	tlsConf  *tls.Config
	encrypt  bool
	maxFrame int

	lnMu      sync.Mutex
	ln        net.Listener
	wg        sync.WaitGroup
	closeOnce sync.Once
	closing   chan struct{}
}

// NewBroker constructs a Broker from the installed cmn.Rom snapshot's
// Router section. With Router.TLSEnabled, a keypair that fails to load
// is a construction error -- the broker never silently downgrades a
// connection a deployment asked to encrypt.
func NewBroker() (*Broker, error) {
	cfg := cmn.Rom.Get().Router
	b := &Broker{
		sub:      newSubtable(),
		encrypt:  cfg.Encrypt,
		maxFrame: cfg.MaxFrame,
		closing:  make(chan struct{}),
	}
	if cfg.TLSEnabled {
		cert, err := tls.LoadX509KeyPair(cfg.TLSCertPath, cfg.TLSKeyPath)
		if err != nil {
			return nil, cos.WrapIO("load TLS keypair", err)
		}
		b.tlsConf = &tls.Config{Certificates: []tls.Certificate{cert}}
	}
	return b, nil
}

// Serve accepts connections on ln until Close is called.
func (b *Broker) Serve(ln net.Listener) error {
	b.lnMu.Lock()
	b.ln = ln
	b.lnMu.Unlock()
	for {
		nc, err := ln.Accept()
		if err != nil {
			select {
			case <-b.closing:
				return nil
			default:
				return cos.WrapIO("accept", err)
			}
		}
		b.wg.Add(1)
		go func() {
			defer b.wg.Done()
			b.handleConn(nc)
		}()
	}
}

// Close stops accepting and waits for in-flight connections to drain.
func (b *Broker) Close() error {
	b.closeOnce.Do(func() {
		close(b.closing)
		b.lnMu.Lock()
		if b.ln != nil {
			b.ln.Close()
		}
		b.lnMu.Unlock()
	})
	b.wg.Wait()
	return nil
}

func (b *Broker) handleConn(nc net.Conn) {
	transport := nc
	switch {
	case b.tlsConf != nil:
		transport = tls.Server(nc, b.tlsConf)
	case b.encrypt:
		hs, err := ServerHandshake(nc)
		if err != nil {
			nlog.Warningf("router: handshake failed from %s: %v", nc.RemoteAddr(), err)
			nc.Close()
			return
		}
		transport = hs
	}

	id := uuid.NewString()
	c := newConn(id, transport)
	b.sub.addConn(c)
	connsActive.Inc()
	defer func() {
		connsActive.Dec()
		b.sub.removeConn(id)
		c.close()
	}()

	go c.writeLoop()

	idleTO := cmn.Rom.RouterIdleTimeout()
	for {
		c.setIdleDeadline(idleTO)
		frame, err := readFrame(transport, b.maxFrame)
		if err != nil {
			return
		}
		pkt, err := wire.Decode(frame)
		if err != nil {
			nlog.Warningf("router: dropping malformed frame from %s: %v", id, err)
			continue
		}
		b.dispatch(id, c, pkt)
	}
}

func (b *Broker) dispatch(connID string, c *conn, pkt *wire.Packet) {
	switch pkt.MsgType {
	case wire.MsgRouterSubscribe:
		ctrl, err := decodeControl(pkt.Payload)
		if err != nil {
			nlog.Warningf("router: malformed subscribe control payload: %v", err)
			return
		}
		c.setClientID(ctrl.ClientID)
		if err := b.sub.subscribe(pkt.Topic, connID); err != nil {
			nlog.Errorf("router: subscribe failed: %v", err)
		}
	case wire.MsgRouterUnsubscribe:
		if err := b.sub.unsubscribe(pkt.Topic, connID); err != nil {
			nlog.Errorf("router: unsubscribe failed: %v", err)
		}
	case wire.MsgRouterPublish, wire.MsgData, wire.MsgFragment:
		b.forward(pkt, connID)
	default:
		nlog.Warningf("router: unknown msg_type %d from %s", pkt.MsgType, connID)
	}
}

// forward fans pkt out to every current subscriber of its topic except
// the publisher itself. A subscriber whose outbound queue is saturated
// is counted as dropped and otherwise ignored -- it does not slow or
// fail delivery to anyone else.
func (b *Broker) forward(pkt *wire.Packet, senderID string) {
	subs := b.sub.subscribersOf(pkt.Topic)
	if len(subs) == 0 {
		return
	}
	frame := wire.Encode(pkt, nil)
	errs := &cos.Errs{}
	for _, sub := range subs {
		if sub.id == senderID {
			continue
		}
		if sub.enqueue(frame) {
			packetsForwarded.WithLabelValues(pkt.Topic).Inc()
		} else {
			packetsDropped.WithLabelValues(pkt.Topic).Inc()
			errs.Add(&cos.ErrFull{Topic: pkt.Topic})
		}
	}
	if errs.Cnt() > 0 {
		nlog.Warningf("router: %d subscriber(s) of %q dropped a packet (slow consumer): %v",
			errs.Cnt(), pkt.Topic, errs.JoinErr())
	}
}
