package udp_test

import (
	"bytes"
	"encoding/binary"
	"net"
	"testing"
	"time"

	"github.com/horus-robotics/horus/cmn/cos"
	"github.com/horus-robotics/horus/udp"
	"github.com/horus-robotics/horus/wire"
)

type tick struct{ N uint32 }

var tickCodec = wire.Codec[tick]{
	Encode: func(v tick) ([]byte, error) {
		b := make([]byte, 4)
		binary.LittleEndian.PutUint32(b, v.N)
		return b, nil
	},
	Decode: func(b []byte) (tick, error) {
		if len(b) < 4 {
			return tick{}, &cos.ErrMalformedPacket{Reason: "short tick payload"}
		}
		return tick{N: binary.LittleEndian.Uint32(b)}, nil
	},
}

// TestRecvFromRawPeer exercises Direct's receive path (decode, topic
// filter, enqueue) against a plain UDP socket standing in for the
// remote endpoint, since both ends of a real Direct pair must know
// each other's address up front.
func TestRecvFromRawPeer(t *testing.T) {
	topic := "udp-test-" + cos.GenUUID()

	peer, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.ParseIP("127.0.0.1"), Port: 0})
	if err != nil {
		t.Fatalf("ListenUDP: %v", err)
	}
	defer peer.Close()
	peerAddr := peer.LocalAddr().(*net.UDPAddr)

	d, err := udp.New[tick](topic, peerAddr.IP.String(), peerAddr.Port, tickCodec)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer d.Close()

	payload, _ := tickCodec.Encode(tick{N: 42})
	p := &wire.Packet{Topic: cos.SanitizeTopic(topic), MsgType: wire.MsgData, Sequence: 1, Payload: payload}
	buf := wire.Encode(p, nil)
	if _, err := peer.WriteToUDP(buf, d.LocalAddr()); err != nil {
		t.Fatalf("WriteToUDP: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		v, err := d.Recv()
		if err == nil {
			if v.N != 42 {
				t.Fatalf("want N=42, got %d", v.N)
			}
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("timed out waiting for datagram to arrive")
}

type blob struct{ B []byte }

var blobCodec = wire.Codec[blob]{
	Encode: func(v blob) ([]byte, error) { return v.B, nil },
	Decode: func(b []byte) (blob, error) { return blob{B: append([]byte(nil), b...)}, nil },
}

// TestReassemblesFragmentedPayload feeds a payload several times the
// MTU through the fragment path: the raw peer sends one MsgFragment
// datagram per piece, Recv must deliver exactly one message equal to
// the original.
func TestReassemblesFragmentedPayload(t *testing.T) {
	topic := "udp-test-" + cos.GenUUID()

	peer, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.ParseIP("127.0.0.1"), Port: 0})
	if err != nil {
		t.Fatalf("ListenUDP: %v", err)
	}
	defer peer.Close()
	peerAddr := peer.LocalAddr().(*net.UDPAddr)

	d, err := udp.New[blob](topic, peerAddr.IP.String(), peerAddr.Port, blobCodec)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer d.Close()

	payload := make([]byte, 150_000)
	for i := range payload {
		payload[i] = byte(i * 31)
	}
	const mtu = 60_000
	frags := wire.Fragment(payload, mtu, 9)
	if len(frags) < 2 {
		t.Fatalf("expected the payload to need fragmenting, got %d fragment(s)", len(frags))
	}
	for _, f := range frags {
		p := &wire.Packet{
			Topic:    cos.SanitizeTopic(topic),
			MsgType:  wire.MsgFragment,
			Sequence: 2,
			Payload:  wire.EncodeFragment(f),
		}
		if _, err := peer.WriteToUDP(wire.Encode(p, nil), d.LocalAddr()); err != nil {
			t.Fatalf("WriteToUDP: %v", err)
		}
	}

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		v, err := d.Recv()
		if err == nil {
			if !bytes.Equal(v.B, payload) {
				t.Fatal("reassembled payload does not match the original")
			}
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("timed out waiting for the fragmented payload to reassemble")
}

func TestRecvEmptyWhenNothingArrived(t *testing.T) {
	topic := "udp-test-" + cos.GenUUID()
	peer, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.ParseIP("127.0.0.1"), Port: 0})
	if err != nil {
		t.Fatalf("ListenUDP: %v", err)
	}
	defer peer.Close()
	peerAddr := peer.LocalAddr().(*net.UDPAddr)

	d, err := udp.New[tick](topic, peerAddr.IP.String(), peerAddr.Port, tickCodec)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer d.Close()

	if _, err := d.Recv(); !cos.IsErrEmpty(err) {
		t.Fatalf("expected ErrEmpty, got %v", err)
	}
}
