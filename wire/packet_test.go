package wire_test

import (
	"bytes"
	"testing"

	"github.com/horus-robotics/horus/wire"
)

func TestPacketRoundTrip(t *testing.T) {
	cases := []*wire.Packet{
		{Topic: "imu", MsgType: wire.MsgData, Sequence: 1, Payload: []byte("hello")},
		{Topic: "", MsgType: wire.MsgRouterSubscribe, Sequence: 0, Payload: nil},
		{Topic: "lidar/front", MsgType: wire.MsgFragment, Sequence: 4294967295, Payload: bytes.Repeat([]byte{0xAB}, 4096)},
	}
	for _, want := range cases {
		buf := wire.Encode(want, nil)
		got, err := wire.Decode(buf)
		if err != nil {
			t.Fatalf("Decode: %v", err)
		}
		if got.Topic != want.Topic || got.MsgType != want.MsgType || got.Sequence != want.Sequence {
			t.Fatalf("round trip mismatch: want %+v, got %+v", want, got)
		}
		if !bytes.Equal(got.Payload, want.Payload) {
			t.Fatalf("payload mismatch: want %x, got %x", want.Payload, got.Payload)
		}
	}
}

func TestDecodeRejectsCorruption(t *testing.T) {
	p := &wire.Packet{Topic: "imu", MsgType: wire.MsgData, Sequence: 1, Payload: []byte("hello")}
	buf := wire.Encode(p, nil)
	buf[len(buf)-1] ^= 0xFF // flip a checksum byte
	if _, err := wire.Decode(buf); err == nil {
		t.Fatal("expected ErrMalformedPacket on checksum mismatch")
	}
}

func TestDecodeRejectsTruncatedFrame(t *testing.T) {
	p := &wire.Packet{Topic: "imu", MsgType: wire.MsgData, Sequence: 1, Payload: []byte("hello")}
	buf := wire.Encode(p, nil)
	if _, err := wire.Decode(buf[:len(buf)-3]); err == nil {
		t.Fatal("expected ErrMalformedPacket on truncated frame")
	}
}

func TestFragmentSingleWhenUnderMTU(t *testing.T) {
	frags := wire.Fragment([]byte("small"), 60000, 7)
	if len(frags) != 1 || frags[0].Total != 1 {
		t.Fatalf("expected a single fragment with Total=1, got %+v", frags)
	}
}

func TestFragmentSplitsOversizePayload(t *testing.T) {
	payload := bytes.Repeat([]byte{0x42}, 150)
	frags := wire.Fragment(payload, 64, 7)
	if len(frags) != 3 {
		t.Fatalf("expected 3 fragments for 150 bytes at mtu=64, got %d", len(frags))
	}
	var reassembled []byte
	for i, f := range frags {
		if int(f.Index) != i || int(f.Total) != len(frags) || f.FragmentID != 7 {
			t.Fatalf("fragment %d header wrong: %+v", i, f)
		}
		reassembled = append(reassembled, f.Data...)
	}
	if !bytes.Equal(reassembled, payload) {
		t.Fatal("reassembled payload does not match original")
	}
}

func TestFragmentHeaderEncodeDecodeRoundTrip(t *testing.T) {
	f := &wire.FragmentHeader{FragmentID: 42, Index: 1, Total: 3, Data: []byte("piece")}
	buf := wire.EncodeFragment(f)
	got, err := wire.Decode(wire.Encode(&wire.Packet{
		Topic: "t", MsgType: wire.MsgFragment, Sequence: 0, Payload: buf,
	}, nil))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !bytes.Equal(got.Payload, buf) {
		t.Fatal("fragment payload did not survive packet round trip")
	}
}
