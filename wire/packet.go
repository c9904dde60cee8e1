// Package wire implements the canonical byte framing shared by every
// non-shared-memory transport: a packet envelope codec, plus
// fragmentation/reassembly for payloads larger than one datagram.
package wire

import (
	"encoding/binary"
	"unicode/utf8"

	"github.com/OneOfOne/xxhash"

	"github.com/horus-robotics/horus/cmn/cos"
)

// MsgType enumerates the packet kinds carried in the envelope.
type MsgType uint8

const (
	MsgData MsgType = iota
	MsgFragment
	MsgRouterSubscribe
	MsgRouterUnsubscribe
	MsgRouterPublish
)

const magic uint16 = 0x4855 // "HU"

// Packet is the canonical envelope: {topic, msg_type, sequence, payload}.
type Packet struct {
	Topic    string
	MsgType  MsgType
	Sequence uint32
	Payload  []byte
}

// Encode serializes p into buf[:n], growing buf if it's too small. The
// trailing 8 bytes are an xxhash64 checksum over everything preceding
// it, so Decode can reject a corrupted frame before the payload ever
// reaches a subscriber.
func Encode(p *Packet, buf []byte) []byte {
	topicLen := len(p.Topic)
	size := 2 + 1 + 2 + topicLen + 4 + 4 + len(p.Payload) + 8
	if cap(buf) < size {
		buf = make([]byte, size)
	} else {
		buf = buf[:size]
	}
	off := 0
	binary.LittleEndian.PutUint16(buf[off:], magic)
	off += 2
	buf[off] = byte(p.MsgType)
	off++
	binary.LittleEndian.PutUint16(buf[off:], uint16(topicLen))
	off += 2
	copy(buf[off:], p.Topic)
	off += topicLen
	binary.LittleEndian.PutUint32(buf[off:], p.Sequence)
	off += 4
	binary.LittleEndian.PutUint32(buf[off:], uint32(len(p.Payload)))
	off += 4
	copy(buf[off:], p.Payload)
	off += len(p.Payload)
	sum := xxhash.Checksum64(buf[:off])
	binary.LittleEndian.PutUint64(buf[off:], sum)
	return buf
}

// Decode validates magic, lengths, UTF-8, and checksum, returning
// cos.ErrMalformedPacket on any failure.
func Decode(buf []byte) (*Packet, error) {
	if len(buf) < 2+1+2+4+4+8 {
		return nil, &cos.ErrMalformedPacket{Reason: "frame too short"}
	}
	off := 0
	if got := binary.LittleEndian.Uint16(buf[off:]); got != magic {
		return nil, &cos.ErrMalformedPacket{Reason: "bad magic"}
	}
	off += 2
	msgType := MsgType(buf[off])
	off++
	topicLen := int(binary.LittleEndian.Uint16(buf[off:]))
	off += 2
	if off+topicLen+4+4+8 > len(buf) {
		return nil, &cos.ErrMalformedPacket{Reason: "topic length out of bounds"}
	}
	topic := buf[off : off+topicLen]
	if !utf8.Valid(topic) {
		return nil, &cos.ErrMalformedPacket{Reason: "topic is not valid UTF-8"}
	}
	off += topicLen
	sequence := binary.LittleEndian.Uint32(buf[off:])
	off += 4
	payloadLen := int(binary.LittleEndian.Uint32(buf[off:]))
	off += 4
	if off+payloadLen+8 > len(buf) {
		return nil, &cos.ErrMalformedPacket{Reason: "payload length out of bounds"}
	}
	payload := buf[off : off+payloadLen]
	off += payloadLen
	wantSum := binary.LittleEndian.Uint64(buf[off:])
	gotSum := xxhash.Checksum64(buf[:off])
	if wantSum != gotSum {
		return nil, &cos.ErrMalformedPacket{Reason: "checksum mismatch"}
	}
	return &Packet{
		Topic:    string(topic),
		MsgType:  msgType,
		Sequence: sequence,
		Payload:  append([]byte(nil), payload...),
	}, nil
}
