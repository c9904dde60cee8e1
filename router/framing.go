// Package router implements the central broker and its client: a
// length-framed TCP protocol relaying per-topic packets between Hubs
// on different hosts. Each frame is a u32 little-endian length prefix
// followed by exactly one encoded wire.Packet; frames exceeding the
// configured bound disconnect the offender.
package router

import (
	"encoding/binary"
	"io"

	"github.com/horus-robotics/horus/cmn/cos"
)

func readFrame(r io.Reader, maxFrame int) ([]byte, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return nil, err
	}
	n := binary.LittleEndian.Uint32(lenBuf[:])
	if maxFrame > 0 && int(n) > maxFrame {
		return nil, &cos.ErrMalformedPacket{Reason: "frame length exceeds configured bound"}
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

func writeFrame(w io.Writer, payload []byte) error {
	var lenBuf [4]byte
	binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(payload)))
	if _, err := w.Write(lenBuf[:]); err != nil {
		return cos.WrapIO("write frame length", err)
	}
	if _, err := w.Write(payload); err != nil {
		return cos.WrapIO("write frame payload", err)
	}
	return nil
}
