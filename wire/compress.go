package wire

import (
	"encoding/binary"

	"github.com/pierrec/lz4/v3"

	"github.com/horus-robotics/horus/cmn/cos"
)

// Compress prefixes the lz4-compressed payload with its original
// length (needed by UncompressBlock's destination sizing) so the
// receiver can allocate the right buffer before decompressing.
func Compress(payload []byte) ([]byte, error) {
	dst := make([]byte, 4+lz4.CompressBlockBound(len(payload)))
	binary.LittleEndian.PutUint32(dst[:4], uint32(len(payload)))
	n, err := lz4.CompressBlock(payload, dst[4:], nil)
	if err != nil {
		return nil, cos.WrapIO("lz4 compress", err)
	}
	if n == 0 {
		// incompressible: lz4 declines, fall back to storing raw with n==len(payload)
		copy(dst[4:], payload)
		n = len(payload)
		binary.LittleEndian.PutUint32(dst[:4], uint32(len(payload))|1<<31)
		return dst[:4+n], nil
	}
	return dst[:4+n], nil
}

// Decompress reverses Compress.
func Decompress(buf []byte) ([]byte, error) {
	if len(buf) < 4 {
		return nil, &cos.ErrMalformedPacket{Reason: "compressed payload too short"}
	}
	raw := binary.LittleEndian.Uint32(buf[:4])
	stored := raw&(1<<31) != 0
	size := int(raw &^ (1 << 31))
	if stored {
		if len(buf)-4 < size {
			return nil, &cos.ErrMalformedPacket{Reason: "stored payload truncated"}
		}
		return append([]byte(nil), buf[4:4+size]...), nil
	}
	dst := make([]byte, size)
	n, err := lz4.UncompressBlock(buf[4:], dst)
	if err != nil {
		return nil, cos.WrapIO("lz4 decompress", err)
	}
	return dst[:n], nil
}
