package wire

import "encoding/binary"

// FragmentHeader is the header carried inside Payload when
// MsgType == MsgFragment: {fragment_id, index, total, data}.
type FragmentHeader struct {
	FragmentID uint32
	Index      uint16
	Total      uint16
	Data       []byte
}

const fragmentHeaderSize = 4 + 2 + 2 + 4 // fragment_id, index, total, data_len

// EncodeFragment serializes a FragmentHeader into the Payload bytes a
// MsgFragment packet carries.
func EncodeFragment(f *FragmentHeader) []byte {
	buf := make([]byte, fragmentHeaderSize+len(f.Data))
	binary.LittleEndian.PutUint32(buf[0:], f.FragmentID)
	binary.LittleEndian.PutUint16(buf[4:], f.Index)
	binary.LittleEndian.PutUint16(buf[6:], f.Total)
	binary.LittleEndian.PutUint32(buf[8:], uint32(len(f.Data)))
	copy(buf[fragmentHeaderSize:], f.Data)
	return buf
}

// DecodeFragment parses the FragmentHeader carried in a MsgFragment
// packet's Payload.
func DecodeFragment(buf []byte) (*FragmentHeader, error) {
	if len(buf) < fragmentHeaderSize {
		return nil, errFragmentTooShort
	}
	dataLen := int(binary.LittleEndian.Uint32(buf[8:]))
	if fragmentHeaderSize+dataLen > len(buf) {
		return nil, errFragmentTooShort
	}
	return &FragmentHeader{
		FragmentID: binary.LittleEndian.Uint32(buf[0:]),
		Index:      binary.LittleEndian.Uint16(buf[4:]),
		Total:      binary.LittleEndian.Uint16(buf[6:]),
		Data:       append([]byte(nil), buf[fragmentHeaderSize:fragmentHeaderSize+dataLen]...),
	}, nil
}

// Fragment splits payload into pieces no larger than mtu bytes of
// fragment data each. If it already fits, it returns a single fragment
// with Total == 1; the caller emits MsgData for that case instead of a
// one-piece MsgFragment.
func Fragment(payload []byte, mtu int, fragmentID uint32) []*FragmentHeader {
	if len(payload) <= mtu {
		return []*FragmentHeader{{FragmentID: fragmentID, Index: 0, Total: 1, Data: payload}}
	}
	n := (len(payload) + mtu - 1) / mtu
	frags := make([]*FragmentHeader, 0, n)
	for i := 0; i < n; i++ {
		start := i * mtu
		end := start + mtu
		if end > len(payload) {
			end = len(payload)
		}
		frags = append(frags, &FragmentHeader{
			FragmentID: fragmentID,
			Index:      uint16(i),
			Total:      uint16(n),
			Data:       payload[start:end],
		})
	}
	return frags
}
