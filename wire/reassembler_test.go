package wire_test

import (
	"bytes"
	"testing"

	"github.com/horus-robotics/horus/wire"
)

func TestFragmentManagerReassemblesOutOfOrder(t *testing.T) {
	fm := wire.NewFragmentManager("test-topic")
	defer fm.Close()

	payload := bytes.Repeat([]byte{0x7A}, 200)
	frags := wire.Fragment(payload, 64, 1)

	// deliver out of order: last fragment first
	for i := len(frags) - 1; i >= 0; i-- {
		got, done := fm.Reassemble("test-topic", frags[i])
		if i == 0 {
			if !done {
				t.Fatal("expected reassembly to complete on the final fragment")
			}
			if !bytes.Equal(got, payload) {
				t.Fatal("reassembled payload mismatch")
			}
		} else if done {
			t.Fatalf("reassembly completed early at fragment %d", i)
		}
	}
}

func TestFragmentManagerDropsDuplicateAfterCompletion(t *testing.T) {
	fm := wire.NewFragmentManager("test-topic")
	defer fm.Close()

	payload := bytes.Repeat([]byte{0x11}, 10)
	frags := wire.Fragment(payload, 64, 2) // fits in one fragment
	_, done := fm.Reassemble("test-topic", frags[0])
	if !done {
		t.Fatal("expected single-fragment message to complete immediately")
	}
	// retransmit of the same (topic, fragment_id): must not complete again
	_, done = fm.Reassemble("test-topic", frags[0])
	if done {
		t.Fatal("expected duplicate fragment after completion to be dropped")
	}
}

func TestCompressDecompressRoundTrip(t *testing.T) {
	payload := bytes.Repeat([]byte("horus-compressible-payload-"), 50)
	compressed, err := wire.Compress(payload)
	if err != nil {
		t.Fatalf("Compress: %v", err)
	}
	got, err := wire.Decompress(compressed)
	if err != nil {
		t.Fatalf("Decompress: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatal("decompressed payload mismatch")
	}
}
