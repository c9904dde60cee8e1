package wire

import (
	"github.com/klauspost/reedsolomon"

	"github.com/horus-robotics/horus/cmn"
	"github.com/horus-robotics/horus/cmn/cos"
)

// FEC wraps a Reed-Solomon encoder sized from a cmn.FECConfig.
// EncodeParity splits a payload into DataShards data shards plus
// ParityShards parity shards, and Reconstruct rebuilds the payload after
// losing up to ParityShards of them. Fragment and FragmentManager do not
// use it: fragments carry no parity, and a lost fragment is not recovered.
type FEC struct {
	enc          reedsolomon.Encoder
	dataShards   int
	parityShards int
}

// NewFEC returns nil if FEC is disabled in the current config.
func NewFEC(cfg cmn.FECConfig) (*FEC, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	enc, err := reedsolomon.New(cfg.DataShards, cfg.ParityShards)
	if err != nil {
		return nil, cos.WrapIO("reedsolomon.New", err)
	}
	return &FEC{enc: enc, dataShards: cfg.DataShards, parityShards: cfg.ParityShards}, nil
}

// EncodeParity splits payload into f.dataShards equal-size data shards
// (padding the last) and returns them followed by f.parityShards parity
// shards, all equal length -- ready to be sent as one fragment each.
func (f *FEC) EncodeParity(payload []byte) ([][]byte, error) {
	shardSize := (len(payload) + f.dataShards - 1) / f.dataShards
	shards := make([][]byte, f.dataShards+f.parityShards)
	for i := 0; i < f.dataShards; i++ {
		shards[i] = make([]byte, shardSize)
		start := i * shardSize
		if start < len(payload) {
			end := start + shardSize
			if end > len(payload) {
				end = len(payload)
			}
			copy(shards[i], payload[start:end])
		}
	}
	for i := f.dataShards; i < len(shards); i++ {
		shards[i] = make([]byte, shardSize)
	}
	if err := f.enc.Encode(shards); err != nil {
		return nil, cos.WrapIO("reedsolomon.Encode", err)
	}
	return shards, nil
}

// Reconstruct fills in any nil shards (lost fragments) in place.
// originalLen trims the trailing pad added by EncodeParity.
func (f *FEC) Reconstruct(shards [][]byte, originalLen int) ([]byte, error) {
	if err := f.enc.Reconstruct(shards); err != nil {
		return nil, cos.WrapIO("reedsolomon.Reconstruct", err)
	}
	out := make([]byte, 0, originalLen)
	for i := 0; i < f.dataShards && len(out) < originalLen; i++ {
		out = append(out, shards[i]...)
	}
	if len(out) > originalLen {
		out = out[:originalLen]
	}
	return out, nil
}
