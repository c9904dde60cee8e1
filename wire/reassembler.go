package wire

import (
	"sync"
	"time"

	cuckoo "github.com/seiflotfy/cuckoofilter"

	"github.com/horus-robotics/horus/cmn"
	"github.com/horus-robotics/horus/cmn/cos"
	"github.com/horus-robotics/horus/cmn/mono"
	"github.com/horus-robotics/horus/hk"
)

type groupKey struct {
	topic      string
	fragmentID uint32
}

type partialGroup struct {
	total     uint16
	pieces    [][]byte // nil until that index arrives
	haveCnt   int
	bytes     int64
	touchedNs int64
}

// FragmentManager deposits fragments and reports the
// reassembled payload once every piece for a fragment_id has arrived.
// Stale partial groups are evicted by timeout, and the aggregate
// buffered-byte budget is enforced by evicting the oldest groups first.
type FragmentManager struct {
	mu         sync.Mutex
	groups     map[groupKey]*partialGroup
	totalBytes int64
	maxBytes   int64
	timeout    time.Duration
	seen       *cuckoo.Filter // dedups completed (topic,fragment_id) against late retransmits
	hkName     string
}

// NewFragmentManager starts a housekeeper entry that evicts groups
// older than cmn.Rom's reassembly timeout every time it fires.
func NewFragmentManager(topic string) *FragmentManager {
	fm := &FragmentManager{
		groups:   make(map[groupKey]*partialGroup),
		maxBytes: cmn.Rom.Get().Fragment.MaxBufferedBytes,
		timeout:  cmn.Rom.ReassemblyTimeout(),
		seen:     cuckoo.NewFilter(4096),
		hkName:   "wire-reassembler-" + cos.SanitizeTopic(topic) + "-" + cos.GenUUID(),
	}
	hk.Reg(fm.hkName, fm.sweep, fm.timeout)
	return fm
}

// Close unregisters the eviction sweep.
func (fm *FragmentManager) Close() { hk.Unreg(fm.hkName) }

func dedupKey(topic string, fragmentID uint32) []byte {
	b := make([]byte, len(topic)+4)
	copy(b, topic)
	b[len(topic)] = byte(fragmentID)
	b[len(topic)+1] = byte(fragmentID >> 8)
	b[len(topic)+2] = byte(fragmentID >> 16)
	b[len(topic)+3] = byte(fragmentID >> 24)
	return b
}

// Reassemble deposits one fragment and returns the reconstructed
// payload once `total` distinct indices for its fragment_id have all
// arrived.
func (fm *FragmentManager) Reassemble(topic string, f *FragmentHeader) ([]byte, bool) {
	key := dedupKey(topic, f.FragmentID)

	fm.mu.Lock()
	defer fm.mu.Unlock()

	if fm.seen.Lookup(key) {
		return nil, false // already completed and reported once; drop the retransmit
	}

	gk := groupKey{topic: topic, fragmentID: f.FragmentID}
	g, ok := fm.groups[gk]
	if !ok {
		g = &partialGroup{total: f.Total, pieces: make([][]byte, f.Total)}
		fm.groups[gk] = g
	}
	g.touchedNs = mono.NanoTime()

	if int(f.Index) >= len(g.pieces) || g.pieces[f.Index] != nil {
		return nil, false // out-of-range or duplicate index within an in-progress group
	}
	g.pieces[f.Index] = f.Data
	g.haveCnt++
	g.bytes += int64(len(f.Data))
	fm.totalBytes += int64(len(f.Data))

	fm.enforceByteBudget()

	if g.haveCnt < int(g.total) {
		return nil, false
	}

	delete(fm.groups, gk)
	fm.totalBytes -= g.bytes
	fm.seen.InsertUnique(key)

	out := make([]byte, 0, g.bytes)
	for _, piece := range g.pieces {
		out = append(out, piece...)
	}
	return out, true
}

// enforceByteBudget assumes fm.mu is held; evicts oldest partial
// groups (by touchedNs) until under fm.maxBytes.
func (fm *FragmentManager) enforceByteBudget() {
	for fm.totalBytes > fm.maxBytes && len(fm.groups) > 0 {
		var oldestKey groupKey
		var oldestNs int64 = -1
		for k, g := range fm.groups {
			if oldestNs == -1 || g.touchedNs < oldestNs {
				oldestNs = g.touchedNs
				oldestKey = k
			}
		}
		g := fm.groups[oldestKey]
		fm.totalBytes -= g.bytes
		delete(fm.groups, oldestKey)
	}
}

// sweep is the hk callback: evicts groups untouched for longer than
// fm.timeout and reschedules itself.
func (fm *FragmentManager) sweep() time.Duration {
	cutoff := mono.NanoTime() - fm.timeout.Nanoseconds()
	fm.mu.Lock()
	for k, g := range fm.groups {
		if g.touchedNs < cutoff {
			fm.totalBytes -= g.bytes
			delete(fm.groups, k)
		}
	}
	fm.mu.Unlock()
	return fm.timeout
}
