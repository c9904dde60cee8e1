package profiler

import (
	"sort"
	"time"

	jsoniter "github.com/json-iterator/go"
)

var infoJSON = jsoniter.ConfigCompatibleWithStandardLibrary

// logRingLen bounds the per-node ring of recent log summaries.
const logRingLen = 8

// NodeInfo is the tooling-facing runtime record for one node: a stable
// name, the last tick duration, the last observed end-to-end IPC
// latency, a dropped-message count (fed by callers that observe
// cos.ErrLagged on the node's subscriptions), and a ring of recent log
// summaries.
type NodeInfo struct {
	Name             string   `json:"name"`
	LastTickUs       float64  `json:"last_tick_us"`
	LastIPCLatencyUs float64  `json:"last_ipc_latency_us"`
	DroppedMessages  int64    `json:"dropped_messages"`
	RecentLogs       []string `json:"recent_logs,omitempty"`
}

// RecordIPCLatency notes the last observed end-to-end latency of a
// message the node consumed (send timestamp to recv, measured by the
// caller).
func (p *Profiler) RecordIPCLatency(name string, d time.Duration) {
	n := p.nodeFor(name)
	n.mu.Lock()
	n.ipcUs = float64(d.Microseconds())
	n.mu.Unlock()
}

// AddDropped accumulates messages the node lost to a lagging cursor.
func (p *Profiler) AddDropped(name string, count int64) {
	n := p.nodeFor(name)
	n.mu.Lock()
	n.droppedMsgs += count
	n.mu.Unlock()
}

// LogSummary appends one line to the node's recent-log ring, evicting
// the oldest once the ring is full.
func (p *Profiler) LogSummary(name, line string) {
	n := p.nodeFor(name)
	n.mu.Lock()
	n.logs[n.logAt%logRingLen] = line
	n.logAt++
	n.mu.Unlock()
}

// Info returns the node's current NodeInfo, or false if the node has
// never been recorded.
func (p *Profiler) Info(name string) (NodeInfo, bool) {
	p.mu.RLock()
	n, ok := p.nodes[name]
	p.mu.RUnlock()
	if !ok {
		return NodeInfo{}, false
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.infoLocked(name), true
}

// infoLocked assumes n.mu is held.
func (n *nodeState) infoLocked(name string) NodeInfo {
	info := NodeInfo{
		Name:             name,
		LastIPCLatencyUs: n.ipcUs,
		DroppedMessages:  n.droppedMsgs,
	}
	if n.writeAt > 0 {
		info.LastTickUs = n.window[n.writeAt-1]
	} else if n.full && len(n.window) > 0 {
		info.LastTickUs = n.window[len(n.window)-1]
	}
	count := n.logAt
	if count > logRingLen {
		count = logRingLen
	}
	for i := 0; i < count; i++ {
		info.RecentLogs = append(info.RecentLogs, n.logs[(n.logAt-count+i)%logRingLen])
	}
	return info
}

// InfoJSON marshals every known node's NodeInfo, sorted by name, for
// the operator-facing snapshot log and any tooling that scrapes it.
func (p *Profiler) InfoJSON() ([]byte, error) {
	names := p.Names()
	sort.Strings(names)
	infos := make([]NodeInfo, 0, len(names))
	for _, name := range names {
		if info, ok := p.Info(name); ok {
			infos = append(infos, info)
		}
	}
	return infoJSON.Marshal(infos)
}
