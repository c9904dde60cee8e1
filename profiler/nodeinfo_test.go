package profiler_test

import (
	"strings"
	"testing"
	"time"

	"github.com/horus-robotics/horus/profiler"
)

func TestInfoCarriesLastTickAndIPCLatency(t *testing.T) {
	p := profiler.New()
	p.Record("nav", 100*time.Microsecond)
	p.Record("nav", 250*time.Microsecond)
	p.RecordIPCLatency("nav", 40*time.Microsecond)
	p.AddDropped("nav", 3)

	info, ok := p.Info("nav")
	if !ok {
		t.Fatal("expected info for nav")
	}
	if info.LastTickUs != 250 {
		t.Fatalf("want last tick 250us, got %v", info.LastTickUs)
	}
	if info.LastIPCLatencyUs != 40 {
		t.Fatalf("want ipc latency 40us, got %v", info.LastIPCLatencyUs)
	}
	if info.DroppedMessages != 3 {
		t.Fatalf("want 3 dropped, got %d", info.DroppedMessages)
	}
}

func TestLogSummaryRingEvictsOldest(t *testing.T) {
	p := profiler.New()
	p.Record("nav", time.Microsecond)
	for i := 0; i < 12; i++ {
		p.LogSummary("nav", strings.Repeat("x", i+1))
	}
	info, _ := p.Info("nav")
	if len(info.RecentLogs) != 8 {
		t.Fatalf("want ring capped at 8 lines, got %d", len(info.RecentLogs))
	}
	if info.RecentLogs[len(info.RecentLogs)-1] != strings.Repeat("x", 12) {
		t.Fatal("newest log line missing from the ring")
	}
}

func TestInfoJSONListsNodesSorted(t *testing.T) {
	p := profiler.New()
	p.Record("zeta", time.Microsecond)
	p.Record("alpha", time.Microsecond)

	body, err := p.InfoJSON()
	if err != nil {
		t.Fatalf("InfoJSON: %v", err)
	}
	s := string(body)
	if !strings.Contains(s, `"alpha"`) || !strings.Contains(s, `"zeta"`) {
		t.Fatalf("snapshot missing nodes: %s", s)
	}
	if strings.Index(s, `"alpha"`) > strings.Index(s, `"zeta"`) {
		t.Fatalf("snapshot not sorted by name: %s", s)
	}
}
