package profiler_test

import (
	"testing"
	"time"

	"github.com/horus-robotics/horus/profiler"
)

func TestRecordAccumulatesCountAndMinMax(t *testing.T) {
	p := profiler.New()
	p.Record("node-a", 2*time.Microsecond)
	p.Record("node-a", 10*time.Microsecond)
	p.Record("node-a", 1*time.Microsecond)

	s, ok := p.Stats("node-a")
	if !ok {
		t.Fatal("expected stats for node-a")
	}
	if s.Count != 3 {
		t.Fatalf("want count=3, got %d", s.Count)
	}
	if s.MinUs != 1 || s.MaxUs != 10 {
		t.Fatalf("want min=1 max=10, got min=%v max=%v", s.MinUs, s.MaxUs)
	}
}

func TestStatsFalseForUnknownNode(t *testing.T) {
	p := profiler.New()
	if _, ok := p.Stats("never-recorded"); ok {
		t.Fatal("expected no stats for a node never recorded")
	}
}

func TestWarmupKeepsBooleansFalse(t *testing.T) {
	p := profiler.New()
	for i := 0; i < 5; i++ {
		p.Record("warming-up", 2*time.Microsecond)
	}
	s, ok := p.Stats("warming-up")
	if !ok {
		t.Fatal("expected stats")
	}
	if s.IsDeterministic || s.IsIOHeavy {
		t.Fatalf("expected both classifiers false before the sample window fills, got %+v", s)
	}
}

func TestDeterministicAfterWindowFills(t *testing.T) {
	p := profiler.New()
	for i := 0; i < 25; i++ {
		p.Record("ultra-fast", 2*time.Microsecond)
	}
	s, _ := p.Stats("ultra-fast")
	if !s.IsDeterministic {
		t.Fatalf("expected low-variance samples to be classified deterministic, got %+v", s)
	}
}

func TestIOHeavyDetectedFromMixedSamples(t *testing.T) {
	p := profiler.New()
	for i := 0; i < 18; i++ {
		p.Record("io-node", 10*time.Microsecond)
	}
	p.Record("io-node", 1500*time.Microsecond)
	p.Record("io-node", 1500*time.Microsecond)

	s, _ := p.Stats("io-node")
	if !s.IsIOHeavy {
		t.Fatalf("expected 2/20 long samples to trip is_io_heavy, got %+v", s)
	}
}

func TestUniformlySlowIsNotIOHeavy(t *testing.T) {
	p := profiler.New()
	for i := 0; i < 20; i++ {
		p.Record("slow-node", 2*time.Millisecond)
	}
	s, _ := p.Stats("slow-node")
	if s.IsIOHeavy {
		t.Fatalf("expected uniformly slow samples not to be classified io-heavy, got %+v", s)
	}
}
