package tier_test

import (
	"testing"
	"time"

	"github.com/horus-robotics/horus/profiler"
	"github.com/horus-robotics/horus/tier"
)

func TestClassifyBoundaries(t *testing.T) {
	cases := []struct {
		name  string
		setup func(p *profiler.Profiler)
		want  tier.Tier
	}{
		{
			name: "ultra-fast: 20 samples of 2us low variance",
			setup: func(p *profiler.Profiler) {
				for i := 0; i < 20; i++ {
					p.Record("n", 2*time.Microsecond)
				}
			},
			want: tier.UltraFast,
		},
		{
			name: "async-io: 18 samples of 10us, 2 of 1500us",
			setup: func(p *profiler.Profiler) {
				for i := 0; i < 18; i++ {
					p.Record("n", 10*time.Microsecond)
				}
				p.Record("n", 1500*time.Microsecond)
				p.Record("n", 1500*time.Microsecond)
			},
			want: tier.AsyncIO,
		},
		{
			name: "fast: 20 samples of 100us",
			setup: func(p *profiler.Profiler) {
				for i := 0; i < 20; i++ {
					p.Record("n", 100*time.Microsecond)
				}
			},
			want: tier.Fast,
		},
		{
			name: "background: 20 samples of 2ms",
			setup: func(p *profiler.Profiler) {
				for i := 0; i < 20; i++ {
					p.Record("n", 2*time.Millisecond)
				}
			},
			want: tier.Background,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := profiler.New()
			tc.setup(p)
			stats, ok := p.Stats("n")
			if !ok {
				t.Fatal("expected stats")
			}
			if got := tier.Classify(stats); got != tc.want {
				t.Fatalf("want %v, got %v (stats=%+v)", tc.want, got, stats)
			}
		})
	}
}

func TestClassifyIsDeterministicOverSameInput(t *testing.T) {
	p := profiler.New()
	for i := 0; i < 20; i++ {
		p.Record("n", 100*time.Microsecond)
	}
	stats, _ := p.Stats("n")
	first := tier.Classify(stats)
	second := tier.Classify(stats)
	if first != second {
		t.Fatalf("classifier must be pure over NodeStats: got %v then %v", first, second)
	}
}

func TestClassifierRunAssignsWarmupNodesToFast(t *testing.T) {
	p := profiler.New()
	p.Record("brand-new", time.Microsecond)
	c := tier.New(p)
	assignments := c.Run()
	if assignments["brand-new"] != tier.Fast {
		t.Fatalf("expected warmup node to land on Fast, got %v", assignments["brand-new"])
	}
}
