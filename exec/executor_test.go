package exec_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/horus-robotics/horus/exec"
	"github.com/horus-robotics/horus/profiler"
	"github.com/horus-robotics/horus/tier"
)

func TestExecutorTicksEveryTierAtLeastOnce(t *testing.T) {
	prof := profiler.New()
	ex := exec.New(prof)

	var ultraFast, fast, asyncIO, background atomic.Int64
	ex.AddNode(exec.NewNode("uf", tier.UltraFast, func(context.Context) error {
		ultraFast.Add(1)
		return nil
	}))
	ex.AddNode(exec.NewNode("f", tier.Fast, func(context.Context) error {
		fast.Add(1)
		return nil
	}))
	ex.AddNode(exec.NewNode("a", tier.AsyncIO, func(context.Context) error {
		asyncIO.Add(1)
		return nil
	}))
	ex.AddNode(exec.NewNode("b", tier.Background, func(context.Context) error {
		background.Add(1)
		return nil
	}))

	ctx, cancel := context.WithCancel(context.Background())
	if err := ex.Start(ctx, 5*time.Millisecond); err != nil {
		t.Fatalf("start: %v", err)
	}
	time.Sleep(100 * time.Millisecond)
	cancel()
	ex.Stop()

	if ultraFast.Load() == 0 {
		t.Error("UltraFast node never ticked")
	}
	if fast.Load() == 0 {
		t.Error("Fast node never ticked")
	}
	if asyncIO.Load() == 0 {
		t.Error("AsyncIO node never ticked")
	}
	if background.Load() == 0 {
		t.Error("Background node never ticked")
	}
}

func TestExecutorRecordsTicksToProfiler(t *testing.T) {
	prof := profiler.New()
	ex := exec.New(prof)
	ex.AddNode(exec.NewNode("n", tier.Fast, func(context.Context) error { return nil }))

	ctx, cancel := context.WithCancel(context.Background())
	if err := ex.Start(ctx, 5*time.Millisecond); err != nil {
		t.Fatalf("start: %v", err)
	}
	time.Sleep(50 * time.Millisecond)
	cancel()
	ex.Stop()

	stats, ok := prof.Stats("n")
	if !ok {
		t.Fatal("expected profiler stats for node n")
	}
	if stats.Count == 0 {
		t.Error("expected at least one recorded tick")
	}
}

func TestReclassifyIsPureGivenStableProfile(t *testing.T) {
	prof := profiler.New()
	for i := 0; i < 25; i++ {
		prof.Record("n", 2*time.Microsecond)
	}
	ex := exec.New(prof)
	ex.AddNode(exec.NewNode("n", tier.Fast, func(context.Context) error { return nil }))

	first := ex.Reclassify()
	second := ex.Reclassify()
	if first["n"] != second["n"] {
		t.Fatalf("reclassify not stable: %v then %v", first["n"], second["n"])
	}
}
