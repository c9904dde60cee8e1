package exec

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/horus-robotics/horus/cmn/cos"
	"github.com/horus-robotics/horus/cmn/nlog"
	"github.com/horus-robotics/horus/hk"
	"github.com/horus-robotics/horus/profiler"
	"github.com/horus-robotics/horus/tier"
)

// ErrIsolatedNeedsAddIsolated is returned by AddNode for a node pinned
// to tier.Isolated: that tier requires a child process and executable
// path, which a bare Node has no way to carry, so it must go through
// AddIsolated instead of AddNode.
var ErrIsolatedNeedsAddIsolated = errors.New("exec: tier.Isolated nodes must be registered via AddIsolated, not AddNode")

// defaultCadence is the tick period used when a node's application
// graph doesn't request a faster one; cadence selection belongs to the
// embedding application, so this is only the fallback.
const defaultCadence = 10 * time.Millisecond

// snapshotLogInterval paces the housekeeper job that logs the
// profiler's NodeInfo snapshot while the executor runs.
const snapshotLogInterval = 30 * time.Second

// Executor runs a fixed set of nodes per the per-tier scheduling
// contract. Nodes are added once, before Start, and each is dispatched
// by its pinned Tier() at AddNode time to the matching
// sub-scheduler (hot thread, async pool, background pool, or isolated
// process supervisor) for the executor's lifetime; a node's tier may
// change only between ticks, when the classifier is
// re-run, which this executor surfaces via Reclassify rather than
// silently migrating a running node mid-tick.
type Executor struct {
	prof *profiler.Profiler
	cls  *tier.Classifier

	hot   *hotThread
	async *asyncPool
	bg    *backgroundPool

	mu        sync.Mutex
	isolated  map[string]*isolatedProc
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	started   bool
	hkName    string
}

// New builds an Executor around a shared profiler so the executor's
// own tick recordings feed the same classifier an operator tool can
// query -- profiler and tier are one executor-owned pipeline, not two
// independently configured subsystems.
func New(prof *profiler.Profiler) *Executor {
	return &Executor{
		prof:     prof,
		cls:      tier.New(prof),
		hot:      newHotThread(prof),
		async:    newAsyncPool(prof),
		bg:       newBackgroundPool(prof),
		isolated: make(map[string]*isolatedProc),
	}
}

// AddNode registers n with the sub-scheduler matching its current
// Tier(). Must be called before Start; the executor does not support
// adding nodes to a running schedule. Returns ErrIsolatedNeedsAddIsolated
// for a tier.Isolated node rather than running it in-process, since that
// would silently drop the OS-process isolation the tier promises.
func (e *Executor) AddNode(n Node) error {
	switch n.Tier() {
	case tier.UltraFast, tier.Fast:
		e.hot.add(n)
	case tier.AsyncIO:
		e.async.add(n)
	case tier.Background:
		e.bg.add(n)
	case tier.Isolated:
		return ErrIsolatedNeedsAddIsolated
	}
	return nil
}

// AddIsolated launches path as a child process and bridges it to the
// executor's tick cadence via a command/status Hub pair.
func (e *Executor) AddIsolated(nodeName, path string, args ...string) error {
	p, err := newIsolatedProc(nodeName, path, args...)
	if err != nil {
		return err
	}
	e.mu.Lock()
	e.isolated[nodeName] = p
	e.mu.Unlock()
	return nil
}

// Start runs every sub-scheduler on its own goroutine with cadence,
// and returns immediately; call Stop (or cancel the Executor via
// context passed to Start) to shut down.
func (e *Executor) Start(ctx context.Context, cadence time.Duration) error {
	if cadence <= 0 {
		cadence = defaultCadence
	}
	ctx, cancel := context.WithCancel(ctx)
	e.mu.Lock()
	e.cancel = cancel
	e.started = true
	isolated := make([]*isolatedProc, 0, len(e.isolated))
	for _, p := range e.isolated {
		isolated = append(isolated, p)
	}
	e.mu.Unlock()

	for _, p := range isolated {
		if err := p.start(ctx); err != nil {
			cancel()
			return err
		}
	}

	e.wg.Add(3)
	go func() { defer e.wg.Done(); e.hot.run(ctx, cadence) }()
	go func() { defer e.wg.Done(); e.async.run(ctx, cadence) }()
	go func() { defer e.wg.Done(); e.bg.run(ctx, cadence) }()

	hkName := "exec-profiler-snapshot-" + cos.GenUUID()
	e.mu.Lock()
	e.hkName = hkName
	e.mu.Unlock()
	hk.Reg(hkName, func() time.Duration {
		if body, err := e.prof.InfoJSON(); err == nil && len(body) > 2 {
			nlog.Infof("exec: node info snapshot: %s", body)
		}
		return snapshotLogInterval
	}, snapshotLogInterval)

	if len(isolated) > 0 {
		e.wg.Add(1)
		go func() {
			defer e.wg.Done()
			ticker := time.NewTicker(cadence)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					for _, p := range isolated {
						p.stop()
					}
					return
				case <-ticker.C:
					for _, p := range isolated {
						p.tick()
					}
				}
			}
		}()
	}
	return nil
}

// Stop signals every sub-scheduler to exit at its next tick boundary
// and waits for them to drain.
func (e *Executor) Stop() {
	e.mu.Lock()
	cancel := e.cancel
	hkName := e.hkName
	e.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	if hkName != "" {
		hk.Unreg(hkName)
	}
	e.wg.Wait()
}

// Reclassify re-runs the classifier over the profiler's current
// snapshot and returns the full tier assignment. The executor does
// not act on the result automatically -- migrating a node between
// sub-schedulers requires quiescing it first so its ticks stay totally
// ordered and never concurrent with themselves, which is the caller's
// (application graph's) responsibility to sequence.
func (e *Executor) Reclassify() map[string]tier.Tier {
	return e.cls.Run()
}
