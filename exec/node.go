// Package exec implements the tiered executor: a set of
// nodes, each with a tick function and a tier, dispatched according to
// that tier's scheduling model. UltraFast and Fast run cooperatively
// inline on the executor's own hot thread; AsyncIO fans out onto a
// task pool via golang.org/x/sync/errgroup; Background runs on a
// CPU-sized thread pool; Isolated is bridged through a hub.Hub to a
// child OS process the executor does not otherwise manage.
package exec

import (
	"context"

	"github.com/horus-robotics/horus/tier"
)

// Node is the executor's view of a unit of work: an opaque object with
// a name, a tick function, and a tier. Tick must not retain ctx or
// any argument beyond its own return; the executor reuses contexts
// across ticks.
type Node interface {
	Name() string
	Tick(ctx context.Context) error
	Tier() tier.Tier
}

// node is the minimal concrete Node used by tests and simple callers;
// application code is free to implement Node directly on its own
// types instead.
type node struct {
	name string
	tick func(context.Context) error
	t    tier.Tier
}

// NewNode wraps a plain tick function into a Node pinned to tier t.
// The executor dispatches a node by the tier it reports at AddNode time
// and does not re-tier it; Reclassify only reports the classifier's
// current assignment.
func NewNode(name string, t tier.Tier, tick func(context.Context) error) Node {
	return &node{name: name, tick: tick, t: t}
}

func (n *node) Name() string                  { return n.name }
func (n *node) Tick(ctx context.Context) error { return n.tick(ctx) }
func (n *node) Tier() tier.Tier               { return n.t }
