// Package hk provides a mechanism for registering cleanup and periodic
// housekeeping functions invoked at their own intervals, off a single
// heap-ordered ticker goroutine. HORUS uses it for fragment-reassembly
// timeout eviction, periodic profiler node-info snapshot logging, and
// log-buffer flushing.
package hk

import (
	"container/heap"
	"sync"
	"time"
)

// NameSuffix disambiguates re-registration of the same logical name.
const NameSuffix = "-hk"

type request struct {
	name     string
	f        func() time.Duration // returns the next interval, or <=0 to unregister
	due      time.Time
	initial  time.Duration
	index    int
}

// a min-heap of pending requests ordered by due time
type reqHeap []*request

func (h reqHeap) Len() int            { return len(h) }
func (h reqHeap) Less(i, j int) bool  { return h[i].due.Before(h[j].due) }
func (h reqHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i]; h[i].index, h[j].index = i, j }
func (h *reqHeap) Push(x any) {
	r := x.(*request)
	r.index = len(*h)
	*h = append(*h, r)
}
func (h *reqHeap) Pop() any {
	old := *h
	n := len(old)
	r := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return r
}

type Housekeeper struct {
	mu      sync.Mutex
	byName  map[string]*request
	heap    reqHeap
	wake    chan struct{}
	started chan struct{}
	stop    chan struct{}
	once    sync.Once
}

// DefaultHK is the process-wide housekeeper; Reg/Unreg are convenience
// wrappers over it. It starts with the process so a Reg from any
// package init order fires without further setup.
var DefaultHK = New()

func init() { go DefaultHK.Run() }

func New() *Housekeeper {
	return &Housekeeper{
		byName:  make(map[string]*request),
		wake:    make(chan struct{}, 1),
		started: make(chan struct{}),
		stop:    make(chan struct{}),
	}
}

// Reg registers f to run once after d, and then again after whatever
// duration f itself returns (<=0 unregisters it).
func (hk *Housekeeper) Reg(name string, f func() time.Duration, d time.Duration) {
	r := &request{name: name, f: f, due: time.Now().Add(d), initial: d}
	hk.mu.Lock()
	if old, ok := hk.byName[name]; ok {
		heap.Fix(&hk.heap, old.index)
		hk.remove(old)
	}
	hk.byName[name] = r
	heap.Push(&hk.heap, r)
	hk.mu.Unlock()
	hk.poke()
}

func (hk *Housekeeper) Unreg(name string) {
	hk.mu.Lock()
	if r, ok := hk.byName[name]; ok {
		hk.remove(r)
	}
	hk.mu.Unlock()
}

// remove assumes hk.mu is held.
func (hk *Housekeeper) remove(r *request) {
	delete(hk.byName, r.name)
	if r.index >= 0 && r.index < len(hk.heap) && hk.heap[r.index] == r {
		heap.Remove(&hk.heap, r.index)
	}
}

func (hk *Housekeeper) poke() {
	select {
	case hk.wake <- struct{}{}:
	default:
	}
}

// Run drives the housekeeper until Stop is called. Intended to run in
// its own goroutine for the lifetime of the process.
func (hk *Housekeeper) Run() {
	close(hk.started)
	timer := time.NewTimer(time.Hour)
	defer timer.Stop()
	for {
		hk.mu.Lock()
		var wait time.Duration
		if len(hk.heap) == 0 {
			wait = time.Hour
		} else if d := time.Until(hk.heap[0].due); d > 0 {
			wait = d
		} else {
			wait = 0
		}
		hk.mu.Unlock()

		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(wait)

		select {
		case <-hk.stop:
			return
		case <-hk.wake:
			continue
		case <-timer.C:
			hk.fire()
		}
	}
}

func (hk *Housekeeper) fire() {
	now := time.Now()
	var due []*request
	hk.mu.Lock()
	for len(hk.heap) > 0 && !hk.heap[0].due.After(now) {
		r := heap.Pop(&hk.heap).(*request)
		due = append(due, r)
	}
	hk.mu.Unlock()

	for _, r := range due {
		next := r.f()
		if next <= 0 {
			hk.mu.Lock()
			delete(hk.byName, r.name)
			hk.mu.Unlock()
			continue
		}
		r.due = time.Now().Add(next)
		hk.mu.Lock()
		hk.byName[r.name] = r
		heap.Push(&hk.heap, r)
		hk.mu.Unlock()
	}
}

func (hk *Housekeeper) WaitStarted() { <-hk.started }

func (hk *Housekeeper) Stop() { hk.once.Do(func() { close(hk.stop) }) }

// package-level convenience wrappers over DefaultHK

func Reg(name string, f func() time.Duration, d time.Duration) { DefaultHK.Reg(name, f, d) }
func Unreg(name string)                                        { DefaultHK.Unreg(name) }
func WaitStarted()                                              { DefaultHK.WaitStarted() }
