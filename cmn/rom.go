package cmn

import (
	"sync/atomic"
	"time"
)

// readMostly is a process-wide, read-mostly snapshot of the handful of
// Config fields the ring/hub/router hot paths check on every call. It
// exists so a tick on the UltraFast/Fast hot thread never takes a lock
// or dereferences a shared *Config -- it loads an atomic pointer once.
type readMostly struct {
	cfg atomic.Pointer[Config]
}

var Rom readMostly

func init() { Rom.cfg.Store(DefaultConfig()) }

// Set installs a new Config snapshot, e.g. on startup or on receiving
// updated options from an operator tool.
func (rom *readMostly) Set(cfg *Config) { rom.cfg.Store(cfg) }

func (rom *readMostly) Get() *Config { return rom.cfg.Load() }

func (rom *readMostly) RingCapacity() int       { return rom.Get().Ring.Capacity }
func (rom *readMostly) MaxReaders() int         { return rom.Get().Ring.MaxReaders }
func (rom *readMostly) MTU() int                { return rom.Get().Fragment.MTU }
func (rom *readMostly) ReassemblyTimeout() time.Duration {
	return rom.Get().Fragment.ReassemblyTimeout
}
func (rom *readMostly) RouterIdleTimeout() time.Duration { return rom.Get().Router.IdleTimeout }
