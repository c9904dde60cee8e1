//go:build !debug

// Package debug provides build-tag-gated internal invariant checks for
// ring/hub/router code paths where a violated invariant indicates an
// implementation bug rather than a recoverable status (Full/Empty/Lagged).
package debug

import "sync"

func ON() bool { return false }

func Assert(_ bool, _ ...any)            {}
func AssertFunc(_ func() bool, _ ...any) {}
func AssertNoErr(_ error)                {}
func Assertf(_ bool, _ string, _ ...any) {}
func Func(_ func())                      {}

func AssertMutexLocked(_ *sync.Mutex)      {}
func AssertRWMutexLocked(_ *sync.RWMutex)  {}
func AssertRWMutexRLocked(_ *sync.RWMutex) {}
