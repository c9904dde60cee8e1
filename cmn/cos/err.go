// Package cos provides common low-level types, error kinds, and topic
// utilities shared by ring, link, hub, wire, udp, and router.
package cos

import (
	"errors"
	"fmt"
	"sync"

	pkgerrors "github.com/pkg/errors"
)

// Error kinds visible at the core boundary. Full/Empty/Lagged are
// status values, not catastrophic failures -- callers are expected to
// check for them and decide to drop or retry.
type (
	// ErrFull: Link ring cannot accept more (producer never overwrites
	// unread cells).
	ErrFull struct{ Topic string }

	// ErrEmpty: no new value available (non-blocking recv).
	ErrEmpty struct{ Topic string }

	// ErrLagged: a Hub reader skipped N messages because the writer
	// overwrote cells the reader had not yet observed.
	ErrLagged struct {
		Topic   string
		Skipped int64
	}

	// ErrCapacityMismatch: a second create_or_open disagrees with the
	// capacity/cell-size fixed by the first caller.
	ErrCapacityMismatch struct {
		Topic              string
		Want, Have         int
		WantCell, HaveCell int
	}

	// ErrMalformedPacket: the wire codec rejected a frame.
	ErrMalformedPacket struct{ Reason string }

	// ErrFragmentTimeout: the reassembler evicted a partial group before
	// all fragments arrived.
	ErrFragmentTimeout struct {
		Topic      string
		FragmentID uint32
	}

	// ErrTopicRoleConflict: a second producer or consumer tried to open
	// a Link topic whose role is already taken.
	ErrTopicRoleConflict struct {
		Topic string
		Role  string
	}

	// ErrHandshakeFailed: the optional encrypted handshake failed before
	// a router connection reached Active.
	ErrHandshakeFailed struct{ Reason string }
)

func (e *ErrFull) Error() string  { return fmt.Sprintf("topic %q: ring full", e.Topic) }
func (e *ErrEmpty) Error() string { return fmt.Sprintf("topic %q: no new value", e.Topic) }
func (e *ErrLagged) Error() string {
	return fmt.Sprintf("topic %q: reader lagged, skipped %d message(s)", e.Topic, e.Skipped)
}
func (e *ErrCapacityMismatch) Error() string {
	return fmt.Sprintf("topic %q: capacity mismatch (want cap=%d cell=%d, have cap=%d cell=%d)",
		e.Topic, e.Want, e.WantCell, e.Have, e.HaveCell)
}
func (e *ErrMalformedPacket) Error() string { return "malformed packet: " + e.Reason }
func (e *ErrFragmentTimeout) Error() string {
	return fmt.Sprintf("topic %q: fragment group %d timed out before reassembly", e.Topic, e.FragmentID)
}
func (e *ErrTopicRoleConflict) Error() string {
	return fmt.Sprintf("topic %q: %s role already taken", e.Topic, e.Role)
}
func (e *ErrHandshakeFailed) Error() string { return "handshake failed: " + e.Reason }

func IsErrFull(err error) bool  { var e *ErrFull; return errors.As(err, &e) }
func IsErrEmpty(err error) bool { var e *ErrEmpty; return errors.As(err, &e) }

func AsErrLagged(err error) (n int64, ok bool) {
	var e *ErrLagged
	if errors.As(err, &e) {
		return e.Skipped, true
	}
	return 0, false
}

// WrapIO wraps a lower-level OS/socket/mmap error with stack context,
// without discarding errors.Is/As compatibility.
func WrapIO(op string, err error) error {
	if err == nil {
		return nil
	}
	return pkgerrors.Wrapf(err, "io: %s", op)
}

// Errs collects up to maxErrs distinct errors -- used by the router
// broker when a forward to one subscriber fails: the failure is
// recorded and that subscriber misses the packet, but forwarding to the
// rest of the topic's subscribers continues uninterrupted.
type Errs struct {
	mu   sync.Mutex
	errs []error
}

const maxErrs = 8

func (e *Errs) Add(err error) {
	if err == nil {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, added := range e.errs {
		if added.Error() == err.Error() {
			return
		}
	}
	if len(e.errs) < maxErrs {
		e.errs = append(e.errs, err)
	}
}

func (e *Errs) Cnt() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.errs)
}

func (e *Errs) JoinErr() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.errs) == 0 {
		return nil
	}
	return errors.Join(e.errs...)
}
