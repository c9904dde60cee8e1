package exec

import (
	"context"
	"os/exec"
	"sync"
	"time"

	"github.com/horus-robotics/horus/cmn/nlog"
	"github.com/horus-robotics/horus/hub"
)

// statusPollInterval is how often the parent drains the child's status
// Hub. The Hub is poll-based (TryPop under the hood), not blocking, so
// draining it needs its own ticker independent of the executor's tick
// cadence, which only drives outgoing commands.
const statusPollInterval = 5 * time.Millisecond

// IsolatedControl is the control-plane message an Isolated node's
// parent process pushes onto its command hub.Hub -- the node runs in a
// separate OS process, so a crash there never takes down the parent.
// The child subscribes to the command topic
// and publishes to the status topic; the executor never talks to the
// child through anything but those two Hubs and the OS process handle.
// Both message types cross a shared ring, so every field must be
// trivially copyable -- no strings or slices; the node's identity is
// carried by the per-node topic names, not repeated in each message.
type IsolatedControl struct {
	Seq uint64
}

// isolatedErrLen bounds the error text a child can report per status
// message; longer messages are truncated on the child side.
const isolatedErrLen = 96

// IsolatedStatus is what a child process reports back.
type IsolatedStatus struct {
	Seq uint64
	Err [isolatedErrLen]byte // NUL-padded; all-zero on success
}

// SetErr records msg (truncated to isolatedErrLen) as the status error.
func (s *IsolatedStatus) SetErr(msg string) {
	for i := range s.Err {
		s.Err[i] = 0
	}
	copy(s.Err[:], msg)
}

// ErrString returns the reported error text, empty on success.
func (s *IsolatedStatus) ErrString() string {
	for i, b := range s.Err {
		if b == 0 {
			return string(s.Err[:i])
		}
	}
	return string(s.Err[:])
}

// isolatedProc supervises one child process and its command/status
// hubs. A crash is observed as the child process exiting; the parent
// logs it and leaves the node un-ticked until an operator restarts it,
// rather than trying to resurrect state the crash may have corrupted.
type isolatedProc struct {
	nodeName string
	cmd      *exec.Cmd
	cmdHub   *hub.Hub[IsolatedControl]
	statusH  *hub.Hub[IsolatedStatus]
	seq      uint64

	mu     sync.Mutex
	exited bool
}

func newIsolatedProc(nodeName string, path string, args ...string) (*isolatedProc, error) {
	cmdHub, err := hub.Open[IsolatedControl]("horus.isolated." + nodeName + ".cmd")
	if err != nil {
		return nil, err
	}
	statusH, err := hub.Open[IsolatedStatus]("horus.isolated." + nodeName + ".status")
	if err != nil {
		cmdHub.Close()
		return nil, err
	}
	cmd := exec.Command(path, args...)
	return &isolatedProc{nodeName: nodeName, cmd: cmd, cmdHub: cmdHub, statusH: statusH}, nil
}

func (p *isolatedProc) start(ctx context.Context) error {
	if err := p.cmd.Start(); err != nil {
		return err
	}
	statusHandle, err := p.statusH.Subscribe()
	if err != nil {
		p.cmd.Process.Kill()
		return err
	}
	go func() {
		err := p.cmd.Wait()
		p.mu.Lock()
		p.exited = true
		p.mu.Unlock()
		if err != nil {
			nlog.Errorf("exec: isolated node %q exited: %v", p.nodeName, err)
		} else {
			nlog.Warningf("exec: isolated node %q exited cleanly, it will not be re-ticked", p.nodeName)
		}
	}()
	go p.drainStatus(ctx, statusHandle)
	return nil
}

// drainStatus is the other half of tick's fire-and-forget command
// publish: it's what makes IsolatedStatus a real channel instead of a
// Hub that's opened and closed but never read. A reported error is
// logged against the node name and the sequence the child echoed back;
// the executor does not act on it beyond that (recovery is an
// operator's call, see isolatedProc's own doc comment).
func (p *isolatedProc) drainStatus(ctx context.Context, handle *hub.Handle[IsolatedStatus]) {
	defer handle.Close()
	ticker := time.NewTicker(statusPollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for {
				st, err := handle.Recv()
				if err != nil {
					break
				}
				if msg := st.ErrString(); msg != "" {
					nlog.Errorf("exec: isolated node %q reported error on seq %d: %s", p.nodeName, st.Seq, msg)
				}
			}
		}
	}
}

// tick publishes a command and does not wait for the status reply --
// ticking an Isolated node is fire-and-forget from the executor's
// perspective; the child's own tick cadence is its own business.
func (p *isolatedProc) tick() {
	p.mu.Lock()
	exited := p.exited
	p.mu.Unlock()
	if exited {
		return
	}
	p.seq++
	if err := p.cmdHub.Publish(IsolatedControl{Seq: p.seq}); err != nil {
		nlog.Warningf("exec: failed to publish command to isolated node %q: %v", p.nodeName, err)
	}
}

func (p *isolatedProc) stop() {
	if p.cmd.Process != nil {
		p.cmd.Process.Kill()
	}
	p.cmdHub.Close()
	p.statusH.Close()
}
