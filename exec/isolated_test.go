package exec

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/horus-robotics/horus/cmn/cos"
	"github.com/horus-robotics/horus/cmn/nlog"
	"github.com/horus-robotics/horus/hub"
)

// isolatedChildEnvMarker/isolatedChildNodeEnv select the re-exec child
// role below, the same self-reexec trick ring_test.go's
// TestCrossProcessAttach uses: the test binary relaunches itself as a
// genuine second OS process, so TestIsolatedProcEndToEnd exercises the
// real AddIsolated path -- a separate process receiving commands and
// reporting status back through the command/status Hub pair -- rather
// than two goroutines in one address space.
const (
	isolatedChildEnvMarker = "HORUS_EXEC_ISOLATED_CHILD"
	isolatedChildNodeEnv   = "HORUS_EXEC_ISOLATED_NODE"
)

func TestMain(m *testing.M) {
	if os.Getenv(isolatedChildEnvMarker) == "1" {
		os.Exit(runIsolatedChild())
	}
	os.Exit(m.Run())
}

// runIsolatedChild plays the part newIsolatedProc's real child process
// would: subscribe to the node's command topic, and for every command
// received, publish a status reply echoing its Seq. The status always
// carries a non-empty Err so the parent's drainStatus loop logs it --
// the test's only window into whether the parent actually received
// anything over the status Hub.
func runIsolatedChild() int {
	nodeName := os.Getenv(isolatedChildNodeEnv)
	if nodeName == "" {
		fmt.Fprintln(os.Stderr, "child: missing node name")
		return 1
	}
	cmdHub, err := hub.Open[IsolatedControl]("horus.isolated." + nodeName + ".cmd")
	if err != nil {
		fmt.Fprintf(os.Stderr, "child: open cmd hub: %v\n", err)
		return 1
	}
	defer cmdHub.Close()
	statusH, err := hub.Open[IsolatedStatus]("horus.isolated." + nodeName + ".status")
	if err != nil {
		fmt.Fprintf(os.Stderr, "child: open status hub: %v\n", err)
		return 1
	}
	defer statusH.Close()

	cmdHandle, err := cmdHub.Subscribe()
	if err != nil {
		fmt.Fprintf(os.Stderr, "child: subscribe: %v\n", err)
		return 1
	}
	defer cmdHandle.Close()

	for {
		ctrl, err := cmdHandle.Recv()
		if err == nil {
			reply := IsolatedStatus{Seq: ctrl.Seq}
			reply.SetErr(fmt.Sprintf("child-ack-%d", ctrl.Seq))
			if pubErr := statusH.Publish(reply); pubErr != nil {
				fmt.Fprintf(os.Stderr, "child: publish status: %v\n", pubErr)
			}
		}
		time.Sleep(2 * time.Millisecond)
	}
}

// TestIsolatedProcEndToEnd verifies the Isolated tier for
// real: a genuine child OS process, launched and supervised by
// isolatedProc exactly as AddIsolated would, receives tick's published
// commands and the parent's drainStatus goroutine observes the
// child's replies -- through the cross-process-capable Hub the ring
// fix makes possible, not through any in-process shortcut.
func TestIsolatedProcEndToEnd(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("cross-process command/status delivery relies on the /dev/shm-backed ring, linux only")
	}

	nodeName := "e2e-" + cos.GenUUID()

	logFile, err := os.CreateTemp(t.TempDir(), "nlog-*.log")
	if err != nil {
		t.Fatalf("CreateTemp: %v", err)
	}
	defer logFile.Close()
	nlog.SetOutput(logFile)
	defer nlog.SetOutput(nil)

	p, err := newIsolatedProc(nodeName, os.Args[0], "-test.run=^TestIsolatedProcEndToEnd$")
	if err != nil {
		t.Fatalf("newIsolatedProc: %v", err)
	}
	p.cmd.Env = append(os.Environ(),
		isolatedChildEnvMarker+"=1",
		isolatedChildNodeEnv+"="+nodeName,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := p.start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer p.stop()

	deadline := time.Now().Add(2 * time.Second)
	var sawReply bool
	for time.Now().Before(deadline) {
		p.tick()
		time.Sleep(20 * time.Millisecond)

		contents, readErr := os.ReadFile(logFile.Name())
		if readErr != nil {
			t.Fatalf("ReadFile: %v", readErr)
		}
		if strings.Contains(string(contents), "child-ack-") {
			sawReply = true
			break
		}
	}
	if !sawReply {
		t.Fatal("parent never observed a status reply from the child process")
	}
}
