package tunnel

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"
	"testing"
	"time"
)

// mockState records the commands spawned through execCommandContext and
// controls how the mocked kubectl behaves.
var mockState struct {
	mu       sync.Mutex
	commands []string
	failFast bool
}

func init() {
	execCommandContext = mockExecCommandContext
}

func mockExecCommandContext(ctx context.Context, name string, args ...string) *exec.Cmd {
	mockState.mu.Lock()
	mockState.commands = append(mockState.commands, name+" "+strings.Join(args, " "))
	failFast := mockState.failFast
	mockState.mu.Unlock()

	cs := []string{"-test.run=TestHelperProcess", "--", name}
	cs = append(cs, args...)
	cmd := exec.CommandContext(ctx, os.Args[0], cs...)
	cmd.Env = []string{"GO_WANT_HELPER_PROCESS=1"}
	if failFast {
		cmd.Env = append(cmd.Env, "MOCK_FAIL_FAST=1")
	}
	return cmd
}

// TestHelperProcess stands in for pkill and kubectl in these tests.
func TestHelperProcess(t *testing.T) {
	if os.Getenv("GO_WANT_HELPER_PROCESS") != "1" {
		return
	}

	args := os.Args
	for i, arg := range args {
		if arg == "--" {
			args = args[i+1:]
			break
		}
	}
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "no command")
		os.Exit(2)
	}

	switch args[0] {
	case "pkill":
		// Pretend nothing matched.
		os.Exit(1)
	case "kubectl":
		if os.Getenv("MOCK_FAIL_FAST") == "1" {
			fmt.Fprintln(os.Stderr, "error: unable to forward port")
			os.Exit(1)
		}
		// A healthy tunnel stays up well past the startup grace period.
		time.Sleep(2 * time.Second)
		os.Exit(0)
	default:
		os.Exit(2)
	}
}

func resetMock(failFast bool) {
	mockState.mu.Lock()
	defer mockState.mu.Unlock()
	mockState.commands = nil
	mockState.failFast = failFast
}

func spawnedCommands() []string {
	mockState.mu.Lock()
	defer mockState.mu.Unlock()
	return append([]string(nil), mockState.commands...)
}

func newTestManager(t *testing.T) *KubectlManager {
	m := NewKubectlManager()
	m.LogDir = t.TempDir()
	m.killSettle = 10 * time.Millisecond
	m.startupGrace = 100 * time.Millisecond
	return m
}

func TestRestoreKillsThenStarts(t *testing.T) {
	resetMock(false)
	m := newTestManager(t)

	err := m.Restore(context.Background(), "vault", "vault", "vault", 8200)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	commands := spawnedCommands()
	if len(commands) != 2 {
		t.Fatalf("expected pkill then kubectl, got %v", commands)
	}
	if !strings.Contains(commands[0], "pkill -f kubectl port-forward.*8200") {
		t.Errorf("unexpected kill command: %s", commands[0])
	}
	if !strings.Contains(commands[1], "kubectl port-forward svc/vault 8200:8200 -n vault") {
		t.Errorf("unexpected start command: %s", commands[1])
	}
}

func TestRestoreReportsFastExit(t *testing.T) {
	resetMock(true)
	m := newTestManager(t)

	err := m.Restore(context.Background(), "consul", "consul", "consul-server", 8500)
	if err == nil {
		t.Fatal("expected error when the tunnel exits during startup")
	}
	if !strings.Contains(err.Error(), "exited during startup") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestRestoreCancelledDuringStartupKillsTunnel(t *testing.T) {
	resetMock(false)
	m := newTestManager(t)
	m.startupGrace = 5 * time.Second

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	err := m.Restore(ctx, "vault", "vault", "vault", 8200)
	if err != context.Canceled {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	// The spawned tunnel must be killed, not waited out: the mocked
	// kubectl stays up for 2s, so returning promptly proves the kill.
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("Restore took %s, spawned tunnel was not killed", elapsed)
	}
}

func TestRestoreWritesLogFile(t *testing.T) {
	resetMock(false)
	m := newTestManager(t)

	if err := m.Restore(context.Background(), "elasticsearch", "elasticsearch", "elasticsearch-master", 9200); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := os.Stat(m.LogDir + "/elasticsearch.log"); err != nil {
		t.Errorf("expected tunnel log file: %v", err)
	}
}
