package tunnel

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"remedy/pkg/logging"
)

const tunnelSubsystem = "Tunnel"

// execCommandContext is a variable to allow mocking in tests
var execCommandContext = exec.CommandContext

// Manager restores local port-forward tunnels to remediated workloads.
// Restoration is best-effort: a failure degrades the remediation message
// but never fails the attempt.
type Manager interface {
	// Restore tears down any existing tunnel for the service's port and
	// starts a fresh one to svc/<endpoint> in the namespace.
	Restore(ctx context.Context, service, namespace, endpoint string, port int) error
}

// KubectlManager runs tunnels as kubectl port-forward subprocesses, the
// same processes an operator would start by hand, so both can manage them.
type KubectlManager struct {
	// LogDir receives per-service tunnel logs. Defaults to the OS temp dir.
	LogDir string

	// killSettle is how long to wait after terminating an old tunnel
	// before starting a new one.
	killSettle time.Duration

	// startupGrace is how long a new tunnel must survive before it is
	// considered started.
	startupGrace time.Duration
}

// NewKubectlManager creates a manager with the default timing.
func NewKubectlManager() *KubectlManager {
	return &KubectlManager{
		LogDir:       os.TempDir(),
		killSettle:   2 * time.Second,
		startupGrace: 3 * time.Second,
	}
}

func (m *KubectlManager) Restore(ctx context.Context, service, namespace, endpoint string, port int) error {
	m.kill(ctx, service, port)
	return m.start(ctx, service, namespace, endpoint, port)
}

// kill terminates any existing port-forward for the port by pattern match.
// pkill exits nonzero when no process matched, which is fine here.
func (m *KubectlManager) kill(ctx context.Context, service string, port int) {
	pattern := fmt.Sprintf("kubectl port-forward.*%d", port)
	cmd := execCommandContext(ctx, "pkill", "-f", pattern)
	if err := cmd.Run(); err != nil {
		logging.Debug(tunnelSubsystem, "No existing tunnel for %s on port %d: %v", service, port, err)
	} else {
		logging.Info(tunnelSubsystem, "Killed existing tunnel for %s on port %d", service, port)
	}

	select {
	case <-ctx.Done():
	case <-time.After(m.killSettle):
	}
}

func (m *KubectlManager) start(ctx context.Context, service, namespace, endpoint string, port int) error {
	logPath := filepath.Join(m.LogDir, service+".log")
	logFile, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open tunnel log %s: %w", logPath, err)
	}
	defer logFile.Close()

	// The tunnel must outlive this call, so it is deliberately not bound
	// to the remediation context.
	cmd := execCommandContext(context.Background(),
		"kubectl", "port-forward", "svc/"+endpoint,
		fmt.Sprintf("%d:%d", port, port), "-n", namespace,
	)
	cmd.Stdout = logFile
	cmd.Stderr = logFile

	logging.Info(tunnelSubsystem, "Starting tunnel: kubectl port-forward svc/%s %d:%d -n %s", endpoint, port, port, namespace)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start tunnel for %s: %w", service, err)
	}

	// Consider the tunnel started only if the process survives the grace
	// period; port-forward fails fast on bad endpoints.
	exited := make(chan error, 1)
	go func() { exited <- cmd.Wait() }()

	select {
	case err := <-exited:
		return fmt.Errorf("tunnel for %s exited during startup: %v", service, err)
	case <-ctx.Done():
		// The caller gave up; do not leave an untracked tunnel behind.
		_ = cmd.Process.Kill()
		<-exited
		return ctx.Err()
	case <-time.After(m.startupGrace):
	}

	logging.Info(tunnelSubsystem, "Started tunnel for %s on port %d (pid %d)", service, port, cmd.Process.Pid)
	go func() {
		if err := <-exited; err != nil {
			logging.Warn(tunnelSubsystem, "Tunnel for %s terminated: %v", service, err)
		}
	}()
	return nil
}
