package probe

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"remedy/pkg/logging"
)

const runnerSubsystem = "Agent"

// Runner drives the periodic probe cycle: all checkers run concurrently,
// every result is reported, and the loop repeats at the configured
// interval until the context is cancelled.
type Runner struct {
	checkers []Checker
	reporter *Reporter

	mu       sync.Mutex
	interval time.Duration
}

// NewRunner creates a runner over the given checkers.
func NewRunner(checkers []Checker, reporter *Reporter, interval time.Duration) *Runner {
	return &Runner{
		checkers: checkers,
		reporter: reporter,
		interval: interval,
	}
}

// SetInterval adjusts the probe interval; the change takes effect after
// the current tick. Used for live config reloads.
func (r *Runner) SetInterval(interval time.Duration) {
	if interval <= 0 {
		return
	}
	r.mu.Lock()
	changed := r.interval != interval
	r.interval = interval
	r.mu.Unlock()
	if changed {
		logging.Info(runnerSubsystem, "Probe interval changed to %s", interval)
	}
}

func (r *Runner) currentInterval() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.interval
}

// RunOnce executes a single probe cycle.
func (r *Runner) RunOnce(ctx context.Context) {
	g, ctx := errgroup.WithContext(ctx)
	for _, checker := range r.checkers {
		g.Go(func() error {
			result := checker.Check(ctx)
			logging.Info(runnerSubsystem, "%s healthy: %t (%s)", checker.Name(), result.Healthy, result.Details)
			// Delivery failures are logged by the reporter; one failed
			// report must not abort the other probes.
			_ = r.reporter.Send(ctx, checker.Name(), result, probeHost(checker))
			return nil
		})
	}
	_ = g.Wait()
}

// Run loops probe cycles until the context is cancelled.
func (r *Runner) Run(ctx context.Context) error {
	logging.Info(runnerSubsystem, "Starting health agent, reporting to %s every %s", r.reporter.ServerURL, r.currentInterval())

	for {
		r.RunOnce(ctx)

		interval := r.currentInterval()
		logging.Debug(runnerSubsystem, "Next probe cycle in %s", interval)
		select {
		case <-ctx.Done():
			logging.Info(runnerSubsystem, "Health agent stopping")
			return ctx.Err()
		case <-time.After(interval):
		}
	}
}

func probeHost(checker Checker) string {
	type hoster interface{ Host() string }
	if h, ok := checker.(hoster); ok {
		return h.Host()
	}
	return "N/A"
}
