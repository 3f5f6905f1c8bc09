package remediation

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"remedy/internal/kube"
	"remedy/internal/locator"
	"remedy/internal/registry"
	"remedy/internal/tunnel"
	"remedy/pkg/logging"
)

const orchestratorSubsystem = "Remediation"

// Readiness polling after a rollout restart: best-effort, ~60s ceiling.
const (
	defaultReadyPollCount    = 6
	defaultReadyPollInterval = 10 * time.Second
)

// ErrAlreadyInFlight is returned by Trigger when a remediation attempt for
// the same service is still running. Racing two rollout restarts against
// the same workload is wasteful, so duplicates are rejected.
var ErrAlreadyInFlight = errors.New("remediation already in flight for this service")

// softNote is a non-fatal degradation from a best-effort step. It is
// folded into the outcome message and never fails the attempt, unlike a
// hard error.
type softNote string

// Orchestrator drives the multi-step remediation sequence for unhealthy
// services and records every attempt in the history.
type Orchestrator struct {
	cluster string
	kube    kube.Interface
	locator *locator.Locator
	tunnels tunnel.Manager
	history *registry.History

	mu       sync.Mutex
	inflight map[string]bool
	wg       sync.WaitGroup

	// baseCtx backs background attempts so they outlive the triggering
	// request. Remediation has no user-facing cancellation.
	baseCtx context.Context

	// Replaceable in tests.
	sleep             func(ctx context.Context, d time.Duration) error
	readyPollCount    int
	readyPollInterval time.Duration
}

// New creates an orchestrator bound to the given cluster identity and
// collaborators.
func New(cluster string, k kube.Interface, tunnels tunnel.Manager, history *registry.History) *Orchestrator {
	return &Orchestrator{
		cluster:           cluster,
		kube:              k,
		locator:           locator.New(k),
		tunnels:           tunnels,
		history:           history,
		inflight:          make(map[string]bool),
		baseCtx:           context.Background(),
		sleep:             sleepCtx,
		readyPollCount:    defaultReadyPollCount,
		readyPollInterval: defaultReadyPollInterval,
	}
}

// Trigger starts a remediation attempt in the background and returns
// immediately. The eventual outcome is observable through the history.
// A second trigger for a service whose attempt is still running is
// rejected with ErrAlreadyInFlight.
//
// The attempt runs on the orchestrator's own context, not the caller's:
// the triggering request completes (and its context is cancelled) long
// before the attempt does.
func (o *Orchestrator) Trigger(ctx context.Context, service string) error {
	o.mu.Lock()
	if o.inflight[service] {
		o.mu.Unlock()
		return ErrAlreadyInFlight
	}
	o.inflight[service] = true
	o.mu.Unlock()

	logging.Info(orchestratorSubsystem, "Starting remediation for service: %s", service)

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		defer func() {
			o.mu.Lock()
			delete(o.inflight, service)
			o.mu.Unlock()
		}()
		o.Remediate(o.baseCtx, service)
	}()
	return nil
}

// Wait blocks until all in-flight attempts have completed. Used during
// shutdown and in tests.
func (o *Orchestrator) Wait() {
	o.wg.Wait()
}

// Remediate runs one full remediation attempt synchronously, appends the
// outcome to the history, and returns it. Every failure inside the attempt
// is converted into a failed outcome at this boundary; Remediate never
// panics and never returns an error.
func (o *Orchestrator) Remediate(ctx context.Context, service string) registry.Outcome {
	logging.Info(orchestratorSubsystem, "Executing remediation for %s", service)

	spec, ok := LookupService(service)
	if !ok {
		logging.Warn(orchestratorSubsystem, "No remediation available for service: %s", service)
		return o.record(service, registry.OutcomeFailed,
			fmt.Sprintf("No remediation implemented for service '%s'", service))
	}

	outcome, err := o.run(ctx, spec)
	if err != nil {
		logging.Error(orchestratorSubsystem, err, "Remediation failed for %s", service)
		return o.record(service, registry.OutcomeFailed, err.Error())
	}

	logging.Info(orchestratorSubsystem, "Successfully remediated %s", service)
	return o.record(service, registry.OutcomeSuccess, outcome)
}

// run executes the resolve/validate/rescale/restart/await/restore sequence
// and returns the success message, or the hard error that stopped it.
func (o *Orchestrator) run(ctx context.Context, spec ServiceSpec) (string, error) {
	loc, err := o.resolve(ctx, spec)
	if err != nil {
		return "", err
	}
	logging.Info(orchestratorSubsystem, "Using configuration: namespace=%s, statefulset=%s, service=%s",
		loc.Namespace, loc.Workload, loc.Endpoint)

	// Validate: the resolved workload must exist right now.
	exists, err := o.kube.StatefulSetExists(ctx, loc.Namespace, loc.Workload)
	if err != nil {
		return "", fmt.Errorf("failed to validate statefulset %s/%s: %w", loc.Namespace, loc.Workload, err)
	}
	if !exists {
		return "", fmt.Errorf("statefulset %s not found in namespace %s", loc.Workload, loc.Namespace)
	}

	rescaled, err := o.rescaleIfZero(ctx, spec, loc)
	if err != nil {
		return "", err
	}

	// Restart regardless of the rescale: replicas may be nonzero but
	// unhealthy.
	logging.Info(orchestratorSubsystem, "Performing rollout restart for %s", spec.Name)
	if err := o.kube.RolloutRestart(ctx, loc.Namespace, loc.Workload); err != nil {
		return "", fmt.Errorf("rollout restart failed: %w", err)
	}
	logging.Info(orchestratorSubsystem, "Waiting %s for %s rollout to settle", spec.RolloutSettle, spec.Name)
	if err := o.sleep(ctx, spec.RolloutSettle); err != nil {
		return "", err
	}

	readyNote := o.awaitReady(ctx, spec, loc)
	tunnelNote := o.restoreTunnel(ctx, spec, loc)

	return o.successMessage(spec, loc, rescaled, readyNote, tunnelNote), nil
}

// resolve determines the actual resource names for the attempt. Statically
// named services use the catalog; dynamically named services go through
// discovery, then the historically common patterns, before giving up with
// a diagnostic listing everything that was tried.
func (o *Orchestrator) resolve(ctx context.Context, spec ServiceSpec) (locator.Location, error) {
	if !spec.DynamicNaming {
		return locator.Location{
			Namespace: spec.Namespace,
			Workload:  spec.Workload,
			Endpoint:  spec.Endpoint,
		}, nil
	}

	logging.Info(orchestratorSubsystem, "Starting %s resource detection", spec.Name)
	loc, locateErr := o.locator.Locate(ctx, spec.Candidates, spec.Name)
	if locateErr == nil {
		return loc, nil
	}
	if ctx.Err() != nil {
		return locator.Location{}, locateErr
	}

	logging.Warn(orchestratorSubsystem, "Dynamic detection failed, trying common patterns")
	for _, pattern := range spec.FallbackPatterns {
		namespace, workload := pattern[0], pattern[1]
		exists, err := o.kube.StatefulSetExists(ctx, namespace, workload)
		if err != nil || !exists {
			continue
		}
		logging.Info(orchestratorSubsystem, "Found %s with pattern %s/%s", spec.Name, namespace, workload)
		return locator.Location{Namespace: namespace, Workload: workload, Endpoint: workload}, nil
	}

	return locator.Location{}, fmt.Errorf("%s not found: %w", spec.Name, locateErr)
}

// rescaleIfZero scales the workload back to its default replica count when
// it is found at zero, then waits the warm-up delay. Returns whether a
// rescale happened.
func (o *Orchestrator) rescaleIfZero(ctx context.Context, spec ServiceSpec, loc locator.Location) (bool, error) {
	replicas, err := o.kube.Replicas(ctx, loc.Namespace, loc.Workload)
	if err != nil {
		return false, fmt.Errorf("failed to read replica count: %w", err)
	}
	logging.Info(orchestratorSubsystem, "%s current replicas: %d", spec.Name, replicas)

	if replicas != 0 {
		return false, nil
	}

	logging.Info(orchestratorSubsystem, "%s is scaled to 0, scaling back up to %d", spec.Name, spec.DefaultReplicas)
	if err := o.kube.Scale(ctx, loc.Namespace, loc.Workload, spec.DefaultReplicas); err != nil {
		return false, fmt.Errorf("failed to scale %s back up: %w", spec.Name, err)
	}

	logging.Info(orchestratorSubsystem, "Waiting %s for %s pods to start", spec.WarmUp, spec.Name)
	if err := o.sleep(ctx, spec.WarmUp); err != nil {
		return false, err
	}
	return true, nil
}

// awaitReady polls for the endpoint's existence. Polling exhaustion is a
// soft degradation: endpoint existence does not guarantee pod readiness,
// so the attempt proceeds either way.
func (o *Orchestrator) awaitReady(ctx context.Context, spec ServiceSpec, loc locator.Location) softNote {
	logging.Info(orchestratorSubsystem, "Checking if %s service is ready", spec.Name)
	for i := 0; i < o.readyPollCount; i++ {
		exists, err := o.kube.ServiceExists(ctx, loc.Namespace, loc.Endpoint)
		if err == nil && exists {
			logging.Info(orchestratorSubsystem, "Service %s is ready", loc.Endpoint)
			return ""
		}
		logging.Debug(orchestratorSubsystem, "Service check attempt %d/%d failed", i+1, o.readyPollCount)
		if err := o.sleep(ctx, o.readyPollInterval); err != nil {
			break
		}
	}
	return softNote(fmt.Sprintf("Service %s was not confirmed ready.", loc.Endpoint))
}

// restoreTunnel re-establishes the local tunnel. Failure degrades the
// message, never the outcome: connectivity restoration is best-effort on
// top of an already remediated workload.
func (o *Orchestrator) restoreTunnel(ctx context.Context, spec ServiceSpec, loc locator.Location) softNote {
	logging.Info(orchestratorSubsystem, "Restoring tunnel for %s", spec.Name)
	if err := o.tunnels.Restore(ctx, spec.Name, loc.Namespace, loc.Endpoint, spec.LocalPort); err != nil {
		logging.Warn(orchestratorSubsystem, "Failed to restore tunnel for %s: %v", spec.Name, err)
		return softNote("Warning: failed to restore tunnel - you may need to restart it manually.")
	}
	return softNote(fmt.Sprintf("Tunnel restored on port %d.", spec.LocalPort))
}

func (o *Orchestrator) successMessage(spec ServiceSpec, loc locator.Location, rescaled bool, notes ...softNote) string {
	message := fmt.Sprintf("Remediation completed for %s.", spec.Name)
	if rescaled {
		message += fmt.Sprintf(" Scaled from 0 to %d replicas and restarted.", spec.DefaultReplicas)
	} else {
		message += " Performed rolling restart."
	}
	for _, note := range notes {
		if note != "" {
			message += " " + string(note)
		}
	}
	message += fmt.Sprintf(" Found in namespace: %s as StatefulSet: %s.", loc.Namespace, loc.Workload)
	return message
}

func (o *Orchestrator) record(service string, status registry.OutcomeStatus, message string) registry.Outcome {
	outcome := registry.Outcome{
		ID:          uuid.New().String(),
		Cluster:     o.cluster,
		Service:     service,
		Status:      status,
		Message:     message,
		CompletedAt: time.Now(),
	}
	o.history.Append(outcome)
	return outcome
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
