package locator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"remedy/internal/kube"
	"remedy/pkg/logging"
)

// Candidate is one (namespace, workload, endpoint) tuple to try during
// discovery.
type Candidate struct {
	Namespace string
	Workload  string
	Endpoint  string
}

// Location is the resolved set of orchestration-layer resource names for a
// logical service. It is transient: every remediation attempt re-resolves
// to tolerate naming drift between deployments.
type Location struct {
	Namespace string
	Workload  string
	Endpoint  string
}

// NotFoundError reports that discovery exhausted every candidate in every
// round. Its message enumerates each attempted (namespace, workload) pair
// so operators can search for the resource manually.
type NotFoundError struct {
	Attempted []Candidate
}

func (e *NotFoundError) Error() string {
	var sb strings.Builder
	sb.WriteString("resource not found; tried these combinations:")
	for _, c := range e.Attempted {
		sb.WriteString(fmt.Sprintf("\n  - %s/%s", c.Namespace, c.Workload))
	}
	return sb.String()
}

const (
	// DefaultRounds is how many passes are made over the candidate list.
	DefaultRounds = 3
	// DefaultRoundDelay is the pause between rounds, giving resources
	// still being created a chance to appear.
	DefaultRoundDelay = 5 * time.Second
)

// Locator discovers the real resource names for a logical service whose
// naming varies by deployment.
type Locator struct {
	kube       kube.Interface
	rounds     int
	roundDelay time.Duration

	// sleep is replaceable in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// New creates a Locator with the default retry strategy.
func New(k kube.Interface) *Locator {
	return &Locator{
		kube:       k,
		rounds:     DefaultRounds,
		roundDelay: DefaultRoundDelay,
		sleep:      sleepCtx,
	}
}

// WithRetry overrides the round count and inter-round delay.
func (l *Locator) WithRetry(rounds int, delay time.Duration) *Locator {
	l.rounds = rounds
	l.roundDelay = delay
	return l
}

// Locate scans the candidate list up to the configured number of rounds.
// A candidate matches when its namespace and workload both exist. The
// endpoint is then resolved in order of preference: the declared endpoint
// name, any Service in the namespace whose name contains match, or the
// workload name itself.
//
// Exhausting all rounds returns a *NotFoundError listing every attempted
// pair; callers must treat this as a diagnosable failure, not a crash.
func (l *Locator) Locate(ctx context.Context, candidates []Candidate, match string) (Location, error) {
	for round := 1; round <= l.rounds; round++ {
		logging.Info("Locator", "Resource detection round %d/%d", round, l.rounds)

		for _, candidate := range candidates {
			loc, ok := l.tryCandidate(ctx, candidate, match)
			if ok {
				return loc, nil
			}
		}

		if round < l.rounds {
			logging.Info("Locator", "Waiting %s before next detection round", l.roundDelay)
			if err := l.sleep(ctx, l.roundDelay); err != nil {
				return Location{}, err
			}
		}
	}

	logging.Warn("Locator", "Resource not found in any expected location after %d rounds", l.rounds)
	return Location{}, &NotFoundError{Attempted: candidates}
}

func (l *Locator) tryCandidate(ctx context.Context, candidate Candidate, match string) (Location, bool) {
	logging.Debug("Locator", "Checking %s/%s", candidate.Namespace, candidate.Workload)

	nsExists, err := l.kube.NamespaceExists(ctx, candidate.Namespace)
	if err != nil || !nsExists {
		return Location{}, false
	}

	stsExists, err := l.kube.StatefulSetExists(ctx, candidate.Namespace, candidate.Workload)
	if err != nil || !stsExists {
		return Location{}, false
	}
	logging.Info("Locator", "Found statefulset %s in namespace %s", candidate.Workload, candidate.Namespace)

	// Prefer the exact declared endpoint name.
	svcExists, err := l.kube.ServiceExists(ctx, candidate.Namespace, candidate.Endpoint)
	if err == nil && svcExists {
		return Location{
			Namespace: candidate.Namespace,
			Workload:  candidate.Workload,
			Endpoint:  candidate.Endpoint,
		}, true
	}

	// Otherwise substring-search all Services in the namespace.
	if names, err := l.kube.ListServiceNames(ctx, candidate.Namespace); err == nil {
		for _, name := range names {
			if strings.Contains(strings.ToLower(name), strings.ToLower(match)) {
				logging.Info("Locator", "Found service %s in namespace %s by pattern match", name, candidate.Namespace)
				return Location{
					Namespace: candidate.Namespace,
					Workload:  candidate.Workload,
					Endpoint:  name,
				}, true
			}
		}
	}

	// Last resort: assume the endpoint shares the workload's name.
	logging.Warn("Locator", "No service found for %s, falling back to the workload name", candidate.Workload)
	return Location{
		Namespace: candidate.Namespace,
		Workload:  candidate.Workload,
		Endpoint:  candidate.Workload,
	}, true
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
