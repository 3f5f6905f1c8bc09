package kube

import "context"

// Interface is the orchestration-layer command surface used by the
// resource locator and the remediation orchestrator. Every call enforces
// its own timeout; a timeout or API error is returned to the caller and
// never panics.
type Interface interface {
	// NamespaceExists reports whether the namespace exists.
	NamespaceExists(ctx context.Context, name string) (bool, error)

	// StatefulSetExists reports whether the named StatefulSet exists in the
	// namespace.
	StatefulSetExists(ctx context.Context, namespace, name string) (bool, error)

	// Replicas returns the declared replica count of the StatefulSet.
	Replicas(ctx context.Context, namespace, name string) (int32, error)

	// Scale sets the declared replica count of the StatefulSet.
	Scale(ctx context.Context, namespace, name string, replicas int32) error

	// RolloutRestart triggers a rolling restart of the StatefulSet without
	// changing its declared configuration.
	RolloutRestart(ctx context.Context, namespace, name string) error

	// ServiceExists reports whether the named Service exists in the
	// namespace.
	ServiceExists(ctx context.Context, namespace, name string) (bool, error)

	// ListServiceNames returns the names of all Services in the namespace.
	ListServiceNames(ctx context.Context, namespace string) ([]string, error)
}
