package remediation

import (
	"time"

	"remedy/internal/locator"
)

// ServiceSpec carries the static remediation configuration for one
// supported service. The catalog replaces string-keyed dispatch: each
// service variant owns its resource names, replica defaults, and delays.
type ServiceSpec struct {
	// Name is the logical service name used in reports and triggers.
	Name string

	// Namespace, Workload, and Endpoint are the statically known resource
	// names. For dynamically named services they are the defaults used
	// when discovery is unnecessary.
	Namespace string
	Workload  string
	Endpoint  string

	// LocalPort is the fixed local port for the service's tunnel.
	LocalPort int

	// DefaultReplicas is the scale-up target when the workload is found
	// at zero replicas.
	DefaultReplicas int32

	// WarmUp is the wait after a rescale from zero before restarting.
	WarmUp time.Duration

	// RolloutSettle is the wait after a rollout restart before checking
	// readiness.
	RolloutSettle time.Duration

	// DynamicNaming marks services whose resource names vary by
	// deployment and must be discovered per attempt.
	DynamicNaming bool

	// Candidates is the ordered discovery list for dynamically named
	// services.
	Candidates []locator.Candidate

	// FallbackPatterns are historically common (namespace, workload)
	// pairs tried when discovery fails outright.
	FallbackPatterns [][2]string
}

// catalog is the fixed set of supported services.
var catalog = map[string]ServiceSpec{
	"vault": {
		Name:            "vault",
		Namespace:       "vault",
		Workload:        "vault",
		Endpoint:        "vault",
		LocalPort:       8200,
		DefaultReplicas: 1,
		WarmUp:          30 * time.Second,
		RolloutSettle:   30 * time.Second,
	},
	"consul": {
		Name:            "consul",
		Namespace:       "consul",
		Workload:        "consul-server",
		Endpoint:        "consul-server",
		LocalPort:       8500,
		DefaultReplicas: 3,
		WarmUp:          30 * time.Second,
		RolloutSettle:   30 * time.Second,
	},
	"elasticsearch": {
		Name:            "elasticsearch",
		Namespace:       "elasticsearch",
		Workload:        "elasticsearch-master",
		Endpoint:        "elasticsearch-master",
		LocalPort:       9200,
		DefaultReplicas: 3,
		WarmUp:          60 * time.Second,
		RolloutSettle:   90 * time.Second,
		DynamicNaming:   true,
		// Namespace and resource name combinations seen across
		// deployments, in decreasing order of likelihood.
		Candidates: []locator.Candidate{
			{Namespace: "elasticsearch", Workload: "elasticsearch-master", Endpoint: "elasticsearch-master"},
			{Namespace: "elasticsearch", Workload: "elasticsearch", Endpoint: "elasticsearch"},
			{Namespace: "elasticsearch", Workload: "elasticsearch-master", Endpoint: "elasticsearch"},
			{Namespace: "elasticsearch", Workload: "elasticsearch-data", Endpoint: "elasticsearch"},
			{Namespace: "default", Workload: "elasticsearch", Endpoint: "elasticsearch"},
			{Namespace: "logging", Workload: "elasticsearch", Endpoint: "elasticsearch"},
		},
		FallbackPatterns: [][2]string{
			{"elasticsearch", "elasticsearch-master"},
			{"elasticsearch", "elasticsearch"},
		},
	},
}

// LookupService returns the ServiceSpec for a logical service name.
func LookupService(name string) (ServiceSpec, bool) {
	spec, ok := catalog[name]
	return spec, ok
}

// SupportedServices returns the names of all services in the catalog.
func SupportedServices() []string {
	names := make([]string, 0, len(catalog))
	for name := range catalog {
		names = append(names, name)
	}
	return names
}
