package kube

import (
	"context"
	"fmt"
	"sync"
)

// Fake is a scripted in-memory Interface implementation for tests. It
// records every call so tests can assert on the exact orchestration
// commands issued.
type Fake struct {
	mu sync.Mutex

	// Namespaces is the set of existing namespace names.
	Namespaces map[string]bool
	// StatefulSets maps "namespace/name" to the declared replica count.
	StatefulSets map[string]int32
	// Services maps a namespace to its Service names.
	Services map[string][]string

	// Errs maps a method name to an error that method should return.
	Errs map[string]error

	// Calls records every invocation as "Method namespace/name".
	Calls []string
}

// NewFake returns an empty Fake with all maps initialized.
func NewFake() *Fake {
	return &Fake{
		Namespaces:   make(map[string]bool),
		StatefulSets: make(map[string]int32),
		Services:     make(map[string][]string),
		Errs:         make(map[string]error),
	}
}

func (f *Fake) record(call string) {
	f.Calls = append(f.Calls, call)
}

// CallCount returns the total number of recorded calls.
func (f *Fake) CallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Calls)
}

// CallsTo returns the recorded calls for a given method.
func (f *Fake) CallsTo(method string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	var matches []string
	for _, call := range f.Calls {
		if len(call) >= len(method) && call[:len(method)] == method {
			matches = append(matches, call)
		}
	}
	return matches
}

func (f *Fake) NamespaceExists(ctx context.Context, name string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("NamespaceExists " + name)
	if err := f.Errs["NamespaceExists"]; err != nil {
		return false, err
	}
	return f.Namespaces[name], nil
}

func (f *Fake) StatefulSetExists(ctx context.Context, namespace, name string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("StatefulSetExists " + namespace + "/" + name)
	if err := f.Errs["StatefulSetExists"]; err != nil {
		return false, err
	}
	_, ok := f.StatefulSets[namespace+"/"+name]
	return ok, nil
}

func (f *Fake) Replicas(ctx context.Context, namespace, name string) (int32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("Replicas " + namespace + "/" + name)
	if err := f.Errs["Replicas"]; err != nil {
		return 0, err
	}
	replicas, ok := f.StatefulSets[namespace+"/"+name]
	if !ok {
		return 0, fmt.Errorf("statefulset %s/%s not found", namespace, name)
	}
	return replicas, nil
}

func (f *Fake) Scale(ctx context.Context, namespace, name string, replicas int32) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record(fmt.Sprintf("Scale %s/%s=%d", namespace, name, replicas))
	if err := f.Errs["Scale"]; err != nil {
		return err
	}
	f.StatefulSets[namespace+"/"+name] = replicas
	return nil
}

func (f *Fake) RolloutRestart(ctx context.Context, namespace, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("RolloutRestart " + namespace + "/" + name)
	return f.Errs["RolloutRestart"]
}

func (f *Fake) ServiceExists(ctx context.Context, namespace, name string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("ServiceExists " + namespace + "/" + name)
	if err := f.Errs["ServiceExists"]; err != nil {
		return false, err
	}
	for _, svc := range f.Services[namespace] {
		if svc == name {
			return true, nil
		}
	}
	return false, nil
}

func (f *Fake) ListServiceNames(ctx context.Context, namespace string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("ListServiceNames " + namespace)
	if err := f.Errs["ListServiceNames"]; err != nil {
		return nil, err
	}
	return append([]string(nil), f.Services[namespace]...), nil
}
