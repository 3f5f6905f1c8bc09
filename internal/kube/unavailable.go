package kube

import "context"

// Unavailable is an Interface whose every call fails with the error the
// real client could not be constructed with. It lets the server run
// ingestion and status queries when no cluster access is configured;
// remediation attempts then fail with an outcome instead of a crash.
type Unavailable struct {
	Err error
}

// NewUnavailable wraps a construction error as an Interface.
func NewUnavailable(err error) *Unavailable {
	return &Unavailable{Err: err}
}

func (u *Unavailable) NamespaceExists(ctx context.Context, name string) (bool, error) {
	return false, u.Err
}

func (u *Unavailable) StatefulSetExists(ctx context.Context, namespace, name string) (bool, error) {
	return false, u.Err
}

func (u *Unavailable) Replicas(ctx context.Context, namespace, name string) (int32, error) {
	return 0, u.Err
}

func (u *Unavailable) Scale(ctx context.Context, namespace, name string, replicas int32) error {
	return u.Err
}

func (u *Unavailable) RolloutRestart(ctx context.Context, namespace, name string) error {
	return u.Err
}

func (u *Unavailable) ServiceExists(ctx context.Context, namespace, name string) (bool, error) {
	return false, u.Err
}

func (u *Unavailable) ListServiceNames(ctx context.Context, namespace string) ([]string, error) {
	return nil, u.Err
}
