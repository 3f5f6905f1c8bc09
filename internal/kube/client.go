package kube

import (
	"context"
	"fmt"
	"time"

	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/types"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"

	"remedy/pkg/logging"
)

// Per-call timeouts, enforced individually rather than as one global
// deadline. Lookups are short; mutations get more headroom.
const (
	DefaultLookupTimeout = 5 * time.Second
	DefaultMutateTimeout = 30 * time.Second
)

// restartedAtAnnotation mirrors the annotation kubectl sets on
// `rollout restart` so both tools cooperate on the same workload.
const restartedAtAnnotation = "kubectl.kubernetes.io/restartedAt"

// Client implements Interface against a real Kubernetes API server.
type Client struct {
	clientset     kubernetes.Interface
	lookupTimeout time.Duration
	mutateTimeout time.Duration
}

// NewClient builds a Client from the in-cluster service account when
// available, otherwise from the given kubeconfig path (empty means the
// default loading rules, honoring $KUBECONFIG).
func NewClient(kubeconfig string) (*Client, error) {
	cfg, err := rest.InClusterConfig()
	if err != nil {
		loadingRules := clientcmd.NewDefaultClientConfigLoadingRules()
		if kubeconfig != "" {
			loadingRules.ExplicitPath = kubeconfig
		}
		cfg, err = clientcmd.NewNonInteractiveDeferredLoadingClientConfig(
			loadingRules, &clientcmd.ConfigOverrides{},
		).ClientConfig()
		if err != nil {
			return nil, fmt.Errorf("failed to load Kubernetes configuration: %w", err)
		}
	}

	clientset, err := kubernetes.NewForConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create Kubernetes client: %w", err)
	}

	return NewClientForClientset(clientset), nil
}

// NewClientForClientset wraps an existing clientset with default timeouts.
func NewClientForClientset(clientset kubernetes.Interface) *Client {
	return &Client{
		clientset:     clientset,
		lookupTimeout: DefaultLookupTimeout,
		mutateTimeout: DefaultMutateTimeout,
	}
}

func (c *Client) NamespaceExists(ctx context.Context, name string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, c.lookupTimeout)
	defer cancel()

	_, err := c.clientset.CoreV1().Namespaces().Get(ctx, name, metav1.GetOptions{})
	if apierrors.IsNotFound(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to get namespace %s: %w", name, err)
	}
	return true, nil
}

func (c *Client) StatefulSetExists(ctx context.Context, namespace, name string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, c.lookupTimeout)
	defer cancel()

	_, err := c.clientset.AppsV1().StatefulSets(namespace).Get(ctx, name, metav1.GetOptions{})
	if apierrors.IsNotFound(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to get statefulset %s/%s: %w", namespace, name, err)
	}
	return true, nil
}

func (c *Client) Replicas(ctx context.Context, namespace, name string) (int32, error) {
	ctx, cancel := context.WithTimeout(ctx, c.lookupTimeout)
	defer cancel()

	sts, err := c.clientset.AppsV1().StatefulSets(namespace).Get(ctx, name, metav1.GetOptions{})
	if err != nil {
		return 0, fmt.Errorf("failed to get replicas for %s/%s: %w", namespace, name, err)
	}
	if sts.Spec.Replicas == nil {
		return 0, nil
	}
	return *sts.Spec.Replicas, nil
}

func (c *Client) Scale(ctx context.Context, namespace, name string, replicas int32) error {
	ctx, cancel := context.WithTimeout(ctx, c.mutateTimeout)
	defer cancel()

	scale, err := c.clientset.AppsV1().StatefulSets(namespace).GetScale(ctx, name, metav1.GetOptions{})
	if err != nil {
		return fmt.Errorf("failed to read scale of %s/%s: %w", namespace, name, err)
	}
	scale.Spec.Replicas = replicas

	_, err = c.clientset.AppsV1().StatefulSets(namespace).UpdateScale(ctx, name, scale, metav1.UpdateOptions{})
	if err != nil {
		return fmt.Errorf("failed to scale %s/%s to %d: %w", namespace, name, replicas, err)
	}

	logging.Info("Kube", "Scaled statefulset %s/%s to %d replicas", namespace, name, replicas)
	return nil
}

func (c *Client) RolloutRestart(ctx context.Context, namespace, name string) error {
	ctx, cancel := context.WithTimeout(ctx, c.mutateTimeout)
	defer cancel()

	patch := fmt.Sprintf(
		`{"spec":{"template":{"metadata":{"annotations":{%q:%q}}}}}`,
		restartedAtAnnotation, time.Now().Format(time.RFC3339),
	)
	_, err := c.clientset.AppsV1().StatefulSets(namespace).Patch(
		ctx, name, types.StrategicMergePatchType, []byte(patch), metav1.PatchOptions{},
	)
	if err != nil {
		return fmt.Errorf("failed to restart statefulset %s/%s: %w", namespace, name, err)
	}

	logging.Info("Kube", "Triggered rollout restart of statefulset %s/%s", namespace, name)
	return nil
}

func (c *Client) ServiceExists(ctx context.Context, namespace, name string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, c.lookupTimeout)
	defer cancel()

	_, err := c.clientset.CoreV1().Services(namespace).Get(ctx, name, metav1.GetOptions{})
	if apierrors.IsNotFound(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to get service %s/%s: %w", namespace, name, err)
	}
	return true, nil
}

func (c *Client) ListServiceNames(ctx context.Context, namespace string) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.lookupTimeout)
	defer cancel()

	list, err := c.clientset.CoreV1().Services(namespace).List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to list services in %s: %w", namespace, err)
	}

	names := make([]string, 0, len(list.Items))
	for _, svc := range list.Items {
		names = append(names, svc.Name)
	}
	return names, nil
}
