package kube

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	appsv1 "k8s.io/api/apps/v1"
	autoscalingv1 "k8s.io/api/autoscaling/v1"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/client-go/kubernetes/fake"
	k8stesting "k8s.io/client-go/testing"
)

func int32Ptr(v int32) *int32 { return &v }

func statefulSet(namespace, name string, replicas int32) *appsv1.StatefulSet {
	return &appsv1.StatefulSet{
		ObjectMeta: metav1.ObjectMeta{Namespace: namespace, Name: name},
		Spec:       appsv1.StatefulSetSpec{Replicas: int32Ptr(replicas)},
	}
}

func TestNamespaceExists(t *testing.T) {
	clientset := fake.NewSimpleClientset(
		&corev1.Namespace{ObjectMeta: metav1.ObjectMeta{Name: "vault"}},
	)
	c := NewClientForClientset(clientset)

	exists, err := c.NamespaceExists(context.Background(), "vault")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = c.NamespaceExists(context.Background(), "missing")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestStatefulSetExists(t *testing.T) {
	clientset := fake.NewSimpleClientset(statefulSet("vault", "vault", 1))
	c := NewClientForClientset(clientset)

	exists, err := c.StatefulSetExists(context.Background(), "vault", "vault")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = c.StatefulSetExists(context.Background(), "vault", "other")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestReplicas(t *testing.T) {
	clientset := fake.NewSimpleClientset(statefulSet("consul", "consul", 3))
	c := NewClientForClientset(clientset)

	replicas, err := c.Replicas(context.Background(), "consul", "consul")
	require.NoError(t, err)
	assert.Equal(t, int32(3), replicas)

	_, err = c.Replicas(context.Background(), "consul", "missing")
	assert.Error(t, err)
}

func TestScale(t *testing.T) {
	clientset := fake.NewSimpleClientset(statefulSet("vault", "vault", 0))

	// The fake clientset does not implement the scale subresource, so
	// serve GetScale/UpdateScale from the tracked StatefulSet.
	stsGVR := appsv1.SchemeGroupVersion.WithResource("statefulsets")
	clientset.PrependReactor("get", "statefulsets", func(action k8stesting.Action) (bool, runtime.Object, error) {
		get, ok := action.(k8stesting.GetActionImpl)
		if !ok || get.GetSubresource() != "scale" {
			return false, nil, nil
		}
		obj, err := clientset.Tracker().Get(stsGVR, get.GetNamespace(), get.GetName())
		if err != nil {
			return true, nil, err
		}
		sts := obj.(*appsv1.StatefulSet)
		scale := &autoscalingv1.Scale{
			ObjectMeta: metav1.ObjectMeta{Namespace: sts.Namespace, Name: sts.Name},
		}
		if sts.Spec.Replicas != nil {
			scale.Spec.Replicas = *sts.Spec.Replicas
		}
		return true, scale, nil
	})
	clientset.PrependReactor("update", "statefulsets", func(action k8stesting.Action) (bool, runtime.Object, error) {
		update, ok := action.(k8stesting.UpdateActionImpl)
		if !ok || update.GetSubresource() != "scale" {
			return false, nil, nil
		}
		scale := update.GetObject().(*autoscalingv1.Scale)
		obj, err := clientset.Tracker().Get(stsGVR, update.GetNamespace(), scale.Name)
		if err != nil {
			return true, nil, err
		}
		sts := obj.(*appsv1.StatefulSet)
		sts.Spec.Replicas = int32Ptr(scale.Spec.Replicas)
		if err := clientset.Tracker().Update(stsGVR, sts, update.GetNamespace()); err != nil {
			return true, nil, err
		}
		return true, scale, nil
	})

	c := NewClientForClientset(clientset)

	require.NoError(t, c.Scale(context.Background(), "vault", "vault", 1))

	sts, err := clientset.AppsV1().StatefulSets("vault").Get(context.Background(), "vault", metav1.GetOptions{})
	require.NoError(t, err)
	require.NotNil(t, sts.Spec.Replicas)
	assert.Equal(t, int32(1), *sts.Spec.Replicas)
}

func TestRolloutRestartSetsAnnotation(t *testing.T) {
	clientset := fake.NewSimpleClientset(statefulSet("vault", "vault", 1))
	c := NewClientForClientset(clientset)

	require.NoError(t, c.RolloutRestart(context.Background(), "vault", "vault"))

	sts, err := clientset.AppsV1().StatefulSets("vault").Get(context.Background(), "vault", metav1.GetOptions{})
	require.NoError(t, err)
	assert.NotEmpty(t, sts.Spec.Template.Annotations[restartedAtAnnotation])
}

func TestServiceExists(t *testing.T) {
	clientset := fake.NewSimpleClientset(
		&corev1.Service{ObjectMeta: metav1.ObjectMeta{Namespace: "vault", Name: "vault"}},
	)
	c := NewClientForClientset(clientset)

	exists, err := c.ServiceExists(context.Background(), "vault", "vault")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = c.ServiceExists(context.Background(), "vault", "vault-ui")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestListServiceNames(t *testing.T) {
	clientset := fake.NewSimpleClientset(
		&corev1.Service{ObjectMeta: metav1.ObjectMeta{Namespace: "elasticsearch", Name: "elasticsearch-master"}},
		&corev1.Service{ObjectMeta: metav1.ObjectMeta{Namespace: "elasticsearch", Name: "elasticsearch-master-headless"}},
		&corev1.Service{ObjectMeta: metav1.ObjectMeta{Namespace: "other", Name: "unrelated"}},
	)
	c := NewClientForClientset(clientset)

	names, err := c.ListServiceNames(context.Background(), "elasticsearch")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"elasticsearch-master", "elasticsearch-master-headless"}, names)
}
