// Package kube implements the in-cluster actuators for the application
// stage: namespace, secrets, storage, database, workload, service, and
// ingress, plus the node/system-pod health readings the infra stage needs.
package kube

import (
	"context"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
)

// cloudPlatformScope is the OAuth scope GKE accepts for API-server access.
const cloudPlatformScope = "https://www.googleapis.com/auth/cloud-platform"

// NewClusterClient builds a clientset that talks to a cluster's API server
// directly, authenticating with application default credentials. Endpoint and
// CA certificate come from the cluster describe call, so no kubeconfig entry
// is needed.
func NewClusterClient(ctx context.Context, endpoint string, caCert []byte) (kubernetes.Interface, error) {
	source, err := google.DefaultTokenSource(ctx, cloudPlatformScope)
	if err != nil {
		return nil, fmt.Errorf("load application default credentials: %w", err)
	}
	cfg := &rest.Config{
		Host:            "https://" + endpoint,
		TLSClientConfig: rest.TLSClientConfig{CAData: caCert},
		WrapTransport: func(rt http.RoundTripper) http.RoundTripper {
			return &oauth2.Transport{Source: source, Base: rt}
		},
	}
	return kubernetes.NewForConfig(cfg)
}

// HealthReader reads node and system-pod health from the cluster. It backs
// the node pool convergence predicate.
type HealthReader struct {
	client kubernetes.Interface
}

// NewHealthReader creates a health reader over a clientset.
func NewHealthReader(client kubernetes.Interface) *HealthReader {
	return &HealthReader{client: client}
}

// NodeHealth returns ready and total node counts.
func (h *HealthReader) NodeHealth(ctx context.Context) (ready, total int, err error) {
	nodes, err := h.client.CoreV1().Nodes().List(ctx, metav1.ListOptions{})
	if err != nil {
		return 0, 0, fmt.Errorf("list nodes: %w", err)
	}
	for _, node := range nodes.Items {
		total++
		for _, cond := range node.Status.Conditions {
			if cond.Type == corev1.NodeReady && cond.Status == corev1.ConditionTrue {
				ready++
				break
			}
		}
	}
	return ready, total, nil
}

// SystemPodHealth returns running and total pod counts in kube-system.
func (h *HealthReader) SystemPodHealth(ctx context.Context) (running, total int, err error) {
	pods, err := h.client.CoreV1().Pods("kube-system").List(ctx, metav1.ListOptions{})
	if err != nil {
		return 0, 0, fmt.Errorf("list system pods: %w", err)
	}
	for _, pod := range pods.Items {
		total++
		if pod.Status.Phase == corev1.PodRunning || pod.Status.Phase == corev1.PodSucceeded {
			running++
		}
	}
	return running, total, nil
}
