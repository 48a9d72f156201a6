package kube

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"

	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"

	"github.com/glidepath/glidepath/internal/constants"
	"github.com/glidepath/glidepath/internal/graph"
	"github.com/glidepath/glidepath/internal/probe"
)

// base carries what every in-cluster actuator needs.
type base struct {
	client kubernetes.Interface
	spec   AppSpec
}

func ignoreAlreadyExists(err error) error {
	if apierrors.IsAlreadyExists(err) {
		return nil
	}
	return err
}

func ignoreNotFound(err error) error {
	if apierrors.IsNotFound(err) {
		return nil
	}
	return err
}

// NamespaceActuator manages the application namespace.
type NamespaceActuator struct{ base }

// NewNamespaceActuator creates the namespace actuator.
func NewNamespaceActuator(client kubernetes.Interface, spec AppSpec) *NamespaceActuator {
	return &NamespaceActuator{base{client: client, spec: spec}}
}

func (a *NamespaceActuator) Describe(ctx context.Context) (graph.Description, error) {
	ns, err := a.client.CoreV1().Namespaces().Get(ctx, a.spec.Namespace, metav1.GetOptions{})
	if err != nil {
		if apierrors.IsNotFound(err) {
			return graph.Description{}, nil
		}
		return graph.Description{}, fmt.Errorf("get namespace %s: %w", a.spec.Namespace, err)
	}
	return graph.Description{Exists: true, Detail: string(ns.Status.Phase)}, nil
}

func (a *NamespaceActuator) Create(ctx context.Context) error {
	_, err := a.client.CoreV1().Namespaces().Create(ctx, buildNamespace(a.spec), metav1.CreateOptions{})
	return ignoreAlreadyExists(err)
}

func (a *NamespaceActuator) Delete(ctx context.Context) error {
	return ignoreNotFound(a.client.CoreV1().Namespaces().Delete(ctx, a.spec.Namespace, metav1.DeleteOptions{}))
}

func (a *NamespaceActuator) Ready(ctx context.Context) (probe.Observation, error) {
	desc, err := a.Describe(ctx)
	if err != nil {
		return probe.Observation{}, err
	}
	if !desc.Exists {
		return probe.Observation{Detail: "namespace not yet visible"}, nil
	}
	if desc.Detail != "Active" {
		return probe.Observation{Detail: fmt.Sprintf("namespace phase %s", desc.Detail)}, nil
	}
	return probe.Observation{Ready: true, Detail: "namespace active"}, nil
}

func (a *NamespaceActuator) ProbeSpec() probe.Spec {
	return probe.Spec{Interval: constants.ShortPollInterval, Timeout: constants.NetworkReadyTimeout}
}

// SecretActuator manages the application credentials secret. On first create
// it generates the database password and the n8n encryption key; existing
// values are never regenerated.
type SecretActuator struct{ base }

// NewSecretActuator creates the secret actuator.
func NewSecretActuator(client kubernetes.Interface, spec AppSpec) *SecretActuator {
	return &SecretActuator{base{client: client, spec: spec}}
}

func (a *SecretActuator) Describe(ctx context.Context) (graph.Description, error) {
	_, err := a.client.CoreV1().Secrets(a.spec.Namespace).Get(ctx, SecretName, metav1.GetOptions{})
	if err != nil {
		if apierrors.IsNotFound(err) {
			return graph.Description{}, nil
		}
		return graph.Description{}, fmt.Errorf("get secret %s: %w", SecretName, err)
	}
	return graph.Description{Exists: true}, nil
}

func (a *SecretActuator) Create(ctx context.Context) error {
	dbPassword, err := randomToken()
	if err != nil {
		return err
	}
	encryptionKey, err := randomToken()
	if err != nil {
		return err
	}
	_, err = a.client.CoreV1().Secrets(a.spec.Namespace).Create(ctx,
		buildSecret(a.spec, dbPassword, encryptionKey), metav1.CreateOptions{})
	return ignoreAlreadyExists(err)
}

func (a *SecretActuator) Delete(ctx context.Context) error {
	return ignoreNotFound(a.client.CoreV1().Secrets(a.spec.Namespace).Delete(ctx, SecretName, metav1.DeleteOptions{}))
}

func (a *SecretActuator) Ready(ctx context.Context) (probe.Observation, error) {
	desc, err := a.Describe(ctx)
	if err != nil {
		return probe.Observation{}, err
	}
	if !desc.Exists {
		return probe.Observation{Detail: "secret not yet visible"}, nil
	}
	return probe.Observation{Ready: true}, nil
}

func (a *SecretActuator) ProbeSpec() probe.Spec {
	return probe.Spec{Interval: constants.ShortPollInterval, Timeout: constants.NetworkReadyTimeout}
}

func randomToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate random token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// DataVolumeActuator manages the n8n data volume claim.
type DataVolumeActuator struct{ base }

// NewDataVolumeActuator creates the PVC actuator.
func NewDataVolumeActuator(client kubernetes.Interface, spec AppSpec) *DataVolumeActuator {
	return &DataVolumeActuator{base{client: client, spec: spec}}
}

func (a *DataVolumeActuator) Describe(ctx context.Context) (graph.Description, error) {
	pvc, err := a.client.CoreV1().PersistentVolumeClaims(a.spec.Namespace).Get(ctx, DataVolumeName, metav1.GetOptions{})
	if err != nil {
		if apierrors.IsNotFound(err) {
			return graph.Description{}, nil
		}
		return graph.Description{}, fmt.Errorf("get volume claim %s: %w", DataVolumeName, err)
	}
	return graph.Description{Exists: true, Detail: string(pvc.Status.Phase)}, nil
}

func (a *DataVolumeActuator) Create(ctx context.Context) error {
	_, err := a.client.CoreV1().PersistentVolumeClaims(a.spec.Namespace).Create(ctx, buildDataVolume(a.spec), metav1.CreateOptions{})
	return ignoreAlreadyExists(err)
}

func (a *DataVolumeActuator) Delete(ctx context.Context) error {
	return ignoreNotFound(a.client.CoreV1().PersistentVolumeClaims(a.spec.Namespace).Delete(ctx, DataVolumeName, metav1.DeleteOptions{}))
}

func (a *DataVolumeActuator) Ready(ctx context.Context) (probe.Observation, error) {
	desc, err := a.Describe(ctx)
	if err != nil {
		return probe.Observation{}, err
	}
	if !desc.Exists {
		return probe.Observation{Detail: "volume claim not yet visible"}, nil
	}
	// Pending is acceptable: default storage classes bind on first consumer.
	return probe.Observation{Ready: true, Detail: fmt.Sprintf("claim %s", desc.Detail)}, nil
}

func (a *DataVolumeActuator) ProbeSpec() probe.Spec {
	return probe.Spec{Interval: constants.ShortPollInterval, Timeout: constants.NetworkReadyTimeout}
}

// DatabaseActuator manages the PostgreSQL stateful set and its headless
// service.
type DatabaseActuator struct{ base }

// NewDatabaseActuator creates the database actuator.
func NewDatabaseActuator(client kubernetes.Interface, spec AppSpec) *DatabaseActuator {
	return &DatabaseActuator{base{client: client, spec: spec}}
}

func (a *DatabaseActuator) Describe(ctx context.Context) (graph.Description, error) {
	sts, err := a.client.AppsV1().StatefulSets(a.spec.Namespace).Get(ctx, DatabaseName, metav1.GetOptions{})
	if err != nil {
		if apierrors.IsNotFound(err) {
			return graph.Description{}, nil
		}
		return graph.Description{}, fmt.Errorf("get statefulset %s: %w", DatabaseName, err)
	}
	return graph.Description{Exists: true,
		Detail: fmt.Sprintf("replicas ready: %d/%d", sts.Status.ReadyReplicas, desiredReplicas(sts.Spec.Replicas))}, nil
}

func (a *DatabaseActuator) Create(ctx context.Context) error {
	if _, err := a.client.CoreV1().Services(a.spec.Namespace).Create(ctx, buildDatabaseService(a.spec), metav1.CreateOptions{}); err != nil {
		if ignoreAlreadyExists(err) != nil {
			return fmt.Errorf("create database service: %w", err)
		}
	}
	_, err := a.client.AppsV1().StatefulSets(a.spec.Namespace).Create(ctx, buildDatabase(a.spec), metav1.CreateOptions{})
	return ignoreAlreadyExists(err)
}

func (a *DatabaseActuator) Delete(ctx context.Context) error {
	if err := ignoreNotFound(a.client.AppsV1().StatefulSets(a.spec.Namespace).Delete(ctx, DatabaseName, metav1.DeleteOptions{})); err != nil {
		return err
	}
	return ignoreNotFound(a.client.CoreV1().Services(a.spec.Namespace).Delete(ctx, DatabaseName, metav1.DeleteOptions{}))
}

func (a *DatabaseActuator) Ready(ctx context.Context) (probe.Observation, error) {
	sts, err := a.client.AppsV1().StatefulSets(a.spec.Namespace).Get(ctx, DatabaseName, metav1.GetOptions{})
	if err != nil {
		if apierrors.IsNotFound(err) {
			return probe.Observation{Detail: "statefulset not yet visible"}, nil
		}
		return probe.Observation{}, err
	}
	return workloadObservation(sts.Status.ReadyReplicas, desiredReplicas(sts.Spec.Replicas)), nil
}

func (a *DatabaseActuator) ProbeSpec() probe.Spec {
	return probe.Spec{Interval: constants.ShortPollInterval, Timeout: constants.WorkloadReadyTimeout}
}

// WorkloadActuator manages the n8n deployment.
type WorkloadActuator struct{ base }

// NewWorkloadActuator creates the workload actuator.
func NewWorkloadActuator(client kubernetes.Interface, spec AppSpec) *WorkloadActuator {
	return &WorkloadActuator{base{client: client, spec: spec}}
}

func (a *WorkloadActuator) Describe(ctx context.Context) (graph.Description, error) {
	dep, err := a.client.AppsV1().Deployments(a.spec.Namespace).Get(ctx, WorkloadName, metav1.GetOptions{})
	if err != nil {
		if apierrors.IsNotFound(err) {
			return graph.Description{}, nil
		}
		return graph.Description{}, fmt.Errorf("get deployment %s: %w", WorkloadName, err)
	}
	return graph.Description{Exists: true,
		Detail: fmt.Sprintf("replicas ready: %d/%d", dep.Status.ReadyReplicas, desiredReplicas(dep.Spec.Replicas))}, nil
}

func (a *WorkloadActuator) Create(ctx context.Context) error {
	_, err := a.client.AppsV1().Deployments(a.spec.Namespace).Create(ctx, buildWorkload(a.spec), metav1.CreateOptions{})
	return ignoreAlreadyExists(err)
}

func (a *WorkloadActuator) Delete(ctx context.Context) error {
	return ignoreNotFound(a.client.AppsV1().Deployments(a.spec.Namespace).Delete(ctx, WorkloadName, metav1.DeleteOptions{}))
}

func (a *WorkloadActuator) Ready(ctx context.Context) (probe.Observation, error) {
	dep, err := a.client.AppsV1().Deployments(a.spec.Namespace).Get(ctx, WorkloadName, metav1.GetOptions{})
	if err != nil {
		if apierrors.IsNotFound(err) {
			return probe.Observation{Detail: "deployment not yet visible"}, nil
		}
		return probe.Observation{}, err
	}
	return workloadObservation(dep.Status.ReadyReplicas, desiredReplicas(dep.Spec.Replicas)), nil
}

func (a *WorkloadActuator) ProbeSpec() probe.Spec {
	return probe.Spec{Interval: constants.ShortPollInterval, Timeout: constants.WorkloadReadyTimeout}
}

// desiredReplicas resolves a possibly-unset replica count to the API default
// of one. Objects not created through these manifests can leave it unset.
func desiredReplicas(replicas *int32) int32 {
	if replicas == nil {
		return 1
	}
	return *replicas
}

// workloadObservation converges only on an exact ready-replica match.
func workloadObservation(ready, desired int32) probe.Observation {
	if ready == desired {
		return probe.Observation{Ready: true, Detail: fmt.Sprintf("replicas ready: %d/%d", ready, desired)}
	}
	return probe.Observation{Detail: fmt.Sprintf("replicas ready: %d/%d", ready, desired)}
}

// ServiceActuator manages the n8n service fronting the workload.
type ServiceActuator struct{ base }

// NewServiceActuator creates the service actuator.
func NewServiceActuator(client kubernetes.Interface, spec AppSpec) *ServiceActuator {
	return &ServiceActuator{base{client: client, spec: spec}}
}

func (a *ServiceActuator) Describe(ctx context.Context) (graph.Description, error) {
	_, err := a.client.CoreV1().Services(a.spec.Namespace).Get(ctx, ServiceName, metav1.GetOptions{})
	if err != nil {
		if apierrors.IsNotFound(err) {
			return graph.Description{}, nil
		}
		return graph.Description{}, fmt.Errorf("get service %s: %w", ServiceName, err)
	}
	return graph.Description{Exists: true}, nil
}

func (a *ServiceActuator) Create(ctx context.Context) error {
	_, err := a.client.CoreV1().Services(a.spec.Namespace).Create(ctx, buildService(a.spec), metav1.CreateOptions{})
	return ignoreAlreadyExists(err)
}

func (a *ServiceActuator) Delete(ctx context.Context) error {
	return ignoreNotFound(a.client.CoreV1().Services(a.spec.Namespace).Delete(ctx, ServiceName, metav1.DeleteOptions{}))
}

func (a *ServiceActuator) Ready(ctx context.Context) (probe.Observation, error) {
	desc, err := a.Describe(ctx)
	if err != nil {
		return probe.Observation{}, err
	}
	if !desc.Exists {
		return probe.Observation{Detail: "service not yet visible"}, nil
	}
	return probe.Observation{Ready: true}, nil
}

func (a *ServiceActuator) ProbeSpec() probe.Spec {
	return probe.Spec{Interval: constants.ShortPollInterval, Timeout: constants.NetworkReadyTimeout}
}

// IngressActuator manages the external ingress. Convergence means an external
// address is assigned; assignment can lag stage completion by several
// minutes, so a timeout here is surfaced as a warning by the executor.
type IngressActuator struct{ base }

// NewIngressActuator creates the ingress actuator.
func NewIngressActuator(client kubernetes.Interface, spec AppSpec) *IngressActuator {
	return &IngressActuator{base{client: client, spec: spec}}
}

func (a *IngressActuator) Describe(ctx context.Context) (graph.Description, error) {
	ing, err := a.client.NetworkingV1().Ingresses(a.spec.Namespace).Get(ctx, IngressName, metav1.GetOptions{})
	if err != nil {
		if apierrors.IsNotFound(err) {
			return graph.Description{}, nil
		}
		return graph.Description{}, fmt.Errorf("get ingress %s: %w", IngressName, err)
	}
	detail := ""
	if len(ing.Status.LoadBalancer.Ingress) > 0 {
		detail = ing.Status.LoadBalancer.Ingress[0].IP
	}
	return graph.Description{Exists: true, Detail: detail}, nil
}

func (a *IngressActuator) Create(ctx context.Context) error {
	_, err := a.client.NetworkingV1().Ingresses(a.spec.Namespace).Create(ctx, buildIngress(a.spec), metav1.CreateOptions{})
	return ignoreAlreadyExists(err)
}

func (a *IngressActuator) Delete(ctx context.Context) error {
	return ignoreNotFound(a.client.NetworkingV1().Ingresses(a.spec.Namespace).Delete(ctx, IngressName, metav1.DeleteOptions{}))
}

func (a *IngressActuator) Ready(ctx context.Context) (probe.Observation, error) {
	desc, err := a.Describe(ctx)
	if err != nil {
		return probe.Observation{}, err
	}
	if !desc.Exists {
		return probe.Observation{Detail: "ingress not yet visible"}, nil
	}
	if desc.Detail == "" {
		return probe.Observation{Detail: "external address not yet assigned"}, nil
	}
	return probe.Observation{Ready: true, Detail: fmt.Sprintf("external address %s", desc.Detail)}, nil
}

func (a *IngressActuator) ProbeSpec() probe.Spec {
	return probe.Spec{Interval: constants.ShortPollInterval, Timeout: constants.IngressReadyTimeout}
}
