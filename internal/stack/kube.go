package stack

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"k8s.io/client-go/kubernetes"

	"github.com/glidepath/glidepath/internal/graph"
	"github.com/glidepath/glidepath/internal/probe"
	"github.com/glidepath/glidepath/internal/provider/gcp"
	"github.com/glidepath/glidepath/internal/provider/kube"
)

// KubeSource resolves a cluster connection on demand. The app-stage actuators
// are bound before the cluster necessarily exists, so they resolve their
// clientset at call time rather than at session creation.
type KubeSource interface {
	Client(ctx context.Context) (kubernetes.Interface, error)
}

// GKESource derives the cluster connection from the live cluster's describe
// output: endpoint and CA certificate from the container API, credentials
// from application default credentials. The resolved clientset is cached for
// the rest of the session.
type GKESource struct {
	cluster *gcp.ClusterActuator

	mu     sync.Mutex
	client kubernetes.Interface
}

// NewGKESource creates a source resolving through the given cluster actuator.
func NewGKESource(cluster *gcp.ClusterActuator) *GKESource {
	return &GKESource{cluster: cluster}
}

func (s *GKESource) Client(ctx context.Context) (kubernetes.Interface, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.client != nil {
		return s.client, nil
	}
	info, err := s.cluster.ConnectInfo(ctx)
	if err != nil {
		return nil, err
	}
	client, err := kube.NewClusterClient(ctx, info.Endpoint, info.CACert)
	if err != nil {
		return nil, fmt.Errorf("connect to cluster: %w", err)
	}
	s.client = client
	return client, nil
}

// StaticKubeSource serves a fixed clientset. Used in tests.
type StaticKubeSource struct {
	Clientset kubernetes.Interface
}

func (s StaticKubeSource) Client(ctx context.Context) (kubernetes.Interface, error) {
	return s.Clientset, nil
}

// lazyActuator defers construction of an in-cluster actuator until the first
// call that needs it. While the cluster does not exist the resource is
// reported absent and deleting it is a no-op; any other connection failure
// surfaces as an error so callers never mistake an unreachable resource for
// an absent one.
type lazyActuator struct {
	id     string
	source KubeSource
	build  func(kubernetes.Interface) graph.Actuator
	spec   probe.Spec
}

func newLazyActuator(id string, source KubeSource, build func(kubernetes.Interface) graph.Actuator) *lazyActuator {
	return &lazyActuator{
		id:     id,
		source: source,
		build:  build,
		// Probe parameters are static per resource kind, so they can be read
		// off an unconnected instance.
		spec: build(nil).ProbeSpec(),
	}
}

func (l *lazyActuator) resolve(ctx context.Context) (graph.Actuator, error) {
	client, err := l.source.Client(ctx)
	if err != nil {
		return nil, err
	}
	return l.build(client), nil
}

func (l *lazyActuator) Describe(ctx context.Context) (graph.Description, error) {
	act, err := l.resolve(ctx)
	if err != nil {
		if errors.Is(err, gcp.ErrClusterNotFound) {
			return graph.Description{}, nil
		}
		return graph.Description{}, fmt.Errorf("%s: %w", l.id, err)
	}
	return act.Describe(ctx)
}

func (l *lazyActuator) Create(ctx context.Context) error {
	act, err := l.resolve(ctx)
	if err != nil {
		return fmt.Errorf("%s: %w", l.id, err)
	}
	return act.Create(ctx)
}

func (l *lazyActuator) Delete(ctx context.Context) error {
	act, err := l.resolve(ctx)
	if err != nil {
		if errors.Is(err, gcp.ErrClusterNotFound) {
			return nil
		}
		return fmt.Errorf("%s: %w", l.id, err)
	}
	return act.Delete(ctx)
}

func (l *lazyActuator) Ready(ctx context.Context) (probe.Observation, error) {
	act, err := l.resolve(ctx)
	if err != nil {
		return probe.Observation{}, fmt.Errorf("%s: %w", l.id, err)
	}
	return act.Ready(ctx)
}

func (l *lazyActuator) ProbeSpec() probe.Spec {
	return l.spec
}

// lazyHealthReader defers the node/system-pod health reads the same way. The
// node pool converges only after the cluster exists, so resolution failures
// are plain errors here.
type lazyHealthReader struct {
	source KubeSource
}

func (r lazyHealthReader) NodeHealth(ctx context.Context) (ready, total int, err error) {
	client, err := r.source.Client(ctx)
	if err != nil {
		return 0, 0, err
	}
	return kube.NewHealthReader(client).NodeHealth(ctx)
}

func (r lazyHealthReader) SystemPodHealth(ctx context.Context) (running, total int, err error) {
	client, err := r.source.Client(ctx)
	if err != nil {
		return 0, 0, err
	}
	return kube.NewHealthReader(client).SystemPodHealth(ctx)
}
