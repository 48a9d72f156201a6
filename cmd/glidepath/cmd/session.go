package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/glidepath/glidepath/internal/config"
	"github.com/glidepath/glidepath/internal/executor"
	"github.com/glidepath/glidepath/internal/graph"
	"github.com/glidepath/glidepath/internal/output"
	"github.com/glidepath/glidepath/internal/provider/gcp"
	"github.com/glidepath/glidepath/internal/stack"
)

// session bundles the per-invocation wiring: cloud clients, the resource
// graph, and its actuator bindings for one environment.
type session struct {
	env      *config.Environment
	names    stack.Names
	clients  *gcp.Clients
	registry *graph.Registry
	executor *executor.Executor
	checker  *stack.Checker
	// actuators retained for the teardown guard.
	actuators graph.Actuators
}

// newSession connects the cloud clients and binds actuators. In-cluster
// actuators derive their connection from the environment's cluster on first
// use, so a session created before the cluster exists stays valid once the
// infra stage converges.
func newSession(ctx context.Context, env *config.Environment) (*session, error) {
	clients, err := gcp.NewClients(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Google Cloud: %w", err)
	}

	registry, err := stack.BuildRegistry()
	if err != nil {
		return nil, err
	}

	names := stack.NewNames(env.Name)
	actuators := stack.BuildActuators(clients, nil, env, names)

	return &session{
		env:       env,
		names:     names,
		clients:   clients,
		registry:  registry,
		executor:  executor.New(registry, actuators, slog.Default()),
		checker:   stack.NewChecker(clients, env, names),
		actuators: actuators,
	}, nil
}

func (s *session) close() {
	if err := s.clients.Close(); err != nil {
		slog.Debug("failed to close clients", "error", err)
	}
}

// printNodeResults renders the per-node outcome table.
func printNodeResults(results []nodeLine) {
	for _, line := range results {
		if line.Detail != "" {
			output.KeyValue(line.ID, output.StatusBadge(string(line.State))+"  "+line.Detail)
		} else {
			output.KeyValue(line.ID, output.StatusBadge(string(line.State)))
		}
	}
}

type nodeLine struct {
	ID     string
	State  graph.State
	Detail string
}
