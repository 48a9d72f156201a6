// Package stack wires the resource graph for one environment: the node
// registry, the actuator bindings, and the preflight checks. All cloud
// resource names derive from the single naming registry here.
package stack

import "fmt"

// Names derives every cloud resource name for an environment. Components
// never concatenate name strings themselves.
type Names struct {
	env string
}

// NewNames creates the naming registry for an environment.
func NewNames(environment string) Names {
	return Names{env: environment}
}

func (n Names) Network() string     { return fmt.Sprintf("%s-n8n-net", n.env) }
func (n Names) Subnet() string      { return fmt.Sprintf("%s-n8n-subnet", n.env) }
func (n Names) Cluster() string     { return fmt.Sprintf("%s-n8n-cluster", n.env) }
func (n Names) NodePool() string    { return fmt.Sprintf("%s-n8n-pool", n.env) }
func (n Names) Address() string     { return fmt.Sprintf("%s-n8n-ip", n.env) }
func (n Names) Certificate() string { return fmt.Sprintf("%s-n8n-cert", n.env) }
func (n Names) Namespace() string   { return "n8n" }
