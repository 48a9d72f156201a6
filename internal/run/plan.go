package run

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/glidepath/glidepath/internal/graph"
)

// PlannedAction is one intended step of a plan.
type PlannedAction struct {
	Node   string      `yaml:"node"`
	Stage  graph.Stage `yaml:"stage"`
	Action string      `yaml:"action"` // create | skip | delete
	Reason string      `yaml:"reason,omitempty"`
}

// Plan is the serialized intended-actions artifact produced by a plan step
// and consumed by the apply of the same invocation. It is disposable: cloud
// state remains the only source of truth, and the file is deleted after use.
type Plan struct {
	Environment string          `yaml:"environment"`
	Target      string          `yaml:"target"`
	CreatedAt   time.Time       `yaml:"created_at"`
	Actions     []PlannedAction `yaml:"actions"`
}

// PlanPath returns the plan artifact path for an environment and target.
func PlanPath(environment, target string) string {
	return filepath.Join(os.TempDir(), fmt.Sprintf("glidepath-%s-%s-plan.yaml", environment, target))
}

// Save writes the plan artifact.
func (p *Plan) Save(path string) error {
	data, err := yaml.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to marshal plan: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write plan file %s: %w", path, err)
	}
	return nil
}

// LoadPlan reads a plan artifact.
func LoadPlan(path string) (*Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read plan file %s: %w", path, err)
	}
	var p Plan
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to parse plan file %s: %w", path, err)
	}
	return &p, nil
}

// Discard removes a consumed plan artifact. A missing file is fine.
func Discard(path string) {
	_ = os.Remove(path)
}
