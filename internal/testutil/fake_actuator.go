// Package testutil provides test doubles shared across packages.
package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/glidepath/glidepath/internal/graph"
	"github.com/glidepath/glidepath/internal/probe"
)

// FakeActuator is an in-memory actuator for orchestration tests. It tracks
// call counts so tests can assert which cloud calls would have been issued.
type FakeActuator struct {
	mu sync.Mutex

	// Exists is the simulated external existence of the resource.
	Exists bool
	// ReadyAfter is how many readiness readings return not-ready before the
	// resource converges. Zero converges immediately.
	ReadyAfter int
	// NeverReady keeps the resource from ever converging (timeout path).
	NeverReady bool
	// TerminalDetail, when set, makes readiness report a terminal failure.
	TerminalDetail string

	// Protected simulates a deletion-protection flag.
	Protected bool
	// ClearFails keeps ClearDeletionProtection from clearing the flag.
	ClearFails bool
	// ProtectionSticky makes Delete reject even after the flag reads cleared,
	// as if protection were re-asserted server-side.
	ProtectionSticky bool

	DescribeErr error
	CreateErr   error
	DeleteErr   error

	DescribeCalls int
	CreateCalls   int
	DeleteCalls   int
	ClearCalls    int

	readings int
}

// Describe implements graph.Actuator.
func (f *FakeActuator) Describe(ctx context.Context) (graph.Description, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.DescribeCalls++
	if f.DescribeErr != nil {
		return graph.Description{}, f.DescribeErr
	}
	return graph.Description{Exists: f.Exists}, nil
}

// Create implements graph.Actuator.
func (f *FakeActuator) Create(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.CreateCalls++
	if f.CreateErr != nil {
		return f.CreateErr
	}
	f.Exists = true
	return nil
}

// Delete implements graph.Actuator.
func (f *FakeActuator) Delete(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.DeleteCalls++
	if f.Protected || f.ProtectionSticky {
		return graph.ErrDeletionProtected
	}
	if f.DeleteErr != nil {
		return f.DeleteErr
	}
	f.Exists = false
	return nil
}

// Ready implements graph.Actuator.
func (f *FakeActuator) Ready(ctx context.Context) (probe.Observation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.TerminalDetail != "" {
		return probe.Observation{Failed: true, Detail: f.TerminalDetail}, nil
	}
	if f.NeverReady {
		return probe.Observation{Detail: "not converging"}, nil
	}
	f.readings++
	if f.readings > f.ReadyAfter {
		return probe.Observation{Ready: true, Detail: "converged"}, nil
	}
	return probe.Observation{Detail: "provisioning"}, nil
}

// ProbeSpec implements graph.Actuator with test-friendly budgets.
func (f *FakeActuator) ProbeSpec() probe.Spec {
	return probe.Spec{Interval: time.Millisecond, Timeout: 50 * time.Millisecond}
}

// DeletionProtected implements graph.Protector.
func (f *FakeActuator) DeletionProtected(ctx context.Context) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Protected, nil
}

// ClearDeletionProtection implements graph.Protector.
func (f *FakeActuator) ClearDeletionProtection(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ClearCalls++
	if f.ClearFails {
		return nil // call "succeeds" but the flag stays set
	}
	f.Protected = false
	return nil
}

// ProtectionRemedy implements graph.Protector.
func (f *FakeActuator) ProtectionRemedy() string {
	return "clear the deletion-protection label manually, then re-run destroy"
}
