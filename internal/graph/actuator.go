package graph

import (
	"context"
	"errors"

	"github.com/glidepath/glidepath/internal/probe"
)

// ErrDeletionProtected is returned (possibly wrapped) by an actuator's Delete
// when the resource's deletion-protection flag rejects the call.
var ErrDeletionProtected = errors.New("resource is deletion-protected")

// Description is a point-in-time reading of a resource's external existence.
type Description struct {
	Exists bool
	// Detail is provider-specific status text (e.g. "RUNNING", "PROVISIONING").
	Detail string
}

// Actuator performs the cloud-side operations for one resource node. External
// cloud state is the source of truth: orchestration always re-derives node
// state through Describe rather than trusting prior in-memory records.
type Actuator interface {
	// Describe reports whether the resource currently exists.
	Describe(ctx context.Context) (Description, error)
	// Create issues the create call. Creating an already-existing resource
	// must not be attempted; callers Describe first.
	Create(ctx context.Context) error
	// Delete issues the delete call. Deleting an absent resource is the
	// caller's no-op, not the actuator's.
	Delete(ctx context.Context) error
	// Ready takes one readiness reading, for polling via the probe package.
	Ready(ctx context.Context) (probe.Observation, error)
	// ProbeSpec returns the poll interval and timeout budget for this
	// resource type.
	ProbeSpec() probe.Spec
}

// Protector is implemented by actuators of nodes carrying a
// deletion-protection flag.
type Protector interface {
	// DeletionProtected reports the current flag value from external state.
	DeletionProtected(ctx context.Context) (bool, error)
	// ClearDeletionProtection issues the mutating call that clears the flag.
	ClearDeletionProtection(ctx context.Context) error
	// ProtectionRemedy returns the manual CLI command a user can run when
	// automatic clearing fails.
	ProtectionRemedy() string
}

// Actuators binds node ids to their actuators.
type Actuators map[string]Actuator
