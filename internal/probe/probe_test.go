package probe

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func fastSpec() Spec {
	return Spec{Interval: time.Millisecond, Timeout: 100 * time.Millisecond}
}

func TestWait_ImmediatelyReady(t *testing.T) {
	result := Wait(context.Background(), fastSpec(), func(ctx context.Context) (Observation, error) {
		return Observation{Ready: true, Detail: "converged"}, nil
	})

	assert.Equal(t, Ready, result.State)
	assert.Equal(t, "converged", result.Detail)
}

func TestWait_BecomesReadyAfterRetries(t *testing.T) {
	calls := 0
	result := Wait(context.Background(), fastSpec(), func(ctx context.Context) (Observation, error) {
		calls++
		if calls < 3 {
			return Observation{Detail: "still provisioning"}, nil
		}
		return Observation{Ready: true}, nil
	})

	assert.Equal(t, Ready, result.State)
	assert.GreaterOrEqual(t, calls, 3)
}

func TestWait_TerminalFailureStopsPolling(t *testing.T) {
	calls := 0
	result := Wait(context.Background(), fastSpec(), func(ctx context.Context) (Observation, error) {
		calls++
		return Observation{Failed: true, Detail: "system pods below threshold"}, nil
	})

	assert.Equal(t, Degraded, result.State)
	assert.Equal(t, "system pods below threshold", result.Detail)
	assert.Equal(t, 1, calls, "terminal failure must stop polling immediately")
}

func TestWait_TimesOut(t *testing.T) {
	result := Wait(context.Background(), Spec{Interval: time.Millisecond, Timeout: 20 * time.Millisecond},
		func(ctx context.Context) (Observation, error) {
			return Observation{Detail: "never ready"}, nil
		})

	assert.Equal(t, TimedOut, result.State)
	assert.Equal(t, "never ready", result.Detail)
}

func TestWait_TransientErrorsAreRetried(t *testing.T) {
	calls := 0
	result := Wait(context.Background(), fastSpec(), func(ctx context.Context) (Observation, error) {
		calls++
		if calls == 1 {
			return Observation{}, errors.New("transient describe failure")
		}
		return Observation{Ready: true}, nil
	})

	assert.Equal(t, Ready, result.State)
	assert.Equal(t, 2, calls)
}

func TestWait_ContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := Wait(ctx, Spec{Interval: time.Millisecond, Timeout: time.Minute},
		func(ctx context.Context) (Observation, error) {
			return Observation{Detail: "pending"}, nil
		})

	assert.Equal(t, TimedOut, result.State)
}
