package diagnostics

import (
	"testing"
	"time"

	"github.com/infraguard/preflight/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestCollector(t *testing.T) *Collector {
	t.Helper()
	return NewCollector(config.DiagnosticsConfig{
		OutputDir:    t.TempDir(),
		DefaultSince: time.Hour,
	}, zap.NewNop().Sugar())
}

func TestCollectRejectsWhileInFlight(t *testing.T) {
	c := newTestCollector(t)

	c.mu.Lock()
	c.job.State = StateCollecting
	c.mu.Unlock()

	err := c.Collect("default", 0)
	require.ErrorIs(t, err, ErrAlreadyCollecting)
}

func TestCollectFailsWithoutClusterAccess(t *testing.T) {
	t.Setenv("KUBECONFIG", "/nonexistent/kubeconfig")

	c := newTestCollector(t)
	err := c.Collect("default", 0)
	require.NoError(t, err)

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if c.Status().State != StateCollecting {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	status := c.Status()
	assert.Equal(t, StateError, status.State)
	assert.NotEmpty(t, status.Error)
}

func TestStatusSnapshotIsCopy(t *testing.T) {
	c := newTestCollector(t)
	c.mu.Lock()
	c.job.CompletedSteps = []string{"pod-a"}
	c.mu.Unlock()

	snap := c.Status()
	snap.CompletedSteps[0] = "mutated"

	assert.Equal(t, "pod-a", c.Status().CompletedSteps[0])
}
