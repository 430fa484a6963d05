package probe

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProbe struct {
	id          string
	configured  bool
	delay       time.Duration
	status      Status
	message     string
	remediation string
	calls       int32
}

func (f *fakeProbe) ID() string           { return f.id }
func (f *fakeProbe) DisplayName() string  { return f.id }
func (f *fakeProbe) IsConfigured() bool   { return f.configured }
func (f *fakeProbe) Execute(ctx context.Context, rec *Recorder) (Status, string, string) {
	atomic.AddInt32(&f.calls, 1)
	rec.Record("step1", SubTestResult{Success: true, Message: "ok"})
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
		}
	}
	return f.status, f.message, f.remediation
}

func TestRunSkippedWhenUnconfigured(t *testing.T) {
	p := &fakeProbe{id: "x", configured: false}
	r := NewRunner(4, nil)

	res := r.Run(context.Background(), p, time.Second)
	assert.Equal(t, StatusSkipped, res.Status)
	assert.Equal(t, int32(0), p.calls)
}

func TestRunHappyPath(t *testing.T) {
	p := &fakeProbe{id: "x", configured: true, status: StatusPassed, message: "ok"}
	r := NewRunner(4, nil)

	res := r.Run(context.Background(), p, time.Second)
	require.Equal(t, StatusPassed, res.Status)
	require.Len(t, res.SubTests, 1)
	assert.True(t, res.FinishedAt.After(res.StartedAt) || res.FinishedAt.Equal(res.StartedAt))
}

func TestRunZeroDeadlineIsImmediateTimeout(t *testing.T) {
	p := &fakeProbe{id: "x", configured: true, delay: 50 * time.Millisecond, status: StatusPassed}
	r := NewRunner(4, nil)

	res := r.Run(context.Background(), p, 0)
	assert.Equal(t, StatusTimeout, res.Status)
}

func TestRunJoinsInFlight(t *testing.T) {
	p := &fakeProbe{id: "x", configured: true, delay: 100 * time.Millisecond, status: StatusPassed}
	r := NewRunner(4, nil)

	var wg sync.WaitGroup
	results := make([]Result, 5)
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = r.Run(context.Background(), p, time.Second)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&p.calls), "only one concurrent execution should run")
	for _, res := range results {
		assert.Equal(t, StatusPassed, res.Status)
	}
}

func TestRunAllPreservesUnaffectedEntries(t *testing.T) {
	configured := &fakeProbe{id: "dns", configured: true, status: StatusPassed, message: "ok"}
	unconfigured := &fakeProbe{id: "s3", configured: false}
	reg := NewRegistry(configured, unconfigured)
	r := NewRunner(4, nil)

	results := r.RunAll(context.Background(), reg, time.Second)
	require.Len(t, results, 1)
	assert.Equal(t, StatusPassed, results["dns"].Status)

	_, hasLast := r.LastResult("s3")
	assert.False(t, hasLast, "unconfigured probe should never get a latest entry from run-all")
}

func TestStatusSnapshotIsCopy(t *testing.T) {
	p := &fakeProbe{id: "x", configured: true, status: StatusPassed}
	r := NewRunner(4, nil)
	r.Run(context.Background(), p, time.Second)

	snap := r.Status()
	require.Contains(t, snap, "x")
	assert.Equal(t, StatusPassed, snap["x"].Status)

	snap["x"] = StatusEntry{Status: StatusFailed}
	assert.Equal(t, StatusPassed, r.Status()["x"].Status)
}
