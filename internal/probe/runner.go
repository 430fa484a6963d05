package probe

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// runnerEntry is the runner's bookkeeping for one probe id: its latest
// terminal result plus, while in flight, a channel every joining caller
// waits on.
type runnerEntry struct {
	latest   *Result
	inFlight chan struct{}
	running  *Result // not read anywhere; Status reports in-flight entries as StatusRunning
}

// Runner executes probes concurrently, holds the latest result per probe,
// and serves status queries. RunnerState (the guarded map) is the Runner
// itself — there is no separate exported struct exposing the raw map;
// every access goes through a method that takes the lock internally.
type Runner struct {
	mu      sync.Mutex
	entries map[string]*runnerEntry
	sem     chan struct{}

	runAllMu      sync.Mutex
	runAllInFlight chan struct{}
	runAllResult   map[string]Result

	logger *zap.SugaredLogger
}

// NewRunner builds a Runner with the given global concurrency cap.
func NewRunner(concurrency int, logger *zap.SugaredLogger) *Runner {
	if concurrency <= 0 {
		concurrency = 16
	}
	return &Runner{
		entries: make(map[string]*runnerEntry),
		sem:     make(chan struct{}, concurrency),
		logger:  logger,
	}
}

func (r *Runner) entryFor(id string) *runnerEntry {
	e, ok := r.entries[id]
	if !ok {
		e = &runnerEntry{}
		r.entries[id] = e
	}
	return e
}

// Run executes one probe, joining an in-flight execution of the same
// probe id rather than starting a second, and enforces timeout as an
// upper bound.
func (r *Runner) Run(ctx context.Context, p Probe, timeout time.Duration) Result {
	id := p.ID()

	r.mu.Lock()
	e := r.entryFor(id)
	if e.inFlight != nil {
		// Someone else is already running this probe; join it.
		wait := e.inFlight
		r.mu.Unlock()
		<-wait
		r.mu.Lock()
		result := *r.entries[id].latest
		r.mu.Unlock()
		return result
	}
	done := make(chan struct{})
	e.inFlight = done
	r.mu.Unlock()

	result := r.execute(ctx, p, timeout)

	r.mu.Lock()
	e = r.entryFor(id)
	e.latest = &result
	e.inFlight = nil
	close(done)
	r.mu.Unlock()

	return result
}

// execute runs a single probe under the given timeout, translating
// cancellation into a timeout result per the runner's contract. The
// worker goroutine reports on a buffered channel, so a probe that ignores
// cancellation still finishes in the background; its eventual result is
// discarded.
func (r *Runner) execute(ctx context.Context, p Probe, timeout time.Duration) Result {
	if !p.IsConfigured() {
		return Skipped(p, "required configuration")
	}

	select {
	case r.sem <- struct{}{}:
		defer func() { <-r.sem }()
	case <-ctx.Done():
		return timeoutResult(p, timeout)
	}

	runCtx := ctx
	var cancel context.CancelFunc
	if timeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, timeout)
	} else {
		runCtx, cancel = context.WithTimeout(ctx, 0)
	}
	defer cancel()

	type outcome struct {
		status      Status
		message     string
		remediation string
		rec         *Recorder
	}
	out := make(chan outcome, 1)

	rec := &Recorder{}
	started := time.Now()

	go func() {
		status, message, remediation := r.safeExecute(runCtx, p, rec)
		out <- outcome{status: status, message: message, remediation: remediation, rec: rec}
	}()

	select {
	case o := <-out:
		return Result{
			ProbeID:     p.ID(),
			DisplayName: p.DisplayName(),
			Status:      o.status,
			Message:     o.message,
			StartedAt:   started,
			FinishedAt:  time.Now(),
			SubTests:    o.rec.subTests,
			Remediation: o.remediation,
			Logs:        o.rec.logs,
		}
	case <-runCtx.Done():
		if r.logger != nil {
			r.logger.Warnw("probe timed out", "probe_id", p.ID(), "timeout", timeout)
		}
		return timeoutResult(p, timeout)
	}
}

// safeExecute wraps Execute in a recover so a misbehaving probe can never
// crash the runner, per the "probes must not raise" design note.
func (r *Runner) safeExecute(ctx context.Context, p Probe, rec *Recorder) (status Status, message, remediation string) {
	defer func() {
		if rv := recover(); rv != nil {
			status = StatusError
			message = fmt.Sprintf("probe panicked: %v", rv)
			remediation = "restart the service and check probe logs"
		}
	}()
	return p.Execute(ctx, rec)
}

func timeoutResult(p Probe, timeout time.Duration) Result {
	now := time.Now()
	return Result{
		ProbeID:     p.ID(),
		DisplayName: p.DisplayName(),
		Status:      StatusTimeout,
		Message:     fmt.Sprintf("probe did not complete within %s", timeout),
		StartedAt:   now,
		FinishedAt:  now,
		Remediation: "investigate network latency to the target or increase the timeout",
	}
}

// RunAll runs every configured probe in the registry concurrently, each
// under its own timeoutPerProbe deadline, and returns when the last one
// terminates. A second concurrent call joins the first.
func (r *Runner) RunAll(ctx context.Context, reg *Registry, timeoutPerProbe time.Duration) map[string]Result {
	r.runAllMu.Lock()
	if r.runAllInFlight != nil {
		wait := r.runAllInFlight
		r.runAllMu.Unlock()
		<-wait
		r.runAllMu.Lock()
		result := r.runAllResult
		r.runAllMu.Unlock()
		return result
	}
	done := make(chan struct{})
	r.runAllInFlight = done
	r.runAllMu.Unlock()

	configured := reg.Configured()
	results := make(map[string]Result, len(configured))
	var mu sync.Mutex
	var wg sync.WaitGroup

	for _, p := range configured {
		wg.Add(1)
		go func(p Probe) {
			defer wg.Done()
			res := r.Run(ctx, p, timeoutPerProbe)
			mu.Lock()
			results[p.ID()] = res
			mu.Unlock()
		}(p)
	}
	wg.Wait()

	r.runAllMu.Lock()
	r.runAllResult = results
	r.runAllInFlight = nil
	close(done)
	r.runAllMu.Unlock()

	return results
}

// StatusEntry is the read-only snapshot shape returned by Status.
type StatusEntry struct {
	Status     Status    `json:"status"`
	StartedAt  time.Time `json:"started_at,omitempty"`
	FinishedAt time.Time `json:"finished_at,omitempty"`
	Message    string    `json:"message"`
}

// Status returns a read-only snapshot of every probe the runner has ever
// run or is currently running. Callers may iterate the returned map
// without holding any lock.
func (r *Runner) Status() map[string]StatusEntry {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make(map[string]StatusEntry, len(r.entries))
	for id, e := range r.entries {
		switch {
		case e.inFlight != nil:
			out[id] = StatusEntry{Status: StatusRunning}
		case e.latest != nil:
			out[id] = StatusEntry{
				Status:     e.latest.Status,
				StartedAt:  e.latest.StartedAt,
				FinishedAt: e.latest.FinishedAt,
				Message:    e.latest.Message,
			}
		}
	}
	return out
}

// LastResult returns the latest terminal result for probeID, or false if
// the probe has never run.
func (r *Runner) LastResult(probeID string) (Result, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[probeID]
	if !ok || e.latest == nil {
		return Result{}, false
	}
	return *e.latest, true
}
