// Package diagnostics implements the on-demand namespace snapshot collector:
// a single background job that walks a Kubernetes namespace, writes
// human-readable text per resource, and packages the result into a
// downloadable tarball.
package diagnostics

import "time"

// State is one of the four DiagnosticsJob lifecycle states.
type State string

const (
	StateIdle       State = "idle"
	StateCollecting State = "collecting"
	StateReady      State = "ready"
	StateError      State = "error"
)

// Job is a snapshot of the collector's process-wide state, safe to hand to
// callers without further locking — Collector.Status returns a copy.
type Job struct {
	State          State      `json:"state"`
	Namespace      string     `json:"namespace,omitempty"`
	StartedAt      *time.Time `json:"started_at,omitempty"`
	FinishedAt     *time.Time `json:"finished_at,omitempty"`
	CurrentStep    string     `json:"current_step,omitempty"`
	CurrentDetail  string     `json:"current_detail,omitempty"`
	CompletedSteps []string   `json:"completed_steps,omitempty"`
	PodCount       int        `json:"pod_count"`
	TotalPods      int        `json:"total_pods"`
	ErrorCount     int        `json:"error_count"`
	ArtifactPath   string     `json:"artifact_path,omitempty"`
	Error          string     `json:"error,omitempty"`
}
