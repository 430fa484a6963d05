package diagnostics

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/infraguard/preflight/internal/config"
	"go.uber.org/zap"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"
)

// ErrAlreadyCollecting is returned when a collect request arrives while the
// singleton job is already running.
var ErrAlreadyCollecting = errors.New("a diagnostics collection is already in progress")

// Collector is the process-wide, single-slot diagnostics job runner. Its
// mutex guards only state transitions; the long-running scrape work runs
// outside the lock, exactly like the test runner's single-flight join.
type Collector struct {
	mu  sync.Mutex
	job Job

	outputDir    string
	defaultSince time.Duration
	logger       *zap.SugaredLogger
}

func NewCollector(cfg config.DiagnosticsConfig, logger *zap.SugaredLogger) *Collector {
	return &Collector{
		job:          Job{State: StateIdle},
		outputDir:    cfg.OutputDir,
		defaultSince: cfg.DefaultSince,
		logger:       logger,
	}
}

// Status returns a copy of the current job snapshot.
func (c *Collector) Status() Job {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.copyJob()
}

func (c *Collector) copyJob() Job {
	j := c.job
	j.CompletedSteps = append([]string(nil), c.job.CompletedSteps...)
	return j
}

// Collect starts a new collection for namespace, deleting any prior
// artifact. It returns ErrAlreadyCollecting (-> 409) if a job is already
// running. The scrape itself runs on a detached background context so it
// survives the triggering HTTP request.
func (c *Collector) Collect(namespace string, since time.Duration) error {
	c.mu.Lock()
	if c.job.State == StateCollecting {
		c.mu.Unlock()
		return ErrAlreadyCollecting
	}
	prevArtifact := c.job.ArtifactPath
	now := time.Now()
	c.job = Job{
		State:     StateCollecting,
		Namespace: namespace,
		StartedAt: &now,
	}
	c.mu.Unlock()

	if prevArtifact != "" {
		_ = os.Remove(prevArtifact)
	}

	if since <= 0 {
		since = c.defaultSince
	}

	kubeClient, restCfg, err := buildClient()
	if err != nil {
		c.finishError(fmt.Errorf("building Kubernetes client: %w", err))
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	w := &worker{
		collector: c,
		client:    kubeClient,
		restCfg:   restCfg,
		namespace: namespace,
		since:     since,
		logger:    c.logger,
	}
	go func() {
		defer cancel()
		w.run(ctx)
	}()
	return nil
}

func (c *Collector) setPhase(step, detail string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.job.CurrentStep = step
	c.job.CurrentDetail = detail
	c.logger.Infof("PROGRESS:%s:%s", step, detail)
}

func (c *Collector) setPodTotal(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.job.TotalPods = n
}

func (c *Collector) notePodStep(i, n int, name, phase string) {
	detail := fmt.Sprintf("pod:%d/%d %s - %s", i, n, name, phase)
	c.mu.Lock()
	defer c.mu.Unlock()
	c.job.CurrentStep = "pod"
	c.job.CurrentDetail = detail
	c.logger.Infof("PROGRESS:pod:%s", detail)
}

func (c *Collector) notePodDone(i, n int, name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.job.PodCount = i
	c.job.CompletedSteps = append(c.job.CompletedSteps, name)
	c.logger.Infof("PROGRESS:pod-done:%d/%d %s", i, n, name)
}

func (c *Collector) noteError() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.job.ErrorCount++
}

func (c *Collector) finishReady(artifactPath string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := time.Now()
	c.job.State = StateReady
	c.job.FinishedAt = &now
	c.job.ArtifactPath = artifactPath
	c.job.CurrentStep = "complete"
	c.job.CurrentDetail = "archive ready"
}

func (c *Collector) finishError(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := time.Now()
	c.job.State = StateError
	c.job.FinishedAt = &now
	c.job.Error = err.Error()
	c.logger.Errorw("diagnostics collection failed", "error", err)
}

func buildClient() (kubernetes.Interface, *rest.Config, error) {
	restCfg, err := rest.InClusterConfig()
	if err != nil {
		kubeconfig := os.Getenv("KUBECONFIG")
		if kubeconfig == "" {
			home, homeErr := os.UserHomeDir()
			if homeErr != nil {
				return nil, nil, fmt.Errorf("no in-cluster config and no KUBECONFIG: %w", err)
			}
			kubeconfig = filepath.Join(home, ".kube", "config")
		}
		restCfg, err = clientcmd.BuildConfigFromFlags("", kubeconfig)
		if err != nil {
			return nil, nil, err
		}
	}
	client, err := kubernetes.NewForConfig(restCfg)
	if err != nil {
		return nil, nil, err
	}
	return client, restCfg, nil
}
