package diagnostics

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"go.uber.org/zap"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/kubernetes/scheme"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/remotecommand"
)

// worker performs the nine-phase scrape for a single collection request.
// It is discarded after one run; the Collector owns all shared state.
type worker struct {
	collector *Collector
	client    kubernetes.Interface
	restCfg   *rest.Config
	namespace string
	since     time.Duration
	logger    *zap.SugaredLogger
}

func (w *worker) run(ctx context.Context) {
	jobDir := filepath.Join(w.collector.outputDir, fmt.Sprintf("%s-%d", w.namespace, time.Now().Unix()))

	w.collector.setPhase("init", "creating output directory "+jobDir)
	if err := os.MkdirAll(jobDir, 0o755); err != nil {
		w.collector.finishError(fmt.Errorf("init: %w", err))
		return
	}

	w.collector.setPhase("events", "capturing namespace events")
	if err := w.writeEvents(ctx, jobDir); err != nil {
		w.collector.noteError()
		w.logger.Warnw("events capture failed", "error", err)
	}

	w.collector.setPhase("services", "capturing services")
	if err := w.writeServices(ctx, jobDir); err != nil {
		w.collector.noteError()
		w.logger.Warnw("services capture failed", "error", err)
	}

	w.collector.setPhase("configmaps", "listing configmaps")
	if err := w.writeConfigMapList(ctx, jobDir); err != nil {
		w.collector.noteError()
		w.logger.Warnw("configmap listing failed", "error", err)
	}

	w.collector.setPhase("secrets", "listing secret names")
	if err := w.writeSecretNames(ctx, jobDir); err != nil {
		w.collector.noteError()
		w.logger.Warnw("secret listing failed", "error", err)
	}

	w.collector.setPhase("discover", "enumerating pods")
	pods, err := w.client.CoreV1().Pods(w.namespace).List(ctx, metav1.ListOptions{})
	if err != nil {
		w.collector.finishError(fmt.Errorf("discover: %w", err))
		return
	}
	total := len(pods.Items)
	w.collector.setPodTotal(total)

	podsDir := filepath.Join(jobDir, "pods")
	if err := os.MkdirAll(podsDir, 0o755); err != nil {
		w.collector.finishError(fmt.Errorf("init pods dir: %w", err))
		return
	}

	for i, pod := range pods.Items {
		idx := i + 1
		w.collectPod(ctx, podsDir, idx, total, pod)
		w.collector.notePodDone(idx, total, pod.Name)
	}

	w.collector.setPhase("archive", "packaging artifact")
	artifactPath := jobDir + ".tar.gz"
	if err := PackageDirectory(jobDir, artifactPath); err != nil {
		w.collector.finishError(fmt.Errorf("archive: %w", err))
		return
	}
	_ = os.RemoveAll(jobDir)

	w.collector.setPhase("complete", artifactPath)
	w.collector.finishReady(artifactPath)
}

func (w *worker) collectPod(ctx context.Context, podsDir string, idx, total int, pod corev1.Pod) {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "=== STATUS ===\n")
	w.collector.notePodStep(idx, total, pod.Name, "status")
	statusJSON, err := json.MarshalIndent(pod.Status, "", "  ")
	if err != nil {
		fmt.Fprintf(&buf, "Could not retrieve status: %v\n", err)
	} else {
		buf.Write(statusJSON)
		buf.WriteString("\n")
	}

	fmt.Fprintf(&buf, "\n=== DESCRIBE ===\n")
	w.collector.notePodStep(idx, total, pod.Name, "describe")
	writeDescribe(&buf, pod)

	fmt.Fprintf(&buf, "\n=== ENV ===\n")
	w.collector.notePodStep(idx, total, pod.Name, "env vars")
	if len(pod.Spec.Containers) == 0 {
		fmt.Fprintf(&buf, "Could not retrieve env vars: pod has no containers\n")
	} else {
		out, err := w.execCapture(pod.Name, pod.Spec.Containers[0].Name, []string{"env"})
		if err != nil {
			fmt.Fprintf(&buf, "Could not retrieve env vars: %v\n", err)
		} else {
			buf.Write(out)
		}
	}

	fmt.Fprintf(&buf, "\n=== SECRETS ===\n")
	w.collector.notePodStep(idx, total, pod.Name, "secrets")
	w.writeMountedSecrets(ctx, &buf, pod)

	fmt.Fprintf(&buf, "\n=== CONFIGMAPS ===\n")
	w.collector.notePodStep(idx, total, pod.Name, "configmaps")
	w.writeMountedConfigMaps(ctx, &buf, pod)

	fmt.Fprintf(&buf, "\n=== LOGS ===\n")
	w.collector.notePodStep(idx, total, pod.Name, "logs")
	w.writePodLogs(ctx, &buf, pod)

	outPath := filepath.Join(podsDir, pod.Name+".txt")
	if err := os.WriteFile(outPath, buf.Bytes(), 0o644); err != nil {
		w.logger.Warnw("could not write pod file", "pod", pod.Name, "error", err)
		w.collector.noteError()
	}
}

func writeDescribe(buf *bytes.Buffer, pod corev1.Pod) {
	fmt.Fprintf(buf, "Name:       %s\n", pod.Name)
	fmt.Fprintf(buf, "Namespace:  %s\n", pod.Namespace)
	fmt.Fprintf(buf, "Node:       %s\n", pod.Spec.NodeName)
	fmt.Fprintf(buf, "Phase:      %s\n", pod.Status.Phase)
	fmt.Fprintf(buf, "Start Time: %s\n", pod.Status.StartTime)
	fmt.Fprintf(buf, "Labels:     %v\n", pod.Labels)
	fmt.Fprintf(buf, "Conditions:\n")
	for _, cond := range pod.Status.Conditions {
		fmt.Fprintf(buf, "  %s=%s (%s)\n", cond.Type, cond.Status, cond.Reason)
	}
	fmt.Fprintf(buf, "Containers:\n")
	for _, c := range pod.Spec.Containers {
		fmt.Fprintf(buf, "  - %s image=%s\n", c.Name, c.Image)
	}
	fmt.Fprintf(buf, "Container Statuses:\n")
	for _, cs := range pod.Status.ContainerStatuses {
		fmt.Fprintf(buf, "  - %s ready=%v restarts=%d\n", cs.Name, cs.Ready, cs.RestartCount)
	}
}

func (w *worker) writeMountedSecrets(ctx context.Context, buf *bytes.Buffer, pod corev1.Pod) {
	names := map[string]bool{}
	for _, v := range pod.Spec.Volumes {
		if v.Secret != nil {
			names[v.Secret.SecretName] = true
		}
	}
	if len(names) == 0 {
		fmt.Fprintf(buf, "no secret volumes mounted\n")
		return
	}
	for name := range names {
		secret, err := w.client.CoreV1().Secrets(w.namespace).Get(ctx, name, metav1.GetOptions{})
		if err != nil {
			fmt.Fprintf(buf, "Could not retrieve secret %s: %v\n", name, err)
			continue
		}
		fmt.Fprintf(buf, "--- %s ---\n", name)
		for k, v := range secret.Data {
			fmt.Fprintf(buf, "%s: %s\n", k, string(v))
		}
	}
}

func (w *worker) writeMountedConfigMaps(ctx context.Context, buf *bytes.Buffer, pod corev1.Pod) {
	names := map[string]bool{}
	for _, v := range pod.Spec.Volumes {
		if v.ConfigMap != nil {
			names[v.ConfigMap.Name] = true
		}
	}
	if len(names) == 0 {
		fmt.Fprintf(buf, "no configmap volumes mounted\n")
		return
	}
	for name := range names {
		cm, err := w.client.CoreV1().ConfigMaps(w.namespace).Get(ctx, name, metav1.GetOptions{})
		if err != nil {
			fmt.Fprintf(buf, "Could not retrieve configmap %s: %v\n", name, err)
			continue
		}
		fmt.Fprintf(buf, "--- %s ---\n", name)
		for k, v := range cm.Data {
			fmt.Fprintf(buf, "%s: %s\n", k, v)
		}
	}
}

func (w *worker) writePodLogs(ctx context.Context, buf *bytes.Buffer, pod corev1.Pod) {
	sinceSeconds := int64(w.since.Seconds())
	tailLines := int64(1000)
	for _, c := range pod.Spec.Containers {
		fmt.Fprintf(buf, "--- %s (current) ---\n", c.Name)
		req := w.client.CoreV1().Pods(w.namespace).GetLogs(pod.Name, &corev1.PodLogOptions{
			Container:    c.Name,
			SinceSeconds: &sinceSeconds,
			TailLines:    &tailLines,
		})
		body, err := req.Stream(ctx)
		if err != nil {
			fmt.Fprintf(buf, "Could not retrieve logs: %v\n", err)
			continue
		}
		io.Copy(buf, body)
		body.Close()

		if restartedContainer(pod, c.Name) {
			fmt.Fprintf(buf, "--- %s (previous) ---\n", c.Name)
			prevReq := w.client.CoreV1().Pods(w.namespace).GetLogs(pod.Name, &corev1.PodLogOptions{
				Container: c.Name,
				Previous:  true,
				TailLines: &tailLines,
			})
			prevBody, err := prevReq.Stream(ctx)
			if err != nil {
				fmt.Fprintf(buf, "Could not retrieve previous logs: %v\n", err)
				continue
			}
			io.Copy(buf, prevBody)
			prevBody.Close()
		}
	}
}

func restartedContainer(pod corev1.Pod, name string) bool {
	for _, cs := range pod.Status.ContainerStatuses {
		if cs.Name == name {
			return cs.RestartCount > 0
		}
	}
	return false
}

// execCapture runs command in the named pod/container and returns its
// stdout (stderr is only included in the error on failure), following the
// PodExecOptions + SPDY executor pattern
// used for cluster-side command execution.
func (w *worker) execCapture(podName, containerName string, command []string) ([]byte, error) {
	req := w.client.CoreV1().RESTClient().Post().
		Resource("pods").
		Name(podName).
		Namespace(w.namespace).
		SubResource("exec").
		VersionedParams(&corev1.PodExecOptions{
			Container: containerName,
			Command:   command,
			Stdin:     false,
			Stdout:    true,
			Stderr:    true,
		}, scheme.ParameterCodec)

	exec, err := remotecommand.NewSPDYExecutor(w.restCfg, "POST", req.URL())
	if err != nil {
		return nil, err
	}

	var stdout, stderr bytes.Buffer
	err = exec.StreamWithContext(context.Background(), remotecommand.StreamOptions{
		Stdout: &stdout,
		Stderr: &stderr,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %s", err, stderr.String())
	}
	return stdout.Bytes(), nil
}

func (w *worker) writeEvents(ctx context.Context, jobDir string) error {
	events, err := w.client.CoreV1().Events(w.namespace).List(ctx, metav1.ListOptions{})
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	sort.Slice(events.Items, func(i, j int) bool {
		return events.Items[i].LastTimestamp.Before(&events.Items[j].LastTimestamp)
	})
	for _, e := range events.Items {
		fmt.Fprintf(&buf, "%s\t%s\t%s/%s\t%s\n", e.LastTimestamp, e.Type, e.InvolvedObject.Kind, e.InvolvedObject.Name, e.Message)
	}
	return os.WriteFile(filepath.Join(jobDir, "namespace-events.txt"), buf.Bytes(), 0o644)
}

func (w *worker) writeServices(ctx context.Context, jobDir string) error {
	svcs, err := w.client.CoreV1().Services(w.namespace).List(ctx, metav1.ListOptions{})
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	for _, s := range svcs.Items {
		fmt.Fprintf(&buf, "%s\ttype=%s\tclusterIP=%s\tports=%v\n", s.Name, s.Spec.Type, s.Spec.ClusterIP, s.Spec.Ports)
	}
	return os.WriteFile(filepath.Join(jobDir, "services.txt"), buf.Bytes(), 0o644)
}

func (w *worker) writeConfigMapList(ctx context.Context, jobDir string) error {
	cms, err := w.client.CoreV1().ConfigMaps(w.namespace).List(ctx, metav1.ListOptions{})
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	for _, cm := range cms.Items {
		fmt.Fprintf(&buf, "%s\tkeys=%d\n", cm.Name, len(cm.Data))
	}
	return os.WriteFile(filepath.Join(jobDir, "configmaps.txt"), buf.Bytes(), 0o644)
}

func (w *worker) writeSecretNames(ctx context.Context, jobDir string) error {
	secrets, err := w.client.CoreV1().Secrets(w.namespace).List(ctx, metav1.ListOptions{})
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	for _, s := range secrets.Items {
		fmt.Fprintf(&buf, "%s\ttype=%s\n", s.Name, s.Type)
	}
	return os.WriteFile(filepath.Join(jobDir, "secrets.txt"), buf.Bytes(), 0o644)
}
