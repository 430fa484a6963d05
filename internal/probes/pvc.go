package probes

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/infraguard/preflight/internal/config"
	"github.com/infraguard/preflight/internal/probe"
	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/api/resource"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"
)

// PVCProbe validates the Kubernetes API: storage class listing,
// namespace access, a scratch PVC's create/status/cleanup lifecycle.
// Unlike most probes it defaults to configured, since a service account
// is assumed present whenever the service runs inside a cluster.
type PVCProbe struct {
	cfg       config.KubernetesConfig
	namespace string
}

func NewPVCProbe(cfg config.KubernetesConfig, namespace string) *PVCProbe {
	if namespace == "" {
		namespace = "default"
	}
	return &PVCProbe{cfg: cfg, namespace: namespace}
}

func (p *PVCProbe) ID() string          { return "pvc" }
func (p *PVCProbe) DisplayName() string { return "Kubernetes Storage (PVC)" }

// IsConfigured defaults to true per the spec's configuration gating rule;
// it only reports false when no Kubernetes API access is discoverable at
// all (neither in-cluster nor a local kubeconfig).
func (p *PVCProbe) IsConfigured() bool {
	_, err := buildKubeConfig()
	return err == nil
}

func buildKubeConfig() (*rest.Config, error) {
	if cfg, err := rest.InClusterConfig(); err == nil {
		return cfg, nil
	}
	kubeconfig := os.Getenv("KUBECONFIG")
	if kubeconfig == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("no in-cluster config and no KUBECONFIG: %w", err)
		}
		kubeconfig = home + "/.kube/config"
	}
	return clientcmd.BuildConfigFromFlags("", kubeconfig)
}

func (p *PVCProbe) Execute(ctx context.Context, rec *probe.Recorder) (probe.Status, string, string) {
	restCfg, err := buildKubeConfig()
	if err != nil {
		rec.Record("namespace_access", fail("no Kubernetes API access: "+err.Error(),
			"verify the service account or KUBECONFIG grants API access", "client_error"))
		return probe.StatusError, "no Kubernetes API access", "check in-cluster service account or KUBECONFIG"
	}
	client, err := kubernetes.NewForConfig(restCfg)
	if err != nil {
		rec.Record("namespace_access", fail("could not build client: "+err.Error(),
			"verify the kubeconfig/service account token is valid", "client_error"))
		return probe.StatusError, "could not build client", "check the Kubernetes client configuration"
	}

	scList, err := client.StorageV1().StorageClasses().List(ctx, metav1.ListOptions{})
	if err != nil {
		rec.Record("list_storage_classes", fail("could not list storage classes: "+err.Error(),
			"grant the service account cluster-wide list on storageclasses", "access_denied"))
		return probe.StatusFailed, "storage class listing failed", "check RBAC for storageclasses.list"
	}
	rec.Record("list_storage_classes", ok(fmt.Sprintf("found %d storage classes", len(scList.Items)),
		map[string]interface{}{"count": len(scList.Items)}))

	if _, err := client.CoreV1().Namespaces().Get(ctx, p.namespace, metav1.GetOptions{}); err != nil {
		rec.Record("namespace_access", fail("could not access namespace: "+err.Error(),
			"verify the namespace exists and the service account can get it", "access_denied"))
		return probe.StatusFailed, "namespace access failed", "check RBAC for namespaces.get in " + p.namespace
	}
	rec.Record("namespace_access", ok("namespace accessible", map[string]interface{}{"namespace": p.namespace}))

	quantity, err := resource.ParseQuantity(p.cfg.TestPVCSize)
	if err != nil {
		quantity = resource.MustParse("1Gi")
	}
	pvc := &corev1.PersistentVolumeClaim{
		ObjectMeta: metav1.ObjectMeta{
			GenerateName: "preflight-check-",
			Namespace:    p.namespace,
		},
		Spec: corev1.PersistentVolumeClaimSpec{
			AccessModes: []corev1.PersistentVolumeAccessMode{corev1.ReadWriteOnce},
			Resources: corev1.VolumeResourceRequirements{
				Requests: corev1.ResourceList{corev1.ResourceStorage: quantity},
			},
		},
	}
	if p.cfg.StorageClass != "" {
		pvc.Spec.StorageClassName = &p.cfg.StorageClass
	}

	created, err := client.CoreV1().PersistentVolumeClaims(p.namespace).Create(ctx, pvc, metav1.CreateOptions{})
	if err != nil {
		rec.Record("pvc_creation", fail("PVC creation failed: "+err.Error(),
			"verify RBAC for persistentvolumeclaims.create and a suitable storage class", "create_failed"))
		return probe.StatusFailed, "PVC creation failed", "check RBAC and the configured storage class"
	}
	rec.Record("pvc_creation", ok("PVC created", map[string]interface{}{"name": created.Name, "size": p.cfg.TestPVCSize}))

	cleanup := func() {
		_ = client.CoreV1().PersistentVolumeClaims(p.namespace).Delete(context.Background(), created.Name, metav1.DeleteOptions{})
	}
	defer cleanup()

	var phase corev1.PersistentVolumeClaimPhase
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		current, err := client.CoreV1().PersistentVolumeClaims(p.namespace).Get(ctx, created.Name, metav1.GetOptions{})
		if err != nil {
			if apierrors.IsNotFound(err) {
				break
			}
			rec.Record("pvc_status", fail("could not read PVC status: "+err.Error(),
				"investigate API server connectivity", "status_failed"))
			return probe.StatusFailed, "PVC status check failed", "check API server connectivity"
		}
		phase = current.Status.Phase
		if phase == corev1.ClaimBound || phase == corev1.ClaimPending {
			break
		}
		time.Sleep(500 * time.Millisecond)
	}
	rec.Record("pvc_status", ok(fmt.Sprintf("PVC phase: %s", phase), map[string]interface{}{"phase": string(phase)}))

	cleanup()
	rec.Record("pvc_cleanup", ok("PVC removed", nil))

	return probe.StatusPassed, "Kubernetes API reachable", ""
}
