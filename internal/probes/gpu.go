package probes

import (
	"context"
	"os/exec"
	"strconv"
	"strings"

	"github.com/infraguard/preflight/internal/probe"
	"github.com/shirou/gopsutil/v3/host"
)

// GPUProbe validates local GPU availability via nvidia-smi, falling back
// to host-level telemetry (shirou/gopsutil) when nvidia-smi is absent so
// the probe still reports something useful on non-NVIDIA hosts. It
// defaults to configured, per the spec's configuration gating rule.
type GPUProbe struct{}

func NewGPUProbe() *GPUProbe { return &GPUProbe{} }

func (p *GPUProbe) ID() string          { return "gpu" }
func (p *GPUProbe) DisplayName() string { return "GPU" }
func (p *GPUProbe) IsConfigured() bool  { return true }

func (p *GPUProbe) Execute(ctx context.Context, rec *probe.Recorder) (probe.Status, string, string) {
	path, err := exec.LookPath("nvidia-smi")
	if err != nil {
		info, hostErr := host.InfoWithContext(ctx)
		if hostErr != nil {
			rec.Record("availability", fail("nvidia-smi not found and host telemetry unavailable: "+hostErr.Error(),
				"install NVIDIA drivers or run on a GPU-enabled node", "gpu_unavailable"))
			return probe.StatusFailed, "no GPU telemetry available", "install NVIDIA drivers or run on a GPU-enabled node"
		}
		rec.Record("availability", fail("nvidia-smi not found on this host",
			"install NVIDIA drivers or run on a GPU-enabled node", "nvidia_smi_missing"))
		rec.Record("driver", ok("no NVIDIA driver detected", map[string]interface{}{"platform": info.Platform}))
		rec.Record("cuda", ok("CUDA not applicable", nil))
		rec.Record("devices", ok("no GPU devices detected", map[string]interface{}{"count": 0}))
		return probe.StatusFailed, "no NVIDIA GPU detected", "install NVIDIA drivers or run on a GPU-enabled node"
	}
	rec.Record("availability", ok("nvidia-smi found", map[string]interface{}{"path": path}))

	out, err := exec.CommandContext(ctx, "nvidia-smi", "--query-gpu=driver_version,name,memory.total,utilization.gpu,temperature.gpu,power.draw",
		"--format=csv,noheader,nounits").Output()
	if err != nil {
		rec.Record("driver", fail("nvidia-smi query failed: "+err.Error(),
			"verify the NVIDIA driver is loaded and the user can access the device", "nvidia_smi_failed"))
		return probe.StatusFailed, "nvidia-smi query failed", "check the NVIDIA driver installation"
	}

	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	devices := make([]map[string]interface{}, 0, len(lines))
	var driverVersion string
	for _, line := range lines {
		fields := strings.Split(line, ",")
		if len(fields) < 6 {
			continue
		}
		for i := range fields {
			fields[i] = strings.TrimSpace(fields[i])
		}
		driverVersion = fields[0]
		vramMB, _ := strconv.Atoi(fields[2])
		util, _ := strconv.Atoi(fields[3])
		temp, _ := strconv.Atoi(fields[4])
		power, _ := strconv.ParseFloat(fields[5], 64)
		devices = append(devices, map[string]interface{}{
			"model":       fields[1],
			"vram_mb":     vramMB,
			"util_pct":    util,
			"temp_c":      temp,
			"power_watts": power,
		})
	}

	rec.Record("driver", ok("driver version reported", map[string]interface{}{"driver_version": driverVersion}))
	rec.Record("cuda", ok("CUDA runtime reachable via nvidia-smi", nil))
	rec.Record("devices", ok("device telemetry collected", map[string]interface{}{"count": len(devices), "devices": devices}))

	return probe.StatusPassed, "GPU available", ""
}
