package verify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/NVIDIA/go-nvml/pkg/nvml"

	"nvsetup/internal/logging"
	"nvsetup/internal/sysexec"
)

// DefaultImageTimeout bounds one containerized smoke test attempt so a
// hung container run cannot stall verification indefinitely.
const DefaultImageTimeout = 30 * time.Second

// Result is one post-mutation check outcome. Verification reports, it
// never blocks: only the flow decides whether a failed check is fatal.
type Result struct {
	Check   string `json:"check"`
	Passed  bool   `json:"passed"`
	Message string `json:"message,omitempty"`
}

// NVMLProbe is the slice of NVML used for driver verification; tests
// substitute a scripted implementation.
type NVMLProbe interface {
	Init() nvml.Return
	Shutdown() nvml.Return
	SystemGetDriverVersion() (string, nvml.Return)
}

// realNVML backs NVMLProbe with the actual library.
type realNVML struct{}

func (realNVML) Init() nvml.Return     { return nvml.Init() }
func (realNVML) Shutdown() nvml.Return { return nvml.Shutdown() }
func (realNVML) SystemGetDriverVersion() (string, nvml.Return) {
	return nvml.SystemGetDriverVersion()
}

// Verifier runs the post-mutation checks.
type Verifier struct {
	runner       sysexec.Runner
	nvml         NVMLProbe
	logger       *logging.Logger
	images       []string
	imageTimeout time.Duration
}

// NewVerifier creates a verifier with the real NVML probe.
func NewVerifier(runner sysexec.Runner, logger *logging.Logger, smokeImages []string) *Verifier {
	return &Verifier{
		runner:       runner,
		nvml:         realNVML{},
		logger:       logger,
		images:       smokeImages,
		imageTimeout: DefaultImageTimeout,
	}
}

// NewVerifierWithNVML creates a verifier with a custom NVML probe (tests).
func NewVerifierWithNVML(runner sysexec.Runner, probe NVMLProbe, logger *logging.Logger, smokeImages []string) *Verifier {
	v := NewVerifier(runner, logger, smokeImages)
	v.nvml = probe
	return v
}

// Toolkit confirms the toolkit CLI resolves and reports its version.
// A failed check is fatal only within the toolkit-install flow; the
// caller applies that policy.
func (v *Verifier) Toolkit(ctx context.Context) Result {
	binary := ""
	for _, candidate := range []string{"nvidia-ctk", "nvidia-container-toolkit"} {
		if _, err := v.runner.LookPath(candidate); err == nil {
			binary = candidate
			break
		}
	}

	if binary == "" {
		return Result{
			Check:   "container-toolkit",
			Message: "toolkit CLI not found on PATH",
		}
	}

	result, err := v.runner.Run(ctx, binary, "--version")
	if err != nil {
		return Result{
			Check:   "container-toolkit",
			Message: fmt.Sprintf("%s --version failed: %v", binary, err),
		}
	}

	version := strings.TrimSpace(firstLine(result.Stdout))
	v.logger.Info("verify.toolkit.ok", "Container toolkit verified", map[string]interface{}{
		"version": version,
	})

	return Result{
		Check:   "container-toolkit",
		Passed:  true,
		Message: version,
	}
}

// Driver checks that the installed driver is operational, probing NVML
// first and falling back to nvidia-smi. Failure downgrades to guidance:
// the standard driver-load completion path can require a reboot, so a
// failed check never fails the run.
func (v *Verifier) Driver(ctx context.Context) Result {
	if ret := v.nvml.Init(); ret == nvml.SUCCESS {
		defer v.nvml.Shutdown()

		if version, ret := v.nvml.SystemGetDriverVersion(); ret == nvml.SUCCESS {
			v.logger.Info("verify.driver.ok", "Driver verified via NVML", map[string]interface{}{
				"version": version,
			})
			return Result{
				Check:   "driver",
				Passed:  true,
				Message: "driver version " + version,
			}
		}
	}

	result, err := v.runner.Run(ctx, "nvidia-smi")
	if err == nil {
		v.logger.Info("verify.driver.ok", "Driver verified via nvidia-smi", nil)
		return Result{
			Check:   "driver",
			Passed:  true,
			Message: firstLine(result.Stdout),
		}
	}

	return Result{
		Check:   "driver",
		Message: "driver not responding; a reboot may be required to complete the installation",
	}
}

// ContainerGPU runs a containerized GPU smoke test across the candidate
// images, stopping at the first success. Public registry availability is
// outside this system's control, so all-candidates-failed is reported
// with manual-retry instructions and never treated as fatal.
func (v *Verifier) ContainerGPU(ctx context.Context) Result {
	if _, err := v.runner.LookPath("docker"); err != nil {
		return Result{
			Check:   "container-gpu",
			Message: "docker not available, smoke test skipped",
		}
	}

	for _, image := range v.images {
		attemptCtx, cancel := context.WithTimeout(ctx, v.imageTimeout)
		_, err := v.runner.Run(attemptCtx, "docker", "run", "--rm", "--gpus", "all", image, "nvidia-smi", "-L")
		cancel()

		if err == nil {
			v.logger.Info("verify.container.ok", "Container GPU smoke test passed", map[string]interface{}{
				"image": image,
			})
			return Result{
				Check:   "container-gpu",
				Passed:  true,
				Message: "GPU visible in container using " + image,
			}
		}

		v.logger.Warn("verify.container.attempt_failed", "Smoke test attempt failed", map[string]interface{}{
			"image": image,
			"error": err.Error(),
		})
	}

	return Result{
		Check: "container-gpu",
		Message: "all smoke test images failed; retry manually with " +
			"'docker run --rm --gpus all ubuntu:24.04 nvidia-smi -L'",
	}
}

func firstLine(s string) string {
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		return s[:idx]
	}
	return s
}
