package verify

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/NVIDIA/go-nvml/pkg/nvml"

	"nvsetup/internal/logging"
	"nvsetup/internal/sysexec"
)

type fakeRunner struct {
	stdout   map[string]string
	failures map[string]bool
	missing  map[string]bool
	calls    []string
}

func newFakeRunner() *fakeRunner {
	return &fakeRunner{
		stdout:   map[string]string{},
		failures: map[string]bool{},
		missing:  map[string]bool{},
	}
}

func (f *fakeRunner) Run(_ context.Context, name string, args ...string) (sysexec.Result, error) {
	cmdline := strings.Join(append([]string{name}, args...), " ")
	f.calls = append(f.calls, cmdline)

	for prefix := range f.failures {
		if strings.HasPrefix(cmdline, prefix) {
			return sysexec.Result{ExitCode: 1}, errors.New(prefix + " failed")
		}
	}
	for prefix, out := range f.stdout {
		if strings.HasPrefix(cmdline, prefix) {
			return sysexec.Result{Stdout: out}, nil
		}
	}
	return sysexec.Result{}, nil
}

func (f *fakeRunner) LookPath(name string) (string, error) {
	if f.missing[name] {
		return "", errors.New("not found")
	}
	return "/usr/bin/" + name, nil
}

// fakeNVML scripts the NVML probe.
type fakeNVML struct {
	initRet  nvml.Return
	version  string
	verRet   nvml.Return
	shutdown bool
}

func (f *fakeNVML) Init() nvml.Return { return f.initRet }
func (f *fakeNVML) Shutdown() nvml.Return {
	f.shutdown = true
	return nvml.SUCCESS
}
func (f *fakeNVML) SystemGetDriverVersion() (string, nvml.Return) {
	return f.version, f.verRet
}

func testVerifier(runner *fakeRunner, probe NVMLProbe) *Verifier {
	return NewVerifierWithNVML(runner, probe, logging.NewLogger(logging.LevelError), []string{"ubuntu:24.04", "ubuntu:22.04"})
}

func TestToolkit_Present(t *testing.T) {
	runner := newFakeRunner()
	runner.stdout["nvidia-ctk --version"] = "NVIDIA Container Toolkit CLI version 1.17.8\ncommit: abc\n"

	res := testVerifier(runner, &fakeNVML{initRet: nvml.ERROR_LIBRARY_NOT_FOUND}).Toolkit(context.Background())

	if !res.Passed {
		t.Fatalf("Toolkit() failed: %s", res.Message)
	}
	if !strings.Contains(res.Message, "1.17.8") {
		t.Errorf("Message %q should carry the version", res.Message)
	}
}

func TestToolkit_CLIMissing(t *testing.T) {
	runner := newFakeRunner()
	runner.missing["nvidia-ctk"] = true
	runner.missing["nvidia-container-toolkit"] = true

	res := testVerifier(runner, &fakeNVML{}).Toolkit(context.Background())
	if res.Passed {
		t.Error("Toolkit() should fail when no CLI resolves")
	}
}

func TestToolkit_FallbackBinary(t *testing.T) {
	runner := newFakeRunner()
	runner.missing["nvidia-ctk"] = true
	runner.stdout["nvidia-container-toolkit --version"] = "version 1.17.8-1"

	res := testVerifier(runner, &fakeNVML{}).Toolkit(context.Background())
	if !res.Passed {
		t.Errorf("Toolkit() should fall back to nvidia-container-toolkit: %s", res.Message)
	}
}

func TestDriver_NVMLSuccess(t *testing.T) {
	runner := newFakeRunner()
	probe := &fakeNVML{initRet: nvml.SUCCESS, version: "535.183.01", verRet: nvml.SUCCESS}

	res := testVerifier(runner, probe).Driver(context.Background())

	if !res.Passed {
		t.Fatalf("Driver() failed: %s", res.Message)
	}
	if !strings.Contains(res.Message, "535.183.01") {
		t.Errorf("Message %q should carry the driver version", res.Message)
	}
	if !probe.shutdown {
		t.Error("NVML must be shut down after a successful init")
	}
	if len(runner.calls) != 0 {
		t.Error("nvidia-smi fallback should not run when NVML succeeds")
	}
}

func TestDriver_FallsBackToSmi(t *testing.T) {
	runner := newFakeRunner()
	runner.stdout["nvidia-smi"] = "NVIDIA-SMI 535.183.01\n"
	probe := &fakeNVML{initRet: nvml.ERROR_DRIVER_NOT_LOADED}

	res := testVerifier(runner, probe).Driver(context.Background())
	if !res.Passed {
		t.Fatalf("Driver() should pass via nvidia-smi fallback: %s", res.Message)
	}
}

func TestDriver_AllProbesFailSuggestsReboot(t *testing.T) {
	runner := newFakeRunner()
	runner.failures["nvidia-smi"] = true
	probe := &fakeNVML{initRet: nvml.ERROR_DRIVER_NOT_LOADED}

	res := testVerifier(runner, probe).Driver(context.Background())
	if res.Passed {
		t.Error("Driver() should fail when nothing responds")
	}
	if !strings.Contains(res.Message, "reboot") {
		t.Errorf("Message %q should point at a reboot", res.Message)
	}
}

func TestContainerGPU_FirstImageWins(t *testing.T) {
	runner := newFakeRunner()

	res := testVerifier(runner, &fakeNVML{}).ContainerGPU(context.Background())
	if !res.Passed {
		t.Fatalf("ContainerGPU() failed: %s", res.Message)
	}

	attempts := 0
	for _, call := range runner.calls {
		if strings.HasPrefix(call, "docker run") {
			attempts++
		}
	}
	if attempts != 1 {
		t.Errorf("got %d attempts, want 1 (stop at first success)", attempts)
	}
}

func TestContainerGPU_FallsThroughCandidates(t *testing.T) {
	runner := newFakeRunner()
	runner.failures["docker run --rm --gpus all ubuntu:24.04"] = true

	res := testVerifier(runner, &fakeNVML{}).ContainerGPU(context.Background())
	if !res.Passed {
		t.Fatalf("ContainerGPU() should succeed with the second image: %s", res.Message)
	}
	if !strings.Contains(res.Message, "ubuntu:22.04") {
		t.Errorf("Message %q should name the successful image", res.Message)
	}
}

func TestContainerGPU_AllFailIsWarningWithInstructions(t *testing.T) {
	runner := newFakeRunner()
	runner.failures["docker run"] = true

	res := testVerifier(runner, &fakeNVML{}).ContainerGPU(context.Background())
	if res.Passed {
		t.Error("ContainerGPU() should fail when all images fail")
	}
	if !strings.Contains(res.Message, "retry manually") {
		t.Errorf("Message %q should include manual-retry instructions", res.Message)
	}
}

func TestContainerGPU_DockerAbsentSkips(t *testing.T) {
	runner := newFakeRunner()
	runner.missing["docker"] = true

	res := testVerifier(runner, &fakeNVML{}).ContainerGPU(context.Background())
	if res.Passed {
		t.Error("ContainerGPU() should not pass without docker")
	}
	if len(runner.calls) != 0 {
		t.Error("no docker run should be attempted without docker")
	}
}

func TestContainerGPU_AttemptIsBounded(t *testing.T) {
	v := testVerifier(newFakeRunner(), &fakeNVML{})
	if v.imageTimeout != DefaultImageTimeout {
		t.Errorf("imageTimeout = %v, want %v", v.imageTimeout, DefaultImageTimeout)
	}
	if DefaultImageTimeout != 30*time.Second {
		t.Errorf("DefaultImageTimeout = %v, want 30s", DefaultImageTimeout)
	}
}
