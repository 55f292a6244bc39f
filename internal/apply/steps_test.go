package apply

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"nvsetup/internal/blacklist"
	"nvsetup/internal/config"
	"nvsetup/internal/detect"
	"nvsetup/internal/hostenv"
	"nvsetup/internal/logging"
	"nvsetup/internal/plan"
)

func testBuilder(t *testing.T, runner *fakeRunner) *Builder {
	t.Helper()
	logger := logging.NewLogger(logging.LevelError)
	bl := blacklist.NewManagerAt(filepath.Join(t.TempDir(), "nvidia-blacklist.conf"), logger)
	return NewBuilder(runner, logger, bl)
}

func testPlan(class hostenv.GPUClass, runtimes detect.RuntimeSet) plan.ActionPlan {
	profile := hostenv.HostProfile{
		OSFamily:       hostenv.OSUbuntu,
		DistributionID: "ubuntu2204",
		GPUPresent:     true,
		GPUClass:       class,
		SessionMode:    hostenv.SessionText,
	}
	return plan.Build(profile, config.NewRunConfig(config.DefaultConfig()), runtimes)
}

func runSteps(t *testing.T, runner *fakeRunner, steps []Step) Report {
	t.Helper()
	exec, _ := testExecutor()
	return exec.Run(context.Background(), steps)
}

func TestDriverInstallSteps_Ordering(t *testing.T) {
	runner := newFakeRunner()
	b := testBuilder(t, runner)

	p := testPlan(hostenv.GPUServer, detect.RuntimeSet{})
	report := runSteps(t, runner, b.DriverInstallSteps(p))

	if report.Fatal {
		t.Fatalf("unexpected fatal: %+v", report.Results)
	}

	keyImport := runner.callIndex("curl")
	update := runner.callIndex("apt-get update")
	install := runner.callIndex("apt-get install -y nvidia-driver-535-server")

	if keyImport == -1 || update == -1 || install == -1 {
		t.Fatalf("missing expected commands in %v", runner.calls)
	}
	if !(keyImport < update && update < install) {
		t.Errorf("ordering violated: repo=%d update=%d install=%d", keyImport, update, install)
	}
}

func TestDriverInstallSteps_RepoFailureIsFatal(t *testing.T) {
	runner := newFakeRunner()
	runner.failures["curl"] = true
	b := testBuilder(t, runner)

	report := runSteps(t, runner, b.DriverInstallSteps(testPlan(hostenv.GPUDesktop, detect.RuntimeSet{})))

	if !report.Fatal {
		t.Error("repository registration failure must be fatal")
	}
	if runner.callIndex("apt-get update") != -1 {
		t.Error("package list refresh must not run after fatal repo failure")
	}
	if runner.callIndex("apt-get install") != -1 {
		t.Error("installation must not run after fatal repo failure")
	}
}

func TestDriverInstallSteps_AssistantFailureIsWarning(t *testing.T) {
	runner := newFakeRunner()
	runner.failures["apt-get install -y ubuntu-drivers-common"] = true
	b := testBuilder(t, runner)

	report := runSteps(t, runner, b.DriverInstallSteps(testPlan(hostenv.GPUDesktop, detect.RuntimeSet{})))

	if report.Fatal {
		t.Error("detection assistant failure must not be fatal")
	}
	if report.Warnings() == 0 {
		t.Error("detection assistant failure should surface as a warning")
	}
	// The remaining steps still ran
	if runner.callIndex("ldconfig") == -1 {
		t.Error("later steps should run after the warning")
	}
}

func TestToolkitInstallSteps_PinsAllFourPackages(t *testing.T) {
	runner := newFakeRunner()
	b := testBuilder(t, runner)

	p := testPlan(hostenv.GPUDesktop, detect.RuntimeSet{Docker: true})
	report := runSteps(t, runner, b.ToolkitInstallSteps(p))

	if report.Fatal {
		t.Fatalf("unexpected fatal: %+v", report.Results)
	}

	idx := runner.callIndex("apt-get install -y nvidia-container-toolkit=")
	if idx == -1 {
		t.Fatalf("pinned toolkit install not found in %v", runner.calls)
	}

	install := runner.calls[idx]
	for _, pkg := range []string{
		"nvidia-container-toolkit=1.17.8-1",
		"nvidia-container-toolkit-base=1.17.8-1",
		"libnvidia-container-tools=1.17.8-1",
		"libnvidia-container1=1.17.8-1",
	} {
		if !strings.Contains(install, pkg) {
			t.Errorf("install command %q missing pin %q", install, pkg)
		}
	}
}

func TestToolkitInstallSteps_RuntimeConfigurationFollowsInstall(t *testing.T) {
	runner := newFakeRunner()
	b := testBuilder(t, runner)

	p := testPlan(hostenv.GPUDesktop, detect.RuntimeSet{Docker: true, Containerd: true, CRIO: true})
	runSteps(t, runner, b.ToolkitInstallSteps(p))

	install := runner.callIndex("apt-get install")
	docker := runner.callIndex("nvidia-ctk runtime configure --runtime=docker")
	containerd := runner.callIndex("nvidia-ctk runtime configure --runtime=containerd")
	crio := runner.callIndex("nvidia-ctk runtime configure --runtime=crio")

	if docker == -1 || containerd == -1 || crio == -1 {
		t.Fatalf("runtime configuration missing from %v", runner.calls)
	}
	if install > docker {
		t.Error("runtime configuration must follow package installation")
	}
	if runner.callIndex("systemctl restart docker") == -1 {
		t.Error("docker service restart missing")
	}
}

func TestToolkitInstallSteps_SkipsAbsentRuntimes(t *testing.T) {
	runner := newFakeRunner()
	b := testBuilder(t, runner)

	p := testPlan(hostenv.GPUDesktop, detect.RuntimeSet{Docker: true})
	runSteps(t, runner, b.ToolkitInstallSteps(p))

	if runner.callIndex("nvidia-ctk runtime configure --runtime=containerd") != -1 {
		t.Error("containerd must not be configured when absent")
	}
	if runner.callIndex("nvidia-ctk runtime configure --runtime=crio") != -1 {
		t.Error("crio must not be configured when absent")
	}
}

func TestToolkitInstallSteps_RuntimeFailureIsWarning(t *testing.T) {
	runner := newFakeRunner()
	runner.failures["nvidia-ctk"] = true
	b := testBuilder(t, runner)

	p := testPlan(hostenv.GPUDesktop, detect.RuntimeSet{Docker: true})
	report := runSteps(t, runner, b.ToolkitInstallSteps(p))

	if report.Fatal {
		t.Error("runtime reconfiguration failure must not be fatal")
	}
	if report.Warnings() != 1 {
		t.Errorf("Warnings() = %d, want 1", report.Warnings())
	}
}

func TestToolkitInstallSteps_ExperimentalAddsSecondRepo(t *testing.T) {
	runner := newFakeRunner()
	b := testBuilder(t, runner)

	profile := hostenv.HostProfile{DistributionID: "ubuntu2204", GPUClass: hostenv.GPUDesktop}
	rc := config.NewRunConfig(config.DefaultConfig()).WithExperimental()
	p := plan.Build(profile, rc, detect.RuntimeSet{})

	steps := b.ToolkitInstallSteps(p)

	repoSteps := 0
	for _, s := range steps {
		if strings.HasPrefix(s.Name, "Register repository") {
			repoSteps++
			if !s.FatalOnError {
				t.Errorf("repo step %q must be fatal on error", s.Name)
			}
		}
	}
	if repoSteps != 2 {
		t.Errorf("got %d repo steps with experimental, want 2", repoSteps)
	}
}

func TestUninstallSteps_PurgeRunsAllPassesDespiteFailures(t *testing.T) {
	runner := newFakeRunner()
	runner.failures["apt-get purge"] = true
	b := testBuilder(t, runner)

	p := testPlan(hostenv.GPUDesktop, detect.RuntimeSet{})
	report := runSteps(t, runner, b.UninstallSteps(p))

	if report.Fatal {
		t.Error("purge failures must never be fatal")
	}

	purgeCalls := 0
	for _, call := range runner.calls {
		if strings.HasPrefix(call, "apt-get purge") {
			purgeCalls++
		}
	}
	if purgeCalls != len(p.PurgePasses) {
		t.Errorf("got %d purge invocations, want %d (all passes attempted)", purgeCalls, len(p.PurgePasses))
	}
}

func TestUninstallSteps_ActivatesBlacklist(t *testing.T) {
	runner := newFakeRunner()
	b := testBuilder(t, runner)

	p := testPlan(hostenv.GPUDesktop, detect.RuntimeSet{})
	report := runSteps(t, runner, b.UninstallSteps(p))

	if report.Fatal {
		t.Fatalf("unexpected fatal: %+v", report.Results)
	}

	active, err := b.blacklist.Active()
	if err != nil {
		t.Fatal(err)
	}
	if !active {
		t.Error("uninstall must leave the blacklist active")
	}
}

func TestUninstallSteps_BootloaderAndInitramfs(t *testing.T) {
	runner := newFakeRunner()
	b := testBuilder(t, runner)

	runSteps(t, runner, b.UninstallSteps(testPlan(hostenv.GPUDesktop, detect.RuntimeSet{})))

	if runner.callIndex("update-initramfs -u") == -1 {
		t.Error("initramfs regeneration missing")
	}
	if runner.callIndex("update-grub") == -1 {
		t.Error("bootloader update missing")
	}
}
