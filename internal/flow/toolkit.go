package flow

import (
	"context"
	"time"

	"nvsetup/internal/apply"
	"nvsetup/internal/detect"
	"nvsetup/internal/hostenv"
	"nvsetup/internal/plan"
	"nvsetup/internal/verify"
)

// InstallToolkit provisions the NVIDIA Container Toolkit and configures
// the container runtimes present on the host. Unlike the driver flows it
// runs as a regular user and escalates individual commands through sudo.
func (f *Flow) InstallToolkit(ctx context.Context) int {
	return f.locked("install-toolkit", func() int {
		return f.installToolkit(ctx)
	})
}

func (f *Flow) installToolkit(ctx context.Context) int {
	started := time.Now().UTC()

	family, distID, ok := f.checkHost(false)
	if !ok {
		return 1
	}

	if err := f.guard.EnsureSudo(ctx, f.presenter.Confirm); err != nil {
		f.presenter.Error(err.Error())
		return 1
	}

	det, ok := f.confirmGPU(ctx)
	if !ok {
		return 1
	}

	// The toolkit is useless without a working driver. A missing driver
	// is overridable: the operator may be mid-provisioning and planning
	// the reboot that completes the driver install.
	if driverCheck := f.verifier.Driver(ctx); !driverCheck.Passed {
		f.presenter.Warning(driverCheck.Message)
		if !f.presenter.Confirm("No working NVIDIA driver was detected. Install the toolkit anyway?") {
			f.presenter.Error("Aborted: install the driver first, then re-run.")
			return 1
		}
	}

	runtimes := detect.DetectRuntimes(f.runner, f.logger)
	if !runtimes.Any() {
		f.presenter.Warning("No container runtime found; the toolkit will be installed but nothing will be configured.")
	}

	session := f.session.Detect(ctx)
	profile := f.buildProfile(family, distID, session, det)
	p := plan.Build(profile, f.cfg, runtimes)

	f.presenter.Info("Installing NVIDIA Container Toolkit " + p.ToolkitVersion)

	builder := apply.NewBuilder(f.privilegedRunner(), f.logger, f.blacklist)
	report := apply.NewExecutor(f.logger, f.presenter).Run(ctx, builder.ToolkitInstallSteps(p))

	var checks []verify.Result
	fatalCheck := false
	if !report.Fatal {
		toolkitCheck := f.verifier.Toolkit(ctx)
		checks = []verify.Result{toolkitCheck, f.verifier.ContainerGPU(ctx)}
		f.presentChecks(checks)
		// An unresolvable toolkit CLI after a successful install means
		// the installation itself went wrong; the smoke test stays a
		// warning because registries and daemons are out of our hands.
		fatalCheck = !toolkitCheck.Passed
	}

	f.writeReport("install-toolkit", started, profile, report, checks)

	if report.Fatal || fatalCheck {
		f.fatalAbort()
		return 1
	}

	f.presenter.Success("Container toolkit installation finished.")
	return 0
}

// Verify runs all post-mutation checks without touching host state.
func (f *Flow) Verify(ctx context.Context) int {
	started := time.Now().UTC()

	checks := []verify.Result{
		f.verifier.Driver(ctx),
		f.verifier.Toolkit(ctx),
		f.verifier.ContainerGPU(ctx),
	}
	f.presentChecks(checks)

	f.writeReport("verify", started, hostenv.HostProfile{}, apply.Report{}, checks)

	for _, check := range checks {
		if !check.Passed {
			return 1
		}
	}
	return 0
}
