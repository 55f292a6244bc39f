package flow

import (
	"context"
	"time"

	"nvsetup/internal/apply"
	"nvsetup/internal/detect"
	"nvsetup/internal/plan"
	"nvsetup/internal/verify"
)

// InstallDriver provisions the NVIDIA driver for the detected GPU class.
func (f *Flow) InstallDriver(ctx context.Context) int {
	return f.locked("install-driver", func() int {
		return f.installDriver(ctx)
	})
}

func (f *Flow) installDriver(ctx context.Context) int {
	started := time.Now().UTC()

	family, distID, ok := f.checkHost(true)
	if !ok {
		return 1
	}

	det, ok := f.confirmGPU(ctx)
	if !ok {
		return 1
	}

	session := f.session.Detect(ctx)
	profile := f.buildProfile(family, distID, session, det)
	runtimes := detect.DetectRuntimes(f.runner, f.logger)
	p := plan.Build(profile, f.cfg, runtimes)

	f.presenter.Info("Installing " + p.DriverPackage)

	builder := apply.NewBuilder(f.privilegedRunner(), f.logger, f.blacklist)
	report := apply.NewExecutor(f.logger, f.presenter).Run(ctx, builder.DriverInstallSteps(p))

	var checks []verify.Result
	if !report.Fatal {
		checks = []verify.Result{f.verifier.Driver(ctx)}
		f.presentChecks(checks)
	}

	f.writeReport("install-driver", started, profile, report, checks)

	if report.Fatal {
		f.fatalAbort()
		return 1
	}

	f.presenter.Success("Driver installation finished.")
	return f.rebootGate(ctx)
}

// UninstallDriver removes every NVIDIA driver package and blacklists the
// kernel modules for the next boot.
func (f *Flow) UninstallDriver(ctx context.Context) int {
	return f.locked("uninstall-driver", func() int {
		return f.uninstallDriver(ctx)
	})
}

func (f *Flow) uninstallDriver(ctx context.Context) int {
	started := time.Now().UTC()

	family, distID, ok := f.checkHost(true)
	if !ok {
		return 1
	}

	// Removal tears down the display stack; refusing inside a graphical
	// session protects the operator's own session. Nothing has been
	// touched yet, so this is a clean no-op.
	session := f.session.Detect(ctx)
	if session.IsGraphical() {
		f.presenter.Warning("An active graphical session was detected. Driver removal would terminate it.")
		f.presenter.Info("Switch to a text console (Ctrl+Alt+F3) or run 'sudo systemctl isolate multi-user.target', then re-run this command.")
		return 0
	}

	if !f.presenter.Confirm("This removes all NVIDIA driver packages and blacklists the kernel modules. Continue?") {
		f.presenter.Info("Nothing was changed.")
		return 0
	}

	profile := f.buildProfile(family, distID, session, detect.GPUDetection{})
	runtimes := detect.DetectRuntimes(f.runner, f.logger)
	p := plan.Build(profile, f.cfg, runtimes)

	builder := apply.NewBuilder(f.privilegedRunner(), f.logger, f.blacklist)
	report := apply.NewExecutor(f.logger, f.presenter).Run(ctx, builder.UninstallSteps(p))

	f.writeReport("uninstall-driver", started, profile, report, nil)

	if n := report.Warnings(); n > 0 {
		f.presenter.Warning("Removal finished with warnings; remaining state clears on reboot.")
	} else {
		f.presenter.Success("Driver removal finished.")
	}

	return f.rebootGate(ctx)
}
