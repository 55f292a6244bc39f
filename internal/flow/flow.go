package flow

import (
	"context"
	"os"
	"path/filepath"

	"nvsetup/internal/blacklist"
	"nvsetup/internal/config"
	"nvsetup/internal/detect"
	"nvsetup/internal/hostenv"
	"nvsetup/internal/logging"
	"nvsetup/internal/runlock"
	"nvsetup/internal/sysexec"
	"nvsetup/internal/ui"
	"nvsetup/internal/verify"
)

// environment is the guard capability the flows consume.
type environment interface {
	CheckOS() (hostenv.OSFamily, string, error)
	ValidateUser(requireRoot bool) error
	IsRoot() bool
	EnsureSudo(ctx context.Context, confirm func(prompt string) bool) error
}

// gpuProbe detects NVIDIA hardware.
type gpuProbe interface {
	EnsurePCIUtils(ctx context.Context) error
	Detect(ctx context.Context, skip bool) (detect.GPUDetection, error)
}

// sessionProbe classifies the operator session.
type sessionProbe interface {
	Detect(ctx context.Context) hostenv.SessionMode
}

// checker runs post-mutation verification.
type checker interface {
	Toolkit(ctx context.Context) verify.Result
	Driver(ctx context.Context) verify.Result
	ContainerGPU(ctx context.Context) verify.Result
}

// locker is the single-invocation run lock.
type locker interface {
	Acquire(command string) error
	Release() error
}

// Flow wires guard, detection, planning, execution and verification into
// the user-facing commands. Each command returns a process exit code:
// 0 for success (including operator-declined no-ops), 1 for fatal
// failures and refused preconditions.
type Flow struct {
	cfg       config.RunConfig
	logger    *logging.Logger
	presenter ui.Presenter

	runner    sysexec.Runner
	guard     environment
	gpu       gpuProbe
	session   sessionProbe
	verifier  checker
	lock      locker
	blacklist *blacklist.Manager

	reportDir string
}

// New assembles a flow against the real host.
func New(cfg config.RunConfig, logger *logging.Logger, presenter ui.Presenter) *Flow {
	runner := sysexec.NewExecRunner(logger)

	f := &Flow{
		cfg:       cfg,
		logger:    logger,
		presenter: presenter,
		runner:    runner,
		guard:     hostenv.NewGuard(runner, logger),
		session:   detect.NewSessionDetector(detect.NewSystemdGraphicalTarget(runner, logger), logger),
		verifier:  verify.NewVerifier(runner, logger, cfg.SmokeImages),
		lock:      runlock.NewManager(logger),
		blacklist: blacklist.NewManager(logger),
		reportDir: filepath.Join(os.TempDir(), "nvsetup"),
	}
	// The pciutils install mutates package state; it escalates exactly
	// like the flow's own steps, while the PCI query stays unprivileged.
	f.gpu = detect.NewGPUDetectorWithInstaller(runner, escalator{flow: f}, logger)

	return f
}

// escalator is a Runner that resolves privilege at call time: whether
// commands need a sudo prefix depends on the flow's root policy, which
// is only known once the guard has run.
type escalator struct {
	flow *Flow
}

func (e escalator) Run(ctx context.Context, name string, args ...string) (sysexec.Result, error) {
	return e.flow.privilegedRunner().Run(ctx, name, args...)
}

func (e escalator) LookPath(name string) (string, error) {
	return e.flow.runner.LookPath(name)
}

// locked wraps a mutating command body with the run lock. Read-only
// commands (verify, gpu-check, session-check) do not take the lock.
func (f *Flow) locked(command string, body func() int) int {
	if err := f.lock.Acquire(command); err != nil {
		f.presenter.Error(err.Error())
		return 1
	}
	defer func() {
		if err := f.lock.Release(); err != nil {
			f.logger.Warn("flow.lock.release_failed", "Failed to release run lock", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}()

	return body()
}

// privilegedRunner returns the runner mutating steps must use: direct
// execution for root flows, sudo escalation for the toolkit flow.
func (f *Flow) privilegedRunner() sysexec.Runner {
	if f.guard.IsRoot() {
		return f.runner
	}
	return sysexec.NewSudoRunner(f.runner)
}

// checkHost validates OS family and the per-flow root policy. Failures
// are presented and terminate the flow.
func (f *Flow) checkHost(requireRoot bool) (hostenv.OSFamily, string, bool) {
	family, distID, err := f.guard.CheckOS()
	if err != nil {
		f.presenter.Error(err.Error())
		return family, distID, false
	}

	if err := f.guard.ValidateUser(requireRoot); err != nil {
		f.presenter.Error(err.Error())
		return family, distID, false
	}

	return family, distID, true
}

// confirmGPU runs hardware detection and, when no NVIDIA GPU is found,
// asks the operator for an explicit override. A decline aborts the flow
// before any repository or package mutation.
func (f *Flow) confirmGPU(ctx context.Context) (detect.GPUDetection, bool) {
	if !f.cfg.SkipGPUCheck {
		if err := f.gpu.EnsurePCIUtils(ctx); err != nil {
			f.presenter.Warning(err.Error())
		}
	}

	det, err := f.gpu.Detect(ctx, f.cfg.SkipGPUCheck)
	if err != nil {
		f.presenter.Warning(err.Error())
		det = detect.GPUDetection{}
	}

	if det.Present {
		return det, true
	}

	if !f.presenter.Confirm("No NVIDIA GPU was detected. Continue anyway?") {
		f.presenter.Error("Aborted: no NVIDIA GPU detected.")
		return det, false
	}

	// Override accepted: proceed as if an unclassified GPU were present.
	f.logger.Warn("flow.gpu.override", "Proceeding without detected GPU on operator request", nil)
	return detect.GPUDetection{Present: true, Class: hostenv.GPUUnknown}, true
}

// fatalAbort reports a fatal executor outcome with a pointer at the run log.
func (f *Flow) fatalAbort() {
	msg := "Aborted on fatal step failure. The flow is idempotent; fix the cause and re-run."
	if path := f.logger.Path(); path != "" {
		msg += " Log: " + path
	}
	f.presenter.Error(msg)
}

func (f *Flow) buildProfile(family hostenv.OSFamily, distID string, session hostenv.SessionMode, det detect.GPUDetection) hostenv.HostProfile {
	return hostenv.HostProfile{
		OSFamily:       family,
		DistributionID: distID,
		IsRoot:         f.guard.IsRoot(),
		HasSudo:        true,
		SessionMode:    session,
		GPUPresent:     det.Present,
		GPUClass:       det.Class,
	}
}

// presentChecks renders verification results; failed checks are shown as
// warnings because only the calling flow knows whether one is fatal.
func (f *Flow) presentChecks(checks []verify.Result) {
	for _, check := range checks {
		if check.Passed {
			f.presenter.Success(check.Check + ": " + check.Message)
		} else {
			f.presenter.Warning(check.Check + ": " + check.Message)
		}
	}
}

// rebootGate closes a driver mutation: the kernel module state only
// fully settles after a reboot. Declining is a success; the operator
// reboots on their own schedule.
func (f *Flow) rebootGate(ctx context.Context) int {
	if !f.presenter.Confirm("Reboot now to complete the change?") {
		f.presenter.Info("Reboot skipped. Run 'sudo reboot' before relying on the new driver state.")
		return 0
	}

	f.presenter.Info("Rebooting...")
	if _, err := f.privilegedRunner().Run(ctx, "shutdown", "-r", "+0"); err != nil {
		f.presenter.Error("Reboot request failed: " + err.Error())
		return 1
	}
	return 0
}
