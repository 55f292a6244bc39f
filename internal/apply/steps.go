package apply

import (
	"context"
	"fmt"

	"nvsetup/internal/blacklist"
	"nvsetup/internal/logging"
	"nvsetup/internal/plan"
	"nvsetup/internal/sysexec"
)

// Builder assembles the ordered step sequences for each flow. Ordering
// is invariant: repository registration precedes the package-list
// refresh, which precedes installation, which precedes runtime
// configuration.
type Builder struct {
	runner    sysexec.Runner
	logger    *logging.Logger
	blacklist *blacklist.Manager
}

// NewBuilder creates a step builder.
func NewBuilder(runner sysexec.Runner, logger *logging.Logger, bl *blacklist.Manager) *Builder {
	return &Builder{runner: runner, logger: logger, blacklist: bl}
}

// DriverInstallSteps is the ordered driver installation sequence.
func (b *Builder) DriverInstallSteps(p plan.ActionPlan) []Step {
	steps := make([]Step, 0, len(p.DriverRepos)+7)

	for _, repo := range p.DriverRepos {
		steps = append(steps, Step{
			Name:         fmt.Sprintf("Register repository %s", repo.Name),
			FatalOnError: true,
			Run:          func(ctx context.Context) error { return b.registerRepo(ctx, repo) },
		})
	}

	steps = append(steps,
		Step{
			Name:         "Refresh package lists",
			FatalOnError: true,
			Run:          b.refreshPackageLists,
		},
		Step{
			Name:         fmt.Sprintf("Install %s", p.DriverPackage),
			FatalOnError: true,
			Run: func(ctx context.Context) error {
				return b.installPackages(ctx, p.DriverPackage)
			},
		},
		Step{
			Name: "Install driver detection assistant",
			Run: func(ctx context.Context) error {
				return b.installPackages(ctx, "ubuntu-drivers-common")
			},
		},
		Step{
			Name: "Disable kernel module blacklist",
			Run: func(ctx context.Context) error {
				return b.blacklist.Disable()
			},
		},
		Step{
			Name: "Load nvidia kernel module",
			Run:  b.loadDriverModule,
		},
		Step{
			Name: "Regenerate initramfs",
			Run: func(ctx context.Context) error {
				_, err := b.runner.Run(ctx, "update-initramfs", "-u")
				return err
			},
		},
		Step{
			Name: "Refresh dynamic linker cache",
			Run: func(ctx context.Context) error {
				_, err := b.runner.Run(ctx, "ldconfig")
				return err
			},
		},
	)

	return steps
}

// ToolkitInstallSteps is the ordered container toolkit sequence.
func (b *Builder) ToolkitInstallSteps(p plan.ActionPlan) []Step {
	steps := make([]Step, 0, len(p.ToolkitRepos)+5)

	for _, repo := range p.ToolkitRepos {
		steps = append(steps, Step{
			Name:         fmt.Sprintf("Register repository %s", repo.Name),
			FatalOnError: true,
			Run:          func(ctx context.Context) error { return b.registerRepo(ctx, repo) },
		})
	}

	steps = append(steps,
		Step{
			Name:         "Refresh package lists",
			FatalOnError: true,
			Run:          b.refreshPackageLists,
		},
		Step{
			Name:         fmt.Sprintf("Install container toolkit %s", p.ToolkitVersion),
			FatalOnError: true,
			Run: func(ctx context.Context) error {
				return b.installToolkitPins(ctx, p.ToolkitPackages)
			},
		},
	)

	if p.Runtimes.Docker {
		steps = append(steps, Step{
			Name: "Configure Docker runtime",
			Run: func(ctx context.Context) error {
				return b.configureRuntime(ctx, "docker", "docker")
			},
		})
	}
	if p.Runtimes.Containerd {
		steps = append(steps, Step{
			Name: "Configure containerd runtime",
			Run: func(ctx context.Context) error {
				return b.configureRuntime(ctx, "containerd", "containerd")
			},
		})
	}
	if p.Runtimes.CRIO {
		steps = append(steps, Step{
			Name: "Configure CRI-O runtime",
			Run: func(ctx context.Context) error {
				return b.configureRuntime(ctx, "crio", "crio")
			},
		})
	}

	return steps
}

// UninstallSteps is the ordered driver removal sequence.
func (b *Builder) UninstallSteps(p plan.ActionPlan) []Step {
	return []Step{
		{
			Name: "Unload kernel modules",
			Run: func(ctx context.Context) error {
				return b.unloadModules(ctx, p.KernelModules)
			},
		},
		{
			Name: "Purge driver packages",
			Run: func(ctx context.Context) error {
				return b.runPurgePasses(ctx, p.PurgePasses)
			},
		},
		{
			Name: "Remove orphaned packages",
			Run:  b.autoremove,
		},
		{
			Name: "Activate kernel module blacklist",
			Run: func(ctx context.Context) error {
				return b.blacklist.Activate()
			},
		},
		{
			Name: "Regenerate initramfs",
			Run: func(ctx context.Context) error {
				_, err := b.runner.Run(ctx, "update-initramfs", "-u")
				return err
			},
		},
		{
			Name: "Update bootloader configuration",
			Run: func(ctx context.Context) error {
				_, err := b.runner.Run(ctx, "update-grub")
				return err
			},
		},
		{
			Name: "Refresh dynamic linker cache",
			Run: func(ctx context.Context) error {
				_, err := b.runner.Run(ctx, "ldconfig")
				return err
			},
		},
	}
}
