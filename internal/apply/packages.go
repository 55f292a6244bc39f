package apply

import (
	"context"
	"fmt"

	"nvsetup/internal/plan"
)

func (b *Builder) refreshPackageLists(ctx context.Context) error {
	if _, err := b.runner.Run(ctx, "apt-get", "update"); err != nil {
		return fmt.Errorf("package list update failed: %w", err)
	}
	return nil
}

func (b *Builder) installPackages(ctx context.Context, packages ...string) error {
	args := append([]string{"install", "-y"}, packages...)
	if _, err := b.runner.Run(ctx, "apt-get", args...); err != nil {
		return fmt.Errorf("package installation failed: %w", err)
	}
	return nil
}

// installToolkitPins installs the four toolkit packages in a single
// transaction, every one pinned to the identical version. Installing a
// subset or mixed versions is never attempted.
func (b *Builder) installToolkitPins(ctx context.Context, pins []plan.PackagePin) error {
	args := make([]string, 0, len(pins))
	for _, pin := range pins {
		args = append(args, pin.Argument())
	}
	return b.installPackages(ctx, args...)
}

func (b *Builder) autoremove(ctx context.Context) error {
	if _, err := b.runner.Run(ctx, "apt-get", "autoremove", "-y"); err != nil {
		return fmt.Errorf("autoremove failed: %w", err)
	}
	return nil
}
