package apply

import (
	"context"
	"fmt"
)

// configureRuntime registers the NVIDIA runtime with one container
// runtime and restarts its service so the registration takes effect.
// Each runtime is its own warning-level step: a failed reconfiguration
// is recoverable by hand without invalidating the toolkit install.
func (b *Builder) configureRuntime(ctx context.Context, runtime, service string) error {
	if _, err := b.runner.Run(ctx, "nvidia-ctk", "runtime", "configure", "--runtime="+runtime); err != nil {
		return fmt.Errorf("runtime configuration for %s failed: %w", runtime, err)
	}

	if _, err := b.runner.Run(ctx, "systemctl", "restart", service); err != nil {
		return fmt.Errorf("service restart for %s failed: %w", service, err)
	}

	b.logger.Info("apply.runtime.configured", "Container runtime configured", map[string]interface{}{
		"runtime": runtime,
		"service": service,
	})

	return nil
}
