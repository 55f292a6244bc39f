package apply

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// loadDriverModule loads the nvidia kernel module. Failure is a warning:
// the standard completion path after a fresh driver install can require
// a reboot before the module loads.
func (b *Builder) loadDriverModule(ctx context.Context) error {
	if _, err := b.runner.Run(ctx, "modprobe", "nvidia"); err != nil {
		return fmt.Errorf("kernel module load failed (a reboot may be required): %w", err)
	}
	return nil
}

// unloadModules removes the NVIDIA kernel modules in dependency order,
// dependents before the nvidia module itself. Modules not currently
// loaded are skipped; a busy module is reported but does not abort the
// remaining unloads, since a pending reboot releases it anyway.
func (b *Builder) unloadModules(ctx context.Context, order []string) error {
	loaded, err := b.loadedModules(ctx)
	if err != nil {
		return fmt.Errorf("cannot list loaded modules: %w", err)
	}

	var failures []string
	for _, module := range order {
		if !loaded[module] {
			b.logger.Debug("apply.module.not_loaded", "Module not loaded, skipping", map[string]interface{}{
				"module": module,
			})
			continue
		}

		if _, err := b.runner.Run(ctx, "modprobe", "-r", module); err != nil {
			b.logger.Warn("apply.module.unload_failed", "Module unload failed", map[string]interface{}{
				"module": module,
				"error":  err.Error(),
			})
			failures = append(failures, module)
			continue
		}

		b.logger.Info("apply.module.unloaded", "Kernel module unloaded", map[string]interface{}{
			"module": module,
		})
	}

	if len(failures) > 0 {
		return errors.New("modules still in use, reboot will release them: " + strings.Join(failures, ", "))
	}
	return nil
}

// loadedModules parses /proc/modules via lsmod into a presence set.
func (b *Builder) loadedModules(ctx context.Context) (map[string]bool, error) {
	result, err := b.runner.Run(ctx, "lsmod")
	if err != nil {
		return nil, err
	}

	loaded := make(map[string]bool)
	for _, line := range strings.Split(result.Stdout, "\n") {
		fields := strings.Fields(line)
		if len(fields) > 0 && fields[0] != "Module" {
			loaded[fields[0]] = true
		}
	}
	return loaded, nil
}
