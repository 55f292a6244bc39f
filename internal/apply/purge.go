package apply

import (
	"context"

	"nvsetup/internal/plan"
)

// runPurgePasses executes the escalating removal sequence. Every pass is
// best-effort: a non-zero exit is treated as "nothing matched" and the
// next pass still runs, so inconsistent package naming across driver
// generations cannot leave remnants behind. The step as a whole never
// fails.
func (b *Builder) runPurgePasses(ctx context.Context, passes []plan.PurgeSpec) error {
	for _, pass := range passes {
		b.logger.Info("apply.purge.pass", "Running purge pass", map[string]interface{}{
			"pattern":     pass.Pattern,
			"description": pass.Description,
		})

		if _, err := b.runner.Run(ctx, "apt-get", "purge", "-y", pass.Pattern); err != nil {
			b.logger.Debug("apply.purge.pass_empty", "Purge pass matched nothing", map[string]interface{}{
				"pattern": pass.Pattern,
				"error":   err.Error(),
			})
		}
	}
	return nil
}
