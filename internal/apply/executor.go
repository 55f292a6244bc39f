package apply

import (
	"context"
	"fmt"

	"nvsetup/internal/logging"
	"nvsetup/internal/ui"
)

// Executor applies an ordered step sequence. A fatal step failure
// terminates the remaining steps immediately; warnings never do. There
// is no automatic rollback: the documented remedy for a partial run is
// re-running the same idempotent flow or rebooting.
type Executor struct {
	logger    *logging.Logger
	presenter ui.Presenter
}

// NewExecutor creates an executor rendering through the given presenter.
func NewExecutor(logger *logging.Logger, presenter ui.Presenter) *Executor {
	return &Executor{logger: logger, presenter: presenter}
}

// Run executes steps in order and returns the audit trail.
func (e *Executor) Run(ctx context.Context, steps []Step) Report {
	report := Report{Results: make([]StepResult, 0, len(steps))}

	for i, step := range steps {
		e.presenter.Progress(i+1, len(steps), step.Name)
		e.logger.Info("apply.step.start", "Executing step", map[string]interface{}{
			"step":  step.Name,
			"index": i + 1,
			"total": len(steps),
		})

		err := e.presenter.RunStep(step.Name, func() error {
			return step.Run(ctx)
		})

		if err == nil {
			report.Results = append(report.Results, StepResult{StepName: step.Name, Status: StatusSuccess})
			e.presenter.Success(step.Name)
			continue
		}

		if step.FatalOnError {
			report.Results = append(report.Results, StepResult{
				StepName: step.Name,
				Status:   StatusFatal,
				Message:  err.Error(),
			})
			report.Fatal = true
			e.presenter.Error(fmt.Sprintf("%s: %v", step.Name, err))
			e.logger.Error("apply.step.fatal", "Fatal step failure, aborting sequence", map[string]interface{}{
				"step":  step.Name,
				"error": err.Error(),
			})
			break
		}

		report.Results = append(report.Results, StepResult{
			StepName: step.Name,
			Status:   StatusWarning,
			Message:  err.Error(),
		})
		e.presenter.Warning(fmt.Sprintf("%s: %v (continuing)", step.Name, err))
		e.logger.Warn("apply.step.warning", "Step failed, continuing", map[string]interface{}{
			"step":  step.Name,
			"error": err.Error(),
		})
	}

	return report
}
