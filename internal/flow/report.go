package flow

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"nvsetup/internal/apply"
	"nvsetup/internal/hostenv"
	"nvsetup/internal/verify"
)

// RunReport is the persisted audit trail of one invocation: the host
// snapshot, every step outcome in order, and the verification results.
type RunReport struct {
	Command  string              `json:"command"`
	Started  time.Time           `json:"started"`
	Finished time.Time           `json:"finished"`
	Profile  hostenv.HostProfile `json:"profile"`
	Steps    []apply.StepResult  `json:"steps,omitempty"`
	Warnings int                 `json:"warnings"`
	Fatal    bool                `json:"fatal"`
	Checks   []verify.Result     `json:"checks,omitempty"`
}

// writeReport persists the run report next to the run log. Reporting is
// best-effort; a failed write never changes the flow outcome.
func (f *Flow) writeReport(command string, started time.Time, profile hostenv.HostProfile, report apply.Report, checks []verify.Result) {
	run := RunReport{
		Command:  command,
		Started:  started,
		Finished: time.Now().UTC(),
		Profile:  profile,
		Steps:    report.Results,
		Warnings: report.Warnings(),
		Fatal:    report.Fatal,
		Checks:   checks,
	}

	data, err := json.MarshalIndent(run, "", "  ")
	if err != nil {
		f.logger.Warn("flow.report.marshal_failed", "Failed to marshal run report", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}

	if err := os.MkdirAll(f.reportDir, 0o750); err != nil {
		f.logger.Warn("flow.report.dir_failed", "Failed to create report directory", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}

	name := fmt.Sprintf("report-%s-%s.json", command, started.Format("20060102-150405"))
	path := filepath.Join(f.reportDir, name)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		f.logger.Warn("flow.report.write_failed", "Failed to write run report", map[string]interface{}{
			"path":  path,
			"error": err.Error(),
		})
		return
	}

	f.logger.Info("flow.report.written", "Run report written", map[string]interface{}{
		"path": path,
	})
}
