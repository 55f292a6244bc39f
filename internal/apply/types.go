package apply

import "context"

// Status is the outcome class of one executor step.
type Status string

const (
	// StatusSuccess means the step completed.
	StatusSuccess Status = "success"
	// StatusWarning means the step failed but the run continues; the
	// condition is recoverable by reboot or manual follow-up.
	StatusWarning Status = "warning"
	// StatusFatal means the step failed and the remaining sequence is
	// abandoned.
	StatusFatal Status = "fatal"
)

// StepResult records one step's outcome. The ordered result sequence is
// the run's audit trail.
type StepResult struct {
	StepName string `json:"step"`
	Status   Status `json:"status"`
	Message  string `json:"message,omitempty"`
}

// Step is one numbered mutation. The failure policy is per-step: repo
// registration, package-list refresh and core installation are fatal,
// everything else degrades to a warning.
type Step struct {
	Name         string
	FatalOnError bool
	Run          func(ctx context.Context) error
}

// Report is the full outcome of an executor sequence.
type Report struct {
	Results []StepResult `json:"results"`
	Fatal   bool         `json:"fatal"`
}

// Warnings counts non-fatal failures.
func (r Report) Warnings() int {
	n := 0
	for _, res := range r.Results {
		if res.Status == StatusWarning {
			n++
		}
	}
	return n
}
