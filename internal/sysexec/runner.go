package sysexec

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"nvsetup/internal/logging"
)

// Result captures the observable outcome of one external command. The
// provisioning logic only ever depends on the exit code and, for a few
// commands, the stdout text; external tools are otherwise black boxes.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Runner executes external commands. The real implementation shells out;
// tests substitute a scripted fake.
type Runner interface {
	// Run executes name with args and returns the captured result. A
	// non-nil error means the command could not be started or exited
	// non-zero; Result is populated in both cases when available.
	Run(ctx context.Context, name string, args ...string) (Result, error)
	// LookPath reports where name resolves on PATH, or an error when absent.
	LookPath(name string) (string, error)
}

// ExecRunner is the production Runner backed by os/exec.
type ExecRunner struct {
	logger *logging.Logger
}

// NewExecRunner creates a runner that logs every invocation.
func NewExecRunner(logger *logging.Logger) *ExecRunner {
	return &ExecRunner{logger: logger}
}

// Run executes the command and captures stdout/stderr.
func (r *ExecRunner) Run(ctx context.Context, name string, args ...string) (Result, error) {
	// #nosec G204 -- command names and arguments come from fixed plans, never user input
	cmd := exec.CommandContext(ctx, name, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()

	result := Result{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
		} else {
			result.ExitCode = -1
		}

		if r.logger != nil {
			r.logger.Warn("exec.failed", "External command failed", map[string]interface{}{
				"command":   name,
				"args":      strings.Join(args, " "),
				"exit_code": result.ExitCode,
				"stderr":    truncate(result.Stderr, 512),
			})
		}
		return result, fmt.Errorf("%s failed: %w", name, err)
	}

	if r.logger != nil {
		r.logger.Debug("exec.ok", "External command succeeded", map[string]interface{}{
			"command": name,
			"args":    strings.Join(args, " "),
		})
	}

	return result, nil
}

// LookPath resolves a binary on PATH.
func (r *ExecRunner) LookPath(name string) (string, error) {
	return exec.LookPath(name)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
