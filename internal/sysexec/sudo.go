package sysexec

import "context"

// SudoRunner wraps a Runner and prefixes every command with sudo. Flows
// that forbid running as root still need privileged mutations; the guard
// ensures a cached credential beforehand, so -n never prompts mid-step.
type SudoRunner struct {
	base Runner
}

// NewSudoRunner wraps base with sudo escalation.
func NewSudoRunner(base Runner) *SudoRunner {
	return &SudoRunner{base: base}
}

// Run executes the command under sudo.
func (s *SudoRunner) Run(ctx context.Context, name string, args ...string) (Result, error) {
	full := append([]string{"-n", name}, args...)
	return s.base.Run(ctx, "sudo", full...)
}

// LookPath resolves against the invoking user's PATH; system binaries
// live in the standard locations either way.
func (s *SudoRunner) LookPath(name string) (string, error) {
	return s.base.LookPath(name)
}
