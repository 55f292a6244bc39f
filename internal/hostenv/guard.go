package hostenv

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"nvsetup/internal/logging"
	"nvsetup/internal/sysexec"
)

// Guard errors. Fatal guard failures unwind to the top-level handler and
// exit 1; they are never retried.
var (
	// ErrUnsupportedOS means the host is not an Ubuntu system.
	ErrUnsupportedOS = errors.New("unsupported operating system: Ubuntu is required")
	// ErrPrivilegeDenied means the operator declined to grant sudo.
	ErrPrivilegeDenied = errors.New("administrative privileges declined")
	// ErrRootRequired means the flow must run as root but is not.
	ErrRootRequired = errors.New("this command must be run as root")
	// ErrRootForbidden means the flow must run as a regular user with sudo.
	ErrRootForbidden = errors.New("this command must not be run as root; run as a regular user with sudo access")
)

const defaultOSReleasePath = "/etc/os-release"

// Guard validates the execution context before any mutating step runs.
type Guard struct {
	runner        sysexec.Runner
	logger        *logging.Logger
	osReleasePath string
	geteuid       func() int
	acquireSudo   func(ctx context.Context) error
}

// NewGuard creates a guard using the real process environment.
func NewGuard(runner sysexec.Runner, logger *logging.Logger) *Guard {
	return &Guard{
		runner:        runner,
		logger:        logger,
		osReleasePath: defaultOSReleasePath,
		geteuid:       os.Geteuid,
		acquireSudo:   acquireSudoInteractive,
	}
}

// CheckOS verifies the host is Ubuntu and derives the distribution id
// ("ubuntu2204" shape) used for repository URLs.
func (g *Guard) CheckOS() (OSFamily, string, error) {
	data, err := os.ReadFile(g.osReleasePath) // #nosec G304 -- fixed system path, test override only
	if err != nil {
		g.logger.Error("guard.os_release.read_failed", "Cannot read os-release", map[string]interface{}{
			"path":  g.osReleasePath,
			"error": err.Error(),
		})
		return OSOther, "", fmt.Errorf("%w: cannot read %s", ErrUnsupportedOS, g.osReleasePath)
	}

	id, versionID := parseOSRelease(string(data))
	if id != "ubuntu" {
		g.logger.Error("guard.os.unsupported", "Unsupported OS family", map[string]interface{}{
			"id": id,
		})
		return OSOther, "", ErrUnsupportedOS
	}

	distID := "ubuntu" + strings.ReplaceAll(versionID, ".", "")
	g.logger.Info("guard.os.ok", "Ubuntu host confirmed", map[string]interface{}{
		"distribution_id": distID,
	})

	return OSUbuntu, distID, nil
}

// ValidateUser enforces the fixed per-flow root policy: driver flows
// require root, the toolkit flow forbids it.
func (g *Guard) ValidateUser(requireRoot bool) error {
	isRoot := g.geteuid() == 0

	if requireRoot && !isRoot {
		return ErrRootRequired
	}
	if !requireRoot && isRoot {
		return ErrRootForbidden
	}
	return nil
}

// IsRoot reports whether the effective user is root.
func (g *Guard) IsRoot() bool {
	return g.geteuid() == 0
}

// EnsureSudo verifies a usable sudo credential, prompting the operator
// once via confirm before acquiring one. Declining aborts the run.
func (g *Guard) EnsureSudo(ctx context.Context, confirm func(prompt string) bool) error {
	if g.geteuid() == 0 {
		return nil
	}

	// Cached credential: sudo -n succeeds without prompting.
	if _, err := g.runner.Run(ctx, "sudo", "-n", "true"); err == nil {
		g.logger.Debug("guard.sudo.cached", "Sudo credential already cached", nil)
		return nil
	}

	if !confirm("nvsetup needs administrative privileges (sudo). Continue?") {
		return ErrPrivilegeDenied
	}

	if err := g.acquireSudo(ctx); err != nil {
		g.logger.Error("guard.sudo.failed", "Failed to acquire sudo credential", map[string]interface{}{
			"error": err.Error(),
		})
		return fmt.Errorf("%w: %v", ErrPrivilegeDenied, err)
	}

	g.logger.Info("guard.sudo.acquired", "Sudo credential acquired", nil)
	return nil
}

// acquireSudoInteractive runs `sudo -v` attached to the terminal so the
// password prompt reaches the operator directly.
func acquireSudoInteractive(ctx context.Context) error {
	cmd := exec.CommandContext(ctx, "sudo", "-v")
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

// parseOSRelease extracts ID and VERSION_ID from os-release content.
func parseOSRelease(content string) (id, versionID string) {
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, "ID="):
			id = strings.Trim(strings.TrimPrefix(line, "ID="), `"`)
		case strings.HasPrefix(line, "VERSION_ID="):
			versionID = strings.Trim(strings.TrimPrefix(line, "VERSION_ID="), `"`)
		}
	}
	return strings.ToLower(id), versionID
}
