package detect

import (
	"context"
	"os"
	"regexp"
	"strings"

	"nvsetup/internal/hostenv"
	"nvsetup/internal/logging"
)

// textConsolePattern matches a kernel virtual console device path.
var textConsolePattern = regexp.MustCompile(`^/dev/tty[0-9]+$`)

// sshEnvVars are the variables an SSH session leaves in the environment.
var sshEnvVars = []string{"SSH_CONNECTION", "SSH_TTY", "SSH_CLIENT"}

// GraphicalTargetProber reports whether systemd's graphical.target is active.
type GraphicalTargetProber interface {
	Active(ctx context.Context) (bool, error)
}

// SessionDetector classifies how the operator is attached to the host.
// Driver removal must never run inside an active graphical session, so
// every ambiguous case resolves to a text classification.
type SessionDetector struct {
	logger    *logging.Logger
	getenv    func(string) string
	ttyPath   func() string
	graphical GraphicalTargetProber
}

// NewSessionDetector creates a detector using the real process environment.
func NewSessionDetector(graphical GraphicalTargetProber, logger *logging.Logger) *SessionDetector {
	return &SessionDetector{
		logger:    logger,
		getenv:    os.Getenv,
		ttyPath:   controllingTTY,
		graphical: graphical,
	}
}

// Detect applies the fixed precedence order, first match wins:
//
//  1. controlling terminal is a kernel text console -> text
//  2. SSH environment variable set -> ssh; remote pseudo-terminal
//     without a display variable -> text
//  3. graphical.target reported inactive -> text
//  4. display/compositor variable set -> graphical
//  5. default -> text
//
// A stale DISPLAY in a local text session can still classify as graphical
// when graphical.target is active; that is accepted behavior.
func (d *SessionDetector) Detect(ctx context.Context) hostenv.SessionMode {
	mode := d.classify(ctx)

	d.logger.Info("detect.session.done", "Session classified", map[string]interface{}{
		"mode": string(mode),
	})

	return mode
}

func (d *SessionDetector) classify(ctx context.Context) hostenv.SessionMode {
	tty := d.ttyPath()
	if textConsolePattern.MatchString(tty) {
		return hostenv.SessionText
	}

	for _, name := range sshEnvVars {
		if d.getenv(name) != "" {
			return hostenv.SessionSSH
		}
	}

	hasDisplay := d.getenv("DISPLAY") != "" || d.getenv("WAYLAND_DISPLAY") != ""

	// A pseudo-terminal without any display variable is a remote or
	// detached session even when no SSH variable survived (su, screen).
	if strings.HasPrefix(tty, "/dev/pts/") && !hasDisplay {
		return hostenv.SessionText
	}

	if d.graphical != nil {
		if active, err := d.graphical.Active(ctx); err == nil && !active {
			return hostenv.SessionText
		}
	}

	if hasDisplay {
		return hostenv.SessionGraphical
	}

	return hostenv.SessionText
}

// controllingTTY resolves the terminal attached to stdin, or empty when
// there is none (pipes, cron).
func controllingTTY() string {
	path, err := os.Readlink("/proc/self/fd/0")
	if err != nil {
		return ""
	}
	return path
}
