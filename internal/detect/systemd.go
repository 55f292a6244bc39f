package detect

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/coreos/go-systemd/v22/dbus"

	"nvsetup/internal/logging"
	"nvsetup/internal/sysexec"
)

const graphicalTargetUnit = "graphical.target"

// SystemdGraphicalTarget probes graphical.target state over the systemd
// D-Bus API, falling back to systemctl when the bus is unreachable
// (containers, degraded boots).
type SystemdGraphicalTarget struct {
	runner sysexec.Runner
	logger *logging.Logger
}

// NewSystemdGraphicalTarget creates a prober with a systemctl fallback.
func NewSystemdGraphicalTarget(runner sysexec.Runner, logger *logging.Logger) *SystemdGraphicalTarget {
	return &SystemdGraphicalTarget{runner: runner, logger: logger}
}

// Active reports whether graphical.target is currently active.
func (p *SystemdGraphicalTarget) Active(ctx context.Context) (bool, error) {
	active, err := p.activeViaDbus(ctx)
	if err == nil {
		return active, nil
	}

	p.logger.Debug("detect.session.dbus_unavailable", "Falling back to systemctl", map[string]interface{}{
		"error": err.Error(),
	})

	return p.activeViaSystemctl(ctx)
}

func (p *SystemdGraphicalTarget) activeViaDbus(ctx context.Context) (bool, error) {
	conn, err := dbus.NewWithContext(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to connect to systemd dbus: %w", err)
	}
	defer conn.Close()

	props, err := conn.GetUnitPropertiesContext(ctx, graphicalTargetUnit)
	if err != nil {
		return false, fmt.Errorf("unable to get unit properties for %s: %w", graphicalTargetUnit, err)
	}

	state, ok := props["ActiveState"].(string)
	if !ok {
		return false, fmt.Errorf("ActiveState property missing for %s", graphicalTargetUnit)
	}

	return state == "active", nil
}

func (p *SystemdGraphicalTarget) activeViaSystemctl(ctx context.Context) (bool, error) {
	// is-active exits non-zero for inactive units; the printed state is
	// still authoritative, so inspect stdout before the error.
	result, err := p.runner.Run(ctx, "systemctl", "is-active", graphicalTargetUnit)

	state := strings.TrimSpace(result.Stdout)
	if state != "" {
		return state == "active", nil
	}
	if err != nil {
		return false, fmt.Errorf("systemctl is-active failed: %w", err)
	}

	return false, errors.New("systemctl reported no unit state")
}
