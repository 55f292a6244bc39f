package blacklist

import (
	"fmt"
	"os"
	"strings"

	"nvsetup/internal/fsutil"
	"nvsetup/internal/logging"
)

// DefaultPath is the fixed blacklist file location.
const DefaultPath = "/etc/modprobe.d/nvidia-blacklist.conf"

// entries is the full fixed entry list. Activation always rewrites the
// whole file with exactly these lines; pre-existing custom entries are
// preserved only through the one-time .bak copy.
var entries = []string{
	"blacklist nvidia",
	"blacklist nvidia-drm",
	"blacklist nvidia-modeset",
	"blacklist nvidia-uvm",
	"blacklist nouveau",
}

const header = "# Managed by nvsetup. Edits are overwritten; the original file is kept as .bak."

// Manager toggles the two-state kernel module blacklist file. The file is
// created during uninstall (entries active, driver disabled) and commented
// out once the system is ready for a fresh driver again. It is never
// deleted, so the .bak plus the commented file remain as an audit trail.
type Manager struct {
	path   string
	logger *logging.Logger
}

// NewManager creates a manager for the default blacklist path.
func NewManager(logger *logging.Logger) *Manager {
	return &Manager{path: DefaultPath, logger: logger}
}

// NewManagerAt creates a manager for a specific path (tests, chroots).
func NewManagerAt(path string, logger *logging.Logger) *Manager {
	return &Manager{path: path, logger: logger}
}

// Path returns the managed file location.
func (m *Manager) Path() string {
	return m.path
}

// Activate writes the full entry list uncommented, disabling the NVIDIA
// driver on next boot. An existing file is backed up once before the
// first rewrite.
func (m *Manager) Activate() error {
	if fsutil.FileExists(m.path) {
		if _, err := fsutil.BackupOnce(m.path, m.logger); err != nil {
			return fmt.Errorf("blacklist backup failed: %w", err)
		}
	}

	content := header + "\n" + strings.Join(entries, "\n") + "\n"
	if err := fsutil.AtomicWriteFile(m.path, []byte(content), fsutil.SystemFilePermissions, m.logger); err != nil {
		return fmt.Errorf("blacklist write failed: %w", err)
	}

	m.logger.Info("blacklist.activated", "Kernel module blacklist activated", map[string]interface{}{
		"path":    m.path,
		"entries": len(entries),
	})

	return nil
}

// Disable comments out every blacklist entry so the driver loads again.
// Idempotent: a second call leaves the file unchanged and creates no
// additional backups. A missing file is not an error; there is nothing
// to disable.
func (m *Manager) Disable() error {
	data, err := os.ReadFile(m.path) // #nosec G304 -- fixed system path, test override only
	if err != nil {
		if os.IsNotExist(err) {
			m.logger.Debug("blacklist.disable.absent", "No blacklist file to disable", nil)
			return nil
		}
		return fmt.Errorf("blacklist read failed: %w", err)
	}

	lines := strings.Split(string(data), "\n")
	changed := false
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "blacklist ") {
			lines[i] = "# " + line
			changed = true
		}
	}

	if !changed {
		m.logger.Debug("blacklist.disable.noop", "Blacklist already disabled", nil)
		return nil
	}

	if _, err := fsutil.BackupOnce(m.path, m.logger); err != nil {
		return fmt.Errorf("blacklist backup failed: %w", err)
	}

	content := strings.Join(lines, "\n")
	if err := fsutil.AtomicWriteFile(m.path, []byte(content), fsutil.SystemFilePermissions, m.logger); err != nil {
		return fmt.Errorf("blacklist write failed: %w", err)
	}

	m.logger.Info("blacklist.disabled", "Kernel module blacklist disabled", map[string]interface{}{
		"path": m.path,
	})

	return nil
}

// Active reports whether any uncommented blacklist entry is present.
func (m *Manager) Active() (bool, error) {
	data, err := os.ReadFile(m.path) // #nosec G304
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("blacklist read failed: %w", err)
	}

	for _, line := range strings.Split(string(data), "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "blacklist ") {
			return true, nil
		}
	}
	return false, nil
}
