package runlock

import (
	"encoding/json"
	"fmt"
	"os"
	"syscall"
	"time"

	"nvsetup/internal/fsutil"
	"nvsetup/internal/logging"
)

// DefaultPath is the single-invocation lock file. The host package
// database and kernel module state are shared resources; two concurrent
// nvsetup runs would race each other and the package manager.
const DefaultPath = "/run/nvsetup.lock"

// Info is the persisted lock content.
type Info struct {
	PID     int       `json:"pid"`
	Command string    `json:"command"`
	Started time.Time `json:"started"`
}

// Manager acquires and releases the single-invocation lock.
type Manager struct {
	path      string
	logger    *logging.Logger
	pid       func() int
	pidExists func(pid int) bool
}

// NewManager creates a lock manager for the default path.
func NewManager(logger *logging.Logger) *Manager {
	return NewManagerAt(DefaultPath, logger)
}

// NewManagerAt creates a lock manager for a specific path (tests).
func NewManagerAt(path string, logger *logging.Logger) *Manager {
	return &Manager{
		path:      path,
		logger:    logger,
		pid:       os.Getpid,
		pidExists: processExists,
	}
}

// Acquire takes the lock for this process. A live holder is an error; a
// lock left behind by a dead process is cleared automatically.
func (m *Manager) Acquire(command string) error {
	existing, err := m.load()
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to read existing lock: %w", err)
	}

	if existing != nil {
		if m.pidExists(existing.PID) {
			return fmt.Errorf("another nvsetup run (%s, pid %d) is in progress since %s",
				existing.Command, existing.PID, existing.Started.Format(time.RFC3339))
		}

		m.logger.Warn("runlock.stale_cleared", "Clearing lock left by dead process", map[string]interface{}{
			"pid":     existing.PID,
			"command": existing.Command,
		})
	}

	info := Info{
		PID:     m.pid(),
		Command: command,
		Started: time.Now().UTC(),
	}

	data, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal lock: %w", err)
	}

	if err := fsutil.AtomicWriteFile(m.path, data, fsutil.DefaultFilePermissions, m.logger); err != nil {
		return fmt.Errorf("failed to write lock: %w", err)
	}

	m.logger.Info("runlock.acquired", "Run lock acquired", map[string]interface{}{
		"pid":     info.PID,
		"command": command,
	})

	return nil
}

// Release drops the lock if this process holds it. A missing lock or a
// lock held by someone else is left alone.
func (m *Manager) Release() error {
	existing, err := m.load()
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read lock: %w", err)
	}

	if existing.PID != m.pid() {
		m.logger.Warn("runlock.release.not_holder", "Lock held by another process, leaving in place", map[string]interface{}{
			"holder": existing.PID,
		})
		return nil
	}

	if err := os.Remove(m.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove lock: %w", err)
	}

	m.logger.Info("runlock.released", "Run lock released", nil)
	return nil
}

func (m *Manager) load() (*Info, error) {
	data, err := os.ReadFile(m.path) // #nosec G304 -- fixed lock path, test override only
	if err != nil {
		return nil, err
	}

	var info Info
	if err := json.Unmarshal(data, &info); err != nil {
		// A corrupt lock file counts as stale.
		return &Info{}, nil
	}
	return &info, nil
}

// processExists checks whether a PID is alive via the null signal.
func processExists(pid int) bool {
	if pid <= 0 {
		return false
	}
	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return process.Signal(syscall.Signal(0)) == nil
}
