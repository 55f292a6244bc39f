package configdir

import "os"

// DefaultConfigDir is the system-wide nvsetup configuration directory.
const DefaultConfigDir = "/etc/nvsetup"

// ConfigDir returns the system configuration directory, honoring the
// NVSETUP_CONFIG_DIR override used by tests and packaging.
func ConfigDir() string {
	if env := os.Getenv("NVSETUP_CONFIG_DIR"); env != "" {
		return env
	}
	return DefaultConfigDir
}
