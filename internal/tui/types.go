package tui

// Action is the flow the operator picked from the menu.
type Action string

const (
	// ActionNone means the menu was quit without a selection.
	ActionNone Action = ""
	// ActionInstallDriver runs the driver installation flow.
	ActionInstallDriver Action = "install-driver"
	// ActionInstallToolkit runs the container toolkit installation flow.
	ActionInstallToolkit Action = "install-toolkit"
	// ActionUninstallDriver runs the driver removal flow.
	ActionUninstallDriver Action = "uninstall-driver"
	// ActionVerify runs the read-only verification checks.
	ActionVerify Action = "verify"
)

// MenuItem represents a menu item
type MenuItem struct {
	Key         string // Number key shortcut
	Label       string // Display label
	Description string // Short description
	Action      Action // Flow started on selection
}

// DefaultMenuItems returns the main menu items
func DefaultMenuItems() []MenuItem {
	return []MenuItem{
		{Key: "1", Label: "Install driver", Description: "Install the NVIDIA driver for the detected GPU", Action: ActionInstallDriver},
		{Key: "2", Label: "Install container toolkit", Description: "Install and configure the NVIDIA Container Toolkit", Action: ActionInstallToolkit},
		{Key: "3", Label: "Uninstall driver", Description: "Remove all NVIDIA driver packages", Action: ActionUninstallDriver},
		{Key: "4", Label: "Verify", Description: "Check driver, toolkit and container GPU access", Action: ActionVerify},
	}
}
