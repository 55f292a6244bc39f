package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"nvsetup/internal/config"
	"nvsetup/internal/flow"
	"nvsetup/internal/logging"
	"nvsetup/internal/tui"
	"nvsetup/internal/ui"
)

const version = "0.1.0-dev"

func main() {
	if len(os.Args) <= 1 {
		os.Exit(runMenu())
	}

	command := strings.ToLower(os.Args[1])
	if handler, ok := commandHandlers()[command]; ok {
		os.Exit(handler())
	}

	fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
	printUsage()
	os.Exit(1)
}

func commandHandlers() map[string]func() int {
	flags := flagArgs(os.Args)

	return map[string]func() int{
		"install-driver":   func() int { return runFlow("install-driver", flags) },
		"install-toolkit":  func() int { return runFlow("install-toolkit", flags) },
		"uninstall-driver": func() int { return runFlow("uninstall-driver", flags) },
		"verify":           func() int { return runCheck("verify", flags) },
		"gpu-check":        func() int { return runCheck("gpu-check", flags) },
		"session-check":    func() int { return runCheck("session-check", flags) },
		"version":          runVersion,
		"help":             runHelp,
		"--help":           runHelp,
		"-h":               runHelp,
	}
}

// flagArgs extracts the per-command flags from argv. Anything shorter
// than "binary command flag..." has no flags.
func flagArgs(argv []string) []string {
	if len(argv) > 2 {
		return argv[2:]
	}
	return nil
}

func runVersion() int {
	fmt.Printf("nvsetup version %s\n", version)
	return 0
}

func runHelp() int {
	printUsage()
	return 0
}

// runMenu starts the interactive menu and runs the selected flow after
// the menu program has released the terminal.
func runMenu() int {
	action, err := tui.Run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	switch action {
	case tui.ActionInstallDriver, tui.ActionInstallToolkit, tui.ActionUninstallDriver:
		return runFlow(string(action), nil)
	case tui.ActionVerify:
		return runCheck("verify", nil)
	default:
		return 0
	}
}

// buildRunConfig merges the configuration files with the command flags.
func buildRunConfig(args []string) (config.RunConfig, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.RunConfig{}, err
	}

	rc := config.NewRunConfig(cfg)
	for _, arg := range args {
		switch arg {
		case "--skip-gpu-check":
			rc = rc.WithSkipGPUCheck()
		case "--experimental":
			rc = rc.WithExperimental()
		case "--ui":
			rc.UI = true
		case "--yes", "-y":
			rc.AssumeYes = true
		default:
			return rc, fmt.Errorf("unknown flag: %s", arg)
		}
	}

	return rc, nil
}

// runFlow executes a mutating flow with a per-run log file.
func runFlow(command string, flags []string) int {
	rc, err := buildRunConfig(flags)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	level := logging.ParseLevel(rc.LogLevel)
	logger, err := logging.NewRunLogger(level, command)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not open run log, logging to stderr: %v\n", err)
		logger = logging.NewLogger(level)
	}
	defer func() {
		if cerr := logger.Close(); cerr != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to close log file: %v\n", cerr)
		}
	}()

	presenter := ui.NewPresenter(rc.UI, rc.AssumeYes)
	if path := logger.Path(); path != "" {
		presenter.Info("Run log: " + path)
	}

	f := flow.New(rc, logger, presenter)
	ctx := context.Background()

	switch command {
	case "install-driver":
		return f.InstallDriver(ctx)
	case "install-toolkit":
		return f.InstallToolkit(ctx)
	case "uninstall-driver":
		return f.UninstallDriver(ctx)
	default:
		fmt.Fprintf(os.Stderr, "Unknown flow: %s\n", command)
		return 1
	}
}

// runCheck executes a read-only command; diagnostics go to stderr.
func runCheck(command string, flags []string) int {
	rc, err := buildRunConfig(flags)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	logger := logging.NewLogger(logging.ParseLevel(rc.LogLevel))
	presenter := ui.NewPresenter(false, rc.AssumeYes)

	f := flow.New(rc, logger, presenter)
	ctx := context.Background()

	switch command {
	case "verify":
		return f.Verify(ctx)
	case "gpu-check":
		return f.GPUCheck(ctx)
	case "session-check":
		return f.SessionCheck(ctx)
	default:
		fmt.Fprintf(os.Stderr, "Unknown check: %s\n", command)
		return 1
	}
}

func printUsage() {
	fmt.Println("nvsetup - NVIDIA driver and container toolkit provisioning for Ubuntu")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  nvsetup                      Interactive menu")
	fmt.Println("  nvsetup <command> [flags]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  install-driver      Install the NVIDIA driver (requires root)")
	fmt.Println("  install-toolkit     Install the NVIDIA Container Toolkit (run as user with sudo)")
	fmt.Println("  uninstall-driver    Remove all NVIDIA driver packages (requires root)")
	fmt.Println("  verify              Check driver, toolkit and container GPU access")
	fmt.Println("  gpu-check           Detect NVIDIA hardware on the PCI bus")
	fmt.Println("  session-check       Classify the current session (graphical/text/ssh)")
	fmt.Println("  version             Show version information")
	fmt.Println("  help                Show this help")
	fmt.Println()
	fmt.Println("Flags:")
	fmt.Println("  --skip-gpu-check    Proceed without hardware detection")
	fmt.Println("  --experimental      Enable the experimental toolkit repository")
	fmt.Println("  --ui                Animated progress gauge (interactive terminals)")
	fmt.Println("  --yes, -y           Assume yes on every confirmation")
	fmt.Println()
	fmt.Println("Configuration: /etc/nvsetup/config.yaml, ~/.nvsetup/config.yaml")
}
