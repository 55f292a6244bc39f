package detect

import (
	"context"
	"fmt"
	"strings"

	"nvsetup/internal/hostenv"
	"nvsetup/internal/logging"
	"nvsetup/internal/sysexec"
)

// GPUDetection is the outcome of PCI bus inspection.
type GPUDetection struct {
	Present bool
	Class   hostenv.GPUClass
}

// displayControllerClasses are the lspci device classes that can carry an
// NVIDIA GPU. Lines not matching one of these are ignored entirely.
var displayControllerClasses = []string{
	"vga compatible controller",
	"3d controller",
	"display controller",
}

// GPUDetector classifies NVIDIA hardware from the PCI bus listing. The
// PCI query runs unprivileged; installing pciutils mutates package state
// and goes through a separate, possibly escalating runner.
type GPUDetector struct {
	runner    sysexec.Runner
	installer sysexec.Runner
	logger    *logging.Logger
}

// NewGPUDetector creates a detector backed by the given command runner.
func NewGPUDetector(runner sysexec.Runner, logger *logging.Logger) *GPUDetector {
	return NewGPUDetectorWithInstaller(runner, runner, logger)
}

// NewGPUDetectorWithInstaller creates a detector whose pciutils install
// runs through installer. Flows that forbid root pass a sudo-escalating
// runner here.
func NewGPUDetectorWithInstaller(runner, installer sysexec.Runner, logger *logging.Logger) *GPUDetector {
	return &GPUDetector{runner: runner, installer: installer, logger: logger}
}

// EnsurePCIUtils installs pciutils when lspci is absent. This is a single
// linear attempt: if the install fails the subsequent detection fails too,
// it is never retried.
func (d *GPUDetector) EnsurePCIUtils(ctx context.Context) error {
	if _, err := d.runner.LookPath("lspci"); err == nil {
		return nil
	}

	d.logger.Info("detect.gpu.pciutils_missing", "lspci not found, installing pciutils", nil)
	if _, err := d.installer.Run(ctx, "apt-get", "install", "-y", "pciutils"); err != nil {
		return fmt.Errorf("failed to install pciutils: %w", err)
	}
	return nil
}

// Detect inspects the PCI bus for NVIDIA display hardware. With skip set
// it performs no PCI query at all and assumes a GPU of unknown class is
// present, so installation proceeds without hardware confirmation.
func (d *GPUDetector) Detect(ctx context.Context, skip bool) (GPUDetection, error) {
	if skip {
		d.logger.Info("detect.gpu.skipped", "GPU detection skipped by request", nil)
		return GPUDetection{Present: true, Class: hostenv.GPUUnknown}, nil
	}

	d.logger.Info("detect.gpu.start", "Starting GPU detection", nil)

	result, err := d.runner.Run(ctx, "lspci", "-nn")
	if err != nil {
		return GPUDetection{}, fmt.Errorf("pci bus enumeration failed: %w", err)
	}

	detection := classifyPCIListing(result.Stdout)

	d.logger.Info("detect.gpu.done", "GPU detection finished", map[string]interface{}{
		"present": detection.Present,
		"class":   string(detection.Class),
	})

	return detection, nil
}

// classifyPCIListing applies the consumer-vs-professional partition: any
// NVIDIA display line containing "geforce" means a Desktop GPU, any other
// NVIDIA display line means a Server GPU.
func classifyPCIListing(listing string) GPUDetection {
	foundServer := false

	for _, line := range strings.Split(listing, "\n") {
		lower := strings.ToLower(line)

		if !isDisplayControllerLine(lower) {
			continue
		}
		if !strings.Contains(lower, "nvidia") {
			continue
		}

		if strings.Contains(lower, "geforce") {
			return GPUDetection{Present: true, Class: hostenv.GPUDesktop}
		}
		foundServer = true
	}

	if foundServer {
		return GPUDetection{Present: true, Class: hostenv.GPUServer}
	}
	return GPUDetection{Present: false, Class: hostenv.GPUUnknown}
}

func isDisplayControllerLine(lower string) bool {
	for _, class := range displayControllerClasses {
		if strings.Contains(lower, class) {
			return true
		}
	}
	return false
}
