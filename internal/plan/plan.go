package plan

import (
	"fmt"

	"nvsetup/internal/config"
	"nvsetup/internal/detect"
	"nvsetup/internal/hostenv"
)

const (
	cudaRepoBase    = "https://developer.download.nvidia.com/compute/cuda/repos"
	toolkitRepoBase = "https://nvidia.github.io/libnvidia-container"

	cudaKeyringPath    = "/usr/share/keyrings/cuda-archive-keyring.gpg"
	toolkitKeyringPath = "/usr/share/keyrings/nvidia-container-toolkit-keyring.gpg"

	// ToolkitListPath is the toolkit repository source list location.
	ToolkitListPath = "/etc/apt/sources.list.d/nvidia-container-toolkit.list"
	// ToolkitExperimentalListPath holds the experimental repository entry.
	ToolkitExperimentalListPath = "/etc/apt/sources.list.d/nvidia-container-toolkit-experimental.list"
)

// toolkitPackageNames are the four interdependent toolkit packages. They
// are always pinned to one identical version: installing a subset or
// mixing versions produces the partial-version skew the pin exists to
// prevent.
var toolkitPackageNames = []string{
	"nvidia-container-toolkit",
	"nvidia-container-toolkit-base",
	"libnvidia-container-tools",
	"libnvidia-container1",
}

// kernelModuleUnloadOrder lists the NVIDIA kernel modules dependents
// first: nvidia must unload last.
var kernelModuleUnloadOrder = []string{
	"nvidia_drm",
	"nvidia_modeset",
	"nvidia_uvm",
	"nvidia",
}

// purgePasses is the fixed escalating removal sequence for driver
// uninstallation.
var purgePasses = []PurgeSpec{
	{Pattern: "nvidia-driver*", Description: "explicit driver packages"},
	{Pattern: "nvidia*", Description: "all nvidia-prefixed packages"},
	{Pattern: "^nvidia-.*", Description: "regex-anchored nvidia packages"},
	{Pattern: "^libnvidia-.*", Description: "regex-anchored nvidia libraries"},
	{Pattern: "^cuda-.*", Description: "regex-anchored cuda packages"},
	{Pattern: "*nvidia*", Description: "final wildcard sweep"},
}

// Build derives the complete action plan. Pure: all I/O-derived inputs
// (profile, runtime presence) are computed by the detector beforehand.
func Build(profile hostenv.HostProfile, rc config.RunConfig, runtimes detect.RuntimeSet) ActionPlan {
	pins := make([]PackagePin, 0, len(toolkitPackageNames))
	for _, name := range toolkitPackageNames {
		pins = append(pins, PackagePin{Name: name, Version: rc.ToolkitVersion})
	}

	return ActionPlan{
		DriverPackage:       driverPackage(profile.GPUClass, rc.DriverBranch),
		ToolkitVersion:      rc.ToolkitVersion,
		ToolkitPackages:     pins,
		DriverRepos:         driverRepos(profile.DistributionID),
		ToolkitRepos:        toolkitRepos(rc.Experimental),
		PurgePasses:         append([]PurgeSpec(nil), purgePasses...),
		KernelModules:       append([]string(nil), kernelModuleUnloadOrder...),
		Runtimes:            runtimes,
		ExperimentalEnabled: rc.Experimental,
	}
}

// driverPackage selects the driver flavor: professional and datacenter
// GPUs get the -server variant, everything else the desktop build.
func driverPackage(class hostenv.GPUClass, branch string) string {
	if class == hostenv.GPUServer {
		return fmt.Sprintf("nvidia-driver-%s-server", branch)
	}
	return fmt.Sprintf("nvidia-driver-%s", branch)
}

func driverRepos(distributionID string) []RepoSpec {
	repoURL := fmt.Sprintf("%s/%s/x86_64", cudaRepoBase, distributionID)

	return []RepoSpec{{
		Name:        "cuda-" + distributionID,
		KeyURL:      repoURL + "/3bf863cc.pub",
		KeyringPath: cudaKeyringPath,
		ListContent: fmt.Sprintf("deb [signed-by=%s] %s/ /\n", cudaKeyringPath, repoURL),
		ListPath:    fmt.Sprintf("/etc/apt/sources.list.d/cuda-%s-x86_64.list", distributionID),
	}}
}

func toolkitRepos(experimental bool) []RepoSpec {
	repos := []RepoSpec{{
		Name:        "nvidia-container-toolkit",
		KeyURL:      toolkitRepoBase + "/gpgkey",
		KeyringPath: toolkitKeyringPath,
		ListURL:     toolkitRepoBase + "/stable/deb/nvidia-container-toolkit.list",
		ListPath:    ToolkitListPath,
	}}

	if experimental {
		repos = append(repos, RepoSpec{
			Name:        "nvidia-container-toolkit-experimental",
			KeyURL:      toolkitRepoBase + "/gpgkey",
			KeyringPath: toolkitKeyringPath,
			ListURL:     toolkitRepoBase + "/experimental/deb/nvidia-container-toolkit.list",
			ListPath:    ToolkitExperimentalListPath,
		})
	}

	return repos
}
