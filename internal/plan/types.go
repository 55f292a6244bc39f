package plan

import "nvsetup/internal/detect"

// RepoSpec describes one APT repository registration: a GPG key import
// plus a source list entry, both world-readable system files.
type RepoSpec struct {
	// Name identifies the repository in step output and log events.
	Name string
	// KeyURL is the ASCII-armored GPG key to import.
	KeyURL string
	// KeyringPath is where the dearmored key lands (signed-by target).
	KeyringPath string
	// ListURL, when set, is a downloadable source list that gets a
	// signed-by rewrite before installation.
	ListURL string
	// ListContent, when set, is written verbatim instead of downloading.
	ListContent string
	// ListPath is the destination under /etc/apt/sources.list.d/.
	ListPath string
}

// PackagePin is a package name locked to an exact version. The toolkit
// set always installs all pins at one identical version string.
type PackagePin struct {
	Name    string
	Version string
}

// Argument renders the apt install argument "name=version".
func (p PackagePin) Argument() string {
	return p.Name + "=" + p.Version
}

// PurgeSpec is one best-effort removal pass of the escalating driver
// purge sequence. Passes overlap deliberately: driver package naming has
// shifted across generations and a miss in one pass is caught by the
// next. A failed pass is treated as "nothing matched" and never aborts
// the sequence.
type PurgeSpec struct {
	// Pattern is passed to apt-get purge; regex-anchored patterns rely
	// on apt's native regex matching.
	Pattern string
	// Description names the pass in step output.
	Description string
}

// ActionPlan is the deterministic product of planning: everything the
// executor applies, derived once from the host profile and run config,
// never mutated afterward.
type ActionPlan struct {
	DriverPackage       string
	ToolkitVersion      string
	ToolkitPackages     []PackagePin
	DriverRepos         []RepoSpec
	ToolkitRepos        []RepoSpec
	PurgePasses         []PurgeSpec
	KernelModules       []string
	Runtimes            detect.RuntimeSet
	ExperimentalEnabled bool
}
