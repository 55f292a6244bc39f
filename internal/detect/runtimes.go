package detect

import (
	"nvsetup/internal/logging"
	"nvsetup/internal/sysexec"
)

// RuntimeSet records which container runtimes are present on the host.
// The planner only configures runtimes that actually exist.
type RuntimeSet struct {
	Docker     bool
	Containerd bool
	CRIO       bool
}

// Any reports whether at least one container runtime was found.
func (s RuntimeSet) Any() bool {
	return s.Docker || s.Containerd || s.CRIO
}

// DetectRuntimes presence-checks the Docker, containerd and CRI-O
// binaries on PATH.
func DetectRuntimes(runner sysexec.Runner, logger *logging.Logger) RuntimeSet {
	set := RuntimeSet{
		Docker:     binaryPresent(runner, "docker"),
		Containerd: binaryPresent(runner, "containerd"),
		CRIO:       binaryPresent(runner, "crio"),
	}

	logger.Info("detect.runtimes.done", "Container runtime presence checked", map[string]interface{}{
		"docker":     set.Docker,
		"containerd": set.Containerd,
		"crio":       set.CRIO,
	})

	return set
}

func binaryPresent(runner sysexec.Runner, name string) bool {
	_, err := runner.LookPath(name)
	return err == nil
}
