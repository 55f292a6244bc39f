package config

// DefaultDriverBranch is the pinned NVIDIA driver release branch.
const DefaultDriverBranch = "535"

// DefaultToolkitVersion is the pinned NVIDIA Container Toolkit version.
// All four toolkit packages are installed at exactly this version.
const DefaultToolkitVersion = "1.17.8-1"

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() Config {
	return Config{
		DriverBranch:   DefaultDriverBranch,
		ToolkitVersion: DefaultToolkitVersion,
		Experimental:   false,
		SmokeTestImages: []string{
			"ubuntu:24.04",
			"ubuntu:22.04",
			"nvidia/cuda:12.4.1-base-ubuntu22.04",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}
