package config

// Config represents the complete nvsetup configuration
type Config struct {
	DriverBranch    string        `yaml:"driver_branch"`
	ToolkitVersion  string        `yaml:"toolkit_version"`
	Experimental    bool          `yaml:"experimental"`
	SmokeTestImages []string      `yaml:"smoke_test_images"`
	Logging         LoggingConfig `yaml:"logging"`
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// RunConfig is the immutable per-invocation configuration: file-backed
// defaults overlaid with CLI flags, built once in main and threaded
// explicitly through the flow. Interactive overrides (the "continue
// anyway" pass) produce a new value via With* helpers instead of
// mutating shared state.
type RunConfig struct {
	UI             bool
	AssumeYes      bool
	SkipGPUCheck   bool
	Experimental   bool
	DriverBranch   string
	ToolkitVersion string
	SmokeImages    []string
	LogLevel       string
}

// NewRunConfig builds a RunConfig from a loaded Config.
func NewRunConfig(cfg Config) RunConfig {
	return RunConfig{
		Experimental:   cfg.Experimental,
		DriverBranch:   cfg.DriverBranch,
		ToolkitVersion: cfg.ToolkitVersion,
		SmokeImages:    append([]string(nil), cfg.SmokeTestImages...),
		LogLevel:       cfg.Logging.Level,
	}
}

// WithExperimental returns a copy with the experimental repository enabled.
func (rc RunConfig) WithExperimental() RunConfig {
	rc.Experimental = true
	return rc
}

// WithSkipGPUCheck returns a copy with hardware detection bypassed.
func (rc RunConfig) WithSkipGPUCheck() RunConfig {
	rc.SkipGPUCheck = true
	return rc
}

// ValidationError represents a configuration validation error
type ValidationError struct {
	Path    string
	Message string
}

func (e ValidationError) Error() string {
	return e.Path + ": " + e.Message
}
