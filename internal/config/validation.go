package config

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	driverBranchPattern   = regexp.MustCompile(`^[0-9]{3}$`)
	toolkitVersionPattern = regexp.MustCompile(`^[0-9]+\.[0-9]+\.[0-9]+-[0-9]+$`)
)

// Validate checks if the configuration is valid
func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	errors = append(errors, c.validateDriverBranch()...)
	errors = append(errors, c.validateToolkitVersion()...)
	errors = append(errors, c.validateSmokeImages()...)
	errors = append(errors, c.validateLogging()...)

	return errors
}

func (c *Config) validateDriverBranch() []ValidationError {
	if driverBranchPattern.MatchString(c.DriverBranch) {
		return nil
	}

	return []ValidationError{{
		Path:    "driver_branch",
		Message: fmt.Sprintf("must be a three-digit release branch like '535', got '%s'", c.DriverBranch),
	}}
}

func (c *Config) validateToolkitVersion() []ValidationError {
	if toolkitVersionPattern.MatchString(c.ToolkitVersion) {
		return nil
	}

	return []ValidationError{{
		Path:    "toolkit_version",
		Message: fmt.Sprintf("must look like '1.17.8-1', got '%s'", c.ToolkitVersion),
	}}
}

func (c *Config) validateSmokeImages() []ValidationError {
	var errors []ValidationError

	for i, image := range c.SmokeTestImages {
		if strings.TrimSpace(image) == "" {
			errors = append(errors, ValidationError{
				Path:    fmt.Sprintf("smoke_test_images[%d]", i),
				Message: "must not be empty",
			})
		}
	}

	return errors
}

func (c *Config) validateLogging() []ValidationError {
	validLevels := []string{"debug", "info", "warn", "error"}
	for _, level := range validLevels {
		if c.Logging.Level == level {
			return nil
		}
	}

	return []ValidationError{{
		Path:    "logging.level",
		Message: fmt.Sprintf("must be one of %v, got '%s'", validLevels, c.Logging.Level),
	}}
}

func formatValidationErrors(errors []ValidationError) string {
	messages := make([]string, 0, len(errors))
	for _, err := range errors {
		messages = append(messages, err.Error())
	}
	return strings.Join(messages, "; ")
}
