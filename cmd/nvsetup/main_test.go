package main

import (
	"testing"
)

func TestFlagArgs(t *testing.T) {
	tests := []struct {
		name string
		argv []string
		want []string
	}{
		{name: "no arguments", argv: []string{"nvsetup"}, want: nil},
		{name: "command only", argv: []string{"nvsetup", "install-driver"}, want: nil},
		{name: "command with flags", argv: []string{"nvsetup", "install-driver", "--yes", "--ui"}, want: []string{"--yes", "--ui"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := flagArgs(tt.argv)
			if len(got) != len(tt.want) {
				t.Fatalf("flagArgs(%v) = %v, want %v", tt.argv, got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("flagArgs(%v)[%d] = %q, want %q", tt.argv, i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestBuildRunConfig_NoFlags(t *testing.T) {
	t.Setenv("NVSETUP_CONFIG_DIR", t.TempDir())

	// The menu dispatch passes no flags at all; the config must still
	// build from the file-backed defaults.
	rc, err := buildRunConfig(nil)
	if err != nil {
		t.Fatalf("buildRunConfig(nil) error = %v", err)
	}
	if rc.DriverBranch == "" || rc.ToolkitVersion == "" {
		t.Errorf("defaults missing: %+v", rc)
	}
	if rc.UI || rc.AssumeYes || rc.SkipGPUCheck || rc.Experimental {
		t.Errorf("no flag may be set without arguments: %+v", rc)
	}
}

func TestBuildRunConfig_Flags(t *testing.T) {
	t.Setenv("NVSETUP_CONFIG_DIR", t.TempDir())

	rc, err := buildRunConfig([]string{"--skip-gpu-check", "--experimental", "--ui", "--yes"})
	if err != nil {
		t.Fatalf("buildRunConfig() error = %v", err)
	}
	if !rc.SkipGPUCheck || !rc.Experimental || !rc.UI || !rc.AssumeYes {
		t.Errorf("flags not applied: %+v", rc)
	}
}

func TestBuildRunConfig_UnknownFlag(t *testing.T) {
	t.Setenv("NVSETUP_CONFIG_DIR", t.TempDir())

	if _, err := buildRunConfig([]string{"--bogus"}); err == nil {
		t.Error("unknown flag should be rejected")
	}
}
