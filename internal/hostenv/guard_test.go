package hostenv

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"nvsetup/internal/logging"
	"nvsetup/internal/sysexec"
)

type fakeRunner struct {
	// keyed by command name + first arg
	failures map[string]bool
	calls    []string
}

func (f *fakeRunner) Run(_ context.Context, name string, args ...string) (sysexec.Result, error) {
	key := name
	if len(args) > 0 {
		key = name + " " + args[0]
	}
	f.calls = append(f.calls, key)
	if f.failures[key] {
		return sysexec.Result{ExitCode: 1}, errors.New(key + " failed")
	}
	return sysexec.Result{}, nil
}

func (f *fakeRunner) LookPath(name string) (string, error) {
	return "/usr/bin/" + name, nil
}

func newTestGuard(t *testing.T, osRelease string, euid int) *Guard {
	t.Helper()

	g := NewGuard(&fakeRunner{}, logging.NewLogger(logging.LevelError))
	g.geteuid = func() int { return euid }

	if osRelease != "" {
		path := filepath.Join(t.TempDir(), "os-release")
		if err := os.WriteFile(path, []byte(osRelease), 0o600); err != nil {
			t.Fatal(err)
		}
		g.osReleasePath = path
	} else {
		g.osReleasePath = filepath.Join(t.TempDir(), "missing")
	}

	return g
}

func TestCheckOS_Ubuntu(t *testing.T) {
	content := `NAME="Ubuntu"
ID=ubuntu
VERSION_ID="22.04"
PRETTY_NAME="Ubuntu 22.04.4 LTS"
`
	g := newTestGuard(t, content, 0)

	family, distID, err := g.CheckOS()
	if err != nil {
		t.Fatalf("CheckOS() error = %v", err)
	}
	if family != OSUbuntu {
		t.Errorf("family = %v, want %v", family, OSUbuntu)
	}
	if distID != "ubuntu2204" {
		t.Errorf("distID = %q, want %q", distID, "ubuntu2204")
	}
}

func TestCheckOS_NonUbuntu(t *testing.T) {
	content := `ID=debian
VERSION_ID="12"
`
	g := newTestGuard(t, content, 0)

	_, _, err := g.CheckOS()
	if !errors.Is(err, ErrUnsupportedOS) {
		t.Errorf("CheckOS() error = %v, want ErrUnsupportedOS", err)
	}
}

func TestCheckOS_MissingFile(t *testing.T) {
	g := newTestGuard(t, "", 0)

	_, _, err := g.CheckOS()
	if !errors.Is(err, ErrUnsupportedOS) {
		t.Errorf("CheckOS() error = %v, want ErrUnsupportedOS", err)
	}
}

func TestValidateUser(t *testing.T) {
	tests := []struct {
		name        string
		euid        int
		requireRoot bool
		wantErr     error
	}{
		{"root required and is root", 0, true, nil},
		{"root required but not root", 1000, true, ErrRootRequired},
		{"root forbidden and not root", 1000, false, nil},
		{"root forbidden but is root", 0, false, ErrRootForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := newTestGuard(t, "ID=ubuntu\n", tt.euid)
			err := g.ValidateUser(tt.requireRoot)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateUser(%v) error = %v, want %v", tt.requireRoot, err, tt.wantErr)
			}
		})
	}
}

func TestEnsureSudo_RootShortCircuits(t *testing.T) {
	g := newTestGuard(t, "ID=ubuntu\n", 0)

	err := g.EnsureSudo(context.Background(), func(string) bool {
		t.Fatal("confirm should not be called for root")
		return false
	})
	if err != nil {
		t.Errorf("EnsureSudo() error = %v", err)
	}
}

func TestEnsureSudo_CachedCredential(t *testing.T) {
	g := newTestGuard(t, "ID=ubuntu\n", 1000)

	err := g.EnsureSudo(context.Background(), func(string) bool {
		t.Fatal("confirm should not be called when credential is cached")
		return false
	})
	if err != nil {
		t.Errorf("EnsureSudo() error = %v", err)
	}
}

func TestEnsureSudo_Declined(t *testing.T) {
	runner := &fakeRunner{failures: map[string]bool{"sudo -n": true}}
	g := NewGuard(runner, logging.NewLogger(logging.LevelError))
	g.geteuid = func() int { return 1000 }

	err := g.EnsureSudo(context.Background(), func(string) bool { return false })
	if !errors.Is(err, ErrPrivilegeDenied) {
		t.Errorf("EnsureSudo() error = %v, want ErrPrivilegeDenied", err)
	}
}

func TestEnsureSudo_AcquiresAfterConfirm(t *testing.T) {
	runner := &fakeRunner{failures: map[string]bool{"sudo -n": true}}
	g := NewGuard(runner, logging.NewLogger(logging.LevelError))
	g.geteuid = func() int { return 1000 }

	acquired := false
	g.acquireSudo = func(context.Context) error {
		acquired = true
		return nil
	}

	err := g.EnsureSudo(context.Background(), func(string) bool { return true })
	if err != nil {
		t.Fatalf("EnsureSudo() error = %v", err)
	}
	if !acquired {
		t.Error("sudo acquisition should run after confirmation")
	}
}

func TestEnsureSudo_AcquisitionFails(t *testing.T) {
	runner := &fakeRunner{failures: map[string]bool{"sudo -n": true}}
	g := NewGuard(runner, logging.NewLogger(logging.LevelError))
	g.geteuid = func() int { return 1000 }
	g.acquireSudo = func(context.Context) error { return errors.New("sudo: 3 incorrect password attempts") }

	err := g.EnsureSudo(context.Background(), func(string) bool { return true })
	if !errors.Is(err, ErrPrivilegeDenied) {
		t.Errorf("EnsureSudo() error = %v, want ErrPrivilegeDenied", err)
	}
}

func TestParseOSRelease(t *testing.T) {
	tests := []struct {
		name        string
		content     string
		wantID      string
		wantVersion string
	}{
		{"quoted values", "ID=\"ubuntu\"\nVERSION_ID=\"24.04\"\n", "ubuntu", "24.04"},
		{"unquoted id", "ID=ubuntu\nVERSION_ID=\"22.04\"\n", "ubuntu", "22.04"},
		{"uppercase id normalized", "ID=Ubuntu\n", "ubuntu", ""},
		{"empty", "", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, version := parseOSRelease(tt.content)
			if id != tt.wantID || version != tt.wantVersion {
				t.Errorf("parseOSRelease() = (%q, %q), want (%q, %q)", id, version, tt.wantID, tt.wantVersion)
			}
		})
	}
}
