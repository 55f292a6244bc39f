package fsutil

import (
	"os"
	"path/filepath"
	"testing"
)

func TestAtomicWriteFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "blacklist.conf")

	if err := AtomicWriteFile(path, []byte("blacklist nvidia\n"), 0o644, nil); err != nil {
		t.Fatalf("AtomicWriteFile() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading written file: %v", err)
	}
	if string(data) != "blacklist nvidia\n" {
		t.Errorf("content = %q, want %q", string(data), "blacklist nvidia\n")
	}

	// No temp file may be left behind
	if FileExists(path + ".tmp") {
		t.Error("temp file left behind after atomic write")
	}
}

func TestAtomicWriteFile_Overwrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "file.conf")

	if err := os.WriteFile(path, []byte("old"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := AtomicWriteFile(path, []byte("new"), 0o644, nil); err != nil {
		t.Fatalf("AtomicWriteFile() error = %v", err)
	}

	data, _ := os.ReadFile(path)
	if string(data) != "new" {
		t.Errorf("content = %q, want %q", string(data), "new")
	}
}

func TestBackupOnce(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nvidia-blacklist.conf")

	if err := os.WriteFile(path, []byte("original"), 0o644); err != nil {
		t.Fatal(err)
	}

	backup, err := BackupOnce(path, nil)
	if err != nil {
		t.Fatalf("BackupOnce() error = %v", err)
	}
	if backup != path+".bak" {
		t.Errorf("backup path = %q, want %q", backup, path+".bak")
	}

	data, err := os.ReadFile(path + ".bak")
	if err != nil {
		t.Fatalf("reading backup: %v", err)
	}
	if string(data) != "original" {
		t.Errorf("backup content = %q, want %q", string(data), "original")
	}
}

func TestBackupOnce_DoesNotOverwriteExistingBackup(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nvidia-blacklist.conf")

	if err := os.WriteFile(path, []byte("first"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := BackupOnce(path, nil); err != nil {
		t.Fatal(err)
	}

	// Mutate the original, back up again: the .bak must keep the first content.
	if err := os.WriteFile(path, []byte("second"), 0o644); err != nil {
		t.Fatal(err)
	}
	backup, err := BackupOnce(path, nil)
	if err != nil {
		t.Fatalf("BackupOnce() second call error = %v", err)
	}
	if backup != "" {
		t.Errorf("second BackupOnce returned %q, want empty (no new backup)", backup)
	}

	data, _ := os.ReadFile(path + ".bak")
	if string(data) != "first" {
		t.Errorf("backup content = %q, want %q", string(data), "first")
	}
}

func TestBackupOnce_MissingOriginal(t *testing.T) {
	dir := t.TempDir()

	if _, err := BackupOnce(filepath.Join(dir, "missing.conf"), nil); err == nil {
		t.Error("BackupOnce() on missing file should error")
	}
}

func TestFileExists(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "f")

	if FileExists(path) {
		t.Error("FileExists() = true for missing file")
	}
	if err := os.WriteFile(path, []byte("x"), 0o600); err != nil {
		t.Fatal(err)
	}
	if !FileExists(path) {
		t.Error("FileExists() = false for existing file")
	}
	if FileExists(dir) {
		t.Error("FileExists() = true for directory")
	}
}
