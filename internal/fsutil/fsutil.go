package fsutil

import (
	"fmt"
	"io"
	"os"

	"nvsetup/internal/logging"
)

const (
	// DefaultDirPermissions is the default permission for created directories
	DefaultDirPermissions = 0o750
	// DefaultFilePermissions is the default permission for state files
	DefaultFilePermissions = 0o600
	// SystemFilePermissions is the permission for world-readable system config files
	SystemFilePermissions = 0o644
)

// FileExists reports whether path exists and is a regular file.
func FileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// AtomicWriteFile writes data to a file atomically by first writing to a temp file
// and then renaming it to the target path. This ensures the file is never partially written.
func AtomicWriteFile(path string, data []byte, perm os.FileMode, logger *logging.Logger) error {
	tmpPath := path + ".tmp"

	if err := os.WriteFile(tmpPath, data, perm); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		// Try to clean up temp file on failure
		if removeErr := os.Remove(tmpPath); removeErr != nil && !os.IsNotExist(removeErr) {
			if logger != nil {
				logger.Warn("fsutil.cleanup_failed", "Failed to remove temp file", map[string]interface{}{
					"path":  tmpPath,
					"error": removeErr.Error(),
				})
			}
		}
		return fmt.Errorf("failed to rename file: %w", err)
	}

	return nil
}

// BackupOnce copies path to path+".bak" unless the backup already exists.
// Repeated edits of the same file keep the original content, not the
// intermediate states. Returns the backup path when a copy was made.
func BackupOnce(path string, logger *logging.Logger) (string, error) {
	backupPath := path + ".bak"

	if FileExists(backupPath) {
		return "", nil
	}

	src, err := os.Open(path) // #nosec G304 -- path is a fixed system config location
	if err != nil {
		return "", fmt.Errorf("failed to open original for backup: %w", err)
	}
	defer CloseWithError(src.Close, logger, "backup source")

	info, err := src.Stat()
	if err != nil {
		return "", fmt.Errorf("failed to stat original: %w", err)
	}

	dst, err := os.OpenFile(backupPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, info.Mode().Perm()) // #nosec G304
	if err != nil {
		return "", fmt.Errorf("failed to create backup file: %w", err)
	}

	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return "", fmt.Errorf("failed to copy backup content: %w", err)
	}

	if err := dst.Close(); err != nil {
		return "", fmt.Errorf("failed to close backup file: %w", err)
	}

	if logger != nil {
		logger.Info("fsutil.backup_created", "Backup file created", map[string]interface{}{
			"original": path,
			"backup":   backupPath,
		})
	}

	return backupPath, nil
}

// CloseWithError closes a resource and logs any error if a logger is provided.
// This is useful for defer statements where close errors should be handled.
func CloseWithError(closer func() error, logger *logging.Logger, resource string) {
	if err := closer(); err != nil {
		if logger != nil {
			logger.Warn("fsutil.close_failed", fmt.Sprintf("Failed to close %s", resource), map[string]interface{}{
				"error": err.Error(),
			})
		}
	}
}
