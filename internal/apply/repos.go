package apply

import (
	"context"
	"fmt"
	"os"
	"strings"

	"nvsetup/internal/plan"
)

// registerRepo imports the repository key into its keyring and installs
// the source list entry. Any failure here is fatal for the flow: without
// the repository the core install cannot succeed.
func (b *Builder) registerRepo(ctx context.Context, repo plan.RepoSpec) error {
	if err := b.importKey(ctx, repo); err != nil {
		return err
	}
	return b.installList(ctx, repo)
}

func (b *Builder) importKey(ctx context.Context, repo plan.RepoSpec) error {
	keyFile, err := os.CreateTemp("", "nvsetup-key-*.pub")
	if err != nil {
		return fmt.Errorf("failed to create temp key file: %w", err)
	}
	keyPath := keyFile.Name()
	keyFile.Close()
	defer os.Remove(keyPath)

	if _, err := b.runner.Run(ctx, "curl", "-fsSL", repo.KeyURL, "-o", keyPath); err != nil {
		return fmt.Errorf("key download for %s failed: %w", repo.Name, err)
	}

	if _, err := b.runner.Run(ctx, "gpg", "--dearmor", "--yes", "-o", repo.KeyringPath, keyPath); err != nil {
		return fmt.Errorf("key import for %s failed: %w", repo.Name, err)
	}

	b.logger.Info("apply.repo.key_imported", "Repository key imported", map[string]interface{}{
		"repo":    repo.Name,
		"keyring": repo.KeyringPath,
	})

	return nil
}

func (b *Builder) installList(ctx context.Context, repo plan.RepoSpec) error {
	content := repo.ListContent

	if content == "" {
		result, err := b.runner.Run(ctx, "curl", "-fsSL", repo.ListURL)
		if err != nil {
			return fmt.Errorf("list download for %s failed: %w", repo.Name, err)
		}
		// Upstream lists ship unsigned deb lines; rewrite them to pin the
		// imported keyring.
		content = strings.ReplaceAll(result.Stdout,
			"deb https://", fmt.Sprintf("deb [signed-by=%s] https://", repo.KeyringPath))
	}

	// Stage the list in a user-writable temp file, then copy it into
	// place through the runner so sudo-escalated flows can write under
	// /etc/apt as well.
	listFile, err := os.CreateTemp("", "nvsetup-list-*")
	if err != nil {
		return fmt.Errorf("failed to create temp list file: %w", err)
	}
	listPath := listFile.Name()
	defer os.Remove(listPath)

	if _, err := listFile.WriteString(content); err != nil {
		listFile.Close()
		return fmt.Errorf("failed to stage source list: %w", err)
	}
	if err := listFile.Close(); err != nil {
		return fmt.Errorf("failed to stage source list: %w", err)
	}

	if _, err := b.runner.Run(ctx, "install", "-m", "0644", listPath, repo.ListPath); err != nil {
		return fmt.Errorf("source list write for %s failed: %w", repo.Name, err)
	}

	b.logger.Info("apply.repo.registered", "Repository registered", map[string]interface{}{
		"repo": repo.Name,
		"list": repo.ListPath,
	})

	return nil
}
