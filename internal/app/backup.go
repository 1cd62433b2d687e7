package app

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
)

// ListBackups returns the vault keys under prefix, sorted.
func (a *App) ListBackups(ctx context.Context, prefix string) ([]string, error) {
	keys, err := a.vault.List(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("listing backups: %w", err)
	}
	sort.Strings(keys)
	return keys, nil
}

// RestoreBackup writes the backup stored under key to dest. The passphrase
// unlocks the private key and is only needed for encrypted backups.
func (a *App) RestoreBackup(ctx context.Context, key, dest, passphrase string) error {
	if passphrase == "" {
		return a.backups.Restore(ctx, key, dest, nil)
	}
	unlocked, err := a.encryptor.Unlock(passphrase)
	if err != nil {
		return fmt.Errorf("unlocking private key: %w", err)
	}
	if err := a.backups.Restore(ctx, key, dest, unlocked); err != nil {
		return err
	}
	a.logger.Info("backup restored", "key", key, "dest", dest)
	return nil
}

// SnapshotDatabase copies the database into the backup vault and returns the
// key it was stored under.
func (a *App) SnapshotDatabase(ctx context.Context) (string, error) {
	dir, err := os.MkdirTemp("", "sift-db-snapshot-*")
	if err != nil {
		return "", fmt.Errorf("creating temp dir for snapshot: %w", err)
	}
	defer os.RemoveAll(dir)
	tmpPath := filepath.Join(dir, "sift.db")

	if err := a.db.BackupTo(tmpPath); err != nil {
		return "", fmt.Errorf("snapshotting database: %w", err)
	}

	f, err := os.Open(tmpPath)
	if err != nil {
		return "", fmt.Errorf("opening snapshot: %w", err)
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return "", fmt.Errorf("stat snapshot: %w", err)
	}

	key := path.Join("db", a.clock.Now().UTC().Format("20060102T150405Z")+".db")
	if err := a.vault.Put(ctx, key, f, info.Size()); err != nil {
		return "", fmt.Errorf("uploading snapshot: %w", err)
	}
	a.logger.Info("database snapshot stored", "key", key, "bytes", info.Size())
	return key, nil
}

// SchemaVersion returns the applied migration version of the database.
func (a *App) SchemaVersion() (uint, error) { return a.db.SchemaVersion() }
