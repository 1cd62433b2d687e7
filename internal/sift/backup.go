package sift

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// EncryptedSuffix marks backup keys whose objects are encrypted.
const EncryptedSuffix = ".age"

// BackupService copies files into a vault before they are moved, optionally
// encrypting them. Keys look like YYYY-MM-DD/<sha256>/<filename>.
type BackupService struct {
	vault     Vault
	encryptor Encryptor // nil stores plaintext
	fsmgr     FilesystemManager
	tempDir   string
}

var _ BackupSink = (*BackupService)(nil)

// NewBackupService creates a BackupService. tempDir may be empty to use the OS default.
func NewBackupService(vault Vault, encryptor Encryptor, fsmgr FilesystemManager, tempDir string) *BackupService {
	return &BackupService{vault: vault, encryptor: encryptor, fsmgr: fsmgr, tempDir: tempDir}
}

// Backup stores a copy of path and returns its key.
func (s *BackupService) Backup(ctx context.Context, path string, at time.Time) (string, error) {
	src, err := s.fsmgr.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening %s: %w", path, err)
	}
	defer src.Close()

	tmp, err := os.CreateTemp(s.tempDir, "sift-backup-*")
	if err != nil {
		return "", fmt.Errorf("creating temp file: %w", err)
	}
	defer os.Remove(tmp.Name())
	defer tmp.Close()

	hasher := sha256.New()
	tee := io.TeeReader(src, hasher)
	if s.encryptor != nil {
		if err := s.encryptor.Encrypt(tee, tmp); err != nil {
			return "", fmt.Errorf("encrypting backup: %w", err)
		}
	} else if _, err := io.Copy(tmp, tee); err != nil {
		return "", fmt.Errorf("copying backup: %w", err)
	}

	size, err := tmp.Seek(0, io.SeekCurrent)
	if err != nil {
		return "", fmt.Errorf("sizing backup: %w", err)
	}
	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		return "", fmt.Errorf("rewinding backup: %w", err)
	}

	key := BackupKey(at, hex.EncodeToString(hasher.Sum(nil)), filepath.Base(path), s.encryptor != nil)
	if err := s.vault.Put(ctx, key, tmp, size); err != nil {
		return "", fmt.Errorf("storing backup %s: %w", key, err)
	}
	return key, nil
}

// Restore writes the backup stored under key to dest. dec is required for
// encrypted keys and ignored otherwise.
func (s *BackupService) Restore(ctx context.Context, key, dest string, dec DecryptionContext) error {
	encrypted := strings.HasSuffix(key, EncryptedSuffix)
	if encrypted && dec == nil {
		return fmt.Errorf("backup %s is encrypted: passphrase required", key)
	}

	if err := s.fsmgr.MkdirAll(filepath.Dir(dest)); err != nil {
		return fmt.Errorf("creating %s: %w", filepath.Dir(dest), err)
	}
	out, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("creating %s: %w", dest, err)
	}
	defer out.Close()

	if !encrypted {
		if err := s.vault.Get(ctx, key, out); err != nil {
			return fmt.Errorf("fetching backup %s: %w", key, err)
		}
		return nil
	}

	pr, pw := io.Pipe()
	go func() {
		pw.CloseWithError(s.vault.Get(ctx, key, pw))
	}()
	if err := dec.Decrypt(pr, out); err != nil {
		pr.CloseWithError(err)
		return fmt.Errorf("decrypting backup %s: %w", key, err)
	}
	return nil
}

// BackupKey builds the vault key for a backup taken at the given time.
func BackupKey(at time.Time, checksum, filename string, encrypted bool) string {
	key := fmt.Sprintf("%s/%s/%s", at.Format("2006-01-02"), checksum, filename)
	if encrypted {
		key += EncryptedSuffix
	}
	return key
}
