package app

import (
	"context"
	"fmt"
	"os"
)

// Check is the result of one doctor probe.
type Check struct {
	Name   string
	OK     bool
	Detail string
}

// Doctor probes the database, the backup vault, the encryption keys and every
// configured path, and reports each finding. It never stops at the first failure.
func (a *App) Doctor(ctx context.Context) []Check {
	var checks []Check
	add := func(name string, err error, okDetail string) {
		c := Check{Name: name, OK: err == nil, Detail: okDetail}
		if err != nil {
			c.Detail = err.Error()
		}
		checks = append(checks, c)
	}

	version, err := a.db.SchemaVersion()
	add("database schema", err, fmt.Sprintf("version %d", version))

	add("backup vault", a.vault.ValidateSetup(ctx), a.cfg.Backup.Type)

	if a.cfg.Backup.Encrypt {
		var err error
		if !a.encryptor.IsConfigured() {
			err = fmt.Errorf("no keys at %s: run 'sift keys init'", a.cfg.Encryption.PublicKeyPath)
		}
		add("encryption keys", err, a.cfg.Encryption.PublicKeyPath)
	}

	cats, err := a.db.ListCategories()
	switch {
	case err != nil:
		add("categories", err, "")
	case len(cats) == 0:
		add("categories", fmt.Errorf("none defined: every file will be kept in place"), "")
	default:
		add("categories", nil, fmt.Sprintf("%d defined", len(cats)))
	}

	folders, err := a.db.ListFolders()
	if err != nil {
		add("watched folders", err, "")
	}
	for _, f := range folders {
		add("folder "+f.Name, dirExists(f.SourcePath), fmt.Sprintf("%s (%s)", f.SourcePath, f.Status))
	}

	return checks
}

func dirExists(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", path)
	}
	return nil
}
