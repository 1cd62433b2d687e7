package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"sift-go/internal/app"
	"sift-go/internal/encryption"
	"sift-go/internal/sift"
)

// readPassphrase prompts on the terminal without echo.
func readPassphrase(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	b, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("reading passphrase: %w", err)
	}
	return string(b), nil
}

// keys command
var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Manage backup encryption keys",
}

var keysInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Generate the key pair used to encrypt backups",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := loadConfig()
		if err != nil {
			return err
		}
		enc, err := encryption.NewEncryptorFromConfig(cfg.Encryption)
		if err != nil {
			return err
		}

		pass, err := readPassphrase("Passphrase: ")
		if err != nil {
			return err
		}
		confirm, err := readPassphrase("Repeat passphrase: ")
		if err != nil {
			return err
		}
		if pass != confirm {
			return errors.New("passphrases do not match")
		}

		if err := enc.Setup(pass); err != nil {
			return err
		}
		fmt.Printf("Keys written to %s and %s\n", cfg.Encryption.PublicKeyPath, cfg.Encryption.PrivateKeyPath)
		return nil
	},
}

// backup command
var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Inspect and restore pre-move backups",
}

var backupListCmd = &cobra.Command{
	Use:   "list [PREFIX]",
	Short: "List backups, optionally under a prefix such as a date",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		prefix := ""
		if len(args) == 1 {
			prefix = args[0]
		}
		return withApp(cmd, "ListBackups", func(ctx context.Context, a *app.App) error {
			keys, err := a.ListBackups(ctx, prefix)
			if err != nil {
				return err
			}
			if len(keys) == 0 {
				fmt.Println("No backups.")
			}
			for _, k := range keys {
				fmt.Println(k)
			}
			return nil
		})
	},
}

var backupRestoreCmd = &cobra.Command{
	Use:   "restore KEY DEST",
	Short: "Restore a backup to DEST",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, dest := args[0], args[1]
		var pass string
		if strings.HasSuffix(key, sift.EncryptedSuffix) {
			p, err := readPassphrase("Passphrase: ")
			if err != nil {
				return err
			}
			pass = p
		}
		return withApp(cmd, "RestoreBackup", func(ctx context.Context, a *app.App) error {
			if err := a.RestoreBackup(ctx, key, dest, pass); err != nil {
				return err
			}
			fmt.Printf("Restored %s to %s\n", key, dest)
			return nil
		})
	},
}

// db command
var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "Database maintenance",
}

var dbStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the database schema version",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, "DBStatus", func(_ context.Context, a *app.App) error {
			v, err := a.SchemaVersion()
			if err != nil {
				return err
			}
			fmt.Printf("Schema version: %d\n", v)
			return nil
		})
	},
}

var dbSnapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Copy the database into the backup vault",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, "DBSnapshot", func(ctx context.Context, a *app.App) error {
			key, err := a.SnapshotDatabase(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("Snapshot stored as %s\n", key)
			return nil
		})
	},
}

// doctor command
var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check the database, backup vault, keys and folders",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, "Doctor", func(ctx context.Context, a *app.App) error {
			failed := 0
			for _, c := range a.Doctor(ctx) {
				mark := "ok  "
				if !c.OK {
					mark = "FAIL"
					failed++
				}
				fmt.Printf("[%s] %-24s %s\n", mark, c.Name, c.Detail)
			}
			if failed > 0 {
				return fmt.Errorf("%d check(s) failed", failed)
			}
			return nil
		})
	},
}

func init() {
	keysCmd.AddCommand(keysInitCmd)
	rootCmd.AddCommand(keysCmd)

	backupCmd.AddCommand(backupListCmd)
	backupCmd.AddCommand(backupRestoreCmd)
	rootCmd.AddCommand(backupCmd)

	dbCmd.AddCommand(dbStatusCmd)
	dbCmd.AddCommand(dbSnapshotCmd)
	rootCmd.AddCommand(dbCmd)

	rootCmd.AddCommand(doctorCmd)
}
