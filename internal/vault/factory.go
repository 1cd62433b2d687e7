package vault

import (
	"context"
	"fmt"
	"os"

	"sift-go/internal/config"
	"sift-go/internal/sift"
)

// NewVaultFromConfig creates the backup Vault named by cfg.Type.
func NewVaultFromConfig(ctx context.Context, cfg config.BackupConfig) (sift.Vault, error) {
	switch cfg.Type {
	case "memory":
		return NewMemoryVault("memory"), nil
	case "s3":
		opts := S3Options{
			Bucket:   cfg.S3Bucket,
			Prefix:   cfg.S3Prefix,
			Region:   cfg.S3Region,
			Endpoint: cfg.S3Endpoint,
		}
		if cfg.S3AccessKeyEnv != "" {
			opts.AccessKey = os.Getenv(cfg.S3AccessKeyEnv)
			opts.SecretKey = os.Getenv(cfg.S3SecretKeyEnv)
			if opts.AccessKey == "" || opts.SecretKey == "" {
				return nil, fmt.Errorf("s3 credentials: %s and %s must be set", cfg.S3AccessKeyEnv, cfg.S3SecretKeyEnv)
			}
		}
		return NewS3Vault(ctx, opts)
	case "filesystem":
		if cfg.FSRoot == "" {
			return nil, fmt.Errorf("filesystem backup vault requires fs_root to be set")
		}
		return NewFileSystemVault("filesystem", cfg.FSRoot)
	default:
		return nil, fmt.Errorf("unknown backup vault type: %s", cfg.Type)
	}
}
