package vault

import (
	"fmt"
	"path"
	"strings"
)

// validateKey rejects keys that could escape the vault root.
func validateKey(key string) error {
	if key == "" {
		return fmt.Errorf("empty key")
	}
	if strings.HasPrefix(key, "/") || strings.Contains(key, `\`) {
		return fmt.Errorf("invalid key %q", key)
	}
	if path.Clean(key) != key || key == ".." || strings.HasPrefix(key, "../") {
		return fmt.Errorf("invalid key %q", key)
	}
	return nil
}
