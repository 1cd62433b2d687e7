//go:build !darwin && !windows

package fs

import "io/fs"

func hasHiddenFlag(fs.FileInfo) bool { return false }
