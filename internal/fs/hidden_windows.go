package fs

import (
	"io/fs"
	"syscall"
)

func hasHiddenFlag(info fs.FileInfo) bool {
	attrs, ok := info.Sys().(*syscall.Win32FileAttributeData)
	return ok && attrs.FileAttributes&syscall.FILE_ATTRIBUTE_HIDDEN != 0
}
