package fs

import (
	"io/fs"
	"syscall"
)

// ufHidden is UF_HIDDEN from sys/stat.h.
const ufHidden = 0x8000

func hasHiddenFlag(info fs.FileInfo) bool {
	st, ok := info.Sys().(*syscall.Stat_t)
	return ok && st.Flags&ufHidden != 0
}
