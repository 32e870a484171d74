package toolset

import (
	"fmt"
	"io/fs"
	"os"
)

// renameIfAbsent is the check-then-rename fallback for platforms and
// filesystems without an atomic no-replace rename.
func renameIfAbsent(oldpath, newpath string) error {
	_, err := os.Lstat(newpath)
	if err == nil {
		return fmt.Errorf("%s: %w", newpath, fs.ErrExist)
	}

	return os.Rename(oldpath, newpath)
}
