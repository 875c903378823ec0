package pathsync

import (
	"fmt"
	"os"
)

// RemoveFile removes a single destination file (or symlink) that conflicts
// with a planned directory synchronization.
func RemoveFile(path string) error {
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("failed to remove the file %q: %w", path, err)
	}
	return nil
}

// RemoveDirectory recursively removes a destination directory that conflicts
// with a planned file copy.
func RemoveDirectory(path string) error {
	if err := os.RemoveAll(path); err != nil {
		return fmt.Errorf("failed to remove the directory %q: %w", path, err)
	}
	return nil
}
