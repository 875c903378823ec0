// Package preflight provides validation checks that run before a
// synchronization begins. The checks are stateless except for the writable
// probe, ensuring the system is in a suitable state for an operation to
// proceed without changing the system's state itself.
package preflight

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// CheckSourceAccessible validates that the source path exists and is a directory.
func CheckSourceAccessible(srcPath string) error {
	srcInfo, err := os.Stat(srcPath)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("source directory %s does not exist", srcPath)
		}
		return fmt.Errorf("cannot stat source directory %s: %w", srcPath, err)
	}

	if !srcInfo.IsDir() {
		return fmt.Errorf("source path %s is not a directory", srcPath)
	}

	return nil
}

// CheckDestinationAccessible performs pre-flight checks to ensure the
// destination base is usable. It provides more user-friendly errors than
// letting the mirroring tool fail mid-run.
//
// The checks include:
//  1. On Windows, verifies that the drive or network share (e.g., "Z:",
//     "\\Server\Share") exists.
//  2. Confirms the destination base exists and is a directory.
//  3. On Unix, verifies the destination does not silently sit on the root
//     filesystem when it looks like external storage, to prevent writing to
//     a "ghost" directory under an unmounted mount point.
func CheckDestinationAccessible(dstPath string) error {
	if err := checkVolumeExists(dstPath); err != nil {
		return err
	}

	info, err := os.Stat(dstPath)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("destination directory %s does not exist", dstPath)
		}
		return fmt.Errorf("cannot access destination path %s: %w", dstPath, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("destination path exists but is not a directory: %s", dstPath)
	}

	return platformValidateMountPoint(dstPath)
}

// CheckDestinationWritable ensures the destination directory is writable by
// performing a create-and-delete probe.
func CheckDestinationWritable(dstPath string) error {
	tempFile := filepath.Join(dstPath, ".syncbak-writetest.tmp")
	f, err := os.Create(tempFile)
	if err != nil {
		return fmt.Errorf("destination directory %s is not writable: %w", dstPath, err)
	}
	f.Close()
	_ = os.Remove(tempFile)
	return nil
}

// CheckPathNesting rejects a destination that lives inside the source tree.
// Mirroring a directory into itself recurses forever.
func CheckPathNesting(srcPath, dstPath string) error {
	absSrc, err := filepath.Abs(srcPath)
	if err != nil {
		return fmt.Errorf("cannot resolve source path %s: %w", srcPath, err)
	}
	absDst, err := filepath.Abs(dstPath)
	if err != nil {
		return fmt.Errorf("cannot resolve destination path %s: %w", dstPath, err)
	}

	rel, err := filepath.Rel(absSrc, absDst)
	if err != nil {
		return nil // Different volumes cannot nest.
	}
	if rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))) {
		return fmt.Errorf("destination %s is nested inside source %s", dstPath, srcPath)
	}
	return nil
}
