//go:build !windows

package preflight

import (
	"fmt"
	"os"
	"strings"

	"golang.org/x/sys/unix"
)

// checkVolumeExists is a no-op on Unix; volume presence is covered by the
// mount point validation instead.
func checkVolumeExists(path string) error {
	return nil
}

// platformValidateMountPoint checks if the path resides on the root filesystem.
// If it does, it assumes the drive is NOT mounted (ghost detection).
func platformValidateMountPoint(path string) error {
	// 1. Allow Home Directory (backups to local user folders are usually intentional)
	homeDir, _ := os.UserHomeDir()
	if homeDir != "" && strings.HasPrefix(path, homeDir) {
		return nil
	}

	// 2. Allow anything outside the common removable-media roots. Only paths
	// that look like external storage are held to the mount requirement.
	if !strings.HasPrefix(path, "/mnt/") && !strings.HasPrefix(path, "/media/") && !strings.HasPrefix(path, "/run/media/") {
		return nil
	}

	// 3. Get the Device ID of the root partition
	rootInfo, err := os.Stat("/")
	if err != nil {
		return fmt.Errorf("failed to stat root: %w", err)
	}
	rootStat, ok := rootInfo.Sys().(*unix.Stat_t)
	if !ok {
		return fmt.Errorf("unsupported platform for unix.Stat_t")
	}

	// 4. Get the Device ID of the destination path
	pathInfo, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("failed to stat destination path: %w", err)
	}
	pathStat, ok := pathInfo.Sys().(*unix.Stat_t)
	if !ok {
		return fmt.Errorf("unsupported platform for unix.Stat_t")
	}

	// If pathDev == rootDev, we are writing to the system partition (ghost).
	if pathStat.Dev == rootStat.Dev {
		return fmt.Errorf("path '%s' is on the root filesystem (system disk). "+
			"Ensure your external drive is mounted", path)
	}

	return nil
}
