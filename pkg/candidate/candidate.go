// Package candidate scans a destination directory for a prior dated backup
// of a given base name that can be renamed to the current run's dated name.
package candidate

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/tmerle/syncbak/pkg/datename"
)

// AmbiguousError reports that more than one prior dated backup matches the
// base name. There is no well-defined "most recent" without guessing, so the
// resolver deliberately refuses to pick one.
type AmbiguousError struct {
	Base       string
	Candidates []string
}

func (e *AmbiguousError) Error() string {
	return fmt.Sprintf("there are several dated backup candidates for %q: %s",
		e.Base, strings.Join(e.Candidates, ", "))
}

// Resolve lists the destination directory and returns the single prior dated
// backup of base, or "" when none exists. Entries qualify only when their
// name matches `<base>_<YYYY>-<MM>-<DD>-<HH>h<MM>` AND they are confirmed
// directories: a file or a symlink with a matching name is never a rename
// target, since renaming through a link could silently rewrite whatever it
// points to. An unreadable destination (a file, a broken link, absent) is
// reported as one coarse error, since all those causes need the same
// remediation.
func Resolve(dstDir, base string) (string, error) {
	entries, err := os.ReadDir(dstDir)
	if err != nil {
		return "", fmt.Errorf("failed to read destination directory %q: %w", dstDir, err)
	}

	var candidates []string
	for _, entry := range entries {
		captured, ok := datename.MatchBase(entry.Name())
		if !ok || captured != base {
			continue
		}
		// DirEntry types come from lstat: a symlink never reports IsDir.
		if !entry.IsDir() {
			continue
		}
		candidates = append(candidates, filepath.Join(dstDir, entry.Name()))
	}

	switch len(candidates) {
	case 0:
		return "", nil
	case 1:
		return candidates[0], nil
	default:
		sort.Strings(candidates)
		return "", &AmbiguousError{Base: base, Candidates: candidates}
	}
}
