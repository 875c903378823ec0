// Package pathinfo resolves a path's on-disk nature: absent, file, directory
// or symlink, with optional resolution of a symlink chain to its final target.
package pathinfo

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// Kind is the resolved nature of a filesystem entry.
type Kind int

const (
	// File is any stat-able entry that is not a directory.
	File Kind = iota
	// Dir is a directory.
	Dir
	// Symlink is a symbolic link (only reported by link-aware calls).
	Symlink
)

var kindToString = map[Kind]string{File: "file", Dir: "directory", Symlink: "symlink"}

// String returns the human-readable name of a Kind.
func (k Kind) String() string {
	if s, ok := kindToString[k]; ok {
		return s
	}
	return fmt.Sprintf("unknown_kind(%d)", k)
}

// maxLinkDepth bounds symlink-chain resolution so a cyclic chain fails
// deterministically instead of depending on OS loop detection. 40 matches
// the Linux ELOOP bound.
const maxLinkDepth = 40

// Classify resolves the path with symlinks followed to their final target
// and reports whether it is a directory or a file. A missing target (or a
// dangling link anywhere in the chain) returns an error wrapping
// fs.ErrNotExist. Whether the reported kind is acceptable is the caller's
// decision.
func Classify(path string) (Kind, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, fmt.Errorf("failed to read metadata from %q: %w", path, err)
	}
	if info.IsDir() {
		return Dir, nil
	}
	return File, nil
}

// Peek inspects the exact path with link-aware metadata. It reports the entry
// kind and whether anything exists at that exact path: a dangling symlink is
// an existing Symlink entry, not an absent one. The error is reserved for
// genuine metadata failures (e.g. permission denied on the parent).
func Peek(path string) (Kind, bool, error) {
	info, err := os.Lstat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("failed to read metadata from %q: %w", path, err)
	}
	switch {
	case info.Mode()&os.ModeSymlink != 0:
		return Symlink, true, nil
	case info.IsDir():
		return Dir, true, nil
	default:
		return File, true, nil
	}
}

// FinalTarget follows a symlink chain one level at a time until it reaches a
// real file or directory. A dangling link returns an error wrapping
// fs.ErrNotExist; a chain longer than maxLinkDepth (cycles included) returns
// an error naming the original path.
func FinalTarget(path string) (Kind, error) {
	current := path
	for depth := 0; depth < maxLinkDepth; depth++ {
		info, err := os.Lstat(current)
		if err != nil {
			return 0, fmt.Errorf("failed to resolve %q: %w", path, err)
		}
		if info.Mode()&os.ModeSymlink == 0 {
			if info.IsDir() {
				return Dir, nil
			}
			return File, nil
		}
		target, err := os.Readlink(current)
		if err != nil {
			return 0, fmt.Errorf("failed to read link %q: %w", current, err)
		}
		if !filepath.IsAbs(target) {
			target = filepath.Join(filepath.Dir(current), target)
		}
		current = target
	}
	return 0, fmt.Errorf("too many levels of symbolic links resolving %q", path)
}
