package planner

import (
	"fmt"

	"github.com/tmerle/syncbak/pkg/pathinfo"
)

// Operation is the closed set of reconciliation actions the executor knows
// how to perform. Exactly one applies per SyncAction, determined purely from
// the source kind and the destination's current state.
type Operation int

const (
	// SynchronizeDirectory mirrors the source directory's contents into the
	// destination.
	SynchronizeDirectory Operation = iota
	// RemoveDestinationFileThenSynchronizeDirectory removes a conflicting
	// destination file first, then mirrors the source directory.
	RemoveDestinationFileThenSynchronizeDirectory
	// CopyFile copies the source file over the destination.
	CopyFile
	// RemoveDestinationDirectoryThenCopyFile removes a conflicting
	// destination directory first, then copies the source file.
	RemoveDestinationDirectoryThenCopyFile
)

var operationToString = map[Operation]string{
	SynchronizeDirectory:                          "synchronize directory",
	RemoveDestinationFileThenSynchronizeDirectory: "remove destination file, then synchronize directory",
	CopyFile: "copy file",
	RemoveDestinationDirectoryThenCopyFile: "remove destination directory, then copy file",
}

func (o Operation) String() string {
	if str, ok := operationToString[o]; ok {
		return str
	}
	return fmt.Sprintf("unknown_operation(%d)", int(o))
}

// SymlinkTargetMismatchError reports a destination symlink whose final target
// is of the wrong kind to safely proceed: unlinking it or writing through it
// would each silently destroy something, so the planner refuses to guess.
type SymlinkTargetMismatchError struct {
	Path   string
	Target pathinfo.Kind
}

func (e *SymlinkTargetMismatchError) Error() string {
	return fmt.Sprintf("destination %q is a symlink to a %s, which conflicts with the source", e.Path, e.Target)
}
