// Package planner validates a requested synchronization up front and turns
// it into an executable plan. Planning never mutates the filesystem: a plan
// that cannot be fully validated is rejected before any action runs.
package planner

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"time"

	"github.com/tmerle/syncbak/pkg/config"
	"github.com/tmerle/syncbak/pkg/datename"
	"github.com/tmerle/syncbak/pkg/hints"
	"github.com/tmerle/syncbak/pkg/pathcompression"
	"github.com/tmerle/syncbak/pkg/pathinfo"
)

var ErrNothingToSynchronize = hints.New("nothing to synchronize")

// SyncAction is the unit of planned work for the partial flow.
type SyncAction struct {
	SourcePath      string
	DestinationPath string
	Op              Operation
}

// BackupPlan describes a single-directory dated backup run.
type BackupPlan struct {
	SourceDir     string
	DestBase      string
	BaseName      string
	FinalDestPath string

	ExcludePatterns []string
	PreBackupHooks  []string
	PostBackupHooks []string
	Compression     *pathcompression.Plan

	// Global Flags
	DryRun  bool
	Metrics bool
}

// PartialPlan describes a multi-subpath partial synchronization run.
type PartialPlan struct {
	SourcePrefix string
	DestPrefix   string
	Actions      []SyncAction

	ExcludePatterns []string

	// Global Flags
	DryRun  bool
	Metrics bool
}

// GenerateBackupPlan validates the backup configuration and resolves the
// final dated destination name from the given time.
func GenerateBackupPlan(cfg *config.Config, now time.Time) (*BackupPlan, error) {
	srcKind, err := pathinfo.Classify(cfg.Source)
	if err != nil {
		return nil, err
	}
	if srcKind != pathinfo.Dir {
		return nil, fmt.Errorf("source path %q is not a directory", cfg.Source)
	}

	baseName := filepath.Base(filepath.Clean(cfg.Source))
	if baseName == "." || baseName == string(filepath.Separator) {
		return nil, fmt.Errorf("cannot derive a backup name from source path %q", cfg.Source)
	}

	finalName := datename.Compose(baseName, datename.Suffix(now))

	plan := &BackupPlan{
		SourceDir:       cfg.Source,
		DestBase:        cfg.DestBase,
		BaseName:        baseName,
		FinalDestPath:   filepath.Join(cfg.DestBase, finalName),
		ExcludePatterns: cfg.ExcludePatterns(),
		PreBackupHooks:  cfg.Hooks.PreBackup,
		PostBackupHooks: cfg.Hooks.PostBackup,
		DryRun:          cfg.Runtime.DryRun,
		Metrics:         cfg.Metrics,
	}
	if cfg.Compression.Enabled {
		plan.Compression = &pathcompression.Plan{
			Enabled:      true,
			Format:       cfg.Compression.Format,
			Level:        cfg.Compression.Level,
			Workers:      cfg.Compression.Workers,
			BufferSizeKB: cfg.Performance.BufferSizeKB,
			DryRun:       cfg.Runtime.DryRun,
		}
	}
	return plan, nil
}

// GeneratePartialPlan classifies every requested subpath against the
// destination and produces the ordered action batch. The whole batch fails if
// any single subpath is invalid, so execution never starts on a plan that is
// known to be partially broken.
func GeneratePartialPlan(cfg *config.Config, subpaths []string) (*PartialPlan, error) {
	if len(subpaths) == 0 {
		return nil, ErrNothingToSynchronize
	}

	for _, sub := range subpaths {
		if filepath.IsAbs(sub) {
			return nil, fmt.Errorf("subpath %q is absolute; subpaths must be relative to the prefixes", sub)
		}
	}

	for _, prefix := range []string{cfg.Source, cfg.DestBase} {
		kind, err := pathinfo.Classify(prefix)
		if err != nil {
			return nil, err
		}
		if kind != pathinfo.Dir {
			return nil, fmt.Errorf("prefix path %q is not a directory", prefix)
		}
	}

	actions := make([]SyncAction, 0, len(subpaths))
	for _, sub := range subpaths {
		srcPath := filepath.Join(cfg.Source, sub)
		dstPath := filepath.Join(cfg.DestBase, sub)

		op, err := decideOperation(srcPath, dstPath)
		if err != nil {
			return nil, err
		}
		actions = append(actions, SyncAction{
			SourcePath:      srcPath,
			DestinationPath: dstPath,
			Op:              op,
		})
	}

	return &PartialPlan{
		SourcePrefix:    cfg.Source,
		DestPrefix:      cfg.DestBase,
		Actions:         actions,
		ExcludePatterns: cfg.ExcludePatterns(),
		DryRun:          cfg.Runtime.DryRun,
		Metrics:         cfg.Metrics,
	}, nil
}

// decideOperation maps (source kind, destination state) to the one operation
// that reconciles them, or fails when no safe choice exists.
func decideOperation(srcPath, dstPath string) (Operation, error) {
	srcKind, err := pathinfo.Classify(srcPath)
	if err != nil {
		return 0, err
	}

	dstKind, dstExists, err := pathinfo.Peek(dstPath)
	if err != nil {
		return 0, err
	}

	if srcKind == pathinfo.Dir {
		switch {
		case !dstExists:
			return SynchronizeDirectory, nil
		case dstKind == pathinfo.Dir:
			return SynchronizeDirectory, nil
		case dstKind == pathinfo.File:
			return RemoveDestinationFileThenSynchronizeDirectory, nil
		default: // symlink
			targetKind, err := pathinfo.FinalTarget(dstPath)
			if err != nil {
				if errors.Is(err, fs.ErrNotExist) {
					// Dangling link: the mirroring tool writes through it.
					return SynchronizeDirectory, nil
				}
				return 0, err
			}
			if targetKind == pathinfo.File {
				return 0, &SymlinkTargetMismatchError{Path: dstPath, Target: targetKind}
			}
			return SynchronizeDirectory, nil
		}
	}

	// Source is a file.
	switch {
	case !dstExists:
		return CopyFile, nil
	case dstKind == pathinfo.File:
		return CopyFile, nil
	case dstKind == pathinfo.Dir:
		return RemoveDestinationDirectoryThenCopyFile, nil
	default: // symlink
		targetKind, err := pathinfo.FinalTarget(dstPath)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return CopyFile, nil
			}
			return 0, err
		}
		if targetKind == pathinfo.Dir {
			return 0, &SymlinkTargetMismatchError{Path: dstPath, Target: targetKind}
		}
		return CopyFile, nil
	}
}
