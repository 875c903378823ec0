// Package engine executes validated plans. It owns the ordering guarantees:
// checks before mutations, one action at a time, and no rollback of actions
// that already completed.
package engine

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/tmerle/syncbak/pkg/candidate"
	"github.com/tmerle/syncbak/pkg/hints"
	"github.com/tmerle/syncbak/pkg/hook"
	"github.com/tmerle/syncbak/pkg/metrics"
	"github.com/tmerle/syncbak/pkg/pathinfo"
	"github.com/tmerle/syncbak/pkg/pathsync"
	"github.com/tmerle/syncbak/pkg/planner"
	"github.com/tmerle/syncbak/pkg/plog"
	"github.com/tmerle/syncbak/pkg/preflight"
)

// FileCopier copies a single file.
type FileCopier interface {
	Copy(ctx context.Context, src, dst string) error
}

// Compressor archives a directory tree into a single file.
type Compressor interface {
	ArchivePath(srcDir string) string
	Compress(ctx context.Context, srcDir, archivePath string) error
}

// Runner executes backup and partial plans against the filesystem through
// its collaborators. Collaborators are interfaces so tests can substitute
// recording fakes for the external tools.
type Runner struct {
	syncer     pathsync.DirectorySyncer
	copier     FileCopier
	compressor Compressor
	hooks      *hook.HookExecutor
	metrics    metrics.Metrics
}

// NewRunner creates a Runner. compressor may be nil when compression is
// disabled; a nil metrics falls back to the no-op implementation.
func NewRunner(syncer pathsync.DirectorySyncer, copier FileCopier, compressor Compressor, hooks *hook.HookExecutor, m metrics.Metrics) *Runner {
	if hooks == nil {
		hooks = hook.NewHookExecutor(nil)
	}
	if m == nil {
		m = &metrics.NoopMetrics{}
	}
	return &Runner{
		syncer:     syncer,
		copier:     copier,
		compressor: compressor,
		hooks:      hooks,
		metrics:    m,
	}
}

// ExecuteBackup runs a dated backup: preflight, hooks, optional rename of the
// prior dated backup, the directory mirror, and optional compression.
func (r *Runner) ExecuteBackup(ctx context.Context, plan *planner.BackupPlan) error {
	if err := preflight.CheckSourceAccessible(plan.SourceDir); err != nil {
		return err
	}
	if err := preflight.CheckDestinationAccessible(plan.DestBase); err != nil {
		return err
	}
	if err := preflight.CheckPathNesting(plan.SourceDir, plan.DestBase); err != nil {
		return err
	}
	if !plan.DryRun {
		if err := preflight.CheckDestinationWritable(plan.DestBase); err != nil {
			return err
		}
	}

	if err := r.hooks.Run(ctx, "pre-backup", plan.PreBackupHooks, plan.DryRun); err != nil {
		if !hints.IsHint(err) {
			return fmt.Errorf("pre-backup hook failed: %w", err)
		}
		plog.Debug("No pre-backup hooks to run")
	}
	// Post hooks run regardless of the backup outcome so cleanup commands
	// (unmount, notification) always fire. A hook failure never masks the
	// backup's own error.
	defer func() {
		if err := r.hooks.Run(ctx, "post-backup", plan.PostBackupHooks, plan.DryRun); err != nil {
			if !hints.IsHint(err) {
				plog.Warn("post-backup hook failed", "error", err)
			}
		}
	}()

	// The final destination must be a real directory or absent. Any other
	// entry, a dangling symlink included, is a hard error: writing over it
	// could destroy user data or mask a misconfiguration.
	kind, exists, err := pathinfo.Peek(plan.FinalDestPath)
	if err != nil {
		return err
	}
	if exists && kind != pathinfo.Dir {
		return fmt.Errorf("destination path %q already exists and is a %s, not a directory", plan.FinalDestPath, kind)
	}

	candidatePath, err := candidate.Resolve(plan.DestBase, plan.BaseName)
	if err != nil {
		return err
	}
	if candidatePath != "" && candidatePath != plan.FinalDestPath {
		if plan.DryRun {
			plog.Notice("[DRY RUN] RENAME", "from", candidatePath, "to", plan.FinalDestPath)
		} else {
			if err := os.Rename(candidatePath, plan.FinalDestPath); err != nil {
				return fmt.Errorf("failed to rename %q to %q: %w", candidatePath, plan.FinalDestPath, err)
			}
			plog.Notice("RENAME", "from", candidatePath, "to", plan.FinalDestPath)
		}
	}

	start := time.Now()
	if err := r.syncer.Sync(ctx, plan.SourceDir, plan.FinalDestPath); err != nil {
		return err
	}
	plog.Notice("SYNC", "source", plan.SourceDir, "destination", plan.FinalDestPath, "elapsed", time.Since(start).Round(time.Millisecond))

	if plan.Compression != nil && plan.Compression.Enabled && r.compressor != nil {
		archivePath := r.compressor.ArchivePath(plan.FinalDestPath)
		start := time.Now()
		if err := r.compressor.Compress(ctx, plan.FinalDestPath, archivePath); err != nil {
			return fmt.Errorf("failed to compress %q: %w", plan.FinalDestPath, err)
		}
		if !plan.DryRun {
			// The archive replaces the directory form of the backup.
			if err := os.RemoveAll(plan.FinalDestPath); err != nil {
				return fmt.Errorf("failed to remove %q after compression: %w", plan.FinalDestPath, err)
			}
		}
		plog.Notice("ARCHIVE", "archive", archivePath, "elapsed", time.Since(start).Round(time.Millisecond))
	}

	plog.Notice("DONE", "destination", plan.FinalDestPath)
	return nil
}

// ExecutePartial runs the planned actions sequentially, in order. A failing
// action aborts the batch; actions already applied are not rolled back.
func (r *Runner) ExecutePartial(ctx context.Context, plan *planner.PartialPlan) error {
	for _, action := range plan.Actions {
		if err := r.executeAction(ctx, plan, action); err != nil {
			return err
		}
	}
	return nil
}

func (r *Runner) executeAction(ctx context.Context, plan *planner.PartialPlan, action planner.SyncAction) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	start := time.Now()

	switch action.Op {
	case planner.RemoveDestinationFileThenSynchronizeDirectory:
		if err := r.removeConflict(plan, action.DestinationPath, false); err != nil {
			return err
		}
		if err := r.syncer.Sync(ctx, action.SourcePath, action.DestinationPath); err != nil {
			return err
		}

	case planner.SynchronizeDirectory:
		if err := r.syncer.Sync(ctx, action.SourcePath, action.DestinationPath); err != nil {
			return err
		}

	case planner.RemoveDestinationDirectoryThenCopyFile:
		if err := r.removeConflict(plan, action.DestinationPath, true); err != nil {
			return err
		}
		if err := r.copier.Copy(ctx, action.SourcePath, action.DestinationPath); err != nil {
			return err
		}

	case planner.CopyFile:
		if err := r.copier.Copy(ctx, action.SourcePath, action.DestinationPath); err != nil {
			return err
		}

	default:
		return fmt.Errorf("unhandled operation: %s", action.Op)
	}

	plog.Notice("SYNCED", "source", action.SourcePath, "destination", action.DestinationPath,
		"operation", action.Op.String(), "elapsed", time.Since(start).Round(time.Millisecond))
	return nil
}

func (r *Runner) removeConflict(plan *planner.PartialPlan, path string, isDir bool) error {
	if plan.DryRun {
		plog.Notice("[DRY RUN] REMOVE", "path", path)
		return nil
	}
	var err error
	if isDir {
		err = pathsync.RemoveDirectory(path)
	} else {
		err = pathsync.RemoveFile(path)
	}
	if err != nil {
		return err
	}
	plog.Notice("REMOVE", "path", path)
	r.metrics.AddEntriesRemoved(1)
	return nil
}
