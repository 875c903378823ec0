// Package pathsync provides the filesystem-mutating primitives of the
// executor: the external rsync task for whole-directory mirroring, a
// buffered single-file copy, and the remove helpers.
package pathsync

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/tmerle/syncbak/pkg/metrics"
	"github.com/tmerle/syncbak/pkg/plog"
)

// DefaultRsyncBinary is the mirroring tool invoked when the config does not
// override it.
const DefaultRsyncBinary = "rsync"

// Rsync option sets. Both preserve archive mode, symlinks and extended
// attributes; the backup flavor additionally preserves ACLs and hard links,
// the partial flavor hard links and unmodified access times.
var (
	backupRsyncArgs  = []string{"-aAXHv", "--delete", "--stats"}
	partialRsyncArgs = []string{"-aHUXv", "--delete", "--stats"}
)

// DirectorySyncer mirrors a source directory's contents into a destination.
type DirectorySyncer interface {
	Sync(ctx context.Context, srcDir, dstDir string) error
}

// ExternalToolError reports a subprocess that exited non-zero or could not
// be spawned at all.
type ExternalToolError struct {
	Tool     string
	ExitCode int // -1 when the process never started
	Err      error
}

func (e *ExternalToolError) Error() string {
	if e.ExitCode >= 0 {
		return fmt.Sprintf("%s exited with status %d", e.Tool, e.ExitCode)
	}
	return fmt.Sprintf("failed to execute %s: %v", e.Tool, e.Err)
}

func (e *ExternalToolError) Unwrap() error { return e.Err }

// RsyncSyncer runs rsync as a subprocess, configured as a true mirror:
// extraneous destination entries are deleted, and the source is passed with
// a trailing separator so its contents land in the destination instead of
// nesting a new subdirectory.
type RsyncSyncer struct {
	binary    string
	baseArgs  []string
	extraArgs []string
	excludes  []string
	dryRun    bool
	metrics   metrics.Metrics
}

// NewBackupSyncer creates the rsync task used by the dated backup flow.
func NewBackupSyncer(binary string, extraArgs, excludes []string, dryRun bool, m metrics.Metrics) *RsyncSyncer {
	return newRsyncSyncer(binary, backupRsyncArgs, extraArgs, excludes, dryRun, m)
}

// NewPartialSyncer creates the rsync task used by the partial flow.
func NewPartialSyncer(binary string, extraArgs, excludes []string, dryRun bool, m metrics.Metrics) *RsyncSyncer {
	return newRsyncSyncer(binary, partialRsyncArgs, extraArgs, excludes, dryRun, m)
}

func newRsyncSyncer(binary string, baseArgs, extraArgs, excludes []string, dryRun bool, m metrics.Metrics) *RsyncSyncer {
	if binary == "" {
		binary = DefaultRsyncBinary
	}
	if m == nil {
		m = &metrics.NoopMetrics{}
	}
	return &RsyncSyncer{
		binary:    binary,
		baseArgs:  baseArgs,
		extraArgs: extraArgs,
		excludes:  excludes,
		dryRun:    dryRun,
		metrics:   m,
	}
}

// buildArgs assembles the full rsync argument list. The "--" terminator
// keeps a source path starting with a dash from being read as an option.
func (s *RsyncSyncer) buildArgs(srcDir, dstDir string) []string {
	args := make([]string, 0, len(s.baseArgs)+len(s.extraArgs)+len(s.excludes)+4)
	args = append(args, s.baseArgs...)
	if s.dryRun {
		args = append(args, "-n")
	}
	for _, pattern := range s.excludes {
		args = append(args, "--exclude="+pattern)
	}
	args = append(args, s.extraArgs...)
	args = append(args, "--", withTrailingSeparator(srcDir), dstDir)
	return args
}

// Sync mirrors srcDir into dstDir. A non-zero exit status or a failure to
// spawn the process is returned as an *ExternalToolError.
func (s *RsyncSyncer) Sync(ctx context.Context, srcDir, dstDir string) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	args := s.buildArgs(srcDir, dstDir)
	plog.Debug("Invoking mirroring tool", "binary", s.binary, "args", strings.Join(args, " "))

	cmd := exec.CommandContext(ctx, s.binary, args...)
	// Pipe the tool's output directly through for real-time visibility.
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		exitCode := -1
		if exitErr, ok := err.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		}
		return fmt.Errorf("failed to synchronize %q with %q: %w",
			srcDir, dstDir, &ExternalToolError{Tool: s.binary, ExitCode: exitCode, Err: err})
	}
	s.metrics.AddDirsSynchronized(1)
	return nil
}

// withTrailingSeparator qualifies a source path so the mirroring tool copies
// the directory's contents rather than the directory itself.
func withTrailingSeparator(path string) string {
	if strings.HasSuffix(path, "/") {
		return path
	}
	return path + "/"
}

// Statically assert that *RsyncSyncer implements the DirectorySyncer interface.
var _ DirectorySyncer = (*RsyncSyncer)(nil)
