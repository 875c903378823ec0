package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/tmerle/syncbak/pkg/buildinfo"
	"github.com/tmerle/syncbak/pkg/config"
	"github.com/tmerle/syncbak/pkg/engine"
	"github.com/tmerle/syncbak/pkg/flagparse"
	"github.com/tmerle/syncbak/pkg/hints"
	"github.com/tmerle/syncbak/pkg/hook"
	"github.com/tmerle/syncbak/pkg/metrics"
	"github.com/tmerle/syncbak/pkg/pathsync"
	"github.com/tmerle/syncbak/pkg/planner"
	"github.com/tmerle/syncbak/pkg/plog"
)

// RunPartial handles the logic for the partial synchronization of selected
// sub-paths between two existing trees.
func RunPartial(ctx context.Context, flagMap map[string]any, subpaths []string) error {
	destPath, ok := flagMap["dest"].(string)
	if !ok || destPath == "" {
		return fmt.Errorf("the -dest flag is required to run a partial synchronization")
	}
	if src, ok := flagMap["source"].(string); !ok || src == "" {
		return fmt.Errorf("the -source flag is required to run a partial synchronization")
	}

	loadedConfig, err := config.Load(destPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration from destination: %w", err)
	}

	runConfig := config.MergeConfigWithFlags(flagparse.Partial, loadedConfig, flagMap)

	if err := runConfig.Validate(true); err != nil {
		return err
	}

	plog.SetLevel(plog.LevelFromString(runConfig.LogLevel))

	runConfig.LogSummary()

	var m metrics.Metrics = &metrics.NoopMetrics{}
	if runConfig.Metrics {
		m = &metrics.RunMetrics{}
	}

	// Plan first: the whole batch is validated before anything executes.
	partialPlan, err := planner.GeneratePartialPlan(&runConfig, subpaths)
	if err != nil {
		// An empty subpath list is a no-op, not a failure.
		if hints.IsHint(err) {
			plog.Info("Nothing to synchronize", "reason", err)
			return nil
		}
		return err
	}

	runner := engine.NewRunner(
		pathsync.NewPartialSyncer(
			runConfig.Rsync.Binary,
			runConfig.Rsync.ExtraArgs,
			partialPlan.ExcludePatterns,
			runConfig.Runtime.DryRun,
			m,
		),
		pathsync.NewFileCopier(runConfig.Performance.BufferSizeKB, runConfig.Runtime.DryRun, m),
		nil,
		hook.NewHookExecutor(nil),
		m,
	)

	startTime := time.Now()
	err = runner.ExecutePartial(ctx, partialPlan)
	duration := time.Since(startTime).Round(time.Millisecond)
	if err != nil {
		return err
	}
	if runConfig.Metrics {
		m.LogSummary("Partial synchronization metrics")
	}
	plog.Info(buildinfo.Name+" finished successfully.", "duration", duration)
	return nil
}
