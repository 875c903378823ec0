package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/tmerle/syncbak/pkg/buildinfo"
	"github.com/tmerle/syncbak/pkg/config"
	"github.com/tmerle/syncbak/pkg/engine"
	"github.com/tmerle/syncbak/pkg/flagparse"
	"github.com/tmerle/syncbak/pkg/hook"
	"github.com/tmerle/syncbak/pkg/metrics"
	"github.com/tmerle/syncbak/pkg/pathcompression"
	"github.com/tmerle/syncbak/pkg/pathsync"
	"github.com/tmerle/syncbak/pkg/planner"
	"github.com/tmerle/syncbak/pkg/plog"
)

// RunBackup handles the logic for the dated backup execution.
func RunBackup(ctx context.Context, flagMap map[string]any) error {
	// For backup, the dest flag is mandatory.
	destPath, ok := flagMap["dest"].(string)
	if !ok || destPath == "" {
		return fmt.Errorf("the -dest flag is required to run a backup")
	}

	// Load config from the destination base, or use defaults if not found.
	loadedConfig, err := config.Load(destPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration from destination: %w", err)
	}

	// Merge the flag values over the loaded config to get the final run config.
	runConfig := config.MergeConfigWithFlags(flagparse.Backup, loadedConfig, flagMap)

	if err := runConfig.Validate(true); err != nil {
		return err
	}

	// Set the global log level based on the final configuration.
	plog.SetLevel(plog.LevelFromString(runConfig.LogLevel))

	runConfig.LogSummary()

	var m metrics.Metrics = &metrics.NoopMetrics{}
	if runConfig.Metrics {
		m = &metrics.RunMetrics{}
	}

	// Get the plan
	backupPlan, err := planner.GenerateBackupPlan(&runConfig, time.Now())
	if err != nil {
		return err
	}

	// Create the runner and feed it with our leaf workers
	var compressor engine.Compressor
	if backupPlan.Compression != nil {
		compressor = pathcompression.NewPathCompressor(backupPlan.Compression, m)
	}
	runner := engine.NewRunner(
		pathsync.NewBackupSyncer(
			runConfig.Rsync.Binary,
			runConfig.Rsync.ExtraArgs,
			backupPlan.ExcludePatterns,
			runConfig.Runtime.DryRun,
			m,
		),
		pathsync.NewFileCopier(runConfig.Performance.BufferSizeKB, runConfig.Runtime.DryRun, m),
		compressor,
		hook.NewHookExecutor(nil),
		m,
	)

	// Execute the plan
	startTime := time.Now()
	err = runner.ExecuteBackup(ctx, backupPlan)
	duration := time.Since(startTime).Round(time.Millisecond)
	if err != nil {
		return err // The error will be logged with full details by main()
	}
	if runConfig.Metrics {
		m.LogSummary("Backup metrics")
	}
	plog.Info(buildinfo.Name+" finished successfully.", "duration", duration)
	return nil
}
