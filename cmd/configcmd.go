package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/tmerle/syncbak/pkg/config"
	"github.com/tmerle/syncbak/pkg/flagparse"
)

// RunConfig writes a default configuration file to the destination base so
// the user has a discoverable template to edit.
func RunConfig(ctx context.Context, flagMap map[string]any) error {
	destPath, ok := flagMap["dest"].(string)
	if !ok || destPath == "" {
		return fmt.Errorf("the -dest flag is required to generate a configuration")
	}
	force, _ := flagMap["force"].(bool)

	absDest, err := filepath.Abs(destPath)
	if err != nil {
		return fmt.Errorf("could not determine absolute path for %s: %w", destPath, err)
	}
	info, err := os.Stat(absDest)
	if err != nil {
		return fmt.Errorf("cannot access destination directory %s: %w", absDest, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("destination path %s is not a directory", absDest)
	}

	configPath := filepath.Join(absDest, config.ConfigFileName)
	if _, err := os.Stat(configPath); err == nil && !force {
		return fmt.Errorf("configuration file %s already exists; use -force to overwrite", configPath)
	}

	cfg := config.MergeConfigWithFlags(flagparse.Config, config.NewDefault(), flagMap)
	cfg.DestBase = absDest

	return config.Generate(cfg)
}
