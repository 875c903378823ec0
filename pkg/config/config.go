package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tmerle/syncbak/pkg/buildinfo"
	"github.com/tmerle/syncbak/pkg/flagparse"
	"github.com/tmerle/syncbak/pkg/pathcompression"
	"github.com/tmerle/syncbak/pkg/plog"
	"github.com/tmerle/syncbak/pkg/util"
)

// ConfigFileName is the name of the configuration file.
const ConfigFileName = "syncbak.config.json"

// systemExcludePatterns is a slice of patterns that should always be excluded
// from synchronization for the system to function correctly.
var systemExcludePatterns = []string{ConfigFileName}

type RsyncConfig struct {
	// Binary is the rsync executable to invoke; resolved via PATH when it is
	// a bare name.
	Binary string `json:"binary"`
	// Note: omitempty is intentionally not used so that the field appears in
	// the generated config file for better discoverability.
	// ExtraArgs is a list of additional arguments appended to every rsync
	// invocation, after the built-in option set.
	ExtraArgs []string `json:"extraArgs"`
}

type HooksConfig struct {
	// PreBackup is a list of shell commands to execute before the backup sync begins.
	// SECURITY: These commands are executed as provided. Ensure they are from a trusted source.
	PreBackup []string `json:"preBackup"`
	// PostBackup is a list of shell commands to execute after the backup sync finishes.
	// SECURITY: These commands are executed as provided. Ensure they are from a trusted source.
	PostBackup []string `json:"postBackup"`
}

type CompressionConfig struct {
	Enabled bool                   `json:"enabled"`
	Format  pathcompression.Format `json:"format"`
	Level   pathcompression.Level  `json:"level"`
	Workers int                    `json:"workers"`
}

type PerformanceConfig struct {
	BufferSizeKB int `json:"bufferSizeKB"`
}

type RuntimeConfig struct {
	DryRun bool
}

type Config struct {
	Version     string            `json:"version"`
	Source      string            `json:"-"` // Never added to config file
	DestBase    string            `json:"-"` // Never added to config file
	Runtime     RuntimeConfig     `json:"-"` // Never added to config file
	LogLevel    string            `json:"logLevel"`
	Metrics     bool              `json:"metrics"`
	Rsync       RsyncConfig       `json:"rsync"`
	Performance PerformanceConfig `json:"performance"`
	// UserExcludePatterns is a user-defined list of patterns to exclude from
	// synchronization, in rsync pattern syntax.
	UserExcludePatterns []string          `json:"userExcludePatterns"`
	Compression         CompressionConfig `json:"compression"`
	Hooks               HooksConfig       `json:"hooks"`
}

// NewDefault creates and returns a Config struct with sensible default values.
func NewDefault() Config {
	return Config{
		Version:  buildinfo.Version,
		Source:   "", // Intentionally empty to force user configuration.
		DestBase: "", // Intentionally empty to force user configuration.
		LogLevel: "info",
		Metrics:  false,
		Runtime: RuntimeConfig{
			DryRun: false,
		},
		Rsync: RsyncConfig{
			Binary:    "rsync",
			ExtraArgs: []string{},
		},
		Performance: PerformanceConfig{
			BufferSizeKB: 256, // Keep it between 64KB-4MB
		},
		UserExcludePatterns: []string{},
		Compression: CompressionConfig{
			Enabled: false, // Opt-in; compressing a backup trades restore granularity for space.
			Format:  pathcompression.TarZst,
			Level:   pathcompression.Default,
			Workers: 0, // 0 means CPU count.
		},
		Hooks: HooksConfig{
			PreBackup:  []string{},
			PostBackup: []string{},
		},
	}
}

// Load attempts to load a configuration from "syncbak.config.json" in the
// destination base directory. If the file doesn't exist, it returns the
// default config without an error. If the file exists but fails to parse, it
// returns an error and a zero-value config.
func Load(destBase string) (Config, error) {

	absDestBasePath, err := filepath.Abs(destBase)
	if err != nil {
		return Config{}, fmt.Errorf("could not determine absolute path for load directory %s: %w", destBase, err)
	}

	configPath := filepath.Join(absDestBasePath, ConfigFileName)

	file, err := os.Open(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			cfg := NewDefault()
			cfg.DestBase = absDestBasePath
			return cfg, nil // Config file doesn't exist, which is a normal case.
		}
		return Config{}, fmt.Errorf("error opening config file %s: %w", configPath, err)
	}
	defer file.Close()

	plog.Info("Loading configuration", "path", configPath)
	// Start with default values, then overwrite with the file's content.
	// This makes the config loading resilient to missing fields in the JSON file.
	config := NewDefault()
	decoder := json.NewDecoder(file)
	if err := decoder.Decode(&config); err != nil {
		return Config{}, fmt.Errorf("error parsing config file %s: %w", configPath, err)
	}
	config.DestBase = absDestBasePath

	if config.Version != buildinfo.Version {
		config.Version = buildinfo.Version
	}
	return config, nil
}

// Generate creates or overwrites a default syncbak.config.json file in the
// config's destination base directory.
func Generate(configToGenerate Config) error {
	configPath := filepath.Join(configToGenerate.DestBase, ConfigFileName)
	jsonData, err := json.MarshalIndent(configToGenerate, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config to JSON: %w", err)
	}

	if err := os.WriteFile(configPath, jsonData, util.UserWritableFilePerms); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	plog.Info("Successfully saved config file", "path", configPath)
	return nil
}

// Validate checks the configuration for logical errors and inconsistencies.
// It performs strict checks, including ensuring the source path is non-empty
// and exists.
func (c *Config) Validate(checkSource bool) error {
	if checkSource && c.Source == "" {
		return fmt.Errorf("source path cannot be empty")
	}
	if c.DestBase == "" {
		return fmt.Errorf("destination path cannot be empty")
	}

	// Clean and expand paths for canonical representation before use.
	var err error

	if c.Source != "" {
		c.Source, err = util.ExpandPath(c.Source)
		if err != nil {
			return fmt.Errorf("could not expand source path: %w", err)
		}
		c.Source = filepath.Clean(c.Source)

		if checkSource {
			if _, err := os.Stat(c.Source); os.IsNotExist(err) {
				return fmt.Errorf("source path '%s' does not exist", c.Source)
			}
		}
	}

	c.DestBase, err = util.ExpandPath(c.DestBase)
	if err != nil {
		return fmt.Errorf("could not expand destination path: %w", err)
	}
	c.DestBase = filepath.Clean(c.DestBase)

	if c.Rsync.Binary == "" {
		return fmt.Errorf("rsync.binary cannot be empty")
	}
	if c.Performance.BufferSizeKB <= 0 {
		return fmt.Errorf("performance.bufferSizeKB must be greater than 0")
	}
	if c.Compression.Workers < 0 {
		return fmt.Errorf("compression.workers cannot be negative")
	}
	if c.Compression.Enabled {
		if _, err := pathcompression.ParseFormat(c.Compression.Format.String()); err != nil {
			return err
		}
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "notice", "warn", "warning", "error":
	default:
		return fmt.Errorf("invalid log level: %q. Must be 'debug', 'info', 'notice', 'warn', or 'error'", c.LogLevel)
	}

	return nil
}

// ExcludePatterns returns the final, combined slice of exclusion patterns,
// including non-overridable system patterns and user-configured patterns.
// It automatically handles deduplication.
func (c *Config) ExcludePatterns() []string {
	return util.MergeAndDeduplicate(systemExcludePatterns, c.UserExcludePatterns)
}

// LogSummary prints a user-friendly summary of the configuration.
func (c *Config) LogSummary() {
	logArgs := []any{
		"log_level", c.LogLevel,
		"source", c.Source,
		"dest", c.DestBase,
		"dry_run", c.Runtime.DryRun,
		"metrics", c.Metrics,
		"rsync_binary", c.Rsync.Binary,
		"buffer_size_kb", c.Performance.BufferSizeKB,
	}
	if len(c.Rsync.ExtraArgs) > 0 {
		logArgs = append(logArgs, "rsync_extra_args", strings.Join(c.Rsync.ExtraArgs, " "))
	}
	if c.Compression.Enabled {
		compressionSummary := fmt.Sprintf("enabled (f:%s l:%s)", c.Compression.Format, c.Compression.Level)
		logArgs = append(logArgs, "compression", compressionSummary)
	}
	if finalExcludes := c.ExcludePatterns(); len(finalExcludes) > 0 {
		logArgs = append(logArgs, "exclude_patterns", strings.Join(finalExcludes, ", "))
	}
	if len(c.Hooks.PreBackup) > 0 {
		logArgs = append(logArgs, "pre_backup_hooks", strings.Join(c.Hooks.PreBackup, "; "))
	}
	if len(c.Hooks.PostBackup) > 0 {
		logArgs = append(logArgs, "post_backup_hooks", strings.Join(c.Hooks.PostBackup, "; "))
	}
	plog.Info("Configuration loaded", logArgs...)
}

// MergeConfigWithFlags overlays the configuration values from flags on top of
// a base configuration. It iterates over the setFlags map, which contains
// only the flags explicitly provided by the user on the command line.
func MergeConfigWithFlags(command flagparse.Command, base Config, setFlags map[string]any) Config {
	merged := base

	for name, value := range setFlags {
		switch name {
		case "source":
			merged.Source = value.(string)
		case "dest":
			merged.DestBase = value.(string)
		case "log-level":
			merged.LogLevel = value.(string)
		case "dry-run":
			merged.Runtime.DryRun = value.(bool)
		case "metrics":
			merged.Metrics = value.(bool)
		case "rsync-binary":
			merged.Rsync.Binary = value.(string)
		case "rsync-args":
			merged.Rsync.ExtraArgs = value.([]string)
		case "exclude":
			merged.UserExcludePatterns = value.([]string)
		case "buffer-size-kb":
			merged.Performance.BufferSizeKB = value.(int)
		case "pre-backup-hooks":
			merged.Hooks.PreBackup = value.([]string)
		case "post-backup-hooks":
			merged.Hooks.PostBackup = value.([]string)
		case "compression":
			switch command {
			case flagparse.Backup:
				merged.Compression.Enabled = value.(bool)
			default:
			}
		case "compression-format":
			merged.Compression.Format = pathcompression.Format(value.(string))
		case "compression-level":
			merged.Compression.Level = pathcompression.Level(value.(string))
		case "compress-workers":
			merged.Compression.Workers = value.(int)
		case "force":
			// Handled by the command itself, not part of the config.
		default:
			plog.Debug("unhandled flag in MergeConfigWithFlags", "flag", name)
		}
	}
	return merged
}
