// Package flagparse turns os.Args into a command plus a map of the flags the
// user explicitly set, so configuration merging can tell "not given" apart
// from "given as the zero value".
package flagparse

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tmerle/syncbak/pkg/buildinfo"
)

// cliFlags holds pointers to all possible command-line flags.
// Fields are pointers so we can distinguish between "not registered for this
// command" (nil) and "registered but not set by user" (non-nil pointer to
// zero value).
type cliFlags struct {
	// Global
	LogLevel *string
	DryRun   *bool
	Metrics  *bool

	// Shared: Backup / Partial / Config
	Source *string
	Dest   *string

	RsyncBinary *string
	RsyncArgs   *string
	Exclude     *string

	// Backup specific
	PreBackupHooks  *string
	PostBackupHooks *string

	CompressionEnabled *bool
	CompressionFormat  *string
	CompressionLevel   *string
	CompressWorkers    *int
	BufferSizeKB       *int

	// Config specific
	Force *bool
}

func registerGlobalFlags(fs *flag.FlagSet, f *cliFlags) {
	f.LogLevel = fs.String("log-level", "info", "Set the logging level: 'debug', 'notice', 'info', 'warn', 'error'.")
	f.DryRun = fs.Bool("dry-run", false, "Show what would be done without making any changes.")
	f.Metrics = fs.Bool("metrics", false, "Enable detailed performance and file-counting metrics.")
}

func registerSyncFlags(fs *flag.FlagSet, f *cliFlags) {
	f.Source = fs.String("source", "", "Source directory to copy from. (Required)")
	f.Dest = fs.String("dest", "", "Destination base directory. (Required)")
	f.RsyncBinary = fs.String("rsync-binary", "", "Path to the rsync binary. Defaults to 'rsync' on PATH.")
	f.RsyncArgs = fs.String("rsync-args", "", "Comma-separated list of extra arguments passed to rsync.")
	f.Exclude = fs.String("exclude", "", "Comma-separated list of patterns to exclude from synchronization (supports rsync glob patterns).")
}

func registerBackupFlags(fs *flag.FlagSet, f *cliFlags) {
	registerSyncFlags(fs, f)

	f.PreBackupHooks = fs.String("pre-backup-hooks", "", "Comma-separated list of commands to run before the backup.")
	f.PostBackupHooks = fs.String("post-backup-hooks", "", "Comma-separated list of commands to run after the backup.")

	f.CompressionEnabled = fs.Bool("compression", false, "Compress the finished backup directory into a single archive.")
	f.CompressionFormat = fs.String("compression-format", "", "Compression format: 'zip', 'tar.gz', or 'tar.zst'.")
	f.CompressionLevel = fs.String("compression-level", "", "Compression level: 'default', 'fastest', 'better', 'best'.")
	f.CompressWorkers = fs.Int("compress-workers", 0, "Number of worker goroutines for compression. Defaults to the CPU count.")
	f.BufferSizeKB = fs.Int("buffer-size-kb", 0, "Size of the I/O buffer in kilobytes for file copies and compression.")
}

func registerPartialFlags(fs *flag.FlagSet, f *cliFlags) {
	registerSyncFlags(fs, f)
	f.BufferSizeKB = fs.Int("buffer-size-kb", 0, "Size of the I/O buffer in kilobytes for file copies.")
}

func registerConfigFlags(fs *flag.FlagSet, f *cliFlags) {
	f.Dest = fs.String("dest", "", "Destination base directory to write the config file to. (Required)")
	f.Force = fs.Bool("force", false, "Overwrite an existing configuration file.")
}

// Parse parses the provided arguments (usually os.Args[1:]) and returns the
// command, the flags the user explicitly set, and any positional arguments
// remaining after the flags (the sub-paths of the partial command).
func Parse(args []string) (Command, map[string]any, []string, error) {
	// If no arguments provided, print help.
	if len(args) == 0 {
		fs := flag.NewFlagSet("main", flag.ContinueOnError)
		printTopLevelUsage(fs)
		return None, nil, nil, nil
	}

	cmdStr := strings.ToLower(args[0])

	if cmdStr == "help" || cmdStr == "-h" || cmdStr == "-help" || cmdStr == "--help" {
		fs := flag.NewFlagSet("main", flag.ContinueOnError)
		printTopLevelUsage(fs)
		return None, nil, nil, nil
	}

	f := &cliFlags{}

	command, err := ParseCommand(cmdStr)
	if err != nil {
		return None, nil, nil, err
	}

	switch command {
	case Backup:
		fs := flag.NewFlagSet(command.String(), flag.ContinueOnError)
		registerGlobalFlags(fs, f)
		registerBackupFlags(fs, f)

		fs.Usage = func() {
			printSubcommandUsage(command, "Mirror a source directory into a dated destination directory.", fs)
		}

		if err := fs.Parse(args[1:]); err != nil {
			return command, nil, nil, err
		}
		flagMap := flagsToMap(fs, f)
		return command, flagMap, fs.Args(), nil

	case Partial:
		fs := flag.NewFlagSet(command.String(), flag.ContinueOnError)
		registerGlobalFlags(fs, f)
		registerPartialFlags(fs, f)

		fs.Usage = func() {
			printSubcommandUsage(command, "Synchronize selected sub-paths between two existing trees.", fs)
		}

		if err := fs.Parse(args[1:]); err != nil {
			return command, nil, nil, err
		}
		flagMap := flagsToMap(fs, f)
		return command, flagMap, fs.Args(), nil

	case Config:
		fs := flag.NewFlagSet(command.String(), flag.ContinueOnError)
		registerGlobalFlags(fs, f)
		registerConfigFlags(fs, f)

		fs.Usage = func() {
			printSubcommandUsage(command, "Write a default configuration file to the destination base.", fs)
		}

		if err := fs.Parse(args[1:]); err != nil {
			return command, nil, nil, err
		}
		flagMap := flagsToMap(fs, f)
		return command, flagMap, fs.Args(), nil

	case Version:
		return command, nil, nil, nil

	default:
		return None, nil, nil, fmt.Errorf("unknown command: %s", args[0])
	}
}

func flagsToMap(fs *flag.FlagSet, f *cliFlags) map[string]any {
	// Create a map of the flags that were explicitly set by the user, along
	// with their values. This map is used to selectively override the base
	// configuration.
	usedFlags := make(map[string]bool)
	fs.Visit(func(fl *flag.Flag) { usedFlags[fl.Name] = true })

	flagMap := make(map[string]any)

	addIfUsed(flagMap, usedFlags, "log-level", f.LogLevel)
	addIfUsed(flagMap, usedFlags, "dry-run", f.DryRun)
	addIfUsed(flagMap, usedFlags, "metrics", f.Metrics)

	addIfUsed(flagMap, usedFlags, "source", f.Source)
	addIfUsed(flagMap, usedFlags, "dest", f.Dest)
	addIfUsed(flagMap, usedFlags, "rsync-binary", f.RsyncBinary)

	addIfUsed(flagMap, usedFlags, "compression", f.CompressionEnabled)
	addIfUsed(flagMap, usedFlags, "compression-format", f.CompressionFormat)
	addIfUsed(flagMap, usedFlags, "compression-level", f.CompressionLevel)
	addIfUsed(flagMap, usedFlags, "compress-workers", f.CompressWorkers)
	addIfUsed(flagMap, usedFlags, "buffer-size-kb", f.BufferSizeKB)

	addIfUsed(flagMap, usedFlags, "force", f.Force)

	// Handle flags that require parsing/validation.
	addParsedIfUsed(flagMap, usedFlags, "rsync-args", f.RsyncArgs, ParseExcludeList)
	addParsedIfUsed(flagMap, usedFlags, "exclude", f.Exclude, ParseExcludeList)
	addParsedIfUsed(flagMap, usedFlags, "pre-backup-hooks", f.PreBackupHooks, ParseCmdList)
	addParsedIfUsed(flagMap, usedFlags, "post-backup-hooks", f.PostBackupHooks, ParseCmdList)

	return flagMap
}

// addIfUsed adds the value of ptr to flagMap if ptr is not nil and the flag was set.
func addIfUsed[T any](flagMap map[string]any, usedFlags map[string]bool, name string, ptr *T) {
	if ptr != nil && usedFlags[name] {
		flagMap[name] = *ptr
	}
}

// addParsedIfUsed adds the parsed value of ptr to flagMap if ptr is not nil and the flag was set.
func addParsedIfUsed(flagMap map[string]any, usedFlags map[string]bool, name string, ptr *string, parser func(string) []string) {
	if ptr != nil && usedFlags[name] {
		flagMap[name] = parser(*ptr)
	}
}

// printTopLevelUsage prints the main help message.
func printTopLevelUsage(fs *flag.FlagSet) {

	execName := filepath.Base(os.Args[0])
	fmt.Fprintf(fs.Output(), "%s(%s) ", buildinfo.Name, buildinfo.Version)
	fmt.Fprintf(fs.Output(), "A dated-backup synchronization tool built around rsync.\n\n")
	fmt.Fprintf(fs.Output(), "Usage: %s <command> [flags]\n\n", execName)
	fmt.Fprintf(fs.Output(), "Commands:\n")
	fmt.Fprintf(fs.Output(), "  backup      Mirror a source directory into a dated destination directory\n")
	fmt.Fprintf(fs.Output(), "  partial     Synchronize selected sub-paths between two existing trees\n")
	fmt.Fprintf(fs.Output(), "  config      Write a default configuration file to the destination base\n")
	fmt.Fprintf(fs.Output(), "  version     Print the application version\n")
	fmt.Fprintf(fs.Output(), "\nRun '%s <command> -help' for more information on a command.\n", execName)
}

// printSubcommandUsage prints the help message for a specific subcommand.
func printSubcommandUsage(command Command, desc string, fs *flag.FlagSet) {

	execName := filepath.Base(os.Args[0])
	fmt.Fprintf(fs.Output(), "%s(%s) ", buildinfo.Name, buildinfo.Version)
	fmt.Fprintf(fs.Output(), "A dated-backup synchronization tool built around rsync.\n\n")
	fmt.Fprintf(fs.Output(), "Usage of the %s command: %s %s [flags]\n\n", command, execName, command)
	fmt.Fprintf(fs.Output(), "%s\n\n", desc)
	fmt.Fprintf(fs.Output(), "Flags:\n")
	fs.PrintDefaults()
}

// ParseCmdList parses a comma-separated list of shell-like commands.
// It preserves quotes and handles backslash escapes so they can be interpreted by the shell.
func ParseCmdList(s string) []string {
	return parseListInternal(s, true, true)
}

// ParseExcludeList parses a comma-separated list of patterns or arguments.
// It removes quotes, as they are only used for grouping items with spaces.
// It treats backslashes as literal characters for Windows path compatibility.
func ParseExcludeList(s string) []string {
	return parseListInternal(s, false, false)
}

// parseListInternal is the core implementation for parsing a comma-separated list. It supports
// both single (') and double (") quotes to allow items to contain commas or spaces.
// - `keepQuotes`: Preserves quote characters in the output.
// - `handleEscapes`: Treats backslashes as escape characters.
func parseListInternal(s string, keepQuotes, handleEscapes bool) []string {
	var list []string
	var current strings.Builder
	var quoteChar rune

	// Helper to add the current buffered item to the list after trimming whitespace.
	appendItem := func() {
		trimmed := strings.TrimSpace(current.String())
		if trimmed != "" {
			list = append(list, trimmed)
		}
		current.Reset()
	}

	var isEscaped bool
	for _, r := range s {
		if isEscaped {
			current.WriteRune(r)
			isEscaped = false
			continue
		}

		switch {
		case r == '\\' && handleEscapes:
			isEscaped = true
			// For commands, we also keep the backslash for the shell to interpret.
			current.WriteRune(r)
		case r == '\'' || r == '"':
			if quoteChar == 0 { // Start of a new quoted section.
				quoteChar = r
				if keepQuotes {
					current.WriteRune(r)
				}
			} else if quoteChar == r { // End of the current quoted section.
				quoteChar = 0
				if keepQuotes {
					current.WriteRune(r)
				}
			} else { // A different quote character inside an existing quoted section.
				current.WriteRune(r) // Treat it as a literal character.
			}
		case r == ',' && quoteChar == 0: // Comma outside of any quotes.
			appendItem()
		default:
			current.WriteRune(r)
		}
	}
	appendItem() // Add the final item after the loop finishes.
	return list
}
