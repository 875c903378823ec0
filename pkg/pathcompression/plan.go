package pathcompression

// Plan carries the compression settings resolved from config and flags for
// a single backup run.
type Plan struct {
	Enabled bool
	Format  Format
	Level   Level

	Workers      int
	BufferSizeKB int

	// Global Flags
	DryRun bool
}
