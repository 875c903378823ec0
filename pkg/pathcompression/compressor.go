package pathcompression

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/tmerle/syncbak/pkg/metrics"
	"github.com/tmerle/syncbak/pkg/plog"
	"github.com/tmerle/syncbak/pkg/pool"
)

const defaultIOBufferKB = 512

// PathCompressor archives a directory tree into a single compressed file.
// The archive is staged as a temp file next to the final path and renamed
// into place, so a crashed run never leaves a half-written archive behind.
type PathCompressor struct {
	format       Format
	level        Level
	numWorkers   int
	ioBufferSize int64
	ioBufferPool *pool.FixedBufferPool
	dryRun       bool
	metrics      metrics.Metrics
}

// NewPathCompressor creates a compressor from a resolved Plan.
func NewPathCompressor(plan *Plan, m metrics.Metrics) *PathCompressor {
	workers := plan.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	bufKB := plan.BufferSizeKB
	if bufKB <= 0 {
		bufKB = defaultIOBufferKB
	}
	if m == nil {
		m = &metrics.NoopMetrics{}
	}
	bufSize := int64(bufKB) * 1024
	return &PathCompressor{
		format:       plan.Format,
		level:        plan.Level,
		numWorkers:   workers,
		ioBufferSize: bufSize,
		ioBufferPool: pool.NewFixedBuffer(bufSize),
		dryRun:       plan.DryRun,
		metrics:      m,
	}
}

// ArchivePath returns the archive file path for a given source directory,
// derived from the directory name plus the format's extension.
func (c *PathCompressor) ArchivePath(srcDir string) string {
	return srcDir + c.format.Extension()
}

// Compress archives srcDir into archivePath.
func (c *PathCompressor) Compress(ctx context.Context, srcDir, archivePath string) (retErr error) {

	if c.dryRun {
		plog.Notice("[DRY RUN] COMPRESS", "source", srcDir, "archive", archivePath)
		return nil
	}
	plog.Notice("COMPRESS", "source", srcDir, "archive", archivePath)

	// Stage in the target directory to keep the final rename atomic.
	trgF, err := os.CreateTemp(filepath.Dir(archivePath), "syncbak-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp archive: %w", err)
	}
	tempTrgPath := trgF.Name()

	// Ensure cleanup on error
	defer func() {
		if retErr != nil {
			trgF.Close()
			os.Remove(tempTrgPath)
		}
	}()

	switch c.format {
	case Zip:
		err = c.writeZip(ctx, srcDir, trgF)
	case TarGz, TarZst:
		err = c.writeTar(ctx, srcDir, trgF)
	default:
		err = fmt.Errorf("unsupported compression format: %s", c.format)
	}
	if err != nil {
		return err
	}

	if err := trgF.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tempTrgPath, archivePath); err != nil {
		return fmt.Errorf("failed to rename temp archive to final path: %w", err)
	}

	return nil
}
