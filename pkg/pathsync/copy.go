package pathsync

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/tmerle/syncbak/pkg/metrics"
	"github.com/tmerle/syncbak/pkg/pool"
	"github.com/tmerle/syncbak/pkg/util"
)

// defaultCopyBufferKB is the I/O buffer size used when the config does not
// override it.
const defaultCopyBufferKB = 256

// FileCopier performs single-file copies with pooled buffers. Content is
// preserved; permission/attribute handling is tool-default (the destination
// is created with the source's permission bits, nothing more).
type FileCopier struct {
	bufPool *pool.FixedBufferPool
	dryRun  bool
	metrics metrics.Metrics
}

// NewFileCopier creates a FileCopier with the given buffer size in KB.
func NewFileCopier(bufferSizeKB int, dryRun bool, m metrics.Metrics) *FileCopier {
	if bufferSizeKB <= 0 {
		bufferSizeKB = defaultCopyBufferKB
	}
	if m == nil {
		m = &metrics.NoopMetrics{}
	}
	return &FileCopier{
		bufPool: pool.NewFixedBuffer(int64(bufferSizeKB) * 1024),
		dryRun:  dryRun,
		metrics: m,
	}
}

// Copy copies src to dst, truncating any existing destination file.
func (c *FileCopier) Copy(ctx context.Context, src, dst string) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	if c.dryRun {
		return nil
	}

	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open the file %q: %w", src, err)
	}
	defer in.Close()

	srcInfo, err := in.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat the file %q: %w", src, err)
	}

	// Force the owner-write bit: a read-only source must not produce a
	// destination the next run cannot overwrite.
	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, util.WithUserWritePermission(srcInfo.Mode().Perm()))
	if err != nil {
		return fmt.Errorf("failed to create the file %q: %w", dst, err)
	}

	bufPtr := c.bufPool.Get()
	defer c.bufPool.Put(bufPtr)

	written, err := io.CopyBuffer(out, in, *bufPtr)
	if closeErr := out.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return fmt.Errorf("failed to copy the file %q to %q: %w", src, dst, err)
	}
	c.metrics.AddBytesRead(written)
	c.metrics.AddBytesWritten(written)
	c.metrics.AddFilesCopied(1)
	return nil
}
