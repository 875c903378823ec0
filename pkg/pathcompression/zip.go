package pathcompression

import (
	"archive/zip"
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/flate"

	"github.com/tmerle/syncbak/pkg/plog"
	"github.com/tmerle/syncbak/pkg/util"
)

// writeZip streams srcDir into trgF as a zip archive. The zip central
// directory makes parallel writes impractical, so entries are written
// sequentially; the flate encoder is the klauspost drop-in.
func (c *PathCompressor) writeZip(ctx context.Context, srcDir string, trgF *os.File) (retErr error) {

	var lvl int
	switch c.level {
	case Fastest:
		lvl = flate.BestSpeed
	case Better:
		lvl = 6 // Good balance
	case Best:
		lvl = flate.BestCompression
	default:
		lvl = flate.DefaultCompression
	}

	bufWriter := bufio.NewWriterSize(trgF, int(c.ioBufferSize))

	zw := zip.NewWriter(bufWriter)
	zw.RegisterCompressor(zip.Deflate, func(out io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(out, lvl)
	})

	defer func() {
		if err := zw.Close(); err != nil && retErr == nil {
			retErr = fmt.Errorf("zip writer close failed: %w", err)
		}
		if err := bufWriter.Flush(); err != nil && retErr == nil {
			retErr = fmt.Errorf("buffer flush failed: %w", err)
		}
	}()

	bufPtr := c.ioBufferPool.Get()
	defer c.ioBufferPool.Put(bufPtr)

	return filepath.WalkDir(srcDir, func(absSrcPath string, d os.DirEntry, walkErr error) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return fmt.Errorf("failed to get file info for %s: %w", absSrcPath, err)
		}

		relPathKey, err := filepath.Rel(srcDir, absSrcPath)
		if err != nil {
			return fmt.Errorf("failed to get relative path for %s: %w", absSrcPath, err)
		}
		relPathKey = util.NormalizePath(relPathKey)

		plog.Debug("ADD", "source", srcDir, "file", relPathKey)

		header, err := zip.FileInfoHeader(info)
		if err != nil {
			return fmt.Errorf("failed to create zip header for %s: %w", relPathKey, err)
		}
		header.Name = relPathKey
		header.Method = zip.Deflate

		// Zip has no native symlink entry type; store the target as content.
		if info.Mode()&os.ModeSymlink != 0 {
			linkTarget, err := os.Readlink(absSrcPath)
			if err != nil {
				return fmt.Errorf("failed to read link %s: %w", absSrcPath, err)
			}
			w, err := zw.CreateHeader(header)
			if err != nil {
				return fmt.Errorf("failed to create zip entry for %s: %w", relPathKey, err)
			}
			if _, err := w.Write([]byte(linkTarget)); err != nil {
				return fmt.Errorf("failed to archive link %s: %w", relPathKey, err)
			}
			c.metrics.AddBytesRead(int64(len(linkTarget)))
			c.metrics.AddEntriesArchived(1)
			return nil
		}

		fileToZip, err := os.Open(absSrcPath)
		if err != nil {
			return fmt.Errorf("failed to open file %s: %w", absSrcPath, err)
		}
		defer fileToZip.Close()

		w, err := zw.CreateHeader(header)
		if err != nil {
			return fmt.Errorf("failed to create zip entry for %s: %w", relPathKey, err)
		}

		written, err := io.CopyBuffer(w, fileToZip, *bufPtr)
		if err != nil {
			return fmt.Errorf("failed to archive file %s: %w", absSrcPath, err)
		}
		c.metrics.AddBytesRead(written)
		c.metrics.AddEntriesArchived(1)
		return nil
	})
}
