package pathcompression

import (
	"archive/tar"
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/klauspost/pgzip"
	"golang.org/x/sync/errgroup"

	"github.com/tmerle/syncbak/pkg/plog"
	"github.com/tmerle/syncbak/pkg/util"
)

// tarItem struct for tar workers
type tarItem struct {
	absSrcPath string
	relPathKey string
	info       os.FileInfo
}

// writeTar streams srcDir into trgF as a tar archive wrapped in the
// configured compressor. Workers open files and read link targets in
// parallel; writes to the tar stream itself are serialized on a mutex.
func (c *PathCompressor) writeTar(ctx context.Context, srcDir string, trgF *os.File) (retErr error) {

	bufWriter := bufio.NewWriterSize(trgF, int(c.ioBufferSize))

	compressedWriter, err := c.newTarCompressedWriter(bufWriter)
	if err != nil {
		return err
	}

	tw := tar.NewWriter(compressedWriter)

	// Robust cleanup
	defer func() {
		if err := tw.Close(); err != nil && retErr == nil {
			retErr = fmt.Errorf("tar writer close failed: %w", err)
		}
		if err := compressedWriter.Close(); err != nil && retErr == nil {
			retErr = fmt.Errorf("compressed writer close failed: %w", err)
		}
		if err := bufWriter.Flush(); err != nil && retErr == nil {
			retErr = fmt.Errorf("buffer flush failed: %w", err)
		}
	}()

	var mu sync.Mutex
	items := make(chan *tarItem, c.numWorkers*4)

	g, gctx := errgroup.WithContext(ctx)

	// Producer walks the tree and feeds entries to the workers.
	g.Go(func() error {
		defer close(items)
		return filepath.WalkDir(srcDir, func(absSrcPath string, d os.DirEntry, walkErr error) error {
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

			select {
			case items <- &tarItem{absSrcPath: absSrcPath, relPathKey: relPathKey, info: info}:
				return nil
			case <-gctx.Done():
				return gctx.Err()
			}
		})
	})

	for i := 0; i < c.numWorkers; i++ {
		g.Go(func() error {
			bufPtr := c.ioBufferPool.Get()
			defer c.ioBufferPool.Put(bufPtr)

			for {
				select {
				case <-gctx.Done():
					return gctx.Err()
				case t, ok := <-items:
					if !ok {
						return nil
					}
					var err error
					if t.info.Mode()&os.ModeSymlink != 0 {
						err = c.writeTarSymlink(&mu, tw, t)
					} else {
						err = c.writeTarFile(&mu, tw, t, bufPtr)
					}
					if err != nil {
						return err
					}
				}
			}
		})
	}

	return g.Wait()
}

// newTarCompressedWriter wraps w in a gzip or zstd stream per the format.
func (c *PathCompressor) newTarCompressedWriter(w io.Writer) (io.WriteCloser, error) {
	if c.format == TarZst {
		var encoderLevel zstd.EncoderLevel
		switch c.level {
		case Fastest:
			encoderLevel = zstd.SpeedFastest
		case Better:
			encoderLevel = zstd.SpeedBetterCompression
		case Best:
			encoderLevel = zstd.SpeedBestCompression
		default:
			encoderLevel = zstd.SpeedDefault
		}
		zstdWriter, err := zstd.NewWriter(w, zstd.WithEncoderLevel(encoderLevel))
		if err != nil {
			return nil, fmt.Errorf("failed to create zstd writer: %w", err)
		}
		return zstdWriter, nil
	}

	var lvl int
	switch c.level {
	case Fastest:
		lvl = pgzip.BestSpeed
	case Better:
		lvl = 6 // Good balance
	case Best:
		lvl = pgzip.BestCompression
	default:
		lvl = pgzip.DefaultCompression
	}
	pgzipWriter, err := pgzip.NewWriterLevel(w, lvl)
	if err != nil {
		return nil, fmt.Errorf("failed to create gzip writer: %w", err)
	}
	return pgzipWriter, nil
}

func (c *PathCompressor) writeTarSymlink(mu *sync.Mutex, tw *tar.Writer, t *tarItem) error {

	// 1. Parallel: Read the link target
	linkTarget, err := os.Readlink(t.absSrcPath)
	if err != nil {
		return fmt.Errorf("failed to read link %s: %w", t.absSrcPath, err)
	}

	// 2. Serial: Lock and Write
	mu.Lock()
	defer mu.Unlock()

	c.metrics.AddBytesRead(int64(len(linkTarget)))
	header, err := tar.FileInfoHeader(t.info, linkTarget)
	if err != nil {
		return fmt.Errorf("failed to create tar header for %s: %w", t.relPathKey, err)
	}
	header.Name = t.relPathKey
	if err := tw.WriteHeader(header); err != nil {
		return fmt.Errorf("failed to write tar header for %s: %w", t.relPathKey, err)
	}
	c.metrics.AddEntriesArchived(1)
	return nil
}

func (c *PathCompressor) writeTarFile(mu *sync.Mutex, tw *tar.Writer, t *tarItem, bufPtr *[]byte) error {

	// 1. Parallel: Open the file
	fileToTar, err := os.Open(t.absSrcPath)
	if err != nil {
		return fmt.Errorf("failed to open file %s: %w", t.absSrcPath, err)
	}
	defer fileToTar.Close()

	header, err := tar.FileInfoHeader(t.info, "")
	if err != nil {
		return fmt.Errorf("failed to create tar header for %s: %w", t.relPathKey, err)
	}
	header.Name = t.relPathKey

	// 2. Serial: Lock and Write
	mu.Lock()
	defer mu.Unlock()

	if err := tw.WriteHeader(header); err != nil {
		return fmt.Errorf("failed to write tar header for %s: %w", t.relPathKey, err)
	}

	written, err := io.CopyBuffer(tw, fileToTar, *bufPtr)
	if err != nil {
		return fmt.Errorf("failed to archive file %s: %w", t.absSrcPath, err)
	}
	c.metrics.AddBytesRead(written)
	c.metrics.AddEntriesArchived(1)
	return nil
}
