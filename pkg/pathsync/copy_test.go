package pathsync_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/tmerle/syncbak/pkg/metrics"
	"github.com/tmerle/syncbak/pkg/pathsync"
)

func TestFileCopier(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.txt")
	dst := filepath.Join(dir, "dst.txt")
	content := bytes.Repeat([]byte("payload "), 1024)
	if err := os.WriteFile(src, content, 0640); err != nil {
		t.Fatal(err)
	}

	m := &metrics.RunMetrics{}
	copier := pathsync.NewFileCopier(4, false, m) // tiny buffer to force multiple reads

	if err := copier.Copy(context.Background(), src, dst); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := os.ReadFile(dst)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, content) {
		t.Error("destination content differs from source")
	}
	if m.FilesCopied.Load() != 1 {
		t.Errorf("filesCopied = %d, want 1", m.FilesCopied.Load())
	}
	if m.BytesWritten.Load() != int64(len(content)) {
		t.Errorf("bytesWritten = %d, want %d", m.BytesWritten.Load(), len(content))
	}
}

func TestFileCopierOverwritesDestination(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.txt")
	dst := filepath.Join(dir, "dst.txt")
	if err := os.WriteFile(src, []byte("new"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(dst, []byte("something much longer than new"), 0644); err != nil {
		t.Fatal(err)
	}

	copier := pathsync.NewFileCopier(0, false, nil)
	if err := copier.Copy(context.Background(), src, dst); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := os.ReadFile(dst)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "new" {
		t.Errorf("destination = %q, want %q", got, "new")
	}
}

func TestFileCopierReadOnlySourceStaysOverwritable(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("unix permission bits")
	}
	dir := t.TempDir()
	src := filepath.Join(dir, "src.txt")
	dst := filepath.Join(dir, "dst.txt")
	if err := os.WriteFile(src, []byte("v1"), 0444); err != nil {
		t.Fatal(err)
	}

	copier := pathsync.NewFileCopier(0, false, nil)
	if err := copier.Copy(context.Background(), src, dst); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	info, err := os.Stat(dst)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm()&0200 == 0 {
		t.Fatalf("destination perms = %04o, missing the owner-write bit", info.Mode().Perm())
	}

	// A second run must be able to overwrite the previous copy.
	if err := copier.Copy(context.Background(), src, dst); err != nil {
		t.Fatalf("overwriting the previous copy failed: %v", err)
	}
}

func TestFileCopierDryRun(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.txt")
	dst := filepath.Join(dir, "dst.txt")
	if err := os.WriteFile(src, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	copier := pathsync.NewFileCopier(0, true, nil)
	if err := copier.Copy(context.Background(), src, dst); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := os.Stat(dst); !os.IsNotExist(err) {
		t.Error("dry-run copy created the destination file")
	}
}

func TestFileCopierMissingSource(t *testing.T) {
	dir := t.TempDir()
	copier := pathsync.NewFileCopier(0, false, nil)
	err := copier.Copy(context.Background(), filepath.Join(dir, "nope"), filepath.Join(dir, "dst"))
	if err == nil {
		t.Fatal("expected error, got nil")
	}
}

func TestRemoveFile(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "f")
	if err := os.WriteFile(file, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := pathsync.RemoveFile(file); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := os.Stat(file); !os.IsNotExist(err) {
		t.Error("file still exists after RemoveFile")
	}
}

func TestRemoveDirectory(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "d")
	if err := os.MkdirAll(filepath.Join(sub, "nested"), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(sub, "nested", "f"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := pathsync.RemoveDirectory(sub); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := os.Stat(sub); !os.IsNotExist(err) {
		t.Error("directory still exists after RemoveDirectory")
	}
}
