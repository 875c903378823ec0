package preflight_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/tmerle/syncbak/pkg/preflight"
)

func TestCheckSourceAccessible(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "file")
	if err := os.WriteFile(file, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	if err := preflight.CheckSourceAccessible(dir); err != nil {
		t.Errorf("directory source rejected: %v", err)
	}
	if err := preflight.CheckSourceAccessible(file); err == nil {
		t.Error("file source accepted")
	}
	if err := preflight.CheckSourceAccessible(filepath.Join(dir, "nope")); err == nil {
		t.Error("missing source accepted")
	}
}

func TestCheckDestinationAccessible(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "file")
	if err := os.WriteFile(file, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	if err := preflight.CheckDestinationAccessible(dir); err != nil {
		t.Errorf("directory destination rejected: %v", err)
	}
	if err := preflight.CheckDestinationAccessible(file); err == nil {
		t.Error("file destination accepted")
	}
	if err := preflight.CheckDestinationAccessible(filepath.Join(dir, "nope")); err == nil {
		t.Error("missing destination accepted")
	}
}

func TestCheckDestinationWritable(t *testing.T) {
	dir := t.TempDir()
	if err := preflight.CheckDestinationWritable(dir); err != nil {
		t.Errorf("writable destination rejected: %v", err)
	}

	// The probe file must not survive the check.
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("probe left entries behind: %v", entries)
	}
}

func TestCheckDestinationWritableReadOnly(t *testing.T) {
	if os.Getuid() == 0 {
		t.Skip("root bypasses directory permissions")
	}
	dir := t.TempDir()
	if err := os.Chmod(dir, 0555); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Chmod(dir, 0755) })

	if err := preflight.CheckDestinationWritable(dir); err == nil {
		t.Error("read-only destination accepted")
	}
}

func TestCheckPathNesting(t *testing.T) {
	base := t.TempDir()
	src := filepath.Join(base, "src")
	if err := os.MkdirAll(filepath.Join(src, "inner"), 0755); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		src     string
		dst     string
		wantErr bool
	}{
		{"destination inside source", src, filepath.Join(src, "inner"), true},
		{"destination equals source", src, src, true},
		{"sibling destination", src, filepath.Join(base, "dst"), false},
		{"source inside destination", filepath.Join(src, "inner"), src, false},
		{"parent named like source", src, src + "-archive", false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := preflight.CheckPathNesting(tc.src, tc.dst)
			if tc.wantErr && err == nil {
				t.Error("expected error, got nil")
			}
			if !tc.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}
