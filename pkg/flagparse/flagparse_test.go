package flagparse_test

import (
	"slices"
	"testing"

	"github.com/tmerle/syncbak/pkg/flagparse"
)

func TestParseBackupFlags(t *testing.T) {
	args := []string{
		"backup",
		"-source", "/home/user/colors",
		"-dest", "/mnt/backup",
		"-dry-run",
		"-compression",
		"-compression-format", "tar.zst",
		"-exclude", "*.tmp,.cache",
	}

	command, flagMap, subpaths, err := flagparse.Parse(args)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if command != flagparse.Backup {
		t.Fatalf("command = %v, want Backup", command)
	}
	if len(subpaths) != 0 {
		t.Errorf("subpaths = %v, want none", subpaths)
	}

	if got := flagMap["source"]; got != "/home/user/colors" {
		t.Errorf("source = %v", got)
	}
	if got := flagMap["dest"]; got != "/mnt/backup" {
		t.Errorf("dest = %v", got)
	}
	if got := flagMap["dry-run"]; got != true {
		t.Errorf("dry-run = %v", got)
	}
	if got := flagMap["compression"]; got != true {
		t.Errorf("compression = %v", got)
	}
	if got := flagMap["compression-format"]; got != "tar.zst" {
		t.Errorf("compression-format = %v", got)
	}
	excludes, ok := flagMap["exclude"].([]string)
	if !ok || !slices.Equal(excludes, []string{"*.tmp", ".cache"}) {
		t.Errorf("exclude = %v", flagMap["exclude"])
	}
}

func TestParseOnlySetFlagsAppear(t *testing.T) {
	_, flagMap, _, err := flagparse.Parse([]string{"backup", "-dest", "/mnt/backup"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(flagMap) != 1 {
		t.Errorf("flagMap = %v, want only the dest entry", flagMap)
	}
	if _, present := flagMap["log-level"]; present {
		t.Error("default-valued log-level leaked into the flag map")
	}
}

func TestParsePartialSubpaths(t *testing.T) {
	command, flagMap, subpaths, err := flagparse.Parse([]string{
		"partial", "-source", "/src", "-dest", "/dst", "docs", "pictures/cats",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if command != flagparse.Partial {
		t.Fatalf("command = %v, want Partial", command)
	}
	if !slices.Equal(subpaths, []string{"docs", "pictures/cats"}) {
		t.Errorf("subpaths = %v", subpaths)
	}
	if got := flagMap["source"]; got != "/src" {
		t.Errorf("source = %v", got)
	}
}

func TestParseVersionAndHelp(t *testing.T) {
	command, flagMap, _, err := flagparse.Parse([]string{"version"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if command != flagparse.Version || flagMap != nil {
		t.Errorf("Parse(version) = (%v, %v)", command, flagMap)
	}

	command, _, _, err = flagparse.Parse(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if command != flagparse.None {
		t.Errorf("Parse(no args) command = %v, want None", command)
	}
}

func TestParseUnknownCommand(t *testing.T) {
	if _, _, _, err := flagparse.Parse([]string{"restore"}); err == nil {
		t.Fatal("expected error for unknown command, got nil")
	}
}

func TestParseCommand(t *testing.T) {
	tests := []struct {
		in      string
		want    flagparse.Command
		wantErr bool
	}{
		{"backup", flagparse.Backup, false},
		{"partial", flagparse.Partial, false},
		{"config", flagparse.Config, false},
		{"version", flagparse.Version, false},
		{"sync", flagparse.None, true},
	}
	for _, tc := range tests {
		got, err := flagparse.ParseCommand(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Errorf("ParseCommand(%q): expected error, got nil", tc.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseCommand(%q): unexpected error: %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("ParseCommand(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestParseExcludeList(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"simple", "*.tmp,.cache", []string{"*.tmp", ".cache"}},
		{"whitespace trimmed", " *.tmp , .cache ", []string{"*.tmp", ".cache"}},
		{"quoted comma kept, quotes stripped", `"a,b",c`, []string{"a,b", "c"}},
		{"single quotes", `'with space',plain`, []string{"with space", "plain"}},
		{"windows path backslashes literal", `C:\Temp\*,D:\junk`, []string{`C:\Temp\*`, `D:\junk`}},
		{"empty items dropped", "a,,b,", []string{"a", "b"}},
		{"empty input", "", nil},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := flagparse.ParseExcludeList(tc.in); !slices.Equal(got, tc.want) {
				t.Errorf("ParseExcludeList(%q) = %v, want %v", tc.in, got, tc.want)
			}
		})
	}
}

func TestParseCmdList(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"simple commands", "echo one,echo two", []string{"echo one", "echo two"}},
		{"quotes preserved", `echo "a,b",ls`, []string{`echo "a,b"`, "ls"}},
		{"escaped comma", `echo a\,b,ls`, []string{`echo a\,b`, "ls"}},
		{"nested quote kept literal", `echo "it's fine"`, []string{`echo "it's fine"`}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := flagparse.ParseCmdList(tc.in); !slices.Equal(got, tc.want) {
				t.Errorf("ParseCmdList(%q) = %v, want %v", tc.in, got, tc.want)
			}
		})
	}
}
