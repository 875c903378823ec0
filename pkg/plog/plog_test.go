package plog_test

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/tmerle/syncbak/pkg/plog"
)

func TestNoticeLevelName(t *testing.T) {
	var buf bytes.Buffer
	plog.SetOutput(&buf)

	plog.Notice("SYNC", "source", "/src", "destination", "/dst")

	out := buf.String()
	if !strings.Contains(out, "level=NOTICE") {
		t.Errorf("output %q does not render the NOTICE level name", out)
	}
	if !strings.Contains(out, "msg=SYNC") {
		t.Errorf("output %q is missing the message", out)
	}
	if !strings.Contains(out, "source=/src") {
		t.Errorf("output %q is missing the attributes", out)
	}
}

func TestSetLevelFilters(t *testing.T) {
	var buf bytes.Buffer
	plog.SetOutput(&buf)
	plog.SetLevel(slog.LevelWarn)

	plog.Debug("quiet")
	plog.Info("quiet")
	plog.Notice("quiet")
	plog.Warn("loud")

	out := buf.String()
	if strings.Contains(out, "quiet") {
		t.Errorf("output %q contains records below the configured level", out)
	}
	if !strings.Contains(out, "loud") {
		t.Errorf("output %q is missing the warning record", out)
	}

	plog.SetLevel(slog.LevelDebug)
	plog.Debug("verbose again")
	if !strings.Contains(buf.String(), "verbose again") {
		t.Error("lowering the level did not re-enable debug records")
	}
}

func TestLevelFromString(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"INFO", slog.LevelInfo},
		{"notice", plog.LevelNotice},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"bogus", slog.LevelInfo},
		{"", slog.LevelInfo},
	}
	for _, tc := range tests {
		if got := plog.LevelFromString(tc.in); got != tc.want {
			t.Errorf("LevelFromString(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestNoticeSitsBetweenInfoAndWarn(t *testing.T) {
	if plog.LevelNotice <= slog.LevelInfo || plog.LevelNotice >= slog.LevelWarn {
		t.Errorf("LevelNotice = %v, want a level strictly between INFO and WARN", plog.LevelNotice)
	}
}
