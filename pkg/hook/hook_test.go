package hook_test

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"testing"

	"github.com/tmerle/syncbak/pkg/hints"
	"github.com/tmerle/syncbak/pkg/hook"
)

// mockCommandContext re-executes the test binary and routes the hook command
// into TestHelperProcess instead of a real shell.
func mockCommandContext(ctx context.Context, name string, arg ...string) *exec.Cmd {
	cs := []string{"-test.run=TestHelperProcess", "--", name}
	cs = append(cs, arg...)
	cmd := exec.CommandContext(ctx, os.Args[0], cs...)
	cmd.Env = []string{"GO_WANT_HELPER_PROCESS=1"}
	return cmd
}

// TestHelperProcess is not a real test. It acts as the fake shell spawned by
// mockCommandContext: it exits non-zero when the hook command contains "fail".
func TestHelperProcess(t *testing.T) {
	if os.Getenv("GO_WANT_HELPER_PROCESS") != "1" {
		return
	}
	defer os.Exit(0)

	args := os.Args
	for len(args) > 0 {
		if args[0] == "--" {
			args = args[1:]
			break
		}
		args = args[1:]
	}
	// args is now the original command line: shell, -c (or /C), command.
	command := args[len(args)-1]
	if strings.Contains(command, "fail") {
		fmt.Fprintln(os.Stderr, "helper: simulated failure")
		os.Exit(1)
	}
}

func TestRunExecutesCommandsInOrder(t *testing.T) {
	e := hook.NewHookExecutor(mockCommandContext)
	err := e.Run(context.Background(), "pre-backup", []string{"echo one", "echo two"}, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestRunStopsOnFirstFailure(t *testing.T) {
	e := hook.NewHookExecutor(mockCommandContext)
	err := e.Run(context.Background(), "pre-backup", []string{"echo ok", "please fail", "echo never"}, false)
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if !strings.Contains(err.Error(), "please fail") {
		t.Errorf("error = %v, want the failing command named", err)
	}
}

func TestRunEmptyCommandList(t *testing.T) {
	e := hook.NewHookExecutor(mockCommandContext)
	err := e.Run(context.Background(), "post-backup", nil, false)
	if !hints.IsHint(err) {
		t.Fatalf("expected a hint error, got %v", err)
	}
}

func TestRunDryRunSkipsExecution(t *testing.T) {
	// The fake shell would fail on this command; in dry-run mode it must
	// never be spawned at all.
	e := hook.NewHookExecutor(mockCommandContext)
	err := e.Run(context.Background(), "pre-backup", []string{"please fail"}, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestRunCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	e := hook.NewHookExecutor(mockCommandContext)
	err := e.Run(ctx, "pre-backup", []string{"echo one"}, false)
	if err != context.Canceled {
		t.Fatalf("error = %v, want context.Canceled", err)
	}
}
