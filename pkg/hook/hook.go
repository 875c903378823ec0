// Package hook runs user-configured shell commands around a backup run.
package hook

import (
	"context"
	"fmt"
	"os"
	"os/exec"

	"github.com/tmerle/syncbak/pkg/hints"
	"github.com/tmerle/syncbak/pkg/plog"
)

var ErrNothingToExecute = hints.New("nothing to execute")

type HookExecutor struct {
	// commandContext allows mocking os/exec for testing hooks.
	commandContext func(ctx context.Context, name string, arg ...string) *exec.Cmd
}

// NewHookExecutor creates a new HookExecutor. A nil commandContext uses the
// real exec.CommandContext.
func NewHookExecutor(commandContext func(ctx context.Context, name string, arg ...string) *exec.Cmd) *HookExecutor {
	if commandContext == nil {
		commandContext = exec.CommandContext
	}
	return &HookExecutor{
		commandContext: commandContext,
	}
}

// Run executes the given hook commands sequentially through the platform
// shell. It stops on the first failing command.
func (e *HookExecutor) Run(ctx context.Context, phase string, commands []string, dryRun bool) error {
	if len(commands) <= 0 {
		return ErrNothingToExecute
	}

	plog.Info(fmt.Sprintf("Running %s hook commands", phase))

	for _, hookCommand := range commands {

		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if dryRun {
			plog.Info("[DRY RUN] Executing command", "command", hookCommand)
			continue
		}
		plog.Info("Executing command", "command", hookCommand)

		cmd := e.createCommand(ctx, hookCommand)

		// Pipe output directly through for visibility
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr

		if err := cmd.Run(); err != nil {
			// Check if the context was canceled, which can cause cmd.Wait() to
			// return an error. If so, return the context's error to be more specific.
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("command '%s' failed: %w", hookCommand, err)
		}
	}
	return nil
}
